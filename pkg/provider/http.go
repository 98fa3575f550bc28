package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 64 << 10

// errorMessageFunc extracts a human-readable message from an error body.
type errorMessageFunc func(body []byte) string

func validateClient(name, apiKey string, o clientOptions) error {
	if apiKey == "" {
		return &InitError{Provider: name, Err: errors.New("API key is empty")}
	}
	if strings.IndexFunc(apiKey, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return &InitError{Provider: name, Err: errors.New("API key contains whitespace or control characters")}
	}
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return &InitError{Provider: name, Err: fmt.Errorf("invalid base URL %q: %w", o.baseURL, err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &InitError{Provider: name, Err: fmt.Errorf("invalid base URL %q: want http(s)://host", o.baseURL)}
	}
	if o.client == nil {
		return &InitError{Provider: name, Err: errors.New("nil HTTP client")}
	}
	return nil
}

// postJSON sends one POST request and returns the raw success body.
func postJSON(ctx context.Context, client *http.Client, name, endpoint string, headers map[string]string, payload any, msg errorMessageFunc) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Provider: name, Err: fmt.Errorf("sending HTTP request: %w", err)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &StatusError{
			Provider:   name,
			StatusCode: httpResp.StatusCode,
			Message:    msg(respBody),
			Body:       string(respBody),
		}
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &RequestError{Provider: name, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return respBody, nil
}
