package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jdgilhuly/llmcheck/pkg/params"
)

const defaultTimeout = 60 * time.Second

// Provider defines the interface for LLM API backends.
type Provider interface {
	// Complete sends exactly one completion request and returns the model
	// response.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider identifier (e.g. "anthropic").
	Name() string
}

// Request represents a completion request to an LLM provider.
type Request struct {
	Model    string        `json:"model"`
	System   string        `json:"system,omitempty"`
	Messages []Message     `json:"messages"`
	Params   params.Params `json:"params,omitempty"`
}

// Message represents a single message in a conversation. Role is "user" or
// "assistant"; providers translate it to their own vocabulary.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents a completion response from an LLM provider.
type Response struct {
	Content    string          `json:"content"`
	Model      string          `json:"model,omitempty"`
	StopReason string          `json:"stop_reason"`
	Usage      Usage           `json:"usage"`
	Raw        json.RawMessage `json:"-"`
}

// HasText reports whether the response carried any text payload.
func (r *Response) HasText() bool {
	return r != nil && r.Content != ""
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Option configures a provider client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	client  *http.Client
}

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.client = c }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = url
		}
	}
}

func applyOptions(defaultURL string, opts []Option) clientOptions {
	o := clientOptions{
		baseURL: defaultURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StatusError is returned when the API answers with a non-success status.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// RequestError wraps failures to reach the API or read its reply.
type RequestError struct {
	Provider string
	Err      error
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s: %v", e.Provider, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// ErrEmptyResponse matches an EmptyResponseError.
var ErrEmptyResponse = errors.New("response contained no text content")

// EmptyResponseError reports a call that succeeded but returned no text.
type EmptyResponseError struct {
	Provider string
	Response *Response
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, ErrEmptyResponse)
}
func (e *EmptyResponseError) Unwrap() error { return ErrEmptyResponse }

// InitError is returned when a client cannot be constructed.
type InitError struct {
	Provider string
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s client: %v", e.Provider, e.Err)
}
func (e *InitError) Unwrap() error { return e.Err }
