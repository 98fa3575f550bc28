package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	defaultAnthropicURL     = "https://api.anthropic.com"
	anthropicMessagesPath   = "/v1/messages"
	defaultAnthropicVersion = "2023-06-01"
)

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey string
	opts   clientOptions
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates a new Anthropic provider with the given API key.
func NewAnthropicProvider(apiKey string, opts ...Option) (*AnthropicProvider, error) {
	o := applyOptions(defaultAnthropicURL, opts)
	if err := validateClient("anthropic", apiKey, o); err != nil {
		return nil, err
	}
	return &AnthropicProvider{apiKey: apiKey, opts: o}, nil
}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the Anthropic Messages API response body.
type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Model      string                  `json:"model"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a request to the Anthropic Messages API.
func (p *AnthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	headers := map[string]string{
		"X-Api-Key":         p.apiKey,
		"Anthropic-Version": defaultAnthropicVersion,
	}
	endpoint := strings.TrimRight(p.opts.baseURL, "/") + anthropicMessagesPath

	respBody, err := postJSON(ctx, p.opts.client, p.Name(), endpoint, headers, buildAnthropicBody(req), anthropicErrorMessage)
	if err != nil {
		return nil, err
	}

	var ar anthropicResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		return nil, fmt.Errorf("decoding anthropic response: %w", err)
	}
	resp := parseAnthropicResponse(&ar)
	resp.Raw = respBody
	return resp, nil
}

// buildAnthropicBody merges the generation parameters into the top level of
// the Messages API body.
func buildAnthropicBody(req *Request) map[string]any {
	body := make(map[string]any, len(req.Params)+3)
	for k, v := range req.Params {
		body[k] = v
	}

	msgs := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	body["model"] = req.Model
	body["messages"] = msgs
	if req.System != "" {
		body["system"] = req.System
	}
	return body
}

// parseAnthropicResponse takes the first text block as the response content.
func parseAnthropicResponse(ar *anthropicResponse) *Response {
	resp := &Response{
		Model:      ar.Model,
		StopReason: ar.StopReason,
		Usage: Usage{
			InputTokens:  ar.Usage.InputTokens,
			OutputTokens: ar.Usage.OutputTokens,
		},
	}
	for _, block := range ar.Content {
		if block.Type == "text" {
			resp.Content = block.Text
			break
		}
	}
	return resp
}

func anthropicErrorMessage(body []byte) string {
	var apiErr anthropicErrorResponse
	if json.Unmarshal(body, &apiErr) == nil {
		return apiErr.Error.Message
	}
	return ""
}
