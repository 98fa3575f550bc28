package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	defaultOpenAIURL = "https://api.openai.com"
	openAIChatPath   = "/v1/chat/completions"
)

// OpenAIProvider implements Provider for the OpenAI Chat Completions API.
type OpenAIProvider struct {
	apiKey string
	opts   clientOptions
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI provider with the given API key.
func NewOpenAIProvider(apiKey string, opts ...Option) (*OpenAIProvider, error) {
	o := applyOptions(defaultOpenAIURL, opts)
	if err := validateClient("openai", apiKey, o); err != nil {
		return nil, err
	}
	return &OpenAIProvider{apiKey: apiKey, opts: o}, nil
}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

type openaiMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// openaiResponse is the OpenAI Chat Completions API response body.
type openaiResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends a request to the OpenAI Chat Completions API.
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	endpoint := strings.TrimRight(p.opts.baseURL, "/") + openAIChatPath

	respBody, err := postJSON(ctx, p.opts.client, p.Name(), endpoint, headers, buildOpenAIBody(req), openaiErrorMessage)
	if err != nil {
		return nil, err
	}

	var or openaiResponse
	if err := json.Unmarshal(respBody, &or); err != nil {
		return nil, fmt.Errorf("decoding openai response: %w", err)
	}
	resp := parseOpenAIResponse(&or)
	resp.Raw = respBody
	return resp, nil
}

func buildOpenAIBody(req *Request) map[string]any {
	body := make(map[string]any, len(req.Params)+2)
	for k, v := range req.Params {
		body[k] = v
	}
	body["model"] = req.Model
	body["messages"] = convertToOpenAIMessages(req.System, req.Messages)
	return body
}

func convertToOpenAIMessages(system string, msgs []Message) []openaiMessage {
	out := make([]openaiMessage, 0, len(msgs)+1)

	// OpenAI uses a system message in the messages array.
	if system != "" {
		s := system
		out = append(out, openaiMessage{Role: "system", Content: &s})
	}

	for _, m := range msgs {
		c := m.Content
		out = append(out, openaiMessage{Role: m.Role, Content: &c})
	}
	return out
}

func parseOpenAIResponse(or *openaiResponse) *Response {
	resp := &Response{
		Model: or.Model,
		Usage: Usage{
			InputTokens:  or.Usage.PromptTokens,
			OutputTokens: or.Usage.CompletionTokens,
		},
	}

	if len(or.Choices) == 0 {
		return resp
	}

	choice := or.Choices[0]
	resp.StopReason = choice.FinishReason
	if choice.Message.Content != nil {
		resp.Content = *choice.Message.Content
	}
	return resp
}

func openaiErrorMessage(body []byte) string {
	var apiErr openaiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil {
		return apiErr.Error.Message
	}
	return ""
}
