package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

// geminiWireNames maps snake_case parameter names onto generationConfig
// fields. Unknown names are forwarded unchanged.
var geminiWireNames = map[string]string{
	"max_output_tokens": "maxOutputTokens",
	"top_p":             "topP",
	"top_k":             "topK",
	"candidate_count":   "candidateCount",
	"stop_sequences":    "stopSequences",
}

// GeminiProvider implements Provider for the Gemini generateContent API.
type GeminiProvider struct {
	apiKey string
	opts   clientOptions
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider with the given API key.
func NewGeminiProvider(apiKey string, opts ...Option) (*GeminiProvider, error) {
	o := applyOptions(defaultGeminiURL, opts)
	if err := validateClient("gemini", apiKey, o); err != nil {
		return nil, err
	}
	return &GeminiProvider{apiKey: apiKey, opts: o}, nil
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string { return "gemini" }

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any  `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content,omitempty"`
		FinishReason string         `json:"finishReason,omitempty"`
	} `json:"candidates,omitempty"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends a request to the Gemini generateContent endpoint.
func (p *GeminiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.opts.baseURL, "/"), url.PathEscape(req.Model))
	headers := map[string]string{"x-goog-api-key": p.apiKey}

	respBody, err := postJSON(ctx, p.opts.client, p.Name(), endpoint, headers, buildGeminiRequest(req), geminiErrorMessage)
	if err != nil {
		return nil, err
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}
	resp := parseGeminiResponse(&gr)
	if resp.Model == "" {
		resp.Model = req.Model
	}
	resp.Raw = respBody
	return resp, nil
}

func buildGeminiRequest(req *Request) geminiRequest {
	gr := geminiRequest{Contents: make([]geminiContent, 0, len(req.Messages))}
	for _, m := range req.Messages {
		gr.Contents = append(gr.Contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	if req.System != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if len(req.Params) > 0 {
		gr.GenerationConfig = make(map[string]any, len(req.Params))
		for k, v := range req.Params {
			if wire, ok := geminiWireNames[k]; ok {
				k = wire
			}
			gr.GenerationConfig[k] = v
		}
	}
	return gr
}

func geminiRole(role string) string {
	if role == "assistant" {
		return "model"
	}
	return role
}

// parseGeminiResponse joins the text parts of the first candidate.
func parseGeminiResponse(gr *geminiResponse) *Response {
	resp := &Response{
		Model: gr.ModelVersion,
		Usage: Usage{
			InputTokens:  gr.UsageMetadata.PromptTokenCount,
			OutputTokens: gr.UsageMetadata.CandidatesTokenCount,
		},
	}
	if len(gr.Candidates) == 0 {
		if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
			resp.StopReason = "blocked: " + gr.PromptFeedback.BlockReason
		}
		return resp
	}

	cand := gr.Candidates[0]
	resp.StopReason = cand.FinishReason
	if cand.Content == nil {
		return resp
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	resp.Content = sb.String()
	return resp
}

func geminiErrorMessage(body []byte) string {
	var apiErr geminiErrorResponse
	if json.Unmarshal(body, &apiErr) != nil || apiErr.Error.Message == "" {
		return ""
	}
	if apiErr.Error.Status != "" {
		return apiErr.Error.Status + ": " + apiErr.Error.Message
	}
	return apiErr.Error.Message
}
