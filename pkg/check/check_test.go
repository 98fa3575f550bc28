package check_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jdgilhuly/llmcheck/checktest"
	"github.com/jdgilhuly/llmcheck/pkg/check"
	"github.com/jdgilhuly/llmcheck/pkg/config"
	"github.com/jdgilhuly/llmcheck/pkg/conversation"
	"github.com/jdgilhuly/llmcheck/pkg/params"
	"github.com/jdgilhuly/llmcheck/pkg/provider"
	"github.com/jdgilhuly/llmcheck/pkg/report"
	"github.com/jdgilhuly/llmcheck/pkg/vendor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "start", check.StateStart.String())
	assert.Equal(t, "conversation_built", check.StateConversationBuilt.String())
	assert.Equal(t, "aborted", check.StateAborted.String())
	assert.Equal(t, "unknown", check.State(99).String())
}

func TestRun_Success(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{
		Content:    "I'm doing great, thanks for asking!",
		StopReason: "end_turn",
		Usage:      provider.Usage{InputTokens: 42, OutputTokens: 9},
	})
	h := checktest.New(t, "anthropic", checktest.WithProvider(fp))
	res := h.Run()

	res.AssertState(check.StateSucceeded)
	res.AssertOutputContains("I'm doing great, thanks for asking!")
	res.AssertOutputContains(report.SuccessSummary)
	res.AssertOutputNotContains(report.FailureSummary)
	assert.True(t, res.Outcome.OK())
	assert.NoError(t, res.Outcome.Err)

	assert.Equal(t, []string{
		"start", "env_loaded", "config_loaded", "params_built",
		"conversation_built", "dispatched", "succeeded",
	}, res.Trace.States())
	assert.Equal(t, 51, res.Trace.Usage.TotalTokens)
	assert.Equal(t, 1, fp.Calls())

	req := fp.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "claude-3-sonnet-20240229", req.Model)
	assert.Equal(t, "You are a helpful assistant that keeps answers short.", req.System)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "Hello! How are you doing?", req.Messages[2].Content)
	res.AssertOutputContains("Calling Claude API...")
	res.AssertOutputContains("Final prompt sent: Hello! How are you doing?")
}

func TestRun_MissingCredential(t *testing.T) {
	h := checktest.New(t, "anthropic", checktest.WithEnv(map[string]string{}))
	res := h.Run()

	res.AssertState(check.StateAborted)
	res.AssertOutputContains("environment variable 'ANTHROPIC_API_KEY' is not set")
	res.AssertOutputNotContains(report.SuccessSummary)
	res.AssertOutputNotContains(report.FailureSummary)
	res.AssertOutputNotContains("Calling")
	res.AssertConfigLoads(0)
	res.AssertNoDispatch()

	var mc *config.MissingCredentialError
	assert.ErrorAs(t, res.Outcome.Err, &mc)
	assert.Equal(t, []string{"start", "aborted"}, res.Trace.States())
}

func TestRun_WhitespaceCredential(t *testing.T) {
	h := checktest.New(t, "gemini", checktest.WithEnv(map[string]string{"GOOGLE_API_KEY": "   "}))
	res := h.Run()

	res.AssertState(check.StateAborted)
	res.AssertNoDispatch()
}

func TestRun_MissingProviderConfig(t *testing.T) {
	h := checktest.New(t, "gemini", checktest.WithoutProviderFile())
	res := h.Run()

	res.AssertState(check.StateAborted)
	res.AssertOutputContains("config file not found: " + h.ProviderPath())
	res.AssertNoDispatch()
	assert.Equal(t, []string{"start", "env_loaded", "aborted"}, res.Trace.States())
}

func TestRun_MalformedYAML(t *testing.T) {
	h := checktest.New(t, "anthropic", checktest.WithPersonalityYAML("system_prompt: [unclosed\n"))
	res := h.Run()

	res.AssertState(check.StateAborted)
	res.AssertOutputContains("failed to parse YAML file: " + h.PersonalityPath())
	res.AssertNoDispatch()

	var le *config.LoadError
	require.ErrorAs(t, res.Outcome.Err, &le)
	assert.Equal(t, config.KindParse, le.Kind)
}

func TestRun_BothConfigsBroken(t *testing.T) {
	h := checktest.New(t, "anthropic",
		checktest.WithoutProviderFile(),
		checktest.WithPersonalityYAML("system_prompt: [unclosed\n"),
	)
	res := h.Run()

	res.AssertState(check.StateAborted)
	res.AssertConfigLoads(2)
	res.AssertOutputContains(h.ProviderPath())
	res.AssertOutputContains(h.PersonalityPath())
}

func TestRun_ParameterDefaults(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{Content: "ok"})
	h := checktest.New(t, "anthropic",
		checktest.WithProvider(fp),
		checktest.WithProviderYAML("default_model: claude-3-haiku-20240307\ndefault_parameters:\n  temperature: 0.7\n"),
	)
	res := h.Run()

	res.AssertState(check.StateSucceeded)
	assert.Equal(t, params.Params{"max_tokens": 1024, "temperature": 0.7}, res.Outcome.Params)
	assert.Equal(t, res.Outcome.Params, fp.LastRequest().Params)
	res.AssertOutputContains("Generation parameters: {max_tokens: 1024, temperature: 0.7}")
	res.AssertOutputContains("Model: claude-3-haiku-20240307")
}

func TestRun_StatusError401(t *testing.T) {
	fp := checktest.NewFailingProvider(&provider.StatusError{
		Provider:   "anthropic",
		StatusCode: 401,
		Message:    "invalid x-api-key",
		Body:       `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
	})
	h := checktest.New(t, "anthropic", checktest.WithProvider(fp))
	res := h.Run()

	res.AssertState(check.StateFailed)
	res.AssertOutputContains("401")
	res.AssertOutputContains(report.FailureSummary)
	res.AssertOutputNotContains(report.SuccessSummary)
	assert.Equal(t, 1, fp.Calls())
	assert.Equal(t, "failed", res.Trace.States()[len(res.Trace.States())-1])
	assert.Contains(t, res.Trace.Error, "401")
}

func TestRun_GeminiSystemTurns(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{Content: "Doing well!"})
	h := checktest.New(t, "gemini", checktest.WithProvider(fp))
	res := h.Run()

	res.AssertState(check.StateSucceeded)
	req := fp.LastRequest()
	require.NotNil(t, req)
	assert.Empty(t, req.System)
	require.Len(t, req.Messages, 5)
	assert.Equal(t, "You are a helpful assistant that keeps answers short.", req.Messages[0].Content)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, params.Params{"max_output_tokens": 1024, "temperature": 0.7}, req.Params)
	assert.Equal(t, "Hello! How's it going?", req.Messages[4].Content)
	res.AssertOutputContains("Calling Gemini API...")
	res.AssertOutputContains("Final prompt sent: Hello! How's it going?")
}

func TestRun_PersonalityWithoutPrompt(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{Content: "hi"})
	h := checktest.New(t, "anthropic",
		checktest.WithProvider(fp),
		checktest.WithPersonalityYAML("name: bare\n"),
	)
	h.Run().AssertState(check.StateSucceeded)
	assert.Equal(t, config.DefaultSystemPrompt, fp.LastRequest().System)
}

func TestRun_EmptyResponseIsSoftWarning(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{Raw: json.RawMessage(`{"content":[]}`)})
	h := checktest.New(t, "anthropic", checktest.WithProvider(fp))
	res := h.Run()

	res.AssertState(check.StateSucceeded)
	res.AssertOutputContains("no text content")
	res.AssertOutputContains(`{"content":[]}`)
	res.AssertOutputContains(report.SuccessSummary)
}

func TestRun_EmptyResponseStrict(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{Raw: json.RawMessage(`{"content":[]}`)})
	h := checktest.New(t, "anthropic", checktest.WithProvider(fp), checktest.WithStrict())
	res := h.Run()

	res.AssertState(check.StateFailed)
	assert.ErrorIs(t, res.Outcome.Err, check.ErrEmptyResponse)
	assert.Equal(t, report.CategoryEmptyResponse, report.Classify(res.Outcome.Err))
	res.AssertOutputContains("(the response contained no text content)")
	res.AssertOutputContains(`Raw response: {"content":[]}`)
	res.AssertOutputNotContains("unexpected error")
	res.AssertOutputContains(report.FailureSummary)
	res.AssertOutputNotContains(report.SuccessSummary)

	var ee *provider.EmptyResponseError
	require.ErrorAs(t, res.Outcome.Err, &ee)
	assert.Same(t, res.Outcome.Response, ee.Response)
}

func TestRun_EmptyResponseStrictSpanStatus(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	fp := checktest.NewFakeProvider(provider.Response{})
	h := checktest.New(t, "gemini", checktest.WithProvider(fp), checktest.WithStrict())
	var out bytes.Buffer
	r := h.Runner(&out)
	r.Tracer = tp.Tracer("test")
	r.Run(context.Background())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, string(report.CategoryEmptyResponse), spans[0].Status().Description)
}

func TestRun_Deterministic(t *testing.T) {
	var reqs []*provider.Request
	for i := 0; i < 2; i++ {
		fp := checktest.NewFakeProvider(provider.Response{Content: "ok"})
		h := checktest.New(t, "gemini", checktest.WithProvider(fp))
		h.Run().AssertState(check.StateSucceeded)
		reqs = append(reqs, fp.LastRequest())
	}
	assert.Equal(t, reqs[0], reqs[1])
}

func TestRun_ClientInitError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.yaml"), "default_model: m\n")
	writeFile(t, filepath.Join(dir, "s.yaml"), "system_prompt: hi\n")

	v, _ := vendor.Lookup("anthropic")
	var out bytes.Buffer
	r := &check.Runner{
		Vendor:          v,
		Getenv:          func(string) string { return "key" },
		Reporter:        report.New(&out, false),
		ProviderPath:    filepath.Join(dir, "p.yaml"),
		PersonalityPath: filepath.Join(dir, "s.yaml"),
		BaseURL:         "ftp://example.com",
	}
	o := r.Run(context.Background())

	assert.Equal(t, check.StateFailed, o.State)
	var ie *provider.InitError
	assert.ErrorAs(t, o.Err, &ie)
	assert.Contains(t, out.String(), "failed to initialize the Claude client")
}

func TestRun_RealClientAgainstTestServer(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"claude-3-haiku-20240307","content":[{"type":"text","text":"Fine, thanks!"}],"stop_reason":"end_turn","usage":{"input_tokens":30,"output_tokens":4}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "anthropic.yaml"), "default_model: claude-3-haiku-20240307\nbase_url: "+srv.URL+"\n")
	writeFile(t, filepath.Join(dir, "personality.yaml"), "system_prompt: Be brief.\n")

	v, _ := vendor.Lookup("anthropic")
	var out bytes.Buffer
	r := &check.Runner{
		Vendor:          v,
		Getenv:          func(string) string { return "test-key" },
		Reporter:        report.New(&out, false),
		ProviderPath:    filepath.Join(dir, "anthropic.yaml"),
		PersonalityPath: filepath.Join(dir, "personality.yaml"),
	}
	o := r.Run(context.Background())

	require.Equal(t, check.StateSucceeded, o.State, out.String())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Fine, thanks!", o.Response.Content)
	assert.Contains(t, out.String(), "Fine, thanks!")
}

func TestRun_ModelOverride(t *testing.T) {
	fp := checktest.NewFakeProvider(provider.Response{Content: "ok"})
	h := checktest.New(t, "anthropic", checktest.WithProvider(fp))
	var out bytes.Buffer
	r := h.Runner(&out)
	r.Model = "claude-3-opus-20240229"

	o := r.Run(context.Background())
	assert.Equal(t, check.StateSucceeded, o.State)
	assert.Equal(t, "claude-3-opus-20240229", fp.LastRequest().Model)
}

func TestRun_ContextCanceled(t *testing.T) {
	h := checktest.New(t, "anthropic")
	var out bytes.Buffer
	r := h.Runner(&out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := r.Run(ctx)

	assert.Equal(t, check.StateAborted, o.State)
	assert.True(t, errors.Is(o.Err, context.Canceled))
	assert.Equal(t, 0, h.Connects())
}

func TestPlan_NoDispatch(t *testing.T) {
	h := checktest.New(t, "gemini")
	var out bytes.Buffer
	r := h.Runner(&out)

	o := r.Plan(context.Background())
	assert.Equal(t, check.StateConversationBuilt, o.State)
	assert.Equal(t, 0, h.Connects())
	assert.Equal(t, conversation.RoleUser, o.Conversation.Last().Role)
	assert.Contains(t, out.String(), "Final prompt (not sent): Hello! How's it going?")
	assert.NotContains(t, out.String(), "Calling Gemini API")
	assert.NotContains(t, out.String(), "Final prompt sent")
	assert.NotContains(t, out.String(), report.SuccessSummary)
	assert.False(t, r.Trace.EndTime.IsZero())
}

func TestRun_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	fp := checktest.NewFailingProvider(&provider.StatusError{Provider: "gemini", StatusCode: 403, Message: "PERMISSION_DENIED"})
	h := checktest.New(t, "gemini", checktest.WithProvider(fp))
	var out bytes.Buffer
	r := h.Runner(&out)
	r.Tracer = tp.Tracer("test")

	o := r.Run(context.Background())
	require.Equal(t, check.StateFailed, o.State)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "check.Run", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, string(report.CategoryAPIStatus), span.Status().Description)
	assert.Contains(t, span.Attributes(), attribute.String("llmcheck.vendor", "gemini"))
	assert.Contains(t, span.Attributes(), attribute.String("llmcheck.state", "failed"))
}

func TestPlan_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	h := checktest.New(t, "anthropic")
	var out bytes.Buffer
	r := h.Runner(&out)
	r.Tracer = tp.Tracer("test")
	r.Plan(context.Background())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "check.Plan", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
