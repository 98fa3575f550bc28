// Package check runs a single connectivity check against one vendor: it
// resolves the API key, loads the provider and personality configs, maps the
// generation parameters, builds the conversation, sends exactly one request
// and reports the outcome.
package check

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jdgilhuly/llmcheck/pkg/config"
	"github.com/jdgilhuly/llmcheck/pkg/conversation"
	"github.com/jdgilhuly/llmcheck/pkg/params"
	"github.com/jdgilhuly/llmcheck/pkg/provider"
	"github.com/jdgilhuly/llmcheck/pkg/report"
	"github.com/jdgilhuly/llmcheck/pkg/trace"
	"github.com/jdgilhuly/llmcheck/pkg/vendor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jdgilhuly/llmcheck/pkg/check"

// State is a step of a connectivity check.
type State int

const (
	StateStart State = iota
	StateEnvLoaded
	StateConfigLoaded
	StateParamsBuilt
	StateConversationBuilt
	StateDispatched
	StateSucceeded
	StateFailed
	StateAborted
)

var stateNames = [...]string{
	StateStart:             "start",
	StateEnvLoaded:         "env_loaded",
	StateConfigLoaded:      "config_loaded",
	StateParamsBuilt:       "params_built",
	StateConversationBuilt: "conversation_built",
	StateDispatched:        "dispatched",
	StateSucceeded:         "succeeded",
	StateFailed:            "failed",
	StateAborted:           "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrEmptyResponse matches the outcome error of a strict check whose response
// carried no text.
var ErrEmptyResponse = provider.ErrEmptyResponse

// Outcome is the result of a check.
type Outcome struct {
	State        State
	Err          error
	Model        string
	Params       params.Params
	Conversation conversation.Conversation
	Response     *provider.Response
	Elapsed      time.Duration
}

// OK reports whether the check reached StateSucceeded.
func (o *Outcome) OK() bool { return o.State == StateSucceeded }

// Runner holds the dependencies of a check. Zero-value function fields fall
// back to the real implementations.
type Runner struct {
	Vendor vendor.Vendor

	Getenv          func(string) string
	LoadProvider    func(path string) (*config.ProviderConfig, error)
	LoadPersonality func(path string) (*config.PersonalityConfig, error)
	Connect         vendor.Constructor

	Reporter *report.Reporter
	Logger   *slog.Logger
	Trace    *trace.CheckTrace

	// Tracer receives one span per check. The global provider is used when
	// nil, which is a no-op unless the program installs one.
	Tracer oteltrace.Tracer

	ProviderPath    string
	PersonalityPath string

	// Model and BaseURL override the provider config when non-empty.
	Model   string
	BaseURL string
	Options []provider.Option

	// Strict turns an empty response into a failure.
	Strict bool
}

func (r *Runner) defaults() {
	if r.LoadProvider == nil {
		r.LoadProvider = config.LoadProvider
	}
	if r.LoadPersonality == nil {
		r.LoadPersonality = config.LoadPersonality
	}
	if r.Connect == nil {
		r.Connect = r.Vendor.New
	}
	if r.Reporter == nil {
		r.Reporter = report.New(io.Discard, false)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.Tracer == nil {
		r.Tracer = otel.Tracer(instrumentationName)
	}
}

func (r *Runner) startSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	return r.Tracer.Start(ctx, name, oteltrace.WithAttributes(
		attribute.String("llmcheck.vendor", r.Vendor.Name),
	))
}

func endSpan(span oteltrace.Span, o *Outcome) {
	span.SetAttributes(
		attribute.String("llmcheck.state", o.State.String()),
		attribute.String("llmcheck.model", o.Model),
	)
	if o.Response != nil {
		span.SetAttributes(
			attribute.Int("llmcheck.input_tokens", o.Response.Usage.InputTokens),
			attribute.Int("llmcheck.output_tokens", o.Response.Usage.OutputTokens),
		)
	}
	if o.Err != nil {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, string(report.Classify(o.Err)))
	}
	span.End()
}

func (r *Runner) enter(o *Outcome, s State) {
	o.State = s
	r.Logger.Debug("check state", "vendor", r.Vendor.Name, "state", s.String())
	if r.Trace != nil {
		r.Trace.Enter(s.String())
	}
}

func (r *Runner) finish(o *Outcome, s State, err error) *Outcome {
	r.enter(o, s)
	o.Err = err
	if r.Trace != nil {
		r.Trace.Finish(err)
	}
	return o
}

// Plan runs the check up to StateConversationBuilt and prints what would be
// sent. No client is created and no request is made.
func (r *Runner) Plan(ctx context.Context) *Outcome {
	r.defaults()
	ctx, span := r.startSpan(ctx, "check.Plan")
	o, _, _ := r.prepare(ctx)
	if o.State == StateConversationBuilt {
		r.Reporter.Pending(o.Conversation.Last().Content)
		if r.Trace != nil {
			r.Trace.Finish(nil)
		}
	}
	endSpan(span, o)
	return o
}

// Run performs the check. It never panics on vendor or config failures:
// every failure is reported and returned in the Outcome.
func (r *Runner) Run(ctx context.Context) *Outcome {
	r.defaults()
	ctx, span := r.startSpan(ctx, "check.Run")
	o := r.run(ctx)
	endSpan(span, o)
	return o
}

func (r *Runner) run(ctx context.Context) *Outcome {
	o, apiKey, baseURL := r.prepare(ctx)
	if o.State != StateConversationBuilt {
		return o
	}

	opts := append([]provider.Option{provider.WithBaseURL(baseURL)}, r.Options...)
	client, err := r.Connect(apiKey, opts...)
	if err != nil {
		r.Logger.Error("client init failed", "vendor", r.Vendor.Name, "error", err)
		r.Reporter.Failure(r.Vendor.DisplayName, err)
		return r.finish(o, StateFailed, err)
	}

	req := &provider.Request{
		Model:    o.Model,
		System:   o.Conversation.System,
		Messages: toMessages(o.Conversation.Turns),
		Params:   o.Params,
	}
	r.enter(o, StateDispatched)
	r.Reporter.Dispatch(r.Vendor.DisplayName, o.Conversation.Last().Content)

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	o.Elapsed = time.Since(start)
	if err != nil {
		r.Logger.Error("request failed", "vendor", r.Vendor.Name, "model", o.Model, "error", err, "elapsed", o.Elapsed)
		r.Reporter.Failure(r.Vendor.DisplayName, err)
		return r.finish(o, StateFailed, err)
	}
	if resp == nil {
		resp = &provider.Response{}
	}
	o.Response = resp
	if r.Trace != nil {
		r.Trace.AddUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	r.Logger.Info("response received",
		"vendor", r.Vendor.Name,
		"model", resp.Model,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed", o.Elapsed,
	)

	if !resp.HasText() {
		r.Logger.Warn("response has no text content", "vendor", r.Vendor.Name)
		if r.Strict {
			err := &provider.EmptyResponseError{Provider: r.Vendor.Name, Response: resp}
			r.Reporter.Failure(r.Vendor.DisplayName, err)
			return r.finish(o, StateFailed, err)
		}
	}
	r.Reporter.Success(r.Vendor.DisplayName, resp, o.Elapsed)
	return r.finish(o, StateSucceeded, nil)
}

// prepare walks the check from StateStart to StateConversationBuilt. On
// early exit the returned Outcome is in StateAborted.
func (r *Runner) prepare(ctx context.Context) (*Outcome, string, string) {
	o := &Outcome{}
	r.enter(o, StateStart)

	if err := ctx.Err(); err != nil {
		r.Reporter.Abort(err)
		return r.finish(o, StateAborted, err), "", ""
	}

	apiKey, err := config.ResolveAPIKey(r.Getenv, r.Vendor.APIKeyEnv)
	if err != nil {
		r.Logger.Error("missing credential", "vendor", r.Vendor.Name, "env", r.Vendor.APIKeyEnv)
		r.Reporter.Abort(err)
		return r.finish(o, StateAborted, err), "", ""
	}
	r.enter(o, StateEnvLoaded)

	// Both files are loaded so every problem is reported in one run.
	provCfg, provErr := r.LoadProvider(r.ProviderPath)
	persCfg, persErr := r.LoadPersonality(r.PersonalityPath)
	if err := errors.Join(provErr, persErr); err != nil {
		r.Logger.Error("config load failed", "vendor", r.Vendor.Name, "error", err)
		r.Reporter.Abort(err)
		return r.finish(o, StateAborted, err), "", ""
	}
	if provCfg == nil {
		provCfg = &config.ProviderConfig{}
	}
	r.enter(o, StateConfigLoaded)

	o.Params = params.Map(provCfg.DefaultParameters, r.Vendor.Params)
	if unused := params.Unused(provCfg.DefaultParameters, r.Vendor.Params); len(unused) > 0 {
		r.Logger.Debug("ignoring unsupported parameters", "vendor", r.Vendor.Name, "keys", unused)
	}
	r.enter(o, StateParamsBuilt)

	o.Conversation = conversation.Build(persCfg.Prompt(), r.Vendor.Placement, r.Vendor.Script)
	r.enter(o, StateConversationBuilt)

	o.Model = r.Model
	if o.Model == "" {
		o.Model = provCfg.Model(r.Vendor.DefaultModel)
	}
	if r.Trace != nil {
		r.Trace.Model = o.Model
	}
	baseURL := r.BaseURL
	if baseURL == "" {
		baseURL = provCfg.BaseURL
	}

	r.Reporter.Plan(o.Model, persCfg.Prompt(), o.Params)
	return o, apiKey, baseURL
}

func toMessages(turns []conversation.Turn) []provider.Message {
	msgs := make([]provider.Message, len(turns))
	for i, t := range turns {
		msgs[i] = provider.Message{Role: string(t.Role), Content: t.Content}
	}
	return msgs
}
