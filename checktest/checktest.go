package checktest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jdgilhuly/llmcheck/pkg/check"
	"github.com/jdgilhuly/llmcheck/pkg/config"
	"github.com/jdgilhuly/llmcheck/pkg/provider"
	"github.com/jdgilhuly/llmcheck/pkg/report"
	"github.com/jdgilhuly/llmcheck/pkg/trace"
	"github.com/jdgilhuly/llmcheck/pkg/vendor"
)

// DefaultPersonalityYAML is the personality config written when none is given.
const DefaultPersonalityYAML = "name: test\nsystem_prompt: You are a helpful assistant that keeps answers short.\n"

// Option configures a Harness.
type Option func(*Harness)

// WithProvider sets the client returned by the harness's Connect.
func WithProvider(p provider.Provider) Option {
	return func(h *Harness) {
		h.provider = p
	}
}

// WithEnv sets the environment seen by the check. By default the vendor's
// API key variable is set to "test-key".
func WithEnv(env map[string]string) Option {
	return func(h *Harness) {
		h.env = env
	}
}

// WithProviderYAML writes content as the provider config file.
func WithProviderYAML(content string) Option {
	return func(h *Harness) {
		h.providerYAML = &content
	}
}

// WithPersonalityYAML writes content as the personality config file.
func WithPersonalityYAML(content string) Option {
	return func(h *Harness) {
		h.personalityYAML = &content
	}
}

// WithoutProviderFile leaves the provider config file missing.
func WithoutProviderFile() Option {
	return func(h *Harness) {
		h.providerYAML = nil
	}
}

// WithStrict makes empty responses fail.
func WithStrict() Option {
	return func(h *Harness) {
		h.strict = true
	}
}

// WithTimeout sets the per-run timeout. Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(h *Harness) {
		h.timeout = d
	}
}

// Harness runs checks for one vendor against temporary config files.
type Harness struct {
	t      *testing.T
	vendor vendor.Vendor

	provider        provider.Provider
	env             map[string]string
	providerYAML    *string
	personalityYAML *string
	strict          bool
	timeout         time.Duration

	dir string

	providerLoads    int
	personalityLoads int
	connects         int
}

// New creates a Harness for the named vendor. It fails the test if the
// vendor is unknown.
func New(t *testing.T, vendorName string, opts ...Option) *Harness {
	t.Helper()
	v, ok := vendor.Lookup(vendorName)
	if !ok {
		t.Fatalf("checktest: unknown vendor %q", vendorName)
	}
	defaultProvider := "default_model: " + v.DefaultModel + "\ndefault_parameters:\n  temperature: 0.7\n"
	defaultPersonality := DefaultPersonalityYAML
	h := &Harness{
		t:               t,
		vendor:          v,
		provider:        NewFakeProvider(provider.Response{Content: "Hello! I'm doing well.", StopReason: "end_turn"}),
		env:             map[string]string{v.APIKeyEnv: "test-key"},
		providerYAML:    &defaultProvider,
		personalityYAML: &defaultPersonality,
		timeout:         10 * time.Second,
		dir:             t.TempDir(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProviderPath is where the provider config is written.
func (h *Harness) ProviderPath() string {
	return filepath.Join(h.dir, "providers", h.vendor.ConfigFile())
}

// PersonalityPath is where the personality config is written.
func (h *Harness) PersonalityPath() string {
	return filepath.Join(h.dir, "personalities", "test_personality.yaml")
}

func (h *Harness) writeFiles() {
	h.t.Helper()
	write := func(path string, content *string) {
		if content == nil {
			return
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			h.t.Fatalf("checktest: %v", err)
		}
		if err := os.WriteFile(path, []byte(*content), 0o644); err != nil {
			h.t.Fatalf("checktest: %v", err)
		}
	}
	write(h.ProviderPath(), h.providerYAML)
	write(h.PersonalityPath(), h.personalityYAML)
}

// Runner returns a check.Runner wired to the harness's files, environment
// and counting dependencies.
func (h *Harness) Runner(out *bytes.Buffer) *check.Runner {
	h.t.Helper()
	h.writeFiles()
	return &check.Runner{
		Vendor: h.vendor,
		Getenv: func(k string) string { return h.env[k] },
		LoadProvider: func(path string) (*config.ProviderConfig, error) {
			h.providerLoads++
			return config.LoadProvider(path)
		},
		LoadPersonality: func(path string) (*config.PersonalityConfig, error) {
			h.personalityLoads++
			return config.LoadPersonality(path)
		},
		Connect: func(apiKey string, opts ...provider.Option) (provider.Provider, error) {
			h.connects++
			return h.provider, nil
		},
		Reporter:        report.New(out, false),
		Trace:           trace.New(h.vendor.Name),
		ProviderPath:    h.ProviderPath(),
		PersonalityPath: h.PersonalityPath(),
		Strict:          h.strict,
	}
}

// Run executes one check and returns its result.
func (h *Harness) Run() *Result {
	h.t.Helper()
	var out bytes.Buffer
	r := h.Runner(&out)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	o := r.Run(ctx)
	return &Result{t: h.t, Outcome: o, Output: out.String(), Trace: r.Trace, harness: h}
}

// Result captures a finished check.
type Result struct {
	t       *testing.T
	harness *Harness

	Outcome *check.Outcome
	Output  string
	Trace   *trace.CheckTrace
}

// ConfigLoads returns how many config files the check tried to load.
func (h *Harness) ConfigLoads() int { return h.providerLoads + h.personalityLoads }

// Connects returns how many clients the check created.
func (h *Harness) Connects() int { return h.connects }
