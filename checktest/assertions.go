package checktest

import (
	"strings"

	"github.com/jdgilhuly/llmcheck/pkg/check"
)

// AssertState asserts the check ended in want.
func (r *Result) AssertState(want check.State) {
	r.t.Helper()
	if r.Outcome.State != want {
		r.t.Errorf("final state = %s, want %s (err: %v)", r.Outcome.State, want, r.Outcome.Err)
	}
}

// AssertOutputContains asserts that the printed output contains substr.
func (r *Result) AssertOutputContains(substr string) {
	r.t.Helper()
	if !strings.Contains(r.Output, substr) {
		r.t.Errorf("output does not contain %q\n  output: %s", substr, truncate(r.Output, 400))
	}
}

// AssertOutputNotContains asserts that the printed output lacks substr.
func (r *Result) AssertOutputNotContains(substr string) {
	r.t.Helper()
	if strings.Contains(r.Output, substr) {
		r.t.Errorf("output unexpectedly contains %q\n  output: %s", substr, truncate(r.Output, 400))
	}
}

// AssertNoDispatch asserts that no client was created, so no request could
// have been sent.
func (r *Result) AssertNoDispatch() {
	r.t.Helper()
	if n := r.harness.Connects(); n != 0 {
		r.t.Errorf("expected no client to be created, got %d", n)
	}
	if fp, ok := r.harness.provider.(*FakeProvider); ok && fp.Calls() != 0 {
		r.t.Errorf("expected no request to be sent, got %d", fp.Calls())
	}
}

// AssertConfigLoads asserts how many config files the check tried to load.
func (r *Result) AssertConfigLoads(want int) {
	r.t.Helper()
	if got := r.harness.ConfigLoads(); got != want {
		r.t.Errorf("config loads = %d, want %d", got, want)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
