// Package checktest provides test helpers for connectivity checks: a fake
// provider that records requests, and a Harness that wires a check.Runner to
// temporary config files, a fixed environment and call-counting loaders so a
// test can assert on output, final state and side effects.
//
// Example usage:
//
//	func TestClaude(t *testing.T) {
//	    fp := checktest.NewFakeProvider(provider.Response{Content: "Hi!"})
//	    h := checktest.New(t, "anthropic", checktest.WithProvider(fp))
//	    res := h.Run()
//	    res.AssertState(check.StateSucceeded)
//	    res.AssertOutputContains("Connectivity check succeeded!")
//	}
package checktest
