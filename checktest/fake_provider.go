package checktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jdgilhuly/llmcheck/pkg/provider"
)

// FakeProvider returns pre-configured responses in sequence and records
// every request it receives. It is safe for concurrent use.
type FakeProvider struct {
	name      string
	responses []provider.Response
	err       error

	mu       sync.Mutex
	requests []*provider.Request
}

// NewFakeProvider creates a FakeProvider that returns the given responses in
// order. Once all responses are consumed, subsequent calls return an error.
func NewFakeProvider(responses ...provider.Response) *FakeProvider {
	return &FakeProvider{name: "fake", responses: responses}
}

// NewFailingProvider creates a FakeProvider whose every call returns err.
func NewFailingProvider(err error) *FakeProvider {
	return &FakeProvider{name: "fake", err: err}
}

// Complete records req and returns the next response.
func (f *FakeProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		return nil, fmt.Errorf("fake provider: no more responses (consumed %d/%d)", idx, len(f.responses))
	}
	resp := f.responses[idx]
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// Name returns "fake".
func (f *FakeProvider) Name() string { return f.name }

// Calls returns how many times Complete was called.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns the recorded requests in call order.
func (f *FakeProvider) Requests() []*provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*provider.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (f *FakeProvider) LastRequest() *provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}
