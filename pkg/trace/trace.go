package trace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CheckTrace captures one connectivity check: the states it passed through,
// token usage, timing, and the final error if any.
type CheckTrace struct {
	ID          string        `json:"id"`
	Vendor      string        `json:"vendor"`
	Model       string        `json:"model,omitempty"`
	Transitions []Transition  `json:"transitions"`
	Usage       TokenUsage    `json:"usage"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`

	now func() time.Time
}

// Transition records entering a state.
type Transition struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
}

// TokenUsage tracks token consumption of the dispatched request.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// New creates a new CheckTrace for vendor and marks the start time.
func New(vendor string) *CheckTrace {
	return newWithClock(vendor, time.Now)
}

func newWithClock(vendor string, now func() time.Time) *CheckTrace {
	return &CheckTrace{
		ID:        uuid.New().String(),
		Vendor:    vendor,
		StartTime: now(),
		now:       now,
	}
}

// Enter records a transition into state.
func (t *CheckTrace) Enter(state string) {
	t.Transitions = append(t.Transitions, Transition{State: state, At: t.now()})
}

// States returns the recorded state names in order.
func (t *CheckTrace) States() []string {
	out := make([]string, len(t.Transitions))
	for i, tr := range t.Transitions {
		out[i] = tr.State
	}
	return out
}

// AddUsage accumulates token usage from an API call.
func (t *CheckTrace) AddUsage(input, output int) {
	t.Usage.InputTokens += input
	t.Usage.OutputTokens += output
	t.Usage.TotalTokens += input + output
}

// Finish marks the trace as complete and records the end time, duration and
// err when non-nil.
func (t *CheckTrace) Finish(err error) {
	t.EndTime = t.now()
	t.Duration = t.EndTime.Sub(t.StartTime)
	if err != nil {
		t.Error = err.Error()
	}
}

// JSON serializes the trace to indented JSON bytes.
func (t *CheckTrace) JSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
