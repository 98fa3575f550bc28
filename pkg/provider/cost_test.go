package provider

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage Usage
		want  float64
	}{
		{
			name:  "claude-3-sonnet",
			model: "claude-3-sonnet-20240229",
			usage: Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			want:  18.0, // 3 + 15
		},
		{
			name:  "claude-3-haiku",
			model: "claude-3-haiku-20240307",
			usage: Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			want:  1.5, // 0.25 + 1.25
		},
		{
			name:  "gemini-1.5-pro-latest",
			model: "gemini-1.5-pro-latest",
			usage: Usage{InputTokens: 200_000, OutputTokens: 100_000},
			want:  0.75, // (0.2 * 1.25) + (0.1 * 5)
		},
		{
			name:  "gpt-4o-mini",
			model: "gpt-4o-mini",
			usage: Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			want:  0.75, // 0.15 + 0.60
		},
		{
			name:  "unknown model",
			model: "unknown-model-xyz",
			usage: Usage{InputTokens: 1000, OutputTokens: 1000},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateCost(tt.model, tt.usage)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("EstimateCost(%q, %+v) = %f, want %f", tt.model, tt.usage, got, tt.want)
			}
		})
	}
}

func TestKnownPricing(t *testing.T) {
	assert.True(t, KnownPricing("gemini-2.0-flash"))
	assert.False(t, KnownPricing("mystery"))
}
