package resilience

import (
	"testing"
	"time"
)

func TestComputeBackoffWithRand(t *testing.T) {
	tests := []struct {
		name     string
		policy   BackoffPolicy
		attempt  int
		rnd      float64
		expected time.Duration
	}{
		{
			name:     "first attempt no jitter",
			policy:   BackoffPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:  1,
			rnd:      0.5,
			expected: 100 * time.Millisecond,
		},
		{
			name:     "second attempt doubles",
			policy:   BackoffPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:  2,
			rnd:      0.5,
			expected: 200 * time.Millisecond,
		},
		{
			name:     "capped at max",
			policy:   BackoffPolicy{InitialMs: 1000, MaxMs: 1500, Factor: 10, Jitter: 0},
			attempt:  5,
			rnd:      0.9,
			expected: 1500 * time.Millisecond,
		},
		{
			name:     "jitter adds proportionally",
			policy:   BackoffPolicy{InitialMs: 100, MaxMs: 10000, Factor: 1, Jitter: 1.0},
			attempt:  1,
			rnd:      1.0,
			expected: 200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBackoffWithRand(tt.policy, tt.attempt, tt.rnd)
			if got != tt.expected {
				t.Errorf("ComputeBackoffWithRand() = %v, want %v", got, tt.expected)
			}
		})
	}
}
