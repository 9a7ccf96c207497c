package resilience

import (
	"context"
	"errors"
	"testing"
)

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 1, MaxMs: 2, Factor: 1, Jitter: 0}
	calls := 0
	res := RetryWithBackoff(context.Background(), policy, 3, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 42, nil
	})

	if !res.Succeeded || res.Value != 42 {
		t.Fatalf("expected success with value 42, got %+v", res)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if len(res.Attempts) != 1 {
		t.Fatalf("expected 1 attempt outcome, got %d", len(res.Attempts))
	}
}

func TestRetryWithBackoff_RetriesRetryableThenSucceeds(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 1, MaxMs: 2, Factor: 1, Jitter: 0}
	calls := 0
	res := RetryWithBackoff(context.Background(), policy, 4, func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", NewActionError("test", KindTimeout, errors.New("timed out"))
		}
		return "ok", nil
	})

	if !res.Succeeded || res.Value != "ok" {
		t.Fatalf("expected eventual success, got %+v", res)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("expected 2 attempt outcomes (1 fail + 1 success), got %d", len(res.Attempts))
	}
	if res.Attempts[0].Err == nil {
		t.Fatalf("expected first attempt to record an error")
	}
}

func TestRetryWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 1, MaxMs: 2, Factor: 1, Jitter: 0}
	calls := 0
	res := RetryWithBackoff(context.Background(), policy, 5, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, NewActionError("test", KindValidation, errors.New("bad input"))
	})

	if res.Succeeded {
		t.Fatalf("expected failure for non-retryable error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestRetryWithBackoff_ExhaustsAllAttempts(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 1, MaxMs: 2, Factor: 1, Jitter: 0}
	calls := 0
	res := RetryWithBackoff(context.Background(), policy, 3, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, NewActionError("test", KindElementNotFound, errors.New("not found"))
	})

	if res.Succeeded {
		t.Fatalf("expected failure after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(res.Attempts) != 3 {
		t.Fatalf("expected 3 attempt outcomes, got %d", len(res.Attempts))
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	policy := BackoffPolicy{InitialMs: 1, MaxMs: 2, Factor: 1, Jitter: 0}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := RetryWithBackoff(ctx, policy, 3, func(ctx context.Context, attempt int) (int, error) {
		return 0, nil
	})

	if res.Succeeded {
		t.Fatalf("expected failure when context already cancelled")
	}
}
