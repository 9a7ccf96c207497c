package clientloop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller()
	if p.MinInterval != DefaultMinInterval || p.MaxInterval != DefaultMaxInterval || p.Window != DefaultWindow {
		t.Errorf("NewPoller() = %+v, want spec defaults", p)
	}
}

func TestRun_ReturnsNilOnceCheckReportsDone(t *testing.T) {
	p := Poller{MinInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Window: time.Second}
	calls := 0
	err := p.Run(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("check called %d times, want 3", calls)
	}
}

func TestRun_TimesOutAfterWindow(t *testing.T) {
	p := Poller{MinInterval: 2 * time.Millisecond, MaxInterval: 4 * time.Millisecond, Window: 10 * time.Millisecond}
	err := p.Run(context.Background(), func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if _, ok := err.(TimedOutFallback); !ok {
		t.Fatalf("Run() error = %v (%T), want TimedOutFallback", err, err)
	}
}

func TestRun_ReturnsContextErrorOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Poller{MinInterval: 50 * time.Millisecond, MaxInterval: 100 * time.Millisecond, Window: time.Minute}

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	err := p.Run(ctx, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_GrowsIntervalOnlyOnError(t *testing.T) {
	p := Poller{MinInterval: time.Millisecond, MaxInterval: 20 * time.Millisecond, Window: time.Second}
	calls := 0
	_ = p.Run(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		if calls >= 5 {
			return true, nil
		}
		return false, errors.New("transient")
	})
	if calls != 5 {
		t.Fatalf("expected 5 calls, got %d", calls)
	}
}

func TestTimedOutFallback_ErrorMessage(t *testing.T) {
	var err error = TimedOutFallback{}
	if err.Error() == "" {
		t.Error("expected a non-empty error message")
	}
}
