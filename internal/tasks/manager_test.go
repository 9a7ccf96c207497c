package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{Workers: 2, GracePeriod: 50 * time.Millisecond, PoolSize: 4, LowWatermark: 1})
	t.Cleanup(m.Stop)
	return m
}

func waitTerminal(t *testing.T, m *Manager, id string) Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, ok := m.Status(id)
		if !ok {
			t.Fatalf("task %s disappeared before completion", id)
		}
		if snap.State.IsTerminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", id)
	return Task{}
}

func TestManager_SubmitAndCompletes(t *testing.T) {
	m := newTestManager(t)

	task := m.Submit(context.Background(), func(ctx context.Context) (Result, error) {
		return Result{HTML: "<html>ok</html>"}, nil
	})

	snap := waitTerminal(t, m, task.ID)
	if snap.State != StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	if snap.Result == nil || snap.Result.HTML != "<html>ok</html>" {
		t.Fatalf("unexpected result: %+v", snap.Result)
	}
}

func TestManager_SubmitPropagatesFailure(t *testing.T) {
	m := newTestManager(t)

	task := m.Submit(context.Background(), func(ctx context.Context) (Result, error) {
		return Result{}, errors.New("navigation failed")
	})

	snap := waitTerminal(t, m, task.ID)
	if snap.State != StateFailed {
		t.Fatalf("expected failed, got %s", snap.State)
	}
	if snap.Error == "" {
		t.Fatalf("expected error message to be set")
	}
}

func TestManager_CancelStopsRunningTask(t *testing.T) {
	m := newTestManager(t)

	started := make(chan struct{})
	task := m.Submit(context.Background(), func(ctx context.Context) (Result, error) {
		close(started)
		<-ctx.Done()
		return Result{}, ctx.Err()
	})

	<-started
	status := m.Cancel(task.ID)
	if status != "requested" {
		t.Fatalf("expected requested, got %q", status)
	}

	snap := waitTerminal(t, m, task.ID)
	if snap.State != StateCancelled {
		t.Fatalf("expected cancelled, got %s", snap.State)
	}
}

func TestManager_CancelUnknownTask(t *testing.T) {
	m := newTestManager(t)
	if status := m.Cancel("does-not-exist"); status != "unknown_task" {
		t.Fatalf("expected unknown_task, got %q", status)
	}
}

func TestManager_StatusUnknownTask(t *testing.T) {
	m := newTestManager(t)
	if _, ok := m.Status("nope"); ok {
		t.Fatalf("expected ok=false for unknown task")
	}
}

func TestManager_SweepOnceRemovesExpiredTerminalTasks(t *testing.T) {
	m := NewManager(ManagerConfig{Workers: 1, GracePeriod: time.Millisecond, PoolSize: 4, LowWatermark: 1})
	defer m.Stop()

	task := m.Submit(context.Background(), func(ctx context.Context) (Result, error) {
		return Result{}, nil
	})
	waitTerminal(t, m, task.ID)

	removed := m.sweepOnce(time.Now().Add(time.Hour))
	if removed != 1 {
		t.Fatalf("expected 1 task swept, got %d", removed)
	}
	if _, ok := m.Status(task.ID); ok {
		t.Fatalf("expected task to be removed after sweep")
	}
}

func TestManager_SweepOnceLeavesFreshTerminalTasks(t *testing.T) {
	m := NewManager(ManagerConfig{Workers: 1, GracePeriod: time.Hour, PoolSize: 4, LowWatermark: 1})
	defer m.Stop()

	task := m.Submit(context.Background(), func(ctx context.Context) (Result, error) {
		return Result{}, nil
	})
	waitTerminal(t, m, task.ID)

	if removed := m.sweepOnce(time.Now()); removed != 0 {
		t.Fatalf("expected 0 tasks swept, got %d", removed)
	}
	if _, ok := m.Status(task.ID); !ok {
		t.Fatalf("expected task to still be present")
	}
}
