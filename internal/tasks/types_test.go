package tasks

import (
	"errors"
	"testing"
)

func TestTask_CompleteSetsTerminalState(t *testing.T) {
	task := &Task{ID: "t1", State: StatePending}
	task.complete(Result{HTML: "<html></html>"})

	snap := task.Snapshot()
	if snap.State != StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	if snap.FinishedAt == nil {
		t.Fatalf("expected FinishedAt to be set")
	}
	if snap.Result == nil || snap.Result.HTML != "<html></html>" {
		t.Fatalf("expected result to be attached, got %+v", snap.Result)
	}
}

func TestTask_FailSetsErrorAndTerminalState(t *testing.T) {
	task := &Task{ID: "t2", State: StateRunning}
	task.fail(errors.New("boom"))

	snap := task.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("expected failed, got %s", snap.State)
	}
	if snap.Error != "boom" {
		t.Fatalf("expected error message, got %q", snap.Error)
	}
}

func TestTask_MarkCancelledIgnoredOnceTerminal(t *testing.T) {
	task := &Task{ID: "t3", State: StateRunning}
	task.complete(Result{})
	finishedAt := task.Snapshot().FinishedAt

	task.markCancelled()

	snap := task.Snapshot()
	if snap.State != StateCompleted {
		t.Fatalf("expected state to remain completed, got %s", snap.State)
	}
	if snap.FinishedAt != finishedAt {
		t.Fatalf("expected FinishedAt to be unchanged")
	}
}

func TestState_IsTerminal(t *testing.T) {
	cases := map[State]bool{
		StatePending:   false,
		StateRunning:   false,
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	}
	for state, want := range cases {
		if got := state.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", state, got, want)
		}
	}
}
