package runlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesRunLayout(t *testing.T) {
	base := t.TempDir()
	run, err := Open(base, "run-1")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer run.Close()

	if run.Dir() != filepath.Join(base, "run-1") {
		t.Errorf("Dir() = %q, want %q", run.Dir(), filepath.Join(base, "run-1"))
	}
	if _, err := os.Stat(filepath.Join(base, "run-1", "shots")); err != nil {
		t.Errorf("expected shots directory to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "run-1", "events.jsonl")); err != nil {
		t.Errorf("expected events.jsonl to exist: %v", err)
	}
}

func TestAppend_WritesOneLinePerEvent(t *testing.T) {
	base := t.TempDir()
	run, err := Open(base, "run-2")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer run.Close()

	if err := run.Append(Event{Kind: "action_attempt", Action: "click", Attempt: 1}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := run.Append(Event{Kind: "warning", Message: "retrying"}); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	f, err := os.Open(filepath.Join(base, "run-2", "events.jsonl"))
	if err != nil {
		t.Fatalf("open events.jsonl: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[0]), &e); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if e.Kind != "action_attempt" || e.Action != "click" || e.Attempt != 1 {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestScreenshot_WritesNumberedFiles(t *testing.T) {
	base := t.TempDir()
	run, err := Open(base, "run-3")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer run.Close()

	path1, err := run.Screenshot([]byte("first"))
	if err != nil {
		t.Fatalf("Screenshot() error: %v", err)
	}
	path2, err := run.Screenshot([]byte("second"))
	if err != nil {
		t.Fatalf("Screenshot() error: %v", err)
	}
	if path1 == path2 {
		t.Errorf("expected distinct screenshot paths, got %q twice", path1)
	}

	data, err := os.ReadFile(path1)
	if err != nil {
		t.Fatalf("read screenshot: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("screenshot contents = %q, want %q", data, "first")
	}
}

func TestWriteErrorReport_PersistsJSON(t *testing.T) {
	base := t.TempDir()
	run, err := Open(base, "run-4")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer run.Close()

	err = run.WriteErrorReport(ErrorReport{
		TaskID:        "task-1",
		CorrelationID: "corr-1",
		ErrorCode:     "ELEMENT_NOT_INTERACTABLE",
		Message:       "element was covered",
	})
	if err != nil {
		t.Fatalf("WriteErrorReport() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, "run-4", "error_report.json"))
	if err != nil {
		t.Fatalf("read error_report.json: %v", err)
	}
	var report ErrorReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal error report: %v", err)
	}
	if report.TaskID != "task-1" || report.ErrorCode != "ELEMENT_NOT_INTERACTABLE" {
		t.Errorf("unexpected error report: %+v", report)
	}
}

func TestOpen_RejectsUnwritableBase(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Open(blocker, "run-5"); err == nil {
		t.Error("expected Open() to fail when base path is a regular file, got nil error")
	}
}
