package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	cases := map[string]bool{
		"completed": true,
		"failed":    true,
		"cancelled": true,
		"pending":   false,
		"running":   false,
	}
	for state, want := range cases {
		if got := isTerminal(state); got != want {
			t.Errorf("isTerminal(%q) = %v, want %v", state, got, want)
		}
	}
}

func TestRunCommand_NoAsyncExecutionSkipsPolling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(executeResponse{Explanation: "already satisfied", Complete: true})
	}))
	defer srv.Close()

	var out bytes.Buffer
	if err := runCommand(context.Background(), &out, srv.URL, "go home", ""); err != nil {
		t.Fatalf("runCommand() error: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("already satisfied")) {
		t.Errorf("output = %q, want it to contain the explanation", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte("no background execution")) {
		t.Errorf("output = %q, want a note that nothing was submitted", out.String())
	}
}

func TestRunCommand_PollsUntilTerminal(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/execute", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(executeResponse{Explanation: "working on it", TaskID: "task-1", AsyncExecution: true})
	})
	mux.HandleFunc("/status/task-1", func(w http.ResponseWriter, r *http.Request) {
		calls++
		state := "running"
		if calls >= 2 {
			state = "completed"
		}
		json.NewEncoder(w).Encode(statusResponse{TaskID: "task-1", State: state})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	if err := runCommand(context.Background(), &out, srv.URL, "click submit", ""); err != nil {
		t.Fatalf("runCommand() error: %v", err)
	}
	if calls < 2 {
		t.Errorf("expected at least 2 status polls, got %d", calls)
	}
	if !bytes.Contains(out.Bytes(), []byte("state=completed")) {
		t.Errorf("output = %q, want final completed state", out.String())
	}
}
