// Package httpapi exposes the agent's HTTP surface over plain net/http: a bare http.ServeMux,
// one handler function per route, Prometheus metrics mounted at /metrics, and a panic-recovery
// wrapper enforcing the "never emit a 5xx" contract.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/executor"
	"github.com/kestrelbrowse/webagent/internal/observability"
	"github.com/kestrelbrowse/webagent/internal/orchestrator"
	"github.com/kestrelbrowse/webagent/internal/tasks"
)

// Dependencies bundles the collaborators the HTTP surface drives.
type Dependencies struct {
	Executor     *executor.Executor
	Orchestrator *orchestrator.Orchestrator
	Tasks        *tasks.Manager
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	QueueDepth   func() int
}

// Server wires the agent's HTTP endpoints onto a single *http.Server.
type Server struct {
	deps   Dependencies
	mux    *http.ServeMux
	http   *http.Server
	logger *observability.Logger
}

// New builds a Server ready to Start.
func New(addr string, deps Dependencies) *Server {
	s := &Server{deps: deps, logger: deps.Logger}
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.withRecovery(s.handleHealthz))
	mux.HandleFunc("/execute-dsl", s.withRecovery(s.handleExecuteDSL))
	mux.HandleFunc("/execute", s.withRecovery(s.handleExecute))
	mux.HandleFunc("/status/", s.withRecovery(s.handleStatus))
	mux.HandleFunc("/cancel/", s.withRecovery(s.handleCancel))
	mux.HandleFunc("/source", s.withRecovery(s.handleSource))
	mux.HandleFunc("/screenshot", s.withRecovery(s.handleScreenshot))
	mux.HandleFunc("/url", s.withRecovery(s.handleURL))
	mux.HandleFunc("/catalog", s.withRecovery(s.handleCatalog))
	mux.HandleFunc("/reset", s.withRecovery(s.handleReset))

	s.mux = mux
	s.http = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Start begins serving in the background; Shutdown stops it.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen on %s: %w", s.http.Addr, err)
	}
	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Error(context.Background(), "http server error", "error", err.Error())
			}
		}
	}()
	if s.logger != nil {
		s.logger.Info(context.Background(), "http server listening", "addr", s.http.Addr)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// withRecovery enforces that the top-level HTTP endpoint never emits a 5xx: any panic that
// escapes a handler is converted into a 200 OK carrying an ERROR warning and a fresh
// correlation id, matching the same contract ordinary action failures already get.
func (s *Server) withRecovery(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := uuid.New().String()
		ctx := observability.WithCorrelationID(r.Context(), correlationID)
		r = r.WithContext(ctx)

		defer func() {
			if rec := recover(); rec != nil {
				if s.logger != nil {
					s.logger.Error(ctx, "panic recovered in http handler", "panic", fmt.Sprintf("%v", rec), "path", r.URL.Path)
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"success":        false,
					"warnings":       []string{fmt.Sprintf("ERROR:auto:internal error (correlation_id=%s)", correlationID)},
					"correlation_id": correlationID,
				})
			}
		}()
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	queueDepth := 0
	if s.deps.QueueDepth != nil {
		queueDepth = s.deps.QueueDepth()
	}
	workers := "ok"
	browser := "ok"
	if s.deps.Executor == nil {
		browser = "unavailable"
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"components": map[string]any{
			"browser":     browser,
			"workers":     workers,
			"queue_depth": queueDepth,
		},
	})
}

// handleExecuteDSL implements POST /execute-dsl: accepts either
// {actions, expected_catalog_version} or {plan:{...}} and runs it synchronously through the
// executor.
func (s *Server) handleExecuteDSL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:method not allowed"}})
		return
	}

	var envelope struct {
		Actions                json.RawMessage `json:"actions"`
		ExpectedCatalogVersion string          `json:"expected_catalog_version"`
		Plan                   json.RawMessage `json:"plan"`
	}
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:failed to read request body"}})
		return
	}
	if err := validateExecuteDSLBody(body); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:request schema validation failed: " + err.Error()}})
		return
	}

	var plan dsl.Plan
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Plan) > 0 {
		if perr := json.Unmarshal(envelope.Plan, &plan); perr != nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:invalid plan: " + perr.Error()}})
			return
		}
	} else {
		p, derr := dsl.DecodePlan(body)
		if derr != nil {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:invalid plan: " + derr.Error()}})
			return
		}
		plan = p
	}

	result, err := s.deps.Executor.Execute(r.Context(), plan)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:" + err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExecute implements POST /execute: the orchestrator endpoint.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:method not allowed"}})
		return
	}

	var req struct {
		Command    string `json:"command"`
		HTML       string `json:"html"`
		Screenshot string `json:"screenshot"`
		Model      string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:invalid request body"}})
		return
	}

	var shot []byte
	if req.Screenshot != "" {
		if decoded, err := base64.StdEncoding.DecodeString(req.Screenshot); err == nil {
			shot = decoded
		}
	}

	resp, err := s.deps.Orchestrator.Execute(r.Context(), orchestrator.CommandRequest{
		Command: req.Command, HTML: req.HTML, Screenshot: shot, Model: req.Model,
	})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "warnings": []string{"ERROR:auto:" + err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/status/")
	if id == "" {
		writeJSON(w, http.StatusOK, map[string]any{"error": "missing task_id"})
		return
	}
	t, ok := s.deps.Tasks.Status(id)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"task_id": id, "state": "unknown_task"})
		return
	}
	elapsedMS := int64(0)
	if t.FinishedAt != nil {
		elapsedMS = t.FinishedAt.Sub(t.CreatedAt).Milliseconds()
	} else {
		elapsedMS = time.Since(t.CreatedAt).Milliseconds()
	}
	resp := map[string]any{"task_id": t.ID, "state": t.State, "elapsed_ms": elapsedMS}
	if t.Result != nil {
		resp["result"] = t.Result
	}
	if t.Error != "" {
		resp["error"] = t.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/cancel/")
	status := s.deps.Tasks.Cancel(id)
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	html, err := s.deps.Executor.CurrentHTML(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(""))
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	png, err := s.deps.Executor.CurrentScreenshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"image": ""})
		return
	}
	encoded := base64.StdEncoding.EncodeToString(png)
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, map[string]any{"image": encoded})
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(encoded))
}

func (s *Server) handleURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.deps.Executor.CurrentURL(r.Context())
	if err != nil {
		url = ""
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(url))
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.deps.Executor.CurrentCatalog()
	writeJSON(w, http.StatusOK, map[string]any{"version": cat.Version, "entries": cat.Entries})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	s.deps.Orchestrator.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
