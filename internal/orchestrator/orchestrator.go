// Package orchestrator implements the web tier behind POST /execute: it turns a
// natural-language command plus conversation history into a planner call, hands the resulting
// plan to the Async Task Manager, and returns the planner's explanation to the caller
// immediately while execution continues in the background.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/executor"
	"github.com/kestrelbrowse/webagent/internal/observability"
	"github.com/kestrelbrowse/webagent/internal/planner"
	"github.com/kestrelbrowse/webagent/internal/runlog"
	"github.com/kestrelbrowse/webagent/internal/tasks"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// MaxHistoryTurns bounds the conversation window handed to the planner on every call rather
// than replaying an unbounded transcript.
const MaxHistoryTurns = 20

// CommandRequest is the decoded body of POST /execute.
type CommandRequest struct {
	Command    string `json:"command"`
	HTML       string `json:"html,omitempty"`
	Screenshot []byte `json:"screenshot,omitempty"`
	Model      string `json:"model,omitempty"`
}

// CommandResponse is the immediate reply to POST /execute: the planner's explanation and
// proposed actions, plus the task id the caller should poll for the actual execution result.
type CommandResponse struct {
	Explanation    string       `json:"explanation"`
	Actions        []dsl.Action `json:"actions"`
	Complete       bool         `json:"complete"`
	TaskID         string       `json:"task_id,omitempty"`
	AsyncExecution bool         `json:"async_execution"`
}

// Dependencies bundles the collaborators Orchestrator drives. Runs may be nil, in which case
// artifact persistence is skipped: it is best-effort debug state, not a load-bearing dependency
// of execution.
type Dependencies struct {
	Planner  planner.Planner
	Executor *executor.Executor
	Tasks    *tasks.Manager
	RunsDir  string
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
}

// Orchestrator is the stateful glue between the planner, the executor, and the task manager.
// It owns the conversation history POST /reset clears; in-flight tasks are never cleared by a
// reset.
type Orchestrator struct {
	planner  planner.Planner
	exec     *executor.Executor
	tasks    *tasks.Manager
	runsDir  string
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer

	mu      sync.Mutex
	history []planner.Turn
}

// New builds an Orchestrator over the given collaborators.
func New(deps Dependencies) *Orchestrator {
	return &Orchestrator{
		planner: deps.Planner,
		exec:    deps.Executor,
		tasks:   deps.Tasks,
		runsDir: deps.RunsDir,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}
}

// Execute runs one turn of the command loop: call the planner, then submit whatever plan it
// returned to the task manager and hand back the planner's explanation right away.
func (o *Orchestrator) Execute(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	if o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "orchestrator.execute")
		defer span.End()
	}

	o.mu.Lock()
	history := append([]planner.Turn(nil), o.history...)
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}
	o.mu.Unlock()

	var catalogText string
	if o.exec != nil {
		catalogText = renderCatalog(o.exec.CurrentCatalog())
	}

	planReq := planner.Request{
		Command:       req.Command,
		History:       history,
		HTML:          req.HTML,
		ScreenshotPNG: req.Screenshot,
		CatalogText:   catalogText,
		Model:         req.Model,
	}

	start := time.Now()
	resp, err := o.planner.Plan(ctx, planReq)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.PlannerRequestDuration.WithLabelValues(o.planner.Name(), req.Model).Observe(time.Since(start).Seconds())
		o.metrics.PlannerRequestCounter.WithLabelValues(o.planner.Name(), req.Model, status).Inc()
	}
	if err != nil {
		if o.logger != nil {
			o.logger.Error(ctx, "planner call failed", "error", err.Error())
		}
		return CommandResponse{}, fmt.Errorf("orchestrator: planner call failed: %w", err)
	}

	o.mu.Lock()
	o.history = append(o.history, planner.Turn{Role: "user", Content: req.Command})
	o.history = append(o.history, planner.Turn{Role: "assistant", Content: resp.Explanation})
	o.mu.Unlock()

	out := CommandResponse{
		Explanation: resp.Explanation,
		Actions:     resp.Plan.Actions,
		Complete:    resp.Complete,
	}

	if len(resp.Plan.Actions) == 0 {
		out.AsyncExecution = false
		return out, nil
	}

	task := o.submitPlan(ctx, resp.Plan)
	out.TaskID = task.ID
	out.AsyncExecution = true
	return out, nil
}

// submitPlan hands plan to the task manager, wiring run-artifact persistence around the
// executor call. The run id is generated up front (rather than reused from the task manager's
// own pre-generated task id) because artifact persistence must be ready to receive events from
// the moment execution starts, before Submit can return the task it created.
func (o *Orchestrator) submitPlan(ctx context.Context, plan dsl.Plan) *tasks.Task {
	runID := uuid.New().String()
	return o.tasks.Submit(ctx, func(taskCtx context.Context) (tasks.Result, error) {
		return o.runPlan(taskCtx, runID, plan)
	})
}

func (o *Orchestrator) runPlan(ctx context.Context, runID string, plan dsl.Plan) (tasks.Result, error) {
	var run *runlog.Run
	if o.runsDir != "" {
		if r, err := runlog.Open(o.runsDir, runID); err == nil {
			run = r
			defer run.Close()
		} else if o.logger != nil {
			o.logger.Warn(ctx, "failed to open run artifact directory", "error", err.Error())
		}
	}

	if run != nil {
		run.Append(runlog.Event{Kind: "action_attempt", Message: fmt.Sprintf("executing plan with %d actions", len(plan.Actions))})
	}

	start := time.Now()
	result, err := o.exec.Execute(ctx, plan)
	if o.metrics != nil {
		state := "completed"
		if err != nil {
			state = "failed"
		}
		o.metrics.TaskDuration.Observe(time.Since(start).Seconds())
		o.metrics.TaskCounter.WithLabelValues(state).Inc()
	}
	if err != nil {
		if run != nil {
			run.WriteErrorReport(runlog.ErrorReport{Message: err.Error(), ErrorCode: "EXECUTOR_ERROR"})
		}
		return tasks.Result{}, err
	}

	if run != nil {
		for _, w := range result.Warnings {
			run.Append(runlog.Event{Kind: "warning", Message: w})
		}
		if !result.Success {
			run.WriteErrorReport(runlog.ErrorReport{Message: "plan did not complete successfully", ErrorCode: result.ErrorCode, Warnings: result.Warnings})
		}
		if png, serr := o.exec.CurrentScreenshot(ctx); serr == nil && png != nil {
			run.Screenshot(png)
		}
	}

	return tasks.Result{
		HTML:     result.HTML,
		Warnings: result.Warnings,
		Observation: tasks.Observation{
			URL:         result.Observation.URL,
			Title:       result.Observation.Title,
			CatalogVer:  result.Observation.CatalogVersion,
			NavDetected: result.Observation.NavDetected,
		},
	}, nil
}

// Reset clears conversation history. In-flight tasks are left untouched.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.history = nil
	o.mu.Unlock()
}

func renderCatalog(c catalog.Catalog) string {
	if len(c.Entries) == 0 {
		return ""
	}
	out := make([]byte, 0, 64*len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, fmt.Sprintf("[%d] %s %q (%s)\n", e.Index, e.Role, e.Label, e.Tag)...)
	}
	return string(out)
}
