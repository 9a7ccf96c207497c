package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kestrelbrowse/webagent/internal/browsercap"
	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/resilience"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// DefaultRefreshInterval is the default browser-refresh cadence, in actions between refreshes.
const DefaultRefreshInterval = 50

// Config holds the tunables Execute needs beyond the per-action policy table.
type Config struct {
	RefreshInterval int
	StartURL        string
	Backoff         resilience.BackoffPolicy
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.Backoff == (resilience.BackoffPolicy{}) {
		c.Backoff = resilience.DefaultBackoffPolicy()
	}
	return c
}

// Executor is the DSL Validator & Executor: it owns the browser handle exclusively for the
// duration of a plan and owns the Element Catalog it builds along the way.
type Executor struct {
	cap      browsercap.Capability
	resolver *selector.Resolver
	lock     *resilience.BrowserLock
	cfg      Config

	mu                  sync.Mutex
	cachedCatalog       catalog.Catalog
	mutation            catalog.MutationTracker
	actionsSinceRefresh int
}

// New builds an Executor over a live browser capability.
func New(cap browsercap.Capability, cfg Config) *Executor {
	return &Executor{
		cap:      cap,
		resolver: selector.NewResolver(cap),
		lock:     &resilience.BrowserLock{},
		cfg:      cfg.withDefaults(),
	}
}

// actionOutcome is what a single successful action reports back to the main loop: whether the
// plan is now done, and whether the catalog needs rebuilding before the next action runs.
type actionOutcome struct {
	isDone         bool
	catalogDirty   bool
	invalidateWhy  catalog.Reason
}

// Execute runs plan's actions to completion or exhaustion: `execute(plan,
// expected_catalog_version?) → Result{success, warnings, observation, is_done}`. It never
// returns an error for ordinary action failures — those become warnings and execution
// continues with the next action; the returned error is reserved for failure to even acquire
// the browser lock (ctx cancelled before a worker could start), which the caller
// (internal/tasks) reports as the task's own failure rather than a successful-but-unhappy
// Result.
func (e *Executor) Execute(ctx context.Context, plan dsl.Plan) (Result, error) {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("executor: failed to acquire browser lock: %w", err)
	}
	defer release()

	var warnings []string

	validated, verr := dsl.Validate(plan)
	warnings = append(warnings, validated.Warnings...)
	if verr != nil {
		warnings = append(warnings, resilience.Warning(resilience.SeverityError, "validate", verr.Error()))
		return Result{
			Success:     false,
			Warnings:    warnings,
			Observation: e.observationOrWarn(ctx, &warnings),
			ErrorCode:   string(resilience.KindOf(verr)),
		}, nil
	}

	actions := validated.Actions
	if chunks := dsl.Chunks(actions); len(chunks) > 1 {
		warnings = append(warnings, resilience.Warning(resilience.SeverityDebug, "executor",
			fmt.Sprintf("plan has %d actions; executing the first chunk of %d only, planner should replan the rest", len(actions), len(chunks[0]))))
		actions = chunks[0]
	}

	if _, err := e.ensureCatalog(ctx); err != nil {
		warnings = append(warnings, resilience.Warning(resilience.SeverityWarn, "catalog", err.Error()))
	}

	isDone := false
	for i, act := range actions {
		if ctx.Err() != nil {
			warnings = append(warnings, resilience.Warning(resilience.SeverityWarn, "auto",
				fmt.Sprintf("plan cancelled after action %d/%d", i, len(actions))))
			break
		}

		outcome, actWarnings, hardErr := e.runAction(ctx, act, plan.ExpectedCatalogVersion)
		warnings = append(warnings, actWarnings...)
		if hardErr != nil {
			return Result{
				Success:     false,
				Warnings:    warnings,
				Observation: e.observationOrWarn(ctx, &warnings),
				ErrorCode:   string(resilience.KindOf(hardErr)),
			}, nil
		}

		if outcome.catalogDirty {
			if _, rerr := e.rebuildCatalog(ctx, outcome.invalidateWhy); rerr != nil {
				warnings = append(warnings, resilience.Warning(resilience.SeverityWarn, "catalog", rerr.Error()))
			}
		}

		e.bumpRefreshCounter()
		if e.dueForRefresh() {
			if rerr := e.refreshContext(ctx); rerr != nil {
				warnings = append(warnings, resilience.Warning(resilience.SeverityWarn, "refresh", rerr.Error()))
			}
		}

		if outcome.isDone {
			isDone = true
			break
		}
	}

	html, herr := e.cap.HTML(ctx)
	if herr != nil {
		warnings = append(warnings, resilience.Warning(resilience.SeverityWarn, "html", herr.Error()))
	}

	return Result{
		Success:     true,
		Warnings:    warnings,
		Observation: e.observationOrWarn(ctx, &warnings),
		IsDone:      isDone,
		HTML:        html,
	}, nil
}

// observationOrWarn reads the current page observation, appending a warning instead of failing
// the whole call if the read itself errors.
func (e *Executor) observationOrWarn(ctx context.Context, warnings *[]string) Observation {
	url, err := e.cap.CurrentURL(ctx)
	if err != nil {
		*warnings = append(*warnings, resilience.Warning(resilience.SeverityWarn, "observation", err.Error()))
	}
	title, err := e.cap.Title(ctx)
	if err != nil {
		*warnings = append(*warnings, resilience.Warning(resilience.SeverityWarn, "observation", err.Error()))
	}
	return Observation{URL: url, Title: title, CatalogVersion: e.CurrentCatalog().Version}
}

func (e *Executor) bumpRefreshCounter() {
	e.mu.Lock()
	e.actionsSinceRefresh++
	e.mu.Unlock()
}

func (e *Executor) dueForRefresh() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.actionsSinceRefresh >= e.cfg.RefreshInterval {
		e.actionsSinceRefresh = 0
		return true
	}
	return false
}

// stabilizationDelay approximates the post-action quiescence wait the policy table calls for.
// A true DOM-mutation/network-idle observer would need instrumentation injected into the page
// beyond what the capability interface exposes today; a bounded sleep is the pragmatic
// stand-in, and it is always context-aware so a cancelled plan doesn't block
// on it.
func stabilizationDelay(s Stabilize) time.Duration {
	switch s {
	case StabilizeNavigation:
		return 500 * time.Millisecond
	case StabilizeDOMMedium:
		return 200 * time.Millisecond
	case StabilizeDOMShort, StabilizeInputEvent, StabilizeChangeEvent:
		return 100 * time.Millisecond
	default:
		return 0
	}
}

func (e *Executor) stabilize(ctx context.Context, s Stabilize) error {
	if d := stabilizationDelay(s); d > 0 {
		return resilience.SleepWithContext(ctx, d)
	}
	return nil
}
