package executor

import (
	"context"
	"fmt"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/resilience"
)

// runAction runs one action under its policy's retry loop, returning either a non-nil hardErr
// (a plan-stopping structural failure, e.g. CATALOG_OUTDATED, after which no action ran) or the
// accumulated per-attempt warnings for an ordinary retryable failure, which lets the caller
// move on to the next action.
func (e *Executor) runAction(ctx context.Context, act dsl.Action, expectedCatalogVersion string) (actionOutcome, []string, error) {
	source := string(act.Kind)
	policy := policyFor(act)

	if hardErr := e.checkIndexTarget(ctx, act, expectedCatalogVersion); hardErr != nil {
		return actionOutcome{}, nil, hardErr
	}

	res := resilience.RetryWithBackoff(ctx, e.cfg.Backoff, policy.Retries, func(attemptCtx context.Context, attempt int) (actionOutcome, error) {
		boundedCtx := attemptCtx
		if policy.Timeout > 0 {
			var cancel context.CancelFunc
			boundedCtx, cancel = context.WithTimeout(attemptCtx, policy.Timeout)
			defer cancel()
		}

		if err := resilience.Probe(boundedCtx, e.cap); err != nil {
			return actionOutcome{}, err
		}
		return e.performAction(boundedCtx, act, policy)
	})

	warnings := attemptWarnings(source, res, policy.Retries)
	if !res.Succeeded {
		return actionOutcome{}, warnings, nil
	}

	if err := e.stabilize(ctx, policy.Stabilize); err != nil {
		warnings = append(warnings, resilience.Warning(resilience.SeverityWarn, source, fmt.Sprintf("stabilization wait: %v", err)))
	}
	return res.Value, warnings, nil
}

// checkIndexTarget surfaces CATALOG_OUTDATED rather than silently re-resolving against a stale
// catalog, before the action's retry loop even starts, for any action whose target is an
// index=N selector.
func (e *Executor) checkIndexTarget(ctx context.Context, act dsl.Action, expectedCatalogVersion string) error {
	if act.Target == nil {
		return nil
	}
	if _, ok := act.Target.Index(); !ok {
		return nil
	}

	cat, err := e.ensureCatalog(ctx)
	if err != nil {
		return resilience.NewActionError(string(act.Kind), resilience.KindCatalogOutdated, err)
	}
	if expectedCatalogVersion != "" && catalog.IsStale(cat, expectedCatalogVersion) {
		return resilience.NewActionError(string(act.Kind), resilience.KindCatalogOutdated,
			fmt.Errorf("catalog version %q does not match expected %q", cat.Version, expectedCatalogVersion))
	}
	return nil
}

// attemptWarnings renders a RetryWithBackoff result into the cumulative per-attempt warnings:
// one ERROR warning per failed attempt, an INFO warning when a retry eventually succeeds, or a
// final ERROR summary when every attempt failed.
func attemptWarnings[T any](source string, res resilience.Result[T], maxAttempts int) []string {
	var warnings []string
	errCount := 0
	for _, a := range res.Attempts {
		if a.Err != nil {
			errCount++
			warnings = append(warnings, resilience.AttemptWarning(source, a.Attempt, maxAttempts, a.Err.Error()))
		}
	}
	if res.Succeeded {
		if len(res.Attempts) > 1 {
			warnings = append(warnings, resilience.AttemptSuccessWarning(source, res.Attempts[len(res.Attempts)-1].Attempt))
		}
		return warnings
	}
	warnings = append(warnings, resilience.SummaryWarning(source, len(res.Attempts), errCount))
	return warnings
}
