package dsl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kestrelbrowse/webagent/internal/resilience"
)

// MaxPlanActions caps how many actions a single plan may carry.
const MaxPlanActions = 50

// MaxChunkActions caps how many actions the executor runs from one plan: a longer plan is not
// rejected, but only its first MaxChunkActions actions run and the rest are dropped with a
// DEBUG warning.
const MaxChunkActions = 10

// ValidationResult is the outcome of validating and normalizing a plan: the (possibly
// truncated) actions to execute and any warnings to surface to the caller.
type ValidationResult struct {
	Actions  []Action
	Warnings []string
}

// Validate checks plan well-formedness: size limit (truncating to MaxPlanActions with a DEBUG
// warning rather than rejecting), well-formed navigate URLs, and non-empty selectors on
// actions that require a target. It returns the first hard validation error, if any, alongside
// whatever warnings were already collected.
func Validate(plan Plan) (ValidationResult, error) {
	result := ValidationResult{Actions: plan.Actions}

	if len(result.Actions) > MaxPlanActions {
		dropped := len(result.Actions) - MaxPlanActions
		result.Actions = result.Actions[:MaxPlanActions]
		result.Warnings = append(result.Warnings, resilience.Warning(
			resilience.SeverityDebug, "validate",
			fmt.Sprintf("plan truncated to %d actions (%d dropped)", MaxPlanActions, dropped),
		))
	}

	for i, act := range result.Actions {
		if err := validateAction(i, act); err != nil {
			return result, err
		}
	}

	return result, nil
}

// Chunks splits actions into consecutive groups of at most MaxChunkActions; the executor runs
// only the first group.
func Chunks(actions []Action) [][]Action {
	if len(actions) == 0 {
		return nil
	}
	var chunks [][]Action
	for start := 0; start < len(actions); start += MaxChunkActions {
		end := start + MaxChunkActions
		if end > len(actions) {
			end = len(actions)
		}
		chunks = append(chunks, actions[start:end])
	}
	return chunks
}

func validateAction(index int, act Action) error {
	if !knownKinds[act.Kind] {
		return resilience.NewActionError("validate", resilience.KindValidation,
			fmt.Errorf("action %d: unknown kind %q", index, act.Kind))
	}

	// An empty navigate URL is deliberately NOT rejected here: it should run the full
	// per-attempt navigate retry policy ("Attempt 1/5 - invalid or empty URL" ... summary)
	// rather than a single upfront VALIDATION_ERROR, so the emptiness check is left to the
	// executor's navigate handler. A syntactically malformed non-empty URL is still a hard
	// precondition failure, since no number of retries will make "not-a-url" navigable. The
	// planner may put the URL in either Value or Target, so both are checked here.
	if act.Kind == KindNavigate {
		raw := strings.TrimSpace(act.Value)
		if raw == "" && act.Target != nil {
			raw = strings.TrimSpace(act.Target.Value)
		}
		if raw != "" {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return resilience.NewActionError("validate", resilience.KindValidation,
					fmt.Errorf("action %d: invalid or empty URL %q", index, raw))
			}
		}
	}

	if requiresTarget[act.Kind] {
		if act.Target == nil || act.Target.IsZero() || strings.TrimSpace(act.Target.Value) == "" {
			return resilience.NewActionError("validate", resilience.KindValidation,
				fmt.Errorf("action %d: %s requires a non-empty selector", index, act.Kind))
		}
	}

	return nil
}
