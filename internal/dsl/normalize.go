package dsl

import "strings"

// Normalize canonicalizes a decoded plan in place: it lowercases action kinds and selector
// strategies, trims incidental whitespace, and re-parses any selector whose Value still
// carries a stray prefix (defensive against callers building Selector literals by hand
// instead of going through ParseSelector). Normalize is idempotent: Normalize(Normalize(p))
// always equals Normalize(p).
func Normalize(plan Plan) Plan {
	out := Plan{
		Actions:                make([]Action, len(plan.Actions)),
		ExpectedCatalogVersion: strings.TrimSpace(plan.ExpectedCatalogVersion),
	}
	for i, act := range plan.Actions {
		out.Actions[i] = normalizeAction(act)
	}
	return out
}

func normalizeAction(act Action) Action {
	act.Kind = Kind(strings.ToLower(strings.TrimSpace(string(act.Kind))))
	act.Target = normalizeTarget(act.Target)
	if act.Options.Button != "" {
		act.Options.Button = strings.ToLower(strings.TrimSpace(act.Options.Button))
	}
	if act.Options.Until != "" {
		act.Options.Until = Until(strings.ToLower(strings.TrimSpace(string(act.Options.Until))))
	}
	return act
}

func normalizeTarget(sel *Selector) *Selector {
	if sel == nil {
		return nil
	}
	if sel.Strategy == "" && strings.Contains(sel.Value, "=") {
		if reparsed, err := ParseSelector(sel.Value); err == nil {
			return &reparsed
		}
	}
	normalized := Selector{
		Strategy: Strategy(strings.ToLower(strings.TrimSpace(string(sel.Strategy)))),
		Value:    strings.TrimSpace(sel.Value),
		RoleName: strings.TrimSpace(sel.RoleName),
	}
	return &normalized
}
