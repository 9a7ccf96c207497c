// Package executor implements the DSL Validator & Executor: it parses and validates a plan,
// runs each action under a per-kind retry/timeout policy, escalates through selector and
// action fallback ladders, stabilizes page state between actions, and rebuilds the Element
// Catalog after structural changes.
package executor

import "github.com/kestrelbrowse/webagent/internal/catalog"

// Observation is the page-state readout returned alongside every execution result.
type Observation struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	CatalogVersion string `json:"catalog_version,omitempty"`
	NavDetected    bool   `json:"nav_detected"`
}

// Result is the public contract of Execute:
// `execute(plan) → Result{success, warnings, observation, is_done}`.
type Result struct {
	Success     bool        `json:"success"`
	Warnings    []string    `json:"warnings"`
	Observation Observation `json:"observation"`
	IsDone      bool        `json:"is_done"`
	HTML        string      `json:"html"`
	// ErrorCode carries the closed-set ErrorKind of a hard, plan-stopping failure (e.g.
	// CATALOG_OUTDATED on an index=N target), distinct from the per-action warnings that
	// accumulate during normal retries.
	ErrorCode string `json:"error_code,omitempty"`
}

// CurrentCatalog returns the catalog this executor last built, for GET /catalog and for the
// planner's read-only snapshot.
func (e *Executor) CurrentCatalog() catalog.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cachedCatalog
}
