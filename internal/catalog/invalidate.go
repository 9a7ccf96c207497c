package catalog

import "time"

// MutationThreshold and MutationWindow bound how much DOM churn the executor tolerates before
// considering the current catalog stale: more than MutationThreshold mutations within
// MutationWindow forces a rebuild.
const (
	MutationThreshold = 8
	MutationWindow    = 200 * time.Millisecond
)

// Reason enumerates why a fresh catalog was (or must be) built. It exists purely for
// observability/logging, not for branching logic.
type Reason string

const (
	ReasonInitial        Reason = "initial"
	ReasonIndexTarget    Reason = "index_target"
	ReasonVersionStale   Reason = "version_stale"
	ReasonExplicitRefresh Reason = "refresh_catalog"
	ReasonURLChanged     Reason = "url_changed"
	ReasonMutationBurst  Reason = "mutation_burst"
)

// MutationTracker accumulates DOM mutation timestamps within a sliding window and reports
// whether the burst has crossed MutationThreshold.
type MutationTracker struct {
	events []time.Time
}

// Record adds one observed mutation at the given time and reports whether the recent burst now
// exceeds MutationThreshold within MutationWindow.
func (t *MutationTracker) Record(at time.Time) bool {
	t.events = append(t.events, at)
	cutoff := at.Add(-MutationWindow)
	kept := t.events[:0]
	for _, e := range t.events {
		if e.After(cutoff) {
			kept = append(kept, e)
		}
	}
	t.events = kept
	return len(t.events) > MutationThreshold
}

// Reset clears accumulated mutation history, called after a catalog rebuild absorbs the burst.
func (t *MutationTracker) Reset() {
	t.events = nil
}

// IsStale reports whether a cached catalog's version no longer matches the one supplied, i.e.
// the catalog must be rebuilt before an index=N selector against it can be trusted.
func IsStale(cached Catalog, currentVersion string) bool {
	return cached.Version != currentVersion
}
