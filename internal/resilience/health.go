package resilience

import (
	"context"
	"fmt"
	"time"
)

// HealthProbe is the narrow capability a browser backend exposes so the resilience layer can
// run its health check without depending on the concrete Playwright/chromedp implementation
// (kept in internal/browsercap).
type HealthProbe interface {
	// DocumentReady reports whether the page's document.readyState can be read at all.
	DocumentReady(ctx context.Context) (bool, error)
	// EvalTrivial evaluates a no-op expression to confirm the JS bridge is alive.
	EvalTrivial(ctx context.Context) error
	// NavigationAge returns how long the page has been mid-navigation, or zero if idle.
	NavigationAge(ctx context.Context) (time.Duration, error)
}

// StallThreshold is how long a page may be "mid-navigation" before the probe considers it
// unhealthy (tier 3 of the health check).
const StallThreshold = 20 * time.Second

// Probe runs a three-tier browser-health check: (1) document readyState readable, (2) a
// trivial DOM expression evaluates, (3) not mid-navigation for longer than StallThreshold.
func Probe(ctx context.Context, h HealthProbe) error {
	ready, err := h.DocumentReady(ctx)
	if err != nil || !ready {
		return NewActionError("health", KindBrowserUnhealthy, fmt.Errorf("document not ready: %w", orNil(err)))
	}

	if err := h.EvalTrivial(ctx); err != nil {
		return NewActionError("health", KindBrowserUnhealthy, fmt.Errorf("trivial eval failed: %w", err))
	}

	age, err := h.NavigationAge(ctx)
	if err != nil {
		return NewActionError("health", KindBrowserUnhealthy, fmt.Errorf("navigation state unreadable: %w", err))
	}
	if age > StallThreshold {
		return NewActionError("health", KindBrowserUnhealthy, fmt.Errorf("stuck mid-navigation for %s", age))
	}

	return nil
}

// orNil substitutes a generic sentinel so %w never wraps a nil error.
func orNil(err error) error {
	if err == nil {
		return errNotReady
	}
	return err
}

var errNotReady = fmt.Errorf("readyState unavailable")
