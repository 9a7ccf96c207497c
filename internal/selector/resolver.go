// Package selector implements the Selector Resolver: escalation across a selector's primary
// strategy and its fallbacks, looser-CSS generation, and the post-locate readiness wait.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/resilience"
)

// Handle is a live reference to a located DOM element, as produced by whichever
// internal/browsercap backend is in use.
type Handle interface {
	BoundingBox(ctx context.Context) (catalog.BBox, error)
	Visible(ctx context.Context) (bool, error)
	Attached(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	ReadOnly(ctx context.Context) (bool, error)
}

// Finder locates every element matching a single selector strategy. A backend's Find may
// return zero, one, or many handles; the resolver picks among them when more than one matches.
type Finder interface {
	Find(ctx context.Context, sel dsl.Selector) ([]Handle, error)
}

// StabilityWindow is how long a located element's bounding box must stay unchanged before it is
// considered stable.
const StabilityWindow = 100 * time.Millisecond

// PollInterval is how often readiness is re-checked while waiting.
const PollInterval = 20 * time.Millisecond

// Resolver resolves a primary selector plus fallbacks into a ready-to-act-on Handle.
type Resolver struct {
	finder Finder
}

// NewResolver builds a Resolver backed by the given browser capability.
func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve runs the escalation ladder: try primary, then for a css primary that yields zero
// matches try progressively looser variants (an xpath primary gets none), then try each
// fallback in declared order.
// The first selector that yields at least one match wins; ties among multiple matches for the
// same selector are broken by paint order (top-to-bottom, left-to-right).
func (r *Resolver) Resolve(ctx context.Context, primary dsl.Selector, fallbacks []dsl.Selector) (Handle, error) {
	ladder := r.buildLadder(primary, fallbacks)

	for _, sel := range ladder {
		handles, err := r.finder.Find(ctx, sel)
		if err != nil {
			continue
		}
		if len(handles) == 0 {
			continue
		}
		return pickByPaintOrder(ctx, handles)
	}

	return nil, resilience.NewActionError("selector", resilience.KindElementNotFound,
		fmt.Errorf("no match for selector %s after exhausting %d candidates", primary.String(), len(ladder)))
}

// buildLadder expands the primary selector into looser variants (LooserVariants yields them for
// css only) and appends the declared fallbacks, in priority order.
func (r *Resolver) buildLadder(primary dsl.Selector, fallbacks []dsl.Selector) []dsl.Selector {
	ladder := []dsl.Selector{primary}
	if primary.Strategy == dsl.StrategyCSS || primary.Strategy == dsl.StrategyXPath {
		ladder = append(ladder, LooserVariants(primary)...)
	}
	ladder = append(ladder, fallbacks...)
	if text, ok := AccessibleTextFallback(primary); ok {
		ladder = append(ladder, text)
	}
	return ladder
}

// pickByPaintOrder resolves ties among multiple matches for one selector using paint order;
// the element closest to the top-left of the viewport wins.
func pickByPaintOrder(ctx context.Context, handles []Handle) (Handle, error) {
	if len(handles) == 1 {
		return handles[0], nil
	}

	best := handles[0]
	bestBox, err := best.BoundingBox(ctx)
	if err != nil {
		bestBox = catalog.BBox{}
	}
	for _, h := range handles[1:] {
		box, err := h.BoundingBox(ctx)
		if err != nil {
			continue
		}
		if box.Y < bestBox.Y || (box.Y == bestBox.Y && box.X < bestBox.X) {
			best, bestBox = h, box
		}
	}
	return best, nil
}
