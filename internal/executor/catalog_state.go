package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelbrowse/webagent/internal/catalog"
)

// rebuildCatalog reads the current page's nodes/url/viewport from the browser capability and
// replaces the cached catalog, resetting the mutation tracker since the rebuild absorbs any
// pending burst. Callers trigger this from ensureCatalog when no catalog is cached yet, on an
// explicit refresh_catalog, on a browser-context refresh, and after any action that reports the
// catalog dirty (navigation, clicks and the like). An index=N target whose version differs is
// not rebuilt but fails with CATALOG_OUTDATED, and nothing feeds recordMutationBurst, so mutation
// counts never trigger a rebuild.
func (e *Executor) rebuildCatalog(ctx context.Context, reason catalog.Reason) (catalog.Catalog, error) {
	nodes, err := e.cap.Nodes(ctx)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("reading page nodes for catalog rebuild (%s): %w", reason, err)
	}
	url, err := e.cap.CurrentURL(ctx)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("reading current url for catalog rebuild (%s): %w", reason, err)
	}
	viewport, err := e.cap.Viewport(ctx)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("reading viewport for catalog rebuild (%s): %w", reason, err)
	}

	built := catalog.Build(url, viewport, nodes)

	e.mu.Lock()
	e.cachedCatalog = built
	e.mutation.Reset()
	e.mu.Unlock()

	return built, nil
}

// ensureCatalog returns the cached catalog, building one on demand at executor entry if none
// exists yet.
func (e *Executor) ensureCatalog(ctx context.Context) (catalog.Catalog, error) {
	e.mu.Lock()
	cached := e.cachedCatalog
	e.mu.Unlock()

	if cached.Version != "" {
		return cached, nil
	}
	return e.rebuildCatalog(ctx, catalog.ReasonInitial)
}

// recordMutationBurst feeds the mutation tracker and reports whether the page just crossed
// MutationThreshold within MutationWindow.
func (e *Executor) recordMutationBurst(count int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	tripped := false
	now := time.Now()
	for i := 0; i < count; i++ {
		if e.mutation.Record(now) {
			tripped = true
		}
	}
	return tripped
}
