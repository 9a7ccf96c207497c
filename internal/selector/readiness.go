package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/resilience"
)

// WaitReady blocks until handle is visible, attached, enabled, not read-only, and stable (no
// bounding-box change within StabilityWindow), or ctx is done. These checks are inline polling
// rather than a fixed sleep.
func WaitReady(ctx context.Context, h Handle, checkReadOnly bool) error {
	var lastBox catalog.BBox
	var stableSince time.Time
	haveBox := false

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		ready, box, err := checkOnce(ctx, h, checkReadOnly)
		if err != nil {
			return err
		}

		if ready {
			if !haveBox || box != lastBox {
				lastBox, stableSince, haveBox = box, time.Now(), true
			} else if time.Since(stableSince) >= StabilityWindow {
				return nil
			}
		} else {
			haveBox = false
		}

		select {
		case <-ctx.Done():
			return resilience.NewActionError("selector", resilience.KindTimeout,
				fmt.Errorf("element did not become ready: %w", ctx.Err()))
		case <-ticker.C:
		}
	}
}

// checkOnce evaluates the non-stability readiness predicates once and returns the current
// bounding box for the stability comparison in WaitReady.
func checkOnce(ctx context.Context, h Handle, checkReadOnly bool) (ready bool, box catalog.BBox, err error) {
	attached, err := h.Attached(ctx)
	if err != nil {
		return false, box, resilience.NewActionError("selector", resilience.KindElementNotInteract, err)
	}
	if !attached {
		return false, box, nil
	}

	visible, err := h.Visible(ctx)
	if err != nil {
		return false, box, resilience.NewActionError("selector", resilience.KindElementNotInteract, err)
	}
	enabled, err := h.Enabled(ctx)
	if err != nil {
		return false, box, resilience.NewActionError("selector", resilience.KindElementNotInteract, err)
	}

	if checkReadOnly {
		readOnly, err := h.ReadOnly(ctx)
		if err != nil {
			return false, box, resilience.NewActionError("selector", resilience.KindElementNotInteract, err)
		}
		if readOnly {
			return false, box, nil
		}
	}

	if !visible || !enabled {
		return false, box, nil
	}

	box, err = h.BoundingBox(ctx)
	if err != nil {
		return false, box, resilience.NewActionError("selector", resilience.KindElementNotInteract, err)
	}
	return true, box, nil
}
