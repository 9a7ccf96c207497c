package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kestrelbrowse/webagent/internal/browsercap"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/resilience"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// typeStabilizeWindow is the DOM-quiescence wait the autocomplete-safe typing algorithm leaves
// for a suggestion menu to settle before it starts typing.
const typeStabilizeWindow = 100 * time.Millisecond

// clickWithFallback runs the click fallback ladder: primary click, force click, JavaScript
// click(), then the backend's DispatchClick synthetic click. Each rung is attempted
// only after the previous one fails, and every rung's error is folded into the one returned so
// the caller sees why the whole ladder gave up.
func (e *Executor) clickWithFallback(ctx context.Context, h browsercap.ActionHandle, opts dsl.Options) error {
	button := opts.Button
	if button == "" {
		button = "left"
	}
	count := opts.Count
	if count == 0 {
		count = 1
	}

	var errs []string

	if err := h.Click(ctx, button, count, false); err == nil {
		return nil
	} else {
		errs = append(errs, "click: "+err.Error())
	}

	if err := h.Click(ctx, button, count, true); err == nil {
		return nil
	} else {
		errs = append(errs, "force click: "+err.Error())
	}

	if err := h.JSClick(ctx); err == nil {
		return nil
	} else {
		errs = append(errs, "js click: "+err.Error())
	}

	if err := h.DispatchClick(ctx); err == nil {
		return nil
	} else {
		errs = append(errs, "dispatch click: "+err.Error())
	}

	return resilience.NewActionError("click", resilience.KindElementNotInteract,
		fmt.Errorf("all click rungs failed: %s", strings.Join(errs, "; ")))
}

// hoverWithFallback calls the handle's Hover once and reports a failure as
// ELEMENT_NOT_INTERACTABLE. It has no further rungs: no force hover, no dispatched
// mouseover/mouseenter, and no mouse move to the element's center.
func (e *Executor) hoverWithFallback(ctx context.Context, h browsercap.ActionHandle) error {
	if err := h.Hover(ctx); err != nil {
		return resilience.NewActionError("hover", resilience.KindElementNotInteract, err)
	}
	return nil
}

// selectWithFallback runs the select ladder: SelectOption by value, SelectByLabel, then
// SelectOption by value once more. It has no JS option-selection rung and no open-and-click rung.
func (e *Executor) selectWithFallback(ctx context.Context, h browsercap.ActionHandle, value string) error {
	var errs []string

	if err := h.SelectOption(ctx, value); err == nil {
		return nil
	} else {
		errs = append(errs, "by value: "+err.Error())
	}

	if err := h.SelectByLabel(ctx, value); err == nil {
		return nil
	} else {
		errs = append(errs, "by label: "+err.Error())
	}

	if err := h.SelectOption(ctx, value); err == nil {
		return nil
	} else {
		errs = append(errs, "retry: "+err.Error())
	}

	return resilience.NewActionError("select", resilience.KindElementNotInteract,
		fmt.Errorf("all select rungs failed: %s", strings.Join(errs, "; ")))
}

// typeWithVerification implements autocomplete-safe typing: when clear is set it first waits
// typeStabilizeWindow, then clears and types the value in a single Type call (there is no wait
// between the clear and the typing); it then reads the value back and clears and retypes once on
// mismatch (the common case where a suggestion auto-replaced a substring), without a second
// readback.
func (e *Executor) typeWithVerification(ctx context.Context, h browsercap.ActionHandle, value string, clear bool) error {
	if clear {
		if err := resilience.SleepWithContext(ctx, typeStabilizeWindow); err != nil {
			return resilience.NewActionError("type", resilience.KindTimeout, err)
		}
	}

	if err := h.Type(ctx, value, clear); err != nil {
		return resilience.NewActionError("type", resilience.KindElementNotInteract, err)
	}

	got, err := h.Value(ctx)
	if err != nil {
		// The backend may not support value readback for this element kind; the type itself
		// already succeeded, so this is not a failure of the action.
		return nil
	}
	if got == value {
		return nil
	}

	if err := h.Type(ctx, value, true); err != nil {
		return resilience.NewActionError("type", resilience.KindElementNotInteract,
			fmt.Errorf("retry after autocomplete mismatch: %w", err))
	}
	return nil
}

// pressKeyWithFallback, when a target is given, resolves it, waits for it to be ready and hovers
// it, ignoring failures in those steps; the key itself is always pressed at page level through
// the capability. The key is never sent to the element directly, and there is no dispatched
// KeyboardEvent rung.
func (e *Executor) pressKeyWithFallback(ctx context.Context, target *dsl.Selector, key string) error {
	if target != nil && !target.IsZero() {
		handle, err := e.resolveTarget(ctx, target)
		if err == nil {
			if err := selector.WaitReady(ctx, handle, false); err == nil {
				if ah, ok := handle.(browsercap.ActionHandle); ok {
					if err := ah.Hover(ctx); err != nil {
						// Focusing via hover failed; fall through to page-level keyboard dispatch.
					}
				}
			}
		}
	}

	if err := e.cap.PressKey(ctx, key); err != nil {
		return resilience.NewActionError("press_key", resilience.KindElementNotInteract, err)
	}
	return nil
}
