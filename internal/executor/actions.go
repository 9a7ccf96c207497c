package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kestrelbrowse/webagent/internal/browsercap"
	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/resilience"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// performAction runs a single attempt of act against the live browser, dispatching on kind.
// Called from inside runAction's retry loop; every returned error must already be a
// resilience.ActionError classified so the retry loop and the final warning summary agree on
// what happened.
func (e *Executor) performAction(ctx context.Context, act dsl.Action, policy Policy) (actionOutcome, error) {
	switch act.Kind {
	case dsl.KindNavigate:
		return e.doNavigate(ctx, act)
	case dsl.KindClick:
		return e.doClick(ctx, act)
	case dsl.KindType:
		return e.doType(ctx, act)
	case dsl.KindSelect:
		return e.doSelect(ctx, act)
	case dsl.KindHover:
		return e.doHover(ctx, act)
	case dsl.KindPressKey:
		return e.doPressKey(ctx, act)
	case dsl.KindWait:
		return e.doWait(ctx, act)
	case dsl.KindWaitForSel:
		return e.doWaitForSelector(ctx, act)
	case dsl.KindScroll:
		return e.doScroll(ctx, act)
	case dsl.KindScrollToText:
		return e.doScrollToText(ctx, act)
	case dsl.KindEvalJS:
		return e.doEvalJS(ctx, act)
	case dsl.KindScreenshot:
		return e.doScreenshot(ctx, act)
	case dsl.KindExtract:
		return e.doExtract(ctx, act)
	case dsl.KindAssert:
		return e.doAssert(ctx, act)
	case dsl.KindSwitchTab:
		return e.doSwitchTab(ctx, act)
	case dsl.KindFocusIframe:
		return e.doFocusIframe(ctx, act)
	case dsl.KindGoBack:
		return e.doGoBack(ctx, act)
	case dsl.KindGoForward:
		return e.doGoForward(ctx, act)
	case dsl.KindClosePopup:
		return e.doClosePopup(ctx, act)
	case dsl.KindClickBlankArea:
		return e.doClickBlankArea(ctx, act)
	case dsl.KindRefreshCatalog:
		return e.doRefreshCatalog(ctx, act)
	default:
		return actionOutcome{}, resilience.NewActionError(string(act.Kind), resilience.KindValidation,
			fmt.Errorf("unhandled action kind %q", act.Kind))
	}
}

// resolveTarget finds a live handle for act's target, reading through an index=N selector's
// catalog entry first.
func (e *Executor) resolveTarget(ctx context.Context, target *dsl.Selector) (selector.Handle, error) {
	if target == nil || target.IsZero() {
		return nil, resilience.NewActionError("resolve", resilience.KindValidation, fmt.Errorf("action requires a target"))
	}

	if idx, ok := target.Index(); ok {
		cat, err := e.ensureCatalog(ctx)
		if err != nil {
			return nil, resilience.NewActionError("resolve", resilience.KindCatalogOutdated, err)
		}
		entry, ok := cat.EntryAt(idx)
		if !ok {
			return nil, resilience.NewActionError("resolve", resilience.KindElementNotFound,
				fmt.Errorf("no catalog entry at index %d", idx))
		}
		return e.resolver.Resolve(ctx, entry.Primary, entry.Fallbacks)
	}

	return e.resolver.Resolve(ctx, *target, nil)
}

// resolveActionable resolves target to a handle, waits for it to be ready, and type-asserts it
// to browsercap.ActionHandle, the mutating half concrete backend handles also implement
// (spec: internal/selector stays read-only; the executor is the only caller allowed to mutate).
func (e *Executor) resolveActionable(ctx context.Context, target *dsl.Selector, checkReadOnly bool) (browsercap.ActionHandle, error) {
	handle, err := e.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if err := selector.WaitReady(ctx, handle, checkReadOnly); err != nil {
		return nil, err
	}
	ah, ok := handle.(browsercap.ActionHandle)
	if !ok {
		return nil, resilience.NewActionError("resolve", resilience.KindUnknown, fmt.Errorf("resolved handle does not support actions"))
	}
	return ah, nil
}

func (e *Executor) doNavigate(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	raw := strings.TrimSpace(act.Value)
	if raw == "" && act.Target != nil {
		// A planner may put the destination URL in Target instead of Value; accept either.
		raw = strings.TrimSpace(act.Target.Value)
	}
	if raw == "" {
		return actionOutcome{}, resilience.NewActionError("navigate", resilience.KindNavigationFailed,
			fmt.Errorf("invalid or empty URL"))
	}
	if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
		return actionOutcome{}, resilience.NewActionError("navigate", resilience.KindNavigationFailed,
			fmt.Errorf("invalid or empty URL"))
	}

	until := act.Options.Until
	if until == "" {
		until = dsl.UntilLoad
	}
	if _, err := e.cap.Navigate(ctx, raw, until); err != nil {
		return actionOutcome{}, resilience.NewActionError("navigate", resilience.KindNavigationFailed, err)
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: catalog.ReasonURLChanged}, nil
}

func (e *Executor) doGoBack(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if _, err := e.cap.GoBack(ctx); err != nil {
		return actionOutcome{}, resilience.NewActionError("go_back", resilience.KindNavigationFailed, err)
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: catalog.ReasonURLChanged}, nil
}

func (e *Executor) doGoForward(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if _, err := e.cap.GoForward(ctx); err != nil {
		return actionOutcome{}, resilience.NewActionError("go_forward", resilience.KindNavigationFailed, err)
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: catalog.ReasonURLChanged}, nil
}

func (e *Executor) doClick(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	before, _ := e.cap.CurrentURL(ctx)

	handle, err := e.resolveActionable(ctx, act.Target, false)
	if err != nil {
		return actionOutcome{}, err
	}
	if err := e.clickWithFallback(ctx, handle, act.Options); err != nil {
		return actionOutcome{}, err
	}

	// A click that navigated invalidates the catalog for the new URL rather than a same-page
	// mutation burst; navigation is detected by comparing the URL before and after the click.
	after, _ := e.cap.CurrentURL(ctx)
	reason := catalog.ReasonMutationBurst
	if after != "" && after != before {
		reason = catalog.ReasonURLChanged
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: reason}, nil
}

func (e *Executor) doType(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	handle, err := e.resolveActionable(ctx, act.Target, true)
	if err != nil {
		return actionOutcome{}, err
	}
	if err := e.typeWithVerification(ctx, handle, act.Value, act.Options.Clear); err != nil {
		return actionOutcome{}, err
	}
	return actionOutcome{}, nil
}

func (e *Executor) doSelect(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	handle, err := e.resolveActionable(ctx, act.Target, false)
	if err != nil {
		return actionOutcome{}, err
	}
	if err := e.selectWithFallback(ctx, handle, act.Value); err != nil {
		return actionOutcome{}, err
	}
	return actionOutcome{}, nil
}

func (e *Executor) doHover(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	handle, err := e.resolveActionable(ctx, act.Target, false)
	if err != nil {
		return actionOutcome{}, err
	}
	if err := e.hoverWithFallback(ctx, handle); err != nil {
		return actionOutcome{}, err
	}
	return actionOutcome{}, nil
}

func (e *Executor) doPressKey(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	key := act.Options.Key
	if key == "" {
		key = act.Value
	}
	if key == "" {
		return actionOutcome{}, resilience.NewActionError("press_key", resilience.KindValidation, fmt.Errorf("press_key requires a key"))
	}

	if err := e.pressKeyWithFallback(ctx, act.Target, key); err != nil {
		return actionOutcome{}, err
	}
	return actionOutcome{}, nil
}

func (e *Executor) doWait(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	ms := act.Options.MS
	if ms <= 0 {
		ms = 1000
	}
	if err := resilience.SleepWithContext(ctx, time.Duration(ms)*time.Millisecond); err != nil {
		return actionOutcome{}, resilience.NewActionError("wait", resilience.KindTimeout, err)
	}
	return actionOutcome{}, nil
}

func (e *Executor) doWaitForSelector(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	handle, err := e.resolveTarget(ctx, act.Target)
	if err != nil {
		return actionOutcome{}, err
	}
	if err := selector.WaitReady(ctx, handle, false); err != nil {
		return actionOutcome{}, err
	}
	return actionOutcome{}, nil
}

func (e *Executor) doScroll(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	dx, dy := 0, act.Options.Count
	if dy == 0 {
		dy = 400
	}
	if err := e.cap.Scroll(ctx, dx, dy); err != nil {
		return actionOutcome{}, resilience.NewActionError("scroll", resilience.KindEvalFailed, err)
	}
	return actionOutcome{}, nil
}

func (e *Executor) doScrollToText(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	cat, err := e.ensureCatalog(ctx)
	if err != nil {
		return actionOutcome{}, resilience.NewActionError("scroll_to_text", resilience.KindElementNotFound, err)
	}
	entry, ok := catalog.FindByText(cat, act.Value)
	if !ok {
		return actionOutcome{}, resilience.NewActionError("scroll_to_text", resilience.KindElementNotFound,
			fmt.Errorf("no element contains text %q", act.Value))
	}
	handle, err := e.resolver.Resolve(ctx, entry.Primary, entry.Fallbacks)
	if err != nil {
		return actionOutcome{}, err
	}
	box, err := handle.BoundingBox(ctx)
	if err != nil {
		return actionOutcome{}, resilience.NewActionError("scroll_to_text", resilience.KindElementNotInteract, err)
	}
	if err := e.cap.Scroll(ctx, 0, int(box.Y)); err != nil {
		return actionOutcome{}, resilience.NewActionError("scroll_to_text", resilience.KindEvalFailed, err)
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: catalog.ReasonMutationBurst}, nil
}

func (e *Executor) doEvalJS(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if _, err := e.cap.EvaluateJS(ctx, act.Value); err != nil {
		return actionOutcome{}, resilience.NewActionError("eval_js", resilience.KindEvalFailed, err)
	}
	return actionOutcome{}, nil
}

func (e *Executor) doScreenshot(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if _, err := e.cap.Screenshot(ctx, act.Options.Force); err != nil {
		return actionOutcome{}, resilience.NewActionError("screenshot", resilience.KindUnknown, err)
	}
	return actionOutcome{}, nil
}

func (e *Executor) doExtract(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	result, err := e.cap.EvaluateJS(ctx, act.Value)
	if err != nil {
		return actionOutcome{}, resilience.NewActionError("extract", resilience.KindEvalFailed, err)
	}
	// An extract action that produces a terminal predicate marks the plan complete and
	// short-circuits the remaining actions. The planner's terminal predicate convention is a
	// JS expression that evaluates to exactly the string "true".
	return actionOutcome{isDone: result == "true"}, nil
}

func (e *Executor) doAssert(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	result, err := e.cap.EvaluateJS(ctx, act.Value)
	if err != nil {
		return actionOutcome{}, resilience.NewActionError("assert", resilience.KindEvalFailed, err)
	}
	if result != "true" {
		return actionOutcome{}, resilience.NewActionError("assert", resilience.KindEvalFailed,
			fmt.Errorf("assertion failed: %q evaluated to %q", act.Value, result))
	}
	return actionOutcome{}, nil
}

func (e *Executor) doSwitchTab(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if act.Target == nil {
		return actionOutcome{}, resilience.NewActionError("switch_tab", resilience.KindValidation, fmt.Errorf("switch_tab requires target=index=N"))
	}
	idx, ok := act.Target.Index()
	if !ok {
		return actionOutcome{}, resilience.NewActionError("switch_tab", resilience.KindValidation, fmt.Errorf("switch_tab requires target=index=N"))
	}
	if err := e.cap.SwitchTab(ctx, idx); err != nil {
		return actionOutcome{}, resilience.NewActionError("switch_tab", resilience.KindElementNotFound, err)
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: catalog.ReasonURLChanged}, nil
}

func (e *Executor) doFocusIframe(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	frames, err := e.cap.ListFrames(ctx)
	if err != nil {
		return actionOutcome{}, resilience.NewActionError("focus_iframe", resilience.KindElementNotFound, err)
	}
	for _, f := range frames {
		if strings.Contains(f, act.Value) {
			return actionOutcome{}, nil
		}
	}
	return actionOutcome{}, resilience.NewActionError("focus_iframe", resilience.KindElementNotFound,
		fmt.Errorf("no frame matching %q among %d frames", act.Value, len(frames)))
}

func (e *Executor) doClosePopup(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	handle, err := e.resolveActionable(ctx, act.Target, false)
	if err != nil {
		// A popup that never appeared is not a plan-stopping condition; treat it as a no-op.
		return actionOutcome{}, nil
	}
	if err := handle.Click(ctx, "left", 1, false); err != nil {
		return actionOutcome{}, resilience.NewActionError("close_popup", resilience.KindElementNotInteract, err)
	}
	return actionOutcome{catalogDirty: true, invalidateWhy: catalog.ReasonMutationBurst}, nil
}

func (e *Executor) doClickBlankArea(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if _, err := e.cap.EvaluateJS(ctx, "document.body && document.body.click && document.body.click()"); err != nil {
		return actionOutcome{}, resilience.NewActionError("click_blank_area", resilience.KindEvalFailed, err)
	}
	return actionOutcome{}, nil
}

func (e *Executor) doRefreshCatalog(ctx context.Context, act dsl.Action) (actionOutcome, error) {
	if _, err := e.rebuildCatalog(ctx, catalog.ReasonExplicitRefresh); err != nil {
		return actionOutcome{}, resilience.NewActionError("refresh_catalog", resilience.KindUnknown, err)
	}
	return actionOutcome{}, nil
}

