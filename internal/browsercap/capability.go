// Package browsercap implements the narrow browser capability interface the executor drives:
// navigate, click, type, snapshot DOM, screenshot, evaluate script. Two backends are provided:
// a Playwright-driven one that owns its own browser process, and a chromedp/CDP one that
// attaches to an externally running Chrome instance. Selection is controlled by
// internal/config's WEBAGENT_BROWSER_BACKEND setting.
package browsercap

import (
	"context"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/resilience"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// Observation is the page-state readout returned after any action that may have navigated.
type Observation struct {
	URL         string
	Title       string
	NavDetected bool
}

// ActionHandle is the mutating half of an element handle. Every concrete handle a backend
// returns from Find satisfies both selector.Handle (read-only readiness checks) and
// ActionHandle; the executor resolves via internal/selector (which only needs the read-only
// half) and then type-asserts the returned selector.Handle to ActionHandle to perform the
// requested mutation, keeping internal/selector free of any action-specific vocabulary.
type ActionHandle interface {
	Click(ctx context.Context, button string, count int, force bool) error
	// JSClick and DispatchClick back the click fallback ladder's third and fourth rungs
	// (a JS-level click(), then a synthetic click: mouse press and release at the element's
	// center on chromedp, a dispatched DOM "click" event on Playwright), tried after the native
	// click and force-click rungs fail.
	JSClick(ctx context.Context) error
	DispatchClick(ctx context.Context) error
	Type(ctx context.Context, value string, clear bool) error
	// Value reads the element's current input value, used both to verify a type action landed
	// and by the fill+verify-once retry when autocomplete captures a substring.
	Value(ctx context.Context) (string, error)
	Hover(ctx context.Context) error
	SelectOption(ctx context.Context, value string) error
	// SelectByLabel backs the select fallback ladder's second rung ("by label"), tried when
	// selecting by option value fails.
	SelectByLabel(ctx context.Context, label string) error
}

// Capability is everything the DSL executor needs from a live browser session.
type Capability interface {
	selector.Finder
	resilience.HealthProbe

	Navigate(ctx context.Context, url string, until dsl.Until) (Observation, error)
	GoBack(ctx context.Context) (Observation, error)
	GoForward(ctx context.Context) (Observation, error)
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	EvaluateJS(ctx context.Context, expression string) (string, error)
	ListFrames(ctx context.Context) ([]string, error)
	SwitchTab(ctx context.Context, index int) error
	PressKey(ctx context.Context, key string) error
	Scroll(ctx context.Context, dx, dy int) error
	Nodes(ctx context.Context) ([]catalog.RawNode, error)
	Viewport(ctx context.Context) (string, error)
	// RefreshContext tears down and recreates the browser context, optionally re-navigating to
	// the URL it was on beforehand.
	RefreshContext(ctx context.Context, preserveURL bool) error
	Close(ctx context.Context) error
}
