package dsl

// Package dsl implements the browser-automation action language: the Action/Selector/Options
// data model, wire-format normalization between the structured and legacy flat forms, and plan
// validation (size limits, URL syntax, selector presence).

// Kind enumerates the action verbs a plan step may carry.
type Kind string

const (
	KindNavigate       Kind = "navigate"
	KindClick          Kind = "click"
	KindType           Kind = "type"
	KindSelect         Kind = "select"
	KindHover          Kind = "hover"
	KindPressKey       Kind = "press_key"
	KindWait           Kind = "wait"
	KindWaitForSel     Kind = "wait_for_selector"
	KindScroll         Kind = "scroll"
	KindScrollToText   Kind = "scroll_to_text"
	KindEvalJS         Kind = "eval_js"
	KindScreenshot     Kind = "screenshot"
	KindExtract        Kind = "extract"
	KindAssert         Kind = "assert"
	KindSwitchTab      Kind = "switch_tab"
	KindFocusIframe    Kind = "focus_iframe"
	KindGoBack         Kind = "go_back"
	KindGoForward      Kind = "go_forward"
	KindClosePopup     Kind = "close_popup"
	KindClickBlankArea Kind = "click_blank_area"
	KindRefreshCatalog Kind = "refresh_catalog"
)

// knownKinds backs validation; every Kind constant above must be listed here.
var knownKinds = map[Kind]bool{
	KindNavigate: true, KindClick: true, KindType: true, KindSelect: true,
	KindHover: true, KindPressKey: true, KindWait: true, KindWaitForSel: true,
	KindScroll: true, KindScrollToText: true, KindEvalJS: true, KindScreenshot: true,
	KindExtract: true, KindAssert: true, KindSwitchTab: true, KindFocusIframe: true,
	KindGoBack: true, KindGoForward: true, KindClosePopup: true, KindClickBlankArea: true,
	KindRefreshCatalog: true,
}

// requiresTarget is the set of kinds whose Target selector must be non-empty after
// normalization.
var requiresTarget = map[Kind]bool{
	KindClick: true, KindType: true, KindSelect: true, KindHover: true,
	KindWaitForSel: true, KindScrollToText: true,
}

// Until enumerates the wait condition a navigate/wait action blocks on.
type Until string

const (
	UntilLoad              Until = "load"
	UntilDOMContentLoaded  Until = "domcontentloaded"
	UntilNetworkIdle       Until = "networkidle"
	UntilSelectorVisible   Until = "selector"
	UntilTimeout           Until = "timeout"
)

// Options carries the optional per-action knobs. Zero values mean "use the executor's
// per-kind default."
type Options struct {
	MS     int    `json:"ms,omitempty"`
	Clear  bool   `json:"clear,omitempty"`
	Button string `json:"button,omitempty"`
	Count  int    `json:"count,omitempty"`
	Force  bool   `json:"force,omitempty"`
	Until  Until  `json:"until,omitempty"`
	Key    string `json:"key,omitempty"`
}

// Action is one step of a plan: a verb, an optional target selector, a value payload
// (navigate URL, typed text, select option, eval expression), and options.
type Action struct {
	Kind    Kind      `json:"kind"`
	Target  *Selector `json:"target,omitempty"`
	Value   string    `json:"value,omitempty"`
	Options Options   `json:"options,omitempty"`
}

// Plan is an ordered sequence of actions together with the catalog version the planner saw
// when it produced them, used to detect a stale catalog before executing against it.
type Plan struct {
	Actions                []Action `json:"actions"`
	ExpectedCatalogVersion string   `json:"expected_catalog_version,omitempty"`
}
