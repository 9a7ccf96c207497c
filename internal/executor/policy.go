package executor

import (
	"time"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// Stabilize names the post-action quiescence predicate the executor waits on after a
// successful attempt.
type Stabilize string

const (
	StabilizeNone        Stabilize = "none"
	StabilizeNavigation  Stabilize = "navigation"
	StabilizeDOMShort    Stabilize = "dom_quiescent_short"
	StabilizeDOMMedium   Stabilize = "dom_quiescent_medium"
	StabilizeInputEvent  Stabilize = "input_event"
	StabilizeChangeEvent Stabilize = "change_event"
)

// Policy is the per-action-kind adaptive policy: timeout, retry count, and what "settled"
// means afterward.
type Policy struct {
	Timeout   time.Duration
	Retries   int
	Stabilize Stabilize
}

// policies is the default policy table. All entries are overridable per-action by
// options.ms, which replaces Timeout only.
var policies = map[dsl.Kind]Policy{
	dsl.KindNavigate:       {Timeout: 15 * time.Second, Retries: 5, Stabilize: StabilizeNavigation},
	dsl.KindClick:          {Timeout: 10 * time.Second, Retries: 4, Stabilize: StabilizeDOMShort},
	dsl.KindType:           {Timeout: 20 * time.Second, Retries: 3, Stabilize: StabilizeInputEvent},
	dsl.KindSelect:         {Timeout: 10 * time.Second, Retries: 3, Stabilize: StabilizeChangeEvent},
	dsl.KindHover:          {Timeout: 5 * time.Second, Retries: 2, Stabilize: StabilizeNone},
	dsl.KindPressKey:       {Timeout: 7 * time.Second, Retries: 2, Stabilize: StabilizeDOMShort},
	dsl.KindWait:           {Timeout: 0, Retries: 1, Stabilize: StabilizeNone},
	dsl.KindWaitForSel:     {Timeout: 7 * time.Second, Retries: 2, Stabilize: StabilizeNone},
	dsl.KindEvalJS:         {Timeout: 10 * time.Second, Retries: 1, Stabilize: StabilizeNone},
	dsl.KindScroll:         {Timeout: 5 * time.Second, Retries: 2, Stabilize: StabilizeDOMMedium},
	dsl.KindScrollToText:   {Timeout: 5 * time.Second, Retries: 2, Stabilize: StabilizeDOMMedium},
	dsl.KindScreenshot:     {Timeout: 15 * time.Second, Retries: 2, Stabilize: StabilizeNone},
	dsl.KindExtract:        {Timeout: 15 * time.Second, Retries: 2, Stabilize: StabilizeNone},
	dsl.KindAssert:         {Timeout: 5 * time.Second, Retries: 1, Stabilize: StabilizeNone},
	dsl.KindSwitchTab:      {Timeout: 10 * time.Second, Retries: 2, Stabilize: StabilizeDOMShort},
	dsl.KindFocusIframe:    {Timeout: 5 * time.Second, Retries: 2, Stabilize: StabilizeNone},
	dsl.KindGoBack:         {Timeout: 10 * time.Second, Retries: 3, Stabilize: StabilizeNavigation},
	dsl.KindGoForward:      {Timeout: 10 * time.Second, Retries: 3, Stabilize: StabilizeNavigation},
	dsl.KindClosePopup:     {Timeout: 5 * time.Second, Retries: 2, Stabilize: StabilizeDOMShort},
	dsl.KindClickBlankArea: {Timeout: 5 * time.Second, Retries: 2, Stabilize: StabilizeDOMShort},
	dsl.KindRefreshCatalog: {Timeout: 10 * time.Second, Retries: 1, Stabilize: StabilizeNone},
}

// DefaultPolicy is used for any kind missing from the table (should not happen for a
// validated plan, but keeps the executor total).
var DefaultPolicy = Policy{Timeout: 10 * time.Second, Retries: 3, Stabilize: StabilizeNone}

// policyFor resolves the effective policy for an action, applying options.ms as a timeout
// override when present.
func policyFor(act dsl.Action) Policy {
	p, ok := policies[act.Kind]
	if !ok {
		p = DefaultPolicy
	}
	if act.Options.MS > 0 {
		p.Timeout = time.Duration(act.Options.MS) * time.Millisecond
	}
	return p
}
