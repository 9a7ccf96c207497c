package executor

import (
	"context"
	"time"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// fakeCapability is a minimal in-memory stand-in for a browsercap.Capability, letting executor
// tests drive specific scenarios (navigation failure, click fallback, catalog staleness) without
// a real browser.
type fakeCapability struct {
	url      string
	title    string
	html     string
	frames   []string
	viewport string
	nodes    []catalog.RawNode

	findResult map[string][]selector.Handle
	findErr    error

	navigateErr error
	navigateN   int

	evalResult string
	evalErr    error
	evalCalls  []string

	healthy bool
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{
		url:        "https://example.com/start",
		title:      "start",
		viewport:   "1280x720",
		findResult: map[string][]selector.Handle{},
		healthy:    true,
	}
}

func (f *fakeCapability) Find(ctx context.Context, sel dsl.Selector) ([]selector.Handle, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findResult[sel.String()], nil
}

func (f *fakeCapability) DocumentReady(ctx context.Context) (bool, error) { return f.healthy, nil }
func (f *fakeCapability) EvalTrivial(ctx context.Context) error {
	if !f.healthy {
		return errUnhealthy
	}
	return nil
}
func (f *fakeCapability) NavigationAge(ctx context.Context) (time.Duration, error) { return 0, nil }

func (f *fakeCapability) Navigate(ctx context.Context, url string, until dsl.Until) (Observation, error) {
	f.navigateN++
	if f.navigateErr != nil {
		return Observation{}, f.navigateErr
	}
	f.url = url
	return Observation{URL: url}, nil
}

func (f *fakeCapability) GoBack(ctx context.Context) (Observation, error)    { return Observation{}, nil }
func (f *fakeCapability) GoForward(ctx context.Context) (Observation, error) { return Observation{}, nil }
func (f *fakeCapability) CurrentURL(ctx context.Context) (string, error)    { return f.url, nil }
func (f *fakeCapability) Title(ctx context.Context) (string, error)         { return f.title, nil }
func (f *fakeCapability) HTML(ctx context.Context) (string, error)          { return f.html, nil }
func (f *fakeCapability) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return []byte("png"), nil
}

func (f *fakeCapability) EvaluateJS(ctx context.Context, expression string) (string, error) {
	f.evalCalls = append(f.evalCalls, expression)
	return f.evalResult, f.evalErr
}

func (f *fakeCapability) ListFrames(ctx context.Context) ([]string, error) { return f.frames, nil }
func (f *fakeCapability) SwitchTab(ctx context.Context, index int) error   { return nil }
func (f *fakeCapability) PressKey(ctx context.Context, key string) error   { return nil }
func (f *fakeCapability) Scroll(ctx context.Context, dx, dy int) error     { return nil }
func (f *fakeCapability) Nodes(ctx context.Context) ([]catalog.RawNode, error) {
	return f.nodes, nil
}
func (f *fakeCapability) Viewport(ctx context.Context) (string, error) { return f.viewport, nil }
func (f *fakeCapability) RefreshContext(ctx context.Context, preserveURL bool) error {
	return nil
}
func (f *fakeCapability) Close(ctx context.Context) error { return nil }

var errUnhealthy = &testError{"browser unhealthy"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

// fakeHandle implements both selector.Handle and browsercap.ActionHandle, letting tests control
// exactly which rung of a fallback ladder succeeds.
type fakeHandle struct {
	visible, attached, enabled bool
	readOnly                   bool
	box                        catalog.BBox

	clickErr         error
	jsClickErr       error
	dispatchClickErr error
	clickCalls       int
	jsClickCalls     int
	dispatchCalls    int

	typeErr    error
	typeCalls  int
	value      string
	valueErr   error

	hoverErr        error
	selectErr       error
	selectByLblErr  error
	selectCalls     int
	selectLblCalls  int
}

func newReadyHandle() *fakeHandle {
	return &fakeHandle{visible: true, attached: true, enabled: true}
}

func (h *fakeHandle) BoundingBox(ctx context.Context) (catalog.BBox, error) { return h.box, nil }
func (h *fakeHandle) Visible(ctx context.Context) (bool, error)             { return h.visible, nil }
func (h *fakeHandle) Attached(ctx context.Context) (bool, error)            { return h.attached, nil }
func (h *fakeHandle) Enabled(ctx context.Context) (bool, error)             { return h.enabled, nil }
func (h *fakeHandle) ReadOnly(ctx context.Context) (bool, error)            { return h.readOnly, nil }

func (h *fakeHandle) Click(ctx context.Context, button string, count int, force bool) error {
	h.clickCalls++
	return h.clickErr
}
func (h *fakeHandle) JSClick(ctx context.Context) error {
	h.jsClickCalls++
	return h.jsClickErr
}
func (h *fakeHandle) DispatchClick(ctx context.Context) error {
	h.dispatchCalls++
	return h.dispatchClickErr
}
func (h *fakeHandle) Type(ctx context.Context, value string, clear bool) error {
	h.typeCalls++
	if h.typeErr != nil {
		return h.typeErr
	}
	h.value = value
	return nil
}
func (h *fakeHandle) Value(ctx context.Context) (string, error) { return h.value, h.valueErr }
func (h *fakeHandle) Hover(ctx context.Context) error           { return h.hoverErr }
func (h *fakeHandle) SelectOption(ctx context.Context, value string) error {
	h.selectCalls++
	return h.selectErr
}
func (h *fakeHandle) SelectByLabel(ctx context.Context, label string) error {
	h.selectLblCalls++
	return h.selectByLblErr
}
