package browsercap

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// ChromedpConfig configures the chromedp-backed capability, which attaches to an externally
// running Chrome instance over the DevTools Protocol rather than launching its own.
type ChromedpConfig struct {
	DebugURL string
	Timeout  time.Duration
}

// ChromedpCapability drives an attached Chrome tab via chromedp: a long-lived allocator/task
// context pair, with every action run against it.
type ChromedpCapability struct {
	cfg         ChromedpConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	taskCtx     context.Context
	taskCancel  context.CancelFunc
	navAt       time.Time
}

// NewChromedpCapability attaches to the first available page target at cfg.DebugURL.
func NewChromedpCapability(cfg ChromedpConfig) (*ChromedpCapability, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DebugURL == "" {
		cfg.DebugURL = "http://localhost:9222"
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), cfg.DebugURL)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(taskCtx); err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("browsercap: failed to attach to chrome at %s: %w", cfg.DebugURL, err)
	}

	return &ChromedpCapability{cfg: cfg, allocCtx: allocCtx, allocCancel: allocCancel, taskCtx: taskCtx, taskCancel: taskCancel}, nil
}

// run executes actions against the attached session, bounded by the caller's context deadline
// when one is set.
func (c *ChromedpCapability) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := c.taskCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(c.taskCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (c *ChromedpCapability) Close(ctx context.Context) error {
	c.taskCancel()
	c.allocCancel()
	return nil
}

func (c *ChromedpCapability) RefreshContext(ctx context.Context, preserveURL bool) error {
	var currentURL string
	if preserveURL {
		_ = c.run(ctx, chromedp.Location(&currentURL))
	}

	c.taskCancel()
	taskCtx, taskCancel := chromedp.NewContext(c.allocCtx)
	if err := chromedp.Run(taskCtx); err != nil {
		taskCancel()
		return fmt.Errorf("browsercap: failed to recreate chrome tab: %w", err)
	}
	c.taskCtx, c.taskCancel = taskCtx, taskCancel

	if currentURL != "" {
		if _, err := c.Navigate(ctx, currentURL, dsl.UntilLoad); err != nil {
			return fmt.Errorf("browsercap: failed to restore url after context refresh: %w", err)
		}
	}
	return nil
}

func (c *ChromedpCapability) Navigate(ctx context.Context, url string, until dsl.Until) (Observation, error) {
	var before string
	_ = c.run(ctx, chromedp.Location(&before))

	c.navAt = time.Now()
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return Observation{}, fmt.Errorf("browsercap: navigate failed: %w", err)
	}
	if until == dsl.UntilNetworkIdle {
		_ = c.run(ctx, chromedp.Sleep(500*time.Millisecond))
	}
	c.navAt = time.Time{}

	var after, title string
	if err := c.run(ctx, chromedp.Location(&after), chromedp.Title(&title)); err != nil {
		return Observation{}, fmt.Errorf("browsercap: failed to read post-navigate state: %w", err)
	}
	return Observation{URL: after, Title: title, NavDetected: after != before}, nil
}

func (c *ChromedpCapability) GoBack(ctx context.Context) (Observation, error) {
	var before, after, title string
	_ = c.run(ctx, chromedp.Location(&before))
	if err := c.run(ctx, chromedp.NavigateBack()); err != nil {
		return Observation{}, fmt.Errorf("browsercap: go_back failed: %w", err)
	}
	_ = c.run(ctx, chromedp.Location(&after), chromedp.Title(&title))
	return Observation{URL: after, Title: title, NavDetected: after != before}, nil
}

func (c *ChromedpCapability) GoForward(ctx context.Context) (Observation, error) {
	var before, after, title string
	_ = c.run(ctx, chromedp.Location(&before))
	if err := c.run(ctx, chromedp.NavigateForward()); err != nil {
		return Observation{}, fmt.Errorf("browsercap: go_forward failed: %w", err)
	}
	_ = c.run(ctx, chromedp.Location(&after), chromedp.Title(&title))
	return Observation{URL: after, Title: title, NavDetected: after != before}, nil
}

func (c *ChromedpCapability) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, chromedp.Location(&url))
	return url, err
}

func (c *ChromedpCapability) Title(ctx context.Context) (string, error) {
	var title string
	err := c.run(ctx, chromedp.Title(&title))
	return title, err
}

func (c *ChromedpCapability) HTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html))
	return html, err
}

func (c *ChromedpCapability) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var err error
	if fullPage {
		err = c.run(ctx, chromedp.FullScreenshot(&buf, 90))
	} else {
		err = c.run(ctx, chromedp.CaptureScreenshot(&buf))
	}
	return buf, err
}

func (c *ChromedpCapability) EvaluateJS(ctx context.Context, expression string) (string, error) {
	var result string
	if err := c.run(ctx, chromedp.Evaluate(expression, &result)); err != nil {
		return "", fmt.Errorf("browsercap: eval failed: %w", err)
	}
	return result, nil
}

func (c *ChromedpCapability) ListFrames(ctx context.Context) ([]string, error) {
	var urls []string
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		urls = collectFrameURLs(tree, nil)
		return nil
	}))
	return urls, err
}

func collectFrameURLs(tree *page.FrameTree, into []string) []string {
	if tree == nil {
		return into
	}
	into = append(into, tree.Frame.URL)
	for _, child := range tree.ChildFrames {
		into = collectFrameURLs(child, into)
	}
	return into
}

func (c *ChromedpCapability) SwitchTab(ctx context.Context, index int) error {
	targets, err := chromedp.Targets(c.taskCtx)
	if err != nil {
		return fmt.Errorf("browsercap: failed to list tabs: %w", err)
	}
	pages := make([]*chromedp.Target, 0, len(targets))
	for _, t := range targets {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("browsercap: tab index %d out of range (%d tabs)", index, len(pages))
	}

	c.taskCancel()
	taskCtx, taskCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(pages[index].TargetID))
	if err := chromedp.Run(taskCtx); err != nil {
		taskCancel()
		return fmt.Errorf("browsercap: failed to switch tab: %w", err)
	}
	c.taskCtx, c.taskCancel = taskCtx, taskCancel
	return nil
}

func (c *ChromedpCapability) PressKey(ctx context.Context, key string) error {
	return c.run(ctx, chromedp.KeyEvent(key))
}

func (c *ChromedpCapability) Scroll(ctx context.Context, dx, dy int) error {
	return c.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy), nil))
}

func (c *ChromedpCapability) Viewport(ctx context.Context) (string, error) {
	var w, h int64
	err := c.run(ctx, chromedp.Evaluate("window.innerWidth", &w), chromedp.Evaluate("window.innerHeight", &h))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%dx%d", w, h), nil
}

func (c *ChromedpCapability) DocumentReady(ctx context.Context) (bool, error) {
	var state string
	if err := c.run(ctx, chromedp.Evaluate("document.readyState", &state)); err != nil {
		return false, err
	}
	return state == "complete" || state == "interactive", nil
}

func (c *ChromedpCapability) EvalTrivial(ctx context.Context) error {
	var result int
	return c.run(ctx, chromedp.Evaluate("1+1", &result))
}

func (c *ChromedpCapability) NavigationAge(ctx context.Context) (time.Duration, error) {
	if c.navAt.IsZero() {
		return 0, nil
	}
	return time.Since(c.navAt), nil
}

func (c *ChromedpCapability) Nodes(ctx context.Context) ([]catalog.RawNode, error) {
	var raw string
	if err := c.run(ctx, chromedp.Evaluate(domWalkerScript, &raw)); err != nil {
		return nil, fmt.Errorf("browsercap: node enumeration failed: %w", err)
	}
	return decodeRawNodes(raw)
}

// Find locates every element matching sel using chromedp's query options, resolving each match
// to a *cdp.Node wrapped in a chromedpHandle.
func (c *ChromedpCapability) Find(ctx context.Context, sel dsl.Selector) ([]selector.Handle, error) {
	query, opt, err := queryFor(sel)
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(query, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("browsercap: query failed: %w", err)
	}

	handles := make([]selector.Handle, 0, len(nodes))
	for _, n := range nodes {
		handles = append(handles, &chromedpHandle{cap: c, node: n})
	}
	return handles, nil
}

func queryFor(sel dsl.Selector) (string, chromedp.QueryOption, error) {
	switch sel.Strategy {
	case dsl.StrategyCSS:
		return sel.Value, chromedp.ByQueryAll, nil
	case dsl.StrategyXPath:
		return sel.Value, chromedp.BySearch, nil
	case dsl.StrategyText:
		return fmt.Sprintf("//*[contains(text(), %q)]", sel.Value), chromedp.BySearch, nil
	case dsl.StrategyAriaLabel:
		return fmt.Sprintf(`[aria-label=%q]`, sel.Value), chromedp.ByQueryAll, nil
	case dsl.StrategyTestID:
		return fmt.Sprintf(`[data-testid=%q]`, sel.Value), chromedp.ByQueryAll, nil
	case dsl.StrategyRole:
		return fmt.Sprintf(`[role=%q]`, sel.Value), chromedp.ByQueryAll, nil
	default:
		return "", nil, fmt.Errorf("browsercap: index=N selectors are resolved against the catalog, not the backend")
	}
}

type chromedpHandle struct {
	cap  *ChromedpCapability
	node *cdp.Node
}

func (h *chromedpHandle) BoundingBox(ctx context.Context) (catalog.BBox, error) {
	return h.cap.boundingBox(ctx, h.node)
}

// boundingBox reads a node's box model via the DOM domain, shared by BoundingBox and Hover
// (which needs the box's center point to dispatch a mouse-moved event).
func (c *ChromedpCapability) boundingBox(ctx context.Context, node *cdp.Node) (catalog.BBox, error) {
	var box *dom.BoxModel
	err := c.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil || box == nil || len(box.Content) < 4 {
		return catalog.BBox{}, err
	}
	return catalog.BBox{X: box.Content[0], Y: box.Content[1], W: box.Width, H: box.Height}, nil
}

// callOnNode resolves h.node to a remote JS object and invokes fn with it bound as `this`,
// decoding the result into out. This is the standard CDP pattern for evaluating an expression
// scoped to a specific DOM node rather than the page's global `document`.
func (h *chromedpHandle) callOnNode(ctx context.Context, fn string, out interface{}) error {
	return h.cap.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(h.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		result, _, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		return json.Unmarshal(result.Value, out)
	}))
}

func (h *chromedpHandle) Visible(ctx context.Context) (bool, error) {
	var visible bool
	err := h.callOnNode(ctx, `function() { const r = this.getBoundingClientRect(); return r.width > 0 && r.height > 0; }`, &visible)
	return visible, err
}

func (h *chromedpHandle) Attached(ctx context.Context) (bool, error) {
	var attached bool
	err := h.callOnNode(ctx, `function() { return document.contains(this); }`, &attached)
	return attached, err
}

func (h *chromedpHandle) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := h.callOnNode(ctx, `function() { return !this.disabled; }`, &enabled)
	return enabled, err
}

func (h *chromedpHandle) ReadOnly(ctx context.Context) (bool, error) {
	var readOnly bool
	err := h.callOnNode(ctx, `function() { return !!this.readOnly; }`, &readOnly)
	return readOnly, err
}

func (h *chromedpHandle) Click(ctx context.Context, button string, count int, force bool) error {
	return h.cap.run(ctx, chromedp.MouseClickNode(h.node))
}

// JSClick backs the click ladder's third rung: invoke the element's own click() rather than
// dispatching a synthetic mouse event, which still works when the element is covered by an
// overlay a real pointer click would miss.
func (h *chromedpHandle) JSClick(ctx context.Context) error {
	var ignored bool
	return h.callOnNode(ctx, `function() { this.click(); return true; }`, &ignored)
}

// DispatchClick backs the click ladder's fourth and final rung: a coordinate-based
// mousePressed/mouseReleased pair at the element's center, bypassing element-level event
// handlers entirely.
func (h *chromedpHandle) DispatchClick(ctx context.Context) error {
	box, err := h.cap.boundingBox(ctx, h.node)
	if err != nil {
		return err
	}
	return h.cap.run(ctx, chromedp.MouseClickXY(box.X+box.W/2, box.Y+box.H/2))
}

func (h *chromedpHandle) Type(ctx context.Context, value string, clear bool) error {
	actions := []chromedp.Action{chromedp.Focus([]cdp.NodeID{h.node.NodeID}, chromedp.ByNodeID)}
	if clear {
		actions = append(actions, chromedp.SetValue([]cdp.NodeID{h.node.NodeID}, "", chromedp.ByNodeID))
	}
	actions = append(actions, chromedp.SendKeys([]cdp.NodeID{h.node.NodeID}, value, chromedp.ByNodeID))
	return h.cap.run(ctx, actions...)
}

func (h *chromedpHandle) Value(ctx context.Context) (string, error) {
	var value string
	err := h.callOnNode(ctx, `function() { return this.value || ""; }`, &value)
	return value, err
}

func (h *chromedpHandle) Hover(ctx context.Context) error {
	box, err := h.cap.boundingBox(ctx, h.node)
	if err != nil {
		return err
	}
	return h.cap.run(ctx, chromedp.MouseEvent(input.MouseMoved, box.X+box.W/2, box.Y+box.H/2))
}

func (h *chromedpHandle) SelectOption(ctx context.Context, value string) error {
	return h.cap.run(ctx, chromedp.SetValue([]cdp.NodeID{h.node.NodeID}, value, chromedp.ByNodeID))
}

// SelectByLabel backs the select fallback ladder's second rung: match an <option> by its
// visible text rather than its value attribute, for <select> elements whose option values
// don't match what the planner read off the rendered page.
func (h *chromedpHandle) SelectByLabel(ctx context.Context, label string) error {
	var matched bool
	script := fmt.Sprintf(`function() {
		for (const opt of this.options) {
			if (opt.textContent.trim() === %s) {
				this.value = opt.value;
				this.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	}`, jsonQuote(label))
	if err := h.callOnNode(ctx, script, &matched); err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("browsercap: no option with label %q", label)
	}
	return nil
}

// jsonQuote renders s as a JSON string literal for embedding in an inline script.
func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
