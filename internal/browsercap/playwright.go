package browsercap

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kestrelbrowse/webagent/internal/catalog"
	"github.com/kestrelbrowse/webagent/internal/dsl"
	"github.com/kestrelbrowse/webagent/internal/selector"
)

// PlaywrightConfig configures the Playwright-backed capability: a single browser session the
// executor owns exclusively under the browser lock.
type PlaywrightConfig struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	Timeout        time.Duration
	RemoteURL      string
	StartURL       string
}

// PlaywrightCapability drives a single Chromium session via playwright-go.
type PlaywrightCapability struct {
	cfg     PlaywrightConfig
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
	page    playwright.Page
	navAt   time.Time
}

// NewPlaywrightCapability launches (or connects to, if RemoteURL is set) a Chromium browser and
// opens one page.
func NewPlaywrightCapability(cfg PlaywrightConfig) (*PlaywrightCapability, error) {
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 800
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.RemoteURL == "" {
		if err := playwright.Install(&playwright.RunOptions{Verbose: false}); err != nil {
			return nil, fmt.Errorf("browsercap: failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("browsercap: failed to start playwright: %w", err)
	}

	c := &PlaywrightCapability{cfg: cfg, pw: pw}
	if err := c.launch(); err != nil {
		pw.Stop()
		return nil, err
	}
	return c, nil
}

func (c *PlaywrightCapability) launch() error {
	var browser playwright.Browser
	var err error
	if c.cfg.RemoteURL != "" {
		browser, err = c.pw.Chromium.Connect(c.cfg.RemoteURL)
	} else {
		browser, err = c.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.cfg.Headless),
			Timeout:  playwright.Float(float64(c.cfg.Timeout.Milliseconds())),
		})
	}
	if err != nil {
		return fmt.Errorf("browsercap: failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:          &playwright.Size{Width: c.cfg.ViewportWidth, Height: c.cfg.ViewportHeight},
		AcceptDownloads:   playwright.Bool(true),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		return fmt.Errorf("browsercap: failed to create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return fmt.Errorf("browsercap: failed to open page: %w", err)
	}
	page.SetDefaultTimeout(float64(c.cfg.Timeout.Milliseconds()))

	c.browser, c.ctx, c.page = browser, browserCtx, page
	return nil
}

func (c *PlaywrightCapability) teardown() {
	if c.page != nil {
		c.page.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}
	if c.browser != nil {
		c.browser.Close()
	}
}

// RefreshContext closes and relaunches the browser context, re-navigating to the page's current
// URL first if preserveURL is set.
func (c *PlaywrightCapability) RefreshContext(ctx context.Context, preserveURL bool) error {
	var currentURL string
	if preserveURL && c.page != nil {
		currentURL = c.page.URL()
	}

	c.teardown()
	if err := c.launch(); err != nil {
		return err
	}

	if currentURL != "" {
		if _, err := c.Navigate(ctx, currentURL, dsl.UntilLoad); err != nil {
			return fmt.Errorf("browsercap: failed to restore url after context refresh: %w", err)
		}
	}
	return nil
}

func (c *PlaywrightCapability) Close(ctx context.Context) error {
	c.teardown()
	if c.pw != nil {
		return c.pw.Stop()
	}
	return nil
}

func untilToWaitState(u dsl.Until) playwright.WaitUntilState {
	switch u {
	case dsl.UntilDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	case dsl.UntilNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateLoad
	}
}

func (c *PlaywrightCapability) Navigate(ctx context.Context, url string, until dsl.Until) (Observation, error) {
	c.navAt = time.Now()
	before := ""
	if c.page != nil {
		before = c.page.URL()
	}

	if _, err := c.page.Goto(url, playwright.PageGotoOptions{WaitUntil: untilToWaitState(until)}); err != nil {
		return Observation{}, fmt.Errorf("browsercap: navigate failed: %w", err)
	}
	c.navAt = time.Time{}

	after := c.page.URL()
	title, _ := c.page.Title()
	return Observation{URL: after, Title: title, NavDetected: after != before}, nil
}

func (c *PlaywrightCapability) GoBack(ctx context.Context) (Observation, error) {
	before := c.page.URL()
	if _, err := c.page.GoBack(); err != nil {
		return Observation{}, fmt.Errorf("browsercap: go_back failed: %w", err)
	}
	after := c.page.URL()
	title, _ := c.page.Title()
	return Observation{URL: after, Title: title, NavDetected: after != before}, nil
}

func (c *PlaywrightCapability) GoForward(ctx context.Context) (Observation, error) {
	before := c.page.URL()
	if _, err := c.page.GoForward(); err != nil {
		return Observation{}, fmt.Errorf("browsercap: go_forward failed: %w", err)
	}
	after := c.page.URL()
	title, _ := c.page.Title()
	return Observation{URL: after, Title: title, NavDetected: after != before}, nil
}

func (c *PlaywrightCapability) CurrentURL(ctx context.Context) (string, error) {
	return c.page.URL(), nil
}

func (c *PlaywrightCapability) Title(ctx context.Context) (string, error) {
	return c.page.Title()
}

func (c *PlaywrightCapability) HTML(ctx context.Context) (string, error) {
	return c.page.Content()
}

func (c *PlaywrightCapability) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return c.page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(fullPage)})
}

func (c *PlaywrightCapability) EvaluateJS(ctx context.Context, expression string) (string, error) {
	result, err := c.page.Evaluate(expression)
	if err != nil {
		return "", fmt.Errorf("browsercap: eval failed: %w", err)
	}
	return fmt.Sprintf("%v", result), nil
}

func (c *PlaywrightCapability) ListFrames(ctx context.Context) ([]string, error) {
	frames := c.page.Frames()
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.URL())
	}
	return names, nil
}

func (c *PlaywrightCapability) SwitchTab(ctx context.Context, index int) error {
	pages := c.ctx.Pages()
	if index < 0 || index >= len(pages) {
		return fmt.Errorf("browsercap: tab index %d out of range (%d tabs)", index, len(pages))
	}
	c.page = pages[index]
	return nil
}

func (c *PlaywrightCapability) PressKey(ctx context.Context, key string) error {
	return c.page.Keyboard().Press(key)
}

func (c *PlaywrightCapability) Scroll(ctx context.Context, dx, dy int) error {
	_, err := c.page.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy))
	return err
}

func (c *PlaywrightCapability) Viewport(ctx context.Context) (string, error) {
	size := c.page.ViewportSize()
	if size == nil {
		return "", nil
	}
	return fmt.Sprintf("%dx%d", size.Width, size.Height), nil
}

func (c *PlaywrightCapability) DocumentReady(ctx context.Context) (bool, error) {
	result, err := c.page.Evaluate("document.readyState")
	if err != nil {
		return false, err
	}
	state, _ := result.(string)
	return state == "complete" || state == "interactive", nil
}

func (c *PlaywrightCapability) EvalTrivial(ctx context.Context) error {
	_, err := c.page.Evaluate("1+1")
	return err
}

func (c *PlaywrightCapability) NavigationAge(ctx context.Context) (time.Duration, error) {
	if c.navAt.IsZero() {
		return 0, nil
	}
	return time.Since(c.navAt), nil
}

// Nodes reports the current page's interactable elements as catalog.RawNode values. In
// production this evaluates a bundled DOM-walking script (querying every element satisfying
// the accessibility/interactivity predicates the catalog builder needs) and unmarshals its
// JSON result; the walking script itself lives alongside the other page-injected assets.
func (c *PlaywrightCapability) Nodes(ctx context.Context) ([]catalog.RawNode, error) {
	result, err := c.page.Evaluate(domWalkerScript)
	if err != nil {
		return nil, fmt.Errorf("browsercap: node enumeration failed: %w", err)
	}
	return decodeRawNodes(result)
}

// Find locates every element matching sel using Playwright's locator API, escalating through
// the strategies internal/selector already knows how to express as CSS/XPath/text.
func (c *PlaywrightCapability) Find(ctx context.Context, sel dsl.Selector) ([]selector.Handle, error) {
	locator, err := c.locatorFor(sel)
	if err != nil {
		return nil, err
	}
	count, err := locator.Count()
	if err != nil {
		return nil, fmt.Errorf("browsercap: locator count failed: %w", err)
	}

	handles := make([]selector.Handle, 0, count)
	for i := 0; i < count; i++ {
		handles = append(handles, &playwrightHandle{locator: locator.Nth(i)})
	}
	return handles, nil
}

func (c *PlaywrightCapability) locatorFor(sel dsl.Selector) (playwright.Locator, error) {
	switch sel.Strategy {
	case dsl.StrategyCSS:
		return c.page.Locator(sel.Value), nil
	case dsl.StrategyXPath:
		return c.page.Locator("xpath=" + sel.Value), nil
	case dsl.StrategyText:
		return c.page.GetByText(sel.Value), nil
	case dsl.StrategyAriaLabel:
		return c.page.GetByLabel(sel.Value), nil
	case dsl.StrategyTestID:
		return c.page.GetByTestId(sel.Value), nil
	case dsl.StrategyRole:
		return c.page.GetByRole(sel.Value, playwright.PageGetByRoleOptions{Name: sel.RoleName}), nil
	default:
		return nil, fmt.Errorf("browsercap: index=N selectors are resolved against the catalog, not the backend")
	}
}

type playwrightHandle struct {
	locator playwright.Locator
}

func (h *playwrightHandle) BoundingBox(ctx context.Context) (catalog.BBox, error) {
	box, err := h.locator.BoundingBox()
	if err != nil || box == nil {
		return catalog.BBox{}, err
	}
	return catalog.BBox{X: box.X, Y: box.Y, W: box.Width, H: box.Height}, nil
}

func (h *playwrightHandle) Visible(ctx context.Context) (bool, error) { return h.locator.IsVisible() }

func (h *playwrightHandle) Attached(ctx context.Context) (bool, error) {
	count, err := h.locator.Count()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *playwrightHandle) Enabled(ctx context.Context) (bool, error) { return h.locator.IsEnabled() }
func (h *playwrightHandle) ReadOnly(ctx context.Context) (bool, error) {
	value, err := h.locator.GetAttribute("readonly")
	if err != nil {
		return false, nil
	}
	return value != "", nil
}

func (h *playwrightHandle) Click(ctx context.Context, button string, count int, force bool) error {
	opts := playwright.LocatorClickOptions{Force: playwright.Bool(force)}
	if button != "" {
		opts.Button = playwright.MouseButton(button)
	}
	if count > 0 {
		opts.ClickCount = playwright.Int(count)
	}
	return h.locator.Click(opts)
}

func (h *playwrightHandle) JSClick(ctx context.Context) error {
	_, err := h.locator.Evaluate("el => el.click()", nil)
	return err
}

func (h *playwrightHandle) DispatchClick(ctx context.Context) error {
	return h.locator.DispatchEvent("click", nil)
}

func (h *playwrightHandle) Type(ctx context.Context, value string, clear bool) error {
	if clear {
		if err := h.locator.Fill(""); err != nil {
			return err
		}
	}
	return h.locator.PressSequentially(value)
}

func (h *playwrightHandle) Value(ctx context.Context) (string, error) {
	return h.locator.InputValue()
}

func (h *playwrightHandle) Hover(ctx context.Context) error { return h.locator.Hover() }

func (h *playwrightHandle) SelectOption(ctx context.Context, value string) error {
	_, err := h.locator.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	return err
}

func (h *playwrightHandle) SelectByLabel(ctx context.Context, label string) error {
	_, err := h.locator.SelectOption(playwright.SelectOptionValues{Labels: &[]string{label}})
	return err
}
