package browsercap

import "fmt"

// Backend selects which browsercap implementation New constructs.
type Backend string

const (
	BackendPlaywright Backend = "playwright"
	BackendChromedp   Backend = "chromedp"
)

// Config is the union of both backends' settings; New reads only the fields relevant to the
// selected Backend.
type Config struct {
	Backend    Backend
	Playwright PlaywrightConfig
	Chromedp   ChromedpConfig
}

// New constructs the configured Capability backend.
func New(cfg Config) (Capability, error) {
	switch cfg.Backend {
	case "", BackendPlaywright:
		return NewPlaywrightCapability(cfg.Playwright)
	case BackendChromedp:
		return NewChromedpCapability(cfg.Chromedp)
	default:
		return nil, fmt.Errorf("browsercap: unknown backend %q", cfg.Backend)
	}
}
