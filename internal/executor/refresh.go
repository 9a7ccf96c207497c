package executor

import (
	"context"
	"strings"

	"github.com/kestrelbrowse/webagent/internal/catalog"
)

// skippedURLPrefixes are schemes the refresh cycle never re-navigates to, even if that was the
// page's URL before teardown.
var skippedURLPrefixes = []string{"about:", "chrome:", "data:"}

// refreshContext recreates the browser context every RefreshInterval completed actions,
// preserving the current URL unless it matches one of the skipped prefixes or the configured
// start URL.
func (e *Executor) refreshContext(ctx context.Context) error {
	current, err := e.cap.CurrentURL(ctx)
	if err != nil {
		current = ""
	}

	preserve := current != "" && current != e.cfg.StartURL && !hasSkippedPrefix(current)
	if err := e.cap.RefreshContext(ctx, preserve); err != nil {
		return err
	}

	if _, err := e.rebuildCatalog(ctx, catalog.Reason("browser_refresh")); err != nil {
		return err
	}
	return nil
}

func hasSkippedPrefix(url string) bool {
	for _, prefix := range skippedURLPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}
