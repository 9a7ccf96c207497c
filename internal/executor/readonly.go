package executor

import "context"

// These accessors back the read-only HTTP endpoints (GET /source, /screenshot, /url) and may
// run concurrently with an in-flight plan: planning and non-mutating reads (screenshot, HTML
// snapshot) are deliberately carved out of the browser lock rather than serialized behind it.

// CurrentHTML returns the current page's HTML without acquiring the browser lock.
func (e *Executor) CurrentHTML(ctx context.Context) (string, error) {
	return e.cap.HTML(ctx)
}

// CurrentScreenshot returns a full-page PNG screenshot without acquiring the browser lock.
func (e *Executor) CurrentScreenshot(ctx context.Context) ([]byte, error) {
	return e.cap.Screenshot(ctx, true)
}

// CurrentURL returns the page's current URL without acquiring the browser lock.
func (e *Executor) CurrentURL(ctx context.Context) (string, error) {
	return e.cap.CurrentURL(ctx)
}
