// Package resilience implements the retry/backoff, health-probe, browser-lock, and warning
// taxonomy shared by every layer of the browser automation core.
package resilience

import (
	"errors"
	"strings"
)

// ErrorKind is the closed set of error classifications an action can fail with.
type ErrorKind string

const (
	KindValidation           ErrorKind = "VALIDATION_ERROR"
	KindElementNotFound      ErrorKind = "ELEMENT_NOT_FOUND"
	KindElementNotInteract   ErrorKind = "ELEMENT_NOT_INTERACTABLE"
	KindCatalogOutdated      ErrorKind = "CATALOG_OUTDATED"
	KindNavigationFailed     ErrorKind = "NAVIGATION_FAILED"
	KindTimeout              ErrorKind = "TIMEOUT"
	KindBrowserUnhealthy     ErrorKind = "BROWSER_UNHEALTHY"
	KindExternalBlocked      ErrorKind = "EXTERNAL_BLOCKED"
	KindEvalFailed           ErrorKind = "EVAL_FAILED"
	KindCancelled            ErrorKind = "CANCELLED"
	KindUnknown              ErrorKind = "UNKNOWN"
)

// IsRetryable reports whether an error of this kind should be retried by the executor's
// per-action retry loop. Internal/transient kinds are retryable; validation and policy
// failures are not, and EVAL_FAILED is treated as user code, not transient.
func (k ErrorKind) IsRetryable() bool {
	switch k {
	case KindElementNotFound, KindElementNotInteract, KindTimeout, KindNavigationFailed, KindBrowserUnhealthy, KindCatalogOutdated:
		return true
	default:
		return false
	}
}

// ActionError is a structured error carrying the classification the retry loop and the
// warning/summary machinery both need to decide what to do next.
type ActionError struct {
	Kind    ErrorKind
	Source  string
	Message string
	Cause   error
}

func (e *ActionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *ActionError) Unwrap() error { return e.Cause }

// NewActionError builds an ActionError, inferring a kind from the cause's text when kind is
// left as KindUnknown.
func NewActionError(source string, kind ErrorKind, cause error) *ActionError {
	err := &ActionError{Source: source, Kind: kind, Cause: cause}
	if cause != nil {
		err.Message = cause.Error()
	}
	if err.Kind == "" || err.Kind == KindUnknown {
		err.Kind = classify(cause)
	}
	return err
}

// classify infers an ErrorKind from error text when the caller did not already know one, so a
// backend that only returns a plain error string still gets routed through the right retry
// and reporting path.
func classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Kind
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "cancel"):
		return KindCancelled
	case strings.Contains(s, "timeout") || strings.Contains(s, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(s, "catalog") && strings.Contains(s, "outdated"):
		return KindCatalogOutdated
	case strings.Contains(s, "not interactable") || strings.Contains(s, "not visible") || strings.Contains(s, "not enabled"):
		return KindElementNotInteract
	case strings.Contains(s, "not found") || strings.Contains(s, "no such element") || strings.Contains(s, "no matches"):
		return KindElementNotFound
	case strings.Contains(s, "navigation"):
		return KindNavigationFailed
	case strings.Contains(s, "unhealthy") || strings.Contains(s, "crashed") || strings.Contains(s, "disconnected"):
		return KindBrowserUnhealthy
	case strings.Contains(s, "blocked") || strings.Contains(s, "forbidden") || strings.Contains(s, "403") || strings.Contains(s, "domain policy"):
		return KindExternalBlocked
	case strings.Contains(s, "eval") || strings.Contains(s, "javascript"):
		return KindEvalFailed
	case strings.Contains(s, "invalid") || strings.Contains(s, "required") || strings.Contains(s, "malformed"):
		return KindValidation
	default:
		return KindUnknown
	}
}

// IsActionRetryable reports whether err (an ActionError or a plain error) should be retried.
func IsActionRetryable(err error) bool {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Kind.IsRetryable()
	}
	return classify(err).IsRetryable()
}

// KindOf extracts the ErrorKind from err, classifying plain errors on the fly.
func KindOf(err error) ErrorKind {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Kind
	}
	return classify(err)
}
