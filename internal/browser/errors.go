package browser

import (
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned by every DOM-facing operation when no live
// execution context is registered for the session id. Callers must
// RestoreOrCreate first.
var ErrSessionNotFound = errors.New("no active browser context for session")

// ErrContextLimitReached is returned when the registry already holds the
// configured maximum of concurrent execution contexts.
var ErrContextLimitReached = errors.New("browser context limit reached")

// ErrShuttingDown is returned when a context is requested after shutdown
// has begun.
var ErrShuttingDown = errors.New("browser manager is shutting down")

// NavigationError wraps a failed page navigation (DNS, timeout, TLS, bad URL).
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// SelectorTimeoutError reports that a selector never appeared within its
// deadline. This is the dominant real-world failure (platform DOM drift), so
// it carries enough detail to decide whether to retry, abandon, or alert.
type SelectorTimeoutError struct {
	Selector string
	Elapsed  time.Duration
}

func (e *SelectorTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for selector %q", e.Elapsed.Round(time.Millisecond), e.Selector)
}
