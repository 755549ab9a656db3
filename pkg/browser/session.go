// Package browser provides the live browser session the execution engine
// drives. The Session interface is the full driver surface the engine needs;
// PlaywrightSession implements it on Playwright, and tests substitute stubs.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/entrhq/webpilot/pkg/plan"
)

var (
	// ErrTargetNotFound reports that a locator matched zero elements
	// within the allowed wait.
	ErrTargetNotFound = errors.New("target element not found")

	// ErrSessionClosed reports an operation on a closed session.
	ErrSessionClosed = errors.New("browser session is closed")
)

// Session is one live, stateful browser instance. A session is owned by a
// single run: the engine dispatches actions against it sequentially and
// closes it on every terminal path. Implementations must make Close
// idempotent and fail all operations after it with ErrSessionClosed.
type Session interface {
	// Navigate loads the URL. Targets without a scheme are treated as
	// URL-bar input and get https:// prepended.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Click waits for the selector to become present and interactable,
	// bounded by timeout, then clicks it.
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// Type waits for the selector like Click, then replaces its content
	// with text.
	Type(ctx context.Context, selector, text string, timeout time.Duration) error

	// Scroll moves the viewport. A pixel distance of zero means one
	// viewport height for the up and down directions.
	Scroll(ctx context.Context, direction plan.ScrollDirection, pixels int) error

	// Extract returns the text content of the first element matching
	// selector. A present element with no text yields ("", nil); a
	// missing element yields ErrTargetNotFound. An empty selector
	// extracts the cleaned text of the whole page.
	Extract(ctx context.Context, selector string, timeout time.Duration) (string, error)

	// PageExcerpt returns up to maxLen characters of cleaned page text,
	// used as context when building a continuation plan.
	PageExcerpt(ctx context.Context, maxLen int) (string, error)

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// URL returns the current page URL.
	URL() string

	// Title returns the current page title.
	Title(ctx context.Context) (string, error)

	// Close releases the session's browser resources. Safe to call more
	// than once.
	Close() error

	// Closed reports whether Close has run.
	Closed() bool
}
