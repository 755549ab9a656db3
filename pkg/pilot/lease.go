package pilot

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/plan"
)

// leasedSession lets the engine release its session unconditionally on
// every terminal path while the runner keeps the underlying browser alive
// for re-planning. Close marks the lease returned; Release closes the real
// session and is called exactly once per run, on every runner exit path.
type leasedSession struct {
	inner browser.Session

	mu       sync.Mutex
	returned bool
}

var _ browser.Session = (*leasedSession)(nil)

func newLeasedSession(inner browser.Session) *leasedSession {
	return &leasedSession{inner: inner}
}

// reopen hands the lease back to the engine for a continuation plan.
func (l *leasedSession) reopen() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.returned = false
}

// Release closes the underlying session. Idempotent through the inner
// session's own Close semantics.
func (l *leasedSession) Release() {
	l.mu.Lock()
	l.returned = true
	l.mu.Unlock()
	_ = l.inner.Close()
}

func (l *leasedSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return l.inner.Navigate(ctx, url, timeout)
}

func (l *leasedSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return l.inner.Click(ctx, selector, timeout)
}

func (l *leasedSession) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	return l.inner.Type(ctx, selector, text, timeout)
}

func (l *leasedSession) Scroll(ctx context.Context, direction plan.ScrollDirection, pixels int) error {
	return l.inner.Scroll(ctx, direction, pixels)
}

func (l *leasedSession) Extract(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	return l.inner.Extract(ctx, selector, timeout)
}

func (l *leasedSession) PageExcerpt(ctx context.Context, maxLen int) (string, error) {
	return l.inner.PageExcerpt(ctx, maxLen)
}

func (l *leasedSession) Screenshot(ctx context.Context) ([]byte, error) {
	return l.inner.Screenshot(ctx)
}

func (l *leasedSession) URL() string {
	return l.inner.URL()
}

func (l *leasedSession) Title(ctx context.Context) (string, error) {
	return l.inner.Title(ctx)
}

// Close returns the lease without closing the underlying session.
func (l *leasedSession) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.returned = true
	return nil
}

// Closed reports the lease as returned or the real session as closed.
func (l *leasedSession) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.returned || l.inner.Closed()
}
