package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/webpilot/pkg/plan"
)

// PlaywrightSession implements Session on a Playwright browser, context, and
// single page.
type PlaywrightSession struct {
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page

	mu     sync.Mutex
	closed bool
}

var _ Session = (*PlaywrightSession)(nil)

func (s *PlaywrightSession) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// Navigate loads the URL and waits for the load event, bounded by timeout.
func (s *PlaywrightSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	_, err := s.page.Goto(NormalizeURL(url), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Click clicks the first element matching selector. Playwright's
// actionability checks provide the present-and-interactable wait, bounded by
// timeout.
func (s *PlaywrightSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	err := s.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// Type replaces the content of the matched input with text.
func (s *PlaywrightSession) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	err := s.page.Fill(selector, text, playwright.PageFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("typing into %q failed: %w", selector, err)
	}
	return nil
}

// Scroll evaluates a window scroll in the page.
func (s *PlaywrightSession) Scroll(ctx context.Context, direction plan.ScrollDirection, pixels int) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	script, err := scrollScript(direction, pixels)
	if err != nil {
		return err
	}
	if _, err := s.page.Evaluate(script); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// scrollScript builds the JavaScript for a scroll request. A pixel distance
// of zero for up/down means one viewport height.
func scrollScript(direction plan.ScrollDirection, pixels int) (string, error) {
	switch direction {
	case plan.ScrollDown:
		if pixels == 0 {
			return "window.scrollBy(0, window.innerHeight)", nil
		}
		return fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil
	case plan.ScrollUp:
		if pixels == 0 {
			return "window.scrollBy(0, -window.innerHeight)", nil
		}
		return fmt.Sprintf("window.scrollBy(0, -%d)", pixels), nil
	case plan.ScrollTop:
		return "window.scrollTo(0, 0)", nil
	case plan.ScrollBottom:
		return "window.scrollTo(0, document.body.scrollHeight)", nil
	}
	return "", fmt.Errorf("unknown scroll direction %q", direction)
}

// Extract returns the text of the first element matching selector, waiting
// for it to attach up to timeout. A present element with no text succeeds
// with ""; absence maps to ErrTargetNotFound. An empty selector extracts
// cleaned whole-page text.
func (s *PlaywrightSession) Extract(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}
	if strings.TrimSpace(selector) == "" {
		return s.pageText(0)
	}

	element, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil || element == nil {
		return "", fmt.Errorf("%w: %q", ErrTargetNotFound, selector)
	}
	text, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("reading text of %q failed: %w", selector, err)
	}
	return CollapseWhitespace(text), nil
}

// PageExcerpt returns cleaned page text truncated to maxLen characters.
func (s *PlaywrightSession) PageExcerpt(ctx context.Context, maxLen int) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}
	if maxLen <= 0 {
		maxLen = DefaultExcerptLength
	}
	return s.pageText(maxLen)
}

func (s *PlaywrightSession) pageText(maxLen int) (string, error) {
	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content failed: %w", err)
	}
	text, err := CleanText(content, maxLen)
	if err != nil {
		return "", fmt.Errorf("cleaning page content failed: %w", err)
	}
	return text, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (s *PlaywrightSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	data, err := s.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// URL returns the current page URL, or "" after Close.
func (s *PlaywrightSession) URL() string {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ""
	}
	return s.page.URL()
}

// Title returns the current page title.
func (s *PlaywrightSession) Title(ctx context.Context) (string, error) {
	if err := s.guard(ctx); err != nil {
		return "", err
	}
	title, err := s.page.Title()
	if err != nil {
		return "", fmt.Errorf("reading title failed: %w", err)
	}
	return title, nil
}

// Close releases the page, context, and browser. Idempotent; cleanup
// continues past individual close errors.
func (s *PlaywrightSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.page.Close()
	_ = s.bctx.Close()
	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

// Closed reports whether Close has run.
func (s *PlaywrightSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// NormalizeURL prepends https:// to a target that carries no scheme, the
// URL-bar passthrough behavior for unresolved navigation references.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "about:") {
		return trimmed
	}
	return "https://" + trimmed
}

// CollapseWhitespace squeezes runs of whitespace into single spaces and
// trims the ends, normalizing the ragged text DOM extraction produces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
