package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Defaults for session creation.
const (
	DefaultTimeoutMS      = 30000.0
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultExcerptLength  = 4000
)

// Config controls how browsers are launched.
type Config struct {
	// BrowserName selects the engine: "chromium" or "firefox".
	BrowserName string

	// Headless runs the browser without a visible window.
	Headless bool

	// ViewportWidth and ViewportHeight size the page viewport; zero
	// selects the defaults.
	ViewportWidth  int
	ViewportHeight int

	// DefaultTimeoutMS is the page-level default operation timeout in
	// milliseconds; zero selects DefaultTimeoutMS.
	DefaultTimeoutMS float64
}

// Launcher owns the Playwright runtime and creates sessions from it. Every
// run gets its own session; the launcher itself is shared and must be shut
// down once when the process exits.
type Launcher struct {
	mu      sync.Mutex
	cfg     Config
	pw      *playwright.Playwright
	started bool
}

// NewLauncher creates a launcher. Start must be called before NewSession.
func NewLauncher(cfg Config) *Launcher {
	if cfg.BrowserName == "" {
		cfg.BrowserName = "chromium"
	}
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = DefaultViewportWidth
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = DefaultViewportHeight
	}
	if cfg.DefaultTimeoutMS == 0 {
		cfg.DefaultTimeoutMS = DefaultTimeoutMS
	}
	return &Launcher{cfg: cfg}
}

// Start installs browser binaries if needed and boots the Playwright driver.
// Output is discarded so driver chatter cannot corrupt a terminal UI.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	l.pw = pw
	l.started = true
	return nil
}

// NewSession launches a browser and returns a fresh session bound to one
// page. Failure here is fatal to the run: no action is dispatched without a
// session.
func (l *Launcher) NewSession(ctx context.Context) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return nil, fmt.Errorf("launcher not started")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var browserType playwright.BrowserType
	switch l.cfg.BrowserName {
	case "chromium":
		browserType = l.pw.Chromium
	case "firefox":
		browserType = l.pw.Firefox
	default:
		return nil, fmt.Errorf("unsupported browser %q (use chromium or firefox)", l.cfg.BrowserName)
	}

	b, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", l.cfg.BrowserName, err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.cfg.ViewportWidth,
			Height: l.cfg.ViewportHeight,
		},
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(l.cfg.DefaultTimeoutMS)

	return &PlaywrightSession{
		browser: b,
		bctx:    bctx,
		page:    page,
	}, nil
}

// Shutdown stops the Playwright driver. Sessions should already be closed;
// any still open die with the driver.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started || l.pw == nil {
		return nil
	}
	l.started = false
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
