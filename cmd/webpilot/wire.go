package main

import (
	"context"
	"fmt"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/compiler"
	appconfig "github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/engine"
	"github.com/entrhq/webpilot/pkg/llm/openai"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/pilot"
	"github.com/entrhq/webpilot/pkg/security/navigation"
	"github.com/entrhq/webpilot/pkg/sites"
)

// buildRunner assembles the full pipeline from configuration: site registry,
// navigation guard, LLM-backed compiler, browser launcher, and the runner
// that ties them together. The caller owns the launcher shutdown.
func buildRunner(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pilot.Runner, *browser.Launcher, error) {
	registry := sites.New()
	if cfg.Sites.File != "" {
		if err := registry.LoadFile(cfg.Sites.File); err != nil {
			return nil, nil, fmt.Errorf("loading site table: %w", err)
		}
	}

	guard, err := navigation.NewGuard(navigation.Rules{
		Allow: cfg.Guard.Allow,
		Deny:  cfg.Guard.Deny,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building navigation guard: %w", err)
	}

	gen, err := openai.NewGenerator(cfg.LLM.APIKey,
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithTemperature(cfg.LLM.Temperature),
		openai.WithMaxTokens(cfg.LLM.MaxTokens),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("building plan generator: %w", err)
	}

	comp := compiler.New(compiler.Config{
		MaxPlanSteps:    cfg.Compiler.MaxPlanSteps,
		MaxPromptTokens: cfg.Compiler.MaxPromptTokens,
	}, gen, registry, logger)

	launcher := browser.NewLauncher(browser.Config{
		BrowserName:    cfg.Browser.Name,
		Headless:       cfg.Browser.Headless,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	})
	if err := launcher.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting browser runtime: %w", err)
	}

	runner := pilot.NewRunner(pilot.Options{
		Compiler: comp,
		Sessions: launcher,
		Engine: engine.Config{
			RetryBudget:       cfg.Engine.RetryBudget,
			StepTimeout:       cfg.Engine.StepTimeout.Std(),
			NavigationTimeout: cfg.Engine.NavigationTimeout.Std(),
			CaptureFailures:   cfg.Engine.CaptureFailures,
			ScreenshotDir:     cfg.Engine.ScreenshotDir,
		},
		Registry:          registry,
		Guard:             guard,
		Logger:            logger,
		MaxReplans:        cfg.Pilot.MaxReplans,
		PageExcerptLength: cfg.Pilot.PageExcerptLength,
	})
	return runner, launcher, nil
}
