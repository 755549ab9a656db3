// Package config defines the explicit configuration passed into the plan
// compiler, browser launcher, and execution engine constructors. There is no
// ambient global state: callers build a Config (defaults, optional YAML
// file, optional environment overlay) and hand the relevant sections to each
// component.
package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Compiler CompilerConfig `yaml:"compiler"`
	Browser  BrowserConfig  `yaml:"browser"`
	Engine   EngineConfig   `yaml:"engine"`
	Sites    SitesConfig    `yaml:"sites"`
	Guard    GuardConfig    `yaml:"guard"`
	Pilot    PilotConfig    `yaml:"pilot"`
}

// LLMConfig selects and tunes the language-model backend.
type LLMConfig struct {
	// APIKey authenticates against the backend. Usually supplied via the
	// OPENAI_API_KEY environment variable rather than a file.
	APIKey string `yaml:"api_key"`

	// BaseURL points at an OpenAI-compatible endpoint; empty means the
	// public OpenAI API.
	BaseURL string `yaml:"base_url"`

	// Model is the chat model used for plan generation.
	Model string `yaml:"model"`

	// Temperature is the sampling temperature. Plan generation wants
	// determinism-leaning values.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps completion length.
	MaxTokens int `yaml:"max_tokens"`
}

// CompilerConfig tunes plan compilation.
type CompilerConfig struct {
	// MaxPlanSteps caps accepted plan length.
	MaxPlanSteps int `yaml:"max_plan_steps"`

	// MaxPromptTokens bounds the prompt size; zero disables the check.
	MaxPromptTokens int `yaml:"max_prompt_tokens"`
}

// BrowserConfig controls browser launch.
type BrowserConfig struct {
	// Name selects the engine: chromium or firefox.
	Name string `yaml:"name"`

	// Headless runs without a visible window.
	Headless bool `yaml:"headless"`

	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
}

// EngineConfig tunes plan execution.
type EngineConfig struct {
	// RetryBudget is the number of additional attempts after a step's
	// first failure.
	RetryBudget int `yaml:"retry_budget"`

	// StepTimeout bounds interaction steps without their own timeout.
	StepTimeout Duration `yaml:"step_timeout"`

	// NavigationTimeout bounds navigate steps the same way.
	NavigationTimeout Duration `yaml:"navigation_timeout"`

	// CaptureFailures writes a screenshot when a step exhausts its
	// retries.
	CaptureFailures bool `yaml:"capture_failures"`

	// ScreenshotDir receives failure screenshots.
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// SitesConfig extends the builtin site table.
type SitesConfig struct {
	// File is an optional YAML file of additional site entries, merged
	// over the builtins.
	File string `yaml:"file"`
}

// GuardConfig restricts navigation targets. Both lists hold glob patterns
// matched against host/path; deny wins, and an empty allow list allows all.
type GuardConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// PilotConfig tunes run orchestration.
type PilotConfig struct {
	// MaxReplans caps continuation compiles after a partial or failed
	// execution. Zero disables re-planning.
	MaxReplans int `yaml:"max_replans"`

	// PageExcerptLength bounds the page text embedded in continuation
	// instructions.
	PageExcerptLength int `yaml:"page_excerpt_length"`
}

// Default returns the documented configuration defaults.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Compiler: CompilerConfig{
			MaxPlanSteps: 15,
		},
		Browser: BrowserConfig{
			Name:           "chromium",
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Engine: EngineConfig{
			RetryBudget:       2,
			StepTimeout:       Duration(10 * time.Second),
			NavigationTimeout: Duration(15 * time.Second),
		},
		Pilot: PilotConfig{
			MaxReplans:        1,
			PageExcerptLength: 2000,
		},
	}
}

// Validate rejects settings no component can honor.
func (c *Config) Validate() error {
	if c.Browser.Name != "chromium" && c.Browser.Name != "firefox" {
		return fmt.Errorf("browser.name must be chromium or firefox, got %q", c.Browser.Name)
	}
	if c.Compiler.MaxPlanSteps <= 0 {
		return fmt.Errorf("compiler.max_plan_steps must be positive")
	}
	if c.Engine.RetryBudget < 0 {
		return fmt.Errorf("engine.retry_budget cannot be negative")
	}
	if c.Engine.StepTimeout <= 0 || c.Engine.NavigationTimeout <= 0 {
		return fmt.Errorf("engine timeouts must be positive")
	}
	if c.Pilot.MaxReplans < 0 {
		return fmt.Errorf("pilot.max_replans cannot be negative")
	}
	return nil
}
