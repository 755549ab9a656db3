package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load returns the defaults with the YAML file at path merged over them.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment when one exists. Missing files are not an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// FromEnv overlays environment variables onto the configuration: the
// OPENAI_ secrets plus WEBPILOT_-prefixed settings. Unset variables leave
// the existing values alone.
func FromEnv(cfg *Config) {
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.LLM.Model, "WEBPILOT_MODEL")
	setString(&cfg.Browser.Name, "WEBPILOT_BROWSER")
	setString(&cfg.Sites.File, "WEBPILOT_SITES_FILE")
	setString(&cfg.Engine.ScreenshotDir, "WEBPILOT_SCREENSHOT_DIR")
	setBool(&cfg.Browser.Headless, "WEBPILOT_HEADLESS")
	setBool(&cfg.Engine.CaptureFailures, "WEBPILOT_CAPTURE_FAILURES")
	setInt(&cfg.Compiler.MaxPlanSteps, "WEBPILOT_MAX_PLAN_STEPS")
	setInt(&cfg.Engine.RetryBudget, "WEBPILOT_RETRY_BUDGET")
	setInt(&cfg.Pilot.MaxReplans, "WEBPILOT_MAX_REPLANS")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
