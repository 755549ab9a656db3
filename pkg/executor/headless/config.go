// Package headless provides the non-interactive executor for scripted
// webpilot runs: one instruction in, a JSON artifact out, exit status
// reflecting the run outcome.
package headless

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes a headless run. It can be populated from flags or loaded
// from a YAML run file.
type Config struct {
	// Instruction is the natural-language task to run.
	Instruction string `yaml:"instruction" json:"instruction"`

	// Answers are consumed in order whenever the run suspends on an
	// ask_user step. A suspension with no answer left cancels the run.
	Answers []string `yaml:"answers" json:"answers"`

	// PlanOnly compiles and writes the plan without executing it.
	PlanOnly bool `yaml:"plan_only" json:"plan_only"`

	// OutputDir receives run.json and summary.md. Empty disables
	// artifact writing.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Timeout bounds the whole run. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoadConfig reads a YAML run file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration is runnable.
func (c *Config) Validate() error {
	if c.Instruction == "" {
		return fmt.Errorf("instruction is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}
