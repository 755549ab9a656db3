// Package main provides the webpilot headless runner for scripted and CI
// use: one instruction in, a JSON artifact out, exit status reflecting the
// outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	appconfig "github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/executor/headless"
	"github.com/entrhq/webpilot/pkg/logging"
)

const version = "0.1.0"

// cliFlags holds the command-line configuration.
type cliFlags struct {
	APIKey      string
	BaseURL     string
	Model       string
	ConfigFile  string
	RunFile     string
	Instruction string
	Answers     string
	PlanOnly    bool
	OutputDir   string
	Timeout     time.Duration
	Browser     string
	ShowVersion bool
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("Webpilot Headless v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		cancel()
		log.Printf("Run failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.APIKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	flag.StringVar(&flags.BaseURL, "base-url", "", "OpenAI API base URL (or set OPENAI_BASE_URL env var)")
	flag.StringVar(&flags.Model, "model", "", "Chat model used for plan generation")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to application configuration file (YAML)")
	flag.StringVar(&flags.RunFile, "run", "", "Path to run configuration file (YAML); alternative to -instruction")
	flag.StringVar(&flags.Instruction, "instruction", "", "Natural-language task to run")
	flag.StringVar(&flags.Answers, "answers", "", "Comma-separated answers for ask_user steps, in order")
	flag.BoolVar(&flags.PlanOnly, "plan-only", false, "Compile and write the plan without executing it")
	flag.StringVar(&flags.OutputDir, "output", "webpilot-artifacts", "Directory for run.json and summary.md")
	flag.DurationVar(&flags.Timeout, "timeout", 5*time.Minute, "Run timeout")
	flag.StringVar(&flags.Browser, "browser", "", "Browser engine: chromium or firefox")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webpilot Headless - scripted browser automation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: webpilot-headless [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run an inline instruction\n")
		fmt.Fprintf(os.Stderr, "  webpilot-headless -instruction \"open youtube and search for cats\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Run from a run file with pre-supplied answers\n")
		fmt.Fprintf(os.Stderr, "  webpilot-headless -run nightly.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Only compile and inspect the plan\n")
		fmt.Fprintf(os.Stderr, "  webpilot-headless -instruction \"check the weather in oslo\" -plan-only\n\n")
	}

	flag.Parse()
	return flags
}

func run(ctx context.Context, flags *cliFlags) error {
	runCfg, err := buildRunConfig(flags)
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig(flags)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("webpilot-headless")
	if err != nil {
		logger = logging.Discard()
	}
	defer logger.Close()

	runner, launcher, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := launcher.Shutdown(); shutdownErr != nil {
			logger.Warnf("browser shutdown: %v", shutdownErr)
		}
	}()

	executor, err := headless.NewExecutor(runner, runCfg, logger)
	if err != nil {
		return err
	}
	return executor.Run(ctx)
}

// buildRunConfig merges the run file, if any, with the inline flags. Inline
// flags beat file values.
func buildRunConfig(flags *cliFlags) (*headless.Config, error) {
	runCfg := &headless.Config{}
	if flags.RunFile != "" {
		loaded, err := headless.LoadConfig(flags.RunFile)
		if err != nil {
			return nil, err
		}
		runCfg = loaded
	}

	if flags.Instruction != "" {
		runCfg.Instruction = flags.Instruction
	}
	if flags.Answers != "" {
		runCfg.Answers = splitAnswers(flags.Answers)
	}
	if flags.PlanOnly {
		runCfg.PlanOnly = true
	}
	if runCfg.OutputDir == "" {
		runCfg.OutputDir = flags.OutputDir
	}
	if runCfg.Timeout == 0 {
		runCfg.Timeout = flags.Timeout
	}
	return runCfg, runCfg.Validate()
}

func splitAnswers(raw string) []string {
	parts := strings.Split(raw, ",")
	answers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			answers = append(answers, trimmed)
		}
	}
	return answers
}

func loadAppConfig(flags *cliFlags) (*appconfig.Config, error) {
	if err := appconfig.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := appconfig.Load(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	appconfig.FromEnv(cfg)

	if flags.APIKey != "" {
		cfg.LLM.APIKey = flags.APIKey
	}
	if flags.BaseURL != "" {
		cfg.LLM.BaseURL = flags.BaseURL
	}
	if flags.Model != "" {
		cfg.LLM.Model = flags.Model
	}
	if flags.Browser != "" {
		cfg.Browser.Name = flags.Browser
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
