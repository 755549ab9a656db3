// Package main provides the webpilot terminal application: describe a
// browsing task in plain words, review the compiled plan, watch the browser
// carry it out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/executor/tui"
	"github.com/entrhq/webpilot/pkg/logging"
)

const version = "0.1.0"

// cliFlags holds the command-line configuration.
type cliFlags struct {
	APIKey      string
	BaseURL     string
	Model       string
	ConfigFile  string
	Browser     string
	Headed      bool
	SitesFile   string
	ShowVersion bool
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("Webpilot v%s\n", version)
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
		log.Fatalf("Application error: %v", err)
	}
	cancel()
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}

	flag.StringVar(&flags.APIKey, "api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
	flag.StringVar(&flags.BaseURL, "base-url", "", "OpenAI API base URL (or set OPENAI_BASE_URL env var)")
	flag.StringVar(&flags.Model, "model", "", "Chat model used for plan generation")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&flags.Browser, "browser", "", "Browser engine: chromium or firefox")
	flag.BoolVar(&flags.Headed, "headed", false, "Show the browser window while plans execute")
	flag.StringVar(&flags.SitesFile, "sites", "", "Path to an additional site table (YAML)")
	flag.BoolVar(&flags.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webpilot - natural-language browser automation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: webpilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY     OpenAI API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_BASE_URL    OpenAI API base URL (for compatible APIs)\n")
		fmt.Fprintf(os.Stderr, "  WEBPILOT_MODEL     Chat model override\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Interactive session with the default headless chromium\n")
		fmt.Fprintf(os.Stderr, "  webpilot\n\n")
		fmt.Fprintf(os.Stderr, "  # Watch the browser work\n")
		fmt.Fprintf(os.Stderr, "  webpilot -headed\n\n")
	}

	flag.Parse()
	return flags
}

func run(ctx context.Context, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("webpilot")
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

	executor := tui.NewExecutor(runner, "")
	return executor.Run(ctx)
}

func loadConfig(flags *cliFlags) (*appconfig.Config, error) {
	if err := appconfig.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := appconfig.Load(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	appconfig.FromEnv(cfg)

	// Flags beat file and environment.
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
	if flags.Headed {
		cfg.Browser.Headless = false
	}
	if flags.SitesFile != "" {
		cfg.Sites.File = flags.SitesFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
