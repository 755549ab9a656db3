// Package compiler turns a natural-language instruction into a validated
// plan by prompting a language-model backend and parsing its JSON response.
// The model call is the only non-deterministic input: for a fixed response
// string the compiler always produces the same plan or the same error.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/plan"
	"github.com/entrhq/webpilot/pkg/sites"
)

// Config holds the compiler's explicit settings. These are documented
// defaults, not hard-coded assumptions; callers override per deployment.
type Config struct {
	// MaxPlanSteps caps accepted plan length. Zero selects the default.
	MaxPlanSteps int

	// MaxPromptTokens bounds the prompt size counted with cl100k_base.
	// Zero disables the check.
	MaxPromptTokens int
}

// DefaultMaxPlanSteps caps plans at a size a person can review.
const DefaultMaxPlanSteps = 15

// Compiler compiles instructions into plans. It is stateless across calls:
// re-planning continuations are ordinary fresh compiles.
type Compiler struct {
	cfg      Config
	gen      llm.Generator
	registry *sites.Registry
	logger   *logging.Logger
	encoding *tiktoken.Tiktoken
	now      func() time.Time
}

// New creates a Compiler. The token encoder is initialized lazily-tolerant:
// if cl100k_base cannot load, token accounting is skipped and the failure is
// logged once.
func New(cfg Config, gen llm.Generator, registry *sites.Registry, logger *logging.Logger) *Compiler {
	if cfg.MaxPlanSteps <= 0 {
		cfg.MaxPlanSteps = DefaultMaxPlanSteps
	}
	if registry == nil {
		registry = sites.NewEmpty()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Compiler{
		cfg:      cfg,
		gen:      gen,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warnf("token encoder unavailable, skipping prompt accounting: %v", err)
	} else {
		c.encoding = encoding
	}
	return c
}

// Compile produces a validated plan for the instruction, or an error from
// the package taxonomy. No partial plans: the first invalid step fails the
// whole compile.
func (c *Compiler) Compile(ctx context.Context, instruction string) (*plan.Plan, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, ErrEmptyInstruction
	}

	hints := detectHints(instruction, c.registry)
	prompt := buildPrompt(instruction, c.registry, hints, c.now())
	if err := c.checkPromptBudget(prompt); err != nil {
		return nil, err
	}

	c.logger.Debugf("compiling instruction (%d hint sites): %s", len(hints), instruction)
	raw, err := c.gen.Generate(ctx, llm.Prompt{System: prompt.System, User: prompt.User})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	actions, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	if len(actions) > c.cfg.MaxPlanSteps {
		return nil, fmt.Errorf("%w: %d steps, limit %d", ErrPlanTooLong, len(actions), c.cfg.MaxPlanSteps)
	}

	compiled := plan.New(instruction, actions)
	if err := compiled.Validate(); err != nil {
		var verr *plan.ValidationError
		if errors.As(err, &verr) {
			return nil, &InvalidStepError{
				Index:  verr.Index,
				Kind:   verr.Kind,
				Field:  verr.Field,
				Reason: verr.Reason,
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidStep, err)
	}

	c.logger.Infof("compiled plan %s with %d steps", compiled.ID, compiled.Len())
	return compiled, nil
}

// checkPromptBudget counts prompt tokens when both a budget and an encoder
// are available.
func (c *Compiler) checkPromptBudget(prompt llmPrompt) error {
	if c.cfg.MaxPromptTokens <= 0 || c.encoding == nil {
		return nil
	}
	tokens := len(c.encoding.Encode(prompt.System, nil, nil)) +
		len(c.encoding.Encode(prompt.User, nil, nil))
	if tokens > c.cfg.MaxPromptTokens {
		return fmt.Errorf("%w: %d tokens, budget %d", ErrPromptTooLarge, tokens, c.cfg.MaxPromptTokens)
	}
	return nil
}
