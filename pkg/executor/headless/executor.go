package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/pilot"
	"github.com/entrhq/webpilot/pkg/plan"
)

const statusPlanOnly = "plan_only"

// Executor drives one scripted run over a pilot.Runner.
type Executor struct {
	runner *pilot.Runner
	config *Config
	logger *logging.Logger
}

// NewExecutor creates a headless executor.
func NewExecutor(runner *pilot.Runner, cfg *Config, logger *logging.Logger) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{
		runner: runner,
		config: cfg,
		logger: logger,
	}, nil
}

// Run executes the configured instruction and writes artifacts. It returns
// a non-nil error for anything short of a completed run, so callers can map
// the outcome to an exit status.
func (e *Executor) Run(ctx context.Context) error {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	go e.logEvents(ctx)

	start := time.Now()
	artifact := &RunArtifact{
		Instruction: e.config.Instruction,
		StartTime:   start,
	}

	if e.config.PlanOnly {
		return e.planOnly(ctx, artifact)
	}

	result, err := e.runner.Run(ctx, e.config.Instruction)
	result, err = e.answerLoop(ctx, result, err)

	e.settle(artifact, result, err)
	if writeErr := e.writeArtifacts(artifact); writeErr != nil {
		e.logger.Errorf("artifact writing failed: %v", writeErr)
	}

	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	if artifact.Status != string(plan.StatusCompleted) {
		return fmt.Errorf("run ended with status %s", artifact.Status)
	}
	return nil
}

// planOnly compiles the instruction and records the plan without executing.
func (e *Executor) planOnly(ctx context.Context, artifact *RunArtifact) error {
	p, err := e.runner.Compile(ctx, e.config.Instruction)
	artifact.EndTime = time.Now()
	artifact.Duration = artifact.EndTime.Sub(artifact.StartTime).String()
	if err != nil {
		artifact.Status = string(plan.StatusFailed)
		artifact.Error = err.Error()
	} else {
		artifact.Status = statusPlanOnly
		artifact.Plans = []*plan.Plan{p}
	}
	if writeErr := e.writeArtifacts(artifact); writeErr != nil {
		e.logger.Errorf("artifact writing failed: %v", writeErr)
	}
	if err != nil {
		return fmt.Errorf("compiling plan: %w", err)
	}
	return nil
}

// answerLoop feeds configured answers to ask_user suspensions, in order. A
// suspension with no answer left cancels the run.
func (e *Executor) answerLoop(ctx context.Context, result *pilot.RunResult, err error) (*pilot.RunResult, error) {
	answers := e.config.Answers
	for err == nil && result != nil && result.Result != nil &&
		result.Result.Status == plan.StatusAwaitingUser {
		if len(answers) == 0 {
			e.logger.Warnf("run asked a question with no answers left; canceling")
			return e.runner.Cancel()
		}
		answer := answers[0]
		answers = answers[1:]
		if q, ok := e.runner.Pending(); ok {
			e.logger.Infof("answering %q with %q", q.Prompt, answer)
		}
		result, err = e.runner.Answer(ctx, answer)
	}
	return result, err
}

// settle fills the artifact from the final result.
func (e *Executor) settle(artifact *RunArtifact, result *pilot.RunResult, err error) {
	artifact.EndTime = time.Now()
	artifact.Duration = artifact.EndTime.Sub(artifact.StartTime).String()
	if err != nil {
		artifact.Error = err.Error()
	}
	if result == nil {
		if artifact.Status == "" {
			artifact.Status = string(plan.StatusFailed)
		}
		return
	}

	artifact.RunID = result.RunID
	artifact.Plans = result.Plans
	artifact.Replans = result.Replans
	if result.Result != nil {
		artifact.Status = string(result.Result.Status)
		artifact.Extracted = result.Result.Extracted
		artifact.FailedStep = result.Result.FailedStep
	} else {
		artifact.Status = string(plan.StatusFailed)
	}
}

func (e *Executor) writeArtifacts(artifact *RunArtifact) error {
	if e.config.OutputDir == "" {
		return nil
	}
	return NewArtifactWriter(e.config.OutputDir).WriteAll(artifact)
}

// logEvents mirrors run events into the log until the context ends.
func (e *Executor) logEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.runner.Events():
			switch event.Type {
			case pilot.EventStepStarted, pilot.EventStepFinished, pilot.EventStepRetrying:
				if event.Step != nil {
					e.logger.Infof("step %d %s: %s", event.Step.Index+1, event.Step.State, event.Step.Action)
				}
			case pilot.EventReplanStarted:
				e.logger.Infof("re-planning")
			case pilot.EventRunError:
				e.logger.Errorf("run error: %v", event.Err)
			}
		}
	}
}
