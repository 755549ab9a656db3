// Package pilot ties the pieces into one run: resolve and compile the
// instruction, acquire a browser session, execute the plan, and re-plan a
// bounded number of times when execution stops early. Each run owns its own
// session and plans; nothing is shared across runs.
package pilot

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/compiler"
	"github.com/entrhq/webpilot/pkg/engine"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/plan"
	"github.com/entrhq/webpilot/pkg/security/navigation"
	"github.com/entrhq/webpilot/pkg/sites"
)

// SessionProvider creates browser sessions. *browser.Launcher implements it;
// tests substitute stubs.
type SessionProvider interface {
	NewSession(ctx context.Context) (browser.Session, error)
}

// Options wires a Runner.
type Options struct {
	Compiler *compiler.Compiler
	Sessions SessionProvider
	Engine   engine.Config
	Registry *sites.Registry
	Guard    *navigation.Guard
	Logger   *logging.Logger

	// MaxReplans caps continuation compiles after a partial or failed
	// execution.
	MaxReplans int

	// PageExcerptLength bounds the page text embedded in continuation
	// instructions.
	PageExcerptLength int
}

// RunResult is the artifact of one Run call.
type RunResult struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// Instruction is the original user instruction.
	Instruction string `json:"instruction"`

	// Plans lists every plan compiled for the run, continuations
	// included, in compile order.
	Plans []*plan.Plan `json:"plans"`

	// Result is the final execution result with extractions merged
	// across continuations.
	Result *plan.ExecutionResult `json:"result"`

	// Replans counts continuation compiles that executed.
	Replans int `json:"replans"`
}

// Runner orchestrates runs. One run at a time; a suspended run holds the
// runner until Answer or Cancel.
type Runner struct {
	compiler   *compiler.Compiler
	sessions   SessionProvider
	engine     *engine.Engine
	logger     *logging.Logger
	maxReplans int
	excerptLen int

	mu      sync.Mutex
	current *activeRun
	events  chan Event
}

// activeRun is the state carried across suspension and re-planning.
type activeRun struct {
	runID       string
	instruction string
	plans       []*plan.Plan
	lease       *leasedSession
	merged      []plan.Extraction
	replans     int
}

// NewRunner creates a Runner. The engine is constructed internally so step
// events flow into the runner's event stream.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Runner{
		compiler:   opts.Compiler,
		sessions:   opts.Sessions,
		logger:     logger,
		maxReplans: opts.MaxReplans,
		excerptLen: opts.PageExcerptLength,
		events:     make(chan Event, 64),
	}
	r.engine = engine.New(opts.Engine, opts.Registry, opts.Guard, logger, engine.WithObserver(r.observeStep))
	return r
}

// Events returns the run event stream. Events are dropped rather than
// blocking the run when the consumer falls behind.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Run compiles and executes the instruction. Compile and session-acquisition
// failures return an error; execution failures are reported in the result.
// An awaiting_user result suspends the run until Answer or Cancel.
func (r *Runner) Run(ctx context.Context, instruction string) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return nil, fmt.Errorf("a run is already in progress")
	}

	run := &activeRun{
		runID:       uuid.New().String(),
		instruction: instruction,
	}
	r.emit(Event{Type: EventRunStarted, RunID: run.runID})
	r.logger.Infof("run %s: %s", run.runID, instruction)

	r.emit(Event{Type: EventCompileStarted, RunID: run.runID})
	p, err := r.compiler.Compile(ctx, instruction)
	r.emit(Event{Type: EventCompileFinished, RunID: run.runID, Err: err})
	if err != nil {
		r.emit(Event{Type: EventRunError, RunID: run.runID, Err: err})
		return nil, fmt.Errorf("compiling instruction: %w", err)
	}

	return r.execute(ctx, run, p)
}

// Compile compiles an instruction without executing it, for callers that
// preview plans before committing to a run.
func (r *Runner) Compile(ctx context.Context, instruction string) (*plan.Plan, error) {
	return r.compiler.Compile(ctx, instruction)
}

// RunPlan executes an already-compiled plan, typically one returned by
// Compile and confirmed by the user.
func (r *Runner) RunPlan(ctx context.Context, instruction string, p *plan.Plan) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return nil, fmt.Errorf("a run is already in progress")
	}
	run := &activeRun{
		runID:       uuid.New().String(),
		instruction: instruction,
	}
	r.emit(Event{Type: EventRunStarted, RunID: run.runID})
	r.logger.Infof("run %s (pre-compiled plan): %s", run.runID, instruction)
	return r.execute(ctx, run, p)
}

// execute acquires a session and drives the plan. Called with r.mu held.
func (r *Runner) execute(ctx context.Context, run *activeRun, p *plan.Plan) (*RunResult, error) {
	run.plans = append(run.plans, p)
	r.emit(Event{Type: EventPlanReady, RunID: run.runID, Plan: p})

	sess, err := r.sessions.NewSession(ctx)
	if err != nil {
		r.emit(Event{Type: EventRunError, RunID: run.runID, Err: err})
		return nil, fmt.Errorf("acquiring browser session: %w", err)
	}
	run.lease = newLeasedSession(sess)

	r.current = run
	result, err := r.engine.Execute(ctx, p, run.lease)
	return r.afterExecute(ctx, run, result, err)
}

// Pending returns the question of a suspended run, if any.
func (r *Runner) Pending() (engine.Question, bool) {
	return r.engine.Pending()
}

// Answer resumes a run suspended on an ask_user step with the user's value.
func (r *Runner) Answer(ctx context.Context, value string) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.current
	if run == nil {
		return nil, fmt.Errorf("no suspended run to answer")
	}
	result, err := r.engine.Resume(ctx, value)
	return r.afterExecute(ctx, run, result, err)
}

// Cancel releases a suspended run without resuming it.
func (r *Runner) Cancel() (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.current
	if run == nil {
		return nil, fmt.Errorf("no run to cancel")
	}
	result, err := r.engine.Abort()
	if err != nil {
		// The engine had no claimed run; release resources anyway.
		run.lease.Release()
		r.current = nil
		return nil, err
	}
	return r.finish(run, result), nil
}

// afterExecute handles one engine return: suspension, cancellation, the
// bounded re-plan loop, and final settlement. Called with r.mu held.
func (r *Runner) afterExecute(ctx context.Context, run *activeRun, result *plan.ExecutionResult, err error) (*RunResult, error) {
	if err != nil {
		// Pre-dispatch failure or context cancellation: the engine has
		// already released the session lease it owned.
		final := r.finish(run, result)
		return final, err
	}

	if result.Status == plan.StatusAwaitingUser {
		if q, ok := r.engine.Pending(); ok {
			r.emit(Event{Type: EventQuestionPending, RunID: run.runID, Question: &q})
		}
		return r.snapshot(run, result), nil
	}

	// Bounded re-planning: compile a continuation against the same
	// session while budget remains and execution keeps stopping early.
	for (result.Status == plan.StatusPartial || result.Status == plan.StatusFailed) &&
		run.replans < r.maxReplans {
		continuation, compileErr := r.replan(ctx, run, result)
		if compileErr != nil {
			r.logger.Warnf("run %s: re-plan abandoned: %v", run.runID, compileErr)
			break
		}
		run.replans++
		run.merged = append(run.merged, result.Extracted...)
		run.lease.reopen()
		result, err = r.engine.Execute(ctx, continuation, run.lease)
		if err != nil {
			final := r.finish(run, result)
			return final, err
		}
		if result.Status == plan.StatusAwaitingUser {
			if q, ok := r.engine.Pending(); ok {
				r.emit(Event{Type: EventQuestionPending, RunID: run.runID, Question: &q})
			}
			return r.snapshot(run, result), nil
		}
	}

	return r.finish(run, result), nil
}

// replan builds and compiles the continuation instruction for a stopped run.
func (r *Runner) replan(ctx context.Context, run *activeRun, result *plan.ExecutionResult) (*plan.Plan, error) {
	// The engine released its lease, but the underlying session is still
	// alive until finish: the continuation plans from the page it left.
	excerpt := ""
	if text, err := run.lease.inner.PageExcerpt(ctx, r.excerptLen); err == nil {
		excerpt = text
	}

	instruction := compiler.ContinuationInstruction(run.instruction, result.FailedStep, result.Extracted, excerpt)
	r.emit(Event{Type: EventReplanStarted, RunID: run.runID})
	r.emit(Event{Type: EventCompileStarted, RunID: run.runID})
	p, err := r.compiler.Compile(ctx, instruction)
	r.emit(Event{Type: EventCompileFinished, RunID: run.runID, Err: err})
	if err != nil {
		return nil, err
	}
	run.plans = append(run.plans, p)
	r.emit(Event{Type: EventPlanReady, RunID: run.runID, Plan: p})
	return p, nil
}

// snapshot reports a suspended run without releasing anything.
func (r *Runner) snapshot(run *activeRun, result *plan.ExecutionResult) *RunResult {
	return &RunResult{
		RunID:       run.runID,
		Instruction: run.instruction,
		Plans:       run.plans,
		Result:      r.mergeResult(run, result),
		Replans:     run.replans,
	}
}

// finish releases the session and clears the run unconditionally.
func (r *Runner) finish(run *activeRun, result *plan.ExecutionResult) *RunResult {
	if run.lease != nil {
		run.lease.Release()
	}
	r.current = nil

	final := r.mergeResult(run, result)
	out := &RunResult{
		RunID:       run.runID,
		Instruction: run.instruction,
		Plans:       run.plans,
		Result:      final,
		Replans:     run.replans,
	}
	r.emit(Event{Type: EventRunFinished, RunID: run.runID, Result: final})
	r.logger.Infof("run %s finished: %s", run.runID, statusOf(final))
	return out
}

// mergeResult folds extractions from earlier executions into the latest
// result.
func (r *Runner) mergeResult(run *activeRun, result *plan.ExecutionResult) *plan.ExecutionResult {
	if result == nil {
		result = &plan.ExecutionResult{Status: plan.StatusFailed}
	}
	merged := result.Clone()
	if len(run.merged) > 0 {
		merged.Extracted = append(append([]plan.Extraction{}, run.merged...), merged.Extracted...)
	}
	return merged
}

func statusOf(result *plan.ExecutionResult) plan.Status {
	if result == nil {
		return plan.StatusFailed
	}
	return result.Status
}

// observeStep forwards engine step events into the run stream.
func (r *Runner) observeStep(ev engine.StepEvent) {
	runID := ""
	if r.current != nil {
		runID = r.current.runID
	}
	step := ev
	switch ev.State {
	case engine.StateRunning:
		r.emit(Event{Type: EventStepStarted, RunID: runID, Step: &step})
	case engine.StateRetrying:
		r.emit(Event{Type: EventStepRetrying, RunID: runID, Step: &step})
	case engine.StateSucceeded, engine.StateFailed:
		r.emit(Event{Type: EventStepFinished, RunID: runID, Step: &step})
	}
}

// emit sends without blocking; a slow consumer loses events, never the run.
func (r *Runner) emit(event Event) {
	select {
	case r.events <- event:
	default:
	}
}
