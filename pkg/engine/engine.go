// Package engine executes a compiled plan against a live browser session.
//
// The engine is a per-action state machine: each step runs through
// Pending -> Running -> Succeeded, with up to RetryBudget additional
// attempts on failure. An exhausted step aborts the remaining sequence and
// is reported structurally in the ExecutionResult rather than as an error.
// An ask_user step suspends the run; Resume injects the answer and
// continues from the next action. The session is released on every terminal
// path: completion, abort, cancellation, and explicit Abort.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/plan"
	"github.com/entrhq/webpilot/pkg/security/navigation"
	"github.com/entrhq/webpilot/pkg/sites"
)

// Defaults documented as configuration choices, not guessable intent.
const (
	DefaultRetryBudget       = 2
	DefaultStepTimeout       = 10 * time.Second
	DefaultNavigationTimeout = 15 * time.Second
)

// Config holds the engine's explicit settings.
type Config struct {
	// RetryBudget is the number of additional attempts after a step's
	// first failure. Negative means zero retries.
	RetryBudget int

	// StepTimeout bounds click, type, and extract waits when the action
	// does not carry its own timeout.
	StepTimeout time.Duration

	// NavigationTimeout bounds navigate steps the same way.
	NavigationTimeout time.Duration

	// CaptureFailures writes a screenshot to ScreenshotDir when a step
	// fails with its retry budget exhausted. Best effort.
	CaptureFailures bool
	ScreenshotDir   string
}

func (c Config) withDefaults() Config {
	if c.RetryBudget < 0 {
		c.RetryBudget = 0
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = DefaultStepTimeout
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver registers a callback invoked for every step transition. The
// callback runs on the engine's goroutine and must not call back into the
// engine.
func WithObserver(fn func(StepEvent)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// Engine runs plans. One plan at a time: Execute claims the engine until
// the run reaches a terminal state or suspends, and Resume picks a
// suspended run back up. Separate concurrent runs need separate engines.
type Engine struct {
	cfg      Config
	registry *sites.Registry
	guard    *navigation.Guard
	logger   *logging.Logger
	observer func(StepEvent)

	mu  sync.Mutex
	run *runState
}

// runState is the live state of one execution, including a suspended one.
type runState struct {
	plan      *plan.Plan
	sess      browser.Session
	next      int
	successes int
	answered  int
	result    *plan.ExecutionResult
	pending   *Question
}

// New creates an Engine. A nil registry resolves nothing, a nil guard
// allows all navigation, and a nil logger discards.
func New(cfg Config, registry *sites.Registry, guard *navigation.Guard, logger *logging.Logger, opts ...Option) *Engine {
	if registry == nil {
		registry = sites.NewEmpty()
	}
	if guard == nil {
		guard = navigation.AllowAll()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	e := &Engine{
		cfg:      cfg.withDefaults(),
		registry: registry,
		guard:    guard,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the plan against the session. The error return is reserved
// for pre-dispatch fatal conditions and context cancellation; step failures
// are absorbed into the result. On every terminal status the session is
// closed before Execute returns. An awaiting_user result leaves the session
// open and the engine claimed until Resume or Abort.
func (e *Engine) Execute(ctx context.Context, p *plan.Plan, sess browser.Session) (*plan.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run != nil {
		e.release(sess)
		return nil, fmt.Errorf("engine is already executing a plan")
	}
	if sess == nil {
		return nil, fmt.Errorf("browser session is nil")
	}
	if sess.Closed() {
		return nil, browser.ErrSessionClosed
	}
	if err := p.Validate(); err != nil {
		e.release(sess)
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	e.run = &runState{
		plan: p,
		sess: sess,
		result: &plan.ExecutionResult{
			PlanID: p.ID,
			Status: plan.StatusFailed,
		},
	}
	e.logger.Infof("executing plan %s (%d steps)", p.ID, p.Len())
	return e.loop(ctx)
}

// Resume completes a suspended ask_user step with the user's answer and
// continues execution from the next action. Earlier steps are not re-sent.
func (e *Engine) Resume(ctx context.Context, answer string) (*plan.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rs := e.run
	if rs == nil || rs.pending == nil {
		return nil, fmt.Errorf("no suspended run to resume")
	}

	rs.answered++
	rs.result.Extracted = append(rs.result.Extracted, plan.Extraction{
		Label: fmt.Sprintf("user_response_%d", rs.answered),
		Text:  answer,
	})
	e.emit(StepEvent{Index: rs.next, Action: rs.plan.Actions[rs.next], Attempt: 1, State: StateSucceeded})
	e.logger.Infof("resumed plan %s at step %d", rs.plan.ID, rs.next)

	rs.pending = nil
	rs.successes++
	rs.next++
	return e.loop(ctx)
}

// Pending returns the question of a suspended run, if any.
func (e *Engine) Pending() (Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil || e.run.pending == nil {
		return Question{}, false
	}
	return *e.run.pending, true
}

// Abort releases a suspended run without resuming it. The session is closed
// and the run reports partial or failed with an abort reason.
func (e *Engine) Abort() (*plan.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rs := e.run
	if rs == nil {
		return nil, fmt.Errorf("no run to abort")
	}
	return e.finishFailure(rs, rs.next, "run aborted by caller"), nil
}

// loop drives actions from rs.next until terminal or suspension. Called
// with e.mu held.
func (e *Engine) loop(ctx context.Context) (*plan.ExecutionResult, error) {
	rs := e.run
	for rs.next < len(rs.plan.Actions) {
		// Cancellation is honored at every action boundary, with the
		// session released before returning.
		if err := ctx.Err(); err != nil {
			result := e.finishFailure(rs, rs.next, fmt.Sprintf("run canceled: %v", err))
			return result, err
		}

		idx := rs.next
		action := rs.plan.Actions[idx]

		if action.Kind == plan.KindAskUser {
			rs.pending = &Question{StepIndex: idx, Prompt: action.Value}
			rs.result.Status = plan.StatusAwaitingUser
			e.emit(StepEvent{Index: idx, Action: action, Attempt: 1, State: StateAwaiting})
			e.logger.Infof("plan %s suspended at step %d awaiting user input", rs.plan.ID, idx)
			return rs.result.Clone(), nil
		}

		if err := e.runStep(ctx, rs, idx, action); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result := e.finishFailure(rs, idx, fmt.Sprintf("run canceled: %v", ctxErr))
				return result, ctxErr
			}
			e.captureFailure(ctx, rs, idx)
			result := e.finishFailure(rs, idx, err.Error())
			return result, nil
		}

		rs.successes++
		rs.next++
	}

	rs.result.Status = plan.StatusCompleted
	result := rs.result.Clone()
	e.release(rs.sess)
	e.run = nil
	e.logger.Infof("plan %s completed", rs.plan.ID)
	return result, nil
}

// runStep dispatches one action with the retry budget. The bounded counter
// is what prevents livelock against a permanently broken locator.
func (e *Engine) runStep(ctx context.Context, rs *runState, idx int, action plan.Action) error {
	attempts := 1 + e.cfg.RetryBudget
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		e.emit(StepEvent{Index: idx, Action: action, Attempt: attempt, State: StateRunning})
		err = e.dispatch(ctx, rs, action)
		if err == nil {
			e.emit(StepEvent{Index: idx, Action: action, Attempt: attempt, State: StateSucceeded})
			return nil
		}
		if !retryable(err) || attempt == attempts {
			break
		}
		e.logger.Warnf("step %d (%s) attempt %d failed, retrying: %v", idx, action.Kind, attempt, err)
		e.emit(StepEvent{Index: idx, Action: action, Attempt: attempt, State: StateRetrying, Err: err})
	}
	e.emit(StepEvent{Index: idx, Action: action, Attempt: attempts, State: StateFailed, Err: err})
	return err
}

// retryable reports whether a failure might clear on a retry. Policy
// refusals, closed sessions, and cancellations never do.
func retryable(err error) bool {
	switch {
	case errors.Is(err, navigation.ErrNavigationBlocked),
		errors.Is(err, browser.ErrSessionClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// dispatch maps an action kind onto the corresponding session operation.
func (e *Engine) dispatch(ctx context.Context, rs *runState, action plan.Action) error {
	switch action.Kind {
	case plan.KindNavigate:
		url := action.Target
		if entry, ok := e.registry.Resolve(url); ok {
			// Canonical URL verbatim for resolved site names.
			url = entry.URL
		}
		if err := e.guard.Check(url); err != nil {
			return err
		}
		return rs.sess.Navigate(ctx, url, action.StepTimeout(e.cfg.NavigationTimeout))

	case plan.KindClick:
		return rs.sess.Click(ctx, action.Target, action.StepTimeout(e.cfg.StepTimeout))

	case plan.KindType:
		return rs.sess.Type(ctx, action.Target, action.Value, action.StepTimeout(e.cfg.StepTimeout))

	case plan.KindScroll:
		direction, pixels, err := plan.ParseScrollValue(action.Value)
		if err != nil {
			return err
		}
		return rs.sess.Scroll(ctx, direction, pixels)

	case plan.KindExtract:
		text, err := rs.sess.Extract(ctx, action.Target, action.StepTimeout(e.cfg.StepTimeout))
		if err != nil {
			// Absence of the target is a failure; a present-but-empty
			// target already succeeded with "" inside the session.
			return err
		}
		rs.result.Extracted = append(rs.result.Extracted, plan.Extraction{
			Label: action.Value,
			Text:  text,
		})
		return nil

	case plan.KindWait:
		d, err := plan.ParseWaitValue(action.Value)
		if err != nil {
			return err
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return fmt.Errorf("unsupported action kind %q", action.Kind)
}

// finishFailure records the failed step, settles the final status, releases
// the session, and clears the run. Called with e.mu held.
func (e *Engine) finishFailure(rs *runState, idx int, reason string) *plan.ExecutionResult {
	rs.result.FailedStep = &plan.StepFailure{Index: idx, Reason: reason}
	if rs.successes > 0 {
		rs.result.Status = plan.StatusPartial
	} else {
		rs.result.Status = plan.StatusFailed
	}
	result := rs.result.Clone()
	e.release(rs.sess)
	e.run = nil
	e.logger.Warnf("plan %s stopped at step %d: %s", rs.plan.ID, idx, reason)
	return result
}

// captureFailure writes a best-effort screenshot of the page at the moment
// a step exhausted its retries.
func (e *Engine) captureFailure(ctx context.Context, rs *runState, idx int) {
	if !e.cfg.CaptureFailures || e.cfg.ScreenshotDir == "" {
		return
	}
	data, err := rs.sess.Screenshot(ctx)
	if err != nil {
		e.logger.Warnf("failure screenshot for step %d: %v", idx, err)
		return
	}
	if err := os.MkdirAll(e.cfg.ScreenshotDir, 0750); err != nil {
		e.logger.Warnf("failure screenshot dir: %v", err)
		return
	}
	path := filepath.Join(e.cfg.ScreenshotDir, uuid.New().String()+".png")
	if err := os.WriteFile(path, data, 0600); err != nil {
		e.logger.Warnf("writing failure screenshot: %v", err)
		return
	}
	e.logger.Infof("failure screenshot for step %d written to %s", idx, path)
}

// release closes the session, logging rather than propagating close errors.
func (e *Engine) release(sess browser.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		e.logger.Warnf("closing browser session: %v", err)
	}
}

// emit forwards a step event to the observer when one is registered.
func (e *Engine) emit(event StepEvent) {
	if e.observer != nil {
		e.observer(event)
	}
}
