package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/browser"
	"github.com/entrhq/webpilot/pkg/plan"
	"github.com/entrhq/webpilot/pkg/security/navigation"
	"github.com/entrhq/webpilot/pkg/sites"
)

// fakeSession scripts driver behavior per target and records every call in
// order.
type fakeSession struct {
	mu          sync.Mutex
	calls       []string
	failAlways  map[string]bool   // target -> every attempt fails
	failN       map[string]int    // target -> failures remaining before success
	extractText map[string]string // selector -> text returned by Extract
	missing     map[string]bool   // selector -> Extract reports target not found
	closed      bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		failAlways:  make(map[string]bool),
		failN:       make(map[string]int),
		extractText: make(map[string]string),
		missing:     make(map[string]bool),
	}
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSession) step(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrSessionClosed
	}
	if s.failAlways[target] {
		return fmt.Errorf("scripted failure for %s", target)
	}
	if n := s.failN[target]; n > 0 {
		s.failN[target] = n - 1
		return fmt.Errorf("transient failure for %s", target)
	}
	return nil
}

func (s *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.record("navigate " + url)
	return s.step(url)
}

func (s *fakeSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	s.record("click " + selector)
	return s.step(selector)
}

func (s *fakeSession) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	s.record(fmt.Sprintf("type %s %q", selector, text))
	return s.step(selector)
}

func (s *fakeSession) Scroll(ctx context.Context, direction plan.ScrollDirection, pixels int) error {
	s.record(fmt.Sprintf("scroll %s %d", direction, pixels))
	return nil
}

func (s *fakeSession) Extract(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	s.record("extract " + selector)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[selector] {
		return "", fmt.Errorf("%w: %q", browser.ErrTargetNotFound, selector)
	}
	return s.extractText[selector], nil
}

func (s *fakeSession) PageExcerpt(ctx context.Context, maxLen int) (string, error) {
	return "excerpt", nil
}

func (s *fakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (s *fakeSession) URL() string { return "https://example.com" }

func (s *fakeSession) Title(ctx context.Context) (string, error) { return "Example", nil }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func newTestEngine(opts ...Option) *Engine {
	return New(Config{}, sites.New(), nil, nil, opts...)
}

func youtubePlan() *plan.Plan {
	return plan.New("Open YouTube and search for cats", []plan.Action{
		{Kind: plan.KindNavigate, Target: "youtube"},
		{Kind: plan.KindClick, Target: "input#search"},
		{Kind: plan.KindType, Target: "input#search", Value: "cats"},
		{Kind: plan.KindClick, Target: "button#search-icon-legacy"},
	})
}

func TestExecuteCompletedInOrder(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine()

	result, err := e.Execute(context.Background(), youtubePlan(), sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, result.Status)
	assert.Nil(t, result.FailedStep)
	assert.Equal(t, []string{
		"navigate https://www.youtube.com", // site name resolved to the canonical URL
		"click input#search",
		`type input#search "cats"`,
		"click button#search-icon-legacy",
	}, sess.callLog())
	assert.True(t, sess.Closed(), "session must be released on completion")
}

func TestExecuteMiddleStepFailurePartial(t *testing.T) {
	sess := newFakeSession()
	sess.failAlways["#missing"] = true
	e := newTestEngine()

	p := plan.New("extract then fail", []plan.Action{
		{Kind: plan.KindExtract, Target: "h1", Value: "heading"},
		{Kind: plan.KindClick, Target: "#missing"},
		{Kind: plan.KindExtract, Target: "h2", Value: "never"},
	})
	sess.extractText["h1"] = "Welcome"

	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err, "step failures must not surface as errors")

	assert.Equal(t, plan.StatusPartial, result.Status)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 1, result.FailedStep.Index)
	assert.Equal(t, []plan.Extraction{{Label: "heading", Text: "Welcome"}}, result.Extracted)
	assert.True(t, sess.Closed(), "session must be released on abort")

	// Step C never ran.
	for _, call := range sess.callLog() {
		assert.NotEqual(t, "extract h2", call)
	}
}

func TestExecuteFirstStepFailureIsFailed(t *testing.T) {
	sess := newFakeSession()
	sess.failAlways["https://nope.example.com"] = true
	e := newTestEngine()

	p := plan.New("go nowhere", []plan.Action{
		{Kind: plan.KindNavigate, Target: "https://nope.example.com"},
	})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusFailed, result.Status)
	require.NotNil(t, result.FailedStep)
	assert.Equal(t, 0, result.FailedStep.Index)
	assert.True(t, sess.Closed())
}

func TestRetryBudgetExhausted(t *testing.T) {
	sess := newFakeSession()
	sess.failAlways["#broken"] = true
	e := New(Config{RetryBudget: 2}, sites.New(), nil, nil)

	p := plan.New("click broken", []plan.Action{{Kind: plan.KindClick, Target: "#broken"}})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusFailed, result.Status)
	// 1 initial attempt + 2 retries, then stop: no livelock.
	assert.Equal(t, 3, len(sess.callLog()))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	sess := newFakeSession()
	sess.failN["#flaky"] = 2
	e := New(Config{RetryBudget: 2}, sites.New(), nil, nil)

	var retries int
	e.observer = func(ev StepEvent) {
		if ev.State == StateRetrying {
			retries++
		}
	}

	p := plan.New("click flaky", []plan.Action{{Kind: plan.KindClick, Target: "#flaky"}})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, result.Status)
	assert.Equal(t, 2, retries)
}

func TestExtractEmptyTextSucceeds(t *testing.T) {
	sess := newFakeSession()
	sess.extractText["span.empty"] = "" // present but empty
	e := newTestEngine()

	p := plan.New("extract empty", []plan.Action{
		{Kind: plan.KindExtract, Target: "span.empty", Value: "label"},
	})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, result.Status)
	assert.Equal(t, []plan.Extraction{{Label: "label", Text: ""}}, result.Extracted)
}

func TestExtractMissingTargetFails(t *testing.T) {
	sess := newFakeSession()
	sess.missing["#ghost"] = true
	e := New(Config{RetryBudget: 1}, sites.New(), nil, nil)

	p := plan.New("extract ghost", []plan.Action{
		{Kind: plan.KindExtract, Target: "#ghost", Value: "label"},
	})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusFailed, result.Status)
	assert.Empty(t, result.Extracted)
}

func TestAskUserSuspendAndResume(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine()

	p := plan.New("book travel", []plan.Action{
		{Kind: plan.KindNavigate, Target: "https://travel.example.com"},
		{Kind: plan.KindAskUser, Value: "What departure date?"},
		{Kind: plan.KindType, Target: "#date", Value: "placeholder"},
	})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusAwaitingUser, result.Status)
	assert.False(t, sess.Closed(), "session stays open while suspended")

	q, ok := e.Pending()
	require.True(t, ok)
	assert.Equal(t, 1, q.StepIndex)
	assert.Equal(t, "What departure date?", q.Prompt)

	callsBefore := len(sess.callLog())
	final, err := e.Resume(context.Background(), "2024-01-01")
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, final.Status)
	assert.Equal(t, []plan.Extraction{{Label: "user_response_1", Text: "2024-01-01"}}, final.Extracted)
	assert.True(t, sess.Closed())

	// The resume proceeded to the next action without re-sending step 0.
	calls := sess.callLog()
	require.Equal(t, callsBefore+1, len(calls))
	assert.Equal(t, `type #date "placeholder"`, calls[len(calls)-1])

	_, ok = e.Pending()
	assert.False(t, ok)
}

func TestResumeWithoutPendingFails(t *testing.T) {
	e := newTestEngine()
	_, err := e.Resume(context.Background(), "answer")
	assert.Error(t, err)
}

func TestAbortReleasesSuspendedRun(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine()

	p := plan.New("ask then act", []plan.Action{
		{Kind: plan.KindNavigate, Target: "https://example.com"},
		{Kind: plan.KindAskUser, Value: "continue?"},
	})
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)
	require.Equal(t, plan.StatusAwaitingUser, result.Status)

	aborted, err := e.Abort()
	require.NoError(t, err)
	assert.Equal(t, plan.StatusPartial, aborted.Status)
	assert.True(t, sess.Closed(), "session must be released on abort")

	// The engine is free for the next plan.
	sess2 := newFakeSession()
	_, err = e.Execute(context.Background(), youtubePlan(), sess2)
	assert.NoError(t, err)
}

func TestCancellationReleasesSession(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Execute(ctx, youtubePlan(), sess)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, plan.StatusFailed, result.Status)
	assert.True(t, sess.Closed(), "session must be released on cancellation")
}

func TestNavigationGuardBlocksWithoutRetry(t *testing.T) {
	guard, err := navigation.NewGuard(navigation.Rules{Deny: []string{"*.blocked.example.com*"}})
	require.NoError(t, err)

	sess := newFakeSession()
	e := New(Config{RetryBudget: 2}, sites.New(), guard, nil)

	p := plan.New("go somewhere blocked", []plan.Action{
		{Kind: plan.KindNavigate, Target: "https://www.blocked.example.com"},
	})
	result, execErr := e.Execute(context.Background(), p, sess)
	require.NoError(t, execErr)

	assert.Equal(t, plan.StatusFailed, result.Status)
	// Policy refusals are not retried, and the driver is never reached.
	assert.Empty(t, sess.callLog())
	assert.True(t, sess.Closed())
}

func TestExecuteRejectsInvalidPlan(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine()

	p := plan.New("bad", []plan.Action{{Kind: plan.KindClick}})
	_, err := e.Execute(context.Background(), p, sess)
	assert.Error(t, err)
	assert.True(t, sess.Closed(), "session must be released even on pre-dispatch failure")
}

func TestExecuteRejectsClosedSession(t *testing.T) {
	sess := newFakeSession()
	require.NoError(t, sess.Close())
	e := newTestEngine()

	_, err := e.Execute(context.Background(), youtubePlan(), sess)
	assert.ErrorIs(t, err, browser.ErrSessionClosed)
}

func TestWaitActionSleeps(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine()

	p := plan.New("brief pause", []plan.Action{{Kind: plan.KindWait, Value: "10ms"}})
	start := time.Now()
	result, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	assert.Equal(t, plan.StatusCompleted, result.Status)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestObserverSeesOrderedEvents(t *testing.T) {
	sess := newFakeSession()
	var events []StepEvent
	e := newTestEngine(WithObserver(func(ev StepEvent) {
		events = append(events, ev)
	}))

	p := plan.New("two steps", []plan.Action{
		{Kind: plan.KindNavigate, Target: "https://example.com"},
		{Kind: plan.KindScroll, Value: "down"},
	})
	_, err := e.Execute(context.Background(), p, sess)
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, StateRunning, events[0].State)
	assert.Equal(t, StateSucceeded, events[1].State)
	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, 1, events[2].Index)
}
