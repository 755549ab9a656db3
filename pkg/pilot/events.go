package pilot

import (
	"github.com/entrhq/webpilot/pkg/engine"
	"github.com/entrhq/webpilot/pkg/plan"
)

// EventType identifies a run lifecycle event.
type EventType string

const (
	EventRunStarted      EventType = "run_started"      // EventRunStarted marks the start of a run.
	EventCompileStarted  EventType = "compile_started"  // EventCompileStarted marks a compile (or re-plan compile) beginning.
	EventCompileFinished EventType = "compile_finished" // EventCompileFinished marks a compile returning, successfully or not.
	EventPlanReady       EventType = "plan_ready"       // EventPlanReady carries a validated plan about to be executed.
	EventStepStarted     EventType = "step_started"     // EventStepStarted marks a step attempt being dispatched.
	EventStepRetrying    EventType = "step_retrying"    // EventStepRetrying marks a failed attempt with retry budget remaining.
	EventStepFinished    EventType = "step_finished"    // EventStepFinished marks a step succeeding or exhausting its retries.
	EventQuestionPending EventType = "question_pending" // EventQuestionPending marks the run suspending on an ask_user step.
	EventReplanStarted   EventType = "replan_started"   // EventReplanStarted marks a continuation compile after a failure.
	EventRunFinished     EventType = "run_finished"     // EventRunFinished carries the final result of the run.
	EventRunError        EventType = "run_error"        // EventRunError marks a fatal pre-dispatch failure.
)

// Event is one entry in the run event stream consumed by front ends.
type Event struct {
	// Type indicates the kind of event.
	Type EventType

	// RunID identifies the run the event belongs to.
	RunID string

	// Plan is set for plan_ready events.
	Plan *plan.Plan

	// Step is set for step-level events.
	Step *engine.StepEvent

	// Question is set for question_pending events.
	Question *engine.Question

	// Result is set for run_finished events.
	Result *plan.ExecutionResult

	// Err is set for run_error and failed compile_finished events.
	Err error
}
