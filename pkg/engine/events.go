package engine

import "github.com/entrhq/webpilot/pkg/plan"

// StepState is the per-attempt lifecycle state reported to observers.
type StepState string

const (
	StateRunning   StepState = "running"   // StateRunning means the attempt was dispatched to the session.
	StateSucceeded StepState = "succeeded" // StateSucceeded means the attempt completed without error.
	StateRetrying  StepState = "retrying"  // StateRetrying means the attempt failed with retry budget remaining.
	StateFailed    StepState = "failed"    // StateFailed means the step failed with the retry budget exhausted.
	StateAwaiting  StepState = "awaiting"  // StateAwaiting means the step suspended the run pending a user answer.
)

// StepEvent describes one attempt-level transition. Attempt is 1-based;
// retries show the same Index with an increasing Attempt.
type StepEvent struct {
	Index   int
	Action  plan.Action
	Attempt int
	State   StepState
	Err     error
}

// Question is the pending ask_user prompt of a suspended run.
type Question struct {
	// StepIndex is the position of the suspended ask_user action.
	StepIndex int

	// Prompt is the question to surface to the user.
	Prompt string
}
