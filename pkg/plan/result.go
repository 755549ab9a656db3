package plan

// Status summarizes how a plan execution ended.
type Status string

const (
	StatusCompleted    Status = "completed"     // StatusCompleted means every step succeeded.
	StatusPartial      Status = "partial"       // StatusPartial means at least one step succeeded before the run aborted.
	StatusFailed       Status = "failed"        // StatusFailed means the run aborted with zero successful steps.
	StatusAwaitingUser Status = "awaiting_user" // StatusAwaitingUser means the run is suspended on an ask_user step.
)

// Terminal reports whether the status describes a finished run. An
// awaiting_user result leaves the run suspended and resumable.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Extraction is one captured (label, text) pair. Text may legitimately be
// empty: extracting from an element that exists but has no text succeeds
// with "".
type Extraction struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// StepFailure records the step that aborted a run.
type StepFailure struct {
	// Index is the zero-based position of the failed action in the plan.
	Index int `json:"index"`

	// Reason is the final failure after the retry budget was exhausted.
	Reason string `json:"reason"`
}

// ExecutionResult is the engine's report for one plan execution. Step
// failures are absorbed into this structure rather than surfaced as errors.
type ExecutionResult struct {
	// PlanID identifies the plan this result belongs to.
	PlanID string `json:"plan_id"`

	// Status is completed, partial, failed, or awaiting_user.
	Status Status `json:"status"`

	// Extracted holds captured values in execution order, including
	// user answers injected by resumed ask_user steps.
	Extracted []Extraction `json:"extracted,omitempty"`

	// FailedStep is set only for partial and failed results.
	FailedStep *StepFailure `json:"failed_step,omitempty"`
}

// Clone returns a deep copy so callers can hold a snapshot while the engine
// keeps accumulating into its own record.
func (r *ExecutionResult) Clone() *ExecutionResult {
	if r == nil {
		return nil
	}
	out := &ExecutionResult{
		PlanID: r.PlanID,
		Status: r.Status,
	}
	if len(r.Extracted) > 0 {
		out.Extracted = make([]Extraction, len(r.Extracted))
		copy(out.Extracted, r.Extracted)
	}
	if r.FailedStep != nil {
		failed := *r.FailedStep
		out.FailedStep = &failed
	}
	return out
}

// ExtractedValue returns the text recorded under label and whether the label
// was captured at all. With duplicate labels the most recent capture wins.
func (r *ExecutionResult) ExtractedValue(label string) (string, bool) {
	for i := len(r.Extracted) - 1; i >= 0; i-- {
		if r.Extracted[i].Label == label {
			return r.Extracted[i].Text, true
		}
	}
	return "", false
}
