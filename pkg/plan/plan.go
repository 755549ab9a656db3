package plan

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Plan is a validated, ordered sequence of actions compiled from a single
// natural-language instruction. Plans are immutable once built: the engine
// never reorders, skips ahead, or rewrites steps, and re-planning always
// produces a new Plan rather than patching an existing one.
type Plan struct {
	// ID uniquely identifies the compiled plan within a run.
	ID string `json:"id"`

	// Instruction is the text the plan was compiled from.
	Instruction string `json:"instruction"`

	// Actions execute strictly in slice order.
	Actions []Action `json:"actions"`
}

// New builds a Plan with a fresh identifier. The result is not yet
// validated; callers that accept model output must call Validate.
func New(instruction string, actions []Action) *Plan {
	return &Plan{
		ID:          uuid.New().String(),
		Instruction: instruction,
		Actions:     actions,
	}
}

// Validate enforces the plan invariants: at least one action, and every
// action carrying the fields its kind requires. The first violation is
// returned as a *ValidationError with its step index set.
func (p *Plan) Validate() error {
	if p == nil || len(p.Actions) == 0 {
		return &ValidationError{Index: -1, Field: "actions", Reason: "plan has no actions"}
	}
	for i, action := range p.Actions {
		if err := action.Validate(); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				verr.Index = i
				return verr
			}
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// Len returns the number of actions in the plan.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Actions)
}
