package plan

import "fmt"

// ValidationError describes the first rule an action or plan violated.
// Index is the zero-based position of the offending step, or -1 when the
// action was validated outside of a plan.
type ValidationError struct {
	Index  int
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		if e.Kind != "" {
			return fmt.Sprintf("step %d (%s): %s %q", e.Index, e.Kind, e.Reason, e.Field)
		}
		return fmt.Sprintf("step %d: %s %q", e.Index, e.Reason, e.Field)
	}
	if e.Kind != "" {
		return fmt.Sprintf("%s action: %s %q", e.Kind, e.Reason, e.Field)
	}
	return fmt.Sprintf("%s %q", e.Reason, e.Field)
}
