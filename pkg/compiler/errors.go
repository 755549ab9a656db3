package compiler

import (
	"errors"
	"fmt"

	"github.com/entrhq/webpilot/pkg/plan"
)

// Compile failures are always fatal to that compile attempt: the compiler
// never returns a partial plan alongside an error.
var (
	// ErrEmptyInstruction reports a blank instruction.
	ErrEmptyInstruction = errors.New("instruction is empty")

	// ErrBackendUnavailable reports a transport or quota failure talking
	// to the language model. The compiler does not retry; that policy
	// belongs to the caller.
	ErrBackendUnavailable = errors.New("language model backend unavailable")

	// ErrMalformedResponse reports model output that could not be parsed
	// as a plan, even after a repair pass.
	ErrMalformedResponse = errors.New("model response is not a parseable plan")

	// ErrInvalidStep reports a parsed step that violates the action
	// schema. Match the step details with errors.As on *InvalidStepError.
	ErrInvalidStep = errors.New("plan contains an invalid step")

	// ErrInstructionRejected reports that the model declined to plan the
	// instruction, using the error-step convention.
	ErrInstructionRejected = errors.New("model declined the instruction")

	// ErrPlanTooLong reports a plan over the configured step limit.
	ErrPlanTooLong = errors.New("plan exceeds the configured step limit")

	// ErrPromptTooLarge reports a prompt over the configured token budget.
	ErrPromptTooLarge = errors.New("prompt exceeds the configured token budget")
)

// InvalidStepError carries the position and offending field of the first
// step that failed validation. It matches ErrInvalidStep under errors.Is.
type InvalidStepError struct {
	Index  int
	Kind   plan.Kind
	Field  string
	Reason string
}

func (e *InvalidStepError) Error() string {
	return fmt.Sprintf("invalid step %d (%s): %s %q", e.Index, e.Kind, e.Reason, e.Field)
}

func (e *InvalidStepError) Is(target error) bool {
	return target == ErrInvalidStep
}

// RejectionError carries the model's stated reason for declining an
// instruction. It matches ErrInstructionRejected under errors.Is.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return "model declined the instruction"
	}
	return fmt.Sprintf("model declined the instruction: %s", e.Message)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrInstructionRejected
}
