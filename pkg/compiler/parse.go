package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/entrhq/webpilot/pkg/plan"
)

// wireStep is the single-step JSON shape the model emits. Message exists
// only for the error-step refusal convention.
type wireStep struct {
	Action    string `json:"action"`
	Target    string `json:"target"`
	Value     string `json:"value"`
	TimeoutMS int    `json:"timeout_ms"`
	Message   string `json:"message"`
}

// parseResponse turns raw model output into actions. Markdown code fences
// are stripped first; if strict parsing fails, one jsonrepair pass is
// attempted before the response is declared malformed. A leading error step
// becomes a RejectionError.
func parseResponse(raw string) ([]plan.Action, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var steps []wireStep
	if err := json.Unmarshal([]byte(cleaned), &steps); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if err := json.Unmarshal([]byte(repaired), &steps); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: response contains no steps", ErrMalformedResponse)
	}

	first := plan.Kind(strings.ToLower(strings.TrimSpace(steps[0].Action)))
	if first == plan.KindError {
		return nil, &RejectionError{Message: steps[0].Message}
	}

	actions := make([]plan.Action, len(steps))
	for i, step := range steps {
		actions[i] = plan.Action{
			Kind:      plan.Kind(strings.ToLower(strings.TrimSpace(step.Action))),
			Target:    strings.TrimSpace(step.Target),
			Value:     step.Value,
			TimeoutMS: step.TimeoutMS,
		}
	}
	return actions, nil
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag, and trims whitespace.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		firstLine := strings.TrimSpace(s[:i])
		if firstLine == "" || !strings.ContainsAny(firstLine, "[{") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
