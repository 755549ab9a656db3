// Package plan defines the action vocabulary shared by the compiler and the
// execution engine: the Action schema the language model is prompted to emit,
// the validated Plan that wraps an ordered sequence of actions, and the
// ExecutionResult reported back to callers.
package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the operation an Action performs.
type Kind string

const (
	KindNavigate Kind = "navigate" // KindNavigate loads a URL or a known site by name.
	KindClick    Kind = "click"    // KindClick clicks the element matched by the target selector.
	KindType     Kind = "type"     // KindType types the value into the element matched by the target selector.
	KindScroll   Kind = "scroll"   // KindScroll scrolls the page by direction or pixel distance.
	KindExtract  Kind = "extract"  // KindExtract captures text from the target and stores it under the value label.
	KindWait     Kind = "wait"     // KindWait pauses execution for the duration in value.
	KindAskUser  Kind = "ask_user" // KindAskUser suspends execution until the user answers the question in value.
)

// KindError is not a plannable action. The model is prompted to emit a single
// step of this kind when it declines an instruction, and the compiler turns
// it into a rejection error instead of a plan.
const KindError Kind = "error"

// Valid reports whether k is one of the executable action kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNavigate, KindClick, KindType, KindScroll, KindExtract, KindWait, KindAskUser:
		return true
	}
	return false
}

// UnmarshalJSON folds case and surrounding whitespace so that a model
// emitting "Navigate" or " click " still maps onto the canonical kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = Kind(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Action is a single browser-automation step. The wire keys match the JSON
// dialect the compiler prompts the model to produce.
type Action struct {
	// Kind selects the operation.
	Kind Kind `json:"action"`

	// Target locates what the action operates on: a CSS selector, an
	// "xpath="-prefixed XPath expression, or for navigate a URL or a
	// logical site name resolvable by the site registry.
	Target string `json:"target,omitempty"`

	// Value is the kind-dependent payload: text for type, a label for
	// extract, a direction or pixel distance for scroll, a duration for
	// wait, and the question for ask_user.
	Value string `json:"value,omitempty"`

	// TimeoutMS bounds the step; zero means the engine's configured
	// default applies.
	TimeoutMS int `json:"timeout_ms,omitempty"`
}

// requiredFields is the per-kind validation matrix. A field listed here must
// be non-empty for the action to be accepted.
var requiredFields = map[Kind][]string{
	KindNavigate: {"target"},
	KindClick:    {"target"},
	KindType:     {"target", "value"},
	KindScroll:   {},
	KindExtract:  {"target", "value"},
	KindWait:     {"value"},
	KindAskUser:  {"value"},
}

// RequiredFields returns the fields that must be present for the given kind.
// Unknown kinds return nil.
func RequiredFields(k Kind) []string {
	fields, ok := requiredFields[k]
	if !ok {
		return nil
	}
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// Validate checks that the action carries every field its kind requires and
// that kind-specific value syntax parses. It returns a *ValidationError with
// Index -1; Plan.Validate fills in the position.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return &ValidationError{Index: -1, Kind: a.Kind, Field: "action", Reason: "unknown action kind"}
	}
	for _, field := range requiredFields[a.Kind] {
		if a.fieldValue(field) == "" {
			return &ValidationError{Index: -1, Kind: a.Kind, Field: field, Reason: "missing required field"}
		}
	}
	switch a.Kind {
	case KindScroll:
		if _, _, err := ParseScrollValue(a.Value); err != nil {
			return &ValidationError{Index: -1, Kind: a.Kind, Field: "value", Reason: err.Error()}
		}
	case KindWait:
		if _, err := ParseWaitValue(a.Value); err != nil {
			return &ValidationError{Index: -1, Kind: a.Kind, Field: "value", Reason: err.Error()}
		}
	}
	if a.TimeoutMS < 0 {
		return &ValidationError{Index: -1, Kind: a.Kind, Field: "timeout_ms", Reason: "negative timeout"}
	}
	return nil
}

func (a Action) fieldValue(field string) string {
	switch field {
	case "target":
		return strings.TrimSpace(a.Target)
	case "value":
		return strings.TrimSpace(a.Value)
	}
	return ""
}

// StepTimeout returns the action's timeout, or fallback when unset.
func (a Action) StepTimeout(fallback time.Duration) time.Duration {
	if a.TimeoutMS > 0 {
		return time.Duration(a.TimeoutMS) * time.Millisecond
	}
	return fallback
}

// String renders the action in log-friendly form.
func (a Action) String() string {
	parts := []string{string(a.Kind)}
	if a.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%q", a.Target))
	}
	if a.Value != "" {
		parts = append(parts, fmt.Sprintf("value=%q", a.Value))
	}
	return strings.Join(parts, " ")
}

// ScrollDirection is the vertical movement a scroll action requests.
type ScrollDirection string

const (
	ScrollDown   ScrollDirection = "down"   // ScrollDown moves the viewport down by a pixel distance.
	ScrollUp     ScrollDirection = "up"     // ScrollUp moves the viewport up by a pixel distance.
	ScrollTop    ScrollDirection = "top"    // ScrollTop jumps to the top of the page.
	ScrollBottom ScrollDirection = "bottom" // ScrollBottom jumps to the bottom of the page.
)

// ParseScrollValue interprets a scroll action's value. Accepted forms:
// "" (one viewport down), "down", "up", "top", "bottom", "down:400",
// "up:250", a bare pixel count ("600", negative scrolls up), and the
// "to_top"/"to_bottom" aliases. Pixels of zero means one viewport.
func ParseScrollValue(value string) (ScrollDirection, int, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ScrollDown, 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return ScrollUp, -n, nil
		}
		return ScrollDown, n, nil
	}
	dir, pixels := v, ""
	if i := strings.IndexByte(v, ':'); i >= 0 {
		dir, pixels = v[:i], v[i+1:]
	}
	var direction ScrollDirection
	switch dir {
	case "down":
		direction = ScrollDown
	case "up":
		direction = ScrollUp
	case "top", "to_top":
		direction = ScrollTop
	case "bottom", "to_bottom":
		direction = ScrollBottom
	default:
		return "", 0, fmt.Errorf("unrecognized scroll direction %q", dir)
	}
	n := 0
	if pixels != "" {
		parsed, err := strconv.Atoi(pixels)
		if err != nil || parsed < 0 {
			return "", 0, fmt.Errorf("invalid scroll distance %q", pixels)
		}
		n = parsed
	}
	return direction, n, nil
}

// ParseWaitValue interprets a wait action's value as either a Go duration
// string ("1.5s", "500ms") or a bare number of seconds ("2").
func ParseWaitValue(value string) (time.Duration, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("empty wait duration")
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative wait duration %q", value)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid wait duration %q", value)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative wait duration %q", value)
	}
	return d, nil
}
