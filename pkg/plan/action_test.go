package plan

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestActionValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		action    Action
		wantField string
	}{
		{
			name:   "navigate with target",
			action: Action{Kind: KindNavigate, Target: "https://example.com"},
		},
		{
			name:      "navigate without target",
			action:    Action{Kind: KindNavigate},
			wantField: "target",
		},
		{
			name:   "click with target",
			action: Action{Kind: KindClick, Target: "#submit"},
		},
		{
			name:      "click without target",
			action:    Action{Kind: KindClick},
			wantField: "target",
		},
		{
			name:      "click with whitespace target",
			action:    Action{Kind: KindClick, Target: "   "},
			wantField: "target",
		},
		{
			name:   "type with target and value",
			action: Action{Kind: KindType, Target: "input[name=q]", Value: "funny cats"},
		},
		{
			name:      "type without value",
			action:    Action{Kind: KindType, Target: "input[name=q]"},
			wantField: "value",
		},
		{
			name:   "scroll without value",
			action: Action{Kind: KindScroll},
		},
		{
			name:   "extract with target and label",
			action: Action{Kind: KindExtract, Target: "h1", Value: "headline"},
		},
		{
			name:      "extract without label",
			action:    Action{Kind: KindExtract, Target: "h1"},
			wantField: "value",
		},
		{
			name:      "extract without target",
			action:    Action{Kind: KindExtract, Value: "headline"},
			wantField: "target",
		},
		{
			name:   "wait with duration",
			action: Action{Kind: KindWait, Value: "2s"},
		},
		{
			name:      "wait without duration",
			action:    Action{Kind: KindWait},
			wantField: "value",
		},
		{
			name:   "ask_user with question",
			action: Action{Kind: KindAskUser, Value: "Which account should I use?"},
		},
		{
			name:      "ask_user without question",
			action:    Action{Kind: KindAskUser},
			wantField: "value",
		},
		{
			name:      "unknown kind",
			action:    Action{Kind: "teleport", Target: "#x"},
			wantField: "action",
		},
		{
			name:      "negative timeout",
			action:    Action{Kind: KindClick, Target: "#x", TimeoutMS: -5},
			wantField: "timeout_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestKindUnmarshalNormalizes(t *testing.T) {
	var a Action
	if err := json.Unmarshal([]byte(`{"action":" Navigate ","target":"youtube"}`), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if a.Kind != KindNavigate {
		t.Errorf("Kind = %q, want %q", a.Kind, KindNavigate)
	}
}

func TestParseScrollValue(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantDir   ScrollDirection
		wantPx    int
		wantError bool
	}{
		{name: "empty defaults down", value: "", wantDir: ScrollDown, wantPx: 0},
		{name: "down", value: "down", wantDir: ScrollDown, wantPx: 0},
		{name: "up with distance", value: "up:250", wantDir: ScrollUp, wantPx: 250},
		{name: "bare pixels", value: "600", wantDir: ScrollDown, wantPx: 600},
		{name: "negative pixels scroll up", value: "-300", wantDir: ScrollUp, wantPx: 300},
		{name: "to_bottom alias", value: "to_bottom", wantDir: ScrollBottom, wantPx: 0},
		{name: "to_top alias", value: "TO_TOP", wantDir: ScrollTop, wantPx: 0},
		{name: "bad direction", value: "sideways", wantError: true},
		{name: "bad distance", value: "down:lots", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, px, err := ParseScrollValue(tt.value)
			if tt.wantError {
				if err == nil {
					t.Fatal("ParseScrollValue() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScrollValue() error = %v", err)
			}
			if dir != tt.wantDir {
				t.Errorf("direction = %q, want %q", dir, tt.wantDir)
			}
			if px != tt.wantPx {
				t.Errorf("pixels = %d, want %d", px, tt.wantPx)
			}
		})
	}
}

func TestParseWaitValue(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		want      time.Duration
		wantError bool
	}{
		{name: "bare seconds", value: "2", want: 2 * time.Second},
		{name: "fractional seconds", value: "1.5", want: 1500 * time.Millisecond},
		{name: "duration string", value: "750ms", want: 750 * time.Millisecond},
		{name: "negative", value: "-1", wantError: true},
		{name: "garbage", value: "soon", wantError: true},
		{name: "empty", value: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWaitValue(tt.value)
			if tt.wantError {
				if err == nil {
					t.Fatal("ParseWaitValue() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWaitValue() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("duration = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStepTimeout(t *testing.T) {
	fallback := 10 * time.Second

	set := Action{Kind: KindClick, Target: "#x", TimeoutMS: 2500}
	if got := set.StepTimeout(fallback); got != 2500*time.Millisecond {
		t.Errorf("StepTimeout = %v, want 2.5s", got)
	}

	unset := Action{Kind: KindClick, Target: "#x"}
	if got := unset.StepTimeout(fallback); got != fallback {
		t.Errorf("StepTimeout = %v, want fallback %v", got, fallback)
	}
}
