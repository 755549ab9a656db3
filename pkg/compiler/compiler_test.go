package compiler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/plan"
	"github.com/entrhq/webpilot/pkg/sites"
)

// fixedGenerator returns the same response for every prompt, the mocking
// approach the design notes call for: never assert on live model output.
func fixedGenerator(response string) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, prompt llm.Prompt) (string, error) {
		return response, nil
	})
}

func newTestCompiler(gen llm.Generator) *Compiler {
	return New(Config{}, gen, sites.New(), nil)
}

const youtubeSearchPlan = `[
  {"action": "navigate", "target": "youtube"},
  {"action": "click", "target": "input#search"},
  {"action": "type", "target": "input#search", "value": "cats"},
  {"action": "click", "target": "button#search-icon-legacy"}
]`

func TestCompileYouTubeSearch(t *testing.T) {
	c := newTestCompiler(fixedGenerator(youtubeSearchPlan))

	p, err := c.Compile(context.Background(), "Open YouTube and search for cats")
	require.NoError(t, err)
	require.Equal(t, 4, p.Len())

	assert.Equal(t, plan.KindNavigate, p.Actions[0].Kind)
	assert.Equal(t, "youtube", p.Actions[0].Target)
	assert.Equal(t, plan.KindClick, p.Actions[1].Kind)
	assert.Equal(t, plan.KindType, p.Actions[2].Kind)
	assert.Equal(t, "cats", p.Actions[2].Value)
	assert.Equal(t, plan.KindClick, p.Actions[3].Kind)
	assert.Equal(t, "Open YouTube and search for cats", p.Instruction)
	assert.NotEmpty(t, p.ID)
}

func TestCompileStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + youtubeSearchPlan + "\n```"
	c := newTestCompiler(fixedGenerator(fenced))

	p, err := c.Compile(context.Background(), "search youtube for cats")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())
}

func TestCompileRepairsAlmostJSON(t *testing.T) {
	// Trailing comma: invalid for encoding/json, recoverable by repair.
	damaged := `[{"action": "navigate", "target": "https://example.com"},]`
	c := newTestCompiler(fixedGenerator(damaged))

	p, err := c.Compile(context.Background(), "open example.com")
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	assert.Equal(t, "https://example.com", p.Actions[0].Target)
}

func TestCompileMalformedResponse(t *testing.T) {
	for name, response := range map[string]string{
		"prose":   "I cannot help with that, sorry!",
		"empty":   "",
		"no list": `{"action": "navigate"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestCompiler(fixedGenerator(response))
			_, err := c.Compile(context.Background(), "do something")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestCompileInvalidStep(t *testing.T) {
	// click without target violates the required-field matrix.
	response := `[{"action": "navigate", "target": "google"}, {"action": "click"}]`
	c := newTestCompiler(fixedGenerator(response))

	_, err := c.Compile(context.Background(), "click something on google")
	require.ErrorIs(t, err, ErrInvalidStep)

	var stepErr *InvalidStepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, plan.KindClick, stepErr.Kind)
	assert.Equal(t, "target", stepErr.Field)
}

func TestCompileUnknownKindIsInvalid(t *testing.T) {
	response := `[{"action": "teleport", "target": "mars"}]`
	c := newTestCompiler(fixedGenerator(response))

	_, err := c.Compile(context.Background(), "go to mars")
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestCompileRejection(t *testing.T) {
	response := `[{"action": "error", "message": "instruction asks for credential theft"}]`
	c := newTestCompiler(fixedGenerator(response))

	_, err := c.Compile(context.Background(), "steal passwords")
	require.ErrorIs(t, err, ErrInstructionRejected)

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Message, "credential theft")
}

func TestCompileBackendUnavailable(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt llm.Prompt) (string, error) {
		return "", fmt.Errorf("connection refused")
	})
	c := newTestCompiler(gen)

	_, err := c.Compile(context.Background(), "open youtube")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestCompileEmptyInstruction(t *testing.T) {
	c := newTestCompiler(fixedGenerator(youtubeSearchPlan))
	for _, instruction := range []string{"", "   ", "\n\t"} {
		_, err := c.Compile(context.Background(), instruction)
		assert.ErrorIs(t, err, ErrEmptyInstruction)
	}
}

func TestCompileStepCap(t *testing.T) {
	long := "["
	for i := 0; i < 4; i++ {
		if i > 0 {
			long += ","
		}
		long += `{"action": "scroll", "value": "down"}`
	}
	long += "]"

	c := New(Config{MaxPlanSteps: 3}, fixedGenerator(long), sites.New(), nil)
	_, err := c.Compile(context.Background(), "scroll a lot")
	assert.ErrorIs(t, err, ErrPlanTooLong)
}

func TestCompileDeterministicForFixedResponse(t *testing.T) {
	c := newTestCompiler(fixedGenerator(youtubeSearchPlan))

	first, err := c.Compile(context.Background(), "search youtube for cats")
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), "search youtube for cats")
	require.NoError(t, err)

	// Plan IDs are fresh per compile; everything else must match.
	assert.Equal(t, first.Actions, second.Actions)
	assert.Equal(t, first.Instruction, second.Instruction)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCompilePromptBudget(t *testing.T) {
	c := New(Config{MaxPromptTokens: 10}, fixedGenerator(youtubeSearchPlan), sites.New(), nil)
	if c.encoding == nil {
		t.Skip("token encoder unavailable in this environment")
	}
	_, err := c.Compile(context.Background(), "open youtube and search for cats")
	assert.ErrorIs(t, err, ErrPromptTooLarge)
}

func TestCompileIsStatelessAcrossCalls(t *testing.T) {
	responses := []string{
		youtubeSearchPlan,
		`[{"action": "extract", "target": "h1", "value": "heading"}]`,
	}
	call := 0
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt llm.Prompt) (string, error) {
		response := responses[call%len(responses)]
		call++
		return response, nil
	})
	c := newTestCompiler(gen)

	first, err := c.Compile(context.Background(), "search youtube for cats")
	require.NoError(t, err)
	continuation := ContinuationInstruction(
		"search youtube for cats",
		&plan.StepFailure{Index: 1, Reason: "selector not found"},
		nil,
		"YouTube home page",
	)
	second, err := c.Compile(context.Background(), continuation)
	require.NoError(t, err)

	assert.Equal(t, 4, first.Len())
	assert.Equal(t, 1, second.Len())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestContinuationInstructionContents(t *testing.T) {
	text := ContinuationInstruction(
		"find concert dates",
		&plan.StepFailure{Index: 2, Reason: "timeout waiting for .dates"},
		[]plan.Extraction{{Label: "venue", Text: "Red Rocks"}},
		"Upcoming shows page",
	)
	assert.Contains(t, text, "find concert dates")
	assert.Contains(t, text, "step 2")
	assert.Contains(t, text, "timeout waiting for .dates")
	assert.Contains(t, text, "venue: Red Rocks")
	assert.Contains(t, text, "Upcoming shows page")
}

func TestDetectHints(t *testing.T) {
	registry := sites.New()

	hints := detectHints("open YouTube and search", registry)
	require.Len(t, hints, 1)
	assert.Equal(t, "youtube", hints[0].Name)

	// "x" must only match as a standalone word.
	hints = detectHints("examine the example page", registry)
	assert.Empty(t, hints)
	hints = detectHints("post this on x for me", registry)
	require.Len(t, hints, 1)
	assert.Equal(t, "x", hints[0].Name)
}

func TestErrorTaxonomyDistinct(t *testing.T) {
	kinds := []error{
		ErrEmptyInstruction, ErrBackendUnavailable, ErrMalformedResponse,
		ErrInvalidStep, ErrInstructionRejected, ErrPlanTooLong, ErrPromptTooLarge,
	}
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j && errors.Is(a, b) {
				t.Errorf("error %v matches unrelated %v", a, b)
			}
		}
	}
}
