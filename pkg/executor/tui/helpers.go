package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/entrhq/webpilot/pkg/engine"
	"github.com/entrhq/webpilot/pkg/plan"
)

// renderPlanPreview renders the plan's actions as syntax-highlighted JSON.
// Falls back to plain JSON when highlighting fails.
func renderPlanPreview(p *plan.Plan) string {
	raw, err := json.MarshalIndent(p.Actions, "", "  ")
	if err != nil {
		return fmt.Sprintf("(unrenderable plan: %v)", err)
	}

	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, string(raw), "json", "terminal256", "monokai"); err != nil {
		return string(raw)
	}
	return highlighted.String()
}

// formatStepEvent renders one step transition for the transcript.
func formatStepEvent(ev engine.StepEvent) string {
	label := fmt.Sprintf("step %d: %s", ev.Index+1, ev.Action)
	switch ev.State {
	case engine.StateRunning:
		if ev.Attempt > 1 {
			return stepStyle.Render(fmt.Sprintf("  %s (attempt %d)", label, ev.Attempt))
		}
		return stepStyle.Render("  " + label)
	case engine.StateSucceeded:
		return successStyle.Render(fmt.Sprintf("  ✓ %s", label))
	case engine.StateRetrying:
		return warnStyle.Render(fmt.Sprintf("  ↻ %s: %v", label, ev.Err))
	case engine.StateFailed:
		return errorStyle.Render(fmt.Sprintf("  ✗ %s: %v", label, ev.Err))
	case engine.StateAwaiting:
		return questionStyle.Render(fmt.Sprintf("  ? %s", label))
	}
	return ""
}

// formatResult renders the final result summary for the transcript.
func formatResult(result *plan.ExecutionResult, replans int) string {
	if result == nil {
		return errorStyle.Render("run ended without a result")
	}

	var b strings.Builder
	switch result.Status {
	case plan.StatusCompleted:
		b.WriteString(successStyle.Render("run completed"))
	case plan.StatusPartial:
		b.WriteString(warnStyle.Render(fmt.Sprintf("run stopped partway (step %d: %s)",
			result.FailedStep.Index+1, result.FailedStep.Reason)))
	case plan.StatusFailed:
		reason := "no step succeeded"
		if result.FailedStep != nil {
			reason = result.FailedStep.Reason
		}
		b.WriteString(errorStyle.Render("run failed: " + reason))
	case plan.StatusAwaitingUser:
		b.WriteString(questionStyle.Render("run awaiting an answer"))
	}
	if replans > 0 {
		b.WriteString(tipsStyle.Render(fmt.Sprintf(" (after %d re-plan)", replans)))
	}

	if len(result.Extracted) > 0 {
		b.WriteString("\n")
		b.WriteString(formatExtractions(result.Extracted))
	}
	return b.String()
}

// formatExtractions renders captured values as "label: text" lines.
func formatExtractions(extracted []plan.Extraction) string {
	lines := make([]string, 0, len(extracted))
	for _, ex := range extracted {
		text := ex.Text
		if text == "" {
			text = "(empty)"
		}
		lines = append(lines, extractionStyle.Render(fmt.Sprintf("  %s: %s", ex.Label, text)))
	}
	return strings.Join(lines, "\n")
}

// extractionsClipboardText renders captured values in plain text for the
// clipboard.
func extractionsClipboardText(extracted []plan.Extraction) string {
	lines := make([]string, 0, len(extracted))
	for _, ex := range extracted {
		lines = append(lines, fmt.Sprintf("%s: %s", ex.Label, ex.Text))
	}
	return strings.Join(lines, "\n")
}
