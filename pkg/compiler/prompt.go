package compiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/webpilot/pkg/plan"
	"github.com/entrhq/webpilot/pkg/sites"
)

const systemPromptHeader = `You are a browser automation planner. Convert the user's instruction into a JSON array of action steps, and output ONLY that JSON array with no commentary.

Each step is an object with these keys:
- "action": one of "navigate", "click", "type", "scroll", "extract", "wait", "ask_user"
- "target": a CSS selector, an "xpath="-prefixed XPath expression, a URL, or for navigate a known site name
- "value": the action's payload
- "timeout_ms": optional per-step timeout override in milliseconds

Required fields per action:
- navigate: "target" (site name or URL)
- click: "target"
- type: "target" and "value" (the text to type)
- scroll: optional "value" of "up", "down", "top", "bottom", or "down:400" style distances
- extract: "target" and "value" (a short label for the captured text)
- wait: "value" (a duration such as "2s" or a number of seconds)
- ask_user: "value" (the question to ask; use this when the instruction is missing information you need)

If the instruction cannot or should not be automated, respond with exactly one step:
[{"action": "error", "message": "<why you are declining>"}]

Rules:
- Keep plans short and literal; do not invent steps the instruction does not require.
- Steps run strictly in order against a single page, so each step may rely on the page state left by the one before it.
- Prefer the known site names below for navigation; any other navigate target is treated as a literal URL.`

// buildPrompt assembles the system and user sections for one compile.
// The site table and today's date are embedded in the system section; hints
// name any known sites detected in the instruction so the model uses their
// canonical entries.
func buildPrompt(instruction string, registry *sites.Registry, hints []sites.SiteEntry, now time.Time) llmPrompt {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString("\n\nToday's date: ")
	b.WriteString(now.Format("2006-01-02"))

	entries := registry.Entries()
	if len(entries) > 0 {
		b.WriteString("\n\nKnown sites:\n")
		for _, entry := range entries {
			b.WriteString("- ")
			b.WriteString(entry.Name)
			b.WriteString(": ")
			b.WriteString(entry.URL)
			if entry.DefaultAction != "" {
				b.WriteString(" (")
				b.WriteString(entry.DefaultAction)
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
	}

	if len(hints) > 0 {
		b.WriteString("\nThe instruction mentions these known sites:\n")
		for _, entry := range hints {
			fmt.Fprintf(&b, "- %s -> %s\n", entry.Name, entry.URL)
		}
	}

	return llmPrompt{
		System: b.String(),
		User:   instruction,
	}
}

// llmPrompt mirrors llm.Prompt without importing it here; compiler.go does
// the conversion at the call site.
type llmPrompt struct {
	System string
	User   string
}

// ContinuationInstruction formats the amended instruction for a re-plan
// after a failed or partial run. The compiler treats the result as a fresh
// instruction; it keeps no memory of the original compile.
func ContinuationInstruction(original string, failure *plan.StepFailure, completed []plan.Extraction, pageExcerpt string) string {
	var b strings.Builder
	b.WriteString("The original instruction was: ")
	b.WriteString(original)
	b.WriteString("\n")
	if failure != nil {
		fmt.Fprintf(&b, "Execution stopped at step %d because: %s\n", failure.Index, failure.Reason)
	}
	if len(completed) > 0 {
		b.WriteString("Values already captured:\n")
		for _, e := range completed {
			fmt.Fprintf(&b, "- %s: %s\n", e.Label, e.Text)
		}
	}
	if pageExcerpt != "" {
		b.WriteString("The current page shows: ")
		b.WriteString(pageExcerpt)
		b.WriteString("\n")
	}
	b.WriteString("Plan only the remaining steps needed to finish the original instruction from the current page state. Do not repeat steps that already succeeded.")
	return b.String()
}

// detectHints returns registry entries whose names appear in the
// instruction, longest names first so "bbc news" wins over a hypothetical
// "bbc" entry.
func detectHints(instruction string, registry *sites.Registry) []sites.SiteEntry {
	lowered := strings.ToLower(instruction)
	var hints []sites.SiteEntry
	for _, entry := range registry.Entries() {
		if containsWord(lowered, strings.ToLower(entry.Name)) {
			hints = append(hints, entry)
		}
	}
	return hints
}

// containsWord reports whether name occurs in text at word boundaries, so
// "x" does not match inside "example".
func containsWord(text, name string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], name)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(name)
		beforeOK := i == 0 || !isWordChar(text[i-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		start = i + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
