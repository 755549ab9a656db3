package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/entrhq/webpilot/pkg/pilot"
	"github.com/entrhq/webpilot/pkg/plan"
)

// phase is the interaction state of the REPL.
type phase int

const (
	phaseInput     phase = iota // waiting for an instruction
	phaseCompiling              // compile in flight
	phaseConfirm                // plan preview shown, waiting for y/n
	phaseExecuting              // plan executing
	phaseAnswering              // suspended on an ask_user question
	phaseDone                   // results shown, copy shortcut active
)

func newViewport(width, height int) viewport.Model {
	return viewport.New(width, height)
}

// longPlanThreshold is the step count above which the confirm prompt warns
// before executing.
const longPlanThreshold = 8

// model holds all state for the TUI.
type model struct {
	// Bubble Tea components
	viewport  viewport.Model
	textinput textinput.Model
	spinner   spinner.Model

	runner *pilot.Runner
	header string

	phase       phase
	instruction string
	pendingPlan *plan.Plan
	question    string
	lastResult  *pilot.RunResult

	// runCancel aborts the in-flight execution when Esc is pressed.
	runCancel context.CancelFunc

	transcript *strings.Builder

	width  int
	height int
	ready  bool

	statusLine string
}

// runEventMsg wraps a pilot event forwarded from the runner's stream.
type runEventMsg struct {
	event pilot.Event
}

// compileDoneMsg carries the result of a preview compile.
type compileDoneMsg struct {
	plan *plan.Plan
	err  error
}

// runDoneMsg carries the result of an execution or a resume.
type runDoneMsg struct {
	result *pilot.RunResult
	err    error
}

func initialModel(runner *pilot.Runner) model {
	ti := textinput.New()
	ti.Placeholder = "Describe what to do, e.g. \"open youtube and search for cats\""
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return model{
		textinput:  ti,
		spinner:    sp,
		runner:     runner,
		phase:      phaseInput,
		transcript: &strings.Builder{},
	}
}
