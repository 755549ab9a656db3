package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/webpilot/pkg/pilot"
	"github.com/entrhq/webpilot/pkg/plan"
)

// Init starts the cursor blink and spinner ticks.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.textinput.Focus(), m.spinner.Tick)
}

// Update handles all state transitions for the TUI.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelRunning()
			return m, tea.Quit
		}
		if cmd := m.handleKey(msg); cmd != nil {
			return m, tea.Batch(cmd, spCmd)
		}

	case runEventMsg:
		m.handleRunEvent(msg.event)

	case compileDoneMsg:
		return m, tea.Batch(m.handleCompileDone(msg), spCmd)

	case runDoneMsg:
		m.handleRunDone(msg)
	}

	// The textinput only receives keys while the user is typing.
	if m.phase == phaseInput || m.phase == phaseAnswering {
		m.textinput, tiCmd = m.textinput.Update(msg)
	}
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// handleKey routes key presses by phase. A non-nil command means the key was
// consumed.
func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.phase {
	case phaseInput:
		if msg.Type == tea.KeyEnter {
			instruction := strings.TrimSpace(m.textinput.Value())
			if instruction == "" {
				return nil
			}
			m.instruction = instruction
			m.textinput.Reset()
			m.appendLine(instructionStyle.Render("» " + instruction))
			m.phase = phaseCompiling
			m.statusLine = "compiling plan"
			return m.compileCmd(instruction)
		}

	case phaseDone:
		switch {
		case msg.String() == "c":
			m.copyResults()
			return nil
		default:
			m.phase = phaseInput
			m.statusLine = ""
			m.textinput.Focus()
		}

	case phaseConfirm:
		switch msg.String() {
		case "y", "Y", "enter":
			m.appendLine(tipsStyle.Render("  plan accepted"))
			m.phase = phaseExecuting
			m.statusLine = "executing"
			return m.executeCmd(m.instruction, m.pendingPlan)
		case "n", "N", "esc":
			m.appendLine(tipsStyle.Render("  plan discarded"))
			m.pendingPlan = nil
			m.phase = phaseInput
			m.statusLine = ""
			m.textinput.Focus()
		}

	case phaseExecuting:
		if msg.Type == tea.KeyEsc {
			m.cancelRunning()
			m.appendLine(warnStyle.Render("  canceling run"))
		}

	case phaseAnswering:
		switch msg.Type {
		case tea.KeyEnter:
			answer := strings.TrimSpace(m.textinput.Value())
			if answer == "" {
				return nil
			}
			m.textinput.Reset()
			m.appendLine(instructionStyle.Render("» " + answer))
			m.phase = phaseExecuting
			m.statusLine = "executing"
			return m.answerCmd(answer)
		case tea.KeyEsc:
			m.textinput.Reset()
			return m.cancelSuspendedCmd()
		}
	}
	return nil
}

// compileCmd compiles the instruction off the UI goroutine.
func (m *model) compileCmd(instruction string) tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		p, err := runner.Compile(context.Background(), instruction)
		return compileDoneMsg{plan: p, err: err}
	}
}

// executeCmd runs the confirmed plan off the UI goroutine. The run context
// is kept so Esc can cancel it.
func (m *model) executeCmd(instruction string, p *plan.Plan) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.runCancel = cancel
	runner := m.runner
	return func() tea.Msg {
		result, err := runner.RunPlan(ctx, instruction, p)
		return runDoneMsg{result: result, err: err}
	}
}

// answerCmd resumes a suspended run with the user's answer.
func (m *model) answerCmd(answer string) tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		result, err := runner.Answer(context.Background(), answer)
		return runDoneMsg{result: result, err: err}
	}
}

// cancelSuspendedCmd abandons a run waiting on a question.
func (m *model) cancelSuspendedCmd() tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		result, err := runner.Cancel()
		return runDoneMsg{result: result, err: err}
	}
}

func (m *model) handleCompileDone(msg compileDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.appendLine(errorStyle.Render(fmt.Sprintf("  compile failed: %v", msg.err)))
		m.phase = phaseInput
		m.statusLine = ""
		m.textinput.Focus()
		return nil
	}
	m.pendingPlan = msg.plan
	m.phase = phaseConfirm
	m.statusLine = ""
	m.textinput.Blur()
	return nil
}

func (m *model) handleRunDone(msg runDoneMsg) {
	m.runCancel = nil

	if msg.err != nil {
		m.appendLine(errorStyle.Render(fmt.Sprintf("  run error: %v", msg.err)))
	}

	if msg.result != nil && msg.result.Result != nil &&
		msg.result.Result.Status == plan.StatusAwaitingUser {
		if q, ok := m.runner.Pending(); ok {
			m.question = q.Prompt
			m.appendLine(questionStyle.Render("  ? " + q.Prompt))
			m.phase = phaseAnswering
			m.statusLine = "answer required"
			m.textinput.Placeholder = "Type an answer, Esc to abandon the run"
			m.textinput.Focus()
			return
		}
	}

	m.lastResult = msg.result
	m.question = ""
	m.pendingPlan = nil
	m.textinput.Placeholder = "Describe what to do, e.g. \"open youtube and search for cats\""
	if msg.result != nil {
		m.appendLine(formatResult(msg.result.Result, msg.result.Replans))
	}
	if msg.result != nil && msg.result.Result != nil && len(msg.result.Result.Extracted) > 0 {
		m.phase = phaseDone
		m.statusLine = "press c to copy results, any other key to continue"
		m.textinput.Blur()
		return
	}
	m.phase = phaseInput
	m.statusLine = ""
	m.textinput.Focus()
}

// handleRunEvent appends forwarded run events to the transcript.
func (m *model) handleRunEvent(event pilot.Event) {
	switch event.Type {
	case pilot.EventStepStarted, pilot.EventStepRetrying, pilot.EventStepFinished:
		if event.Step != nil {
			m.appendLine(formatStepEvent(*event.Step))
		}
	case pilot.EventReplanStarted:
		m.appendLine(warnStyle.Render("  re-planning from the current page"))
	case pilot.EventPlanReady:
		if m.phase == phaseExecuting && event.Plan != nil {
			m.appendLine(tipsStyle.Render(fmt.Sprintf("  continuation plan with %d steps", event.Plan.Len())))
		}
	}
}

func (m *model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	chrome := 14 // header, tips, input box, status bar
	vpHeight := msg.Height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = newViewport(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.refreshViewport()
}

// copyResults puts the last run's extractions on the system clipboard.
func (m *model) copyResults() {
	if m.lastResult == nil || m.lastResult.Result == nil || len(m.lastResult.Result.Extracted) == 0 {
		m.statusLine = "nothing to copy"
		return
	}
	if err := clipboard.WriteAll(extractionsClipboardText(m.lastResult.Result.Extracted)); err != nil {
		m.statusLine = fmt.Sprintf("clipboard unavailable: %v", err)
		return
	}
	m.statusLine = "results copied to clipboard"
}

// cancelRunning cancels the in-flight execution context, if any.
func (m *model) cancelRunning() {
	if m.runCancel != nil {
		m.runCancel()
	}
}

// appendLine adds a line to the transcript and scrolls to it.
func (m *model) appendLine(line string) {
	m.transcript.WriteString(line)
	m.transcript.WriteString("\n")
	m.refreshViewport()
}

func (m *model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcript.String())
	m.viewport.GotoBottom()
}
