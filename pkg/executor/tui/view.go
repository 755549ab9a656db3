package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const defaultHeader = `
	██╗    ██╗███████╗██████╗ ██████╗ ██╗██╗      ██████╗ ████████╗
	██║    ██║██╔════╝██╔══██╗██╔══██╗██║██║     ██╔═══██╗╚══██╔══╝
	██║ █╗ ██║█████╗  ██████╔╝██████╔╝██║██║     ██║   ██║   ██║
	██║███╗██║██╔══╝  ██╔══██╗██╔═══╝ ██║██║     ██║   ██║   ██║
	╚███╔███╔╝███████╗██████╔╝██║     ██║███████╗╚██████╔╝   ██║
	 ╚══╝╚══╝ ╚══════╝╚═════╝ ╚═╝     ╚═╝╚══════╝ ╚═════╝    ╚═╝`

// View renders the entire interface.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	sections := []string{
		m.buildHeader(),
		m.buildTips(),
		m.viewport.View(),
	}

	switch m.phase {
	case phaseConfirm:
		sections = append(sections, m.buildConfirmBox())
	case phaseCompiling, phaseExecuting:
		sections = append(sections, m.buildBusyLine())
	case phaseInput, phaseAnswering:
		sections = append(sections, m.buildInputBox())
	}

	sections = append(sections, m.buildStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *model) buildHeader() string {
	if m.header != "" {
		return headerStyle.Render(m.header)
	}
	return headerStyle.Render(defaultHeader)
}

func (m *model) buildTips() string {
	switch m.phase {
	case phaseConfirm:
		return tipsStyle.Render("  Review the plan below • y to execute • n to discard")
	case phaseExecuting:
		return tipsStyle.Render("  Executing • Esc to cancel • Ctrl+C to exit")
	case phaseAnswering:
		return tipsStyle.Render("  The run needs an answer • Enter to send • Esc to abandon")
	case phaseDone:
		return tipsStyle.Render("  c to copy results • any other key to continue")
	}
	return tipsStyle.Render("  Tips: describe a browsing task in plain words • Enter to compile • Ctrl+C to exit")
}

// buildConfirmBox renders the highlighted plan with the y/n prompt.
func (m *model) buildConfirmBox() string {
	if m.pendingPlan == nil {
		return ""
	}
	body := renderPlanPreview(m.pendingPlan)
	prompt := fmt.Sprintf("Execute this %d-step plan? (y/n)", m.pendingPlan.Len())
	if m.pendingPlan.Len() > longPlanThreshold {
		prompt = warnStyle.Render(fmt.Sprintf("This plan has %d steps, which is unusually long. Execute anyway? (y/n)", m.pendingPlan.Len()))
	}
	return confirmBoxStyle.Width(m.width - 4).Render(body + "\n\n" + prompt)
}

func (m *model) buildBusyLine() string {
	busy := m.statusLine
	if busy == "" {
		busy = "working"
	}
	style := lipgloss.NewStyle().
		Foreground(skyBlue).
		Padding(0, 2)
	return style.Render(fmt.Sprintf("%s %s...", m.spinner.View(), busy))
}

func (m *model) buildInputBox() string {
	return inputBoxStyle.Width(m.width - 4).Render(m.textinput.View())
}

func (m *model) buildStatusBar() string {
	left := "webpilot"
	right := m.statusLine
	if right == "" && m.lastResult != nil && m.lastResult.Result != nil {
		right = fmt.Sprintf("last run: %s", m.lastResult.Result.Status)
	}
	if right == "" {
		return statusBarStyle.Width(m.width).Render(left)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Width(m.width).Render(left + lipgloss.NewStyle().Width(gap).Render("") + right)
}
