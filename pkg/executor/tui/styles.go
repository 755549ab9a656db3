package tui

import "github.com/charmbracelet/lipgloss"

// Color palette. Single source of truth for all TUI colors.
var (
	skyBlue     = lipgloss.Color("#7DD3FC") // primary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // success states
	amberYellow = lipgloss.Color("#FDE68A") // warnings, pending questions
	softRed     = lipgloss.Color("#FCA5A5") // failures
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	instructionStyle = lipgloss.NewStyle().
				Foreground(skyBlue).
				Bold(true)

	stepStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(amberYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(softRed)

	questionStyle = lipgloss.NewStyle().
			Foreground(amberYellow).
			Bold(true)

	extractionStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(skyBlue)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(skyBlue).
			Padding(0, 1)

	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amberYellow).
			Padding(0, 1)
)
