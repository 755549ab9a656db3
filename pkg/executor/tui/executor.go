// Package tui provides the interactive terminal front end for webpilot:
// type an instruction, review the compiled plan, watch it execute.
//
// The codebase is split across files in the usual Bubble Tea shape:
// - executor.go: program lifecycle
// - model.go: model state and messages
// - update.go: Update and key handling
// - view.go: View and rendering
// - helpers.go: plan preview and transcript formatting
// - styles.go: color palette and shared styles
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/webpilot/pkg/pilot"
)

// Executor runs the interactive terminal interface over a pilot.Runner.
type Executor struct {
	runner  *pilot.Runner
	program *tea.Program
	header  string
}

// NewExecutor creates a TUI executor. headerText overrides the banner shown
// above the transcript; empty keeps the default.
func NewExecutor(runner *pilot.Runner, headerText string) *Executor {
	return &Executor{
		runner: runner,
		header: headerText,
	}
}

// Run starts the TUI and blocks until the user exits.
func (e *Executor) Run(ctx context.Context) error {
	m := initialModel(e.runner)
	m.header = e.header

	e.program = tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go func() {
		// Forward run events into the Bubble Tea loop.
		for event := range e.runner.Events() {
			e.program.Send(runEventMsg{event: event})
		}
	}()

	if _, err := e.program.Run(); err != nil {
		return fmt.Errorf("running terminal interface: %w", err)
	}
	return nil
}
