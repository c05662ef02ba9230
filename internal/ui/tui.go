// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for player UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sendspin/soundbuffer-go/internal/remote"
)

// Controls carries key presses out of the TUI
type Controls struct {
	Commands chan remote.Command
	Quit     chan struct{}
}

// NewControls creates a control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan remote.Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// send drops commands when the player is not keeping up
func (c *Controls) send(cmd remote.Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

func (c *Controls) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls, title string) Model {
	return Model{
		controls: ctrl,
		title:    title,
		state:    "stopped",
	}
}

// Run creates the TUI program; the caller starts it
func Run(ctrl *Controls, title string) *tea.Program {
	return tea.NewProgram(NewModel(ctrl, title), tea.WithAltScreen())
}
