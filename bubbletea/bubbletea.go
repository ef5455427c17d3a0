// Package bubbletea provides the Bubble Tea TUI for parley.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// HealthFunc probes the generation backend. It reports whether the model is
// loaded; a transport failure returns an error.
type HealthFunc func(ctx context.Context) (bool, error)

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. The context is used for graceful shutdown; when cancelled, the
// program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// NewChangeSignal returns a channel and a hook suitable for
// chat.WithOnChange. The hook coalesces bursts of transitions; the channel
// holds at most one pending signal.
func NewChangeSignal() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	return ch, func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// StateChangedMsg signals that the state machine applied a transition and
// the view should re-render.
type StateChangedMsg struct{}

// HealthMsg carries the latest backend health probe result.
type HealthMsg struct {
	ModelLoaded bool
	Err         error
}

type healthTickMsg struct{}
