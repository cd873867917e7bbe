package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"mailview/internal/view"
)

// Bridge forwards controller renders and alerts into a running program.
// It satisfies mailbox.Renderer and mailbox.Alerter; calls made before
// Attach are dropped.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

func (b *Bridge) Render(v view.View) {
	b.send(viewMsg{view: v})
}

func (b *Bridge) Alert(err error) {
	b.send(alertMsg{err: err})
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run starts the browser on the alternate screen and blocks until the user
// quits or ctx is cancelled.
func Run(ctx context.Context, m *Model, bridge *Bridge) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)
	_, err := p.Run()
	bridge.Attach(nil)
	return err
}
