package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"mailview/internal/api"
	"mailview/internal/view"
)

// handleKeyPress routes key presses based on the current view.
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.busy {
		return nil
	}

	if m.view.Kind == view.KindCompose {
		return m.handleComposeKeys(msg)
	}

	m.alert = ""
	switch msg.String() {
	case "q":
		return tea.Quit
	case "i":
		return m.run(func() { m.router.Mailbox(m.ctx, api.Inbox) })
	case "s":
		return m.run(func() { m.router.Mailbox(m.ctx, api.Sent) })
	case "a":
		return m.run(func() { m.router.Mailbox(m.ctx, api.Archive) })
	case "c":
		return m.run(func() { m.router.Compose() })
	case "left", "backspace", "b":
		return m.runErr("", func() error { return m.router.Back(m.ctx) })
	case "right", "f":
		return m.runErr("", func() error { return m.router.Forward(m.ctx) })
	case "R":
		if m.view.Retryable() && m.retrier != nil {
			return m.runErr("", func() error { return m.retrier.Retry(m.ctx) })
		}
		return nil
	}

	switch m.view.Kind {
	case view.KindMailbox:
		return m.handleMailboxKeys(msg)
	case view.KindMessage:
		return m.handleMessageKeys(msg)
	}
	return nil
}

func (m *Model) handleMailboxKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.view.Summaries)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.view.Summaries)-1, 0)
	case "enter":
		if m.cursor < len(m.view.Summaries) {
			id := m.view.Summaries[m.cursor].ID
			return m.run(func() { m.router.Message(m.ctx, id) })
		}
	}
	return nil
}

func (m *Model) handleMessageKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "r":
		if m.view.Message != nil {
			return m.runErr("", m.router.Reply)
		}
	case "A":
		if m.view.Message != nil && m.view.Archive != view.ArchiveHidden {
			m.busy = true
			done := fmt.Sprintf("%sd", m.view.Archive.Label())
			return m.runErr(done, func() error { return m.router.ToggleArchive(m.ctx) })
		}
	default:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleComposeKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.alert = ""
		return m.runErr("", func() error { return m.router.Back(m.ctx) })
	case "tab":
		m.focusField((m.focus + 1) % fieldCount)
		return nil
	case "shift+tab":
		m.focusField((m.focus + fieldCount - 1) % fieldCount)
		return nil
	case "ctrl+s":
		m.alert = ""
		m.busy = true
		draft := m.draft()
		return m.runErr("Sent", func() error { return m.router.Submit(m.ctx, draft) })
	}
	return m.updateInputs(msg)
}
