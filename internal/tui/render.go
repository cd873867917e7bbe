package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mailview/internal/api"
	"mailview/internal/view"
)

const (
	headerLines = 4 // tabs, heading, two blank separators
	footerLines = 3 // status, alert, help
)

var (
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff5f5f"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	styleTab = lipgloss.NewStyle().
			Padding(0, 1)

	styleTabActive = styleTab.
			Bold(true).
			Underline(true)

	styleSelected = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#d3d3d3", Dark: "#3a3a3a"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"})

	// Read rows are dimmed, unread ones bold.
	styleRead = lipgloss.NewStyle().
			Foreground(colorGray)

	styleUnread = lipgloss.NewStyle().
			Bold(true)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)
)

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(styleTitle.Render(m.view.Heading()))
	b.WriteString("\n\n")

	switch m.view.Kind {
	case view.KindMailbox:
		b.WriteString(m.renderMailbox())
	case view.KindMessage:
		b.WriteString(m.renderMessage())
	case view.KindCompose:
		b.WriteString(m.renderCompose())
	default:
		b.WriteString(styleSubtle.Render("Starting..."))
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := []struct {
		key  string
		name string
		on   bool
	}{
		{"i", "Inbox", m.view.Kind == view.KindMailbox && m.view.Mailbox == api.Inbox},
		{"s", "Sent", m.view.Kind == view.KindMailbox && m.view.Mailbox == api.Sent},
		{"a", "Archived", m.view.Kind == view.KindMailbox && m.view.Mailbox == api.Archive},
		{"c", "Compose", m.view.Kind == view.KindCompose},
	}
	parts := make([]string, 0, len(tabs)+1)
	for _, t := range tabs {
		label := fmt.Sprintf("[%s] %s", t.key, t.name)
		if t.on {
			parts = append(parts, styleTabActive.Render(label))
		} else {
			parts = append(parts, styleTab.Render(label))
		}
	}
	parts = append(parts, styleSubtle.Render(m.user))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderMailbox() string {
	v := m.view
	switch {
	case v.Loading:
		return styleSubtle.Render("Loading...")
	case v.Err != nil:
		return renderLoadError(v.Err)
	case v.Empty():
		return view.EmptyMailbox
	}

	rows := make([]string, 0, len(v.Summaries))
	for i, s := range v.Summaries {
		line := fmt.Sprintf("%-28s  %-40s  %s", truncate(s.Sender, 28), truncate(s.Subject, 40), s.Timestamp)
		style := styleUnread
		if s.Read {
			style = styleRead
		}
		if i == m.cursor {
			style = styleSelected
		}
		rows = append(rows, style.Render(line))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderMessage() string {
	v := m.view
	switch {
	case v.Loading:
		return styleSubtle.Render("Loading...")
	case v.Err != nil:
		return renderLoadError(v.Err)
	}
	return m.detail.View()
}

// messageBody is the detail content: header block, then the body.
func messageBody(v view.View) string {
	if v.Message == nil {
		return ""
	}
	msg := v.Message
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", msg.Sender)
	fmt.Fprintf(&b, "To: %s\n", msg.Recipients.String())
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Timestamp: %s\n", msg.Timestamp)
	b.WriteString("\n")
	b.WriteString(msg.Body)
	return b.String()
}

func (m *Model) renderCompose() string {
	return strings.Join([]string{
		m.to.View(),
		m.subject.View(),
		"",
		m.body.View(),
	}, "\n")
}

func (m *Model) renderFooter() string {
	lines := []string{styleSubtle.Render(m.status)}
	if m.alert != "" {
		lines = append(lines, styleError.Render(m.alert))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, styleSubtle.Render(m.help()))
	return strings.Join(lines, "\n")
}

func (m *Model) help() string {
	switch m.view.Kind {
	case view.KindMailbox:
		return "enter open • j/k move • ←/→ back/forward • R retry • q quit"
	case view.KindMessage:
		h := "r reply"
		if label := m.view.Archive.Label(); label != "" && m.view.Message != nil {
			h += " • A " + strings.ToLower(label)
		}
		return h + " • ←/→ back/forward • R retry • q quit"
	case view.KindCompose:
		return "tab next field • ctrl+s send • esc back • ctrl+c quit"
	}
	return "q quit"
}

func renderLoadError(err error) string {
	return styleError.Render(err.Error()) + "\n" + styleWarning.Render("Press R to retry.")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
