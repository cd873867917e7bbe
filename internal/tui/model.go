// Package tui is the interactive browser: a bubbletea program that renders
// the controller's views and maps keys onto router transitions.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"mailview/internal/history"
	"mailview/internal/view"
)

// viewMsg carries a render from the controller into the event loop.
type viewMsg struct{ view view.View }

// alertMsg carries a failed mutation.
type alertMsg struct{ err error }

// doneMsg reports the result of a blocking router call.
type doneMsg struct {
	action string
	err    error
}

// Retrier re-runs a failed fetch; *mailbox.Controller satisfies it.
type Retrier interface {
	Retry(ctx context.Context) error
}

type field int

const (
	fieldTo field = iota
	fieldSubject
	fieldBody
	fieldCount
)

type Model struct {
	ctx     context.Context
	router  *history.Router
	retrier Retrier
	user    string

	view   view.View
	cursor int
	status string
	alert  string
	busy   bool

	width  int
	height int

	focus   field
	to      textinput.Model
	subject textinput.Model
	body    textarea.Model
	detail  viewport.Model
}

func New(ctx context.Context, router *history.Router, retrier Retrier, user string) *Model {
	to := textinput.New()
	to.Prompt = "To: "
	to.Placeholder = "bob@example.com, carol@example.com"

	subject := textinput.New()
	subject.Prompt = "Subject: "

	body := textarea.New()
	body.ShowLineNumbers = false
	body.Placeholder = "Write your message"

	return &Model{
		ctx:     ctx,
		router:  router,
		retrier: retrier,
		user:    user,
		to:      to,
		subject: subject,
		body:    body,
		detail:  viewport.New(80, 20),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.run(func() { m.router.Start(m.ctx) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case viewMsg:
		m.setView(msg.view)
		return m, nil

	case alertMsg:
		m.alert = msg.err.Error()
		return m, nil

	case doneMsg:
		m.busy = false
		switch {
		case errors.Is(msg.err, history.ErrNothingToPop):
			m.status = "No more history in that direction"
		case msg.err != nil:
			// Mutations already alerted through the controller.
			if m.alert == "" {
				m.alert = msg.err.Error()
			}
		case msg.action != "":
			m.status = msg.action
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKeyPress(msg)
	}

	if m.view.Kind == view.KindCompose {
		return m, m.updateInputs(msg)
	}
	return m, nil
}

// setView replaces the shown view. A compose render always starts a fresh
// composer, so the inputs are reloaded from its draft.
func (m *Model) setView(v view.View) {
	prev := m.view
	m.view = v

	switch v.Kind {
	case view.KindMailbox:
		if prev.Kind != view.KindMailbox || prev.Mailbox != v.Mailbox {
			m.cursor = 0
		}
		if m.cursor >= len(v.Summaries) {
			m.cursor = max(len(v.Summaries)-1, 0)
		}
	case view.KindMessage:
		m.detail.SetContent(messageBody(v))
		m.detail.GotoTop()
	case view.KindCompose:
		m.to.SetValue(v.Draft.Recipients)
		m.subject.SetValue(v.Draft.Subject)
		m.body.SetValue(v.Draft.Body)
		m.focusField(fieldTo)
		if v.ReplyTo != nil {
			m.focusField(fieldBody)
			for m.body.Line() > 0 {
				m.body.CursorUp()
			}
			m.body.CursorStart()
		}
	}
}

func (m *Model) draft() view.Draft {
	return view.Draft{
		Recipients: m.to.Value(),
		Subject:    m.subject.Value(),
		Body:       m.body.Value(),
	}
}

func (m *Model) focusField(f field) {
	m.focus = f
	m.to.Blur()
	m.subject.Blur()
	m.body.Blur()
	switch f {
	case fieldTo:
		m.to.Focus()
	case fieldSubject:
		m.subject.Focus()
	case fieldBody:
		m.body.Focus()
	}
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case fieldTo:
		m.to, cmd = m.to.Update(msg)
	case fieldSubject:
		m.subject, cmd = m.subject.Update(msg)
	case fieldBody:
		m.body, cmd = m.body.Update(msg)
	}
	return cmd
}

func (m *Model) resize() {
	w := max(m.width-4, 20)
	h := max(m.height-headerLines-footerLines, 3)
	m.detail.Width = w
	m.detail.Height = h
	m.to.Width = w - len(m.to.Prompt)
	m.subject.Width = w - len(m.subject.Prompt)
	m.body.SetWidth(w)
	m.body.SetHeight(max(h-3, 3))
}

// run executes a router call off the event loop. Renders come back as
// viewMsg through the bridge.
func (m *Model) run(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

// runErr is run for calls that can fail; the result arrives as doneMsg.
func (m *Model) runErr(action string, fn func() error) tea.Cmd {
	m.status = ""
	return func() tea.Msg {
		return doneMsg{action: action, err: fn()}
	}
}
