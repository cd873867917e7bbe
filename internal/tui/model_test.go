package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"mailview/internal/api"
	"mailview/internal/history"
	"mailview/internal/logging"
	"mailview/internal/view"
)

type stubController struct {
	mu      sync.Mutex
	calls   []string
	current view.View
	drafts  []view.Draft
	retries int
}

func (s *stubController) record(call string, v view.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	s.current = v
}

func (s *stubController) ShowMailbox(ctx context.Context, name api.Mailbox) {
	s.record("mailbox:"+string(name), view.Mailbox(name))
}

func (s *stubController) ShowMessage(ctx context.Context, id api.MessageID) {
	s.record("message:"+id.String(), view.Message(id))
}

func (s *stubController) ShowCompose() {
	s.record("compose", view.Compose())
}

func (s *stubController) ShowComposeReply(msg api.Message) {
	v := view.Compose()
	v.Title = view.TitleReply
	s.record("reply:"+msg.ID.String(), v)
}

func (s *stubController) SubmitCompose(ctx context.Context, draft view.Draft) error {
	s.mu.Lock()
	s.drafts = append(s.drafts, draft)
	s.mu.Unlock()
	s.ShowMailbox(ctx, api.Sent)
	return nil
}

func (s *stubController) ToggleArchive(ctx context.Context, id api.MessageID, archived bool) error {
	s.ShowMailbox(ctx, api.Inbox)
	return nil
}

func (s *stubController) Current() view.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *stubController) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
	return nil
}

func (s *stubController) lastCall() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1]
}

func newTestModel(t *testing.T) (*Model, *stubController) {
	t.Helper()
	ctrl := &stubController{}
	router := history.NewRouter(ctrl, nil, logging.Discard())
	m := New(context.Background(), router, ctrl, "alice@example.com")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, ctrl
}

// exec runs a command the way the program would and feeds back its message.
func exec(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		m.Update(msg)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, s string) {
	t.Helper()
	_, cmd := m.Update(key(s))
	exec(t, m, cmd)
}

func loadedInbox() view.View {
	v := view.Mailbox(api.Inbox)
	v.Loading = false
	v.Summaries = []api.MessageSummary{
		{ID: 3, Sender: "bob@example.com", Subject: "Lunch"},
		{ID: 1, Sender: "carol@example.com", Subject: "Report", Read: true},
	}
	return v
}

func TestInitStartsAtInbox(t *testing.T) {
	m, ctrl := newTestModel(t)
	exec(t, m, m.Init())
	if ctrl.lastCall() != "mailbox:inbox" {
		t.Fatalf("calls = %v", ctrl.calls)
	}
	if m.router.Stack().Len() != 1 {
		t.Fatalf("depth = %d", m.router.Stack().Len())
	}
}

func TestOpenSelectedRow(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.Update(viewMsg{view: loadedInbox()})

	press(t, m, "j")
	if m.cursor != 1 {
		t.Fatalf("cursor = %d", m.cursor)
	}
	press(t, m, "j")
	if m.cursor != 1 {
		t.Fatalf("cursor moved past the last row")
	}
	press(t, m, "k")
	press(t, m, "enter")
	if ctrl.lastCall() != "message:3" {
		t.Fatalf("calls = %v", ctrl.calls)
	}
}

func TestMailboxRendering(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(viewMsg{view: loadedInbox()})
	out := m.View()
	if !strings.Contains(out, "Inbox") || !strings.Contains(out, "Lunch") || !strings.Contains(out, "Report") {
		t.Fatalf("view missing rows:\n%s", out)
	}

	empty := view.Mailbox(api.Archive)
	empty.Loading = false
	m.Update(viewMsg{view: empty})
	if strings.Count(m.View(), view.EmptyMailbox) != 1 {
		t.Fatalf("expected one empty placeholder:\n%s", m.View())
	}

	failed := view.Mailbox(api.Sent)
	failed.Loading = false
	failed.Err = errors.New("connection refused")
	m.Update(viewMsg{view: failed})
	if !strings.Contains(m.View(), "Press R to retry") {
		t.Fatalf("missing retry hint:\n%s", m.View())
	}
}

func TestRetryOnlyWhenFailed(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.Update(viewMsg{view: loadedInbox()})
	press(t, m, "R")
	if ctrl.retries != 0 {
		t.Fatalf("retried a loaded view")
	}

	failed := view.Message(9)
	failed.Loading = false
	failed.Err = errors.New("timeout")
	m.Update(viewMsg{view: failed})
	press(t, m, "R")
	if ctrl.retries != 1 {
		t.Fatalf("retries = %d", ctrl.retries)
	}
}

func TestComposeAndSubmit(t *testing.T) {
	m, ctrl := newTestModel(t)
	exec(t, m, m.Init())
	press(t, m, "c")
	if ctrl.lastCall() != "compose" {
		t.Fatalf("calls = %v", ctrl.calls)
	}
	m.Update(viewMsg{view: ctrl.Current()})

	for _, r := range "bob@x.com" {
		press(t, m, string(r))
	}
	press(t, m, "tab")
	for _, r := range "Hi" {
		press(t, m, string(r))
	}
	press(t, m, "tab")
	for _, r := range "Hey" {
		press(t, m, string(r))
	}
	press(t, m, "ctrl+s")

	if len(ctrl.drafts) != 1 {
		t.Fatalf("drafts = %v", ctrl.drafts)
	}
	want := view.Draft{Recipients: "bob@x.com", Subject: "Hi", Body: "Hey"}
	if ctrl.drafts[0] != want {
		t.Fatalf("draft = %+v, want %+v", ctrl.drafts[0], want)
	}
	if e, _ := m.router.Stack().Current(); e != history.MailboxEntry(api.Sent) {
		t.Fatalf("current entry = %v", e)
	}
	if m.busy || m.status != "Sent" {
		t.Fatalf("busy=%v status=%q", m.busy, m.status)
	}
}

func TestComposeKeysDoNotNavigate(t *testing.T) {
	m, ctrl := newTestModel(t)
	m.Update(viewMsg{view: view.Compose()})
	press(t, m, "i")
	press(t, m, "q")
	if len(ctrl.calls) != 0 {
		t.Fatalf("typing navigated: %v", ctrl.calls)
	}
	if m.to.Value() != "iq" {
		t.Fatalf("to = %q", m.to.Value())
	}
}

func TestBackAtStartReportsStatus(t *testing.T) {
	m, _ := newTestModel(t)
	exec(t, m, m.Init())
	m.Update(viewMsg{view: loadedInbox()})
	press(t, m, "left")
	if !strings.Contains(m.status, "No more history") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestReplyFromMessage(t *testing.T) {
	m, ctrl := newTestModel(t)
	exec(t, m, m.Init())
	press(t, m, "enter") // no rows yet, nothing happens

	m.router.Message(context.Background(), 3)
	loaded := view.Message(3)
	loaded.Loading = false
	loaded.Message = &api.Message{ID: 3, Sender: "bob@example.com", Subject: "Lunch"}
	loaded.Archive = view.ArchiveShow
	ctrl.mu.Lock()
	ctrl.current = loaded
	ctrl.mu.Unlock()
	m.Update(viewMsg{view: loaded})

	if !strings.Contains(m.View(), "A archive") {
		t.Fatalf("missing archive hint:\n%s", m.View())
	}
	press(t, m, "r")
	if ctrl.lastCall() != "reply:3" {
		t.Fatalf("calls = %v", ctrl.calls)
	}
	if e, _ := m.router.Stack().Current(); e.Kind != history.EntryReply {
		t.Fatalf("current entry = %v", e)
	}
}

func TestAlertShown(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(viewMsg{view: loadedInbox()})
	m.Update(alertMsg{err: errors.New("mark message 3 as read: boom")})
	if !strings.Contains(m.View(), "boom") {
		t.Fatalf("alert not rendered:\n%s", m.View())
	}
}
