package history

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"mailview/internal/api"
	"mailview/internal/logging"
	"mailview/internal/mailbox"
	"mailview/internal/mockserver"
	"mailview/internal/view"
)

type fakeController struct {
	calls     []string
	current   view.View
	submitErr error
	toggleErr error
	toggled   []bool
}

func (f *fakeController) ShowMailbox(ctx context.Context, name api.Mailbox) {
	f.calls = append(f.calls, "mailbox:"+string(name))
	f.current = view.Mailbox(name)
}

func (f *fakeController) ShowMessage(ctx context.Context, id api.MessageID) {
	f.calls = append(f.calls, "message:"+id.String())
	f.current = view.Message(id)
}

func (f *fakeController) ShowCompose() {
	f.calls = append(f.calls, "compose")
	f.current = view.Compose()
}

func (f *fakeController) ShowComposeReply(msg api.Message) {
	f.calls = append(f.calls, "reply:"+msg.ID.String())
	f.current = view.Compose()
	f.current.Title = view.TitleReply
}

func (f *fakeController) SubmitCompose(ctx context.Context, draft view.Draft) error {
	f.calls = append(f.calls, "submit")
	if f.submitErr != nil {
		return f.submitErr
	}
	f.ShowMailbox(ctx, api.Sent)
	return nil
}

func (f *fakeController) ToggleArchive(ctx context.Context, id api.MessageID, archived bool) error {
	f.calls = append(f.calls, "toggle:"+id.String())
	f.toggled = append(f.toggled, archived)
	if f.toggleErr != nil {
		return f.toggleErr
	}
	f.ShowMailbox(ctx, api.Inbox)
	return nil
}

func (f *fakeController) Current() view.View { return f.current }

func (f *fakeController) loadMessage(msg api.Message, archive view.ArchiveControl) {
	f.current.Loading = false
	f.current.Message = &msg
	f.current.Archive = archive
}

func newTestRouter() (*Router, *fakeController) {
	ctrl := &fakeController{}
	return NewRouter(ctrl, nil, logging.Discard()), ctrl
}

func TestStartPushesInbox(t *testing.T) {
	r, ctrl := newTestRouter()
	r.Start(context.Background())

	if e, ok := r.Stack().Current(); !ok || e != MailboxEntry(api.Inbox) {
		t.Fatalf("current entry = %v, %v", e, ok)
	}
	if len(ctrl.calls) != 1 || ctrl.calls[0] != "mailbox:inbox" {
		t.Fatalf("calls = %v", ctrl.calls)
	}
}

func TestEachTransitionPushesOnce(t *testing.T) {
	r, ctrl := newTestRouter()
	ctx := context.Background()

	r.Start(ctx)
	r.Mailbox(ctx, api.Sent)
	r.Message(ctx, 42)
	ctrl.loadMessage(api.Message{ID: 42, Sender: "bob@x.com"}, view.ArchiveShow)
	if err := r.Reply(); err != nil {
		t.Fatalf("reply: %v", err)
	}
	r.Compose()

	want := []Entry{
		MailboxEntry(api.Inbox),
		MailboxEntry(api.Sent),
		MessageEntry(42),
	}
	entries := r.Stack().Entries()
	if len(entries) != 5 {
		t.Fatalf("depth = %d, want 5", len(entries))
	}
	for i, w := range want {
		if entries[i] != w {
			t.Errorf("entry %d = %v, want %v", i, entries[i], w)
		}
	}
	if entries[3].Kind != EntryReply || entries[3].Reply.ID != 42 {
		t.Errorf("entry 3 = %v", entries[3])
	}
	if entries[4] != ComposeEntry() {
		t.Errorf("entry 4 = %v", entries[4])
	}
}

func TestBackReplaysWithoutPushing(t *testing.T) {
	r, ctrl := newTestRouter()
	ctx := context.Background()

	r.Start(ctx)
	r.Mailbox(ctx, api.Sent)
	r.Message(ctx, 42)

	if err := r.Back(ctx); err != nil {
		t.Fatalf("back: %v", err)
	}
	if v := ctrl.Current(); v.Kind != view.KindMailbox || v.Mailbox != api.Sent {
		t.Fatalf("after back: %+v", v)
	}
	if err := r.Forward(ctx); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if v := ctrl.Current(); v.Kind != view.KindMessage || v.MessageID != 42 {
		t.Fatalf("after forward: %+v", v)
	}
	if r.Stack().Len() != 3 {
		t.Fatalf("replay changed depth to %d", r.Stack().Len())
	}
	if err := r.Forward(ctx); !errors.Is(err, ErrNothingToPop) {
		t.Fatalf("forward at end = %v", err)
	}
}

func TestPopStateIsIdempotent(t *testing.T) {
	r, ctrl := newTestRouter()
	ctx := context.Background()
	r.Start(ctx)

	for i := 0; i < 3; i++ {
		r.PopState(ctx, MessageEntry(7))
	}
	if r.Stack().Len() != 1 {
		t.Fatalf("popstate pushed: depth %d", r.Stack().Len())
	}
	if v := ctrl.Current(); v.MessageID != 7 {
		t.Fatalf("view = %+v", v)
	}
}

func TestPopStateReplyUsesSnapshot(t *testing.T) {
	r, ctrl := newTestRouter()
	r.PopState(context.Background(), ReplyEntry(api.Message{ID: 5, Sender: "bob@x.com"}))
	if got := ctrl.calls; len(got) != 1 || got[0] != "reply:5" {
		t.Fatalf("calls = %v", got)
	}
}

func TestPopStateUnknownShowsInbox(t *testing.T) {
	r, ctrl := newTestRouter()
	r.PopState(context.Background(), Entry{})
	if v := ctrl.Current(); v.Kind != view.KindMailbox || v.Mailbox != api.Inbox {
		t.Fatalf("view = %+v", v)
	}
	if r.Stack().Len() != 0 {
		t.Fatalf("popstate pushed")
	}
}

func TestReplyRequiresLoadedMessage(t *testing.T) {
	r, _ := newTestRouter()
	ctx := context.Background()
	r.Start(ctx)
	r.Message(ctx, 3)

	if err := r.Reply(); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("reply while loading = %v", err)
	}
	if r.Stack().Len() != 2 {
		t.Fatalf("failed reply pushed")
	}
}

func TestSubmitFailureDoesNotPush(t *testing.T) {
	r, ctrl := newTestRouter()
	ctx := context.Background()
	r.Start(ctx)
	r.Compose()

	ctrl.submitErr = errors.New("rejected")
	if err := r.Submit(ctx, view.Draft{Recipients: "bob@x.com"}); err == nil {
		t.Fatalf("expected error")
	}
	if e, _ := r.Stack().Current(); e != ComposeEntry() {
		t.Fatalf("current entry = %v", e)
	}

	ctrl.submitErr = nil
	if err := r.Submit(ctx, view.Draft{Recipients: "bob@x.com"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if e, _ := r.Stack().Current(); e != MailboxEntry(api.Sent) {
		t.Fatalf("current entry = %v", e)
	}
}

func TestToggleArchive(t *testing.T) {
	r, ctrl := newTestRouter()
	ctx := context.Background()
	r.Start(ctx)
	r.Mailbox(ctx, api.Archive)
	r.Message(ctx, 8)

	ctrl.loadMessage(api.Message{ID: 8, Sender: "alice@x.com"}, view.ArchiveHidden)
	if err := r.ToggleArchive(ctx); !errors.Is(err, ErrNotArchivable) {
		t.Fatalf("toggle own message = %v", err)
	}

	ctrl.loadMessage(api.Message{ID: 8, Sender: "bob@x.com", Archived: true}, view.UnarchiveShow)
	if err := r.ToggleArchive(ctx); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(ctrl.toggled) != 1 || ctrl.toggled[0] != false {
		t.Fatalf("toggled = %v", ctrl.toggled)
	}
	if e, _ := r.Stack().Current(); e != MailboxEntry(api.Inbox) {
		t.Fatalf("current entry = %v", e)
	}
	if r.Stack().Len() != 4 {
		t.Fatalf("depth = %d", r.Stack().Len())
	}
}

func TestComposeEndToEnd(t *testing.T) {
	mock := mockserver.New(&mockserver.Seed{
		Users: []mockserver.SeedUser{
			{Email: "alice@x.com", Password: "alice"},
			{Email: "bob@x.com", Password: "bob"},
		},
	}, logging.Discard())
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	client, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ctx := context.Background()
	if err := client.Login(ctx, "alice@x.com", "alice"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ctrl := mailbox.New(client, mailbox.Options{CurrentUser: "alice@x.com", Logger: logging.Discard()})
	defer ctrl.Close()
	r := NewRouter(ctrl, nil, logging.Discard())

	r.Start(ctx)
	r.Compose()
	draft := view.Draft{Recipients: "bob@x.com", Subject: "Hi", Body: "Hey"}
	if err := r.Submit(ctx, draft); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctrl.Wait()

	if n := mock.CountRequests("POST", "/emails"); n != 1 {
		t.Fatalf("send requests = %d", n)
	}
	v := ctrl.Current()
	if v.Kind != view.KindMailbox || v.Mailbox != api.Sent || v.Err != nil {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Summaries) != 1 || v.Summaries[0].Subject != "Hi" {
		t.Fatalf("sent mailbox = %+v", v.Summaries)
	}
	if e, _ := r.Stack().Current(); e != MailboxEntry(api.Sent) {
		t.Fatalf("current entry = %v", e)
	}
	if r.Stack().Len() != 3 {
		t.Fatalf("depth = %d", r.Stack().Len())
	}
}

func TestOpenUnreadMessageMarksReadOnce(t *testing.T) {
	mock := mockserver.New(&mockserver.Seed{
		Users: []mockserver.SeedUser{
			{Email: "alice@x.com", Password: "alice"},
			{Email: "bob@x.com", Password: "bob"},
		},
		Messages: []mockserver.SeedMessage{
			{From: "bob@x.com", To: []string{"alice@x.com"}, Subject: "Lunch", Body: "Noon?"},
		},
	}, logging.Discard())
	srv := httptest.NewServer(mock.Handler())
	defer srv.Close()

	client, err := api.New(api.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	client.SetSessionCookie(mock.Session("alice@x.com"))

	ctrl := mailbox.New(client, mailbox.Options{CurrentUser: "alice@x.com", Logger: logging.Discard()})
	defer ctrl.Close()
	r := NewRouter(ctrl, nil, logging.Discard())
	ctx := context.Background()

	r.Start(ctx)
	ctrl.Wait()
	inbox := ctrl.Current()
	if len(inbox.Summaries) != 1 || inbox.Summaries[0].Read {
		t.Fatalf("inbox = %+v", inbox.Summaries)
	}
	id := inbox.Summaries[0].ID

	r.Message(ctx, id)
	ctrl.Wait()

	if n := mock.CountRequests("PUT", "/emails/"+id.String()); n != 1 {
		t.Fatalf("update requests = %d", n)
	}
	if err := r.Back(ctx); err != nil {
		t.Fatalf("back: %v", err)
	}
	ctrl.Wait()
	if v := ctrl.Current(); len(v.Summaries) != 1 || !v.Summaries[0].Read {
		t.Fatalf("message not read after back: %+v", v.Summaries)
	}
}
