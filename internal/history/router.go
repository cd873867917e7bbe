package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"mailview/internal/api"
	"mailview/internal/view"
)

var (
	ErrNoMessage     = errors.New("no message is open")
	ErrNotArchivable = errors.New("message cannot be archived by its sender")
	ErrNothingToPop  = errors.New("no history entry in that direction")
)

// Controller is the part of mailbox.Controller the router drives.
type Controller interface {
	ShowMailbox(ctx context.Context, name api.Mailbox)
	ShowMessage(ctx context.Context, id api.MessageID)
	ShowCompose()
	ShowComposeReply(msg api.Message)
	SubmitCompose(ctx context.Context, draft view.Draft) error
	ToggleArchive(ctx context.Context, id api.MessageID, archived bool) error
	Current() view.View
}

// Router pairs every user-initiated transition with exactly one push, and
// replays entries on Back, Forward, and PopState without pushing.
type Router struct {
	ctrl   Controller
	stack  *Stack
	logger *slog.Logger

	mu sync.Mutex
}

func NewRouter(ctrl Controller, stack *Stack, logger *slog.Logger) *Router {
	if stack == nil {
		stack = NewStack()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{ctrl: ctrl, stack: stack, logger: logger}
}

func (r *Router) Stack() *Stack {
	return r.stack
}

// Start shows the inbox and records it as the first entry.
func (r *Router) Start(ctx context.Context) {
	r.Mailbox(ctx, api.Inbox)
}

func (r *Router) Mailbox(ctx context.Context, name api.Mailbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctrl.ShowMailbox(ctx, name)
	r.push(MailboxEntry(name))
}

func (r *Router) Message(ctx context.Context, id api.MessageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctrl.ShowMessage(ctx, id)
	r.push(MessageEntry(id))
}

func (r *Router) Compose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctrl.ShowCompose()
	r.push(ComposeEntry())
}

// Reply starts a reply to the message currently on screen.
func (r *Router) Reply() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.ctrl.Current()
	if v.Kind != view.KindMessage || v.Message == nil {
		return ErrNoMessage
	}
	msg := *v.Message
	r.ctrl.ShowComposeReply(msg)
	r.push(ReplyEntry(msg))
	return nil
}

// Submit sends the draft. Only a successful send navigates, to the sent
// mailbox.
func (r *Router) Submit(ctx context.Context, draft view.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ctrl.SubmitCompose(ctx, draft); err != nil {
		return err
	}
	r.push(MailboxEntry(api.Sent))
	return nil
}

// ToggleArchive flips the archived flag of the open message. On success the
// inbox is shown and recorded.
func (r *Router) ToggleArchive(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.ctrl.Current()
	if v.Kind != view.KindMessage || v.Message == nil {
		return ErrNoMessage
	}
	if v.Archive == view.ArchiveHidden {
		return ErrNotArchivable
	}
	if err := r.ctrl.ToggleArchive(ctx, v.Message.ID, v.Archive == view.ArchiveShow); err != nil {
		return err
	}
	r.push(MailboxEntry(api.Inbox))
	return nil
}

func (r *Router) Back(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stack.Back()
	if !ok {
		return ErrNothingToPop
	}
	r.replay(ctx, e)
	return nil
}

func (r *Router) Forward(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stack.Forward()
	if !ok {
		return ErrNothingToPop
	}
	r.replay(ctx, e)
	return nil
}

// PopState replays e as if the user had navigated to it through history.
// The stack is left untouched.
func (r *Router) PopState(ctx context.Context, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replay(ctx, e)
}

func (r *Router) replay(ctx context.Context, e Entry) {
	r.logger.Debug("replay history entry", "entry", e.String())
	switch e.Kind {
	case EntryMailbox:
		r.ctrl.ShowMailbox(ctx, e.Mailbox)
	case EntryMessage:
		r.ctrl.ShowMessage(ctx, e.MessageID)
	case EntryCompose:
		r.ctrl.ShowCompose()
	case EntryReply:
		if e.Reply == nil {
			r.ctrl.ShowMailbox(ctx, api.Inbox)
			return
		}
		r.ctrl.ShowComposeReply(*e.Reply)
	default:
		r.logger.Warn("unrecognised history entry, showing inbox")
		r.ctrl.ShowMailbox(ctx, api.Inbox)
	}
}

func (r *Router) push(e Entry) {
	r.stack.Push(e)
	r.logger.Debug("push history entry", "entry", e.String(), "depth", r.stack.Len())
}
