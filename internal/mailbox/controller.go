// Package mailbox drives the view model: it fetches through the transport,
// swaps the current view, and reports mutation failures to an Alerter.
//
// Fetches run in the background and are tied to the view that started them.
// Switching views cancels the previous view's context, and a completion is
// applied only if its view is still the current one.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mailview/internal/api"
	"mailview/internal/email"
	"mailview/internal/view"
)

type Transport interface {
	ListMailbox(ctx context.Context, mailbox api.Mailbox) ([]api.MessageSummary, error)
	GetMessage(ctx context.Context, id api.MessageID) (*api.Message, error)
	SendMessage(ctx context.Context, req api.SendRequest) error
	UpdateMessage(ctx context.Context, id api.MessageID, update api.Update) error
}

// Renderer is called with every new or updated view while the controller
// holds its lock, so calls arrive in order. It must not call back into the
// controller.
type Renderer interface {
	Render(v view.View)
}

type RendererFunc func(v view.View)

func (f RendererFunc) Render(v view.View) { f(v) }

// Alerter surfaces failed mutations to the user.
type Alerter interface {
	Alert(err error)
}

type AlerterFunc func(err error)

func (f AlerterFunc) Alert(err error) { f(err) }

var ErrNothingToRetry = errors.New("current view has nothing to retry")

type Options struct {
	// CurrentUser is the logged-in address; messages it sent get no
	// archive control.
	CurrentUser string
	Renderer    Renderer
	Alerter     Alerter
	Logger      *slog.Logger
}

type Controller struct {
	transport Transport
	user      string
	renderer  Renderer
	alerter   Alerter
	logger    *slog.Logger

	mu      sync.Mutex
	current view.View
	gen     uint64
	cancel  context.CancelFunc

	tasks sync.WaitGroup
}

func New(transport Transport, opts Options) *Controller {
	c := &Controller{
		transport: transport,
		user:      opts.CurrentUser,
		renderer:  opts.Renderer,
		alerter:   opts.Alerter,
		logger:    opts.Logger,
	}
	if c.renderer == nil {
		c.renderer = RendererFunc(func(view.View) {})
	}
	if c.alerter == nil {
		c.alerter = AlerterFunc(func(error) {})
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *Controller) Current() view.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Wait blocks until every background fetch and mark-as-read has finished.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

// Close cancels the current view's work and waits for it to drain.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	c.mu.Unlock()
	c.tasks.Wait()
}

// ShowMailbox switches to the mailbox list and loads it in the background.
// Rows keep the server's order.
func (c *Controller) ShowMailbox(ctx context.Context, name api.Mailbox) {
	viewCtx, gen := c.switchTo(ctx, view.Mailbox(name))

	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		list, err := c.transport.ListMailbox(viewCtx, name)
		applied := c.update(gen, func(v *view.View) {
			v.Loading = false
			if err != nil {
				v.Err = err
				return
			}
			v.Summaries = list
		})
		if !applied {
			return
		}
		if err != nil {
			c.logger.Error("load mailbox failed", "mailbox", name, "kind", failureKind(err), "error", err)
			return
		}
		c.logger.Debug("mailbox loaded", "mailbox", name, "count", len(list))
	}()
}

// ShowMessage switches to the detail view and loads the message. An unread
// message gets one mark-as-read request once it has been shown.
func (c *Controller) ShowMessage(ctx context.Context, id api.MessageID) {
	viewCtx, gen := c.switchTo(ctx, view.Message(id))

	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		msg, err := c.transport.GetMessage(viewCtx, id)
		applied := c.update(gen, func(v *view.View) {
			v.Loading = false
			if err != nil {
				v.Err = err
				return
			}
			v.Message = msg
			v.Archive = c.archiveControl(msg)
		})
		if !applied {
			return
		}
		if err != nil {
			c.logger.Error("load message failed", "id", id, "kind", failureKind(err), "error", err)
			return
		}
		if !msg.Read {
			c.markRead(viewCtx, id)
		}
	}()
}

func (c *Controller) markRead(ctx context.Context, id api.MessageID) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		err := c.transport.UpdateMessage(ctx, id, api.MarkRead())
		if err == nil {
			return
		}
		if api.IsCanceled(err) {
			c.logger.Debug("mark read cancelled", "id", id)
			return
		}
		c.logger.Warn("mark read failed", "id", id, "kind", failureKind(err), "error", err)
		c.alerter.Alert(fmt.Errorf("mark message %d as read: %w", id, err))
	}()
}

func (c *Controller) ShowCompose() {
	c.switchTo(nil, view.Compose())
}

// ShowComposeReply opens the composer prefilled from msg. The snapshot is
// used as-is; nothing is re-fetched.
func (c *Controller) ShowComposeReply(msg api.Message) {
	v := view.Compose()
	v.Title = view.TitleReply
	v.Draft = view.Draft{
		Recipients: msg.Sender,
		Subject:    email.ReplySubject(msg.Subject),
		Body:       email.QuoteBody(msg.Sender, msg.Timestamp, msg.Body),
	}
	snapshot := msg
	v.ReplyTo = &snapshot
	c.switchTo(nil, v)
}

// SubmitCompose sends draft once and, on success, shows the sent mailbox.
// On failure the composer stays up with the draft intact.
func (c *Controller) SubmitCompose(ctx context.Context, draft view.Draft) error {
	c.mu.Lock()
	if c.current.Kind == view.KindCompose {
		c.current.Draft = draft
	}
	c.mu.Unlock()

	if _, err := email.ParseRecipients(draft.Recipients); err != nil {
		c.alerter.Alert(err)
		return err
	}

	err := c.transport.SendMessage(ctx, api.SendRequest{
		Recipients: draft.Recipients,
		Subject:    draft.Subject,
		Body:       draft.Body,
	})
	if err != nil {
		c.logger.Warn("send failed", "recipients", draft.Recipients, "kind", failureKind(err), "error", err)
		c.alerter.Alert(fmt.Errorf("send message: %w", err))
		return err
	}

	c.logger.Info("message sent", "recipients", draft.Recipients)
	c.ShowMailbox(ctx, api.Sent)
	return nil
}

// ToggleArchive sets the archived flag and, on success, shows the inbox no
// matter which mailbox the message was opened from.
func (c *Controller) ToggleArchive(ctx context.Context, id api.MessageID, archived bool) error {
	if err := c.transport.UpdateMessage(ctx, id, api.SetArchived(archived)); err != nil {
		c.logger.Warn("archive toggle failed", "id", id, "archived", archived, "kind", failureKind(err), "error", err)
		c.alerter.Alert(fmt.Errorf("update message %d: %w", id, err))
		return err
	}
	c.ShowMailbox(ctx, api.Inbox)
	return nil
}

// Retry re-runs the fetch of a view that failed to load.
func (c *Controller) Retry(ctx context.Context) error {
	v := c.Current()
	if !v.Retryable() {
		return ErrNothingToRetry
	}
	switch v.Kind {
	case view.KindMailbox:
		c.ShowMailbox(ctx, v.Mailbox)
	case view.KindMessage:
		c.ShowMessage(ctx, v.MessageID)
	}
	return nil
}

func (c *Controller) archiveControl(msg *api.Message) view.ArchiveControl {
	if email.SameAddress(msg.Sender, c.user) {
		return view.ArchiveHidden
	}
	if msg.Archived {
		return view.UnarchiveShow
	}
	return view.ArchiveShow
}

// switchTo replaces the current view and cancels whatever the previous one
// still had in flight.
func (c *Controller) switchTo(ctx context.Context, v view.View) (context.Context, uint64) {
	if ctx == nil {
		ctx = context.Background()
	}
	viewCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	c.current = v
	c.renderer.Render(v)
	return viewCtx, c.gen
}

// update applies fn to the current view if it still belongs to gen.
func (c *Controller) update(gen uint64, fn func(v *view.View)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	fn(&c.current)
	c.renderer.Render(c.current)
	return true
}

// failureKind labels a transport error for logs.
func failureKind(err error) string {
	switch {
	case errors.Is(err, api.ErrAuthenticationRequired):
		return "auth"
	case api.IsNetworkError(err):
		return "network"
	case api.IsServerError(err):
		return "server"
	default:
		return "other"
	}
}
