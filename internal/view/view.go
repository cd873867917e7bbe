// Package view holds the state of the one screen that is showing. A View is
// a value: the controller replaces it wholesale on every transition, so the
// list, detail, and composer are mutually exclusive by construction.
package view

import (
	"mailview/internal/api"
)

type Kind int

const (
	KindNone Kind = iota
	KindMailbox
	KindMessage
	KindCompose
)

func (k Kind) String() string {
	switch k {
	case KindMailbox:
		return "mailbox"
	case KindMessage:
		return "message"
	case KindCompose:
		return "compose"
	default:
		return "none"
	}
}

// ArchiveControl is what the detail view offers for archiving.
type ArchiveControl int

const (
	ArchiveHidden ArchiveControl = iota
	ArchiveShow
	UnarchiveShow
)

func (a ArchiveControl) Label() string {
	switch a {
	case ArchiveShow:
		return "Archive"
	case UnarchiveShow:
		return "Unarchive"
	default:
		return ""
	}
}

const (
	TitleNewEmail = "New Email"
	TitleReply    = "Reply"
	EmptyMailbox  = "Mailbox is empty"
)

// Draft is the composer's field contents. It is never persisted.
type Draft struct {
	Recipients string
	Subject    string
	Body       string
}

type View struct {
	Kind Kind

	// Mailbox list.
	Mailbox   api.Mailbox
	Summaries []api.MessageSummary

	// Message detail. MessageID is set while loading, Message once fetched.
	MessageID api.MessageID
	Message   *api.Message
	Archive   ArchiveControl

	// Composer.
	Title string
	Draft Draft
	// ReplyTo is the snapshot a reply was started from.
	ReplyTo *api.Message

	Loading bool
	Err     error
}

func Mailbox(name api.Mailbox) View {
	return View{Kind: KindMailbox, Mailbox: name, Loading: true}
}

func Message(id api.MessageID) View {
	return View{Kind: KindMessage, MessageID: id, Loading: true}
}

func Compose() View {
	return View{Kind: KindCompose, Title: TitleNewEmail}
}

// Empty reports a loaded mailbox with no rows; renderers show the single
// EmptyMailbox placeholder instead of a list.
func (v View) Empty() bool {
	return v.Kind == KindMailbox && !v.Loading && v.Err == nil && len(v.Summaries) == 0
}

// Retryable reports a failed fetch the user can re-run.
func (v View) Retryable() bool {
	return v.Err != nil && (v.Kind == KindMailbox || v.Kind == KindMessage)
}

// Heading is the title line every renderer puts on top.
func (v View) Heading() string {
	switch v.Kind {
	case KindMailbox:
		return v.Mailbox.Title()
	case KindMessage:
		if v.Message != nil {
			return v.Message.Subject
		}
		return "Message " + v.MessageID.String()
	case KindCompose:
		return v.Title
	default:
		return ""
	}
}
