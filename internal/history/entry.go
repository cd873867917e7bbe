// Package history keeps the navigation stack in step with the view. Each
// user-initiated transition pushes one Entry; Back, Forward, and PopState
// replay an entry without pushing.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"

	"mailview/internal/api"
)

type EntryKind int

const (
	EntryUnknown EntryKind = iota
	EntryMailbox
	EntryMessage
	EntryCompose
	EntryReply
)

func (k EntryKind) String() string {
	switch k {
	case EntryMailbox:
		return "mailbox"
	case EntryMessage:
		return "message"
	case EntryCompose:
		return "compose"
	case EntryReply:
		return "reply"
	default:
		return "unknown"
	}
}

// Entry is one history record. Only the field matching Kind is meaningful.
// It encodes to the same JSON state object the web client stores, so
// entries can be exchanged with it.
type Entry struct {
	Kind      EntryKind
	Mailbox   api.Mailbox
	MessageID api.MessageID
	Reply     *api.Message
}

func MailboxEntry(m api.Mailbox) Entry {
	return Entry{Kind: EntryMailbox, Mailbox: m}
}

func MessageEntry(id api.MessageID) Entry {
	return Entry{Kind: EntryMessage, MessageID: id}
}

func ComposeEntry() Entry {
	return Entry{Kind: EntryCompose}
}

// ReplyEntry embeds a copy of msg; replaying it never re-fetches.
func ReplyEntry(msg api.Message) Entry {
	snapshot := msg
	return Entry{Kind: EntryReply, Reply: &snapshot}
}

// URL is the location the web client shows for the entry.
func (e Entry) URL() string {
	switch e.Kind {
	case EntryMailbox:
		return "/" + string(e.Mailbox)
	case EntryMessage:
		return "/email/" + e.MessageID.String()
	case EntryCompose:
		return "/compose"
	case EntryReply:
		if e.Reply != nil {
			return "/reply/" + e.Reply.ID.String()
		}
	}
	return "/"
}

func (e Entry) String() string {
	return e.Kind.String() + " " + e.URL()
}

type state struct {
	Mailbox string         `json:"mailbox,omitempty"`
	EmailID *api.MessageID `json:"email_id,omitempty"`
	Compose *bool          `json:"compose,omitempty"`
	Reply   *bool          `json:"reply,omitempty"`
	Email   *api.Message   `json:"email,omitempty"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	var s state
	yes := true
	switch e.Kind {
	case EntryMailbox:
		s.Mailbox = string(e.Mailbox)
	case EntryMessage:
		id := e.MessageID
		s.EmailID = &id
	case EntryCompose:
		s.Compose = &yes
	case EntryReply:
		if e.Reply == nil {
			return nil, fmt.Errorf("reply entry without message")
		}
		s.Reply = &yes
		snapshot := *e.Reply
		s.Email = &snapshot
	default:
		return []byte("null"), nil
	}
	return json.Marshal(s)
}

// UnmarshalJSON accepts any state object. States that match no variant, or
// carry an invalid mailbox or id, decode to EntryUnknown. The compose and
// reply flags count when present and non-null, whatever their value.
func (e *Entry) UnmarshalJSON(data []byte) error {
	*e = Entry{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch {
	case s.Mailbox != "":
		m, err := api.ParseMailbox(s.Mailbox)
		if err == nil {
			*e = MailboxEntry(m)
		}
	case s.EmailID != nil:
		if *s.EmailID > 0 {
			*e = MessageEntry(*s.EmailID)
		}
	case s.Compose != nil:
		*e = ComposeEntry()
	case s.Reply != nil:
		if s.Email != nil {
			*e = ReplyEntry(*s.Email)
		}
	}
	return nil
}
