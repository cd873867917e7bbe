package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Mailbox string

const (
	Inbox   Mailbox = "inbox"
	Sent    Mailbox = "sent"
	Archive Mailbox = "archive"
)

var Mailboxes = []Mailbox{Inbox, Sent, Archive}

func ParseMailbox(s string) (Mailbox, error) {
	switch m := Mailbox(strings.ToLower(strings.TrimSpace(s))); m {
	case Inbox, Sent, Archive:
		return m, nil
	default:
		return "", fmt.Errorf("invalid mailbox %q (expected inbox, sent, or archive)", s)
	}
}

func (m Mailbox) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// MessageID is assigned by the server and only ever echoed back to it.
type MessageID int64

func ParseMessageID(s string) (MessageID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid message id: %s", s)
	}
	return MessageID(n), nil
}

func (id MessageID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Recipients accepts the JSON array the server emits as well as a single
// comma-separated string.
type Recipients []string

func (r *Recipients) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = SplitRecipients(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("recipients: %w", err)
	}
	*r = list
	return nil
}

func (r Recipients) String() string {
	return strings.Join(r, ",")
}

func SplitRecipients(value string) Recipients {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make(Recipients, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type MessageSummary struct {
	ID        MessageID `json:"id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Timestamp string    `json:"timestamp"`
	Read      bool      `json:"read"`
}

type Message struct {
	ID         MessageID  `json:"id"`
	Sender     string     `json:"sender"`
	Recipients Recipients `json:"recipients"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Timestamp  string     `json:"timestamp"`
	Read       bool       `json:"read"`
	Archived   bool       `json:"archived"`
}

// SendRequest is the POST /emails body. Recipients stay a single
// comma-separated string; the server splits them.
type SendRequest struct {
	Recipients string `json:"recipients"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Update is a partial PUT /emails/{id}. Nil fields are not sent.
type Update struct {
	Read     *bool `json:"read,omitempty"`
	Archived *bool `json:"archived,omitempty"`
}

func MarkRead() Update {
	read := true
	return Update{Read: &read}
}

func SetArchived(archived bool) Update {
	return Update{Archived: &archived}
}

func (u Update) Empty() bool {
	return u.Read == nil && u.Archived == nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func validateSummaries(list []MessageSummary) error {
	for i, s := range list {
		if s.ID <= 0 {
			return fmt.Errorf("summary %d has no id", i)
		}
	}
	return nil
}

func validateMessage(m *Message) error {
	if m.ID <= 0 {
		return fmt.Errorf("message has no id")
	}
	if m.Sender == "" {
		return fmt.Errorf("message %d has no sender", m.ID)
	}
	return nil
}
