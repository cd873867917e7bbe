package email

import (
	"bytes"
	"fmt"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"mailview/internal/api"
)

// TimestampLayout is how the server formats message timestamps.
const TimestampLayout = "Jan 02 2006, 03:04 PM"

// Export renders a fetched message as an RFC 5322 document. The server only
// exposes plain-text bodies, so the result is a single inline part.
func Export(msg api.Message, host string) ([]byte, error) {
	if msg.Sender == "" {
		return nil, fmt.Errorf("message %d has no sender", msg.ID)
	}

	var h gomail.Header
	from, err := addressList(msg.Sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	h.SetAddressList("From", from)

	var to []*gomail.Address
	for _, r := range msg.Recipients {
		list, err := addressList(r)
		if err != nil {
			return nil, fmt.Errorf("recipient: %w", err)
		}
		to = append(to, list...)
	}
	if len(to) > 0 {
		h.SetAddressList("To", to)
	}

	h.SetSubject(msg.Subject)
	if ts, err := time.ParseInLocation(TimestampLayout, msg.Timestamp, time.Local); err == nil {
		h.SetDate(ts)
	}
	if host == "" {
		host = "localhost"
	}
	h.SetMessageID(fmt.Sprintf("%d@%s", msg.ID, host))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("X-Mailview-Id", msg.ID.String())

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(msg.Body)); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addressList(value string) ([]*gomail.Address, error) {
	list, err := gomail.ParseAddressList(value)
	if err != nil {
		return nil, err
	}
	return list, nil
}
