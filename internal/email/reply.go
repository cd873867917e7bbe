package email

import (
	"fmt"
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// ReplySubject prefixes "Re: " unless the subject already starts with a
// case-insensitive "re:". Applying it twice changes nothing.
func ReplySubject(original string) string {
	if strings.HasPrefix(strings.ToLower(original), "re:") {
		return original
	}
	return "Re: " + original
}

// QuoteBody is the reply body prefill: an attribution line, the original
// body, and a blank line to type under.
func QuoteBody(sender, timestamp, body string) string {
	return fmt.Sprintf("On %s %s wrote:\n%s\n\n", timestamp, sender, body)
}

// ParseRecipients splits a comma-separated recipient field and checks each
// entry is an address. Display names are dropped.
func ParseRecipients(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	list, err := gomail.ParseAddressList(value)
	if err != nil {
		return nil, fmt.Errorf("invalid recipients %q: %w", value, err)
	}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		if addr.Address != "" {
			out = append(out, addr.Address)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	return out, nil
}

// SameAddress compares two identities by their address part, ignoring case
// and any display name.
func SameAddress(a, b string) bool {
	return normalizeAddress(a) == normalizeAddress(b) && normalizeAddress(a) != ""
}

func normalizeAddress(value string) string {
	value = strings.TrimSpace(value)
	if addr, err := gomail.ParseAddress(value); err == nil {
		value = addr.Address
	}
	return strings.ToLower(value)
}
