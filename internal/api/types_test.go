package api

import (
	"encoding/json"
	"testing"
)

func TestParseMailbox(t *testing.T) {
	for _, in := range []string{"inbox", "Sent", " archive "} {
		if _, err := ParseMailbox(in); err != nil {
			t.Fatalf("ParseMailbox(%q): %v", in, err)
		}
	}
	if _, err := ParseMailbox("drafts"); err == nil {
		t.Fatalf("expected error for unknown mailbox")
	}
	if Archive.Title() != "Archive" {
		t.Fatalf("unexpected title %q", Archive.Title())
	}
}

func TestParseMessageID(t *testing.T) {
	id, err := ParseMessageID("42")
	if err != nil || id != 42 {
		t.Fatalf("ParseMessageID(42) = %v, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "abc"} {
		if _, err := ParseMessageID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestRecipientsDecodesArrayOrString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`["a@x.com","b@x.com"]`, "a@x.com,b@x.com"},
		{`"a@x.com, b@x.com"`, "a@x.com,b@x.com"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var r Recipients
		if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if r.String() != tt.want {
			t.Fatalf("unmarshal %s = %q, want %q", tt.in, r.String(), tt.want)
		}
	}

	var r Recipients
	if err := json.Unmarshal([]byte(`42`), &r); err == nil {
		t.Fatalf("expected error for numeric recipients")
	}
}

func TestUpdateOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(SetArchived(false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"archived":false}` {
		t.Fatalf("unexpected body %s", data)
	}
}
