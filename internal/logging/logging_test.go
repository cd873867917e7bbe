package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mailview/internal/config"
)

func TestNewJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.LogConfig{Level: "info", Format: "json"}, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("mailbox loaded", "mailbox", "inbox", "count", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["mailbox"] != "inbox" {
		t.Fatalf("expected mailbox attribute, got %v", record)
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, config.LogConfig{Level: "error"}, true)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("request", "path", "/emails/inbox")
	if !strings.Contains(buf.String(), "/emails/inbox") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"", slog.LevelInfo, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, config.LogConfig{Format: "xml"}, false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
