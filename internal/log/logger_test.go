package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Component: ComponentLedger, Output: &buf})

	logger.Debug("hidden")
	logger.Info("visible", FieldTransactionID, 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line below debug level, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if rec[FieldComponent] != ComponentLedger {
		t.Errorf("expected component %q, got %v", ComponentLedger, rec[FieldComponent])
	}
	if rec[FieldTransactionID] != float64(7) {
		t.Errorf("expected transaction_id 7, got %v", rec[FieldTransactionID])
	}
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{FormatText, FormatTint, "bogus"} {
		buf.Reset()
		slog.New(NewHandler(&buf, format, slog.LevelInfo)).Info("hello", "k", "v")
		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("%s: expected message in output, got %q", format, buf.String())
		}
	}
}

func TestLogHTTPEndLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{500, "ERROR"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf}))
		r := httptest.NewRequest("GET", "/api/clients", nil)
		sl.LogHTTPEnd(context.Background(), r, "req-1", tc.status, 3, "10.0.0.1")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("status %d: %v", tc.status, err)
		}
		if rec["level"] != tc.level {
			t.Errorf("status %d: expected level %s, got %v", tc.status, tc.level, rec["level"])
		}
		if rec[FieldRequestID] != "req-1" {
			t.Errorf("status %d: expected request id, got %v", tc.status, rec[FieldRequestID])
		}
	}
}

func TestLogErrorIncludesOperation(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf}))
	sl.LogError(context.Background(), "backup failed", errors.New("disk full"), ComponentBackup, OpBackup, nil)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec[FieldError] != "disk full" || rec[FieldOperation] != OpBackup || rec[FieldComponent] != ComponentBackup {
		t.Fatalf("unexpected record %v", rec)
	}
}
