package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mailgun/mailgun-go/v4"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewFallsBackToLog(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"default", Config{}},
		{"log", Config{Provider: "log"}},
		{"incomplete mailgun", Config{Provider: "mailgun", Domain: "mg.example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := New(tt.cfg, discardLogger()).(*LogNotifier); !ok {
				t.Fatalf("expected log notifier")
			}
		})
	}

	n := New(Config{Provider: "MAILGUN", Domain: "mg.example.com", APIKey: "key", From: "office@example.com"}, discardLogger())
	if _, ok := n.(*MailgunNotifier); !ok {
		t.Fatalf("expected mailgun notifier, got %T", n)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf strings.Builder
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := n.Notify(context.Background(), Message{Subject: "Hearing tomorrow", Tag: "reminder"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(buf.String(), "Hearing tomorrow") {
		t.Fatalf("expected subject in log output, got %q", buf.String())
	}
}

func TestMailgunNotifierRequiresRecipients(t *testing.T) {
	n := NewMailgunNotifier(mailgun.NewMailgun("mg.example.com", "key"), "office@example.com", nil, discardLogger())
	if err := n.Notify(context.Background(), Message{Subject: "x", Text: "y"}); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestMailgunNotifierSends(t *testing.T) {
	var (
		mu      sync.Mutex
		subject string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			_ = r.ParseForm()
		}
		mu.Lock()
		subject = r.FormValue("subject")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"Queued. Thank you.","id":"<1@mg.example.com>"}`)
	}))
	defer srv.Close()

	mg := mailgun.NewMailgun("mg.example.com", "key")
	mg.SetAPIBase(srv.URL + "/v3")
	n := NewMailgunNotifier(mg, "office@example.com", []string{"lawyer@example.com"}, discardLogger())

	if err := n.Notify(context.Background(), Message{Subject: "Overdue installments", Text: "2 overdue", Tag: "overdue"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if subject != "Overdue installments" {
		t.Fatalf("expected subject to reach the API, got %q", subject)
	}
}
