package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"lawdesk/internal/core"
	"lawdesk/internal/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func TestSendDueReminders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, e := range []core.CalendarEvent{
		{Title: "Due hearing", EventType: core.EventHearing, StartAt: now.Add(30 * time.Minute), ReminderMinutes: 60, Status: core.EventScheduled, Location: "Courtroom 4"},
		{Title: "Later", EventType: "meeting", StartAt: now.Add(3 * time.Hour), ReminderMinutes: 60, Status: core.EventScheduled},
		{Title: "Started", EventType: "meeting", StartAt: now.Add(-10 * time.Minute), ReminderMinutes: 60, Status: core.EventScheduled},
		{Title: "No reminder", EventType: "meeting", StartAt: now.Add(10 * time.Minute), ReminderMinutes: 0, Status: core.EventScheduled},
		{Title: "Cancelled", EventType: "meeting", StartAt: now.Add(10 * time.Minute), ReminderMinutes: 60, Status: core.EventCancelled},
	} {
		if _, err := repo.CreateEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	failing := &recordingNotifier{err: errors.New("smtp down")}
	svc := NewReminderService(repo, failing)
	svc.now = func() time.Time { return now }
	if n, err := svc.SendDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("expected nothing sent on notifier failure, got %d %v", n, err)
	}

	rec := &recordingNotifier{}
	svc = NewReminderService(repo, rec)
	svc.now = func() time.Time { return now }
	n, err := svc.SendDueReminders(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one reminder, got %d %v", n, err)
	}
	msg := rec.sent[0]
	if !strings.Contains(msg.Subject, "Due hearing") || !strings.Contains(msg.Text, "Courtroom 4") || msg.Tag != "event-reminder" {
		t.Fatalf("unexpected message %+v", msg)
	}

	if n, err := svc.SendDueReminders(ctx); err != nil || n != 0 {
		t.Fatalf("expected reminder not to repeat, got %d %v", n, err)
	}
}

func TestOverdueDigestOncePerDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

	tx := seedTransaction(t, repo, 90000)
	for i, due := range []core.Date{core.NewDate(2025, 5, 1), core.NewDate(2025, 6, 1), core.NewDate(2025, 7, 1)} {
		if _, err := repo.InsertInstallment(ctx, core.Installment{
			TransactionID: tx.ID, Number: i + 1, Amount: core.Money{Cents: 30000}, DueDate: due, Status: core.InstPending,
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := &recordingNotifier{}
	svc := NewReminderService(repo, rec)
	svc.now = func() time.Time { return now }

	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one digest, got %d messages", rec.count())
	}
	digest := rec.sent[0]
	if digest.Subject != "2 overdue installments" || !strings.Contains(digest.Text, "Total outstanding: 600.00") {
		t.Fatalf("unexpected digest %+v", digest)
	}

	if err := svc.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected digest once per day, got %d messages", rec.count())
	}

	now = now.Add(24 * time.Hour)
	if err := svc.Tick(ctx); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 2 {
		t.Fatalf("expected a new digest the next day, got %d messages", rec.count())
	}
}

func TestOverdueDigestSkipsWhenNothingOverdue(t *testing.T) {
	repo := newTestRepo(t)
	rec := &recordingNotifier{}
	svc := NewReminderService(repo, rec)
	n, err := svc.SendOverdueDigest(context.Background())
	if err != nil || n != 0 || rec.count() != 0 {
		t.Fatalf("expected no digest, got %d %v %d", n, err, rec.count())
	}
}
