package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lawdesk/internal/core"
	"lawdesk/internal/metrics"
	"lawdesk/internal/notify"
	"lawdesk/internal/storage"
)

// ReminderService sends calendar reminders and the daily overdue
// installment digest. It runs outside any request, as the system.
type ReminderService struct {
	repo     *storage.SQLiteRepository
	notifier notify.Notifier
	now      func() time.Time

	mu         sync.Mutex
	lastDigest core.Date
}

func NewReminderService(repo *storage.SQLiteRepository, notifier notify.Notifier) *ReminderService {
	return &ReminderService{repo: repo, notifier: notifier, now: time.Now}
}

// Tick sends due reminders, plus the overdue digest once per day.
func (s *ReminderService) Tick(ctx context.Context) error {
	if _, err := s.SendDueReminders(ctx); err != nil {
		return err
	}
	today := core.DateOf(s.now())
	s.mu.Lock()
	due := s.lastDigest != today
	s.mu.Unlock()
	if !due {
		return nil
	}
	if _, err := s.SendOverdueDigest(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastDigest = today
	s.mu.Unlock()
	return nil
}

// SendDueReminders notifies every event whose reminder window has opened and
// marks it reminded. A failed send leaves the event for the next tick.
func (s *ReminderService) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now().UTC()
	events, err := s.repo.ListDueReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := 0
	for _, e := range events {
		if err := s.notifier.Notify(ctx, ReminderMessage(e)); err != nil {
			metrics.NotificationsSent.WithLabelValues("event_reminder", "error").Inc()
			slog.ErrorContext(ctx, "Failed to send event reminder", "event_id", e.ID, "error", err)
			continue
		}
		metrics.NotificationsSent.WithLabelValues("event_reminder", "sent").Inc()
		if err := s.repo.MarkReminded(ctx, e.ID, now); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		slog.InfoContext(ctx, "Event reminders sent", "count", sent)
	}
	return sent, nil
}

// ReminderMessage renders the notification for one event.
func ReminderMessage(e core.CalendarEvent) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nStarts: %s UTC\n", e.Title, e.StartAt.UTC().Format("2006-01-02 15:04"))
	if e.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", e.Location)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", e.Description)
	}
	return notify.Message{
		Subject: fmt.Sprintf("Reminder: %s (%s)", e.Title, e.EventType),
		Text:    b.String(),
		Tag:     "event-reminder",
	}
}

// SendOverdueDigest sends one message listing every overdue installment as
// of today. Nothing is sent when there are none.
func (s *ReminderService) SendOverdueDigest(ctx context.Context) (int, error) {
	today := core.DateOf(s.now())
	insts, err := s.repo.ListOverdueInstallments(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list overdue installments: %w", err)
	}
	if len(insts) == 0 {
		return 0, nil
	}
	if err := s.notifier.Notify(ctx, OverdueDigest(insts, today)); err != nil {
		metrics.NotificationsSent.WithLabelValues("overdue_digest", "error").Inc()
		return 0, fmt.Errorf("send overdue digest: %w", err)
	}
	metrics.NotificationsSent.WithLabelValues("overdue_digest", "sent").Inc()
	slog.InfoContext(ctx, "Overdue digest sent", "installments", len(insts))
	return len(insts), nil
}

func OverdueDigest(insts []core.Installment, today core.Date) notify.Message {
	var (
		b     strings.Builder
		total core.Money
	)
	fmt.Fprintf(&b, "Overdue installments as of %s:\n\n", today)
	for _, in := range insts {
		days := int(today.Sub(in.DueDate.Time).Hours() / 24)
		fmt.Fprintf(&b, "- transaction %d, installment %d: %s due %s (%d days)\n",
			in.TransactionID, in.Number, in.Amount, in.DueDate, days)
		total = total.Add(in.Amount)
	}
	fmt.Fprintf(&b, "\nTotal outstanding: %s\n", total)
	return notify.Message{
		Subject: fmt.Sprintf("%d overdue installments", len(insts)),
		Text:    b.String(),
		Tag:     "overdue-digest",
	}
}
