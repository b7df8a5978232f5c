// Package notify delivers office notifications: event reminders and overdue
// installment digests.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// Message is one notification. Tag groups messages in provider analytics.
type Message struct {
	Subject string
	Text    string
	HTML    string
	Tag     string
}

// Notifier sends a message to the configured recipients.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

var ErrNoRecipients = errors.New("no notification recipients configured")

// Config selects and configures a Notifier.
type Config struct {
	Provider string // "log" or "mailgun"
	Domain   string
	APIKey   string
	From     string
	To       []string
}

// New builds the notifier named by cfg.Provider. An incomplete mailgun
// configuration falls back to the log notifier.
func New(cfg Config, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Provider) {
	case "mailgun":
		if cfg.Domain == "" || cfg.APIKey == "" || cfg.From == "" {
			logger.Warn("Mailgun configuration incomplete, falling back to log notifier")
			return NewLogNotifier(logger)
		}
		logger.Info("Mailgun notifier initialized", "domain", cfg.Domain, "recipients", len(cfg.To))
		return NewMailgunNotifier(mailgun.NewMailgun(cfg.Domain, cfg.APIKey), cfg.From, cfg.To, logger)
	default:
		return NewLogNotifier(logger)
	}
}

// MailgunNotifier sends through the Mailgun HTTP API.
type MailgunNotifier struct {
	mg      mailgun.Mailgun
	from    string
	to      []string
	timeout time.Duration
	logger  *slog.Logger
}

func NewMailgunNotifier(mg mailgun.Mailgun, from string, to []string, logger *slog.Logger) *MailgunNotifier {
	return &MailgunNotifier{mg: mg, from: from, to: to, timeout: 20 * time.Second, logger: logger}
}

func (n *MailgunNotifier) Notify(ctx context.Context, msg Message) error {
	if len(n.to) == 0 {
		return ErrNoRecipients
	}
	message := n.mg.NewMessage(n.from, msg.Subject, msg.Text, n.to...)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	if msg.Tag != "" {
		if err := message.AddTag(msg.Tag); err != nil {
			n.logger.Warn("Failed to tag message", "tag", msg.Tag, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	resp, id, err := n.mg.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("mailgun send failed: %w (response: %s)", err, resp)
	}
	n.logger.InfoContext(ctx, "Notification sent", "subject", msg.Subject, "id", id)
	return nil
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "Notification", "subject", msg.Subject, "tag", msg.Tag, "body", msg.Text)
	return nil
}
