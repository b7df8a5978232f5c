package main

import (
	"time"

	"lawdesk/internal/cli"
	applog "lawdesk/internal/log"
	"lawdesk/internal/notify"
	"lawdesk/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentReminder)
	log := logger.Slog()

	log.Info("Starting reminder-worker", "interval", cfg.ReminderInterval, "notifier", cfg.Notifier)

	repo := cli.InitSQLite(log, cfg.SQLiteDBPath)
	defer repo.Close()

	notifier := notify.New(notify.Config{
		Provider: cfg.Notifier,
		Domain:   cfg.MailgunDomain,
		APIKey:   cfg.MailgunAPIKey,
		From:     cfg.NotifyFrom,
		To:       cfg.NotifyTo,
	}, logger.WithComponent(applog.ComponentNotify).Slog())
	reminders := services.NewReminderService(repo, notifier)

	ctx, done := cli.GracefulShutdown(log, 10*time.Second, nil)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	go func() {
		for {
			if err := reminders.Tick(ctx); err != nil && ctx.Err() == nil {
				log.Error("Reminder tick failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				log.Debug("Checking reminders", "next_check", now.Add(cfg.ReminderInterval).Format("15:04:05"))
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	log.Info("Reminder worker stopped")
}

