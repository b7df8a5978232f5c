package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"lawdesk/internal/adapters"
	"lawdesk/internal/amqp"
	"lawdesk/internal/auth"
	"lawdesk/internal/backend"
	"lawdesk/internal/backup"
	"lawdesk/internal/cache"
	"lawdesk/internal/cli"
	"lawdesk/internal/core"
	apphttp "lawdesk/internal/http"
	"lawdesk/internal/ledger"
	applog "lawdesk/internal/log"
	"lawdesk/internal/notify"
	"lawdesk/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	log := logger.Slog()

	log.Info("Starting lawdesk", "port", cfg.Port, "db", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(log, cfg.SQLiteDBPath)
	defer repo.Close()

	policy := auth.DefaultPolicy()
	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	users := services.NewUserService(repo, policy, jwt)

	if cfg.AdminPassword != "" {
		created, err := users.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Error("Failed to ensure admin user", "error", err)
			os.Exit(1)
		}
		if created {
			log.Info("Initial administrator created", "email", cfg.AdminEmail)
		}
	}

	// Ledger writes flush every cache derived from ledger data.
	caches := cache.NewManager()
	statsCache := cache.NewTTLCache[core.DashboardStats](cfg.DashboardCacheTTL, 2*cfg.DashboardCacheTTL)
	reportCache := cache.NewTTLCache[core.FinancialReport](cfg.DashboardCacheTTL, 2*cfg.DashboardCacheTTL)
	caches.Register(statsCache)
	caches.Register(reportCache)

	var (
		publisher  ledger.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.Warn("Failed to initialize AMQP client, ledger events stay in the outbox", "error", err)
		} else {
			amqpClient = c
			publisher = c
			log.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		log.Info("AMQP disabled - outbox is drained by the in-process sync processor")
	}

	scheduleCheck, err := ledger.ParseScheduleCheck(cfg.ScheduleSumCheck)
	if err != nil {
		log.Error("Invalid schedule sum check", "error", err)
		os.Exit(1)
	}
	ledgerSvc := ledger.NewService(adapters.NewLedgerStore(repo), policy, ledger.Config{
		ScheduleCheck: scheduleCheck,
		Publisher:     publisher,
		Invalidator:   caches,
		Reports:       reportCache,
	})

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		log.Error("Invalid mirror configuration", "error", err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger.WithComponent(applog.ComponentMirror).Slog()).CreateMirror(context.Background(), mirrorCfg)
	if err != nil {
		log.Error("Failed to create ledger mirror", "error", err)
		os.Exit(1)
	}

	syncCfg := services.DefaultSyncProcessorConfig()
	syncCfg.BatchSize = cfg.SyncBatchSize
	syncCfg.PollInterval = cfg.SyncInterval
	syncCfg.MaxRetries = cfg.SyncMaxRetries
	processor := services.NewSyncProcessor(repo, mirror.Mirror, syncCfg)

	notifier := notify.New(notify.Config{
		Provider: cfg.Notifier,
		Domain:   cfg.MailgunDomain,
		APIKey:   cfg.MailgunAPIKey,
		From:     cfg.NotifyFrom,
		To:       cfg.NotifyTo,
	}, logger.WithComponent(applog.ComponentNotify).Slog())
	reminders := services.NewReminderService(repo, notifier)

	backups := backup.NewJob(backup.Config{
		DBPath: cfg.SQLiteDBPath,
		Dir:    cfg.BackupDir,
		Keep:   cfg.BackupKeep,
	}, repo)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		CORSOrigins:    cfg.CORSOrigins,
		ItemsPerPage:   cfg.ItemsPerPage,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustProxy:     cfg.TrustProxy,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, apphttp.Deps{
		Repo:     repo,
		Policy:   policy,
		JWT:      jwt,
		Users:    users,
		Clients:  services.NewClientService(repo, policy),
		Cases:    services.NewCaseService(repo, policy),
		Ledger:   ledgerSvc,
		Leads:    services.NewLeadService(repo, policy),
		Calendar: services.NewCalendarService(repo, policy),
		Documents: services.NewDocumentService(repo, policy, services.DocumentConfig{
			Dir:               cfg.UploadDir,
			MaxBytes:          cfg.MaxUploadBytes,
			AllowedExtensions: cfg.AllowedExtensions,
			MaxImageDimension: cfg.MaxImageDimension,
		}),
		Templates: services.NewTemplateService(repo, policy),
		Dashboard: services.NewDashboardService(repo, policy, statsCache),
		Backups:   backups,
		Logger:    logger,
	})

	ctx, done := cli.GracefulShutdown(log, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		if err := processor.Stop(ctx); err != nil {
			log.Error("Sync processor shutdown error", "error", err)
		}
		if mirror.Cleanup != nil {
			if err := mirror.Cleanup(); err != nil {
				log.Error("Mirror cleanup error", "error", err)
			}
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
	})

	if err := processor.Start(ctx); err != nil {
		log.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}
	go backups.Schedule(ctx, cfg.BackupInterval)
	go runReminders(ctx, reminders, cfg.ReminderInterval, logger.WithComponent(applog.ComponentReminder))

	log.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	log.Info("Server stopped gracefully")
}

func runReminders(ctx context.Context, reminders *services.ReminderService, interval time.Duration, logger *applog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := reminders.Tick(ctx); err != nil {
			logger.ErrorContext(ctx, "Reminder tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
