package main

import (
	"context"
	"errors"
	"os"
	"time"

	"lawdesk/internal/amqp"
	"lawdesk/internal/backend"
	"lawdesk/internal/cli"
	applog "lawdesk/internal/log"
	"lawdesk/internal/services"
	"lawdesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	log := logger.Slog()

	log.Info("Starting ledger-sync-worker", "mirror", cfg.MirrorBackend)

	repo := cli.InitSQLite(log, cfg.SQLiteDBPath)
	defer repo.Close()

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
	syncWorker := worker.NewLedgerSyncWorker(processor, cfg.SyncBatchSize)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			log.Warn("Failed to initialize AMQP client, falling back to outbox polling only", "error", err)
			amqpClient = nil
		}
	} else {
		log.Info("AMQP disabled - polling the outbox only")
	}

	ctx, done := cli.GracefulShutdown(log, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			log.Error("Sync processor shutdown error", "error", err)
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
		if mirror.Cleanup != nil {
			if err := mirror.Cleanup(); err != nil {
				log.Error("Mirror cleanup error", "error", err)
			}
		}
	})

	// Recover anything left pending while the worker was down.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		log.Error("Failed startup sync check", "error", err)
	}

	if err := processor.Start(ctx); err != nil {
		log.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Message consumption failed", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	log.Info("Ledger sync worker stopped")
}
