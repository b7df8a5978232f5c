package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"lawdesk/internal/backup"
	"lawdesk/internal/cli"
	applog "lawdesk/internal/log"
	"lawdesk/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single backup and exit")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentBackup)
	log := logger.Slog()

	repo := cli.InitSQLite(log, cfg.SQLiteDBPath)
	defer repo.Close()

	job := backup.NewJob(backup.Config{
		DBPath: cfg.SQLiteDBPath,
		Dir:    cfg.BackupDir,
		Keep:   cfg.BackupKeep,
	}, repo)

	if *once {
		if !runOnce(job, repo, log) {
			os.Exit(1)
		}
		return
	}

	log.Info("Starting backup-worker", "interval", cfg.BackupInterval, "dir", cfg.BackupDir, "keep", cfg.BackupKeep)
	ctx, done := cli.GracefulShutdown(log, 30*time.Second, nil)
	go job.Schedule(ctx, cfg.BackupInterval)

	cli.WaitForShutdown(ctx, done)
	log.Info("Backup worker stopped")
}

func runOnce(job *backup.Job, repo *storage.SQLiteRepository, log *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	res, err := job.Run(ctx)
	if err != nil {
		log.Error("Backup failed", "error", err, "db", repo.Path())
		return false
	}
	if res.Skipped {
		log.Info("Database file not found, nothing to back up", "db", repo.Path())
		return true
	}
	log.Info("Backup complete", "path", res.Path, "size", res.Size, "removed", len(res.Removed))
	return true
}
