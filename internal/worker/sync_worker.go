package worker

import (
	"context"
	"fmt"
	"log/slog"

	"lawdesk/internal/amqp"
	"lawdesk/internal/services"
)

// LedgerSyncWorker mirrors ledger events delivered over AMQP. Delivery state
// lives in the outbox, so the poller and this worker can run side by side.
type LedgerSyncWorker struct {
	processor *services.SyncProcessor
	batchSize int
}

func NewLedgerSyncWorker(processor *services.SyncProcessor, batchSize int) *LedgerSyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &LedgerSyncWorker{
		processor: processor,
		batchSize: batchSize,
	}
}

// HandleLedgerEvent processes a single ledger event message from AMQP.
// Messages without an outbox id are mirrored directly.
func (w *LedgerSyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"outbox_id", msg.OutboxID,
		"type", msg.Type,
		"transaction_id", msg.TransactionID)

	if msg.OutboxID == 0 {
		if err := w.processor.Mirror(ctx, msg.Type, msg.TransactionID); err != nil {
			return fmt.Errorf("mirror transaction %d: %w", msg.TransactionID, err)
		}
		return nil
	}

	if err := w.processor.ProcessEntry(ctx, msg.OutboxID); err != nil {
		return fmt.Errorf("process outbox entry %d: %w", msg.OutboxID, err)
	}
	return nil
}

// StartupSyncCheck drains pending outbox entries at worker startup to recover
// from missed AMQP messages or worker downtime.
func (w *LedgerSyncWorker) StartupSyncCheck(ctx context.Context) error {
	stats, err := w.processor.Stats(ctx)
	if err != nil {
		return fmt.Errorf("outbox stats for startup check: %w", err)
	}

	if stats.Pending == 0 {
		slog.InfoContext(ctx, "No pending ledger events found on startup",
			"failed", stats.Failed)
		return nil
	}

	slog.InfoContext(ctx, "Found pending ledger events on startup, processing...",
		"count", stats.Pending)

	res := w.processor.ProcessPending(ctx, w.batchSize*5)

	slog.InfoContext(ctx, "Startup sync completed",
		"total", res.Total,
		"synced", res.Synced,
		"errors", res.Errors)

	return nil
}
