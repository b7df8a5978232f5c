package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lawdesk/internal/core"
	applog "lawdesk/internal/log"
	"lawdesk/internal/metrics"
	"lawdesk/internal/sheets"
	"lawdesk/internal/storage"
)

// OutboxStore is the slice of storage the sync processor needs.
// *storage.SQLiteRepository satisfies it.
type OutboxStore interface {
	GetOutboxEntry(ctx context.Context, id int64) (core.OutboxEntry, error)
	DequeueOutboxBatch(ctx context.Context, limit int) ([]core.OutboxEntry, error)
	MarkOutboxSynced(ctx context.Context, id int64) error
	IncrementOutboxAttempt(ctx context.Context, id int64, lastErr string) error
	MarkOutboxFailed(ctx context.Context, id int64, lastErr string) error
	RetryFailedOutbox(ctx context.Context) (int64, error)
	CleanupSyncedOutbox(ctx context.Context, cutoff time.Time) (int64, error)
	OutboxStats(ctx context.Context) (storage.OutboxStats, error)

	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	PaidAmounts(ctx context.Context, txIDs []int64) (map[int64]core.Money, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending entries (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of entries to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before an entry is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often synced entries are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old synced entries must be before purge (default: 24h)
	CleanupAge time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor drains the ledger outbox into a LedgerMirror. It is the
// safety net behind the AMQP path: every ledger mutation leaves a pending
// outbox row, and whichever of the two paths gets there first marks it synced.
type SyncProcessor struct {
	store  OutboxStore
	mirror sheets.LedgerMirror
	config SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(store OutboxStore, mirror sheets.LedgerMirror, config SyncProcessorConfig) *SyncProcessor {
	def := DefaultSyncProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.CleanupAge <= 0 {
		config.CleanupAge = def.CleanupAge
	}
	return &SyncProcessor{
		store:  store,
		mirror: mirror,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"max_retries", p.config.MaxRetries)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process immediately on startup
	p.ProcessPending(ctx, p.config.BatchSize)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessPending(ctx, p.config.BatchSize)
		case <-cleanupTicker.C:
			p.cleanupSynced(ctx)
		}
	}
}

// BatchResult summarizes one pass over pending outbox entries.
type BatchResult struct {
	Total  int
	Synced int
	Errors int
}

// ProcessPending mirrors up to limit pending entries, oldest first.
func (p *SyncProcessor) ProcessPending(ctx context.Context, limit int) BatchResult {
	var res BatchResult
	entries, err := p.store.DequeueOutboxBatch(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue outbox batch", "error", err)
		return res
	}
	if len(entries) == 0 {
		return res
	}

	slog.DebugContext(ctx, "Processing outbox batch", "count", len(entries))

	for _, entry := range entries {
		select {
		case <-p.stopCh:
			return res
		case <-ctx.Done():
			return res
		default:
		}

		res.Total++
		if err := p.process(ctx, entry); err != nil {
			res.Errors++
			continue
		}
		res.Synced++
	}
	return res
}

// ProcessEntry mirrors one outbox entry by id. Entries that are no longer
// pending are skipped: another path already delivered them, or they await a
// manual retry.
func (p *SyncProcessor) ProcessEntry(ctx context.Context, id int64) error {
	entry, err := p.store.GetOutboxEntry(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.DebugContext(ctx, "Outbox entry already purged", "outbox_id", id)
			return nil
		}
		return fmt.Errorf("get outbox entry %d: %w", id, err)
	}
	if entry.Status != core.OutboxPending {
		slog.DebugContext(ctx, "Outbox entry not pending, skipping",
			"outbox_id", id, "status", entry.Status)
		return nil
	}
	return p.process(ctx, entry)
}

func (p *SyncProcessor) process(ctx context.Context, entry core.OutboxEntry) error {
	if err := p.Mirror(ctx, entry.EventType, entry.TransactionID); err != nil {
		p.handleFailure(ctx, entry, err)
		return err
	}
	p.handleSuccess(ctx, entry)
	return nil
}

// Mirror brings the mirror row for txID up to date. An upsert for a
// transaction that no longer exists becomes a delete, so replaying old
// events converges on the current ledger.
func (p *SyncProcessor) Mirror(ctx context.Context, eventType core.LedgerEventType, txID int64) error {
	if p.mirror == nil {
		return fmt.Errorf("no ledger mirror configured")
	}

	switch eventType {
	case core.TransactionDeleted:
		return p.deleteRow(ctx, txID)
	case core.TransactionUpserted:
		t, err := p.store.GetTransaction(ctx, txID)
		if errors.Is(err, core.ErrNotFound) {
			return p.deleteRow(ctx, txID)
		}
		if err != nil {
			return fmt.Errorf("get transaction %d: %w", txID, err)
		}
		paid, err := p.store.PaidAmounts(ctx, []int64{txID})
		if err != nil {
			return fmt.Errorf("paid amount %d: %w", txID, err)
		}
		ref, err := p.mirror.UpsertTransaction(ctx, sheets.NewLedgerRow(t, paid[txID]))
		if err != nil {
			return fmt.Errorf("upsert mirror row: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored transaction",
			"transaction_id", txID,
			"mirror_ref", ref,
			"amount_cents", t.Amount.Cents)
		return nil
	default:
		return fmt.Errorf("unknown ledger event type: %s", eventType)
	}
}

func (p *SyncProcessor) deleteRow(ctx context.Context, txID int64) error {
	if err := p.mirror.DeleteTransaction(ctx, txID); err != nil {
		return fmt.Errorf("delete mirror row: %w", err)
	}
	slog.InfoContext(ctx, "Removed transaction from mirror", "transaction_id", txID)
	return nil
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, entry core.OutboxEntry) {
	metrics.OutboxProcessed.WithLabelValues("synced").Inc()
	if err := p.store.MarkOutboxSynced(ctx, entry.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark outbox entry synced",
			"outbox_id", entry.ID, "error", err)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogOutboxDelivered(ctx, entry.ID, entry.TransactionID, string(entry.EventType), "outbox")
}

func (p *SyncProcessor) handleFailure(ctx context.Context, entry core.OutboxEntry, processErr error) {
	slog.WarnContext(ctx, "Outbox entry mirroring failed",
		"outbox_id", entry.ID,
		"event_type", entry.EventType,
		"attempt", entry.Attempts+1,
		"error", processErr)

	if entry.Attempts+1 >= p.config.MaxRetries {
		metrics.OutboxProcessed.WithLabelValues("failed").Inc()
		if err := p.store.MarkOutboxFailed(ctx, entry.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark outbox entry failed",
				"outbox_id", entry.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Outbox entry failed permanently after max retries",
			"outbox_id", entry.ID,
			"transaction_id", entry.TransactionID,
			"attempts", entry.Attempts+1)
		return
	}

	metrics.OutboxProcessed.WithLabelValues("retry").Inc()
	if err := p.store.IncrementOutboxAttempt(ctx, entry.ID, processErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to increment outbox attempt",
			"outbox_id", entry.ID, "error", err)
	}
}

func (p *SyncProcessor) cleanupSynced(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupAge)
	n, err := p.store.CleanupSyncedOutbox(ctx, cutoff)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup synced outbox entries", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged synced outbox entries", "count", n)
	}
}

// Stats returns current outbox statistics
func (p *SyncProcessor) Stats(ctx context.Context) (storage.OutboxStats, error) {
	return p.store.OutboxStats(ctx)
}

// RetryFailed moves failed entries back to pending.
func (p *SyncProcessor) RetryFailed(ctx context.Context) (int64, error) {
	return p.store.RetryFailedOutbox(ctx)
}
