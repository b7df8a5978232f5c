package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lawdesk/internal/core"
	"lawdesk/internal/sheets"
	"lawdesk/internal/sheets/memory"
	"lawdesk/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "lawdesk.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTransaction(t *testing.T, repo *storage.SQLiteRepository, cents int64) core.Transaction {
	t.Helper()
	tx, err := repo.InsertTransaction(context.Background(), core.Transaction{
		Type: core.Income, Category: "case_fee", Amount: core.Money{Cents: cents},
		Currency: "TRY", Date: core.NewDate(2025, 6, 1), Status: core.TxPending,
	})
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	return tx
}

func enqueue(t *testing.T, repo *storage.SQLiteRepository, typ core.LedgerEventType, txID int64) int64 {
	t.Helper()
	id, err := repo.EnqueueLedgerEvent(context.Background(), typ, txID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return id
}

// flakyMirror fails the first n writes.
type flakyMirror struct {
	*memory.Store
	fails int
}

func (m *flakyMirror) UpsertTransaction(ctx context.Context, row sheets.LedgerRow) (string, error) {
	if m.fails > 0 {
		m.fails--
		return "", errors.New("sheets unavailable")
	}
	return m.Store.UpsertTransaction(ctx, row)
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
	if config.CleanupInterval != 1*time.Hour {
		t.Errorf("expected CleanupInterval 1h, got %v", config.CleanupInterval)
	}
	if config.CleanupAge != 24*time.Hour {
		t.Errorf("expected CleanupAge 24h, got %v", config.CleanupAge)
	}
}

func TestNewSyncProcessorFillsZeroConfig(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, SyncProcessorConfig{BatchSize: 25})

	if processor.config.BatchSize != 25 {
		t.Errorf("expected explicit BatchSize to be kept, got %d", processor.config.BatchSize)
	}
	if processor.config.PollInterval != 10*time.Second || processor.config.MaxRetries != 3 {
		t.Errorf("expected defaults for zero fields, got %+v", processor.config)
	}
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if processor.IsRunning() {
		t.Fatal("processor should not be running initially")
	}

	// Simulate a running loop without touching storage.
	processor.mu.Lock()
	processor.running = true
	processor.mu.Unlock()

	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle processor should be a no-op, got %v", err)
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	repo := newTestRepo(t)
	mirror := memory.New()
	tx := seedTransaction(t, repo, 1500)
	enqueue(t, repo, core.TransactionUpserted, tx.ID)

	config := DefaultSyncProcessorConfig()
	config.PollInterval = 20 * time.Millisecond
	processor := NewSyncProcessor(repo, mirror, config)

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := mirror.Row(tx.ID); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("processor never mirrored the pending entry")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestProcessPendingMirrorsUpsertsAndDeletes(t *testing.T) {
	repo := newTestRepo(t)
	mirror := memory.New()
	ctx := context.Background()

	kept := seedTransaction(t, repo, 120000)
	gone := seedTransaction(t, repo, 5000)
	if _, err := repo.InsertInstallment(ctx, core.Installment{
		TransactionID: kept.ID, Number: 1, Amount: core.Money{Cents: 40000},
		DueDate: core.NewDate(2025, 7, 1), Status: core.InstPaid,
	}); err != nil {
		t.Fatal(err)
	}

	enqueue(t, repo, core.TransactionUpserted, kept.ID)
	enqueue(t, repo, core.TransactionUpserted, gone.ID)
	if err := repo.DeleteTransaction(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}
	enqueue(t, repo, core.TransactionDeleted, gone.ID)

	processor := NewSyncProcessor(repo, mirror, DefaultSyncProcessorConfig())
	res := processor.ProcessPending(ctx, 10)
	if res.Total != 3 || res.Synced != 3 || res.Errors != 0 {
		t.Fatalf("unexpected batch result %+v", res)
	}

	row, ok := mirror.Row(kept.ID)
	if !ok {
		t.Fatal("expected mirrored row for kept transaction")
	}
	if row.Paid.Cents != 40000 || row.Remaining.Cents != 80000 {
		t.Errorf("expected paid 400.00 remaining 800.00, got %s %s", row.Paid, row.Remaining)
	}
	if _, ok := mirror.Row(gone.ID); ok {
		t.Error("deleted transaction must not stay mirrored")
	}

	stats, err := processor.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pending != 0 || stats.Synced != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestProcessPendingRetriesThenFails(t *testing.T) {
	repo := newTestRepo(t)
	mirror := &flakyMirror{Store: memory.New(), fails: 10}
	ctx := context.Background()

	tx := seedTransaction(t, repo, 100)
	id := enqueue(t, repo, core.TransactionUpserted, tx.ID)

	config := DefaultSyncProcessorConfig()
	config.MaxRetries = 2
	processor := NewSyncProcessor(repo, mirror, config)

	processor.ProcessPending(ctx, 10)
	entry, _ := repo.GetOutboxEntry(ctx, id)
	if entry.Status != core.OutboxPending || entry.Attempts != 1 || entry.LastError == "" {
		t.Fatalf("expected pending entry with one attempt, got %+v", entry)
	}

	processor.ProcessPending(ctx, 10)
	entry, _ = repo.GetOutboxEntry(ctx, id)
	if entry.Status != core.OutboxFailed || entry.Attempts != 2 {
		t.Fatalf("expected failed entry after max retries, got %+v", entry)
	}

	// Failed entries stay out of the poll until retried.
	if res := processor.ProcessPending(ctx, 10); res.Total != 0 {
		t.Fatalf("failed entry should not be dequeued, got %+v", res)
	}

	mirror.fails = 0
	n, err := processor.RetryFailed(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one entry retried, got %d (%v)", n, err)
	}
	if res := processor.ProcessPending(ctx, 10); res.Synced != 1 {
		t.Fatalf("expected retried entry to sync, got %+v", res)
	}
}

func TestProcessEntrySkipsNonPending(t *testing.T) {
	repo := newTestRepo(t)
	mirror := memory.New()
	ctx := context.Background()

	tx := seedTransaction(t, repo, 100)
	id := enqueue(t, repo, core.TransactionUpserted, tx.ID)
	processor := NewSyncProcessor(repo, mirror, DefaultSyncProcessorConfig())

	if err := processor.ProcessEntry(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := processor.ProcessEntry(ctx, id); err != nil {
		t.Fatal(err)
	}
	if upserts, _ := mirror.Writes(); upserts != 1 {
		t.Fatalf("expected a single mirror write, got %d", upserts)
	}
	if err := processor.ProcessEntry(ctx, 9999); err != nil {
		t.Fatalf("purged entries should be ignored, got %v", err)
	}
}

func TestMirrorRejectsUnknownEvent(t *testing.T) {
	processor := NewSyncProcessor(newTestRepo(t), memory.New(), DefaultSyncProcessorConfig())
	if err := processor.Mirror(context.Background(), "transaction.archived", 1); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
