package worker

import (
	"context"
	"path/filepath"
	"testing"

	"lawdesk/internal/amqp"
	"lawdesk/internal/core"
	"lawdesk/internal/services"
	"lawdesk/internal/sheets/memory"
	"lawdesk/internal/storage"
)

func setup(t *testing.T) (*storage.SQLiteRepository, *memory.Store, *LedgerSyncWorker) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "lawdesk.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	mirror := memory.New()
	processor := services.NewSyncProcessor(repo, mirror, services.DefaultSyncProcessorConfig())
	return repo, mirror, NewLedgerSyncWorker(processor, 2)
}

func insertTx(t *testing.T, repo *storage.SQLiteRepository) (core.Transaction, int64) {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.InsertTransaction(ctx, core.Transaction{
		Type: core.Expense, Category: "court_expense", Amount: core.Money{Cents: 2500},
		Currency: "TRY", Date: core.NewDate(2025, 3, 3), Status: core.TxPaid,
	})
	if err != nil {
		t.Fatal(err)
	}
	id, err := repo.EnqueueLedgerEvent(ctx, core.TransactionUpserted, tx.ID)
	if err != nil {
		t.Fatal(err)
	}
	return tx, id
}

func TestHandleLedgerEventMarksOutboxSynced(t *testing.T) {
	repo, mirror, w := setup(t)
	ctx := context.Background()
	tx, outboxID := insertTx(t, repo)

	msg := &amqp.LedgerEventMessage{OutboxID: outboxID, Type: core.TransactionUpserted, TransactionID: tx.ID}
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatal(err)
	}

	row, ok := mirror.Row(tx.ID)
	if !ok || row.Category != "court_expense" {
		t.Fatalf("expected mirrored row, got %+v (%v)", row, ok)
	}
	entry, err := repo.GetOutboxEntry(ctx, outboxID)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != core.OutboxSynced {
		t.Fatalf("expected synced outbox entry, got %s", entry.Status)
	}

	// Redelivery is a no-op.
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if upserts, _ := mirror.Writes(); upserts != 1 {
		t.Fatalf("expected one mirror write after redelivery, got %d", upserts)
	}
}

func TestHandleLedgerEventWithoutOutbox(t *testing.T) {
	repo, mirror, w := setup(t)
	tx, _ := insertTx(t, repo)

	msg := &amqp.LedgerEventMessage{Type: core.TransactionDeleted, TransactionID: tx.ID}
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if _, deletes := mirror.Writes(); deletes != 1 {
		t.Fatalf("expected direct delete, got %d deletes", deletes)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	repo, mirror, w := setup(t)
	ctx := context.Background()
	for range 3 {
		insertTx(t, repo)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if got := len(mirror.Rows()); got != 3 {
		t.Fatalf("expected 3 mirrored rows, got %d", got)
	}
	stats, _ := repo.OutboxStats(ctx)
	if stats.Pending != 0 {
		t.Fatalf("expected empty outbox, got %+v", stats)
	}

	// Nothing pending is not an error.
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
}
