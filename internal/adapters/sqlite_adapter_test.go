package adapters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/ledger"
	"lawdesk/internal/storage"
)

func newService(t *testing.T) (*ledger.Service, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	svc := ledger.NewService(NewLedgerStore(repo), auth.DefaultPolicy(), ledger.Config{
		ScheduleCheck: ledger.ScheduleCheckReject,
		Now:           func() time.Time { return time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC) },
	})
	return svc, repo
}

func lawyerCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: 1, Role: core.RoleLawyer, Active: true})
}

func TestLedgerOnSQLite(t *testing.T) {
	svc, repo := newService(t)
	ctx := lawyerCtx()

	amount := core.Money{Cents: 90000}
	view, err := svc.CreateTransaction(ctx, ledger.NewTransaction{
		Type:     core.Income,
		Category: "case_fee",
		Amount:   &amount,
		Installments: []ledger.ScheduleEntry{
			{Amount: core.Money{Cents: 30000}, DueDate: core.NewDate(2025, 6, 1)},
			{Amount: core.Money{Cents: 30000}, DueDate: core.NewDate(2025, 7, 1)},
			{Amount: core.Money{Cents: 30000}, DueDate: core.NewDate(2025, 8, 1)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !view.Installments[0].IsOverdue {
		t.Fatalf("expected first installment to be derived overdue")
	}

	if _, err := svc.RecordInstallmentPayment(ctx, view.ID, view.Installments[0].ID, ledger.InstallmentUpdate{Status: core.InstPaid}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetTransaction(ctx, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != core.TxPartial || got.PaidAmount.Cents != 30000 || got.RemainingAmount.Cents != 60000 {
		t.Fatalf("unexpected reconciliation %s %d %d", got.Status, got.PaidAmount.Cents, got.RemainingAmount.Cents)
	}

	stats, err := repo.OutboxStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pending != 2 {
		t.Fatalf("expected an outbox row per mutation, got %+v", stats)
	}
}

func TestLedgerRejectRollsBack(t *testing.T) {
	svc, repo := newService(t)
	amount := core.Money{Cents: 1000}
	_, err := svc.CreateTransaction(lawyerCtx(), ledger.NewTransaction{
		Type:         core.Income,
		Category:     "case_fee",
		Amount:       &amount,
		Installments: []ledger.ScheduleEntry{{Amount: core.Money{Cents: 400}, DueDate: core.NewDate(2025, 7, 1)}},
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, total, _ := repo.ListTransactions(context.Background(), core.TransactionFilter{}, core.ListQuery{}); total != 0 {
		t.Fatalf("expected nothing persisted, got %d transactions", total)
	}
	if stats, _ := repo.OutboxStats(context.Background()); stats.Pending != 0 {
		t.Fatalf("expected no outbox rows, got %+v", stats)
	}
}
