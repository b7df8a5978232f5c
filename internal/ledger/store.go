package ledger

import (
	"context"

	"lawdesk/internal/core"
)

// Tx is the set of ledger queries. Implementations are bound either to the
// database or to one open transaction.
type Tx interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, f core.TransactionFilter, q core.ListQuery) ([]core.Transaction, int, error)
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	SetTransactionStatus(ctx context.Context, id int64, status core.TransactionStatus) error
	DeleteTransaction(ctx context.Context, id int64) error

	ListInstallments(ctx context.Context, txID int64) ([]core.Installment, error)
	GetInstallment(ctx context.Context, txID, instID int64) (core.Installment, error)
	InsertInstallment(ctx context.Context, inst core.Installment) (core.Installment, error)
	UpdateInstallment(ctx context.Context, inst core.Installment) error
	PaidAmounts(ctx context.Context, txIDs []int64) (map[int64]core.Money, error)
	ListOverdueInstallments(ctx context.Context, asOf core.Date) ([]core.Installment, error)

	SumTransactions(ctx context.Context, q core.AmountQuery) (core.Money, error)
	SumTransactionsByCategory(ctx context.Context, q core.AmountQuery) ([]core.CategoryAmount, error)

	GetClient(ctx context.Context, id int64) (core.Client, error)
	GetCase(ctx context.Context, id int64) (core.Case, error)

	EnqueueLedgerEvent(ctx context.Context, eventType core.LedgerEventType, txID int64) (int64, error)
}

// Store runs reads directly and writes through WithTx. fn's changes are
// committed only when it returns nil.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// Publisher announces committed ledger changes.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

// Invalidator drops caches derived from ledger data.
type Invalidator interface {
	InvalidateAll()
}
