package adapters

import (
	"context"

	"lawdesk/internal/ledger"
	"lawdesk/internal/storage"
)

// LedgerStore adapts SQLiteRepository to ledger.Store. Reads go through the
// pooled Queries; WithTx binds a fresh Queries to one database transaction.
type LedgerStore struct {
	*storage.Queries
	repo *storage.SQLiteRepository
}

var _ ledger.Store = (*LedgerStore)(nil)

func NewLedgerStore(repo *storage.SQLiteRepository) *LedgerStore {
	return &LedgerStore{Queries: repo.Queries, repo: repo}
}

// WithTx implements ledger.Store.
func (s *LedgerStore) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	return s.repo.InTx(ctx, func(q *storage.Queries) error {
		return fn(q)
	})
}
