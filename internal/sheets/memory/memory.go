// Package memory is an in-process ledger mirror for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"lawdesk/internal/sheets"
)

var _ sheets.LedgerMirror = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	rows    map[int64]sheets.LedgerRow
	upserts int
	deletes int
}

func New() *Store {
	return &Store{rows: make(map[int64]sheets.LedgerRow)}
}

// UpsertTransaction replaces the row for the transaction.
func (s *Store) UpsertTransaction(_ context.Context, row sheets.LedgerRow) (string, error) {
	if row.TransactionID <= 0 {
		return "", errors.New("ledger row without transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.TransactionID] = row
	s.upserts++
	return fmt.Sprintf("mem:%d", row.TransactionID), nil
}

// DeleteTransaction removes the row. Missing rows are not an error.
func (s *Store) DeleteTransaction(_ context.Context, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, txID)
	s.deletes++
	return nil
}

// Row returns the mirrored row for a transaction.
func (s *Store) Row(txID int64) (sheets.LedgerRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[txID]
	return r, ok
}

// Rows returns every mirrored row ordered by transaction ID.
func (s *Store) Rows() []sheets.LedgerRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.LedgerRow, 0, len(s.rows))
	for _, id := range slices.Sorted(maps.Keys(s.rows)) {
		out = append(out, s.rows[id])
	}
	return out
}

// Writes reports how many upserts and deletes were applied.
func (s *Store) Writes() (upserts, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts, s.deletes
}
