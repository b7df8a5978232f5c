package ledger

import (
	"context"
	"maps"
	"slices"
	"sync"

	"lawdesk/internal/core"
)

// memStore is an in-memory Store. WithTx serializes callers and restores the
// previous state when fn fails.
type memStore struct {
	mu     sync.Mutex
	txs    map[int64]core.Transaction
	insts  map[int64]core.Installment
	outbox []core.LedgerEventType
	nextID int64

	failInsertAt int // fail the n-th InsertInstallment call, 0 disables
	inserts      int
}

func newMemStore() *memStore {
	return &memStore{
		txs:   make(map[int64]core.Transaction),
		insts: make(map[int64]core.Installment),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs, insts, outbox, next := maps.Clone(m.txs), maps.Clone(m.insts), slices.Clone(m.outbox), m.nextID
	if err := fn(m); err != nil {
		m.txs, m.insts, m.outbox, m.nextID = txs, insts, outbox, next
		return err
	}
	return nil
}

func (m *memStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	return t, nil
}

func (m *memStore) ListTransactions(ctx context.Context, f core.TransactionFilter, q core.ListQuery) ([]core.Transaction, int, error) {
	var out []core.Transaction
	for _, t := range m.txs {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b core.Transaction) int { return int(a.ID - b.ID) })
	return out, len(out), nil
}

func (m *memStore) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = m.id()
	m.txs[t.ID] = t
	return t, nil
}

func (m *memStore) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	m.txs[t.ID] = t
	return nil
}

func (m *memStore) SetTransactionStatus(ctx context.Context, id int64, status core.TransactionStatus) error {
	t := m.txs[id]
	t.Status = status
	m.txs[id] = t
	return nil
}

func (m *memStore) DeleteTransaction(ctx context.Context, id int64) error {
	delete(m.txs, id)
	for k, in := range m.insts {
		if in.TransactionID == id {
			delete(m.insts, k)
		}
	}
	return nil
}

func (m *memStore) ListInstallments(ctx context.Context, txID int64) ([]core.Installment, error) {
	var out []core.Installment
	for _, in := range m.insts {
		if in.TransactionID == txID {
			out = append(out, in)
		}
	}
	slices.SortFunc(out, func(a, b core.Installment) int { return a.Number - b.Number })
	return out, nil
}

func (m *memStore) GetInstallment(ctx context.Context, txID, instID int64) (core.Installment, error) {
	in, ok := m.insts[instID]
	if !ok || in.TransactionID != txID {
		return core.Installment{}, core.NotFound("installment", instID)
	}
	return in, nil
}

func (m *memStore) InsertInstallment(ctx context.Context, in core.Installment) (core.Installment, error) {
	m.inserts++
	if m.failInsertAt > 0 && m.inserts == m.failInsertAt {
		return core.Installment{}, errBoom
	}
	in.ID = m.id()
	m.insts[in.ID] = in
	return in, nil
}

func (m *memStore) UpdateInstallment(ctx context.Context, in core.Installment) error {
	m.insts[in.ID] = in
	return nil
}

func (m *memStore) PaidAmounts(ctx context.Context, ids []int64) (map[int64]core.Money, error) {
	out := make(map[int64]core.Money)
	for _, in := range m.insts {
		if in.Status == core.InstPaid && slices.Contains(ids, in.TransactionID) {
			out[in.TransactionID] = out[in.TransactionID].Add(in.Amount)
		}
	}
	return out, nil
}

func (m *memStore) ListOverdueInstallments(ctx context.Context, asOf core.Date) ([]core.Installment, error) {
	var out []core.Installment
	for _, in := range m.insts {
		if in.Status != core.InstPaid && in.DueDate.Before(asOf) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memStore) matches(t core.Transaction, q core.AmountQuery) bool {
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.Start != nil && t.Date.Before(*q.Start) {
		return false
	}
	if q.End != nil && q.End.Before(t.Date) {
		return false
	}
	return true
}

func (m *memStore) SumTransactions(ctx context.Context, q core.AmountQuery) (core.Money, error) {
	var total core.Money
	for _, t := range m.txs {
		if m.matches(t, q) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func (m *memStore) SumTransactionsByCategory(ctx context.Context, q core.AmountQuery) ([]core.CategoryAmount, error) {
	sums := make(map[string]core.Money)
	for _, t := range m.txs {
		if m.matches(t, q) {
			sums[t.Category] = sums[t.Category].Add(t.Amount)
		}
	}
	var out []core.CategoryAmount
	for _, c := range slices.Sorted(maps.Keys(sums)) {
		out = append(out, core.CategoryAmount{Category: c, Amount: sums[c]})
	}
	return out, nil
}

func (m *memStore) GetClient(ctx context.Context, id int64) (core.Client, error) {
	return core.Client{ID: id}, nil
}

func (m *memStore) GetCase(ctx context.Context, id int64) (core.Case, error) {
	return core.Case{ID: id}, nil
}

func (m *memStore) EnqueueLedgerEvent(ctx context.Context, eventType core.LedgerEventType, txID int64) (int64, error) {
	m.outbox = append(m.outbox, eventType)
	return int64(len(m.outbox)), nil
}

type recordingPublisher struct {
	events []core.LedgerEvent
}

func (p *recordingPublisher) PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	p.events = append(p.events, ev)
	return nil
}
