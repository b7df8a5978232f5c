package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/cache"
	"lawdesk/internal/core"
	"lawdesk/internal/metrics"
)

type (
	Config struct {
		ScheduleCheck ScheduleCheck
		Publisher     Publisher
		Invalidator   Invalidator
		Reports       cache.Cache[core.FinancialReport]
		Now           func() time.Time
	}

	// Service orchestrates ledger operations. Every mutation runs in one
	// storage transaction and writes an outbox row before commit; the AMQP
	// publish after commit is best effort.
	Service struct {
		store         Store
		policy        *auth.Policy
		scheduleCheck ScheduleCheck
		publisher     Publisher
		invalidator   Invalidator
		reports       cache.Cache[core.FinancialReport]
		now           func() time.Time
	}

	// TransactionView is a transaction with its derived amounts.
	TransactionView struct {
		core.Transaction
		PaidAmount       core.Money         `json:"paid_amount"`
		RemainingAmount  core.Money         `json:"remaining_amount"`
		InstallmentCount int                `json:"installment_count"`
		Installments     []core.Installment `json:"installments,omitempty"`
	}

	NewTransaction struct {
		Type          core.TransactionType   `json:"transaction_type"`
		Category      string                 `json:"category"`
		Amount        *core.Money            `json:"amount"`
		Currency      string                 `json:"currency"`
		Date          *core.Date             `json:"date"`
		Description   string                 `json:"description"`
		PaymentMethod string                 `json:"payment_method"`
		ClientID      *int64                 `json:"client_id"`
		CaseID        *int64                 `json:"case_id"`
		Status        core.TransactionStatus `json:"status"`
		ReceiptNo     string                 `json:"receipt_no"`
		Installments  []ScheduleEntry        `json:"installments"`
		Plan          *InstallmentPlan       `json:"plan"`
	}

	TransactionPatch struct {
		Type          *core.TransactionType   `json:"transaction_type"`
		Category      *string                 `json:"category"`
		Amount        *core.Money             `json:"amount"`
		Currency      *string                 `json:"currency"`
		Date          *core.Date              `json:"date"`
		Description   *string                 `json:"description"`
		PaymentMethod *string                 `json:"payment_method"`
		ClientID      *int64                  `json:"client_id"`
		CaseID        *int64                  `json:"case_id"`
		Status        *core.TransactionStatus `json:"status"`
		ReceiptNo     *string                 `json:"receipt_no"`
	}

	TransactionPage struct {
		Transactions []TransactionView
		Total        int
	}
)

func NewService(store Store, policy *auth.Policy, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ScheduleCheck == "" {
		cfg.ScheduleCheck = ScheduleCheckWarn
	}
	return &Service{
		store:         store,
		policy:        policy,
		scheduleCheck: cfg.ScheduleCheck,
		publisher:     cfg.Publisher,
		invalidator:   cfg.Invalidator,
		reports:       cfg.Reports,
		now:           cfg.Now,
	}
}

func (s *Service) today() core.Date {
	return core.DateOf(s.now())
}

// CreateTransaction inserts a transaction and its optional installment
// schedule atomically.
func (s *Service) CreateTransaction(ctx context.Context, in NewTransaction) (TransactionView, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindTransaction); err != nil {
		return TransactionView{}, err
	}
	if in.Amount == nil {
		return TransactionView{}, core.NewValidationError("amount", "amount is required")
	}

	t := core.Transaction{
		Type:          in.Type,
		Category:      in.Category,
		Amount:        *in.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(in.Currency)),
		Description:   strings.TrimSpace(in.Description),
		PaymentMethod: in.PaymentMethod,
		ClientID:      in.ClientID,
		CaseID:        in.CaseID,
		Status:        in.Status,
		ReceiptNo:     strings.TrimSpace(in.ReceiptNo),
	}
	if t.Currency == "" {
		t.Currency = core.DefaultCurrency
	}
	if t.Status == "" {
		t.Status = core.TxPending
	}
	t.Date = s.today()
	if in.Date != nil && !in.Date.IsZero() {
		t.Date = *in.Date
	}
	if err := t.Validate(); err != nil {
		return TransactionView{}, err
	}
	if in.Plan != nil {
		if len(in.Installments) > 0 {
			return TransactionView{}, core.NewValidationError("plan", "give either installments or plan, not both")
		}
		entries, err := in.Plan.Entries(t.Amount, t.Date)
		if err != nil {
			return TransactionView{}, err
		}
		in.Installments = entries
	}

	var (
		view     TransactionView
		outboxID int64
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := checkReferences(ctx, tx, t.ClientID, t.CaseID); err != nil {
			return err
		}
		created, err := tx.InsertTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		var insts []core.Installment
		if len(in.Installments) > 0 {
			insts, err = s.appendSchedule(ctx, tx, created, nil, in.Installments)
			if err != nil {
				return err
			}
			created.Status = ReconcileStatus(created.Status, insts)
			if created.Status != t.Status {
				if err := tx.SetTransactionStatus(ctx, created.ID, created.Status); err != nil {
					return fmt.Errorf("set transaction status: %w", err)
				}
			}
		}

		if outboxID, err = tx.EnqueueLedgerEvent(ctx, core.TransactionUpserted, created.ID); err != nil {
			return fmt.Errorf("enqueue ledger event: %w", err)
		}
		view = s.buildView(created, insts)
		return nil
	})
	if err != nil {
		return TransactionView{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", view.ID,
		"type", view.Type,
		"category", view.Category,
		"amount_cents", view.Amount.Cents,
		"installments", view.InstallmentCount)
	s.committed(ctx, "create_transaction", core.TransactionUpserted, view.ID, outboxID)
	return view, nil
}

// UpdateTransaction applies a partial update. An explicit status, including
// cancelled, is accepted as given.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, p TransactionPatch) (TransactionView, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindTransaction); err != nil {
		return TransactionView{}, err
	}

	var (
		view     TransactionView
		outboxID int64
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		applyPatch(&t, p)
		if err := t.Validate(); err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, t.ClientID, t.CaseID); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		insts, err := tx.ListInstallments(ctx, id)
		if err != nil {
			return fmt.Errorf("list installments: %w", err)
		}
		if p.Amount != nil && len(insts) > 0 {
			if err := s.checkScheduleSum(ctx, t, insts); err != nil {
				return err
			}
		}
		if outboxID, err = tx.EnqueueLedgerEvent(ctx, core.TransactionUpserted, id); err != nil {
			return fmt.Errorf("enqueue ledger event: %w", err)
		}
		view = s.buildView(t, insts)
		return nil
	})
	if err != nil {
		return TransactionView{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "status", view.Status)
	s.committed(ctx, "update_transaction", core.TransactionUpserted, id, outboxID)
	return view, nil
}

func applyPatch(t *core.Transaction, p TransactionPatch) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Currency != nil {
		t.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.Date != nil && !p.Date.IsZero() {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = *p.PaymentMethod
	}
	if p.ClientID != nil {
		t.ClientID = p.ClientID
	}
	if p.CaseID != nil {
		t.CaseID = p.CaseID
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ReceiptNo != nil {
		t.ReceiptNo = strings.TrimSpace(*p.ReceiptNo)
	}
}

func checkReferences(ctx context.Context, tx Tx, clientID, caseID *int64) error {
	if clientID != nil {
		if _, err := tx.GetClient(ctx, *clientID); err != nil {
			return err
		}
	}
	if caseID != nil {
		if _, err := tx.GetCase(ctx, *caseID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTransaction removes a transaction and, by cascade, its installments.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindTransaction); err != nil {
		return err
	}
	var outboxID int64
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetTransaction(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		var err error
		if outboxID, err = tx.EnqueueLedgerEvent(ctx, core.TransactionDeleted, id); err != nil {
			return fmt.Errorf("enqueue ledger event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	s.committed(ctx, "delete_transaction", core.TransactionDeleted, id, outboxID)
	return nil
}

// GetTransaction returns the transaction with installments and derived amounts.
func (s *Service) GetTransaction(ctx context.Context, id int64) (TransactionView, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return TransactionView{}, err
	}
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return TransactionView{}, err
	}
	insts, err := s.store.ListInstallments(ctx, id)
	if err != nil {
		return TransactionView{}, fmt.Errorf("list installments: %w", err)
	}
	return s.buildView(t, insts), nil
}

// ListTransactions returns one page of transactions with paid and remaining
// amounts. Installments are not included.
func (s *Service) ListTransactions(ctx context.Context, f core.TransactionFilter, q core.ListQuery) (TransactionPage, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return TransactionPage{}, err
	}
	txs, total, err := s.store.ListTransactions(ctx, f, q)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	ids := make([]int64, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	paid, err := s.store.PaidAmounts(ctx, ids)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("paid amounts: %w", err)
	}
	views := make([]TransactionView, len(txs))
	for i, t := range txs {
		views[i] = TransactionView{
			Transaction:     t,
			PaidAmount:      paid[t.ID],
			RemainingAmount: t.Amount.Sub(paid[t.ID]),
		}
	}
	return TransactionPage{Transactions: views, Total: total}, nil
}

func (s *Service) buildView(t core.Transaction, insts []core.Installment) TransactionView {
	MarkOverdue(insts, s.today())
	return TransactionView{
		Transaction:      t,
		PaidAmount:       PaidAmount(insts),
		RemainingAmount:  RemainingAmount(t.Amount, insts),
		InstallmentCount: len(insts),
		Installments:     insts,
	}
}

// ComputePaidAmount sums the paid installments of a transaction.
func (s *Service) ComputePaidAmount(ctx context.Context, txID int64) (core.Money, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return core.Money{}, err
	}
	if _, err := s.store.GetTransaction(ctx, txID); err != nil {
		return core.Money{}, err
	}
	insts, err := s.store.ListInstallments(ctx, txID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list installments: %w", err)
	}
	return PaidAmount(insts), nil
}

// ComputeRemainingAmount is the transaction amount minus what has been paid.
// Overpayment yields a negative value.
func (s *Service) ComputeRemainingAmount(ctx context.Context, txID int64) (core.Money, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return core.Money{}, err
	}
	t, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return core.Money{}, err
	}
	insts, err := s.store.ListInstallments(ctx, txID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list installments: %w", err)
	}
	return RemainingAmount(t.Amount, insts), nil
}

// ListInstallments returns a transaction's installments ordered by number.
func (s *Service) ListInstallments(ctx context.Context, txID int64) ([]core.Installment, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTransaction(ctx, txID); err != nil {
		return nil, err
	}
	insts, err := s.store.ListInstallments(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	MarkOverdue(insts, s.today())
	return insts, nil
}

// ListOverdueInstallments returns every unpaid installment due before asOf.
func (s *Service) ListOverdueInstallments(ctx context.Context, asOf core.Date) ([]core.Installment, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindTransaction); err != nil {
		return nil, err
	}
	insts, err := s.store.ListOverdueInstallments(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("list overdue installments: %w", err)
	}
	MarkOverdue(insts, asOf)
	return insts, nil
}

// CreateInstallmentSchedule appends installments numbered after the existing
// ones. Either all entries are stored or none.
func (s *Service) CreateInstallmentSchedule(ctx context.Context, txID int64, entries []ScheduleEntry) ([]core.Installment, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindTransaction); err != nil {
		return nil, err
	}

	var (
		created  []core.Installment
		outboxID int64
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		existing, err := tx.ListInstallments(ctx, txID)
		if err != nil {
			return fmt.Errorf("list installments: %w", err)
		}
		all, err := s.appendSchedule(ctx, tx, t, existing, entries)
		if err != nil {
			return err
		}
		created = all[len(existing):]

		if status := ReconcileStatus(t.Status, all); status != t.Status {
			if err := tx.SetTransactionStatus(ctx, txID, status); err != nil {
				return fmt.Errorf("set transaction status: %w", err)
			}
		}
		if outboxID, err = tx.EnqueueLedgerEvent(ctx, core.TransactionUpserted, txID); err != nil {
			return fmt.Errorf("enqueue ledger event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Installment schedule created", "transaction_id", txID, "count", len(created))
	s.committed(ctx, "create_schedule", core.TransactionUpserted, txID, outboxID)
	MarkOverdue(created, s.today())
	return created, nil
}

// appendSchedule inserts entries after existing and returns the full list.
func (s *Service) appendSchedule(ctx context.Context, tx Tx, t core.Transaction, existing []core.Installment, entries []ScheduleEntry) ([]core.Installment, error) {
	built, err := BuildSchedule(t.ID, NextNumber(existing), entries, s.today())
	if err != nil {
		return nil, err
	}
	all := append(append([]core.Installment(nil), existing...), built...)
	if err := s.checkScheduleSum(ctx, t, all); err != nil {
		return nil, err
	}
	for i := range built {
		inserted, err := tx.InsertInstallment(ctx, built[i])
		if err != nil {
			return nil, fmt.Errorf("insert installment %d: %w", built[i].Number, err)
		}
		all[len(existing)+i] = inserted
	}
	return all, nil
}

func (s *Service) checkScheduleSum(ctx context.Context, t core.Transaction, insts []core.Installment) error {
	total := ScheduleTotal(insts)
	if total == t.Amount || s.scheduleCheck == ScheduleCheckOff {
		return nil
	}
	if s.scheduleCheck == ScheduleCheckReject {
		return core.NewValidationError("installments",
			fmt.Sprintf("installments total %s does not match transaction amount %s", total, t.Amount))
	}
	slog.WarnContext(ctx, "Installment total differs from transaction amount",
		"transaction_id", t.ID,
		"installments_total_cents", total.Cents,
		"amount_cents", t.Amount.Cents)
	return nil
}

// RecordInstallmentPayment sets an installment's status and reconciles the
// parent transaction status in the same storage transaction. Repeating the
// call with the same input leaves the same state.
func (s *Service) RecordInstallmentPayment(ctx context.Context, txID, instID int64, upd InstallmentUpdate) (core.Installment, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindTransaction); err != nil {
		return core.Installment{}, err
	}

	var (
		updated  core.Installment
		status   core.TransactionStatus
		outboxID int64
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		inst, err := tx.GetInstallment(ctx, txID, instID)
		if err != nil {
			return err
		}
		if updated, err = ApplyUpdate(inst, upd, s.today()); err != nil {
			return err
		}
		if err := tx.UpdateInstallment(ctx, updated); err != nil {
			return fmt.Errorf("update installment: %w", err)
		}

		insts, err := tx.ListInstallments(ctx, txID)
		if err != nil {
			return fmt.Errorf("list installments: %w", err)
		}
		status = ReconcileStatus(t.Status, insts)
		if status != t.Status {
			if err := tx.SetTransactionStatus(ctx, txID, status); err != nil {
				return fmt.Errorf("set transaction status: %w", err)
			}
		}
		if outboxID, err = tx.EnqueueLedgerEvent(ctx, core.TransactionUpserted, txID); err != nil {
			return fmt.Errorf("enqueue ledger event: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Installment{}, err
	}

	slog.InfoContext(ctx, "Installment updated",
		"transaction_id", txID,
		"installment_id", instID,
		"installment_status", updated.Status,
		"transaction_status", status)
	metrics.InstallmentUpdates.WithLabelValues(string(updated.Status)).Inc()
	s.committed(ctx, "record_installment_payment", core.TransactionUpserted, txID, outboxID)
	updated.IsOverdue = IsOverdue(updated, s.today())
	return updated, nil
}

// committed runs the post-commit side effects. None of them can fail the
// operation.
func (s *Service) committed(ctx context.Context, op string, eventType core.LedgerEventType, txID, outboxID int64) {
	metrics.LedgerOperations.WithLabelValues(op).Inc()
	if s.invalidator != nil {
		s.invalidator.InvalidateAll()
	}
	if s.publisher == nil {
		return
	}
	ev := core.LedgerEvent{
		OutboxID:      outboxID,
		Type:          eventType,
		TransactionID: txID,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"transaction_id", txID,
			"outbox_id", outboxID,
			"error", err)
	}
}
