package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lawdesk/internal/core"
)

const transactionColumns = `id, type, category, amount_cents, currency, date, description, payment_method,
	client_id, case_id, status, receipt_no, created_at, updated_at`

const installmentColumns = `id, transaction_id, installment_number, amount_cents, due_date, paid_date,
	status, notes, created_at, updated_at`

var transactionSorts = map[string]string{
	"date":       "date",
	"amount":     "amount_cents",
	"created_at": "created_at",
	"category":   "category",
	"status":     "status",
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                 core.Transaction
		typ, status, date string
		clientID, caseID  sql.NullInt64
		created, updated  string
	)
	if err := row.Scan(&t.ID, &typ, &t.Category, &t.Amount.Cents, &t.Currency, &date, &t.Description,
		&t.PaymentMethod, &clientID, &caseID, &status, &t.ReceiptNo, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	t.Date = parseDate(date)
	t.ClientID = ptrInt64(clientID)
	t.CaseID = ptrInt64(caseID)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func scanInstallment(row scanner) (core.Installment, error) {
	var (
		in               core.Installment
		due, status      string
		paid             sql.NullString
		created, updated string
	)
	if err := row.Scan(&in.ID, &in.TransactionID, &in.Number, &in.Amount.Cents, &due, &paid,
		&status, &in.Notes, &created, &updated); err != nil {
		return core.Installment{}, err
	}
	in.DueDate = parseDate(due)
	in.PaidDate = ptrDate(paid)
	in.Status = core.InstallmentStatus(status)
	in.CreatedAt = parseTime(created)
	in.UpdatedAt = parseTime(updated)
	return in, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

func transactionWhere(f core.TransactionFilter) where {
	var w where
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.ClientID != nil {
		w.add("client_id = ?", *f.ClientID)
	}
	if f.CaseID != nil {
		w.add("case_id = ?", *f.CaseID)
	}
	if f.Start != nil && !f.Start.IsZero() {
		w.add("date >= ?", f.Start.String())
	}
	if f.End != nil && !f.End.IsZero() {
		w.add("date <= ?", f.End.String())
	}
	return w
}

func (q *Queries) ListTransactions(ctx context.Context, f core.TransactionFilter, lq core.ListQuery) ([]core.Transaction, int, error) {
	w := transactionWhere(f)

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	rows, err := q.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions`+w.String()+
		orderBy(lq.Sort, transactionSorts, "date DESC, id DESC")+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, total, rows.Err()
}

func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO transactions
		(type, category, amount_cents, currency, date, description, payment_method,
		 client_id, case_id, status, receipt_no, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Type), t.Category, t.Amount.Cents, t.Currency, t.Date.String(), t.Description,
		t.PaymentMethod, nullInt64(t.ClientID), nullInt64(t.CaseID), string(t.Status), t.ReceiptNo, now, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Transaction{}, core.NotFound("client or case", nil)
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetTransaction(ctx, id)
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions SET
		type = ?, category = ?, amount_cents = ?, currency = ?, date = ?, description = ?,
		payment_method = ?, client_id = ?, case_id = ?, status = ?, receipt_no = ?, updated_at = ?
		WHERE id = ?`,
		string(t.Type), t.Category, t.Amount.Cents, t.Currency, t.Date.String(), t.Description,
		t.PaymentMethod, nullInt64(t.ClientID), nullInt64(t.CaseID), string(t.Status), t.ReceiptNo, q.now(), t.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.NotFound("client or case", nil)
		}
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "transaction", t.ID)
}

func (q *Queries) SetTransactionStatus(ctx context.Context, id int64, status core.TransactionStatus) error {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), q.now(), id)
	if err != nil {
		return fmt.Errorf("set transaction status: %w", err)
	}
	return requireRow(res, "transaction", id)
}

// DeleteTransaction removes the transaction; installments cascade.
func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "transaction", id)
}

func (q *Queries) queryInstallments(ctx context.Context, query string, args ...any) ([]core.Installment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer rows.Close()

	insts := []core.Installment{}
	for rows.Next() {
		in, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		insts = append(insts, in)
	}
	return insts, rows.Err()
}

func (q *Queries) ListInstallments(ctx context.Context, txID int64) ([]core.Installment, error) {
	return q.queryInstallments(ctx, `SELECT `+installmentColumns+` FROM installments
		WHERE transaction_id = ? ORDER BY installment_number`, txID)
}

// GetInstallment loads an installment only if it belongs to txID.
func (q *Queries) GetInstallment(ctx context.Context, txID, instID int64) (core.Installment, error) {
	in, err := scanInstallment(q.db.QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments
		WHERE id = ? AND transaction_id = ?`, instID, txID))
	if err != nil {
		return core.Installment{}, notFound(err, "installment", instID)
	}
	return in, nil
}

func (q *Queries) InsertInstallment(ctx context.Context, in core.Installment) (core.Installment, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO installments
		(transaction_id, installment_number, amount_cents, due_date, paid_date, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.TransactionID, in.Number, in.Amount.Cents, in.DueDate.String(), nullDate(in.PaidDate),
		string(in.Status), in.Notes, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Installment{}, core.Conflict("installment %d already exists for transaction %d", in.Number, in.TransactionID)
		}
		if isForeignKeyViolation(err) {
			return core.Installment{}, core.NotFound("transaction", in.TransactionID)
		}
		return core.Installment{}, fmt.Errorf("insert installment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Installment{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetInstallment(ctx, in.TransactionID, id)
}

func (q *Queries) UpdateInstallment(ctx context.Context, in core.Installment) error {
	res, err := q.db.ExecContext(ctx, `UPDATE installments SET
		amount_cents = ?, due_date = ?, paid_date = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ? AND transaction_id = ?`,
		in.Amount.Cents, in.DueDate.String(), nullDate(in.PaidDate), string(in.Status), in.Notes, q.now(),
		in.ID, in.TransactionID)
	if err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	return requireRow(res, "installment", in.ID)
}

// PaidAmounts sums paid installments per transaction. Transactions without
// paid installments are absent from the map.
func (q *Queries) PaidAmounts(ctx context.Context, txIDs []int64) (map[int64]core.Money, error) {
	out := make(map[int64]core.Money, len(txIDs))
	if len(txIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(txIDs))
	for i, id := range txIDs {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx, `SELECT transaction_id, SUM(amount_cents) FROM installments
		WHERE status = 'paid' AND transaction_id IN (`+inClause(len(txIDs))+`)
		GROUP BY transaction_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("paid amounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, cents int64
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, fmt.Errorf("scan paid amount: %w", err)
		}
		out[id] = core.Money{Cents: cents}
	}
	return out, rows.Err()
}

// ListOverdueInstallments returns unpaid installments due strictly before
// asOf, skipping cancelled transactions.
func (q *Queries) ListOverdueInstallments(ctx context.Context, asOf core.Date) ([]core.Installment, error) {
	return q.queryInstallments(ctx, `SELECT i.id, i.transaction_id, i.installment_number, i.amount_cents,
		i.due_date, i.paid_date, i.status, i.notes, i.created_at, i.updated_at
		FROM installments i JOIN transactions t ON t.id = i.transaction_id
		WHERE i.status != 'paid' AND i.due_date < ? AND t.status != 'cancelled'
		ORDER BY i.due_date, i.id`, asOf.String())
}

func amountWhere(aq core.AmountQuery) where {
	return transactionWhere(core.TransactionFilter{Type: aq.Type, Status: aq.Status, Start: aq.Start, End: aq.End})
}

func (q *Queries) SumTransactions(ctx context.Context, aq core.AmountQuery) (core.Money, error) {
	w := amountWhere(aq)
	var cents int64
	if err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions`+w.String(), w.args...).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (q *Queries) SumTransactionsByCategory(ctx context.Context, aq core.AmountQuery) ([]core.CategoryAmount, error) {
	w := amountWhere(aq)
	rows, err := q.db.QueryContext(ctx, `SELECT category, SUM(amount_cents) FROM transactions`+w.String()+
		` GROUP BY category ORDER BY category`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Category, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category amount: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}

// MonthlyTotals returns paid amounts of typ per YYYY-MM for months in [from, to].
func (q *Queries) MonthlyTotals(ctx context.Context, typ core.TransactionType, from, to core.Date) ([]core.MonthAmount, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT SUBSTR(date, 1, 7) AS month, SUM(amount_cents) FROM transactions
		WHERE type = ? AND status = 'paid' AND date >= ? AND date <= ?
		GROUP BY month ORDER BY month`, string(typ), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	out := []core.MonthAmount{}
	for rows.Next() {
		var m core.MonthAmount
		if err := rows.Scan(&m.Month, &m.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
