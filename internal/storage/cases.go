package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"lawdesk/internal/core"
)

const caseColumns = `cases.id, cases.case_number, cases.client_id, cases.lawyer_id, cases.case_type,
	cases.court_name, cases.subject, cases.opposing_party, cases.status, cases.start_date, cases.end_date,
	cases.next_hearing_at, cases.case_value_cents, cases.notes, cases.created_at, cases.updated_at,
	COALESCE(cl.name || ' ' || cl.surname, ''),
	COALESCE(u.name || ' ' || u.surname, ''),
	COALESCE((SELECT SUM(t.amount_cents) FROM transactions t
		WHERE t.case_id = cases.id AND t.type = 'income' AND t.status = 'paid'), 0),
	COALESCE((SELECT SUM(t.amount_cents) FROM transactions t
		WHERE t.case_id = cases.id AND t.type = 'expense' AND t.status = 'paid'), 0)`

const caseFrom = ` FROM cases
	LEFT JOIN clients cl ON cl.id = cases.client_id
	LEFT JOIN users u ON u.id = cases.lawyer_id`

var caseSorts = map[string]string{
	"created_at":  "cases.created_at",
	"case_number": "cases.case_number",
	"start_date":  "cases.start_date",
	"status":      "cases.status",
	"case_type":   "cases.case_type",
}

func scanCase(row scanner) (core.Case, error) {
	var (
		c                   core.Case
		lawyerID            sql.NullInt64
		caseType, status    string
		start, end, hearing sql.NullString
		value               sql.NullInt64
		created, updated    string
		income, expense     int64
	)
	if err := row.Scan(&c.ID, &c.CaseNumber, &c.ClientID, &lawyerID, &caseType,
		&c.CourtName, &c.Subject, &c.OpposingParty, &status, &start, &end,
		&hearing, &value, &c.Notes, &created, &updated,
		&c.ClientName, &c.LawyerName, &income, &expense); err != nil {
		return core.Case{}, err
	}
	c.LawyerID = ptrInt64(lawyerID)
	c.CaseType = core.CaseType(caseType)
	c.Status = core.CaseStatus(status)
	c.StartDate = ptrDate(start)
	c.EndDate = ptrDate(end)
	c.NextHearingAt = ptrTime(hearing)
	c.CaseValue = ptrMoney(value)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	c.IsActive = c.Status.IsActive()
	c.TotalIncome = core.Money{Cents: income}
	c.TotalExpense = core.Money{Cents: expense}
	return c, nil
}

func (q *Queries) GetCase(ctx context.Context, id int64) (core.Case, error) {
	c, err := scanCase(q.db.QueryRowContext(ctx, `SELECT `+caseColumns+caseFrom+` WHERE cases.id = ?`, id))
	if err != nil {
		return core.Case{}, notFound(err, "case", id)
	}
	return c, nil
}

func (q *Queries) ListCases(ctx context.Context, f core.CaseFilter, lq core.ListQuery) ([]core.Case, int, error) {
	var w where
	w.search(f.Search, "cases.case_number", "cases.subject", "cases.court_name", "cases.opposing_party")
	if f.Status != "" {
		w.add("cases.status = ?", string(f.Status))
	}
	if f.CaseType != "" {
		w.add("cases.case_type = ?", string(f.CaseType))
	}
	if f.ClientID != nil {
		w.add("cases.client_id = ?", *f.ClientID)
	}
	if f.LawyerID != nil {
		w.add("cases.lawyer_id = ?", *f.LawyerID)
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	rows, err := q.db.QueryContext(ctx, `SELECT `+caseColumns+caseFrom+w.String()+
		orderBy(lq.Sort, caseSorts, "cases.created_at DESC, cases.id DESC")+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	cases := []core.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, total, rows.Err()
}

// MaxCaseSequence returns the highest NNNN used in case numbers of the form YYYY/NNNN.
func (q *Queries) MaxCaseSequence(ctx context.Context, year int) (int, error) {
	prefix := strconv.Itoa(year) + "/"
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(CAST(SUBSTR(case_number, ?) AS INTEGER)), 0)
		FROM cases WHERE case_number LIKE ?`, len(prefix)+1, prefix+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max case sequence: %w", err)
	}
	return n, nil
}

func (q *Queries) CreateCase(ctx context.Context, c core.Case) (core.Case, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO cases
		(case_number, client_id, lawyer_id, case_type, court_name, subject, opposing_party, status,
		 start_date, end_date, next_hearing_at, case_value_cents, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CaseNumber, c.ClientID, nullInt64(c.LawyerID), string(c.CaseType), c.CourtName, c.Subject,
		c.OpposingParty, string(c.Status), nullDate(c.StartDate), nullDate(c.EndDate),
		nullTime(c.NextHearingAt), nullMoney(c.CaseValue), c.Notes, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Case{}, core.Conflict("case number %s already exists", c.CaseNumber)
		}
		if isForeignKeyViolation(err) {
			return core.Case{}, core.NotFound("client or lawyer", nil)
		}
		return core.Case{}, fmt.Errorf("insert case: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Case{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetCase(ctx, id)
}

func (q *Queries) UpdateCase(ctx context.Context, c core.Case) error {
	res, err := q.db.ExecContext(ctx, `UPDATE cases SET
		case_number = ?, client_id = ?, lawyer_id = ?, case_type = ?, court_name = ?, subject = ?,
		opposing_party = ?, status = ?, start_date = ?, end_date = ?, next_hearing_at = ?,
		case_value_cents = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		c.CaseNumber, c.ClientID, nullInt64(c.LawyerID), string(c.CaseType), c.CourtName, c.Subject,
		c.OpposingParty, string(c.Status), nullDate(c.StartDate), nullDate(c.EndDate),
		nullTime(c.NextHearingAt), nullMoney(c.CaseValue), c.Notes, q.now(), c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Conflict("case number %s already exists", c.CaseNumber)
		}
		if isForeignKeyViolation(err) {
			return core.NotFound("client or lawyer", nil)
		}
		return fmt.Errorf("update case: %w", err)
	}
	return requireRow(res, "case", c.ID)
}

func (q *Queries) DeleteCase(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	return requireRow(res, "case", id)
}

func (q *Queries) CountCaseTransactions(ctx context.Context, caseID int64) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE case_id = ?`, caseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count case transactions: %w", err)
	}
	return n, nil
}
