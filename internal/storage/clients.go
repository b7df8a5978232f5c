package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lawdesk/internal/core"
)

const clientColumns = `id, national_id, name, surname, email, phone, address, birth_date,
	occupation, notes, status, created_by, created_at, updated_at,
	(SELECT COUNT(*) FROM cases c WHERE c.client_id = clients.id
		AND c.status IN ('open', 'pending', 'in_progress', 'appealed')),
	COALESCE((SELECT SUM(CASE WHEN t.status = 'paid' THEN 0 ELSE t.amount_cents - COALESCE(
		(SELECT SUM(i.amount_cents) FROM installments i WHERE i.transaction_id = t.id AND i.status = 'paid'), 0) END)
		FROM transactions t WHERE t.client_id = clients.id AND t.type = 'income' AND t.status != 'cancelled'), 0)`

var clientSorts = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"surname":    "surname",
	"status":     "status",
}

func scanClient(row scanner) (core.Client, error) {
	var (
		c                core.Client
		nationalID       sql.NullString
		birth            sql.NullString
		status           string
		createdBy        sql.NullInt64
		created, updated string
		debt             int64
	)
	if err := row.Scan(&c.ID, &nationalID, &c.Name, &c.Surname, &c.Email, &c.Phone, &c.Address, &birth,
		&c.Occupation, &c.Notes, &status, &createdBy, &created, &updated, &c.ActiveCasesCount, &debt); err != nil {
		return core.Client{}, err
	}
	c.NationalID = ptrString(nationalID)
	c.BirthDate = ptrDate(birth)
	c.Status = core.ClientStatus(status)
	c.CreatedBy = ptrInt64(createdBy)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	c.TotalDebt = core.Money{Cents: debt}
	return c, nil
}

func (q *Queries) GetClient(ctx context.Context, id int64) (core.Client, error) {
	c, err := scanClient(q.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if err != nil {
		return core.Client{}, notFound(err, "client", id)
	}
	return c, nil
}

func (q *Queries) ListClients(ctx context.Context, f core.ClientFilter, lq core.ListQuery) ([]core.Client, int, error) {
	var w where
	w.search(f.Search, "name", "surname", "email", "phone", "COALESCE(national_id, '')")
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	rows, err := q.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients`+w.String()+
		orderBy(lq.Sort, clientSorts, "created_at DESC, id DESC")+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []core.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, total, rows.Err()
}

func normalizeNationalID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func (q *Queries) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	now := q.now()
	c.NationalID = normalizeNationalID(c.NationalID)
	res, err := q.db.ExecContext(ctx, `INSERT INTO clients
		(national_id, name, surname, email, phone, address, birth_date, occupation, notes, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(c.NationalID), c.Name, c.Surname, c.Email, c.Phone, c.Address, nullDate(c.BirthDate),
		c.Occupation, c.Notes, string(c.Status), nullInt64(c.CreatedBy), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Client{}, core.Conflict("a client with national id %s already exists", *c.NationalID)
		}
		return core.Client{}, fmt.Errorf("insert client: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Client{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetClient(ctx, id)
}

func (q *Queries) UpdateClient(ctx context.Context, c core.Client) error {
	c.NationalID = normalizeNationalID(c.NationalID)
	res, err := q.db.ExecContext(ctx, `UPDATE clients SET
		national_id = ?, name = ?, surname = ?, email = ?, phone = ?, address = ?, birth_date = ?,
		occupation = ?, notes = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		nullString(c.NationalID), c.Name, c.Surname, c.Email, c.Phone, c.Address, nullDate(c.BirthDate),
		c.Occupation, c.Notes, string(c.Status), q.now(), c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Conflict("a client with national id %s already exists", *c.NationalID)
		}
		return fmt.Errorf("update client: %w", err)
	}
	return requireRow(res, "client", c.ID)
}

func (q *Queries) DeleteClient(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Conflict("client %d still has cases", id)
		}
		return fmt.Errorf("delete client: %w", err)
	}
	return requireRow(res, "client", id)
}

func (q *Queries) CountClientCases(ctx context.Context, clientID int64) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases WHERE client_id = ?`, clientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count client cases: %w", err)
	}
	return n, nil
}
