package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lawdesk/internal/core"
)

const leadColumns = `id, name, contact_info, case_type, description, source, status, estimated_value_cents,
	follow_up_date, converted_client_id, notes, created_by, created_at, updated_at`

var leadSorts = map[string]string{
	"created_at":     "created_at",
	"name":           "name",
	"status":         "status",
	"follow_up_date": "follow_up_date",
}

func scanLead(row scanner) (core.Lead, error) {
	var (
		l                  core.Lead
		source, status     string
		value              sql.NullInt64
		followUp           sql.NullString
		converted, creator sql.NullInt64
		created, updated   string
	)
	if err := row.Scan(&l.ID, &l.Name, &l.ContactInfo, &l.CaseType, &l.Description, &source, &status, &value,
		&followUp, &converted, &l.Notes, &creator, &created, &updated); err != nil {
		return core.Lead{}, err
	}
	l.Source = core.LeadSource(source)
	l.Status = core.LeadStatus(status)
	l.EstimatedValue = ptrMoney(value)
	l.FollowUpDate = ptrDate(followUp)
	l.ConvertedClientID = ptrInt64(converted)
	l.CreatedBy = ptrInt64(creator)
	l.CreatedAt = parseTime(created)
	l.UpdatedAt = parseTime(updated)
	return l, nil
}

func (q *Queries) GetLead(ctx context.Context, id int64) (core.Lead, error) {
	l, err := scanLead(q.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if err != nil {
		return core.Lead{}, notFound(err, "lead", id)
	}
	return l, nil
}

func (q *Queries) ListLeads(ctx context.Context, f core.LeadFilter, lq core.ListQuery) ([]core.Lead, int, error) {
	var w where
	w.search(f.Search, "name", "contact_info", "description")
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Source != "" {
		w.add("source = ?", string(f.Source))
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	rows, err := q.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads`+w.String()+
		orderBy(lq.Sort, leadSorts, "created_at DESC, id DESC")+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := []core.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, total, rows.Err()
}

func (q *Queries) CreateLead(ctx context.Context, l core.Lead) (core.Lead, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO leads
		(name, contact_info, case_type, description, source, status, estimated_value_cents,
		 follow_up_date, converted_client_id, notes, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.ContactInfo, l.CaseType, l.Description, string(l.Source), string(l.Status),
		nullMoney(l.EstimatedValue), nullDate(l.FollowUpDate), nullInt64(l.ConvertedClientID),
		l.Notes, nullInt64(l.CreatedBy), now, now)
	if err != nil {
		return core.Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Lead{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetLead(ctx, id)
}

func (q *Queries) UpdateLead(ctx context.Context, l core.Lead) error {
	res, err := q.db.ExecContext(ctx, `UPDATE leads SET
		name = ?, contact_info = ?, case_type = ?, description = ?, source = ?, status = ?,
		estimated_value_cents = ?, follow_up_date = ?, converted_client_id = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		l.Name, l.ContactInfo, l.CaseType, l.Description, string(l.Source), string(l.Status),
		nullMoney(l.EstimatedValue), nullDate(l.FollowUpDate), nullInt64(l.ConvertedClientID),
		l.Notes, q.now(), l.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.NotFound("client", l.ConvertedClientID)
		}
		return fmt.Errorf("update lead: %w", err)
	}
	return requireRow(res, "lead", l.ID)
}

func (q *Queries) DeleteLead(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return requireRow(res, "lead", id)
}
