package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lawdesk/internal/core"
)

const eventColumns = `id, title, description, event_type, start_at, end_at, location, related_to, related_id,
	reminder_minutes, status, created_by, reminded_at, created_at, updated_at`

func scanEvent(row scanner) (core.CalendarEvent, error) {
	var (
		e                  core.CalendarEvent
		eventType, status  string
		start              string
		end, reminded      sql.NullString
		relatedID, creator sql.NullInt64
		created, updated   string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &eventType, &start, &end, &e.Location, &e.RelatedTo,
		&relatedID, &e.ReminderMinutes, &status, &creator, &reminded, &created, &updated); err != nil {
		return core.CalendarEvent{}, err
	}
	e.EventType = core.EventType(eventType)
	e.Status = core.EventStatus(status)
	e.StartAt = parseTime(start)
	e.EndAt = ptrTime(end)
	e.RelatedID = ptrInt64(relatedID)
	e.CreatedBy = ptrInt64(creator)
	e.RemindedAt = ptrTime(reminded)
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

func (q *Queries) GetEvent(ctx context.Context, id int64) (core.CalendarEvent, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, id))
	if err != nil {
		return core.CalendarEvent{}, notFound(err, "event", id)
	}
	return e, nil
}

// ListEvents orders by start time ascending. The range bounds apply to start_at.
func (q *Queries) ListEvents(ctx context.Context, f core.EventFilter, lq core.ListQuery) ([]core.CalendarEvent, int, error) {
	var w where
	if f.EventType != "" {
		w.add("event_type = ?", string(f.EventType))
	}
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.RelatedTo != "" {
		w.add("related_to = ?", f.RelatedTo)
	}
	if f.RelatedID != nil {
		w.add("related_id = ?", *f.RelatedID)
	}
	if f.From != nil {
		w.add("start_at >= ?", core.FormatDateTime(*f.From))
	}
	if f.To != nil {
		w.add("start_at <= ?", core.FormatDateTime(*f.To))
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calendar_events`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	events, err := q.queryEvents(ctx, `SELECT `+eventColumns+` FROM calendar_events`+w.String()+
		` ORDER BY start_at, id`+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListUpcomingEvents returns scheduled events starting in [from, to], soonest
// first. An empty eventType matches every type; a nil to is unbounded.
func (q *Queries) ListUpcomingEvents(ctx context.Context, eventType core.EventType, from time.Time, to *time.Time, limit int) ([]core.CalendarEvent, error) {
	var w where
	w.add("status = ?", string(core.EventScheduled))
	w.add("start_at >= ?", core.FormatDateTime(from))
	if to != nil {
		w.add("start_at <= ?", core.FormatDateTime(*to))
	}
	if eventType != "" {
		w.add("event_type = ?", string(eventType))
	}
	return q.queryEvents(ctx, `SELECT `+eventColumns+` FROM calendar_events`+w.String()+
		` ORDER BY start_at, id LIMIT ?`, append(w.args, limit)...)
}

// ListDueReminders returns scheduled, not yet reminded events whose reminder
// window has opened at now and that have not started.
func (q *Queries) ListDueReminders(ctx context.Context, now time.Time) ([]core.CalendarEvent, error) {
	ts := core.FormatDateTime(now)
	return q.queryEvents(ctx, `SELECT `+eventColumns+` FROM calendar_events
		WHERE status = 'scheduled' AND reminded_at IS NULL AND reminder_minutes > 0
		AND start_at > ?
		AND datetime(start_at, '-' || reminder_minutes || ' minutes') <= datetime(?)
		ORDER BY start_at, id`, ts, ts)
}

func (q *Queries) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	res, err := q.db.ExecContext(ctx, `UPDATE calendar_events SET reminded_at = ? WHERE id = ?`,
		core.FormatDateTime(at), id)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return requireRow(res, "event", id)
}

func (q *Queries) queryEvents(ctx context.Context, query string, args ...any) ([]core.CalendarEvent, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []core.CalendarEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (q *Queries) CreateEvent(ctx context.Context, e core.CalendarEvent) (core.CalendarEvent, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO calendar_events
		(title, description, event_type, start_at, end_at, location, related_to, related_id,
		 reminder_minutes, status, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, string(e.EventType), core.FormatDateTime(e.StartAt), nullTime(e.EndAt),
		e.Location, e.RelatedTo, nullInt64(e.RelatedID), e.ReminderMinutes, string(e.Status),
		nullInt64(e.CreatedBy), now, now)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetEvent(ctx, id)
}

// UpdateEvent clears reminded_at when the start moves so the new time is reminded again.
func (q *Queries) UpdateEvent(ctx context.Context, e core.CalendarEvent) error {
	res, err := q.db.ExecContext(ctx, `UPDATE calendar_events SET
		title = ?, description = ?, event_type = ?,
		reminded_at = CASE WHEN start_at = ? THEN reminded_at ELSE NULL END,
		start_at = ?, end_at = ?, location = ?, related_to = ?, related_id = ?,
		reminder_minutes = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, string(e.EventType),
		core.FormatDateTime(e.StartAt),
		core.FormatDateTime(e.StartAt), nullTime(e.EndAt), e.Location, e.RelatedTo, nullInt64(e.RelatedID),
		e.ReminderMinutes, string(e.Status), q.now(), e.ID)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireRow(res, "event", e.ID)
}

func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireRow(res, "event", id)
}
