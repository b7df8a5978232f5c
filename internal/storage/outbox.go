package storage

import (
	"context"
	"fmt"
	"time"

	"lawdesk/internal/core"
)

const outboxColumns = `id, event_type, transaction_id, status, attempts, last_error, created_at, updated_at`

// OutboxStats counts outbox rows per status.
type OutboxStats struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

func scanOutbox(row scanner) (core.OutboxEntry, error) {
	var (
		e                 core.OutboxEntry
		eventType, status string
		created, updated  string
	)
	if err := row.Scan(&e.ID, &eventType, &e.TransactionID, &status, &e.Attempts, &e.LastError, &created, &updated); err != nil {
		return core.OutboxEntry{}, err
	}
	e.EventType = core.LedgerEventType(eventType)
	e.Status = core.OutboxStatus(status)
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

// EnqueueLedgerEvent records a pending mirror event. Called inside the
// transaction that changes the ledger row.
func (q *Queries) EnqueueLedgerEvent(ctx context.Context, eventType core.LedgerEventType, txID int64) (int64, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO ledger_outbox (event_type, transaction_id, status, created_at, updated_at)
		VALUES (?, ?, 'pending', ?, ?)`, string(eventType), txID, now, now)
	if err != nil {
		return 0, fmt.Errorf("enqueue ledger event: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetOutboxEntry(ctx context.Context, id int64) (core.OutboxEntry, error) {
	e, err := scanOutbox(q.db.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM ledger_outbox WHERE id = ?`, id))
	if err != nil {
		return core.OutboxEntry{}, notFound(err, "outbox entry", id)
	}
	return e, nil
}

// DequeueOutboxBatch returns up to limit pending entries, oldest first.
func (q *Queries) DequeueOutboxBatch(ctx context.Context, limit int) ([]core.OutboxEntry, error) {
	return q.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM ledger_outbox
		WHERE status = 'pending' ORDER BY id LIMIT ?`, limit)
}

// ListOutbox returns entries with status, newest first. An empty status lists all.
func (q *Queries) ListOutbox(ctx context.Context, status core.OutboxStatus, limit int) ([]core.OutboxEntry, error) {
	var w where
	if status != "" {
		w.add("status = ?", string(status))
	}
	return q.queryOutbox(ctx, `SELECT `+outboxColumns+` FROM ledger_outbox`+w.String()+
		` ORDER BY id DESC LIMIT ?`, append(w.args, limit)...)
}

func (q *Queries) queryOutbox(ctx context.Context, query string, args ...any) ([]core.OutboxEntry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	entries := []core.OutboxEntry{}
	for rows.Next() {
		e, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkOutboxSynced is idempotent: marking an already synced entry is a no-op.
func (q *Queries) MarkOutboxSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE ledger_outbox SET status = 'synced', last_error = '', updated_at = ?
		WHERE id = ?`, q.now(), id)
	if err != nil {
		return fmt.Errorf("mark outbox synced: %w", err)
	}
	return nil
}

// IncrementOutboxAttempt records a failed attempt and leaves the entry pending.
func (q *Queries) IncrementOutboxAttempt(ctx context.Context, id int64, lastErr string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE ledger_outbox SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`, lastErr, q.now(), id)
	if err != nil {
		return fmt.Errorf("increment outbox attempt: %w", err)
	}
	return nil
}

func (q *Queries) MarkOutboxFailed(ctx context.Context, id int64, lastErr string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE ledger_outbox SET status = 'failed', attempts = attempts + 1,
		last_error = ?, updated_at = ? WHERE id = ? AND status = 'pending'`, lastErr, q.now(), id)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

// RetryFailedOutbox moves failed entries back to pending and returns how many moved.
func (q *Queries) RetryFailedOutbox(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE ledger_outbox SET status = 'pending', attempts = 0, updated_at = ?
		WHERE status = 'failed'`, q.now())
	if err != nil {
		return 0, fmt.Errorf("retry failed outbox: %w", err)
	}
	return res.RowsAffected()
}

// CleanupSyncedOutbox deletes synced entries last touched before cutoff.
func (q *Queries) CleanupSyncedOutbox(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM ledger_outbox WHERE status = 'synced' AND updated_at < ?`,
		core.FormatDateTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup synced outbox: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) OutboxStats(ctx context.Context) (OutboxStats, error) {
	var s OutboxStats
	err := q.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(status = 'pending'), 0),
		COALESCE(SUM(status = 'synced'), 0),
		COALESCE(SUM(status = 'failed'), 0)
		FROM ledger_outbox`).Scan(&s.Pending, &s.Synced, &s.Failed)
	if err != nil {
		return OutboxStats{}, fmt.Errorf("outbox stats: %w", err)
	}
	return s, nil
}
