package storage

import (
	"context"
	"fmt"
	"time"

	"lawdesk/internal/core"
)

type (
	ClientCounts struct {
		Total, Active, NewSince int
	}

	CaseCounts struct {
		Total, Active, Won, Lost int
		ByType                   map[string]int
	}

	LeadCounts struct {
		Total, New, Converted, NeedsFollowUp int
	}
)

// ClientCounts counts clients; NewSince counts those created at or after since.
func (q *Queries) ClientCounts(ctx context.Context, since time.Time) (ClientCounts, error) {
	var c ClientCounts
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(status = 'active'), 0),
		COALESCE(SUM(created_at >= ?), 0)
		FROM clients`, core.FormatDateTime(since)).Scan(&c.Total, &c.Active, &c.NewSince)
	if err != nil {
		return ClientCounts{}, fmt.Errorf("client counts: %w", err)
	}
	return c, nil
}

func (q *Queries) CaseCounts(ctx context.Context) (CaseCounts, error) {
	c := CaseCounts{ByType: map[string]int{}}
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(status IN ('open', 'pending', 'in_progress', 'appealed')), 0),
		COALESCE(SUM(status = 'won'), 0),
		COALESCE(SUM(status = 'lost'), 0)
		FROM cases`).Scan(&c.Total, &c.Active, &c.Won, &c.Lost)
	if err != nil {
		return CaseCounts{}, fmt.Errorf("case counts: %w", err)
	}

	rows, err := q.db.QueryContext(ctx, `SELECT case_type, COUNT(*) FROM cases GROUP BY case_type`)
	if err != nil {
		return CaseCounts{}, fmt.Errorf("cases by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return CaseCounts{}, fmt.Errorf("scan case type count: %w", err)
		}
		c.ByType[typ] = n
	}
	return c, rows.Err()
}

// LeadCounts counts leads; NeedsFollowUp counts open leads with a follow-up
// date on or before today.
func (q *Queries) LeadCounts(ctx context.Context, today core.Date) (LeadCounts, error) {
	var c LeadCounts
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(status = 'new'), 0),
		COALESCE(SUM(status = 'converted'), 0),
		COALESCE(SUM(follow_up_date IS NOT NULL AND follow_up_date <= ? AND status NOT IN ('converted', 'lost')), 0)
		FROM leads`, today.String()).Scan(&c.Total, &c.New, &c.Converted, &c.NeedsFollowUp)
	if err != nil {
		return LeadCounts{}, fmt.Errorf("lead counts: %w", err)
	}
	return c, nil
}
