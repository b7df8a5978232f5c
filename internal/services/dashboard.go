package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"lawdesk/internal/auth"
	"lawdesk/internal/cache"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

const (
	TrendMonths       = 6
	DashboardListSize = 5
	upcomingWindow    = 7 * 24 * time.Hour
)

// DashboardService computes the office overview. Sections are queried
// concurrently; the result is cached and concurrent misses share one build.
type DashboardService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
	cache  cache.Cache[core.DashboardStats]
	group  singleflight.Group
	now    func() time.Time
}

// NewDashboardService creates the service. stats may be nil to disable caching.
func NewDashboardService(repo *storage.SQLiteRepository, policy *auth.Policy, stats cache.Cache[core.DashboardStats]) *DashboardService {
	return &DashboardService{repo: repo, policy: policy, cache: stats, now: time.Now}
}

// Stats returns the dashboard. Callers without report access get the
// finance section zeroed.
func (s *DashboardService) Stats(ctx context.Context) (core.DashboardStats, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindClient); err != nil {
		return core.DashboardStats{}, err
	}
	finance := true
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindReport); err != nil {
		if !errors.Is(err, core.ErrAuthorization) {
			return core.DashboardStats{}, err
		}
		finance = false
	}

	key := "stats"
	if !finance {
		key = "stats:nofinance"
	}
	if s.cache != nil {
		if st, ok := s.cache.Get(key); ok {
			return st, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		// Shared by every waiter, so not bound to this caller's cancellation.
		st, err := s.build(context.WithoutCancel(ctx), finance)
		if err != nil {
			return core.DashboardStats{}, err
		}
		if s.cache != nil {
			s.cache.Set(key, st)
		}
		return st, nil
	})
	if err != nil {
		return core.DashboardStats{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Dashboard stats shared with concurrent request")
	}
	return v.(core.DashboardStats), nil
}

func (s *DashboardService) build(ctx context.Context, finance bool) (core.DashboardStats, error) {
	now := s.now().UTC()
	today := core.DateOf(now)
	monthStart := core.NewDate(today.Year(), int(today.Month()), 1)

	var st core.DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := s.repo.ClientCounts(ctx, monthStart.Time)
		if err != nil {
			return err
		}
		st.Clients.Total, st.Clients.Active, st.Clients.NewThisMonth = c.Total, c.Active, c.NewSince
		return nil
	})
	g.Go(func() error {
		c, err := s.repo.CaseCounts(ctx)
		if err != nil {
			return err
		}
		st.Cases.Total, st.Cases.Active, st.Cases.Won, st.Cases.Lost = c.Total, c.Active, c.Won, c.Lost
		st.Cases.ByType = c.ByType
		return nil
	})
	g.Go(func() error {
		c, err := s.repo.LeadCounts(ctx, today)
		if err != nil {
			return err
		}
		st.Leads.Total, st.Leads.New, st.Leads.Converted, st.Leads.NeedsFollowUp = c.Total, c.New, c.Converted, c.NeedsFollowUp
		return nil
	})
	g.Go(func() error {
		to := now.Add(upcomingWindow)
		events, err := s.repo.ListUpcomingEvents(ctx, "", now, &to, DashboardListSize)
		if err != nil {
			return err
		}
		for i := range events {
			events[i].Derive(now)
		}
		st.UpcomingEvents = events
		return nil
	})
	g.Go(func() error {
		hearings, err := s.repo.ListUpcomingEvents(ctx, core.EventHearing, now, nil, DashboardListSize)
		if err != nil {
			return err
		}
		for i := range hearings {
			hearings[i].Derive(now)
		}
		st.UpcomingHearings = hearings
		return nil
	})
	if finance {
		g.Go(func() error {
			return s.finance(ctx, &st, today, monthStart)
		})
	}

	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	if st.Finance.IncomeTrend == nil {
		st.Finance.IncomeTrend = []core.MonthAmount{}
	}
	return st, nil
}

func (s *DashboardService) finance(ctx context.Context, st *core.DashboardStats, today, monthStart core.Date) error {
	sum := func(typ core.TransactionType, status core.TransactionStatus, start *core.Date) (core.Money, error) {
		return s.repo.SumTransactions(ctx, core.AmountQuery{Type: typ, Status: status, Start: start})
	}
	f := &st.Finance
	var err error
	if f.TotalIncome, err = sum(core.Income, core.TxPaid, nil); err != nil {
		return err
	}
	if f.TotalExpense, err = sum(core.Expense, core.TxPaid, nil); err != nil {
		return err
	}
	f.NetIncome = f.TotalIncome.Sub(f.TotalExpense)
	if f.MonthlyIncome, err = sum(core.Income, core.TxPaid, &monthStart); err != nil {
		return err
	}
	if f.MonthlyExpense, err = sum(core.Expense, core.TxPaid, &monthStart); err != nil {
		return err
	}
	if f.PendingPayments, err = sum(core.Income, core.TxPending, nil); err != nil {
		return err
	}

	first := core.Date{Time: monthStart.AddDate(0, -(TrendMonths - 1), 0)}
	totals, err := s.repo.MonthlyTotals(ctx, core.Income, first, today)
	if err != nil {
		return err
	}
	f.IncomeTrend = IncomeTrend(totals, first, TrendMonths)
	return nil
}

// IncomeTrend expands sparse monthly totals into n consecutive months
// starting at first, filling gaps with zero.
func IncomeTrend(totals []core.MonthAmount, first core.Date, n int) []core.MonthAmount {
	byMonth := make(map[string]core.Money, len(totals))
	for _, t := range totals {
		byMonth[t.Month] = t.Amount
	}
	out := make([]core.MonthAmount, 0, n)
	for i := range n {
		month := first.AddDate(0, i, 0).Format("2006-01")
		out = append(out, core.MonthAmount{Month: month, Amount: byMonth[month]})
	}
	return out
}
