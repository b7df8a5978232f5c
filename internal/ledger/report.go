package ledger

import (
	"context"
	"fmt"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
)

// DefaultReportDays is the report window when no range is given.
const DefaultReportDays = 30

// SumAmount totals transaction amounts matching q. Dates outside the range
// are excluded; the range is inclusive at both ends.
func (s *Service) SumAmount(ctx context.Context, q core.AmountQuery) (core.Money, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindReport); err != nil {
		return core.Money{}, err
	}
	return s.store.SumTransactions(ctx, q)
}

// SumByCategory totals transaction amounts matching q grouped by category.
func (s *Service) SumByCategory(ctx context.Context, q core.AmountQuery) ([]core.CategoryAmount, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindReport); err != nil {
		return nil, err
	}
	return s.store.SumTransactionsByCategory(ctx, q)
}

// Report builds the financial report for [start, end]. A missing start
// defaults to DefaultReportDays days before today and a missing end to today,
// each independently. Results are cached per range until the
// next ledger mutation.
func (s *Service) Report(ctx context.Context, start, end *core.Date) (core.FinancialReport, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindReport); err != nil {
		return core.FinancialReport{}, err
	}

	today := s.today()
	to := today
	if end != nil && !end.IsZero() {
		to = *end
	}
	from := today.AddDays(-DefaultReportDays)
	if start != nil && !start.IsZero() {
		from = *start
	}
	if to.Before(from) {
		return core.FinancialReport{}, core.NewValidationError("end_date", "end date must not be before start date")
	}

	key := from.String() + ":" + to.String()
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			return r, nil
		}
	}

	r, err := s.buildReport(ctx, from, to)
	if err != nil {
		return core.FinancialReport{}, err
	}
	if s.reports != nil {
		s.reports.Set(key, r)
	}
	return r, nil
}

func (s *Service) buildReport(ctx context.Context, from, to core.Date) (core.FinancialReport, error) {
	r := core.FinancialReport{StartDate: from, EndDate: to}
	paidIncome := core.AmountQuery{Type: core.Income, Status: core.TxPaid, Start: &from, End: &to}
	paidExpense := core.AmountQuery{Type: core.Expense, Status: core.TxPaid, Start: &from, End: &to}

	var err error
	if r.IncomeTotal, err = s.store.SumTransactions(ctx, paidIncome); err != nil {
		return r, fmt.Errorf("income total: %w", err)
	}
	if r.ExpenseTotal, err = s.store.SumTransactions(ctx, paidExpense); err != nil {
		return r, fmt.Errorf("expense total: %w", err)
	}
	r.Net = r.IncomeTotal.Sub(r.ExpenseTotal)

	if r.PendingIncome, err = s.store.SumTransactions(ctx, core.AmountQuery{Type: core.Income, Status: core.TxPending}); err != nil {
		return r, fmt.Errorf("pending income: %w", err)
	}
	if r.PendingExpense, err = s.store.SumTransactions(ctx, core.AmountQuery{Type: core.Expense, Status: core.TxPending}); err != nil {
		return r, fmt.Errorf("pending expense: %w", err)
	}

	if r.IncomeByCategory, err = s.store.SumTransactionsByCategory(ctx, paidIncome); err != nil {
		return r, fmt.Errorf("income by category: %w", err)
	}
	if r.ExpenseByCategory, err = s.store.SumTransactionsByCategory(ctx, paidExpense); err != nil {
		return r, fmt.Errorf("expense by category: %w", err)
	}
	return r, nil
}
