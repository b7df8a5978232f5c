package core

// CategoryAmount represents an amount aggregated by category code.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// FinancialReport aggregates paid totals over a date range.
// Pending totals are not range-bound.
type FinancialReport struct {
	StartDate         Date             `json:"start_date"`
	EndDate           Date             `json:"end_date"`
	IncomeTotal       Money            `json:"total_income"`
	ExpenseTotal      Money            `json:"total_expense"`
	Net               Money            `json:"net_income"`
	PendingIncome     Money            `json:"pending_income"`
	PendingExpense    Money            `json:"pending_expense"`
	IncomeByCategory  []CategoryAmount `json:"income_by_category"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
}

type MonthAmount struct {
	Month  string `json:"month"` // YYYY-MM
	Amount Money  `json:"amount"`
}

type DashboardStats struct {
	Clients struct {
		Total        int `json:"total"`
		Active       int `json:"active"`
		NewThisMonth int `json:"new_this_month"`
	} `json:"clients"`
	Cases struct {
		Total  int            `json:"total"`
		Active int            `json:"active"`
		Won    int            `json:"won"`
		Lost   int            `json:"lost"`
		ByType map[string]int `json:"by_type"`
	} `json:"cases"`
	Finance struct {
		TotalIncome     Money         `json:"total_income"`
		TotalExpense    Money         `json:"total_expense"`
		NetIncome       Money         `json:"net_income"`
		MonthlyIncome   Money         `json:"monthly_income"`
		MonthlyExpense  Money         `json:"monthly_expense"`
		PendingPayments Money         `json:"pending_payments"`
		IncomeTrend     []MonthAmount `json:"income_trend"`
	} `json:"finance"`
	Leads struct {
		Total         int `json:"total"`
		New           int `json:"new"`
		Converted     int `json:"converted"`
		NeedsFollowUp int `json:"needs_follow_up"`
	} `json:"leads"`
	UpcomingEvents   []CalendarEvent `json:"upcoming_events"`
	UpcomingHearings []CalendarEvent `json:"upcoming_hearings"`
}

// Page is a 1-based page request.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Pages returns the page count for total items.
func (p Page) Pages(total int) int {
	if p.PerPage <= 0 || total == 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// Sort is a column and direction; columns are whitelisted by storage.
type Sort struct {
	Column string
	Desc   bool
}
