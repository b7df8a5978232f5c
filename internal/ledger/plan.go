package ledger

import (
	"fmt"
	"time"

	"lawdesk/internal/core"
)

// MaxPlanInstallments bounds generated schedules.
const MaxPlanInstallments = 120

// Frequency is the spacing between generated installments.
type Frequency string

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// DueDateStepper computes the nth due date of a plan starting at first.
// Each frequency has its own implementation.
type DueDateStepper interface {
	DueDate(first core.Date, n int) core.Date
}

type weeklyStepper struct{}

func (weeklyStepper) DueDate(first core.Date, n int) core.Date {
	return core.Date{Time: first.AddDate(0, 0, 7*n)}
}

// monthStepper advances by months, clamping to the last day of shorter
// months so a plan anchored on the 31st stays at month end.
type monthStepper struct{ months int }

func (s monthStepper) DueDate(first core.Date, n int) core.Date {
	total := int(first.Month()) - 1 + s.months*n
	year := first.Year() + total/12
	month := time.Month(total%12 + 1)
	day := first.Day()
	if last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day(); day > last {
		day = last
	}
	return core.NewDate(year, int(month), day)
}

var steppers = map[Frequency]DueDateStepper{
	Weekly:    weeklyStepper{},
	Monthly:   monthStepper{months: 1},
	Quarterly: monthStepper{months: 3},
	Yearly:    monthStepper{months: 12},
}

// StepperFor returns the stepper for a frequency.
func StepperFor(f Frequency) (DueDateStepper, error) {
	s, ok := steppers[f]
	if !ok {
		return nil, fmt.Errorf("unknown frequency %q", f)
	}
	return s, nil
}

// InstallmentPlan asks for Count equal installments instead of an explicit
// schedule. FirstDue defaults to the transaction date.
type InstallmentPlan struct {
	Count     int        `json:"count"`
	Frequency Frequency  `json:"frequency"`
	FirstDue  *core.Date `json:"first_due_date"`
}

// Entries splits total into the plan's installments. Cents that do not
// divide evenly go to the last installment so the schedule sums to total.
func (p InstallmentPlan) Entries(total core.Money, txDate core.Date) ([]ScheduleEntry, error) {
	if p.Count < 1 || p.Count > MaxPlanInstallments {
		return nil, core.NewValidationError("plan.count", fmt.Sprintf("count must be between 1 and %d", MaxPlanInstallments))
	}
	if p.Frequency == "" {
		p.Frequency = Monthly
	}
	stepper, err := StepperFor(p.Frequency)
	if err != nil {
		return nil, core.Invalid("plan.frequency", err)
	}
	if total.Cents < int64(p.Count) {
		return nil, core.NewValidationError("plan.count", "amount is too small to split into that many installments")
	}
	first := txDate
	if p.FirstDue != nil && !p.FirstDue.IsZero() {
		first = *p.FirstDue
	}

	share := total.Cents / int64(p.Count)
	entries := make([]ScheduleEntry, p.Count)
	for i := range entries {
		cents := share
		if i == p.Count-1 {
			cents = total.Cents - share*int64(p.Count-1)
		}
		entries[i] = ScheduleEntry{
			Amount:  core.Money{Cents: cents},
			DueDate: stepper.DueDate(first, i),
			Status:  core.InstPending,
		}
	}
	return entries, nil
}
