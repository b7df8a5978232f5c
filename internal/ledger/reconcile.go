// Package ledger implements the financial ledger: transactions, installment
// schedules, payment reconciliation and period reports.
//
// The pure functions in this file hold the reconciliation rules. Service wires
// them to storage inside explicit transactions.
package ledger

import (
	"fmt"
	"strings"

	"lawdesk/internal/core"
)

// ScheduleCheck controls what happens when installment amounts do not add up
// to the transaction amount.
type ScheduleCheck string

const (
	ScheduleCheckOff    ScheduleCheck = "off"
	ScheduleCheckWarn   ScheduleCheck = "warn"
	ScheduleCheckReject ScheduleCheck = "reject"
)

func ParseScheduleCheck(s string) (ScheduleCheck, error) {
	switch c := ScheduleCheck(strings.ToLower(strings.TrimSpace(s))); c {
	case ScheduleCheckOff, ScheduleCheckWarn, ScheduleCheckReject:
		return c, nil
	case "":
		return ScheduleCheckWarn, nil
	}
	return "", fmt.Errorf("invalid schedule check %q: must be off, warn or reject", s)
}

type (
	// InstallmentUpdate changes one installment. Absent fields are left as they are.
	InstallmentUpdate struct {
		Status   core.InstallmentStatus `json:"status"`
		PaidDate *core.Date             `json:"paid_date"`
		Notes    *string                `json:"notes"`
	}

	// ScheduleEntry is one installment to append to a transaction.
	ScheduleEntry struct {
		Amount   core.Money             `json:"amount"`
		DueDate  core.Date              `json:"due_date"`
		Status   core.InstallmentStatus `json:"status"`
		PaidDate *core.Date             `json:"paid_date"`
		Notes    string                 `json:"notes"`
	}
)

// PaidAmount sums the installments whose status is paid.
func PaidAmount(insts []core.Installment) core.Money {
	var total core.Money
	for _, in := range insts {
		if in.Status == core.InstPaid {
			total = total.Add(in.Amount)
		}
	}
	return total
}

// RemainingAmount is amount minus paid. It is not clamped at zero.
func RemainingAmount(amount core.Money, insts []core.Installment) core.Money {
	return amount.Sub(PaidAmount(insts))
}

// IsOverdue reports whether inst is unpaid and due strictly before asOf.
func IsOverdue(inst core.Installment, asOf core.Date) bool {
	return inst.Status != core.InstPaid && inst.DueDate.Before(asOf)
}

// MarkOverdue fills the derived IsOverdue flag on each installment.
func MarkOverdue(insts []core.Installment, asOf core.Date) {
	for i := range insts {
		insts[i].IsOverdue = IsOverdue(insts[i], asOf)
	}
}

// ReconcileStatus derives a transaction status from its installments.
// All paid moves to paid, some paid moves to partial, anything else leaves the
// status alone. It never downgrades paid and never leaves cancelled.
func ReconcileStatus(current core.TransactionStatus, insts []core.Installment) core.TransactionStatus {
	if current == core.TxCancelled || len(insts) == 0 {
		return current
	}
	paid := 0
	for _, in := range insts {
		if in.Status == core.InstPaid {
			paid++
		}
	}
	switch {
	case paid == len(insts):
		return core.TxPaid
	case paid > 0 && current != core.TxPaid:
		return core.TxPartial
	}
	return current
}

// ApplyUpdate returns inst with upd applied. An empty status keeps the
// current one. Marking an installment paid without a date stamps today,
// unless it already carries a paid date.
func ApplyUpdate(inst core.Installment, upd InstallmentUpdate, today core.Date) (core.Installment, error) {
	if upd.Status != "" {
		if !upd.Status.Valid() {
			return inst, core.NewValidationError("status", "status must be pending, paid or overdue")
		}
		inst.Status = upd.Status
	}
	switch {
	case upd.PaidDate != nil:
		d := *upd.PaidDate
		inst.PaidDate = &d
	case upd.Status == core.InstPaid && inst.PaidDate == nil:
		d := today
		inst.PaidDate = &d
	}
	if upd.Notes != nil {
		inst.Notes = *upd.Notes
	}
	return inst, nil
}

// BuildSchedule turns entries into installments numbered from start, in list order.
func BuildSchedule(txID int64, start int, entries []ScheduleEntry, today core.Date) ([]core.Installment, error) {
	if len(entries) == 0 {
		return nil, core.NewValidationError("installments", "at least one installment is required")
	}
	out := make([]core.Installment, 0, len(entries))
	for i, e := range entries {
		field := fmt.Sprintf("installments[%d]", i)
		if err := e.Amount.Validate(); err != nil {
			return nil, core.Invalid(field+".amount", err)
		}
		if e.DueDate.IsZero() {
			return nil, core.NewValidationError(field+".due_date", "due date is required")
		}
		status := e.Status
		if status == "" {
			status = core.InstPending
		}
		inst := core.Installment{
			TransactionID: txID,
			Number:        start + i,
			Amount:        e.Amount,
			DueDate:       e.DueDate,
			Notes:         e.Notes,
		}
		inst, err := ApplyUpdate(inst, InstallmentUpdate{Status: status, PaidDate: e.PaidDate}, today)
		if err != nil {
			return nil, core.NewValidationError(field+".status", "status must be pending, paid or overdue")
		}
		out = append(out, inst)
	}
	return out, nil
}

// NextNumber returns the number following the highest existing installment.
func NextNumber(insts []core.Installment) int {
	highest := 0
	for _, in := range insts {
		highest = max(highest, in.Number)
	}
	return highest + 1
}

// ScheduleTotal sums every installment regardless of status.
func ScheduleTotal(insts []core.Installment) core.Money {
	var total core.Money
	for _, in := range insts {
		total = total.Add(in.Amount)
	}
	return total
}
