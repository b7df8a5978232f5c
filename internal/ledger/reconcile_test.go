package ledger

import (
	"testing"

	"lawdesk/internal/core"
)

func inst(n int, cents int64, status core.InstallmentStatus) core.Installment {
	return core.Installment{
		ID:      int64(n),
		Number:  n,
		Amount:  core.Money{Cents: cents},
		DueDate: core.NewDate(2025, n, 1),
		Status:  status,
	}
}

func TestPaidAndRemainingAmount(t *testing.T) {
	insts := []core.Installment{
		inst(1, 40000, core.InstPaid),
		inst(2, 40000, core.InstPending),
		inst(3, 40000, core.InstOverdue),
	}
	if got := PaidAmount(insts); got.Cents != 40000 {
		t.Fatalf("expected paid 40000, got %d", got.Cents)
	}
	if got := RemainingAmount(core.Money{Cents: 120000}, insts); got.Cents != 80000 {
		t.Fatalf("expected remaining 80000, got %d", got.Cents)
	}
	if got := PaidAmount(nil); got.Cents != 0 {
		t.Fatalf("expected zero paid for no installments, got %d", got.Cents)
	}

	over := []core.Installment{inst(1, 70000, core.InstPaid), inst(2, 70000, core.InstPaid)}
	if got := RemainingAmount(core.Money{Cents: 100000}, over); got.Cents != -40000 {
		t.Fatalf("expected negative remaining -40000, got %d", got.Cents)
	}
}

func TestReconcileStatus(t *testing.T) {
	cases := []struct {
		name    string
		current core.TransactionStatus
		insts   []core.Installment
		want    core.TransactionStatus
	}{
		{"no installments", core.TxPending, nil, core.TxPending},
		{"none paid", core.TxPending, []core.Installment{inst(1, 1, core.InstPending)}, core.TxPending},
		{"some paid", core.TxPending, []core.Installment{inst(1, 1, core.InstPaid), inst(2, 1, core.InstPending)}, core.TxPartial},
		{"all paid", core.TxPartial, []core.Installment{inst(1, 1, core.InstPaid), inst(2, 1, core.InstPaid)}, core.TxPaid},
		{"paid never downgraded", core.TxPaid, []core.Installment{inst(1, 1, core.InstPaid), inst(2, 1, core.InstPending)}, core.TxPaid},
		{"partial kept when unpaid again", core.TxPartial, []core.Installment{inst(1, 1, core.InstPending)}, core.TxPartial},
		{"cancelled is sticky", core.TxCancelled, []core.Installment{inst(1, 1, core.InstPaid)}, core.TxCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReconcileStatus(tc.current, tc.insts); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestIsOverdue(t *testing.T) {
	asOf := core.NewDate(2025, 3, 1)
	cases := []struct {
		name string
		in   core.Installment
		want bool
	}{
		{"pending past due", core.Installment{Status: core.InstPending, DueDate: core.NewDate(2025, 2, 28)}, true},
		{"due today", core.Installment{Status: core.InstPending, DueDate: asOf}, false},
		{"future", core.Installment{Status: core.InstPending, DueDate: core.NewDate(2025, 4, 1)}, false},
		{"paid past due", core.Installment{Status: core.InstPaid, DueDate: core.NewDate(2025, 1, 1)}, false},
		{"stored overdue past due", core.Installment{Status: core.InstOverdue, DueDate: core.NewDate(2025, 1, 1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsOverdue(tc.in, asOf); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	today := core.NewDate(2025, 5, 10)
	explicit := core.NewDate(2025, 5, 1)
	notes := "received by wire"

	got, err := ApplyUpdate(inst(1, 100, core.InstPending), InstallmentUpdate{Status: core.InstPaid}, today)
	if err != nil {
		t.Fatal(err)
	}
	if got.PaidDate == nil || *got.PaidDate != today {
		t.Fatalf("expected paid date to default to today, got %v", got.PaidDate)
	}

	got, err = ApplyUpdate(got, InstallmentUpdate{Status: core.InstPaid}, today.AddDays(3))
	if err != nil {
		t.Fatal(err)
	}
	if *got.PaidDate != today {
		t.Fatalf("expected existing paid date to be kept, got %v", got.PaidDate)
	}

	got, err = ApplyUpdate(inst(1, 100, core.InstPending), InstallmentUpdate{Status: core.InstPaid, PaidDate: &explicit, Notes: &notes}, today)
	if err != nil {
		t.Fatal(err)
	}
	if *got.PaidDate != explicit || got.Notes != notes {
		t.Fatalf("expected explicit date and notes, got %v %q", got.PaidDate, got.Notes)
	}

	if _, err := ApplyUpdate(inst(1, 100, core.InstPending), InstallmentUpdate{Status: "settled"}, today); err == nil {
		t.Fatalf("expected validation error for unknown status")
	}

	memo := "client asked for an extension"
	got, err = ApplyUpdate(inst(1, 100, core.InstPending), InstallmentUpdate{Notes: &memo}, today)
	if err != nil {
		t.Fatalf("notes-only update: %v", err)
	}
	if got.Status != core.InstPending || got.PaidDate != nil || got.Notes != memo {
		t.Fatalf("notes-only update changed more than notes: %+v", got)
	}
}

func TestBuildSchedule(t *testing.T) {
	today := core.NewDate(2025, 1, 1)
	entries := []ScheduleEntry{
		{Amount: core.Money{Cents: 100}, DueDate: core.NewDate(2025, 2, 1)},
		{Amount: core.Money{Cents: 200}, DueDate: core.NewDate(2025, 3, 1), Status: core.InstPaid},
	}
	got, err := BuildSchedule(7, 3, entries, today)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Number != 3 || got[1].Number != 4 {
		t.Fatalf("expected numbers 3 and 4, got %+v", got)
	}
	if got[0].Status != core.InstPending || got[0].TransactionID != 7 {
		t.Fatalf("unexpected first installment %+v", got[0])
	}
	if got[1].PaidDate == nil || *got[1].PaidDate != today {
		t.Fatalf("expected paid entry to be stamped today, got %v", got[1].PaidDate)
	}

	if _, err := BuildSchedule(7, 1, nil, today); err == nil {
		t.Fatalf("expected error for empty schedule")
	}
	if _, err := BuildSchedule(7, 1, []ScheduleEntry{{Amount: core.Money{Cents: 1}}}, today); err == nil {
		t.Fatalf("expected error for missing due date")
	}
	if _, err := BuildSchedule(7, 1, []ScheduleEntry{{Amount: core.Money{Cents: -1}, DueDate: today}}, today); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestParseScheduleCheck(t *testing.T) {
	for in, want := range map[string]ScheduleCheck{"": ScheduleCheckWarn, "OFF": ScheduleCheckOff, "reject": ScheduleCheckReject} {
		got, err := ParseScheduleCheck(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseScheduleCheck("strict"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
