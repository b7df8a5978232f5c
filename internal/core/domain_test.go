package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be valid, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParseDateTimeNormalizesToUTC(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-01T10:00:00Z":      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		"2025-03-01T12:00:00+02:00": time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		"2025-03-01T10:00":          time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		"2025-03-01":                time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, err := ParseDateTime(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseDateTime("yesterday"); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D  Date  `json:"d"`
		P  *Date `json:"p"`
		DT Date  `json:"dt"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-01-15","p":null,"dt":"2025-01-15T23:30:00Z"}`), &v); err != nil {
		t.Fatal(err)
	}
	if !v.D.Equal(NewDate(2025, 1, 15).Time) || v.P != nil || !v.DT.Equal(NewDate(2025, 1, 15).Time) {
		t.Fatalf("unexpected decode %+v", v)
	}
	b, _ := json.Marshal(v)
	if string(b) != `{"d":"2025-01-15","p":null,"dt":"2025-01-15"}` {
		t.Fatalf("unexpected encode %s", b)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Income,
		Category: "case_fee",
		Amount:   Money{Cents: 100},
		Currency: DefaultCurrency,
		Date:     NewDate(2025, 1, 1),
		Status:   TxPending,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := []func(tx *Transaction){
		func(tx *Transaction) { tx.Type = "gift" },
		func(tx *Transaction) { tx.Category = "court_expense" },
		func(tx *Transaction) { tx.Amount = Money{Cents: -1} },
		func(tx *Transaction) { tx.Currency = "" },
		func(tx *Transaction) { tx.Status = "overdue" },
		func(tx *Transaction) { tx.PaymentMethod = "barter" },
	}
	for i, mutate := range bad {
		tx := good
		mutate(&tx)
		err := tx.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	if !errors.Is(NotFound("client", 1), ErrNotFound) {
		t.Fatal("NotFoundError should match ErrNotFound")
	}
	if !errors.Is(Conflict("dup"), ErrConflict) {
		t.Fatal("ConflictError should match ErrConflict")
	}
	if !errors.Is(Forbidden("no"), ErrAuthorization) {
		t.Fatal("AuthorizationError should match ErrAuthorization")
	}
	err := Invalid("amount", ErrInvalidAmount)
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrInvalidAmount) {
		t.Fatal("Invalid should match both ErrValidation and the wrapped error")
	}
}

func TestCaseStatusIsActive(t *testing.T) {
	for _, s := range ActiveCaseStatuses() {
		if !s.IsActive() {
			t.Fatalf("%s should be active", s)
		}
	}
	for _, s := range []CaseStatus{CaseWon, CaseLost, CaseSettled, CaseClosed} {
		if s.IsActive() {
			t.Fatalf("%s should not be active", s)
		}
	}
}
