package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{".", 0, false},
		{",", 0, false},
		{".5", 50, true},
		{"1.٣", 0, false},
		{"٣", 0, false},
		{"9999999999999.99", 999999999999999, true},
		{"9999999999999.995", 0, false},
		{"10000000000000", 0, false},
		{"90000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountRejectsNonFinite(t *testing.T) {
	for _, in := range []string{"NaN", "Inf", "1e400", "-1e2"} {
		if _, err := ParseAmount(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", in, err)
		}
	}
	m, err := ParseAmount("1.5e3")
	if err != nil || m.Cents != 150000 {
		t.Fatalf("expected 150000 cents, got %d (err=%v)", m.Cents, err)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Money{Cents: 120050}, Money{Cents: -5}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":1200.50,"b":-0.05}` {
		t.Fatalf("unexpected json %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":1200.5,"b":"99,99"}`), &in); err != nil {
		t.Fatal(err)
	}
	if in.A.Cents != 120050 || in.B.Cents != 9999 {
		t.Fatalf("unexpected values %d %d", in.A.Cents, in.B.Cents)
	}

	if err := json.Unmarshal([]byte(`{"a":-10}`), &in); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
}

func TestAmountUpperBound(t *testing.T) {
	cases := []struct {
		name  string
		money Money
		ok    bool
	}{
		{"zero", Money{}, true},
		{"largest", Money{Cents: MaxAmountCents - 1}, true},
		{"limit", Money{Cents: MaxAmountCents}, false},
		{"negative", Money{Cents: -1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.money.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
		})
	}

	if _, err := ParseAmount("1e13"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for 1e13, got %v", err)
	}
	if _, err := MoneyFromFloat(1e13); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount at the limit, got %v", err)
	}

	var in struct {
		A Money `json:"a"`
	}
	if err := json.Unmarshal([]byte(`{"a":"90000000000000000"}`), &in); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for oversized amount, got %v", err)
	}
}
