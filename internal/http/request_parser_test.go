package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"lawdesk/internal/core"
)

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantPage int
		wantPer  int
		wantSort string
		wantDesc bool
	}{
		{"defaults", url.Values{}, 1, 10, "", true},
		{"explicit", url.Values{"page": {"3"}, "per_page": {"25"}, "sort": {"name"}, "order": {"asc"}}, 3, 25, "name", false},
		{"order is case insensitive", url.Values{"order": {"ASC"}}, 1, 10, "", false},
		{"unknown order means desc", url.Values{"order": {"sideways"}}, 1, 10, "", true},
		{"per_page capped", url.Values{"per_page": {"5000"}}, 1, 100, "", true},
		{"invalid numbers ignored", url.Values{"page": {"abc"}, "per_page": {"-4"}}, 1, 10, "", true},
		{"zero page ignored", url.Values{"page": {"0"}}, 1, 10, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lq := ParseListQuery(tt.query, 10)
			if lq.Page.Number != tt.wantPage {
				t.Errorf("page = %d, want %d", lq.Page.Number, tt.wantPage)
			}
			if lq.Page.PerPage != tt.wantPer {
				t.Errorf("per_page = %d, want %d", lq.Page.PerPage, tt.wantPer)
			}
			if lq.Sort.Column != tt.wantSort {
				t.Errorf("sort = %q, want %q", lq.Sort.Column, tt.wantSort)
			}
			if lq.Sort.Desc != tt.wantDesc {
				t.Errorf("desc = %v, want %v", lq.Sort.Desc, tt.wantDesc)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.value)
			got, err := PathID(req, "id")
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("PathID = %d, %v; want %d", got, err, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name   string      `json:"name"`
		Count  int         `json:"count"`
		Amount *core.Money `json:"amount"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"name":"a","count":2,"amount":"12.50"}`, nil},
		{"empty body", ``, nil},
		{"syntax error", `{"name":`, core.ErrValidation},
		{"wrong type", `{"count":"two"}`, core.ErrValidation},
		{"bad amount", `{"amount":"ten"}`, core.ErrInvalidAmount},
		{"too large", `{"name":"` + strings.Repeat("x", maxJSONBody) + `"}`, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSONValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount": 1234.5}`))
	var p struct {
		Amount core.Money `json:"amount"`
	}
	if err := DecodeJSON(httptest.NewRecorder(), req, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Amount.Cents != 123450 {
		t.Fatalf("cents = %d, want 123450", p.Amount.Cents)
	}
}

func TestRequestParserKeepsFirstError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?client_id=x&start_date=2025-13-40&active=maybe&days=7&search=+ada+", nil)
	p := NewRequestParser(req)

	if id := p.Int64("client_id"); id != nil {
		t.Errorf("client_id = %v, want nil", *id)
	}
	p.Date("start_date")
	p.Bool("active")
	if days := p.Int("days", 3); days != 7 {
		t.Errorf("days = %d, want 7", days)
	}
	if s := p.String("search"); s != "ada" {
		t.Errorf("search = %q, want %q", s, "ada")
	}

	var verr *core.ValidationError
	if !errors.As(p.Err(), &verr) || verr.Field != "client_id" {
		t.Fatalf("expected client_id validation error, got %v", p.Err())
	}
}

func TestQueryHelpersAbsentValues(t *testing.T) {
	q := url.Values{}
	if v, err := QueryInt64(q, "id"); v != nil || err != nil {
		t.Errorf("QueryInt64 = %v, %v", v, err)
	}
	if v, err := QueryInt(q, "days", 9); v != 9 || err != nil {
		t.Errorf("QueryInt = %d, %v", v, err)
	}
	if v, err := QueryBool(q, "flag"); v != nil || err != nil {
		t.Errorf("QueryBool = %v, %v", v, err)
	}
	if v, err := QueryDate(q, "d"); v != nil || err != nil {
		t.Errorf("QueryDate = %v, %v", v, err)
	}
	if v, err := QueryDateTime(q, "t"); v != nil || err != nil {
		t.Errorf("QueryDateTime = %v, %v", v, err)
	}
}

func TestQueryDate(t *testing.T) {
	q := url.Values{"d": {"2025-06-15"}}
	d, err := QueryDate(q, "d")
	if err != nil {
		t.Fatalf("QueryDate: %v", err)
	}
	if d.String() != "2025-06-15" {
		t.Fatalf("date = %s", d)
	}
}

func TestQueryDateOrNil(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-06-15", "2025-06-15"},
		{"2025-06-15T10:00:00Z", "2025-06-15"},
		{"2025-06-15T22:00:00-03:00", "2025-06-16"},
		{"garbage", ""},
		{"", ""},
	}
	for _, tc := range cases {
		d := QueryDateOrNil(url.Values{"d": {tc.in}}, "d")
		got := ""
		if d != nil {
			got = d.String()
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}
