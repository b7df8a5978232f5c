package trace

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	applog "lawdesk/internal/log"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	h := NewMiddleware(nil, quietLogger()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/clients", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("expected response header %q, got %q", seen, got)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected handler status to pass through, got %d", rec.Code)
	}
}

func TestMiddlewareHonorsInboundRequestID(t *testing.T) {
	m := NewMiddleware(nil, quietLogger())
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"valid", "abc-123", true},
		{"invalid characters", "abc 123<script>", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.inbound != "" {
				req.Header.Set(HeaderRequestID, tc.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			got := rec.Header().Get(HeaderRequestID)
			if tc.keep && got != tc.inbound {
				t.Fatalf("expected %q to be kept, got %q", tc.inbound, got)
			}
			if !tc.keep && (got == tc.inbound || got == "") {
				t.Fatalf("expected a generated id, got %q", got)
			}
		})
	}

	if m.GetMetrics().TotalRequests != 3 {
		t.Fatalf("expected 3 requests counted, got %d", m.GetMetrics().TotalRequests)
	}
}
