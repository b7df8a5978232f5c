package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name       string
		trustProxy bool
		remote     string
		xff        string
		want       string
	}{
		{"direct", false, "203.0.113.7:1234", "", "203.0.113.7"},
		{"forwarded ignored without trust", false, "10.0.0.2:1234", "198.51.100.1", "10.0.0.2"},
		{"forwarded from trusted proxy", true, "10.0.0.2:1234", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"forwarded from public peer", true, "203.0.113.7:1234", "198.51.100.1", "203.0.113.7"},
		{"garbage forwarded value", true, "127.0.0.1:1", "not-an-ip", "127.0.0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := NewDetector(tc.trustProxy).ExtractClientIP(r); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(false)
	if d.DetectSuspiciousRequest(httptest.NewRequest("GET", "/api/clients?search=ali", nil)) {
		t.Fatal("ordinary request flagged")
	}
	if !d.DetectSuspiciousRequest(httptest.NewRequest("GET", "/.env", nil)) {
		t.Fatal("expected .env probe to be flagged")
	}
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", "sqlmap/1.7")
	if !d.DetectSuspiciousRequest(r) {
		t.Fatal("expected scanner user agent to be flagged")
	}
	if d.GetMetrics().SuspiciousRequests != 2 {
		t.Fatalf("expected 2 suspicious requests, got %d", d.GetMetrics().SuspiciousRequests)
	}
}

func TestInspectRules(t *testing.T) {
	d := NewDetector(false)
	tests := []struct {
		name   string
		method string
		target string
		want   string
	}{
		{"ordinary download", "GET", "/api/documents/12/download", ""},
		{"encoded traversal", "GET", "/api/documents/..%255c..%255cdb/download", "document_name"},
		{"query probe", "GET", "/api/clients?file=../../etc/passwd", "query_probe"},
		{"trace method", "TRACE", "/api/clients", "method"},
		{"path probe", "GET", "/.git/config", "path_probe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Inspect(httptest.NewRequest(tc.method, tc.target, nil)); got != tc.want {
				t.Fatalf("expected rule %q, got %q", tc.want, got)
			}
		})
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS over TLS")
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"https://office.example"})(next)

	req := httptest.NewRequest("GET", "/api/cases", nil)
	req.Header.Set("Origin", "https://office.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://office.example" {
		t.Fatalf("expected allowed origin echoed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("GET", "/api/cases", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unexpected allow origin for unknown origin")
	}

	req = httptest.NewRequest("OPTIONS", "/api/cases", nil)
	req.Header.Set("Origin", "https://office.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("expected preflight 204, got %d", rec.Code)
	}
}
