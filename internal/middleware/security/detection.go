package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"

	"lawdesk/internal/metrics"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector handles suspicious request detection and client IP extraction
type Detector struct {
	metrics        *DetectionMetrics
	trustProxy     bool
	trustedProxies []*net.IPNet
}

// NewDetector creates a new security detector. Forwarding headers are only
// read when trustProxy is set and the peer is a private or loopback address.
func NewDetector(trustProxy bool) *Detector {
	return &Detector{
		metrics:    &DetectionMetrics{},
		trustProxy: trustProxy,
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),    // localhost
			parseCIDR("::1/128"),        // localhost
			parseCIDR("10.0.0.0/8"),     // private networks
			parseCIDR("172.16.0.0/12"),  // private networks
			parseCIDR("192.168.0.0/16"), // private networks
		},
	}
}

// parseCIDR is a helper to parse CIDR during initialization
func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

var (
	probePatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents  = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab", "scanner"}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// rule names a check and reports whether r trips it.
type rule struct {
	name  string
	match func(r *http.Request) bool
}

var rules = []rule{
	{"path_probe", func(r *http.Request) bool { return containsAny(strings.ToLower(r.URL.Path), probePatterns) }},
	{"query_probe", func(r *http.Request) bool { return containsAny(strings.ToLower(r.URL.RawQuery), probePatterns) }},
	{"scanner_agent", func(r *http.Request) bool {
		return containsAny(strings.ToLower(r.Header.Get("User-Agent")), scannerAgents)
	}},
	{"method", func(r *http.Request) bool { return slices.Contains(unusualMethods, r.Method) }},
	{"long_url", func(r *http.Request) bool { return len(r.URL.String()) > 2048 }},
	{"proxy_chain", func(r *http.Request) bool {
		// More than five hops alongside X-Real-IP suggests forged forwarding headers.
		return r.Header.Get("X-Real-IP") != "" && strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
	}},
	{"document_name", func(r *http.Request) bool {
		// Document ids are numeric, so a backslash or a surviving percent sign is a traversal attempt.
		name, ok := strings.CutPrefix(r.URL.Path, "/api/documents/")
		return ok && strings.ContainsAny(strings.TrimSuffix(name, "/download"), "\\%")
	}},
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Inspect returns the name of the first rule r trips, or "" when it looks ordinary.
func (d *Detector) Inspect(r *http.Request) string {
	for _, rl := range rules {
		if rl.match(r) {
			atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
			metrics.SuspiciousRequests.WithLabelValues(rl.name).Inc()
			return rl.name
		}
	}
	return ""
}

// DetectSuspiciousRequest reports whether any rule matches r.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.Inspect(r) != ""
}

// ExtractClientIP extracts the real client IP, validating forwarded headers
func (d *Detector) ExtractClientIP(r *http.Request) string {
	// Start with the direct connection IP
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use RemoteAddr as-is (fallback)
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
		return directIP
	}

	if d.trustProxy && d.isTrustedProxy(parsedDirectIP) {
		// Check X-Forwarded-For header (most common)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// X-Forwarded-For can contain multiple IPs, take the first one
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				clientIP := strings.TrimSpace(ips[0])
				if parsedIP := net.ParseIP(clientIP); parsedIP != nil {
					return clientIP
				}
			}
		}

		// Check X-Real-IP header (nginx)
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if parsedIP := net.ParseIP(xri); parsedIP != nil {
				return xri
			}
		}
	}

	// Return direct IP if no valid forwarded IP found
	return directIP
}

// isTrustedProxy checks if an IP is from a trusted proxy
func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		InvalidIPAttempts:  atomic.LoadInt64(&d.metrics.InvalidIPAttempts),
	}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}

	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// Middleware logs suspicious requests and lets them through; the auth gate
// and handlers decide what they may do.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Inspect(r); reason != "" {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"component", "security",
				"rule", reason,
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}
