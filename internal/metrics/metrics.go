// Package metrics holds the Prometheus collectors shared by the API server
// and the workers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lawdesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "ledger_operations_total",
		Help:      "Committed ledger mutations by operation.",
	}, []string{"operation"})

	InstallmentUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "installment_updates_total",
		Help:      "Installment status updates by resulting status.",
	}, []string{"status"})

	BackupRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "backup_runs_total",
		Help:      "Backup job runs by result.",
	}, []string{"result"})

	OutboxProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "ledger_outbox_processed_total",
		Help:      "Ledger outbox entries mirrored, by result.",
	}, []string{"result"})

	SuspiciousRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "suspicious_requests_total",
		Help:      "Requests flagged by the security detector, by rule.",
	}, []string{"rule"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lawdesk",
		Name:      "notifications_sent_total",
		Help:      "Notifications sent by kind and result.",
	}, []string{"kind", "result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency. The route label is the
// matched ServeMux pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
