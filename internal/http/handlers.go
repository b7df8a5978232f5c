package http

import (
	"context"
	"net/http"
	"time"

	"lawdesk/internal/core"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Field("status", "ok").
		Field("timestamp", time.Now().UTC().Format(time.RFC3339)).
		Field("uptime", time.Since(s.started).Round(time.Second).String()).
		Write(w)
}

// handleReady pings the database
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if err := s.Repo.Ping(ctx); err != nil {
		checks["database"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	rl := s.rateLimiter.GetMetrics()
	sec := s.securityDetector.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": rl.ClientCount,
		"limited":        rl.TotalHits,
	}
	checks["security"] = map[string]any{
		"suspicious_requests": sec.SuspiciousRequests,
	}
	checks["requests"] = s.traceMiddleware.GetMetrics().TotalRequests

	NewJSONResponse().
		Status(code).
		Field("status", status).
		Field("timestamp", time.Now().UTC().Format(time.RFC3339)).
		Field("checks", checks).
		Write(w)
}

// lookup is one static option list served by a lookup endpoint.
type lookup map[string][]core.Option

var (
	roleLookups         = lookup{"roles": core.RoleOptions}
	clientLookups       = lookup{"statuses": core.ClientStatusOptions}
	caseTypeLookups     = lookup{"types": core.CaseTypeOptions}
	caseStatusLookups   = lookup{"statuses": core.CaseStatusOptions}
	leadStatusLookups   = lookup{"statuses": core.LeadStatusOptions}
	leadSourceLookups   = lookup{"sources": core.LeadSourceOptions}
	documentLookups     = lookup{"types": core.DocumentTypeOptions}
	eventTypeLookups    = lookup{"types": core.EventTypeOptions}
	eventStatusLookups  = lookup{"statuses": core.EventStatusOptions}
	templateTypeLookups = lookup{"types": core.TemplateTypeOptions}

	templateCategoryLookups = lookup{"categories": core.TemplateCategoryOptions}

	transactionLookups = lookup{
		"income_categories":    core.IncomeCategoryOptions,
		"expense_categories":   core.ExpenseCategoryOptions,
		"payment_methods":      core.PaymentMethodOptions,
		"transaction_statuses": core.TransactionStatusOptions,
	}
)

func (s *Server) handleLookup(l lookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := NewJSONResponse()
		for k, v := range l {
			b.Field(k, v)
		}
		b.Write(w)
	}
}
