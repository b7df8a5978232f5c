package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lawdesk/internal/auth"
	"lawdesk/internal/backup"
	"lawdesk/internal/ledger"
	applog "lawdesk/internal/log"
	"lawdesk/internal/metrics"
	"lawdesk/internal/middleware/ratelimit"
	"lawdesk/internal/middleware/security"
	"lawdesk/internal/middleware/trace"
	"lawdesk/internal/services"
	"lawdesk/internal/storage"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	CORSOrigins    []string
	ItemsPerPage   int
	RateLimitRPS   float64
	RateLimitBurst int
	TrustProxy     bool
	MaxUploadBytes int64
}

// Deps are the services the handlers call into.
type Deps struct {
	Repo      *storage.SQLiteRepository
	Policy    *auth.Policy
	JWT       *auth.JWTManager
	Users     *services.UserService
	Clients   *services.ClientService
	Cases     *services.CaseService
	Ledger    *ledger.Service
	Leads     *services.LeadService
	Documents *services.DocumentService
	Calendar  *services.CalendarService
	Templates *services.TemplateService
	Dashboard *services.DashboardService
	Backups   *backup.Job
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	Deps

	cfg              Config
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.ItemsPerPage <= 0 {
		cfg.ItemsPerPage = services.DefaultPerPage
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		Deps:             deps,
		cfg:              cfg,
		securityDetector: security.NewDetector(cfg.TrustProxy),
		started:          time.Now(),
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, deps.Logger.WithComponent(applog.ComponentHTTP))

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = metrics.Middleware(mux)
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(h)
	h = s.securityDetector.Middleware(h)
	h = security.CORS(cfg.CORSOrigins)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(deps.Logger)(h)
	h = s.traceMiddleware.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// protected requires a valid access token.
func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return auth.Middleware(s.JWT, s.Repo)(h)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	// Auth
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.Handle("POST /api/auth/logout", s.protected(s.handleLogout))
	mux.Handle("GET /api/auth/me", s.protected(s.handleMe))
	mux.Handle("POST /api/auth/change-password", s.protected(s.handleChangePassword))

	// Users
	mux.Handle("GET /api/users", s.protected(s.handleListUsers))
	mux.Handle("POST /api/users", s.protected(s.handleCreateUser))
	mux.Handle("GET /api/users/roles", s.protected(s.handleLookup(roleLookups)))
	mux.Handle("GET /api/users/lawyers", s.protected(s.handleListLawyers))
	mux.Handle("GET /api/users/{id}", s.protected(s.handleGetUser))
	mux.Handle("PUT /api/users/{id}", s.protected(s.handleUpdateUser))
	mux.Handle("DELETE /api/users/{id}", s.protected(s.handleDeleteUser))

	// Clients
	mux.Handle("GET /api/clients", s.protected(s.handleListClients))
	mux.Handle("POST /api/clients", s.protected(s.handleCreateClient))
	mux.Handle("GET /api/clients/statuses", s.protected(s.handleLookup(clientLookups)))
	mux.Handle("GET /api/clients/{id}", s.protected(s.handleGetClient))
	mux.Handle("PUT /api/clients/{id}", s.protected(s.handleUpdateClient))
	mux.Handle("DELETE /api/clients/{id}", s.protected(s.handleDeleteClient))
	mux.Handle("GET /api/clients/{id}/cases", s.protected(s.handleClientCases))
	mux.Handle("GET /api/clients/{id}/transactions", s.protected(s.handleClientTransactions))

	// Cases
	mux.Handle("GET /api/cases", s.protected(s.handleListCases))
	mux.Handle("POST /api/cases", s.protected(s.handleCreateCase))
	mux.Handle("GET /api/cases/types", s.protected(s.handleLookup(caseTypeLookups)))
	mux.Handle("GET /api/cases/statuses", s.protected(s.handleLookup(caseStatusLookups)))
	mux.Handle("GET /api/cases/{id}", s.protected(s.handleGetCase))
	mux.Handle("PUT /api/cases/{id}", s.protected(s.handleUpdateCase))
	mux.Handle("DELETE /api/cases/{id}", s.protected(s.handleDeleteCase))

	// Transactions
	mux.Handle("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.Handle("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.Handle("GET /api/transactions/report", s.protected(s.handleReport))
	mux.Handle("GET /api/transactions/categories", s.protected(s.handleLookup(transactionLookups)))
	mux.Handle("GET /api/transactions/installments/overdue", s.protected(s.handleOverdueInstallments))
	mux.Handle("GET /api/transactions/{id}", s.protected(s.handleGetTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))
	mux.Handle("GET /api/transactions/{id}/installments", s.protected(s.handleListInstallments))
	mux.Handle("POST /api/transactions/{id}/installments", s.protected(s.handleAppendInstallments))
	mux.Handle("PUT /api/transactions/{id}/installments/{instId}", s.protected(s.handleUpdateInstallment))

	// Leads
	mux.Handle("GET /api/leads", s.protected(s.handleListLeads))
	mux.Handle("POST /api/leads", s.protected(s.handleCreateLead))
	mux.Handle("GET /api/leads/statuses", s.protected(s.handleLookup(leadStatusLookups)))
	mux.Handle("GET /api/leads/sources", s.protected(s.handleLookup(leadSourceLookups)))
	mux.Handle("GET /api/leads/{id}", s.protected(s.handleGetLead))
	mux.Handle("PUT /api/leads/{id}", s.protected(s.handleUpdateLead))
	mux.Handle("DELETE /api/leads/{id}", s.protected(s.handleDeleteLead))
	mux.Handle("POST /api/leads/{id}/convert", s.protected(s.handleConvertLead))

	// Documents
	mux.Handle("GET /api/documents", s.protected(s.handleListDocuments))
	mux.Handle("POST /api/documents/upload", s.protected(s.handleUploadDocument))
	mux.Handle("GET /api/documents/types", s.protected(s.handleLookup(documentLookups)))
	mux.Handle("GET /api/documents/{id}", s.protected(s.handleGetDocument))
	mux.Handle("GET /api/documents/{id}/download", s.protected(s.handleDownloadDocument))
	mux.Handle("PUT /api/documents/{id}", s.protected(s.handleUpdateDocument))
	mux.Handle("DELETE /api/documents/{id}", s.protected(s.handleDeleteDocument))

	// Calendar
	mux.Handle("GET /api/calendar/events", s.protected(s.handleListEvents))
	mux.Handle("POST /api/calendar/events", s.protected(s.handleCreateEvent))
	mux.Handle("GET /api/calendar/events/{id}", s.protected(s.handleGetEvent))
	mux.Handle("PUT /api/calendar/events/{id}", s.protected(s.handleUpdateEvent))
	mux.Handle("DELETE /api/calendar/events/{id}", s.protected(s.handleDeleteEvent))
	mux.Handle("GET /api/calendar/upcoming", s.protected(s.handleUpcomingEvents))
	mux.Handle("GET /api/calendar/types", s.protected(s.handleLookup(eventTypeLookups)))
	mux.Handle("GET /api/calendar/statuses", s.protected(s.handleLookup(eventStatusLookups)))

	// Templates
	mux.Handle("GET /api/templates", s.protected(s.handleListTemplates))
	mux.Handle("POST /api/templates", s.protected(s.handleCreateTemplate))
	mux.Handle("GET /api/templates/types", s.protected(s.handleLookup(templateTypeLookups)))
	mux.Handle("GET /api/templates/categories", s.protected(s.handleLookup(templateCategoryLookups)))
	mux.Handle("GET /api/templates/{id}", s.protected(s.handleGetTemplate))
	mux.Handle("PUT /api/templates/{id}", s.protected(s.handleUpdateTemplate))
	mux.Handle("DELETE /api/templates/{id}", s.protected(s.handleDeleteTemplate))
	mux.Handle("POST /api/templates/{id}/render", s.protected(s.handleRenderTemplate))

	// Dashboard
	mux.Handle("GET /api/dashboard/stats", s.protected(s.handleDashboardStats))

	// Admin
	mux.Handle("POST /api/admin/backups", s.protected(s.handleRunBackup))
	mux.Handle("GET /api/admin/backups", s.protected(s.handleListBackups))
	mux.Handle("GET /api/admin/outbox", s.protected(s.handleListOutbox))
	mux.Handle("POST /api/admin/outbox/retry", s.protected(s.handleRetryOutbox))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("resource not found").Write(w)
	})
}
