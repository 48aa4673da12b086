// Package http exposes the JSON API: expense CRUD, budgets, recurring
// templates, the analytics report and account management. Requests are
// authenticated by the X-User-ID header set by the fronting proxy.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/services"
)

type Server struct {
	http.Server

	ledger       *services.Ledger
	budgets      *services.Budgets
	materializer *services.Materializer
	analytics    *services.Analytics
	users        *services.Users
	log          *applog.Logger

	limiter *rateLimiter

	// reportCache memoizes analytics reports per user and month between
	// mutations.
	reportCache *cache.LRU[*core.AnalyticsReport]

	shutdownOnce sync.Once
}

// Options wires the services and tuning knobs into the server.
type Options struct {
	Addr               string
	Ledger             *services.Ledger
	Budgets            *services.Budgets
	Materializer       *services.Materializer
	Analytics          *services.Analytics
	Users              *services.Users
	Logger             *applog.Logger
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
	RateLimitPerMinute int
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:       opts.Ledger,
		budgets:      opts.Budgets,
		materializer: opts.Materializer,
		analytics:    opts.Analytics,
		users:        opts.Users,
		log:          opts.Logger.WithComponent(applog.ComponentHTTP),
		limiter:      newRateLimiter(opts.RateLimitPerMinute),
		reportCache:  cache.NewLRU[*core.AnalyticsReport](opts.ReportCacheSize, opts.ReportCacheTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/register", s.wrap(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.wrap(s.handleLogin))
	mux.HandleFunc("GET /api/users", s.wrap(s.handleListUsers))
	mux.HandleFunc("POST /api/users/{id}/promote", s.wrap(s.handlePromote))
	mux.HandleFunc("POST /api/users/{id}/demote", s.wrap(s.handleDemote))

	mux.HandleFunc("GET /api/categories", s.wrap(s.handleListCategories))

	mux.HandleFunc("GET /api/expenses", s.wrap(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.wrap(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.wrap(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.wrap(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.wrap(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/budgets", s.wrap(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.wrap(s.handleSetBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.wrap(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/status", s.wrap(s.handleBudgetStatus))

	mux.HandleFunc("GET /api/recurring", s.wrap(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.wrap(s.handleCreateRecurring))
	mux.HandleFunc("POST /api/recurring/{id}/toggle", s.wrap(s.handleToggleRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.wrap(s.handleDeleteRecurring))

	mux.HandleFunc("GET /api/analytics", s.wrap(s.handleAnalytics))

	return s
}

// wrap adds request tracing, security headers, request logging and rate
// limiting on mutating methods.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		clientIP := clientIP(r)

		logger := s.log.With(
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ctx := context.WithValue(r.Context(), loggerKey{}, logger)
		r = r.WithContext(ctx)

		if isMutating(r.Method) && !s.limiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) reportCacheKey(userID int64, month core.Month) string {
	return strconv.FormatInt(userID, 10) + "|" + month.String()
}

// invalidateReport drops the cached report for the month a mutation
// touched, plus the current month whose report always reflects the
// latest twelve-month series.
func (s *Server) invalidateReport(userID int64, months ...core.Month) {
	seen := map[string]bool{}
	for _, m := range append(months, core.MonthOf(time.Now())) {
		key := s.reportCacheKey(userID, m)
		if !seen[key] {
			s.reportCache.Delete(key)
			seen[key] = true
		}
	}
}

// Shutdown stops the rate limiter janitor and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
