// Package http exposes the JSON API: account registration and token auth,
// transaction CRUD, query resolution, and chart data endpoints.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finquery/internal/auth"
	"finquery/internal/backend"
	"finquery/internal/cache"
	"finquery/internal/core"
	applog "finquery/internal/log"
	"finquery/internal/query"
)

type Server struct {
	http.Server
	backend     backend.Backend
	engine      *query.Engine
	tokens      *auth.TokenIssuer
	rateLimiter *rateLimiter

	logger  *applog.Logger
	httpLog *applog.StructuredLogger

	// Chart responses are cached per owner; writes invalidate.
	categoryChartCache *cache.LRUCache[core.ChartData]
	timeChartCache     *cache.LRUCache[core.ChartData]

	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, b backend.Backend, engine *query.Engine, tokens *auth.TokenIssuer) *Server {
	mux := http.NewServeMux()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentHTTP
	logger := applog.New(logCfg)

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		backend:            b,
		engine:             engine,
		tokens:             tokens,
		rateLimiter:        newRateLimiter(),
		logger:             logger,
		httpLog:            applog.NewStructuredLogger(logger),
		categoryChartCache: cache.NewLRUCache[core.ChartData](500, 5*time.Minute),
		timeChartCache:     cache.NewLRUCache[core.ChartData](500, 5*time.Minute),
		cacheManager:       cache.NewManager(),
	}

	s.cacheManager.Register(s.categoryChartCache)
	s.cacheManager.Register(s.timeChartCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("POST /token", s.withMiddleware(s.handleToken))
	mux.HandleFunc("GET /users/me", s.withMiddleware(s.requireAuth(s.handleMe)))
	mux.HandleFunc("DELETE /users/me", s.withMiddleware(s.requireAuth(s.handleDeleteMe)))

	mux.HandleFunc("POST /transactions", s.withMiddleware(s.requireAuth(s.handleCreateTransaction)))
	mux.HandleFunc("GET /transactions", s.withMiddleware(s.requireAuth(s.handleListTransactions)))
	mux.HandleFunc("DELETE /transactions/{id}", s.withMiddleware(s.requireAuth(s.handleDeleteTransaction)))

	mux.HandleFunc("POST /query", s.withMiddleware(s.requireAuth(s.handleQuery)))

	mux.HandleFunc("GET /plot/spending_by_category", s.withMiddleware(s.requireAuth(s.handleCategoryChart)))
	mux.HandleFunc("GET /plot/spending_over_time", s.withMiddleware(s.requireAuth(s.handleTimeChart)))

	return s
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		logger := s.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		ctx = applog.WithLogger(ctx, logger)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, ip, requestID)

		// Rate-limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, ip,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip, requestID)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const requestIDContextKey contextKey = "request_id"

// invalidateCharts drops both chart cache entries for an owner. Called on
// every write to the owner's ledger.
func (s *Server) invalidateCharts(owner string) {
	s.categoryChartCache.Delete(owner)
	s.timeChartCache.Delete(owner)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
