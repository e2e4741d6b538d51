// Package http provides the HTTP interface of the analytics engine.
// All endpoints are read-only: the engine derives every response from the
// event stores and never mutates platform state. Admin endpoints only touch
// the engine's own caches and jobs.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eduflip/eduflip-analytics/config"
	"github.com/eduflip/eduflip-analytics/internal/application/query"
	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/external/identity"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/scheduler"
	"github.com/eduflip/eduflip-analytics/internal/interface/http/handlers"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds HTTP server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// RequestTimeout bounds a single request's context. Must exceed the
	// portfolio aggregation deadline, otherwise partial results turn into
	// gateway timeouts.
	RequestTimeout time.Duration

	// CORS
	AllowedOrigins []string

	// RateLimitPerMinute is the per-IP request budget. Zero disables
	// rate limiting.
	RateLimitPerMinute int

	// Auth
	JWTSecret       string
	AdminAPIKeyHash string
	APIKeyHeader    string

	// Version is reported on the root and health endpoints.
	Version string
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		RequestTimeout:     25 * time.Second,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 120,
		APIKeyHeader:       "X-API-Key",
	}
}

// ConfigFrom builds a server config from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Addr = cfg.HTTP.Addr
	c.ReadTimeout = cfg.HTTP.ReadTimeout
	c.WriteTimeout = cfg.HTTP.WriteTimeout
	c.IdleTimeout = cfg.HTTP.IdleTimeout
	c.ShutdownTimeout = cfg.HTTP.ShutdownTimeout
	c.AllowedOrigins = cfg.HTTP.AllowedOrigins
	c.JWTSecret = cfg.Auth.JWTSecret
	c.AdminAPIKeyHash = cfg.Auth.AdminAPIKeyHash
	c.APIKeyHeader = cfg.Auth.APIKeyHeader
	c.Version = cfg.App.Version

	// Request timeout tracks the aggregation deadline with headroom for
	// fold and serialization.
	if d := cfg.Analytics.AggregationDeadline; d > 0 && c.RequestTimeout <= d {
		c.RequestTimeout = d + 10*time.Second
	}
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies holds everything the server needs to serve requests.
type Dependencies struct {
	// Query handlers
	StudentProgress  *query.GetStudentProgressHandler
	CourseAnalytics  *query.GetCourseAnalyticsHandler
	TeacherPortfolio *query.GetTeacherPortfolioHandler
	Leaderboard      *query.GetLeaderboardHandler

	// Identity client for display enrichment. Optional: nil disables
	// enrichment entirely.
	Identity *identity.Client

	// Scheduler for admin-forced cache warming. Optional.
	Scheduler *scheduler.Scheduler

	// Caches for admin invalidation. Optional.
	CourseCache  analytics.CourseCache
	RankingCache leaderboard.RankingCache

	// Feature flags
	Features *config.FeatureFlags

	// Infrastructure
	Logger *logger.Logger
	Health handlers.HealthChecker
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server of the analytics engine.
type Server struct {
	config    Config
	deps      Dependencies
	log       *logger.Logger
	server    *http.Server
	presenter *Presenter
	bearer    *handlers.BearerAuth
	admin     *handlers.AdminKeyAuth
	limiter   *rateLimiter
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewNoopHealthChecker()
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		log:       log.With(logger.Component("http")),
		presenter: NewPresenter(deps.Identity, deps.Features, log),
		bearer:    handlers.NewBearerAuth(cfg.JWTSecret),
		admin:     handlers.NewAdminKeyAuth(cfg.APIKeyHeader, cfg.AdminAPIKeyHash),
	}

	if cfg.RateLimitPerMinute > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.buildHandler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.String("addr", s.config.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	if s.limiter != nil {
		s.limiter.stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	// Service info and probes
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	mux.HandleFunc("GET /health/live", s.handleLive)

	// Read-only analytics API
	mux.HandleFunc("GET /api/v1/students/{user_id}/courses/{course_id}/progress", s.handleStudentProgress)
	mux.HandleFunc("GET /api/v1/courses/{course_id}/analytics", s.handleCourseAnalytics)
	mux.HandleFunc("GET /api/v1/teachers/{teacher_id}/portfolio", s.handleTeacherPortfolio)

	// Leaderboard: public by default, a bearer token adds the caller's
	// own entry highlight.
	mux.Handle("GET /api/v1/leaderboard",
		s.bearer.OptionalMiddleware(http.HandlerFunc(s.handleLeaderboard)))

	// Admin: cache invalidation and forced warm-ups
	adminChain := handlers.Chain(
		s.admin.Middleware,
		handlers.RequestSizeLimitMiddleware(64<<10),
	)
	mux.Handle("POST /api/v1/admin/cache/invalidate", adminChain(http.HandlerFunc(s.handleAdminInvalidate)))
	mux.Handle("POST /api/v1/admin/jobs/{name}/run", adminChain(http.HandlerFunc(s.handleAdminRunJob)))
	mux.Handle("GET /api/v1/admin/jobs", s.admin.Middleware(http.HandlerFunc(s.handleAdminListJobs)))

	// Middleware chain, applied in reverse order: the first listed runs first.
	var handler http.Handler = mux
	handler = handlers.TimeoutMiddleware(s.config.RequestTimeout)(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = handlers.SecurityHeadersMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.requestIDMiddleware(handler)

	return handler
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// requestIDMiddleware assigns each request a UUID and propagates it through
// the context and the X-Request-ID response header.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each request with latency and status.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.Info("request completed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.status),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Latency(time.Since(start)),
		)
	})
}

// recoveryMiddleware converts handler panics into 500 responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panic",
					logger.String("path", r.URL.Path),
					logger.Any("panic", rec),
					logger.String("stack", string(debug.Stack())),
				)
				s.writeJSONError(w, r, http.StatusInternalServerError,
					"internal_error", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles cross-origin requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+s.config.APIKeyHeader)
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// rateLimitMiddleware enforces the per-IP request budget.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if !s.limiter.allow(ip) {
			w.Header().Set("Retry-After", "60")
			s.writeJSONError(w, r, http.StatusTooManyRequests,
				"rate_limited", "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the uniform response envelope.
type JSONResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	resp := JSONResponse{
		Success:   status < 400,
		Data:      data,
		RequestID: getRequestID(r.Context()),
	}
	writeResponse(w, status, resp)
}

func (s *Server) writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		RequestID: getRequestID(r.Context()),
	}
	writeResponse(w, status, resp)
}

func (s *Server) writeJSONErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	resp := JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		RequestID: getRequestID(r.Context()),
	}
	writeResponse(w, status, resp)
}

func writeResponse(w http.ResponseWriter, status int, resp JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// responseWriter captures the response status for logging.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// getClientIP extracts the client IP, honoring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func getQueryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getQueryBool(r *http.Request, name string) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return false
	}
	b, err := strconv.ParseBool(val)
	return err == nil && b
}

// ══════════════════════════════════════════════════════════════════════════════
// PER-IP RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter is an in-process sliding-window limiter keyed by client IP.
type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	times := rl.requests[key]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.requests[key] = kept
		return false
	}

	rl.requests[key] = append(kept, now)
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, times := range rl.requests {
		kept := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = kept
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}
