// Package http exposes the JSON API and the live dashboard stream.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"finease/internal/auth"
	"finease/internal/cache"
	"finease/internal/ledger"
	applog "finease/internal/log"
	"finease/internal/services"
)

// Options configures the API server.
type Options struct {
	Addr            string
	StreamHeartbeat time.Duration
	CacheTTL        time.Duration
	CacheCapacity   int
	Logger          *applog.Logger
}

type Server struct {
	http.Server
	records  *services.RecordService
	gateway  ledger.Gateway
	provider auth.Provider
	logs     *applog.StructuredLogger

	rateLimiter *rateLimiter
	heartbeat   time.Duration

	// LRU cache for dashboard projections, keyed per owner
	dashCache *cache.LRUCache[dashboardResponse]
	caches    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, gw ledger.Gateway, records *services.RecordService, provider auth.Provider) *Server {
	if opts.StreamHeartbeat <= 0 {
		opts.StreamHeartbeat = 30 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = 256
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		records:     records,
		gateway:     gw,
		provider:    provider,
		logs:        applog.NewStructuredLogger(opts.Logger.WithComponent(applog.ComponentHTTP)),
		rateLimiter: newRateLimiter(),
		heartbeat:   opts.StreamHeartbeat,
		dashCache:   cache.NewLRUCache[dashboardResponse](opts.CacheCapacity, opts.CacheTTL),
		caches:      cache.NewManager(),
	}

	s.caches.Register(s.dashCache)
	s.caches.StartCleanup(10 * time.Minute)

	chain := func(h http.HandlerFunc) http.HandlerFunc {
		return s.withCommon(s.withAuth(h))
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/me", chain(s.handleMe))
	mux.HandleFunc("/api/records", chain(s.handleRecords))
	mux.HandleFunc("/api/records/", chain(s.handleRecordByID))
	mux.HandleFunc("/api/dashboard", chain(s.handleDashboard))
	mux.HandleFunc("/api/report", chain(s.handleReport))
	mux.HandleFunc("/api/stream", s.withCommon(s.withAuth(s.handleStream)))

	handler := applog.Middleware(opts.Logger)(mux)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			return id
		}
		return uuid.NewString()
	})(handler)
	s.Server.Handler = handler

	return s
}

// withCommon adds client IP extraction, request logging, security headers
// and rate limiting for mutating methods.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		s.logs.LogHTTPStart(r.Context(), r, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logs.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// withAuth resolves the bearer credential to an identity and stores it in
// the request context. Requests without a valid identity never reach the
// handler.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "missing bearer token", nil)
			return
		}

		id, err := s.provider.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "invalid credentials", nil)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next(w, r.WithContext(ctx))
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
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

// Flush forwards to the wrapped writer so streaming handlers keep working.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.gateway.List(r.Context(), "readyz-probe"); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "store unavailable", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
