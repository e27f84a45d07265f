// Package web provides the HTTP server for ledger import, export, restore
// and backup operations.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/config"
	"github.com/JonMunkholm/ledgersync/internal/core"
	appmw "github.com/JonMunkholm/ledgersync/internal/web/middleware"
)

// Importer runs imports, restores and clears.
type Importer interface {
	ImportWorkbook(ctx context.Context, sheets core.SheetRows) (*core.ImportResult, error)
	ImportKind(ctx context.Context, kind core.EntityKind, rows []core.Row) (*core.ImportResult, error)
	Restore(ctx context.Context, sheets core.SheetRows) (*core.ImportResult, error)
	ClearAll(ctx context.Context) (*core.ImportResult, error)
}

// Exporter encodes the full dataset as a workbook.
type Exporter interface {
	Workbook(ctx context.Context) ([]byte, string, error)
}

// Decoder parses uploaded workbooks.
type Decoder interface {
	Decode(data []byte) (core.SheetRows, error)
}

// Backup syncs to and restores from remote storage.
type Backup interface {
	Sync(ctx context.Context) (*backup.SyncResult, error)
	Restore(ctx context.Context) (*core.ImportResult, error)
}

// Deps are the collaborators a Server dispatches to.
type Deps struct {
	Importer Importer
	Exporter Exporter
	Decoder  Decoder
	Backup   Backup
	Session  *backup.SessionStore
	Progress *core.ProgressTracker
	Limiter  *core.OperationLimiter

	// ContentType is sent with workbook downloads.
	ContentType string
}

// Server is the HTTP server.
type Server struct {
	cfg      *config.Config
	deps     Deps
	router   *chi.Mux
	server   *http.Server
	stopOnce sync.Once
	stop     chan struct{}
}

// NewServer creates a Server with its routes mounted.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = core.NewOperationLimiter(cfg.Import.OperationWait)
	}
	if deps.Progress == nil {
		deps.Progress = core.NewProgressTracker(cfg.Import.ProgressResetDelay)
	}
	if deps.ContentType == "" {
		deps.ContentType = "application/octet-stream"
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		stop:   make(chan struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // 0 keeps SSE streams open
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(appmw.Metrics)
	s.router.Use(middleware.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute, s.stop)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(appmw.APIKeyAuth(&s.cfg.Security))

		// Long running operations are bounded by IMPORT_TIMEOUT instead.
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Post("/import/{kind}", s.handleImportKind)
		r.Post("/restore", s.handleRestore)
		r.Post("/clear", s.handleClear)
		r.Post("/backup/sync", s.handleBackupSync)
		r.Post("/backup/restore", s.handleBackupRestore)
		r.Get("/operations/current/progress", s.handleProgress)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			r.Get("/operations/current", s.handleCurrentOperation)
			r.Get("/backup/session", s.handleGetSession)
			r.Put("/backup/session", s.handlePutSession)
			r.Delete("/backup/session", s.handleDeleteSession)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then waits for the running operation
// to finish before closing remaining connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.server.SetKeepAlivesEnabled(false)
	if err := s.deps.Limiter.WaitForDrain(ctx); err != nil {
		slog.Warn("shutdown: operation still running", "operation", s.deps.Limiter.Current(), "error", err)
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
// Stale visitors are swept until stop is closed.
func newRateLimiter(rate int, window time.Duration, stop <-chan struct{}) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup(stop)
	return rl
}

// cleanup removes stale visitor entries every window.
func (rl *rateLimiter) cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1,
			lastReset: time.Now(),
		}
		return true
	}

	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
// RemoteAddr is already rewritten by TrustedRealIP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.UserMessage{
				Message: "Too many requests",
				Action:  "Wait a minute before retrying",
				Code:    "HTTP429",
			}, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
