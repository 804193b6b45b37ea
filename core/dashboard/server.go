// Package dashboard serves a read-only HTTP view of the monitor: the change
// log, recent events, scheduler status and prometheus metrics.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/adalundhe/dirsentry/core/change"
	"github.com/adalundhe/dirsentry/core/monitor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ShutdownTimeout bounds graceful shutdown once the serve context is done.
const ShutdownTimeout = 5 * time.Second

// StatusSource exposes scheduler state without touching its internals.
type StatusSource interface {
	State() monitor.State
	Cycles() uint64
	LastReport() *monitor.Report
}

// EventSource returns recently emitted events, oldest first.
type EventSource interface {
	Recent(limit int) []change.Event
}

// Config holds server configuration.
type Config struct {
	Addr     string
	Roots    []string
	Interval time.Duration
	LogPath  string
	Status   StatusSource
	Events   EventSource
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	cfg    Config
	router *chi.Mux
	logger *slog.Logger
}

// New returns an initialized server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLogger(s.logger))

	r.Get("/api/logs", s.handleLogs)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/status", s.handleStatus)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

// Router returns the underlying router, useful for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func accessLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("dashboard request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxTo, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxTo); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
