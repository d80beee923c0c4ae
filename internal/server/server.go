package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"licman/internal/history"
	"licman/internal/supervisor"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 30 * time.Second

	// ShutdownTimeout bounds the graceful shutdown after the context ends.
	ShutdownTimeout = 5 * time.Second

	// Rate limiting - requests per minute per client IP
	StatusRateLimit = 60
)

// EventReader is the part of the history store the server reads.
type EventReader interface {
	GetLatestEvent(ctx context.Context, target string) (*history.Event, error)
	GetHistory(ctx context.Context, target string, limit int) ([]history.Event, error)
	GetLatestByTarget(ctx context.Context) (map[string]*history.Event, error)
}

// Server represents the HTTP server
type Server struct {
	Registry *supervisor.Registry
	History  EventReader // optional
	Logger   *slog.Logger

	// Alive probes a PID. Defaults to supervisor.ProcessAlive.
	Alive func(pid int) bool

	// TestMode disables rate limiting.
	TestMode bool
}

// NewServer creates a new server instance
func NewServer(registry *supervisor.Registry, hist EventReader, logger *slog.Logger) *Server {
	return &Server{
		Registry: registry,
		History:  hist,
		Logger:   logger,
		Alive:    supervisor.ProcessAlive,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	if !s.TestMode {
		r.Use(s.limitClients(StatusRateLimit))
	}

	// Routes
	r.Get("/health", s.HandleHealth)
	r.Get("/status", s.HandleStatusAll)
	r.Get("/status/{group}", s.HandleStatus)

	return r
}

// Serve listens on host:port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Logger.Info("Shutting down server", "addr", addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
