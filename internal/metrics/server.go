package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/schedulebot/core/logger"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server serves /metrics and /healthz.
type Server struct {
	addr   string
	checks map[string]HealthCheck
	srv    *http.Server
	ln     net.Listener
}

// NewServer builds a server for addr. checks run on every /healthz request.
func NewServer(addr string, checks map[string]HealthCheck) *Server {
	return &Server{addr: addr, checks: checks}
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	MustRegister()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.health)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	failed := false
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			failed = true
			logger.Warn(r.Context(), logger.CompMetrics, "health.fail",
				slog.String("check", name),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}
	if failed {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, logger.CompMetrics, "metrics.serve", slog.String("err", err.Error()))
		}
	}()
	logger.Info(ctx, logger.CompMetrics, "metrics.start", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address once Start returned.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	logger.Info(ctx, logger.CompMetrics, "metrics.stop", slog.String("status", logger.Status(err)))
	return err
}
