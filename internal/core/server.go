// Package core provides the HTTP chassis for the movie collection service.
// It builds a chi router and enforces cross-cutting concerns (panic recovery,
// request IDs, logging, metrics, authentication and error formatting) before
// requests reach domain handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"moviesvc/internal/config"
)

// Server encapsulates all dependencies for the API, allowing for easy
// injection during testing.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector
	Verifier  TokenVerifier

	// HealthProbes are checked concurrently by GET /health.
	HealthProbes []HealthProbe

	// RouteRegistrars are mounted under /movies behind AuthMiddleware.
	RouteRegistrars []RouteRegistrar

	closers []func(context.Context) error
	router  *chi.Mux
}

// NewServer validates its inputs and prepares an empty router. The caller
// mounts routes with MountRoutes after setting the optional dependencies.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// OnShutdown registers a cleanup function run by Shutdown in reverse
// registration order.
func (s *Server) OnShutdown(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// Shutdown releases the resources registered with OnShutdown. Every closer
// runs even if an earlier one fails; the errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.Logger.Error("error during shutdown", "error", err)
			errs = append(errs, err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
