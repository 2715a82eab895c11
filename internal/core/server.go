// Package core provides the HTTP chassis for the LaborCurve API. It builds a
// chi router, applies the cross-cutting middleware (recovery, request IDs,
// logging, metrics, access-key auth) and leaves route registration to the
// handler packages via V1RouteRegistrars.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"laborcurve/internal/config"
)

// Server encapsulates the dependencies of the API router.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars mount domain routes under /v1. Populated by main so
	// that core never imports the handler packages.
	V1RouteRegistrars []RouteRegistrar

	// Closers are released in order by Shutdown.
	Closers []func()

	router *chi.Mux
}

// NewServer validates the required dependencies and creates an empty router.
// Callers mount routes with MountRoutes once registrars are set.
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

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi.Mux for tests and custom registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases resources registered in Closers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")
	for _, c := range s.Closers {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("shutdown interrupted: %w", err)
		}
		c()
	}
	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}
