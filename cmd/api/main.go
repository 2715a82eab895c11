// Package main is the entry point for the LaborCurve API server.
//
// It loads configuration, opens the PostgreSQL pool, wires the encounter
// service with its archive publisher and metrics collector, builds the HTTP
// server with the core chassis (middleware, routing, health checks) and
// starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"laborcurve/internal/api/handlers"
	"laborcurve/internal/bundle"
	"laborcurve/internal/config"
	"laborcurve/internal/core"
	"laborcurve/internal/db"
	"laborcurve/internal/encounters"
	"laborcurve/internal/queue"
	"laborcurve/internal/telemetry"
	"laborcurve/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// appDeps are the collaborators built from configuration. Tests substitute
// them to build a server without a database or AWS.
type appDeps struct {
	Repos     encounters.Repos
	Tx        encounters.Transactor
	Archives  handlers.ArchiveReader
	Publisher encounters.ClosedPublisher
	Metrics   core.MetricsCollector
	Probes    []core.HealthProbe
	Closers   []func()
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(config.NewFileProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("laborcurve API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)
	if !cfg.Security.AccessKeyHash.IsSet() {
		logger.Warn("ACCESS_KEY_HASH not set; API access is unauthenticated")
	}

	ctx := context.Background()
	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, logger, deps)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return runHTTPServer(srv, cfg, logger)
}

// buildDeps opens the database pool and, when configured, the SQS and
// CloudWatch clients.
func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (appDeps, error) {
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return appDeps{}, err
	}

	repos := db.NewRepositories(pool)
	deps := appDeps{
		Repos:     encounters.ReposFrom(repos),
		Tx:        encounters.PgTransactor{Store: db.NewStore(pool)},
		Archives:  repos.Archives,
		Publisher: queue.NoopPublisher{Logger: logger},
		Metrics:   telemetry.Noop{},
		Probes:    []core.HealthProbe{core.PingProbe{Label: "database", Target: pool}},
		Closers:   []func(){pool.Close},
	}

	if !cfg.Observability.EnableMetrics && cfg.AWS.ArchiveQueueURL == "" {
		return deps, nil
	}

	awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return appDeps{}, err
	}

	var failures queue.FailureRecorder = telemetry.Noop{}
	if cfg.Observability.EnableMetrics {
		cw := telemetry.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			&slogAdapter{logger: logger},
		)
		deps.Metrics = cw
		failures = cw
	}

	if cfg.AWS.ArchiveQueueURL != "" {
		deps.Publisher = queue.NewArchivePublisher(
			sqs.NewFromConfig(awsCfg),
			cfg.AWS,
			queue.DefaultBreakerSettings(),
			failures,
			logger,
		)
	} else {
		logger.Warn("SQS_ARCHIVE_QUEUE not set; closed encounters will not be archived")
	}

	return deps, nil
}

// newServer builds the encounter service and mounts every handler.
func newServer(cfg *config.Config, logger *slog.Logger, deps appDeps) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.Metrics = deps.Metrics
	srv.HealthProbes = deps.Probes
	srv.Closers = deps.Closers

	svc := encounters.NewService(deps.Repos, deps.Tx, deps.Publisher, nil, logger, encounters.Options{
		DisplayLocation: cfg.DisplayLocation(),
	})

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		handlers.NewEncounterHandler(svc, srv.Validator, logger).RegisterRoutes,
		handlers.NewEventHandler(svc, srv.Validator, logger).RegisterRoutes,
		handlers.NewViewHandler(svc, logger).RegisterRoutes,
		handlers.NewSettingsHandler(svc, logger).RegisterRoutes,
		handlers.NewBundleHandler(svc, deps.Archives, bundle.NewCodec(), cfg.Bundle.MaxImportBytes, logger).RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// DB pool and other resources.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}

var _ types.Logger = (*slogAdapter)(nil)
