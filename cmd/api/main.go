// Package main is the entry point for the movie collection API server.
//
// It loads configuration, opens and migrates the account store, wires the
// verifier, quota ledger, catalog client and collection service into the
// core chassis, and serves HTTP until SIGINT or SIGTERM.
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

	"golang.org/x/sync/errgroup"

	"moviesvc/internal/api/handlers"
	"moviesvc/internal/auth"
	"moviesvc/internal/config"
	"moviesvc/internal/core"
	"moviesvc/internal/db"
	"moviesvc/internal/external"
	"moviesvc/internal/metrics"
	"moviesvc/internal/movies"
	"moviesvc/internal/quota"
	"moviesvc/internal/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("movies API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return serve(ctx, app, cfg, logger)
}

// app is the fully wired process: the HTTP chassis plus background workers.
type app struct {
	server    *core.Server
	collector *metrics.CloudWatchCollector
}

// buildApp opens the store and wires every component. On error any opened
// resources are released.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := db.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = store.Close()
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	if cfg.Store.SeedDefaults {
		created, err := db.SeedDefaultAccounts(ctx, store.Accounts, types.RealClock{}.Now())
		if err != nil {
			return nil, fmt.Errorf("seeding default accounts: %w", err)
		}
		if len(created) > 0 {
			logger.Info("seeded default accounts", "identities", created)
		}
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.OnShutdown(func(context.Context) error { return store.Close() })

	var collector *metrics.CloudWatchCollector
	var recorder movies.LookupRecorder
	if cfg.Metrics.Enabled {
		client, err := metrics.NewCloudWatchClient(ctx, cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("creating cloudwatch client: %w", err)
		}
		collector = metrics.NewCloudWatchCollector(client, cfg.Metrics.Namespace, logger)
		srv.Metrics = collector
		recorder = collector
		srv.OnShutdown(collector.Close)
	}

	service := movies.NewService(movies.ServiceConfig{
		Store:         store.Accounts,
		Catalog:       external.NewOMDbClient(nil, cfg.Catalog, logger),
		Ledger:        quota.NewLedger(quota.NewRegistry(cfg.Quota), logger),
		Validator:     srv.Validator,
		Recorder:      recorder,
		Logger:        logger,
		AutoProvision: cfg.Accounts.AutoProvision,
	})

	srv.Verifier = auth.NewVerifier(cfg.Auth)
	srv.HealthProbes = []core.HealthProbe{store.Probe}
	srv.RouteRegistrars = append(srv.RouteRegistrars,
		handlers.NewMoviesHandler(service, logger).RegisterRoutes,
	)
	srv.MountRoutes()

	ok = true
	return &app{server: srv, collector: collector}, nil
}

// serve runs the HTTP server and the metrics flusher until ctx is cancelled
// or one of them fails, then shuts down with a 10-second deadline.
func serve(ctx context.Context, a *app, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.Server.RequestTimeout > 0 {
		httpServer.WriteTimeout = cfg.Server.RequestTimeout + 5*time.Second
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if a.collector != nil {
		g.Go(func() error { return a.collector.Run(gCtx) })
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
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
