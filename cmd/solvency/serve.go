package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/MikeSquared-Agency/Solvency/internal/api"
	"github.com/MikeSquared-Agency/Solvency/internal/collector"
	"github.com/MikeSquared-Agency/Solvency/internal/config"
	"github.com/MikeSquared-Agency/Solvency/internal/events"
	"github.com/MikeSquared-Agency/Solvency/internal/metrics"
	"github.com/MikeSquared-Agency/Solvency/internal/runner"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

const serverShutdownWait = 10 * time.Second

var serveCmd = &cli.Command{
	Name:   "serve",
	Usage:  "Run the scoring API, event subscriptions and scheduled refresh",
	Action: cmdServe,
}

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, os.Stdout)

	registry, err := config.BuildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build profile registry: %w", err)
	}
	logger.Info("profiles loaded", "versions", registry.Versions(), "default", registry.DefaultVersion())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("connected to database")

	// Events (optional)
	var eventsClient events.Client
	if cfg.Events.URL != "" {
		nc, err := events.NewNATSClient(ctx, cfg.Events.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to nats, running without events", "error", err)
		} else {
			eventsClient = nc
			defer nc.Close()
			logger.Info("connected to nats")
		}
	}

	// Collector (optional)
	var collectorClient collector.Client
	if cfg.Collector.URL != "" {
		collectorClient = collector.NewHTTPClient(cfg.Collector.URL, cfg.Collector.Token, cfg.CollectorTimeout())
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Runner
	rn := runner.New(db, eventsClient, collectorClient, registry, m, cfg, logger)
	rn.SetupSubscriptions(ctx)
	rn.Start(ctx)
	defer rn.Stop()
	if cfg.RefreshInterval() > 0 {
		logger.Info("scheduled refresh enabled", "interval", cfg.RefreshInterval(), "period", cfg.Scoring.RefreshPeriod)
	}

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(db, rn, collectorClient, cfg.Server.AdminToken, logger),
	}
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(reg),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverShutdownWait)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
