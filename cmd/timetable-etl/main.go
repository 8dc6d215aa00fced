package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-timetable-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/flight-timetable-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flight-timetable-etl/internal/app"
	"github.com/couchcryptid/flight-timetable-etl/internal/config"
	"github.com/couchcryptid/flight-timetable-etl/internal/observability"
	"github.com/couchcryptid/flight-timetable-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources, err := app.BuildSources(ctx, cfg, clock, metrics, logger)
	if err != nil {
		logger.Error("failed to initialize providers", "error", err)
		os.Exit(1)
	}
	if len(sources.Providers) == 0 {
		logger.Warn("no providers configured, timetables will be empty")
	}

	reconciler := pipeline.NewReconciler(sources.Providers, pipeline.ReconcilerConfig{
		Airport:         cfg.Airport(),
		Policy:          cfg.Policy(),
		ProviderTimeout: cfg.ProviderTimeout,
	}, clock, metrics, logger)

	readiness := sources.Readiness

	// Periodic publishing is feature-flagged via KAFKA_BROKERS.
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reconciler, writer, cfg.RefreshInterval, clock, logger, metrics)
		readiness = append(readiness, p)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("timetable publishing enabled", "topic", cfg.KafkaTopic, "interval", cfg.RefreshInterval)
	} else {
		logger.Info("timetable publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, reconciler, readiness, httpadapter.Options{
		RequestTimeout:     cfg.RequestTimeout,
		DefaultWindowHours: cfg.DefaultWindowHours,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		Clock:              clock,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := sources.Close(); err != nil {
		logger.Error("provider close error", "error", err)
	}

	logger.Info("shutdown complete")
}
