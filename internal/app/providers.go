package app

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/releasarr/internal/api"
	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/controllers"
	"github.com/amaumene/releasarr/internal/jobs"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/scheduler"
	"github.com/amaumene/releasarr/internal/tracing"
	"github.com/amaumene/releasarr/internal/utils"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// App holds every long-lived component of the process
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *models.Database
	Metrics    *metrics.Metrics
	Queue      *jobs.Queue
	Import     *controllers.ImportController
	Cleanup    *controllers.CleanupController
	ShowSync   *controllers.ShowSyncController
	Enrichment *controllers.EnrichmentController
	Scheduler  *scheduler.Scheduler
	Server     *api.Server
}

// ProvideLogger builds the process logger from config
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// ProvideDatabase opens the database; the cleanup closes it
func ProvideDatabase(cfg *config.Config, logger zerolog.Logger) (*models.Database, func(), error) {
	db, err := models.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info().Str("driver", cfg.DatabaseDriver).Msg("Database initialized")
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}, nil
}

// ProvideTracerProvider builds the span pipeline; the cleanup flushes it
func ProvideTracerProvider(cfg *config.Config, logger zerolog.Logger) (*sdktrace.TracerProvider, func()) {
	tp := tracing.NewProvider(logger, cfg.TraceSampleRatio)
	return tp, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down tracer provider")
		}
	}
}

// ProvideTracer returns the pipeline tracer
func ProvideTracer(tp *sdktrace.TracerProvider) trace.Tracer {
	return tracing.Tracer(tp)
}

// ProvideQueue builds the enrichment queue from config
func ProvideQueue(cfg *config.Config, runner jobs.Runner, m *metrics.Metrics, tracer trace.Tracer, logger zerolog.Logger) *jobs.Queue {
	return jobs.NewQueue(runner, jobs.QueueOptions{
		Workers:    cfg.EnrichWorkers,
		Size:       cfg.EnrichQueueSize,
		DedupTTL:   cfg.EnrichDedupTTL,
		RetryStep:  cfg.RetryBaseDelay,
		MaxRetries: cfg.MaxRetries,
	}, m, tracer, logger)
}
