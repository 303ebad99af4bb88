package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/services/extractor"
	"github.com/amaumene/releasarr/internal/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errEmptyPage = errors.New("listing page came back empty")

// ReleaseSource supplies pages of the countdown listing
type ReleaseSource interface {
	ExtractReleases(ctx context.Context, page int) []extractor.ReleaseRecord
}

// ImportController walks the countdown listing and reconciles every record
type ImportController struct {
	source      ReleaseSource
	reconciler  *Reconciler
	maxPages    int
	horizonDays int
	retrier     utils.Retrier
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	logger      zerolog.Logger

	// Now and Timer are replaced in tests
	Now   func() time.Time
	Timer backoff.Timer
}

// NewImportController creates a new import controller
func NewImportController(cfg *config.Config, source ReleaseSource, reconciler *Reconciler, m *metrics.Metrics, tracer trace.Tracer, logger zerolog.Logger) *ImportController {
	return &ImportController{
		source:      source,
		reconciler:  reconciler,
		maxPages:    cfg.ImportMaxPages,
		horizonDays: cfg.ImportHorizonDays,
		retrier:     utils.Retrier{Step: cfg.RetryBaseDelay, MaxRetries: cfg.MaxRetries},
		metrics:     m,
		tracer:      tracer,
		logger:      logger.With().Str("component", "import").Logger(),
		Now:         time.Now,
	}
}

// ImportUpcomingReleases imports pages until the listing runs dry, moves past
// the horizon or hits the page limit. Per record failures are counted, not
// returned.
func (c *ImportController) ImportUpcomingReleases(ctx context.Context) (models.ImportStats, error) {
	var stats models.ImportStats
	runID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "import.run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	now := c.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := start.AddDate(0, 0, c.horizonDays)
	log := c.logger.With().Str("run_id", runID).Logger()
	log.Info().Time("cutoff", cutoff).Int("max_pages", c.maxPages).Msg("Starting release import")

	for page := 1; page <= c.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}

		records := c.fetchPage(ctx, log, page)
		if len(records) == 0 {
			log.Info().Int("page", page).Msg("No releases returned, stopping")
			break
		}
		if allBeyond(records, cutoff) {
			log.Info().Int("page", page).Msg("Page is past the import horizon, stopping")
			break
		}

		c.importPage(ctx, log, page, records, cutoff, &stats)
		c.metrics.ImportPages.Inc()
	}

	c.metrics.ImportRuns.Inc()
	span.SetAttributes(
		attribute.Int("stats.imported", stats.Imported),
		attribute.Int("stats.skipped", stats.Skipped),
		attribute.Int("stats.errors", stats.Errors),
	)
	log.Info().
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("Release import completed")
	return stats, nil
}

// fetchPage asks for a page until it comes back non-empty or the retries
// run out
func (c *ImportController) fetchPage(ctx context.Context, log zerolog.Logger, page int) []extractor.ReleaseRecord {
	var records []extractor.ReleaseRecord
	retrier := c.retrier
	retrier.Timer = c.Timer

	attempt := 0
	err := retrier.Do(func() error {
		attempt++
		records = c.source.ExtractReleases(ctx, page)
		if len(records) == 0 {
			return errEmptyPage
		}
		return nil
	}, func(_ error, wait time.Duration) {
		log.Warn().Int("page", page).Int("attempt", attempt).Dur("retry_in", wait).Msg("Empty listing page, retrying")
	})
	if err != nil {
		return nil
	}
	return records
}

func (c *ImportController) importPage(ctx context.Context, log zerolog.Logger, page int, records []extractor.ReleaseRecord, cutoff time.Time, stats *models.ImportStats) {
	ctx, span := c.tracer.Start(ctx, "import.page", trace.WithAttributes(
		attribute.Int("page", page),
		attribute.Int("records", len(records)),
	))
	defer span.End()

	for i, rec := range records {
		if rec.Err == nil {
			if d, err := utils.ParseAirDate(rec.Date); err == nil && d.After(cutoff) {
				stats.Skipped++
				c.metrics.ImportRecords.WithLabelValues("skipped").Inc()
				continue
			}
		}

		outcome, err := c.importRecord(ctx, rec)
		if err != nil {
			stats.Errors++
			c.metrics.ImportRecords.WithLabelValues("error").Inc()
			log.Warn().Err(err).Int("page", page).Int("index", i).Str("show_id", string(rec.ShowID)).Msg("Failed to import release")
			continue
		}
		stats.Record(outcome)
		c.metrics.ImportRecords.WithLabelValues(string(outcome)).Inc()
	}
}

func (c *ImportController) importRecord(ctx context.Context, rec extractor.ReleaseRecord) (models.Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "import.record", trace.WithAttributes(
		attribute.String("show.id", string(rec.ShowID)),
		attribute.String("episode.id", string(rec.EpisodeID)),
	))
	defer span.End()

	outcome, err := c.reconciler.Reconcile(ctx, rec)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	return outcome, nil
}

// allBeyond reports whether every record airs after cutoff. Records whose
// date can't be read count as within the horizon.
func allBeyond(records []extractor.ReleaseRecord, cutoff time.Time) bool {
	for _, rec := range records {
		if rec.Err != nil {
			return false
		}
		d, err := utils.ParseAirDate(rec.Date)
		if err != nil || !d.After(cutoff) {
			return false
		}
	}
	return true
}
