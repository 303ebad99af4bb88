package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/releasarr/internal/jobs"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/rs/zerolog"
)

// EnrichmentController re-queues entities that are still placeholders,
// picking up jobs that were lost or gave up earlier
type EnrichmentController struct {
	db        *models.Database
	scheduler Scheduler
	logger    zerolog.Logger
}

// NewEnrichmentController creates a new enrichment controller
func NewEnrichmentController(db *models.Database, scheduler Scheduler, logger zerolog.Logger) *EnrichmentController {
	return &EnrichmentController{
		db:        db,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "enrichment").Logger(),
	}
}

// SchedulePending queues every unenriched entity and returns how many jobs
// were accepted. It stops early when the queue fills up.
func (c *EnrichmentController) SchedulePending(ctx context.Context) (int, error) {
	sources := []struct {
		kind jobs.Kind
		list func(context.Context) ([]string, error)
	}{
		{jobs.KindNetwork, func(ctx context.Context) ([]string, error) {
			return c.db.ListUnenrichedBroadcasters(ctx, models.BroadcasterNetwork)
		}},
		{jobs.KindWebChannel, func(ctx context.Context) ([]string, error) {
			return c.db.ListUnenrichedBroadcasters(ctx, models.BroadcasterWebChannel)
		}},
		{jobs.KindShow, c.db.ListUnenrichedShows},
		{jobs.KindEpisode, c.db.ListUnenrichedEpisodes},
	}

	scheduled := 0
	for _, src := range sources {
		ids, err := src.list(ctx)
		if err != nil {
			return scheduled, fmt.Errorf("failed to list pending %s: %w", src.kind, err)
		}
		for _, id := range ids {
			err := c.scheduler.Schedule(src.kind, id)
			if errors.Is(err, jobs.ErrQueueFull) {
				c.logger.Warn().Int("scheduled", scheduled).Msg("Queue full, remaining placeholders wait for the next sweep")
				return scheduled, nil
			}
			if err != nil {
				return scheduled, err
			}
			scheduled++
		}
		if len(ids) > 0 {
			c.logger.Info().Str("kind", string(src.kind)).Int("count", len(ids)).Msg("Scheduled pending enrichments")
		}
	}
	return scheduled, nil
}
