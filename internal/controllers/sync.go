package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/releasarr/internal/jobs"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/services/extractor"
	"github.com/rs/zerolog"
)

const syncBatchSize = 100

// ShowDetailSource fetches fresh show details
type ShowDetailSource interface {
	ExtractShow(ctx context.Context, externalID string) *extractor.ShowDetails
}

// ShowSyncController refreshes stored shows from their detail pages,
// moving a show to the broadcaster the page now names
type ShowSyncController struct {
	db        *models.Database
	source    ShowDetailSource
	scheduler Scheduler
	logger    zerolog.Logger
}

// NewShowSyncController creates a new show sync controller
func NewShowSyncController(db *models.Database, source ShowDetailSource, scheduler Scheduler, logger zerolog.Logger) *ShowSyncController {
	return &ShowSyncController{
		db:        db,
		source:    source,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "show_sync").Logger(),
	}
}

// Sync refreshes one show. It returns OutcomeSkipped when no details could
// be fetched.
func (c *ShowSyncController) Sync(ctx context.Context, show *models.Show) (models.Outcome, error) {
	details := c.source.ExtractShow(ctx, show.ExternalID)
	if details == nil {
		return models.OutcomeSkipped, nil
	}

	target, err := c.broadcasterFor(ctx, show, details)
	if err != nil {
		return "", err
	}

	jobs.ApplyShowDetails(show, details)
	if err := c.db.ReassignShow(ctx, show, target); err != nil {
		return "", fmt.Errorf("failed to save show %s: %w", show.ExternalID, err)
	}

	if !target.Enriched {
		if err := c.scheduler.Schedule(jobs.KindFor(target.Kind), target.ExternalID); err != nil {
			c.logger.Warn().Err(err).Str("external_id", target.ExternalID).Msg("Failed to schedule broadcaster enrichment")
		}
	}
	return models.OutcomeImported, nil
}

// broadcasterFor picks the broadcaster named by details, web channel first,
// falling back to the show's current one
func (c *ShowSyncController) broadcasterFor(ctx context.Context, show *models.Show, details *extractor.ShowDetails) (*models.Broadcaster, error) {
	var kind models.BroadcasterKind
	var externalID string
	switch {
	case details.WebChannelID != "":
		kind, externalID = models.BroadcasterWebChannel, string(details.WebChannelID)
	case details.NetworkID != "":
		kind, externalID = models.BroadcasterNetwork, string(details.NetworkID)
	default:
		current, id := show.Broadcaster()
		b, err := c.db.GetBroadcaster(ctx, current, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load broadcaster of show %s: %w", show.ExternalID, err)
		}
		return b, nil
	}

	b, err := c.db.FindBroadcaster(ctx, kind, externalID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	b, _, err = c.db.CreateBroadcaster(ctx, kind, externalID, models.PlaceholderName(kind, externalID))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %s: %w", kind, externalID, err)
	}
	return b, nil
}

// SyncAll refreshes every show in batches
func (c *ShowSyncController) SyncAll(ctx context.Context) (models.SyncStats, error) {
	var stats models.SyncStats
	c.logger.Info().Msg("Starting show sync")

	err := c.db.ShowsInBatches(ctx, syncBatchSize, func(batch []models.Show) error {
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			show := batch[i]
			outcome, err := c.Sync(ctx, &show)
			switch {
			case err != nil:
				stats.Errors++
				c.logger.Error().Err(err).Uint("show", show.ID).Str("external_id", show.ExternalID).Msg("Failed to sync show")
			case outcome == models.OutcomeSkipped:
				stats.Skipped++
			default:
				stats.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("show sync interrupted: %w", err)
	}

	c.logger.Info().
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("Show sync completed")
	return stats, nil
}
