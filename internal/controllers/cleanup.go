package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/rs/zerolog"
)

// CleanupController removes releases that have already aired
type CleanupController struct {
	db      *models.Database
	metrics *metrics.Metrics
	logger  zerolog.Logger

	Now func() time.Time
}

// NewCleanupController creates a new cleanup controller
func NewCleanupController(db *models.Database, m *metrics.Metrics, logger zerolog.Logger) *CleanupController {
	return &CleanupController{
		db:      db,
		metrics: m,
		logger:  logger.With().Str("component", "cleanup").Logger(),
		Now:     time.Now,
	}
}

// CleanupReleases deletes releases that aired more than days days ago.
// Shows, episodes and broadcasters are kept.
func (c *CleanupController) CleanupReleases(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must not be negative, got %d", days)
	}

	now := c.Now().UTC()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
	c.logger.Info().Time("cutoff", cutoff).Msg("Starting release cleanup")

	deleted, err := c.db.DeleteReleasesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old releases: %w", err)
	}

	c.metrics.ReleasesDeleted.Add(float64(deleted))
	c.logger.Info().Int64("deleted", deleted).Msg("Release cleanup completed")
	return deleted, nil
}
