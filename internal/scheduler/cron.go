package scheduler

import (
	"context"
	"fmt"

	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the import, cleanup and enrichment sweep on cron schedules
type Scheduler struct {
	cron           *cron.Cron
	cfg            *config.Config
	importCtrl     *controllers.ImportController
	cleanupCtrl    *controllers.CleanupController
	enrichmentCtrl *controllers.EnrichmentController
	logger         zerolog.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(
	cfg *config.Config,
	importCtrl *controllers.ImportController,
	cleanupCtrl *controllers.CleanupController,
	enrichmentCtrl *controllers.EnrichmentController,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		// a slow import must not overlap the next one
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:            cfg,
		importCtrl:     importCtrl,
		cleanupCtrl:    cleanupCtrl,
		enrichmentCtrl: enrichmentCtrl,
		logger:         logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().Msg("Starting scheduler")

	entries := []struct {
		name     string
		schedule string
		run      func(context.Context)
	}{
		{"import", s.cfg.ImportSchedule, s.runImport},
		{"cleanup", s.cfg.CleanupSchedule, s.runCleanup},
		{"enrich-pending", s.cfg.EnrichSchedule, s.runEnrichPending},
	}
	for _, e := range entries {
		run := e.run
		if _, err := s.cron.AddFunc(e.schedule, func() { run(ctx) }); err != nil {
			return fmt.Errorf("failed to add %s job: %w", e.name, err)
		}
		s.logger.Info().Str("job", e.name).Str("schedule", e.schedule).Msg("Job scheduled")
	}

	s.cron.Start()
	s.logger.Info().Msg("Scheduler started")

	// Run an initial import immediately
	go s.runImport(ctx)

	return nil
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runImport(ctx context.Context) {
	s.logger.Info().Msg("Running scheduled import")
	stats, err := s.importCtrl.ImportUpcomingReleases(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Import job failed")
		return
	}
	s.logger.Info().
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("Import job completed")
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	s.logger.Info().Msg("Running scheduled cleanup")
	if _, err := s.cleanupCtrl.CleanupReleases(ctx, s.cfg.CleanupDays); err != nil {
		s.logger.Error().Err(err).Msg("Cleanup job failed")
	}
}

func (s *Scheduler) runEnrichPending(ctx context.Context) {
	s.logger.Debug().Msg("Running pending enrichment sweep")
	if _, err := s.enrichmentCtrl.SchedulePending(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Pending enrichment sweep failed")
	}
}
