package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/releasarr/internal/jobs"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/services/extractor"
	"github.com/amaumene/releasarr/internal/utils"
	"github.com/rs/zerolog"
)

// ErrUnspecifiedBroadcaster is returned when a record names neither or both
// broadcaster kinds
var ErrUnspecifiedBroadcaster = errors.New("record has no single broadcaster")

// Scheduler accepts enrichment jobs
type Scheduler interface {
	Schedule(kind jobs.Kind, externalID string) error
}

// RecordError reports a release record that cannot be reconciled as sent
type RecordError struct {
	Field string
	Value string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("bad record field %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Reconciler turns scraped release records into persisted entities,
// creating placeholders for anything not yet known.
type Reconciler struct {
	db        *models.Database
	scheduler Scheduler
	logger    zerolog.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(db *models.Database, scheduler Scheduler, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		db:        db,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile persists one release record and reports whether a new release
// was stored. Date and time are checked before anything is written.
func (r *Reconciler) Reconcile(ctx context.Context, rec extractor.ReleaseRecord) (models.Outcome, error) {
	if rec.Err != nil {
		return "", rec.Err
	}

	ref := models.NewBroadcasterRef(string(rec.NetworkID), string(rec.WebChannelID), rec.NetworkName, rec.WebChannelName)
	if !ref.Specified() {
		r.logger.Debug().
			Str("show_id", string(rec.ShowID)).
			Str("network_id", string(rec.NetworkID)).
			Str("web_channel_id", string(rec.WebChannelID)).
			Msg("Skipping record without a single broadcaster")
		return models.OutcomeSkipped, nil
	}

	if rec.ShowID == "" {
		return "", &RecordError{Field: "show_id", Err: errors.New("missing")}
	}
	if rec.EpisodeID == "" {
		return "", &RecordError{Field: "episode_id", Err: errors.New("missing")}
	}
	airDate, err := utils.ParseAirDate(rec.Date)
	if err != nil {
		return "", &RecordError{Field: "date", Value: rec.Date, Err: err}
	}
	airTime, err := utils.ParseAirTime(rec.Time)
	if err != nil {
		return "", &RecordError{Field: "time", Value: rec.Time, Err: err}
	}

	broadcaster, err := r.ResolveBroadcaster(ctx, ref)
	if err != nil {
		return "", err
	}
	show, err := r.ResolveShow(ctx, string(rec.ShowID), broadcaster)
	if err != nil {
		return "", err
	}
	episode, err := r.ResolveEpisode(ctx, string(rec.EpisodeID), show)
	if err != nil {
		return "", err
	}

	_, outcome, err := r.db.ResolveRelease(ctx, episode, airDate, airTime)
	if err != nil {
		return "", fmt.Errorf("failed to store release: %w", err)
	}
	return outcome, nil
}

// ResolveBroadcaster returns the broadcaster ref points at. An unknown id is
// matched by its name hint first, then stored as a placeholder.
func (r *Reconciler) ResolveBroadcaster(ctx context.Context, ref models.BroadcasterRef) (*models.Broadcaster, error) {
	if !ref.Specified() {
		return nil, ErrUnspecifiedBroadcaster
	}

	existing, err := r.db.FindBroadcaster(ctx, ref.Kind, ref.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up %s %s: %w", ref.Kind, ref.ExternalID, err)
	}

	if utils.NormalizeName(ref.NameHint) != "" {
		resolver := utils.NameResolver[*models.Broadcaster]{
			Store:  &broadcasterNames{db: r.db, kind: ref.Kind, externalID: ref.ExternalID},
			NameOf: func(b *models.Broadcaster) string { return b.Name },
		}
		b, created, err := resolver.FindOrCreate(ctx, ref.NameHint)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s %q: %w", ref.Kind, ref.NameHint, err)
		}
		if !created && b.ExternalID != ref.ExternalID {
			r.logger.Debug().
				Str("kind", string(ref.Kind)).
				Str("hint", ref.NameHint).
				Str("matched", b.Name).
				Str("matched_id", b.ExternalID).
				Msg("Reusing broadcaster matched by name")
		}
		return b, nil
	}

	b, _, err := r.db.CreateBroadcaster(ctx, ref.Kind, ref.ExternalID, models.PlaceholderName(ref.Kind, ref.ExternalID))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s %s: %w", ref.Kind, ref.ExternalID, err)
	}
	return b, nil
}

// ResolveShow finds or creates a show under b and schedules whatever still
// needs enrichment
func (r *Reconciler) ResolveShow(ctx context.Context, externalID string, b *models.Broadcaster) (*models.Show, error) {
	show, created, err := r.db.ResolveShow(ctx, externalID, b)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve show %s: %w", externalID, err)
	}
	if created || !show.Enriched {
		r.schedule(jobs.KindShow, externalID)
	}
	if created || !b.Enriched {
		r.schedule(jobs.KindFor(b.Kind), b.ExternalID)
	}
	return show, nil
}

// ResolveEpisode finds or creates an episode of show
func (r *Reconciler) ResolveEpisode(ctx context.Context, externalID string, show *models.Show) (*models.Episode, error) {
	episode, created, err := r.db.ResolveEpisode(ctx, externalID, show)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve episode %s: %w", externalID, err)
	}
	if created || !episode.Enriched {
		r.schedule(jobs.KindEpisode, externalID)
	}
	return episode, nil
}

func (r *Reconciler) schedule(kind jobs.Kind, externalID string) {
	if err := r.scheduler.Schedule(kind, externalID); err != nil {
		r.logger.Warn().Err(err).Str("kind", string(kind)).Str("external_id", externalID).Msg("Failed to schedule enrichment")
	}
}

// broadcasterNames adapts one broadcaster table to utils.NameStore. New rows
// take the external id of the record being reconciled.
type broadcasterNames struct {
	db         *models.Database
	kind       models.BroadcasterKind
	externalID string
}

func (s *broadcasterNames) FindByName(ctx context.Context, name string) (*models.Broadcaster, bool, error) {
	b, err := s.db.FindBroadcasterByName(ctx, s.kind, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *broadcasterNames) List(ctx context.Context) ([]*models.Broadcaster, error) {
	rows, err := s.db.ListBroadcasters(ctx, s.kind)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Broadcaster, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (s *broadcasterNames) Create(ctx context.Context, name string) (*models.Broadcaster, error) {
	b, _, err := s.db.CreateBroadcaster(ctx, s.kind, s.externalID, name)
	return b, err
}
