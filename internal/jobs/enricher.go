package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amaumene/releasarr/internal/models"
	"github.com/amaumene/releasarr/internal/services/extractor"
	"github.com/amaumene/releasarr/internal/utils"
	"github.com/rs/zerolog"
)

// Kind names the entity an enrichment job fills in
type Kind string

const (
	KindNetwork    Kind = "network"
	KindWebChannel Kind = "web_channel"
	KindShow       Kind = "show"
	KindEpisode    Kind = "episode"
)

// KindFor maps a broadcaster kind to its enrichment job kind
func KindFor(b models.BroadcasterKind) Kind {
	if b == models.BroadcasterWebChannel {
		return KindWebChannel
	}
	return KindNetwork
}

// Job is one unit of enrichment work
type Job struct {
	ID         string
	Kind       Kind
	ExternalID string
}

// DetailSource fetches entity details. Nil means nothing usable came back.
type DetailSource interface {
	ExtractShow(ctx context.Context, externalID string) *extractor.ShowDetails
	ExtractEpisode(ctx context.Context, externalID string) *extractor.EpisodeDetails
	ExtractNetwork(ctx context.Context, externalID string) *extractor.NetworkDetails
	ExtractWebChannel(ctx context.Context, externalID string) *extractor.WebChannelDetails
}

// Enricher applies fetched details to placeholder entities. Every apply is
// idempotent, so running a job twice only rewrites the same values.
type Enricher struct {
	db     *models.Database
	source DetailSource
	logger zerolog.Logger
}

// NewEnricher creates a new enricher
func NewEnricher(db *models.Database, source DetailSource, logger zerolog.Logger) *Enricher {
	return &Enricher{
		db:     db,
		source: source,
		logger: logger.With().Str("component", "enricher").Logger(),
	}
}

// Run dispatches job to the matching enrichment
func (e *Enricher) Run(ctx context.Context, job Job) error {
	switch job.Kind {
	case KindNetwork:
		return e.EnrichNetwork(ctx, job.ExternalID)
	case KindWebChannel:
		return e.EnrichWebChannel(ctx, job.ExternalID)
	case KindShow:
		return e.EnrichShow(ctx, job.ExternalID)
	case KindEpisode:
		return e.EnrichEpisode(ctx, job.ExternalID)
	default:
		return &models.ValidationError{Entity: "job", Field: "kind", Reason: fmt.Sprintf("%q is unknown", job.Kind)}
	}
}

// EnrichNetwork fills in a network from its detail page
func (e *Enricher) EnrichNetwork(ctx context.Context, externalID string) error {
	network, err := e.db.GetNetwork(ctx, externalID)
	if errors.Is(err, models.ErrNotFound) {
		e.logger.Debug().Str("network_id", externalID).Msg("Network gone, nothing to enrich")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load network: %w", err)
	}

	details := e.source.ExtractNetwork(ctx, externalID)
	if details == nil {
		e.logger.Info().Str("network_id", externalID).Msg("No network data returned")
		return nil
	}

	if code := strings.TrimSpace(details.CountryCode); code != "" {
		country, err := e.db.ResolveCountry(ctx, code, "")
		if err != nil {
			return fmt.Errorf("failed to resolve country %s: %w", code, err)
		}
		network.CountryID = &country.ID
	}

	name, err := e.pickName(ctx, models.BroadcasterNetwork, network.ID, network.Name, details.Name)
	if err != nil {
		return err
	}
	network.Name = name
	network.Description = strings.TrimSpace(details.Description)
	network.TimeZone = strings.TrimSpace(details.TimeZone)
	network.OfficialSiteURL = strings.TrimSpace(details.OfficialURL)
	network.Enriched = true

	if err := e.db.SaveNetwork(ctx, network); err != nil {
		return fmt.Errorf("failed to save network: %w", err)
	}

	e.logger.Info().Str("network_id", externalID).Str("name", network.Name).Msg("Network enriched")
	return nil
}

// EnrichWebChannel fills in a web channel from its detail page
func (e *Enricher) EnrichWebChannel(ctx context.Context, externalID string) error {
	channel, err := e.db.GetWebChannel(ctx, externalID)
	if errors.Is(err, models.ErrNotFound) {
		e.logger.Debug().Str("web_channel_id", externalID).Msg("Web channel gone, nothing to enrich")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load web channel: %w", err)
	}

	details := e.source.ExtractWebChannel(ctx, externalID)
	if details == nil {
		e.logger.Info().Str("web_channel_id", externalID).Msg("No web channel data returned")
		return nil
	}

	name, err := e.pickName(ctx, models.BroadcasterWebChannel, channel.ID, channel.Name, details.Name)
	if err != nil {
		return err
	}
	channel.Name = name
	channel.Description = strings.TrimSpace(details.Description)
	channel.TimeZone = strings.TrimSpace(details.TimeZone)
	channel.OfficialSiteURL = strings.TrimSpace(details.OfficialURL)
	channel.Enriched = true

	if err := e.db.SaveWebChannel(ctx, channel); err != nil {
		return fmt.Errorf("failed to save web channel: %w", err)
	}

	e.logger.Info().Str("web_channel_id", externalID).Str("name", channel.Name).Msg("Web channel enriched")
	return nil
}

// pickName returns the normalized fetched name, or current when the fetched
// one is blank or already taken by another broadcaster.
func (e *Enricher) pickName(ctx context.Context, kind models.BroadcasterKind, id uint, current, fetched string) (string, error) {
	name := utils.NormalizeName(fetched)
	if name == "" || strings.EqualFold(name, current) {
		return current, nil
	}

	other, err := e.db.FindBroadcasterByName(ctx, kind, name)
	if errors.Is(err, models.ErrNotFound) {
		return name, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check name %q: %w", name, err)
	}
	if other.ID != id {
		e.logger.Warn().
			Str("kind", string(kind)).
			Str("name", name).
			Str("taken_by", other.ExternalID).
			Msg("Enriched name already in use, keeping current name")
		return current, nil
	}
	return name, nil
}

// EnrichShow fills in a show from its detail page
func (e *Enricher) EnrichShow(ctx context.Context, externalID string) error {
	show, err := e.db.GetShow(ctx, externalID)
	if errors.Is(err, models.ErrNotFound) {
		e.logger.Debug().Str("show_id", externalID).Msg("Show gone, nothing to enrich")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load show: %w", err)
	}

	details := e.source.ExtractShow(ctx, externalID)
	if details == nil {
		e.logger.Info().Str("show_id", externalID).Msg("No show data returned")
		return nil
	}

	ApplyShowDetails(show, details)
	if err := e.db.UpdateShow(ctx, show); err != nil {
		return fmt.Errorf("failed to update show %s: %w", externalID, err)
	}

	e.logger.Info().Str("show_id", externalID).Str("title", show.Title).Msg("Show enriched")
	return nil
}

// ApplyShowDetails copies fetched detail fields onto show and marks it
// enriched. The broadcaster link is left alone.
func ApplyShowDetails(show *models.Show, details *extractor.ShowDetails) {
	show.Title = strings.TrimSpace(details.Title)
	show.Description = strings.TrimSpace(details.Description)
	show.ShowType = strings.TrimSpace(details.ShowType)
	show.OfficialSiteURL = strings.TrimSpace(details.OfficialSiteURL)
	show.Genres = models.StringList(details.Genres)
	show.Vote = nil
	if details.Vote != nil {
		v := float64(*details.Vote)
		show.Vote = &v
	}
	show.Enriched = true
}

// EnrichEpisode fills in an episode from its detail page
func (e *Enricher) EnrichEpisode(ctx context.Context, externalID string) error {
	episode, err := e.db.GetEpisode(ctx, externalID)
	if errors.Is(err, models.ErrNotFound) {
		e.logger.Debug().Str("episode_id", externalID).Msg("Episode gone, nothing to enrich")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load episode: %w", err)
	}

	details := e.source.ExtractEpisode(ctx, externalID)
	if details == nil {
		e.logger.Info().Str("episode_id", externalID).Msg("No episode data returned")
		return nil
	}

	episode.SeasonNumber = details.Season.Int()
	episode.EpisodeNumber = details.Episode.Int()
	episode.Summary = strings.TrimSpace(details.Summary)
	episode.Airdate = nil
	if details.Airdate != "" {
		if d, err := utils.ParseAirDate(details.Airdate); err == nil {
			episode.Airdate = &d
		} else {
			e.logger.Warn().Str("episode_id", externalID).Str("airdate", details.Airdate).Msg("Ignoring unparsable airdate")
		}
	}
	episode.Runtime = nil
	if details.Runtime != nil {
		r := details.Runtime.Int()
		episode.Runtime = &r
	}
	episode.Enriched = true

	if err := e.db.UpdateEpisode(ctx, episode); err != nil {
		return fmt.Errorf("failed to update episode %s: %w", externalID, err)
	}

	e.logger.Info().Str("episode_id", externalID).Str("code", episode.Code()).Msg("Episode enriched")
	return nil
}
