package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Show belongs to exactly one broadcaster, a network or a web channel
type Show struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ExternalID      string      `gorm:"not null;uniqueIndex" json:"external_id"`
	Title           string      `json:"title"` // blank until enriched
	Description     string      `json:"description"`
	ShowType        string      `json:"show_type"`
	OfficialSiteURL string      `json:"official_site_url"`
	Genres          StringList  `gorm:"type:text" json:"genres"`
	Vote            *float64    `json:"vote"`
	NetworkID       *uint       `gorm:"index;check:chk_shows_broadcaster,(network_id IS NULL) <> (web_channel_id IS NULL)" json:"network_id"`
	Network         *Network    `gorm:"constraint:OnDelete:CASCADE" json:"network,omitempty"`
	WebChannelID    *uint       `gorm:"index" json:"web_channel_id"`
	WebChannel      *WebChannel `gorm:"constraint:OnDelete:CASCADE" json:"web_channel,omitempty"`
	Enriched        bool        `gorm:"not null;default:false" json:"enriched"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Broadcaster returns the kind and id of the show's broadcaster
func (s *Show) Broadcaster() (BroadcasterKind, uint) {
	if s.NetworkID != nil {
		return BroadcasterNetwork, *s.NetworkID
	}
	if s.WebChannelID != nil {
		return BroadcasterWebChannel, *s.WebChannelID
	}
	return BroadcasterUnspecified, 0
}

func (s *Show) setBroadcaster(b *Broadcaster) {
	id := b.ID
	switch b.Kind {
	case BroadcasterNetwork:
		s.NetworkID, s.WebChannelID = &id, nil
	case BroadcasterWebChannel:
		s.NetworkID, s.WebChannelID = nil, &id
	}
}

// Validate checks the fields an enriched show must carry
func (s *Show) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return &ValidationError{Entity: "show", Field: "title", Reason: "can't be blank"}
	}
	if (s.NetworkID == nil) == (s.WebChannelID == nil) {
		return &ValidationError{Entity: "show", Field: "broadcaster", Reason: "must be exactly one of network or web channel"}
	}
	return nil
}

// Episode is a numbered episode of a show. Season and episode 0 mean unknown.
type Episode struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ExternalID    string     `gorm:"not null;uniqueIndex" json:"external_id"`
	ShowID        uint       `gorm:"not null;uniqueIndex:idx_episodes_show_number,where:season_number > 0 AND episode_number > 0,priority:1" json:"show_id"`
	Show          *Show      `gorm:"constraint:OnDelete:CASCADE" json:"show,omitempty"`
	SeasonNumber  int        `gorm:"not null;default:0;uniqueIndex:idx_episodes_show_number,priority:2" json:"season_number"`
	EpisodeNumber int        `gorm:"not null;default:0;uniqueIndex:idx_episodes_show_number,priority:3" json:"episode_number"`
	Airdate       *time.Time `gorm:"type:date" json:"airdate"`
	Runtime       *int       `json:"runtime"`
	Summary       string     `json:"summary"`
	Enriched      bool       `gorm:"not null;default:false" json:"enriched"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Code renders SxxEyy, or TBD while either number is unknown
func (e *Episode) Code() string {
	if e.SeasonNumber == 0 || e.EpisodeNumber == 0 {
		return "TBD"
	}
	return fmt.Sprintf("S%02dE%02d", e.SeasonNumber, e.EpisodeNumber)
}

// ResolveShow finds a show by upstream id or creates a skeleton attached to
// b. An existing show keeps its broadcaster.
func (d *Database) ResolveShow(ctx context.Context, externalID string, b *Broadcaster) (*Show, bool, error) {
	if b == nil || b.Kind == BroadcasterUnspecified {
		return nil, false, fmt.Errorf("show %s needs a broadcaster", externalID)
	}
	return findOrCreate(ctx, d.db, map[string]any{"external_id": externalID}, func() *Show {
		s := &Show{ExternalID: externalID}
		s.setBroadcaster(b)
		return s
	})
}

// GetShow loads a show by upstream id
func (d *Database) GetShow(ctx context.Context, externalID string) (*Show, error) {
	return first[Show](ctx, d.db, map[string]any{"external_id": externalID})
}

// UpdateShow validates and saves an enriched show
func (d *Database) UpdateShow(ctx context.Context, s *Show) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return d.db.WithContext(ctx).Omit(clause.Associations).Save(s).Error
}

// ReassignShow moves a show to broadcaster b and applies its detail fields
// in one transaction, so the show is never left half written.
func (d *Database) ReassignShow(ctx context.Context, s *Show, b *Broadcaster) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s.setBroadcaster(b)
		if err := s.Validate(); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(s).Error
	})
}

// ShowsInBatches walks every show in id order, batch rows at a time
func (d *Database) ShowsInBatches(ctx context.Context, batch int, fn func([]Show) error) error {
	var shows []Show
	return d.db.WithContext(ctx).FindInBatches(&shows, batch, func(tx *gorm.DB, _ int) error {
		return fn(shows)
	}).Error
}

// ResolveEpisode finds an episode by upstream id or creates a skeleton for show
func (d *Database) ResolveEpisode(ctx context.Context, externalID string, show *Show) (*Episode, bool, error) {
	return findOrCreate(ctx, d.db, map[string]any{"external_id": externalID}, func() *Episode {
		return &Episode{ExternalID: externalID, ShowID: show.ID}
	})
}

// GetEpisode loads an episode by upstream id
func (d *Database) GetEpisode(ctx context.Context, externalID string) (*Episode, error) {
	return first[Episode](ctx, d.db, map[string]any{"external_id": externalID})
}

// UpdateEpisode saves an enriched episode. Known season and episode numbers
// must be unique within the show.
func (d *Database) UpdateEpisode(ctx context.Context, e *Episode) error {
	if e.SeasonNumber > 0 && e.EpisodeNumber > 0 {
		var clash Episode
		err := d.db.WithContext(ctx).
			Where("show_id = ? AND season_number = ? AND episode_number = ? AND id <> ?",
				e.ShowID, e.SeasonNumber, e.EpisodeNumber, e.ID).
			First(&clash).Error
		if err == nil {
			return &ValidationError{Entity: "episode", Field: "season_number", Reason: "has already been taken for this show"}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	err := d.db.WithContext(ctx).Omit(clause.Associations).Save(e).Error
	if IsUniqueViolation(err) {
		return &ValidationError{Entity: "episode", Field: "season_number", Reason: "has already been taken for this show"}
	}
	return err
}

// ListUnenrichedShows returns upstream ids of shows awaiting enrichment
func (d *Database) ListUnenrichedShows(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&Show{}).Where("enriched = ?", false).
		Order("id ASC").Pluck("external_id", &ids).Error
	return ids, err
}

// ListUnenrichedEpisodes returns upstream ids of episodes awaiting enrichment
func (d *Database) ListUnenrichedEpisodes(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&Episode{}).Where("enriched = ?", false).
		Order("id ASC").Pluck("external_id", &ids).Error
	return ids, err
}
