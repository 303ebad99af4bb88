package models

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Release is one broadcast of an episode. Title, broadcaster and country are
// reached through the episode.
type Release struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EpisodeID uint      `gorm:"not null;uniqueIndex:idx_releases_slot,priority:1" json:"episode_id"`
	Episode   *Episode  `gorm:"constraint:OnDelete:CASCADE" json:"episode,omitempty"`
	AirDate   time.Time `gorm:"type:date;not null;uniqueIndex:idx_releases_slot,priority:2;index" json:"air_date"`
	AirTime   string    `gorm:"size:8;not null;uniqueIndex:idx_releases_slot,priority:3" json:"air_time"` // HH:MM:SS
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolveRelease records a broadcast slot for episode. A slot already on
// file is reported as skipped.
func (d *Database) ResolveRelease(ctx context.Context, episode *Episode, airDate time.Time, airTime string) (*Release, Outcome, error) {
	date := time.Date(airDate.Year(), airDate.Month(), airDate.Day(), 0, 0, 0, 0, time.UTC)
	cond := map[string]any{"episode_id": episode.ID, "air_date": date, "air_time": airTime}

	release, created, err := findOrCreate(ctx, d.db, cond, func() *Release {
		return &Release{EpisodeID: episode.ID, AirDate: date, AirTime: airTime}
	})
	if err != nil {
		return nil, "", err
	}
	if created {
		return release, OutcomeImported, nil
	}
	return release, OutcomeSkipped, nil
}

// DeleteReleasesBefore removes releases that aired before cutoff
func (d *Database) DeleteReleasesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	date := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	result := d.db.WithContext(ctx).Where("air_date < ?", date).Delete(&Release{})
	return result.RowsAffected, result.Error
}

// CountReleases returns the number of stored releases
func (d *Database) CountReleases(ctx context.Context) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&Release{}).Count(&n).Error
	return n, err
}

// ReleaseFilter narrows ListReleases. Zero values disable a filter.
type ReleaseFilter struct {
	Country      string
	NetworkID    uint
	WebChannelID uint
	StartDate    *time.Time
	EndDate      *time.Time
	Query        string
	Page         int
	PerPage      int
}

// ListReleases returns one page of releases in air order plus the total
// count matching the filter.
func (d *Database) ListReleases(ctx context.Context, f ReleaseFilter) ([]Release, int64, error) {
	q := d.db.WithContext(ctx).Model(&Release{}).
		Joins("JOIN episodes ON episodes.id = releases.episode_id").
		Joins("JOIN shows ON shows.id = episodes.show_id")

	if f.Country != "" {
		q = q.Joins("JOIN networks ON networks.id = shows.network_id").
			Joins("JOIN countries ON countries.id = networks.country_id").
			Where("countries.shortcode = ?", strings.ToUpper(f.Country))
	}
	if f.NetworkID != 0 {
		q = q.Where("shows.network_id = ?", f.NetworkID)
	}
	if f.WebChannelID != 0 {
		q = q.Where("shows.web_channel_id = ?", f.WebChannelID)
	}
	if f.StartDate != nil {
		q = q.Where("releases.air_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("releases.air_date <= ?", *f.EndDate)
	}
	if f.Query != "" {
		q = q.Where("LOWER(shows.title) LIKE ?", "%"+strings.ToLower(f.Query)+"%")
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var releases []Release
	err := q.Preload("Episode.Show.Network.Country").Preload("Episode.Show.WebChannel").
		Order("releases.air_date ASC").Order("releases.air_time ASC").Order("releases.id ASC").
		Offset((f.Page - 1) * f.PerPage).Limit(f.PerPage).
		Find(&releases).Error
	if err != nil {
		return nil, 0, err
	}
	return releases, total, nil
}

// Counts summarizes the catalog for the status endpoint
type Counts struct {
	Countries          int64 `json:"countries"`
	Networks           int64 `json:"networks"`
	WebChannels        int64 `json:"web_channels"`
	Shows              int64 `json:"shows"`
	Episodes           int64 `json:"episodes"`
	Releases           int64 `json:"releases"`
	PendingNetworks    int64 `json:"pending_networks"`
	PendingWebChannels int64 `json:"pending_web_channels"`
	PendingShows       int64 `json:"pending_shows"`
	PendingEpisodes    int64 `json:"pending_episodes"`
}

// CountAll fills Counts, placeholders counted as pending
func (d *Database) CountAll(ctx context.Context) (*Counts, error) {
	c := &Counts{}
	db := d.db.WithContext(ctx)
	steps := []struct {
		model interface{}
		where bool
		dest  *int64
	}{
		{&Country{}, false, &c.Countries},
		{&Network{}, false, &c.Networks},
		{&WebChannel{}, false, &c.WebChannels},
		{&Show{}, false, &c.Shows},
		{&Episode{}, false, &c.Episodes},
		{&Release{}, false, &c.Releases},
		{&Network{}, true, &c.PendingNetworks},
		{&WebChannel{}, true, &c.PendingWebChannels},
		{&Show{}, true, &c.PendingShows},
		{&Episode{}, true, &c.PendingEpisodes},
	}
	for _, s := range steps {
		q := db.Model(s.model)
		if s.where {
			q = q.Where("enriched = ?", false)
		}
		if err := q.Count(s.dest).Error; err != nil {
			return nil, err
		}
	}
	return c, nil
}
