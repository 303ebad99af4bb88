package handlers

import (
	"strconv"
	"time"

	"github.com/amaumene/releasarr/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// ReleasesHandler serves the release listing
type ReleasesHandler struct {
	db     *models.Database
	logger zerolog.Logger
}

// NewReleasesHandler creates a new releases handler
func NewReleasesHandler(db *models.Database, logger zerolog.Logger) *ReleasesHandler {
	return &ReleasesHandler{db: db, logger: logger}
}

// ReleasesResponse is one page of releases
type ReleasesResponse struct {
	Releases []ReleaseJSON `json:"releases"`
	Meta     PageMeta      `json:"meta"`
}

// PageMeta tells clients how to fetch the rest
type PageMeta struct {
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	HasMore    bool  `json:"has_more"`
	NextPage   *int  `json:"next_page"`
}

type ReleaseJSON struct {
	ID      uint        `json:"id"`
	AirDate string      `json:"air_date"`
	AirTime string      `json:"air_time"`
	Episode EpisodeJSON `json:"episode"`
}

type EpisodeJSON struct {
	ID            uint     `json:"id"`
	ExternalID    string   `json:"external_id"`
	SeasonNumber  int      `json:"season_number"`
	EpisodeNumber int      `json:"episode_number"`
	Code          string   `json:"code"`
	Airdate       *string  `json:"airdate"`
	Runtime       *int     `json:"runtime"`
	Summary       string   `json:"summary"`
	Show          ShowJSON `json:"show"`
}

type ShowJSON struct {
	ID         uint             `json:"id"`
	ExternalID string           `json:"external_id"`
	Title      string           `json:"title"`
	ShowType   string           `json:"show_type"`
	Network    *BroadcasterJSON `json:"network,omitempty"`
	WebChannel *BroadcasterJSON `json:"web_channel,omitempty"`
}

type BroadcasterJSON struct {
	ID      uint            `json:"id"`
	Name    string          `json:"name"`
	Country *models.Country `json:"country,omitempty"`
}

// List handles GET /api/v1/releases
func (h *ReleasesHandler) List(c *fiber.Ctx) error {
	filter, err := parseReleaseFilter(c)
	if err != nil {
		return err
	}

	releases, total, err := h.db.ListReleases(c.UserContext(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list releases")
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}

	resp := ReleasesResponse{
		Releases: make([]ReleaseJSON, 0, len(releases)),
		Meta: PageMeta{
			TotalCount: total,
			Page:       filter.Page,
			PerPage:    filter.PerPage,
		},
	}
	for i := range releases {
		resp.Releases = append(resp.Releases, toReleaseJSON(&releases[i]))
	}

	offset := (filter.Page - 1) * filter.PerPage
	if int64(offset+len(releases)) < total {
		next := filter.Page + 1
		resp.Meta.HasMore = true
		resp.Meta.NextPage = &next
	}
	return c.JSON(resp)
}

func parseReleaseFilter(c *fiber.Ctx) (models.ReleaseFilter, error) {
	f := models.ReleaseFilter{
		Country: c.Query("country"),
		Query:   c.Query("q"),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", defaultPerPage),
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 1
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}

	var err error
	if f.NetworkID, err = queryID(c, "network"); err != nil {
		return f, err
	}
	if f.WebChannelID, err = queryID(c, "web_channel"); err != nil {
		return f, err
	}
	if f.StartDate, err = queryDate(c, "start_date"); err != nil {
		return f, err
	}
	if f.EndDate, err = queryDate(c, "end_date"); err != nil {
		return f, err
	}
	return f, nil
}

func queryID(c *fiber.Ctx, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a numeric id")
	}
	return uint(id), nil
}

func queryDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
	}
	return &d, nil
}

func toReleaseJSON(r *models.Release) ReleaseJSON {
	out := ReleaseJSON{
		ID:      r.ID,
		AirDate: r.AirDate.Format("2006-01-02"),
		AirTime: r.AirTime,
	}
	ep := r.Episode
	if ep == nil {
		return out
	}

	out.Episode = EpisodeJSON{
		ID:            ep.ID,
		ExternalID:    ep.ExternalID,
		SeasonNumber:  ep.SeasonNumber,
		EpisodeNumber: ep.EpisodeNumber,
		Code:          ep.Code(),
		Runtime:       ep.Runtime,
		Summary:       ep.Summary,
	}
	if ep.Airdate != nil {
		d := ep.Airdate.Format("2006-01-02")
		out.Episode.Airdate = &d
	}

	show := ep.Show
	if show == nil {
		return out
	}
	out.Episode.Show = ShowJSON{
		ID:         show.ID,
		ExternalID: show.ExternalID,
		Title:      show.Title,
		ShowType:   show.ShowType,
	}
	if n := show.Network; n != nil {
		out.Episode.Show.Network = &BroadcasterJSON{ID: n.ID, Name: n.Name, Country: n.Country}
	}
	if w := show.WebChannel; w != nil {
		out.Episode.Show.WebChannel = &BroadcasterJSON{ID: w.ID, Name: w.Name}
	}
	return out
}
