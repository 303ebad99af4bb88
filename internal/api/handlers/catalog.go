package handlers

import (
	"github.com/amaumene/releasarr/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// CatalogHandler lists countries and broadcasters for filter pickers
type CatalogHandler struct {
	db     *models.Database
	logger zerolog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(db *models.Database, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{db: db, logger: logger}
}

type countryJSON struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Shortcode string `json:"shortcode"`
}

type namedJSON struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Countries handles GET /api/v1/countries
func (h *CatalogHandler) Countries(c *fiber.Ctx) error {
	countries, err := h.db.ListCountries(c.UserContext(), c.Query("q"))
	if err != nil {
		return h.fail(err, "countries")
	}
	out := make([]countryJSON, 0, len(countries))
	for _, country := range countries {
		out = append(out, countryJSON{ID: country.ID, Name: country.Name, Shortcode: country.Shortcode})
	}
	return c.JSON(out)
}

// Networks handles GET /api/v1/networks
func (h *CatalogHandler) Networks(c *fiber.Ctx) error {
	networks, err := h.db.ListNetworks(c.UserContext(), c.Query("country"), c.Query("q"))
	if err != nil {
		return h.fail(err, "networks")
	}
	out := make([]namedJSON, 0, len(networks))
	for _, n := range networks {
		out = append(out, namedJSON{ID: n.ID, Name: n.Name})
	}
	return c.JSON(out)
}

// WebChannels handles GET /api/v1/web_channels
func (h *CatalogHandler) WebChannels(c *fiber.Ctx) error {
	channels, err := h.db.ListWebChannels(c.UserContext(), c.Query("q"))
	if err != nil {
		return h.fail(err, "web channels")
	}
	out := make([]namedJSON, 0, len(channels))
	for _, w := range channels {
		out = append(out, namedJSON{ID: w.ID, Name: w.Name})
	}
	return c.JSON(out)
}

func (h *CatalogHandler) fail(err error, what string) error {
	h.logger.Error().Err(err).Msgf("Failed to list %s", what)
	return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
}
