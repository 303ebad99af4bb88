package handlers

import (
	"github.com/amaumene/releasarr/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// StatusHandler reports catalog counts, placeholders included
type StatusHandler struct {
	db     *models.Database
	logger zerolog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger zerolog.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// Get handles GET /status
func (h *StatusHandler) Get(c *fiber.Ctx) error {
	counts, err := h.db.CountAll(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count catalog")
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(counts)
}
