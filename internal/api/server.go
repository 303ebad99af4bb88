package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amaumene/releasarr/internal/api/handlers"
	"github.com/amaumene/releasarr/internal/api/middleware"
	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server represents the HTTP server
type Server struct {
	app    *fiber.App
	addr   string
	logger zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, m *metrics.Metrics, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()
	s := &Server{
		addr:   ":" + cfg.ServerPort,
		logger: logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "releasarr",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())
	s.app.Use(middleware.Logging(logger))
	s.setupRoutes(db, m)

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(db *models.Database, m *metrics.Metrics) {
	s.app.Get("/health", handlers.Health)

	status := handlers.NewStatusHandler(db, s.logger)
	s.app.Get("/status", status.Get)

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	v1 := s.app.Group("/api/v1")
	releases := handlers.NewReleasesHandler(db, s.logger)
	v1.Get("/releases", releases.List)

	catalog := handlers.NewCatalogHandler(db, s.logger)
	v1.Get("/countries", catalog.Countries)
	v1.Get("/networks", catalog.Networks)
	v1.Get("/web_channels", catalog.WebChannels)
}

// App exposes the fiber app, mostly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
