package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/realtube-scoring/internal/handler"
	"github.com/mathieu-neron/realtube-scoring/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Video   *handler.VideoHandler
	Vote    *handler.VoteHandler
	Channel *handler.ChannelHandler
	User    *handler.UserHandler
	Health  *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string, logger zerolog.Logger) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger(logger))
	app.Use(middleware.NewMetrics())
	app.Use(middleware.NewCORS(corsOrigins))

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	api := app.Group("/api")

	api.Get("/videos", h.Video.GetByVideoID)
	api.Post("/videos", h.Video.Register)

	api.Post("/votes", h.Vote.Submit)
	api.Delete("/votes", h.Vote.Delete)

	api.Get("/channels/:channelId", h.Channel.GetByChannelID)

	api.Get("/users/:userId", h.User.GetByUserID)
}
