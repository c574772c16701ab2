package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Stats          *handlers.StatsHandler
	Events         *handlers.EventsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	api.Get("/metrics", cfg.Stats.Metrics)
	api.Get("/guilds/:guildID/leaderboard", cfg.Stats.Leaderboard)
	api.Get("/guilds/:guildID/users/:userID/stats", cfg.Stats.UserStats)
	api.Get("/channels/:channelID/events", cfg.Events.ChannelEvents)
}
