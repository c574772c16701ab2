package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// StatsHandler exposes read-only ticket aggregates to operators.
type StatsHandler struct {
	stats   *service.StatsService
	metrics *observability.Metrics
}

// NewStatsHandler returns a new handler instance.
func NewStatsHandler(stats *service.StatsService, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{stats: stats, metrics: metrics}
}

// Leaderboard serves GET /guilds/:guildID/leaderboard?kind=opener|staff.
func (h *StatsHandler) Leaderboard(c *fiber.Ctx) error {
	guildID := c.Params("guildID")
	if guildID == "" {
		return util.NewValidationError("guildID is required", nil)
	}
	kind := service.LeaderboardKind(c.Query("kind", string(service.LeaderboardOpeners)))
	limit := c.QueryInt("limit", 10)

	rows, err := h.stats.Leaderboard(c.UserContext(), guildID, kind, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"guild_id": guildID, "kind": kind, "entries": rows})
}

// UserStats serves GET /guilds/:guildID/users/:userID/stats.
func (h *StatsHandler) UserStats(c *fiber.Ctx) error {
	guildID := c.Params("guildID")
	userID := c.Params("userID")
	if guildID == "" || userID == "" {
		return util.NewValidationError("guildID and userID are required", nil)
	}

	stats, err := h.stats.UserStats(c.UserContext(), guildID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"guild_id": guildID,
		"user_id":  userID,
		"opened":   stats.Opened,
		"handled":  stats.Handled,
	})
}

// Metrics serves GET /metrics: the in-memory action counters.
func (h *StatsHandler) Metrics(c *fiber.Ctx) error {
	actions, failures := h.metrics.Snapshot()
	return c.JSON(fiber.Map{"actions": actions, "failures": failures})
}
