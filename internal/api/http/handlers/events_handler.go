package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// EventsHandler exposes the audit trail of a ticket channel to operators.
type EventsHandler struct {
	events repository.EventRepository
}

// NewEventsHandler returns a new handler instance.
func NewEventsHandler(events repository.EventRepository) *EventsHandler {
	return &EventsHandler{events: events}
}

// ChannelEvents serves GET /channels/:channelID/events?limit=N. Events come
// back oldest first.
func (h *EventsHandler) ChannelEvents(c *fiber.Ctx) error {
	channelID := c.Params("channelID")
	if channelID == "" {
		return util.NewValidationError("channelID is required", nil)
	}
	limit := c.QueryInt("limit", 50)

	events, err := h.events.ListByChannel(c.UserContext(), channelID, limit)
	if err != nil {
		return err
	}

	entries := make([]fiber.Map, 0, len(events))
	for _, e := range events {
		entry := fiber.Map{
			"id":         e.ID,
			"guild_id":   e.GuildID,
			"user_id":    e.UserID,
			"action":     e.Action,
			"created_at": e.CreatedAt,
		}
		if e.ActorID != nil {
			entry["actor_id"] = *e.ActorID
		}
		entries = append(entries, entry)
	}
	return c.JSON(fiber.Map{"channel_id": channelID, "events": entries})
}
