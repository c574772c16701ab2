package events

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketAction        EventType = "ticket_action"
)

// Event represents a lifecycle event emitted by the ticket service. These
// are process-internal fan-out signals; the durable audit trail is written
// separately by the event repository.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OpenerID     string `json:"opener_id"`
	CategorySlug string `json:"category_slug"`
	TicketNum    int    `json:"ticket_num"`
	ChannelName  string `json:"channel_name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ClaimedBy *string             `json:"claimed_by,omitempty"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OpenerID string `json:"opener_id"`
	ClosedBy string `json:"closed_by"`
}

// TicketActionPayload payload for auxiliary actions (notify, member,
// transcript).
type TicketActionPayload struct {
	Action string `json:"action"`
}
