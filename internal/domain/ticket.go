package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusClaimed  TicketStatus = "claimed"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusReview   TicketStatus = "review"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// Terminal reports whether no further transitions are observable.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed
}

// Ticket is the durable record backing one support channel.
// Identity is (GuildID, ChannelID); ChannelID is the natural key.
type Ticket struct {
	GuildID      string
	ChannelID    string
	OpenerID     string
	CategorySlug string
	CategoryName string
	TicketNum    int
	Status       TicketStatus
	ClaimedBy    *string
	CreatedAt    time.Time
	ClosedAt     *time.Time
}

// TicketEvent is an append-only audit entry. One event is written per
// transition or auxiliary action; events are never mutated or deleted.
type TicketEvent struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Action    string
	ActorID   *string
	CreatedAt time.Time
}

// Auxiliary actions recorded in the audit trail without a status change.
const (
	ActionNotify     = "notify"
	ActionMember     = "member"
	ActionTranscript = "transcript"
)

// Category is a configured routing bucket. Immutable at runtime.
type Category struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	DestinationID string `json:"destination_id"`
	Emoji         string `json:"emoji"`
}
