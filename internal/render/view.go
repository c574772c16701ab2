package render

import (
	"fmt"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Component custom IDs emitted on dashboards and the panel. The dispatcher
// routes on these.
const (
	CustomIDCreatePrefix = "ticket_create_"
	CustomIDStatusPrefix = "ticket_status_"
	CustomIDClose        = "ticket_close"
	CustomIDNotify       = "ticket_notify"
	CustomIDMembers      = "ticket_members"
	CustomIDTranscript   = "ticket_transcript"
)

// Status button keys, appended to CustomIDStatusPrefix.
const (
	StatusKeyClaim    = "claim"
	StatusKeyPending  = "pending"
	StatusKeyReview   = "review"
	StatusKeyResolved = "resolved"
)

// View is the canonical ticket-to-presentation mapping. Both render modes
// consume it; it is derived purely from the ticket record plus resolved
// member metadata, so rendering the same record twice yields identical
// output.
type View struct {
	TicketNum    int
	OpenerID     string
	CategoryName string
	Status       domain.TicketStatus
	ClaimedBy    string
	CreatedAt    time.Time
	ThumbnailURL string
}

// NewView maps a ticket record to its view. thumbnailURL is the opener's
// avatar when resolvable, empty otherwise.
func NewView(t domain.Ticket, thumbnailURL string) View {
	v := View{
		TicketNum:    t.TicketNum,
		OpenerID:     t.OpenerID,
		CategoryName: t.CategoryName,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt.UTC().Truncate(time.Second),
		ThumbnailURL: thumbnailURL,
	}
	if t.ClaimedBy != nil {
		v.ClaimedBy = *t.ClaimedBy
	}
	return v
}

// StatusLine renders the human status marker shown on the dashboard.
func (v View) StatusLine() string {
	switch v.Status {
	case domain.TicketStatusClaimed:
		if v.ClaimedBy != "" {
			return fmt.Sprintf("<@%s> claimed this ticket", v.ClaimedBy)
		}
		return "Claimed"
	case domain.TicketStatusPending:
		return "⏳ On hold"
	case domain.TicketStatusReview:
		return "🔍 Under review"
	case domain.TicketStatusResolved:
		return "✅ Resolved"
	case domain.TicketStatusClosed:
		return "🔒 Closed"
	default:
		return "ℹ️ Waiting for staff..."
	}
}

// activeKey returns the status button highlighted for the current state,
// empty for open.
func (v View) activeKey() string {
	switch v.Status {
	case domain.TicketStatusClaimed:
		return StatusKeyClaim
	case domain.TicketStatusPending:
		return StatusKeyPending
	case domain.TicketStatusReview:
		return StatusKeyReview
	case domain.TicketStatusResolved:
		return StatusKeyResolved
	default:
		return ""
	}
}

// Title renders the dashboard heading.
func (v View) Title() string {
	return fmt.Sprintf("✅ Support Ticket #%d", v.TicketNum)
}
