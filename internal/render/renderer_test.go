package render

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

var testBranding = Branding{
	FooterText:    "Acme Support",
	AvgResponse:   "1-8 minutes",
	MentionRoleID: "role-1",
}

func testTicket(status domain.TicketStatus) domain.Ticket {
	return domain.Ticket{
		GuildID:      "g1",
		ChannelID:    "c1",
		OpenerID:     "u1",
		CategorySlug: "general",
		CategoryName: "General Support",
		TicketNum:    7,
		Status:       status,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderIdempotent(t *testing.T) {
	for _, mode := range []config.RenderMode{config.RenderModeRich, config.RenderModeEmbed} {
		t.Run(string(mode), func(t *testing.T) {
			r := NewRenderer(mode, testBranding)
			view := NewView(testTicket(domain.TicketStatusClaimed), "https://cdn/avatar.png")

			first := r.Dashboard(view)
			second := r.Dashboard(view)
			assert.True(t, reflect.DeepEqual(first, second))
		})
	}
}

func TestRenderModesShareCanonicalFields(t *testing.T) {
	view := NewView(testTicket(domain.TicketStatusOpen), "")

	rich := NewRenderer(config.RenderModeRich, testBranding).Dashboard(view)
	embed := NewRenderer(config.RenderModeEmbed, testBranding).Dashboard(view)

	require.Len(t, embed.Embeds, 1)
	assert.Contains(t, rich.Content, "#7")
	assert.Contains(t, rich.Content, "General Support")
	assert.Contains(t, rich.Content, "<@u1>")
	assert.Contains(t, rich.Content, "1-8 minutes")

	e := embed.Embeds[0]
	assert.Contains(t, e.Title, "#7")
	assert.Contains(t, e.Description, "<@u1>")
	fieldValues := map[string]string{}
	for _, f := range e.Fields {
		fieldValues[f.Name] = f.Value
	}
	assert.Equal(t, "#7", fieldValues["• Ticket ID"])
	assert.Equal(t, "General Support", fieldValues["• Category"])
	assert.Equal(t, "1-8 minutes", fieldValues["• Average response time"])

	// Both modes carry identical component rows.
	assert.True(t, reflect.DeepEqual(rich.Rows, embed.Rows))
}

func TestDashboardRowsOpenDisablesAllButClaim(t *testing.T) {
	rows := dashboardRows(NewView(testTicket(domain.TicketStatusOpen), ""))
	require.Len(t, rows, 2)

	for _, b := range rows[0].Buttons {
		if b.CustomID == CustomIDStatusPrefix+StatusKeyClaim {
			assert.False(t, b.Disabled, "claim must stay enabled on open tickets")
		} else {
			assert.True(t, b.Disabled, "%s must be disabled on open tickets", b.CustomID)
		}
		assert.Equal(t, platform.ButtonSecondary, b.Style)
	}
}

func TestDashboardRowsActiveStyling(t *testing.T) {
	tests := []struct {
		status domain.TicketStatus
		active string
		style  platform.ButtonStyle
	}{
		{status: domain.TicketStatusClaimed, active: StatusKeyClaim, style: platform.ButtonPrimary},
		{status: domain.TicketStatusPending, active: StatusKeyPending, style: platform.ButtonPrimary},
		{status: domain.TicketStatusReview, active: StatusKeyReview, style: platform.ButtonPrimary},
		{status: domain.TicketStatusResolved, active: StatusKeyResolved, style: platform.ButtonSuccess},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			rows := dashboardRows(NewView(testTicket(tt.status), ""))
			require.Len(t, rows, 2)

			for _, b := range rows[0].Buttons {
				assert.False(t, b.Disabled)
				if b.CustomID == CustomIDStatusPrefix+tt.active {
					assert.Equal(t, tt.style, b.Style)
				} else {
					assert.Equal(t, platform.ButtonSecondary, b.Style)
				}
			}
		})
	}
}

func TestDashboardActionRow(t *testing.T) {
	rows := dashboardRows(NewView(testTicket(domain.TicketStatusClaimed), ""))
	require.Len(t, rows, 2)

	ids := make([]string, 0, len(rows[1].Buttons))
	for _, b := range rows[1].Buttons {
		ids = append(ids, b.CustomID)
	}
	assert.Equal(t, []string{CustomIDClose, CustomIDNotify, CustomIDMembers, CustomIDTranscript}, ids)

	assert.Equal(t, platform.ButtonDanger, rows[1].Buttons[0].Style)
}

func TestStatusLineClaimedMentionsClaimer(t *testing.T) {
	ticket := testTicket(domain.TicketStatusClaimed)
	staff := "staff-1"
	ticket.ClaimedBy = &staff

	view := NewView(ticket, "")
	assert.Contains(t, view.StatusLine(), "<@staff-1>")
}

func TestPanel(t *testing.T) {
	categories := []domain.Category{
		{Slug: "general", Name: "General Support", Emoji: "🎫"},
		{Slug: "technical", Name: "Technical Support", Emoji: "🔧"},
		{Slug: "billing", Name: "Billing", Emoji: "💳"},
		{Slug: "report", Name: "Report a Player", Emoji: "🛡️"},
	}

	payload := Panel(categories, testBranding)

	// Four categories chunk into a row of three and a row of one.
	require.Len(t, payload.Rows, 2)
	assert.Len(t, payload.Rows[0].Buttons, 3)
	assert.Len(t, payload.Rows[1].Buttons, 1)

	for i, cat := range categories {
		button := payload.Rows[i/3].Buttons[i%3]
		assert.Equal(t, CustomIDCreatePrefix+cat.Slug, button.CustomID)
		assert.Equal(t, cat.Name, button.Label)
	}
	assert.Empty(t, payload.Embeds)
}

func TestPanelWithImage(t *testing.T) {
	branding := testBranding
	branding.PanelImageURL = "https://cdn/panel.png"

	payload := Panel([]domain.Category{{Slug: "general", Name: "General"}}, branding)
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, "https://cdn/panel.png", payload.Embeds[0].Image)
}

func TestNewViewTruncatesToSecond(t *testing.T) {
	ticket := testTicket(domain.TicketStatusOpen)
	ticket.CreatedAt = ticket.CreatedAt.Add(123 * time.Millisecond)

	view := NewView(ticket, "")
	assert.Equal(t, int64(0), int64(view.CreatedAt.Nanosecond()))
	assert.Equal(t, fmt.Sprintf("<t:%d:f>", view.CreatedAt.Unix()),
		fmt.Sprintf("<t:%d:f>", ticket.CreatedAt.Truncate(time.Second).Unix()))
}
