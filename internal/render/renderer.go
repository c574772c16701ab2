// Package render maps ticket records to outbound message payloads. Two
// modes exist, negotiated once at startup: a rich markdown layout and a
// flat embed fallback. Both are pure functions over the shared View.
package render

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

const embedColor = 0x0a0a0a

// Branding carries the static presentation inputs shared by all tickets.
type Branding struct {
	FooterText     string
	AvgResponse    string
	BannerImageURL string
	PanelImageURL  string
	MentionRoleID  string
}

// BrandingFromConfig builds Branding from ticket and discord settings.
func BrandingFromConfig(t config.TicketsConfig, d config.DiscordConfig) Branding {
	return Branding{
		FooterText:     t.FooterText,
		AvgResponse:    t.AvgResponse,
		BannerImageURL: t.BannerImageURL,
		PanelImageURL:  t.PanelImageURL,
		MentionRoleID:  d.MentionRoleID,
	}
}

func (b Branding) roleMention() string {
	if b.MentionRoleID == "" {
		return "**the support team**"
	}
	return fmt.Sprintf("**<@&%s>**", b.MentionRoleID)
}

// Renderer produces the ticket dashboard payload for one mode.
type Renderer interface {
	Dashboard(v View) platform.MessagePayload
}

// NewRenderer selects the renderer for the negotiated mode.
func NewRenderer(mode config.RenderMode, branding Branding) Renderer {
	if mode == config.RenderModeEmbed {
		return &EmbedRenderer{Branding: branding}
	}
	return &RichRenderer{Branding: branding}
}

// RichRenderer emits the structured markdown layout with component rows.
type RichRenderer struct {
	Branding Branding
}

// Dashboard renders the ticket message in rich mode.
func (r *RichRenderer) Dashboard(v View) platform.MessagePayload {
	var sb strings.Builder
	sb.WriteString("## " + v.Title() + "\n")
	sb.WriteString(fmt.Sprintf("> Ticket opened by <@%s> on <t:%d:f>. %s will be with you shortly.\n\n",
		v.OpenerID, v.CreatedAt.Unix(), r.Branding.roleMention()))
	sb.WriteString(fmt.Sprintf("- Ticket ID: **#%d**\n", v.TicketNum))
	sb.WriteString(fmt.Sprintf("- Category: **%s**\n\n", v.CategoryName))
	sb.WriteString(fmt.Sprintf("- Average response time: **%s**\n", r.Branding.AvgResponse))
	sb.WriteString(fmt.Sprintf("- Status: **%s**\n\n", v.StatusLine()))
	sb.WriteString("-# " + r.Branding.FooterText)

	return platform.MessagePayload{
		Content: sb.String(),
		Rows:    dashboardRows(v),
	}
}

// EmbedRenderer emits the flat embed fallback.
type EmbedRenderer struct {
	Branding Branding
}

// Dashboard renders the ticket message in embed mode.
func (r *EmbedRenderer) Dashboard(v View) platform.MessagePayload {
	embed := platform.Embed{
		Title: v.Title(),
		Description: fmt.Sprintf("Ticket opened by <@%s> on <t:%d:f>. %s will be with you shortly.",
			v.OpenerID, v.CreatedAt.Unix(), r.Branding.roleMention()),
		Color: embedColor,
		Fields: []platform.EmbedField{
			{Name: "• Ticket ID", Value: fmt.Sprintf("#%d", v.TicketNum)},
			{Name: "• Category", Value: v.CategoryName},
			{Name: "• Average response time", Value: r.Branding.AvgResponse},
			{Name: "• Status", Value: v.StatusLine()},
		},
		Footer:    r.Branding.FooterText,
		Thumbnail: v.ThumbnailURL,
		Image:     r.Branding.BannerImageURL,
	}

	return platform.MessagePayload{
		Embeds: []platform.Embed{embed},
		Rows:   dashboardRows(v),
	}
}

// dashboardRows builds the status row and the action row. Open tickets
// disable every status button except claim; the active status is
// highlighted and resolved uses the success style.
func dashboardRows(v View) []platform.Row {
	active := v.activeKey()
	keys := []struct {
		key   string
		label string
		emoji string
	}{
		{StatusKeyClaim, "Claim", "ℹ️"},
		{StatusKeyPending, "On Hold", "⏳"},
		{StatusKeyReview, "Under Review", "🔍"},
		{StatusKeyResolved, "Resolved", "✅"},
	}

	statusRow := platform.Row{}
	for _, k := range keys {
		style := platform.ButtonSecondary
		if active == k.key {
			style = platform.ButtonPrimary
			if k.key == StatusKeyResolved {
				style = platform.ButtonSuccess
			}
		}
		statusRow.Buttons = append(statusRow.Buttons, platform.Button{
			CustomID: CustomIDStatusPrefix + k.key,
			Label:    k.label,
			Emoji:    k.emoji,
			Style:    style,
			Disabled: v.Status == domain.TicketStatusOpen && k.key != StatusKeyClaim,
		})
	}

	actionRow := platform.Row{Buttons: []platform.Button{
		{CustomID: CustomIDClose, Label: "Close Ticket", Emoji: "🗑️", Style: platform.ButtonDanger},
		{CustomID: CustomIDNotify, Label: "Notify Me", Emoji: "🔔", Style: platform.ButtonSecondary},
		{CustomID: CustomIDMembers, Label: "Manage Members", Emoji: "👤", Style: platform.ButtonSecondary},
		{CustomID: CustomIDTranscript, Label: "Transcript", Emoji: "📄", Style: platform.ButtonSecondary},
	}}

	return []platform.Row{statusRow, actionRow}
}
