package render

import (
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

const panelButtonsPerRow = 3

var panelRules = strings.Join([]string{
	"**General rules:**",
	"• Check your ticket within 24 hours.",
	"• Avoid direct-messaging staff members.",
	"• Communicate your issue through the ticket.",
	"",
	"**Reporting a problem:**",
	"• Describe the problem in detail.",
	"• Share every piece of information needed.",
}, "\n")

// Panel builds the ticket-creation panel: rules text plus one create button
// per configured category. Pure over the category set and branding.
func Panel(categories []domain.Category, branding Branding) platform.MessagePayload {
	var sb strings.Builder
	sb.WriteString("## **Open a Support Ticket**\n")
	sb.WriteString("> Read the rules below before opening a ticket, then pick the category that fits your request.\n\n")
	sb.WriteString(panelRules)
	sb.WriteString("\n\n-# " + branding.FooterText)

	var rows []platform.Row
	row := platform.Row{}
	for _, cat := range categories {
		row.Buttons = append(row.Buttons, platform.Button{
			CustomID: CustomIDCreatePrefix + cat.Slug,
			Label:    cat.Name,
			Emoji:    cat.Emoji,
			Style:    platform.ButtonSecondary,
		})
		if len(row.Buttons) == panelButtonsPerRow {
			rows = append(rows, row)
			row = platform.Row{}
		}
	}
	if len(row.Buttons) > 0 {
		rows = append(rows, row)
	}

	payload := platform.MessagePayload{
		Content: sb.String(),
		Rows:    rows,
	}
	if branding.PanelImageURL != "" {
		payload.Embeds = []platform.Embed{{Color: embedColor, Image: branding.PanelImageURL}}
	}
	return payload
}
