package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Component custom IDs for the paginated category browser. Navigation
// buttons carry the page they were rendered for.
const (
	CustomIDListPrevPrefix  = "list_prev_"
	CustomIDListNextPrefix  = "list_next_"
	CustomIDListSelect      = "list_select"
	CustomIDListValuePrefix = "list_select_"
)

const (
	listPageSize     = 5
	listColor        = 0x5865f2
	maxSelectOptions = 25
)

func listPages(n int) int {
	pages := (n + listPageSize - 1) / listPageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// CategoryList builds one page of the category browser: a numbered embed,
// prev/next navigation and a select menu over the full category set. The
// page is clamped into range, so stale navigation buttons stay safe.
func CategoryList(categories []domain.Category, page int, branding Branding) platform.MessagePayload {
	total := listPages(len(categories))
	if page < 0 {
		page = 0
	}
	if page > total-1 {
		page = total - 1
	}

	start := page * listPageSize
	end := start + listPageSize
	if end > len(categories) {
		end = len(categories)
	}

	var sb strings.Builder
	for i, cat := range categories[start:end] {
		fmt.Fprintf(&sb, "**%d.** %s %s\n", start+i+1, cat.Emoji, cat.Name)
	}
	desc := strings.TrimRight(sb.String(), "\n")
	if desc == "" {
		desc = "*No categories configured*"
	}

	footer := fmt.Sprintf("Page %d / %d • Use the menu below to pick a category", page+1, total)
	if branding.FooterText != "" {
		footer = branding.FooterText + " • " + footer
	}

	embed := platform.Embed{
		Title:       "◆ Support Categories",
		Description: desc,
		Color:       listColor,
		Footer:      footer,
	}

	navRow := platform.Row{Buttons: []platform.Button{
		{
			CustomID: CustomIDListPrevPrefix + strconv.Itoa(page),
			Label:    "Previous",
			Emoji:    "◀️",
			Style:    platform.ButtonSecondary,
			Disabled: page <= 0,
		},
		{
			CustomID: CustomIDListNextPrefix + strconv.Itoa(page),
			Label:    "Next",
			Emoji:    "▶️",
			Style:    platform.ButtonSecondary,
			Disabled: page >= total-1,
		},
	}}

	options := make([]platform.SelectOption, 0, len(categories))
	for i, cat := range categories {
		if i == maxSelectOptions {
			break
		}
		options = append(options, platform.SelectOption{
			Label:       cat.Name,
			Value:       CustomIDListValuePrefix + strconv.Itoa(i),
			Description: "Select: " + cat.Name,
			Emoji:       cat.Emoji,
		})
	}
	selectRow := platform.Row{Select: &platform.SelectMenu{
		CustomID:    CustomIDListSelect,
		Placeholder: "Pick a category...",
		Options:     options,
	}}

	return platform.MessagePayload{
		Embeds: []platform.Embed{embed},
		Rows:   []platform.Row{navRow, selectRow},
	}
}
