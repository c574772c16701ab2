package dispatch

import (
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Kind separates slash commands from component presses.
type Kind string

const (
	KindCommand Kind = "command"
	KindButton  Kind = "button"
)

// Slash command names registered on the gateway.
const (
	CommandPanel = "ticket-panel"
	CommandMenu  = "ticket-menu"
	CommandTop   = "ticket-top"
	CommandStats = "ticket-stats"
)

// Action is one normalized inbound interaction. The gateway adapter fills
// it from the raw platform event; the dispatcher routes on Kind plus
// Command or CustomID.
type Action struct {
	Kind        Kind
	Command     string
	Options     map[string]string
	CustomID    string
	Values      []string
	GuildID     string
	ChannelID   string
	ChannelName string
	MessageID   string
	Actor       domain.Actor
}

// Reply is the dispatcher's answer to one action. Empty content with no
// file means no reply is needed (the dashboard edit already acknowledged
// the press).
type Reply struct {
	Content   string
	Ephemeral bool
	File      *platform.File
}
