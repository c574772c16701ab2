// Package platform defines the narrow chat-platform surface the core
// consumes. Payload and channel types are platform-neutral; the discord
// subpackage maps them onto the real client.
package platform

import (
	"context"
	"strings"
	"time"
)

// Permission bits for channel grants.
type Permission uint64

const (
	PermView Permission = 1 << iota
	PermSend
	PermHistory
	PermAttach
	PermEmbedLinks
	PermManageMessages
)

// Grant is a per-principal allow/deny entry on a channel.
type Grant struct {
	PrincipalID string
	Role        bool
	Allow       Permission
	Deny        Permission
}

// ChannelCreate describes a channel to be created under a parent.
type ChannelCreate struct {
	Name     string
	ParentID string
	Grants   []Grant
}

// Channel is the view of a live channel the core needs: identity, name and
// grants for the duplicate-guard scan.
type Channel struct {
	ID       string
	Name     string
	ParentID string
	Grants   []Grant
}

// AllowsView reports whether the channel explicitly grants view access to
// the given principal.
func (c Channel) AllowsView(principalID string) bool {
	for _, g := range c.Grants {
		if g.PrincipalID == principalID && g.Allow&PermView != 0 {
			return true
		}
	}
	return false
}

// HasPrefix reports whether the channel name carries the given ticket
// prefix.
func (c Channel) HasPrefix(prefix string) bool {
	return strings.HasPrefix(c.Name, prefix)
}

// Member is a resolved guild member.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
}

// Message is one entry of a channel's history.
type Message struct {
	ID         string
	AuthorID   string
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

// ButtonStyle mirrors the platform's button styles.
type ButtonStyle int

const (
	ButtonSecondary ButtonStyle = iota
	ButtonPrimary
	ButtonSuccess
	ButtonDanger
)

// Button is one pressable component.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
	Disabled bool
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}

// SelectMenu is a dropdown component.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// Row is one action row of components.
type Row struct {
	Buttons []Button
	Select  *SelectMenu
}

// EmbedField is a titled value inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the flat fallback rendering unit.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Thumbnail   string
	Image       string
}

// File is a downloadable artifact attached to a message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// MessagePayload is a renderer output: either rich markdown content with
// component rows, or an embed with rows. Renderers are pure; identical
// input yields an identical payload.
type MessagePayload struct {
	Content string
	Embeds  []Embed
	Rows    []Row
	Files   []File
}

// Client is the chat-platform collaborator interface.
type Client interface {
	CreateChannel(ctx context.Context, guildID string, create ChannelCreate) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID string, payload MessagePayload) (string, error)
	UpdateMessage(ctx context.Context, channelID, messageID string, payload MessagePayload) error
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	GuildChannels(ctx context.Context, guildID string) ([]Channel, error)
	Member(ctx context.Context, guildID, userID string) (*Member, error)
}
