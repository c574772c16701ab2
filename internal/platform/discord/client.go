// Package discord adapts the neutral platform surface onto a discordgo
// session. All payload translation lives here; the core never sees
// discordgo types.
package discord

import (
	"bytes"
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Client implements platform.Client over a gateway session.
type Client struct {
	session *discordgo.Session
}

// NewClient wraps an open session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

func (c *Client) CreateChannel(ctx context.Context, guildID string, create platform.ChannelCreate) (*platform.Channel, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(create.Grants))
	for _, grant := range create.Grants {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    grant.PrincipalID,
			Type:  overwriteType(grant.Role),
			Allow: permissionBits(grant.Allow),
			Deny:  permissionBits(grant.Deny),
		})
	}

	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 create.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             create.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &platform.Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID}, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

func (c *Client) SendMessage(ctx context.Context, channelID string, payload platform.MessagePayload) (string, error) {
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    payload.Content,
		Embeds:     buildEmbeds(payload.Embeds),
		Components: buildComponents(payload.Rows),
		Files:      buildFiles(payload.Files),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (c *Client) UpdateMessage(ctx context.Context, channelID, messageID string, payload platform.MessagePayload) error {
	embeds := buildEmbeds(payload.Embeds)
	components := buildComponents(payload.Rows)
	edit := &discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Content:    &payload.Content,
		Embeds:     &embeds,
		Components: &components,
	}
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	out := make([]platform.Message, 0, len(msgs))
	for _, m := range msgs {
		entry := platform.Message{ID: m.ID, Content: m.Content, CreatedAt: m.Timestamp}
		if m.Author != nil {
			entry.AuthorID = m.Author.ID
			entry.AuthorName = m.Author.Username
		}
		out = append(out, entry)
	}
	return out, nil
}

func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	out := make([]platform.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, platform.Channel{
			ID:       ch.ID,
			Name:     ch.Name,
			ParentID: ch.ParentID,
			Grants:   grantsFromOverwrites(ch.PermissionOverwrites),
		})
	}
	return out, nil
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	member := &platform.Member{ID: userID, DisplayName: m.Nick}
	if m.User != nil {
		member.Username = m.User.Username
		member.AvatarURL = m.User.AvatarURL("")
		if member.DisplayName == "" {
			member.DisplayName = m.User.GlobalName
		}
	}
	if member.DisplayName == "" {
		member.DisplayName = member.Username
	}
	return member, nil
}

func overwriteType(role bool) discordgo.PermissionOverwriteType {
	if role {
		return discordgo.PermissionOverwriteTypeRole
	}
	return discordgo.PermissionOverwriteTypeMember
}

func permissionBits(p platform.Permission) int64 {
	var bits int64
	if p&platform.PermView != 0 {
		bits |= discordgo.PermissionViewChannel
	}
	if p&platform.PermSend != 0 {
		bits |= discordgo.PermissionSendMessages
	}
	if p&platform.PermHistory != 0 {
		bits |= discordgo.PermissionReadMessageHistory
	}
	if p&platform.PermAttach != 0 {
		bits |= discordgo.PermissionAttachFiles
	}
	if p&platform.PermEmbedLinks != 0 {
		bits |= discordgo.PermissionEmbedLinks
	}
	if p&platform.PermManageMessages != 0 {
		bits |= discordgo.PermissionManageMessages
	}
	return bits
}

func grantsFromOverwrites(overwrites []*discordgo.PermissionOverwrite) []platform.Grant {
	grants := make([]platform.Grant, 0, len(overwrites))
	for _, ow := range overwrites {
		grants = append(grants, platform.Grant{
			PrincipalID: ow.ID,
			Role:        ow.Type == discordgo.PermissionOverwriteTypeRole,
			Allow:       permissionsFromBits(ow.Allow),
			Deny:        permissionsFromBits(ow.Deny),
		})
	}
	return grants
}

func permissionsFromBits(bits int64) platform.Permission {
	var p platform.Permission
	if bits&discordgo.PermissionViewChannel != 0 {
		p |= platform.PermView
	}
	if bits&discordgo.PermissionSendMessages != 0 {
		p |= platform.PermSend
	}
	if bits&discordgo.PermissionReadMessageHistory != 0 {
		p |= platform.PermHistory
	}
	if bits&discordgo.PermissionAttachFiles != 0 {
		p |= platform.PermAttach
	}
	if bits&discordgo.PermissionEmbedLinks != 0 {
		p |= platform.PermEmbedLinks
	}
	if bits&discordgo.PermissionManageMessages != 0 {
		p |= platform.PermManageMessages
	}
	return p
}

func buildEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: f.Name, Value: f.Value, Inline: f.Inline,
			})
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if e.Thumbnail != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
		}
		if e.Image != "" {
			embed.Image = &discordgo.MessageEmbedImage{URL: e.Image}
		}
		out = append(out, embed)
	}
	return out
}

func buildComponents(rows []platform.Row) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		actions := discordgo.ActionsRow{}
		if row.Select != nil {
			options := make([]discordgo.SelectMenuOption, 0, len(row.Select.Options))
			for _, opt := range row.Select.Options {
				options = append(options, discordgo.SelectMenuOption{
					Label:       opt.Label,
					Value:       opt.Value,
					Description: opt.Description,
					Emoji:       componentEmoji(opt.Emoji),
				})
			}
			actions.Components = append(actions.Components, discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    row.Select.CustomID,
				Placeholder: row.Select.Placeholder,
				Options:     options,
			})
		}
		for _, b := range row.Buttons {
			actions.Components = append(actions.Components, discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
				Emoji:    componentEmoji(b.Emoji),
				Disabled: b.Disabled,
			})
		}
		out = append(out, actions)
	}
	return out
}

func buttonStyle(style platform.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case platform.ButtonPrimary:
		return discordgo.PrimaryButton
	case platform.ButtonSuccess:
		return discordgo.SuccessButton
	case platform.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}

func componentEmoji(emoji string) *discordgo.ComponentEmoji {
	if emoji == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: emoji}
}

func buildFiles(files []platform.File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return out
}
