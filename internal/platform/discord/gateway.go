package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/dispatch"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
)

// NewSession builds a gateway session for the bot token.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	return session, nil
}

// Gateway bridges gateway interactions to the dispatcher: it acknowledges
// within the interaction deadline, normalizes the raw event into an Action
// and delivers the dispatcher's reply as a followup.
type Gateway struct {
	session       *discordgo.Session
	dispatcher    *dispatch.Dispatcher
	supportRoleID string
	logger        *zap.Logger
}

// NewGateway constructs the gateway bridge.
func NewGateway(session *discordgo.Session, dispatcher *dispatch.Dispatcher, supportRoleID string, logger *zap.Logger) *Gateway {
	return &Gateway{
		session:       session,
		dispatcher:    dispatcher,
		supportRoleID: supportRoleID,
		logger:        logger,
	}
}

// Start attaches handlers and opens the gateway connection.
func (g *Gateway) Start() error {
	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onInteractionCreate)
	return g.session.Open()
}

// Stop closes the gateway connection.
func (g *Gateway) Stop() error {
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", commands()); err != nil {
		g.logger.Error("slash command registration failed", zap.Error(err))
		return
	}
	g.logger.Info("gateway ready", zap.String("bot_id", r.User.ID), zap.Int("guilds", len(r.Guilds)))
}

func commands() []*discordgo.ApplicationCommand {
	manageChannels := int64(discordgo.PermissionManageChannels)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     dispatch.CommandPanel,
			Description:              "Post the ticket panel in this channel",
			DefaultMemberPermissions: &manageChannels,
		},
		{
			Name:        dispatch.CommandMenu,
			Description: "Show the support category list",
		},
		{
			Name:        dispatch.CommandTop,
			Description: "Show the ticket leaderboard",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "board",
					Description: "Which board to rank",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Openers", Value: "opener"},
						{Name: "Staff", Value: "staff"},
					},
				},
			},
		},
		{
			Name:        dispatch.CommandStats,
			Description: "Show ticket activity for a member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up (defaults to you)",
				},
			},
		},
	}
}

func (g *Gateway) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}

	action, ok := g.buildAction(s, i)
	if !ok {
		return
	}

	// Acknowledge before any multi-step I/O; the interaction deadline is
	// short. Status buttons defer as a message update so the dashboard
	// edit is the visible acknowledgement.
	if err := g.acknowledge(s, i, action); err != nil {
		g.logger.Warn("interaction ack failed", zap.Error(err))
		return
	}

	reply := g.dispatcher.Handle(context.Background(), action)
	g.deliver(s, i, reply)
}

func (g *Gateway) buildAction(s *discordgo.Session, i *discordgo.InteractionCreate) (dispatch.Action, bool) {
	action := dispatch.Action{
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		ChannelName: g.channelName(s, i.ChannelID),
		Actor:       g.actor(i.Member),
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		action.Kind = dispatch.KindCommand
		action.Command = data.Name
		action.Options = commandOptions(data.Options)
	case discordgo.InteractionMessageComponent:
		action.Kind = dispatch.KindButton
		data := i.MessageComponentData()
		action.CustomID = data.CustomID
		action.Values = data.Values
		if i.Message != nil {
			action.MessageID = i.Message.ID
		}
	default:
		return dispatch.Action{}, false
	}
	return action, true
}

func (g *Gateway) actor(m *discordgo.Member) domain.Actor {
	privileged := m.Permissions&discordgo.PermissionManageChannels != 0
	staff := privileged
	for _, roleID := range m.Roles {
		if roleID == g.supportRoleID && g.supportRoleID != "" {
			staff = true
			break
		}
	}

	actor := domain.Actor{
		ID:         m.User.ID,
		Username:   m.User.Username,
		AvatarURL:  m.User.AvatarURL(""),
		Staff:      staff,
		Privileged: privileged,
	}
	actor.DisplayName = m.Nick
	if actor.DisplayName == "" {
		actor.DisplayName = m.User.GlobalName
	}
	if actor.DisplayName == "" {
		actor.DisplayName = actor.Username
	}
	return actor
}

func (g *Gateway) acknowledge(s *discordgo.Session, i *discordgo.InteractionCreate, action dispatch.Action) error {
	responseType := discordgo.InteractionResponseDeferredChannelMessageWithSource
	if action.Kind == dispatch.KindButton && editAcknowledges(action.CustomID) {
		responseType = discordgo.InteractionResponseDeferredMessageUpdate
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: responseType,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

// editAcknowledges reports whether the press is answered by editing the
// message it came from rather than by a followup.
func editAcknowledges(customID string) bool {
	return strings.HasPrefix(customID, render.CustomIDStatusPrefix) ||
		strings.HasPrefix(customID, render.CustomIDListPrevPrefix) ||
		strings.HasPrefix(customID, render.CustomIDListNextPrefix)
}

func (g *Gateway) deliver(s *discordgo.Session, i *discordgo.InteractionCreate, reply dispatch.Reply) {
	if reply.Content == "" && reply.File == nil {
		return
	}

	params := &discordgo.WebhookParams{Content: reply.Content}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if reply.File != nil {
		params.Files = buildFiles([]platform.File{*reply.File})
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		// Close deletes the channel before the followup lands; this is
		// expected, not actionable.
		g.logger.Debug("followup delivery failed", zap.Error(err))
	}
}

func (g *Gateway) channelName(s *discordgo.Session, channelID string) string {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	if ch, err := s.Channel(channelID); err == nil {
		return ch.Name
	}
	return ""
}

func commandOptions(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(options))
	for _, opt := range options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionUser:
			out[opt.Name] = opt.UserValue(nil).ID
		case discordgo.ApplicationCommandOptionString:
			out[opt.Name] = opt.StringValue()
		}
	}
	return out
}
