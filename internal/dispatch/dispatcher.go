// Package dispatch routes normalized interactions to the ticket services.
// The dispatcher is the single choke point between the gateway and the
// core: it authorizes, converts every failure into a user-visible reply
// and never lets an error or panic escape to the platform adapter.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/naming"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

const genericFailure = "Something went wrong; please try again later."

// Dispatcher routes actions. All dependencies are required except metrics,
// which tolerates nil.
type Dispatcher struct {
	cfg         config.TicketsConfig
	branding    render.Branding
	tickets     *service.TicketService
	stats       *service.StatsService
	transcripts *service.TranscriptService
	client      platform.Client
	matcher     *naming.Matcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// New constructs the dispatcher.
func New(
	cfg config.TicketsConfig,
	branding render.Branding,
	tickets *service.TicketService,
	stats *service.StatsService,
	transcripts *service.TranscriptService,
	client platform.Client,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		cfg:         cfg,
		branding:    branding,
		tickets:     tickets,
		stats:       stats,
		transcripts: transcripts,
		client:      client,
		matcher:     naming.NewMatcher(cfg.Slugs()),
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle routes one action and always produces a reply decision.
func (d *Dispatcher) Handle(ctx context.Context, action Action) (reply Reply) {
	name := actionName(action)
	d.metrics.RecordAction(name)

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic", zap.String("action", name), zap.Any("panic", r))
			d.metrics.RecordFailure(name, util.CodeInternal)
			reply = Reply{Content: genericFailure, Ephemeral: true}
		}
	}()

	reply, err := d.route(ctx, action)
	if err != nil {
		d.logger.Warn("action failed", zap.String("action", name),
			zap.String("actor_id", action.Actor.ID), zap.Error(err))
		d.metrics.RecordFailure(name, util.CodeOf(err))
		return Reply{Content: failureMessage(err), Ephemeral: true}
	}
	return reply
}

func (d *Dispatcher) route(ctx context.Context, action Action) (Reply, error) {
	switch action.Kind {
	case KindCommand:
		return d.routeCommand(ctx, action)
	case KindButton:
		return d.routeButton(ctx, action)
	default:
		return Reply{}, util.NewValidationError("unknown action kind", nil)
	}
}

func (d *Dispatcher) routeCommand(ctx context.Context, action Action) (Reply, error) {
	switch action.Command {
	case CommandPanel:
		return d.handlePanel(ctx, action)
	case CommandMenu:
		return d.handleMenu(ctx, action)
	case CommandTop:
		return d.handleTop(ctx, action)
	case CommandStats:
		return d.handleStats(ctx, action)
	default:
		return Reply{}, util.NewValidationError("unknown command", map[string]any{"command": action.Command})
	}
}

func (d *Dispatcher) routeButton(ctx context.Context, action Action) (Reply, error) {
	if slug, ok := strings.CutPrefix(action.CustomID, render.CustomIDCreatePrefix); ok {
		return d.handleCreate(ctx, action, slug)
	}

	// The category browser lives in ordinary channels, so it routes before
	// the ticket-channel gate.
	if raw, ok := strings.CutPrefix(action.CustomID, render.CustomIDListPrevPrefix); ok {
		return d.handleListNav(ctx, action, raw, -1)
	}
	if raw, ok := strings.CutPrefix(action.CustomID, render.CustomIDListNextPrefix); ok {
		return d.handleListNav(ctx, action, raw, 1)
	}
	if action.CustomID == render.CustomIDListSelect {
		return d.handleListSelect(action)
	}

	// Everything below operates on an existing ticket channel; the naming
	// scheme is the gate.
	if !d.matcher.IsTicketChannel(action.ChannelName) {
		return Reply{Content: "This is not a ticket channel.", Ephemeral: true}, nil
	}

	if key, ok := strings.CutPrefix(action.CustomID, render.CustomIDStatusPrefix); ok {
		return d.handleStatus(ctx, action, key)
	}

	switch action.CustomID {
	case render.CustomIDClose:
		return d.handleClose(ctx, action)
	case render.CustomIDNotify:
		d.tickets.RecordAction(ctx, action.Actor, channelRef(action), domain.ActionNotify)
		return Reply{Content: "🔔 The support team has been notified.", Ephemeral: true}, nil
	case render.CustomIDMembers:
		d.tickets.RecordAction(ctx, action.Actor, channelRef(action), domain.ActionMember)
		return Reply{Content: "👤 Ask a staff member to add or remove participants.", Ephemeral: true}, nil
	case render.CustomIDTranscript:
		return d.handleTranscript(ctx, action)
	default:
		return Reply{}, util.NewValidationError("unknown component", map[string]any{"custom_id": action.CustomID})
	}
}

func (d *Dispatcher) handleCreate(ctx context.Context, action Action, slug string) (Reply, error) {
	result, err := d.tickets.Create(ctx, action.Actor, action.GuildID, slug)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Content:   fmt.Sprintf("✅ Your ticket is ready: <#%s>", result.ChannelID),
		Ephemeral: true,
	}, nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, action Action, key string) (Reply, error) {
	event, ok := transitionFor(key)
	if !ok {
		return Reply{}, util.NewValidationError("unknown status key", map[string]any{"key": key})
	}
	if _, err := d.tickets.Transition(ctx, action.Actor, channelRef(action), event); err != nil {
		return Reply{}, err
	}
	// The dashboard edit is the acknowledgement.
	return Reply{}, nil
}

func (d *Dispatcher) handleClose(ctx context.Context, action Action) (Reply, error) {
	if err := d.tickets.Close(ctx, action.Actor, channelRef(action)); err != nil {
		return Reply{}, err
	}
	// The channel is usually gone before this reply can land; the adapter
	// tolerates the failed delivery.
	return Reply{Content: "🔒 Ticket closed.", Ephemeral: true}, nil
}

func (d *Dispatcher) handleTranscript(ctx context.Context, action Action) (Reply, error) {
	ref := channelRef(action)
	file, err := d.transcripts.Export(ctx, ref)
	if err != nil {
		return Reply{}, err
	}
	d.tickets.RecordAction(ctx, action.Actor, ref, domain.ActionTranscript)
	if file == nil {
		return Reply{Content: "The transcript could not be generated right now.", Ephemeral: true}, nil
	}
	return Reply{
		Content:   "📄 Transcript of the last 50 messages.",
		Ephemeral: true,
		File:      file,
	}, nil
}

func (d *Dispatcher) handlePanel(ctx context.Context, action Action) (Reply, error) {
	if !action.Actor.Privileged {
		return Reply{}, util.NewAuthDenied("you need channel management access to post the panel")
	}
	payload := render.Panel(d.cfg.Categories, d.branding)
	if _, err := d.client.SendMessage(ctx, action.ChannelID, payload); err != nil {
		return Reply{}, util.NewPlatformIO("the panel could not be posted", err)
	}
	return Reply{Content: "Ticket panel posted.", Ephemeral: true}, nil
}

func (d *Dispatcher) handleMenu(ctx context.Context, action Action) (Reply, error) {
	payload := render.CategoryList(d.cfg.Categories, 0, d.branding)
	if _, err := d.client.SendMessage(ctx, action.ChannelID, payload); err != nil {
		return Reply{}, util.NewPlatformIO("the category list could not be posted", err)
	}
	return Reply{Content: "Category list posted.", Ephemeral: true}, nil
}

func (d *Dispatcher) handleListNav(ctx context.Context, action Action, raw string, delta int) (Reply, error) {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return Reply{}, util.NewValidationError("unknown list page", map[string]any{"custom_id": action.CustomID})
	}
	payload := render.CategoryList(d.cfg.Categories, page+delta, d.branding)
	if err := d.client.UpdateMessage(ctx, action.ChannelID, action.MessageID, payload); err != nil {
		return Reply{}, util.NewPlatformIO("the category list could not be updated", err)
	}
	// The message edit is the acknowledgement.
	return Reply{}, nil
}

func (d *Dispatcher) handleListSelect(action Action) (Reply, error) {
	if len(action.Values) == 0 {
		return Reply{}, util.NewValidationError("empty selection", nil)
	}
	raw, ok := strings.CutPrefix(action.Values[0], render.CustomIDListValuePrefix)
	if !ok {
		return Reply{}, util.NewValidationError("unknown selection", map[string]any{"value": action.Values[0]})
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= len(d.cfg.Categories) {
		return Reply{}, util.NewValidationError("unknown selection", map[string]any{"value": action.Values[0]})
	}
	return Reply{
		Content:   fmt.Sprintf("You selected **%s**.", d.cfg.Categories[idx].Name),
		Ephemeral: true,
	}, nil
}

func (d *Dispatcher) handleTop(ctx context.Context, action Action) (Reply, error) {
	kind := service.LeaderboardKind(action.Options["board"])
	if kind == "" {
		kind = service.LeaderboardOpeners
	}
	rows, err := d.stats.Leaderboard(ctx, action.GuildID, kind, 10)
	if err != nil {
		return Reply{}, err
	}
	if len(rows) == 0 {
		return Reply{Content: "No ticket activity recorded yet.", Ephemeral: true}, nil
	}

	title := "🏆 Top ticket openers"
	noun := "opened"
	if kind == service.LeaderboardStaff {
		title = "🏆 Top ticket staff"
		noun = "handled"
	}
	var sb strings.Builder
	sb.WriteString(title + "\n")
	for i, row := range rows {
		fmt.Fprintf(&sb, "`#%d` **%s** — %d %s\n", i+1, row.DisplayName, row.Count, noun)
	}
	return Reply{Content: sb.String()}, nil
}

func (d *Dispatcher) handleStats(ctx context.Context, action Action) (Reply, error) {
	userID := action.Options["user"]
	if userID == "" {
		userID = action.Actor.ID
	}
	stats, err := d.stats.UserStats(ctx, action.GuildID, userID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Content: fmt.Sprintf("📊 <@%s> opened **%d** and handled **%d** tickets.", userID, stats.Opened, stats.Handled),
	}, nil
}

func transitionFor(key string) (service.TransitionEvent, bool) {
	switch key {
	case render.StatusKeyClaim:
		return service.EventClaim, true
	case render.StatusKeyPending:
		return service.EventMarkPending, true
	case render.StatusKeyReview:
		return service.EventMarkReview, true
	case render.StatusKeyResolved:
		return service.EventMarkResolved, true
	default:
		return "", false
	}
}

func channelRef(action Action) service.ChannelRef {
	return service.ChannelRef{
		GuildID:   action.GuildID,
		ChannelID: action.ChannelID,
		Name:      action.ChannelName,
		MessageID: action.MessageID,
	}
}

func actionName(action Action) string {
	if action.Kind == KindCommand {
		return "command:" + action.Command
	}
	return "button:" + action.CustomID
}

func failureMessage(err error) string {
	var domainErr *util.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" && domainErr.Code != util.CodeInternal {
		return domainErr.Message
	}
	return genericFailure
}
