package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/naming"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/sequence"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// TransitionEvent names a staff-triggered status transition.
type TransitionEvent string

const (
	EventClaim        TransitionEvent = "claim"
	EventMarkPending  TransitionEvent = "mark-pending"
	EventMarkReview   TransitionEvent = "mark-review"
	EventMarkResolved TransitionEvent = "mark-resolved"
)

// target maps a transition event to the status it produces. No event
// targets open; it is the initial state only.
func (e TransitionEvent) target() (domain.TicketStatus, bool) {
	switch e {
	case EventClaim:
		return domain.TicketStatusClaimed, true
	case EventMarkPending:
		return domain.TicketStatusPending, true
	case EventMarkReview:
		return domain.TicketStatusReview, true
	case EventMarkResolved:
		return domain.TicketStatusResolved, true
	default:
		return "", false
	}
}

// ChannelRef locates the channel (and dashboard message) an action came
// from.
type ChannelRef struct {
	GuildID   string
	ChannelID string
	Name      string
	MessageID string
}

// CreateResult reports a successful ticket creation.
type CreateResult struct {
	Ticket    domain.Ticket
	ChannelID string
	Name      string
}

// TicketService owns ticket creation and the lifecycle state machine.
// Every transition follows the same shape: authorize, write the record,
// append one audit event, re-render the dashboard from the full current
// record, publish a process event.
type TicketService struct {
	cfg           config.TicketsConfig
	supportRoleID string
	tickets       repository.TicketRepository
	auditlog      repository.EventRepository
	alloc         sequence.Allocator
	client        platform.Client
	renderer      render.Renderer
	fallback      render.Renderer
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// Dependencies bundles collaborators for the ticket service.
type Dependencies struct {
	TicketRepo repository.TicketRepository
	EventRepo  repository.EventRepository
	Allocator  sequence.Allocator
	Client     platform.Client
	// Renderer is the negotiated dashboard renderer; Fallback, when set,
	// is tried once after a failed send (rich payload rejected by the
	// platform degrades to the flat embed).
	Renderer   render.Renderer
	Fallback   render.Renderer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketsConfig, supportRoleID string, deps Dependencies) *TicketService {
	return &TicketService{
		cfg:           cfg,
		supportRoleID: supportRoleID,
		tickets:       deps.TicketRepo,
		auditlog:      deps.EventRepo,
		alloc:         deps.Allocator,
		client:        deps.Client,
		renderer:      deps.Renderer,
		fallback:      deps.Fallback,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// Create opens a ticket channel for the actor in the given category.
// The duplicate guard runs against the durable store when configured,
// otherwise against live channel state; either way a second open ticket in
// the same (guild, opener, category) scope is rejected.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, guildID, slug string) (*CreateResult, error) {
	cat, ok := s.cfg.Category(slug)
	if !ok || cat.DestinationID == "" {
		return nil, util.NewConfigMissing("this category is not configured yet")
	}

	if s.tickets.Persistent() {
		existing, err := s.tickets.FindOpenByOpener(ctx, guildID, actor.ID, slug)
		if err != nil {
			return nil, util.NewInternalError(err)
		}
		if existing != nil {
			return nil, util.NewPrecondition("you already have an open ticket in this category; close it first or use that channel")
		}
	} else if s.hasOpenTicketChannel(ctx, actor, guildID, cat) {
		return nil, util.NewPrecondition("you already have an open ticket in this category; close it first or use that channel")
	}

	num, err := s.alloc.Next(ctx, guildID, slug)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	name := naming.ChannelName(actor.Username, slug, num)
	channel, err := s.client.CreateChannel(ctx, guildID, platform.ChannelCreate{
		Name:     name,
		ParentID: cat.DestinationID,
		Grants:   s.creationGrants(guildID, actor.ID),
	})
	if err != nil {
		return nil, util.NewPlatformIO("the ticket channel could not be created; please contact staff", err)
	}

	ticket := &domain.Ticket{
		GuildID:      guildID,
		ChannelID:    channel.ID,
		OpenerID:     actor.ID,
		CategorySlug: slug,
		CategoryName: cat.Name,
		TicketNum:    num,
		Status:       domain.TicketStatusOpen,
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenTicket) {
			// Lost the create race after the channel already existed;
			// remove the channel and reject as a duplicate.
			if derr := s.client.DeleteChannel(ctx, channel.ID); derr != nil {
				s.logger.Error("orphaned duplicate ticket channel", zap.String("channel_id", channel.ID), zap.Error(derr))
			}
			return nil, util.NewPrecondition("you already have an open ticket in this category; close it first or use that channel")
		}
		// A channel without a record is an accepted, flagged
		// inconsistency; the action is not retried.
		s.logger.Error("ticket record insert failed; channel has no record",
			zap.String("channel_id", channel.ID), zap.Error(err))
	}

	s.appendAudit(ctx, guildID, channel.ID, actor.ID, "open", nil)
	s.sendDashboard(ctx, channel.ID, render.NewView(*ticket, actor.AvatarURL))
	s.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		GuildID:   guildID,
		ChannelID: channel.ID,
		ActorID:   actor.ID,
		Payload: events.TicketCreatedPayload{
			OpenerID:     actor.ID,
			CategorySlug: slug,
			TicketNum:    num,
			ChannelName:  name,
		},
	})

	return &CreateResult{Ticket: *ticket, ChannelID: channel.ID, Name: name}, nil
}

// Transition applies a staff status transition to the ticket behind the
// channel. A missing record is a best-effort condition: the write no-ops
// but the dashboard still updates. A closed record is terminal.
func (s *TicketService) Transition(ctx context.Context, actor domain.Actor, ref ChannelRef, event TransitionEvent) (*domain.Ticket, error) {
	status, ok := event.target()
	if !ok {
		return nil, util.NewValidationError("unknown transition", nil)
	}
	if !actor.Staff {
		return nil, util.NewAuthDenied("only staff can update the ticket status")
	}

	ticket, err := s.tickets.FindByChannel(ctx, ref.ChannelID)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if ticket != nil && ticket.Status.Terminal() {
		return nil, util.NewPrecondition("this ticket is already closed")
	}

	var claimedBy *string
	if status == domain.TicketStatusClaimed {
		id := actor.ID
		claimedBy = &id
	}
	if err := s.tickets.UpdateStatus(ctx, ref.ChannelID, status, claimedBy); err != nil {
		return nil, util.NewInternalError(err)
	}

	subjectID := "0"
	if ticket != nil {
		subjectID = ticket.OpenerID
	}
	var actorID *string
	if status == domain.TicketStatusClaimed {
		id := actor.ID
		actorID = &id
	}
	s.appendAudit(ctx, ref.GuildID, ref.ChannelID, subjectID, string(status), actorID)

	updated := s.currentRecord(ticket, ref)
	oldStatus := updated.Status
	updated.Status = status
	if claimedBy != nil {
		updated.ClaimedBy = claimedBy
	}
	s.updateDashboard(ctx, ref, render.NewView(updated, s.openerAvatar(ctx, ref.GuildID, updated.OpenerID)))

	s.publish(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		GuildID:   ref.GuildID,
		ChannelID: ref.ChannelID,
		ActorID:   actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
			ClaimedBy: claimedBy,
		},
	})
	return &updated, nil
}

// Close terminates the ticket: closed_at is written exactly once, one
// audit event is appended and the backing channel is deleted. Only the
// ticket owner or a privileged actor may close.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, ref ChannelRef) error {
	ticket, err := s.tickets.FindByChannel(ctx, ref.ChannelID)
	if err != nil {
		return util.NewInternalError(err)
	}
	if ticket != nil && ticket.Status.Terminal() {
		return util.NewPrecondition("this ticket is already closed")
	}

	owner := false
	if ticket != nil {
		owner = ticket.OpenerID == actor.ID
	} else {
		// No record to consult; fall back to the naming prefix the
		// channel was created with.
		owner = strings.HasPrefix(ref.Name, naming.Slugify(actor.Username)+"-")
	}
	if !actor.Privileged && !owner {
		return util.NewAuthDenied("only the ticket owner or staff can close this ticket")
	}

	if err := s.tickets.Close(ctx, ref.ChannelID); err != nil {
		return util.NewInternalError(err)
	}
	s.appendAudit(ctx, ref.GuildID, ref.ChannelID, actor.ID, "close", nil)

	openerID := actor.ID
	if ticket != nil {
		openerID = ticket.OpenerID
	}
	s.publish(ctx, events.Event{
		Type:      events.EventTicketClosed,
		GuildID:   ref.GuildID,
		ChannelID: ref.ChannelID,
		ActorID:   actor.ID,
		Payload:   events.TicketClosedPayload{OpenerID: openerID, ClosedBy: actor.ID},
	})

	// Channel deletion is best-effort; the record is already closed and a
	// failed delete must not surface as a transition failure.
	if err := s.client.DeleteChannel(ctx, ref.ChannelID); err != nil {
		s.logger.Error("ticket channel delete failed", zap.String("channel_id", ref.ChannelID), zap.Error(err))
	}
	return nil
}

// RecordAction appends an auxiliary audit event (notify, member) without
// changing status.
func (s *TicketService) RecordAction(ctx context.Context, actor domain.Actor, ref ChannelRef, action string) {
	s.appendAudit(ctx, ref.GuildID, ref.ChannelID, actor.ID, action, nil)
	s.publish(ctx, events.Event{
		Type:      events.EventTicketAction,
		GuildID:   ref.GuildID,
		ChannelID: ref.ChannelID,
		ActorID:   actor.ID,
		Payload:   events.TicketActionPayload{Action: action},
	})
}

func (s *TicketService) currentRecord(ticket *domain.Ticket, ref ChannelRef) domain.Ticket {
	if ticket != nil {
		return *ticket
	}
	// Name matched but no record exists (stale or unsynced state); render
	// best-effort from a zero-value record.
	return domain.Ticket{GuildID: ref.GuildID, ChannelID: ref.ChannelID, Status: domain.TicketStatusOpen}
}

func (s *TicketService) creationGrants(guildID, openerID string) []platform.Grant {
	openerPerms := platform.PermView | platform.PermSend | platform.PermHistory |
		platform.PermAttach | platform.PermEmbedLinks
	grants := []platform.Grant{
		{PrincipalID: guildID, Role: true, Deny: platform.PermView},
		{PrincipalID: openerID, Allow: openerPerms},
	}
	if s.supportRoleID != "" {
		grants = append(grants, platform.Grant{
			PrincipalID: s.supportRoleID,
			Role:        true,
			Allow: platform.PermView | platform.PermSend | platform.PermHistory |
				platform.PermManageMessages,
		})
	}
	return grants
}

// hasOpenTicketChannel is the live duplicate scan used when the store is
// unconfigured: a channel under the category destination whose name
// carries the user's prefix and which still grants the user view access.
func (s *TicketService) hasOpenTicketChannel(ctx context.Context, actor domain.Actor, guildID string, cat domain.Category) bool {
	channels, err := s.client.GuildChannels(ctx, guildID)
	if err != nil {
		s.logger.Warn("duplicate scan failed", zap.Error(err))
		return false
	}
	prefix := naming.UserPrefix(actor.Username, cat.Slug)
	for _, ch := range channels {
		if ch.ParentID == cat.DestinationID && ch.HasPrefix(prefix) && ch.AllowsView(actor.ID) {
			return true
		}
	}
	return false
}

func (s *TicketService) sendDashboard(ctx context.Context, channelID string, view render.View) {
	payload := s.renderer.Dashboard(view)
	if _, err := s.client.SendMessage(ctx, channelID, payload); err != nil {
		s.logger.Warn("dashboard send failed", zap.String("channel_id", channelID), zap.Error(err))
		if s.fallback == nil {
			return
		}
		if _, err := s.client.SendMessage(ctx, channelID, s.fallback.Dashboard(view)); err != nil {
			s.logger.Error("dashboard fallback send failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	}
}

func (s *TicketService) updateDashboard(ctx context.Context, ref ChannelRef, view render.View) {
	if ref.MessageID == "" {
		return
	}
	payload := s.renderer.Dashboard(view)
	if err := s.client.UpdateMessage(ctx, ref.ChannelID, ref.MessageID, payload); err != nil {
		s.logger.Warn("dashboard update failed", zap.String("channel_id", ref.ChannelID), zap.Error(err))
		if s.fallback == nil {
			return
		}
		if err := s.client.UpdateMessage(ctx, ref.ChannelID, ref.MessageID, s.fallback.Dashboard(view)); err != nil {
			s.logger.Error("dashboard fallback update failed", zap.String("channel_id", ref.ChannelID), zap.Error(err))
		}
	}
}

func (s *TicketService) openerAvatar(ctx context.Context, guildID, openerID string) string {
	if openerID == "" || openerID == "0" {
		return ""
	}
	member, err := s.client.Member(ctx, guildID, openerID)
	if err != nil || member == nil {
		return ""
	}
	return member.AvatarURL
}

// appendAudit writes one immutable trail entry. Audit failures are logged,
// never propagated; the status write has already landed and nothing is
// retried.
func (s *TicketService) appendAudit(ctx context.Context, guildID, channelID, userID, action string, actorID *string) {
	event := &domain.TicketEvent{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Action:    action,
		ActorID:   actorID,
	}
	if err := s.auditlog.Append(ctx, event); err != nil {
		s.logger.Error("audit append failed",
			zap.String("channel_id", channelID), zap.String("action", action), zap.Error(err))
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
