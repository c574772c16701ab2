package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/render"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

type memoryTicketRepo struct {
	tickets map[string]*domain.Ticket
	openers []repository.LeaderboardEntry
	stats   repository.UserStats
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *memoryTicketRepo) Persistent() bool { return true }

func (r *memoryTicketRepo) Insert(_ context.Context, ticket *domain.Ticket) error {
	r.tickets[ticket.ChannelID] = ticket
	return nil
}

func (r *memoryTicketRepo) UpdateStatus(_ context.Context, channelID string, status domain.TicketStatus, claimedBy *string) error {
	if t, ok := r.tickets[channelID]; ok {
		t.Status = status
		if claimedBy != nil {
			t.ClaimedBy = claimedBy
		}
	}
	return nil
}

func (r *memoryTicketRepo) Close(_ context.Context, channelID string) error {
	if t, ok := r.tickets[channelID]; ok {
		t.Status = domain.TicketStatusClosed
	}
	return nil
}

func (r *memoryTicketRepo) FindByChannel(_ context.Context, channelID string) (*domain.Ticket, error) {
	return r.tickets[channelID], nil
}

func (r *memoryTicketRepo) FindOpenByOpener(_ context.Context, guildID, openerID, slug string) (*domain.Ticket, error) {
	for _, t := range r.tickets {
		if t.GuildID == guildID && t.OpenerID == openerID && t.CategorySlug == slug && !t.Status.Terminal() {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memoryTicketRepo) CountInScope(_ context.Context, _, _ string) (int, error) {
	return len(r.tickets), nil
}

func (r *memoryTicketRepo) TopOpeners(_ context.Context, _ string, _ int) ([]repository.LeaderboardEntry, error) {
	return r.openers, nil
}

func (r *memoryTicketRepo) TopClaimers(_ context.Context, _ string, _ int) ([]repository.LeaderboardEntry, error) {
	return nil, nil
}

func (r *memoryTicketRepo) UserStats(_ context.Context, _, _ string) (repository.UserStats, error) {
	return r.stats, nil
}

type memoryEventRepo struct {
	actions []string
}

func (r *memoryEventRepo) Append(_ context.Context, event *domain.TicketEvent) error {
	r.actions = append(r.actions, event.Action)
	return nil
}

func (r *memoryEventRepo) ListByChannel(_ context.Context, _ string, _ int) ([]domain.TicketEvent, error) {
	return nil, nil
}

type stubAllocator struct{ next int }

func (a *stubAllocator) Next(_ context.Context, _, _ string) (int, error) { return a.next, nil }

type stubClient struct {
	sent     []platform.MessagePayload
	updated  []platform.MessagePayload
	deleted  []string
	messages []platform.Message
}

func (c *stubClient) CreateChannel(_ context.Context, _ string, create platform.ChannelCreate) (*platform.Channel, error) {
	return &platform.Channel{ID: "chan-1", Name: create.Name, ParentID: create.ParentID}, nil
}

func (c *stubClient) DeleteChannel(_ context.Context, channelID string) error {
	c.deleted = append(c.deleted, channelID)
	return nil
}

func (c *stubClient) SendMessage(_ context.Context, _ string, payload platform.MessagePayload) (string, error) {
	c.sent = append(c.sent, payload)
	return "msg-1", nil
}

func (c *stubClient) UpdateMessage(_ context.Context, _, _ string, payload platform.MessagePayload) error {
	c.updated = append(c.updated, payload)
	return nil
}

func (c *stubClient) ChannelMessages(_ context.Context, _ string, _ int) ([]platform.Message, error) {
	return c.messages, nil
}

func (c *stubClient) GuildChannels(_ context.Context, _ string) ([]platform.Channel, error) {
	return nil, nil
}

func (c *stubClient) Member(_ context.Context, _, userID string) (*platform.Member, error) {
	return &platform.Member{ID: userID, DisplayName: "Member " + userID}, nil
}

type harness struct {
	dispatcher *Dispatcher
	repo       *memoryTicketRepo
	auditlog   *memoryEventRepo
	client     *stubClient
	metrics    *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.TicketsConfig{
		Categories: []domain.Category{
			{Slug: "general", Name: "General Support", DestinationID: "cat-dest", Emoji: "🎫"},
		},
		FooterText:  "Acme Support",
		AvgResponse: "1-8 minutes",
		RenderMode:  config.RenderModeRich,
	}
	branding := render.Branding{FooterText: cfg.FooterText, AvgResponse: cfg.AvgResponse}

	h := &harness{
		repo:     newMemoryTicketRepo(),
		auditlog: &memoryEventRepo{},
		client:   &stubClient{},
		metrics:  observability.NewMetrics(),
	}
	logger := zap.NewNop()

	tickets := service.NewTicketService(cfg, "support-role", service.Dependencies{
		TicketRepo: h.repo,
		EventRepo:  h.auditlog,
		Allocator:  &stubAllocator{next: 1},
		Client:     h.client,
		Renderer:   render.NewRenderer(cfg.RenderMode, branding),
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})
	stats := service.NewStatsService(h.repo, h.client, logger)
	transcripts := service.NewTranscriptService(h.client, logger)

	h.dispatcher = New(cfg, branding, tickets, stats, transcripts, h.client, h.metrics, logger)
	return h
}

func buttonAction(customID, channelName string, actor domain.Actor) Action {
	return Action{
		Kind:        KindButton,
		CustomID:    customID,
		GuildID:     "g1",
		ChannelID:   "chan-1",
		ChannelName: channelName,
		MessageID:   "msg-1",
		Actor:       actor,
	}
}

func member() domain.Actor {
	return domain.Actor{ID: "user-1", Username: "Some User"}
}

func staffActor() domain.Actor {
	return domain.Actor{ID: "staff-1", Username: "Staff", Staff: true}
}

func adminActor() domain.Actor {
	return domain.Actor{ID: "admin-1", Username: "Admin", Staff: true, Privileged: true}
}

func TestHandleCreateButton(t *testing.T) {
	h := newHarness(t)

	reply := h.dispatcher.Handle(context.Background(), buttonAction(render.CustomIDCreatePrefix+"general", "lobby", member()))

	assert.True(t, reply.Ephemeral)
	assert.Contains(t, reply.Content, "<#chan-1>")
	assert.Contains(t, h.repo.tickets, "chan-1")
}

func TestHandleCreateDuplicateReply(t *testing.T) {
	h := newHarness(t)
	action := buttonAction(render.CustomIDCreatePrefix+"general", "lobby", member())

	first := h.dispatcher.Handle(context.Background(), action)
	assert.Contains(t, first.Content, "<#chan-1>")

	second := h.dispatcher.Handle(context.Background(), action)
	assert.Contains(t, second.Content, "already have an open ticket")

	actions, failures := h.metrics.Snapshot()
	assert.Equal(t, int64(2), actions["button:"+render.CustomIDCreatePrefix+"general"])
	assert.Equal(t, int64(1), failures["button:"+render.CustomIDCreatePrefix+"general|"+util.CodePreconditionFailed])
}

func TestLifecycleButtonsGatedByChannelName(t *testing.T) {
	h := newHarness(t)

	for _, customID := range []string{
		render.CustomIDStatusPrefix + render.StatusKeyClaim,
		render.CustomIDClose,
		render.CustomIDNotify,
		render.CustomIDTranscript,
	} {
		reply := h.dispatcher.Handle(context.Background(), buttonAction(customID, "general-chat", staffActor()))
		assert.Equal(t, "This is not a ticket channel.", reply.Content, customID)
	}
}

func TestHandleStatusButton(t *testing.T) {
	h := newHarness(t)
	h.repo.tickets["chan-1"] = &domain.Ticket{
		GuildID: "g1", ChannelID: "chan-1", OpenerID: "user-1", Status: domain.TicketStatusOpen,
	}

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDStatusPrefix+render.StatusKeyClaim, "some-user-general-1", staffActor()))

	// The dashboard edit is the acknowledgement.
	assert.Empty(t, reply.Content)
	assert.Equal(t, domain.TicketStatusClaimed, h.repo.tickets["chan-1"].Status)
}

func TestHandleStatusButtonNonStaff(t *testing.T) {
	h := newHarness(t)
	h.repo.tickets["chan-1"] = &domain.Ticket{
		GuildID: "g1", ChannelID: "chan-1", OpenerID: "user-1", Status: domain.TicketStatusOpen,
	}

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDStatusPrefix+render.StatusKeyClaim, "some-user-general-1", member()))

	assert.Contains(t, reply.Content, "only staff")
	assert.Equal(t, domain.TicketStatusOpen, h.repo.tickets["chan-1"].Status)
}

func TestHandleCloseButton(t *testing.T) {
	h := newHarness(t)
	h.repo.tickets["chan-1"] = &domain.Ticket{
		GuildID: "g1", ChannelID: "chan-1", OpenerID: "user-1", Status: domain.TicketStatusResolved,
	}

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDClose, "some-user-general-1", member()))

	assert.Contains(t, reply.Content, "closed")
	assert.Equal(t, domain.TicketStatusClosed, h.repo.tickets["chan-1"].Status)
	assert.Equal(t, []string{"chan-1"}, h.client.deleted)
}

func TestHandleAuxButtons(t *testing.T) {
	h := newHarness(t)

	notify := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDNotify, "some-user-general-1", member()))
	assert.NotEmpty(t, notify.Content)

	members := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDMembers, "some-user-general-1", member()))
	assert.NotEmpty(t, members.Content)

	assert.Equal(t, []string{domain.ActionNotify, domain.ActionMember}, h.auditlog.actions)
}

func TestHandleTranscriptButton(t *testing.T) {
	h := newHarness(t)
	h.client.messages = []platform.Message{{AuthorName: "opener", Content: "hello"}}

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDTranscript, "some-user-general-1", member()))

	require.NotNil(t, reply.File)
	assert.Contains(t, string(reply.File.Data), "hello")
	assert.Equal(t, []string{domain.ActionTranscript}, h.auditlog.actions)
}

func TestHandlePanelCommand(t *testing.T) {
	h := newHarness(t)

	denied := h.dispatcher.Handle(context.Background(), Action{
		Kind: KindCommand, Command: CommandPanel,
		GuildID: "g1", ChannelID: "lobby", Actor: staffActor(),
	})
	assert.Contains(t, denied.Content, "channel management access")
	assert.Empty(t, h.client.sent)

	posted := h.dispatcher.Handle(context.Background(), Action{
		Kind: KindCommand, Command: CommandPanel,
		GuildID: "g1", ChannelID: "lobby", Actor: adminActor(),
	})
	assert.Equal(t, "Ticket panel posted.", posted.Content)
	require.Len(t, h.client.sent, 1)
	require.Len(t, h.client.sent[0].Rows, 1)
	assert.Equal(t, render.CustomIDCreatePrefix+"general", h.client.sent[0].Rows[0].Buttons[0].CustomID)
}

func TestHandleMenuCommand(t *testing.T) {
	h := newHarness(t)

	reply := h.dispatcher.Handle(context.Background(), Action{
		Kind: KindCommand, Command: CommandMenu,
		GuildID: "g1", ChannelID: "lobby", Actor: member(),
	})

	assert.Equal(t, "Category list posted.", reply.Content)
	assert.True(t, reply.Ephemeral)
	require.Len(t, h.client.sent, 1)
	require.Len(t, h.client.sent[0].Rows, 2)
	menu := h.client.sent[0].Rows[1].Select
	require.NotNil(t, menu)
	assert.Equal(t, render.CustomIDListSelect, menu.CustomID)
}

func TestHandleListNavEditsMessage(t *testing.T) {
	h := newHarness(t)
	h.dispatcher.cfg.Categories = manyCategories(7)

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDListNextPrefix+"0", "lobby", member()))

	// The message edit is the acknowledgement.
	assert.Empty(t, reply.Content)
	require.Len(t, h.client.updated, 1)
	assert.Contains(t, h.client.updated[0].Embeds[0].Footer, "Page 2 / 2")

	back := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDListPrevPrefix+"1", "lobby", member()))
	assert.Empty(t, back.Content)
	require.Len(t, h.client.updated, 2)
	assert.Contains(t, h.client.updated[1].Embeds[0].Footer, "Page 1 / 2")
}

func TestHandleListNavBadPage(t *testing.T) {
	h := newHarness(t)

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDListNextPrefix+"oops", "lobby", member()))

	assert.NotEmpty(t, reply.Content)
	assert.True(t, reply.Ephemeral)
	assert.Empty(t, h.client.updated)
}

func TestHandleListSelect(t *testing.T) {
	h := newHarness(t)

	action := buttonAction(render.CustomIDListSelect, "lobby", member())
	action.Values = []string{render.CustomIDListValuePrefix + "0"}
	reply := h.dispatcher.Handle(context.Background(), action)

	assert.Contains(t, reply.Content, "General Support")
	assert.True(t, reply.Ephemeral)
}

func TestHandleListSelectUnknownValue(t *testing.T) {
	h := newHarness(t)

	action := buttonAction(render.CustomIDListSelect, "lobby", member())
	action.Values = []string{render.CustomIDListValuePrefix + "99"}
	reply := h.dispatcher.Handle(context.Background(), action)

	assert.True(t, reply.Ephemeral)
	_, failures := h.metrics.Snapshot()
	assert.Equal(t, int64(1), failures["button:"+render.CustomIDListSelect+"|"+util.CodeValidationFailed])
}

func manyCategories(n int) []domain.Category {
	categories := make([]domain.Category, n)
	for i := range categories {
		categories[i] = domain.Category{
			Slug: fmt.Sprintf("cat-%d", i),
			Name: fmt.Sprintf("Category %d", i),
		}
	}
	return categories
}

func TestHandleTopCommand(t *testing.T) {
	h := newHarness(t)
	h.repo.openers = []repository.LeaderboardEntry{
		{UserID: "user-1", Count: 5},
		{UserID: "user-2", Count: 2},
	}

	reply := h.dispatcher.Handle(context.Background(), Action{
		Kind: KindCommand, Command: CommandTop,
		Options: map[string]string{"board": "opener"},
		GuildID: "g1", Actor: member(),
	})

	assert.Contains(t, reply.Content, "Top ticket openers")
	assert.Contains(t, reply.Content, "Member user-1")
	assert.Contains(t, reply.Content, "5 opened")
}

func TestHandleTopCommandEmpty(t *testing.T) {
	h := newHarness(t)

	reply := h.dispatcher.Handle(context.Background(), Action{
		Kind: KindCommand, Command: CommandTop, GuildID: "g1", Actor: member(),
	})
	assert.Equal(t, "No ticket activity recorded yet.", reply.Content)
}

func TestHandleStatsCommandDefaultsToActor(t *testing.T) {
	h := newHarness(t)
	h.repo.stats = repository.UserStats{Opened: 2, Handled: 0}

	reply := h.dispatcher.Handle(context.Background(), Action{
		Kind: KindCommand, Command: CommandStats, GuildID: "g1", Actor: member(),
	})

	assert.Contains(t, reply.Content, "<@user-1>")
	assert.Contains(t, reply.Content, "**2**")
}

func TestHandleUnknownComponent(t *testing.T) {
	h := newHarness(t)

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction("ticket_mystery", "some-user-general-1", member()))
	assert.NotEmpty(t, reply.Content)
	assert.True(t, reply.Ephemeral)

	_, failures := h.metrics.Snapshot()
	assert.Equal(t, int64(1), failures["button:ticket_mystery|"+util.CodeValidationFailed])
}

func TestHandleRecoversFromPanic(t *testing.T) {
	h := newHarness(t)
	// A dispatcher wired without a transcript service panics on the
	// transcript path; the handler must turn that into a reply.
	h.dispatcher.transcripts = nil

	reply := h.dispatcher.Handle(context.Background(),
		buttonAction(render.CustomIDTranscript, "some-user-general-1", member()))

	assert.Equal(t, genericFailure, reply.Content)
	assert.True(t, reply.Ephemeral)
}
