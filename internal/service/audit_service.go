package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
)

// AuditService mirrors lifecycle events into the structured log and the
// in-memory metrics counters. It consumes the dispatcher; the durable trail
// is written by the ticket service before publication.
type AuditService struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, metrics: metrics, logger: logger}
}

// RegisterHandlers subscribes the service to every lifecycle event type.
func (s *AuditService) RegisterHandlers() {
	for _, t := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketClosed,
		events.EventTicketAction,
	} {
		s.dispatcher.Subscribe(t, s.handle)
	}
}

func (s *AuditService) handle(_ context.Context, event events.Event) error {
	s.metrics.RecordAction("event:" + string(event.Type))
	s.logger.Info("ticket event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload),
	)
	return nil
}
