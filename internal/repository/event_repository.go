package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventRepository appends to the immutable audit trail. Write-only from the
// core's perspective; ListByChannel backs the ops API events endpoint.
type EventRepository interface {
	Append(ctx context.Context, event *domain.TicketEvent) error
	ListByChannel(ctx context.Context, channelID string, limit int) ([]domain.TicketEvent, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates the repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Append(ctx context.Context, event *domain.TicketEvent) error {
	if r.pool == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_events (id, guild_id, channel_id, user_id, action, actor_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		event.ID,
		event.GuildID,
		event.ChannelID,
		event.UserID,
		event.Action,
		event.ActorID,
	).Scan(&event.CreatedAt)
}

func (r *eventRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]domain.TicketEvent, error) {
	if r.pool == nil {
		return []domain.TicketEvent{}, nil
	}
	const query = `
        SELECT id, guild_id, channel_id, user_id, action, actor_id, created_at
        FROM ticket_events WHERE channel_id=$1
        ORDER BY created_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, channelID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.GuildID,
			&event.ChannelID,
			&event.UserID,
			&event.Action,
			&event.ActorID,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
