package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// ErrDuplicateOpenTicket is returned by Insert when the opener already
// holds an open ticket in the same (guild, category) scope. Backed by the
// partial unique index, so concurrent creations cannot both land.
var ErrDuplicateOpenTicket = errors.New("duplicate open ticket in scope")

// LeaderboardEntry is one row of a ranked aggregate.
type LeaderboardEntry struct {
	UserID string
	Count  int
}

// UserStats summarizes one member's ticket activity in a guild.
type UserStats struct {
	Opened  int
	Handled int
}

// TicketRepository encapsulates ticket persistence. Every method tolerates
// an unconfigured store: writes become no-ops, reads return zero values.
type TicketRepository interface {
	// Persistent reports whether writes actually land in a store.
	Persistent() bool
	Insert(ctx context.Context, ticket *domain.Ticket) error
	UpdateStatus(ctx context.Context, channelID string, status domain.TicketStatus, claimedBy *string) error
	Close(ctx context.Context, channelID string) error
	// FindByChannel returns (nil, nil) when no record exists; a miss is a
	// normal best-effort condition, not an error.
	FindByChannel(ctx context.Context, channelID string) (*domain.Ticket, error)
	FindOpenByOpener(ctx context.Context, guildID, openerID, categorySlug string) (*domain.Ticket, error)
	CountInScope(ctx context.Context, guildID, categorySlug string) (int, error)
	TopOpeners(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error)
	TopClaimers(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error)
	UserStats(ctx context.Context, guildID, userID string) (UserStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository. A nil pool yields the
// degraded no-op behavior.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Persistent() bool {
	return r.pool != nil
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	if r.pool == nil {
		ticket.CreatedAt = time.Now()
		return nil
	}
	const query = `
        INSERT INTO tickets (channel_id, guild_id, opener_id, category_slug, category_name, ticket_num, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ChannelID,
		ticket.GuildID,
		ticket.OpenerID,
		ticket.CategorySlug,
		ticket.CategoryName,
		ticket.TicketNum,
		domain.TicketStatusOpen,
	).Scan(&ticket.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOpenTicket
		}
		return err
	}
	ticket.Status = domain.TicketStatusOpen
	return nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, channelID string, status domain.TicketStatus, claimedBy *string) error {
	if r.pool == nil {
		return nil
	}
	if claimedBy != nil {
		const query = `UPDATE tickets SET status=$1, claimed_by=$2 WHERE channel_id=$3`
		_, err := r.pool.Exec(ctx, query, status, *claimedBy, channelID)
		return err
	}
	// ClaimedBy is retained on transitions away from claimed; the record
	// keeps history.
	const query = `UPDATE tickets SET status=$1 WHERE channel_id=$2`
	_, err := r.pool.Exec(ctx, query, status, channelID)
	return err
}

func (r *ticketRepository) Close(ctx context.Context, channelID string) error {
	if r.pool == nil {
		return nil
	}
	// closed_at is written exactly once and never un-set.
	const query = `
        UPDATE tickets SET status=$1, closed_at=COALESCE(closed_at, NOW())
        WHERE channel_id=$2`
	_, err := r.pool.Exec(ctx, query, domain.TicketStatusClosed, channelID)
	return err
}

func (r *ticketRepository) FindByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	if r.pool == nil {
		return nil, nil
	}
	const query = `
        SELECT channel_id, guild_id, opener_id, category_slug, category_name,
               ticket_num, status, claimed_by, created_at, closed_at
        FROM tickets WHERE channel_id=$1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) FindOpenByOpener(ctx context.Context, guildID, openerID, categorySlug string) (*domain.Ticket, error) {
	if r.pool == nil {
		return nil, nil
	}
	const query = `
        SELECT channel_id, guild_id, opener_id, category_slug, category_name,
               ticket_num, status, claimed_by, created_at, closed_at
        FROM tickets
        WHERE guild_id=$1 AND opener_id=$2 AND category_slug=$3 AND status <> $4`
	return r.fetchSingle(ctx, query, guildID, openerID, categorySlug, domain.TicketStatusClosed)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ChannelID,
		&ticket.GuildID,
		&ticket.OpenerID,
		&ticket.CategorySlug,
		&ticket.CategoryName,
		&ticket.TicketNum,
		&ticket.Status,
		&ticket.ClaimedBy,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) CountInScope(ctx context.Context, guildID, categorySlug string) (int, error) {
	if r.pool == nil {
		return 0, nil
	}
	const query = `SELECT COUNT(*) FROM tickets WHERE guild_id=$1 AND category_slug=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, guildID, categorySlug).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) TopOpeners(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error) {
	if r.pool == nil {
		return []LeaderboardEntry{}, nil
	}
	const query = `
        SELECT opener_id, COUNT(*) AS opened
        FROM tickets WHERE guild_id=$1
        GROUP BY opener_id ORDER BY opened DESC LIMIT $2`
	return r.fetchLeaderboard(ctx, query, guildID, normalizeLimit(limit))
}

func (r *ticketRepository) TopClaimers(ctx context.Context, guildID string, limit int) ([]LeaderboardEntry, error) {
	if r.pool == nil {
		return []LeaderboardEntry{}, nil
	}
	const query = `
        SELECT claimed_by, COUNT(*) AS handled
        FROM tickets WHERE guild_id=$1 AND claimed_by IS NOT NULL
        GROUP BY claimed_by ORDER BY handled DESC LIMIT $2`
	return r.fetchLeaderboard(ctx, query, guildID, normalizeLimit(limit))
}

func (r *ticketRepository) fetchLeaderboard(ctx context.Context, query, guildID string, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Count); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *ticketRepository) UserStats(ctx context.Context, guildID, userID string) (UserStats, error) {
	if r.pool == nil {
		return UserStats{}, nil
	}
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE opener_id=$2)  AS opened,
            COUNT(*) FILTER (WHERE claimed_by=$2) AS handled
        FROM tickets WHERE guild_id=$1`
	var stats UserStats
	if err := r.pool.QueryRow(ctx, query, guildID, userID).Scan(&stats.Opened, &stats.Handled); err != nil {
		return UserStats{}, err
	}
	return stats, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}
