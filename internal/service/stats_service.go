package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/pkg/util"
)

// LeaderboardKind selects which aggregate a leaderboard ranks.
type LeaderboardKind string

const (
	LeaderboardOpeners LeaderboardKind = "opener"
	LeaderboardStaff   LeaderboardKind = "staff"
)

// LeaderboardRow is one ranked entry with a resolved display name.
type LeaderboardRow struct {
	UserID      string
	DisplayName string
	Count       int
}

// StatsService serves leaderboards and per-user activity summaries from
// the ticket store.
type StatsService struct {
	tickets repository.TicketRepository
	client  platform.Client
	logger  *zap.Logger
}

// NewStatsService constructs the service. The client may be nil (ops-only
// deployments); display names then stay unresolved.
func NewStatsService(tickets repository.TicketRepository, client platform.Client, logger *zap.Logger) *StatsService {
	return &StatsService{tickets: tickets, client: client, logger: logger}
}

// Leaderboard returns the top entries for the given kind. Openers rank by
// tickets opened, staff by tickets claimed. An unconfigured store yields an
// empty board, not an error.
func (s *StatsService) Leaderboard(ctx context.Context, guildID string, kind LeaderboardKind, limit int) ([]LeaderboardRow, error) {
	var (
		entries []repository.LeaderboardEntry
		err     error
	)
	switch kind {
	case LeaderboardOpeners:
		entries, err = s.tickets.TopOpeners(ctx, guildID, limit)
	case LeaderboardStaff:
		entries, err = s.tickets.TopClaimers(ctx, guildID, limit)
	default:
		return nil, util.NewValidationError("unknown leaderboard kind", map[string]any{"kind": string(kind)})
	}
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, LeaderboardRow{
			UserID:      entry.UserID,
			DisplayName: s.displayName(ctx, guildID, entry.UserID),
			Count:       entry.Count,
		})
	}
	return rows, nil
}

// UserStats returns the opened/handled counts for one member.
func (s *StatsService) UserStats(ctx context.Context, guildID, userID string) (repository.UserStats, error) {
	stats, err := s.tickets.UserStats(ctx, guildID, userID)
	if err != nil {
		return repository.UserStats{}, util.NewInternalError(err)
	}
	return stats, nil
}

// displayName resolves a member name best-effort; the raw ID is an
// acceptable fallback on any lookup failure.
func (s *StatsService) displayName(ctx context.Context, guildID, userID string) string {
	if s.client == nil {
		return userID
	}
	member, err := s.client.Member(ctx, guildID, userID)
	if err != nil || member == nil {
		return userID
	}
	if member.DisplayName != "" {
		return member.DisplayName
	}
	if member.Username != "" {
		return member.Username
	}
	return userID
}
