// Package sequence produces ticket display numbers scoped to
// (guild, category). The primary allocator is an atomic Redis counter, which
// removes the duplicate-number race of deriving numbers from a stale record
// count. Without Redis the allocator falls back to count+1, preserving the
// documented weak-consistency behavior; without any store every ticket is
// number 1.
package sequence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-bot/internal/persistence"
)

// CountSource exposes the historical record count for a scope. Closed
// tickets are never deleted, so the count stays a valid seed.
type CountSource interface {
	CountInScope(ctx context.Context, guildID, categorySlug string) (int, error)
}

// Allocator yields the next ticket number for a scope.
type Allocator interface {
	Next(ctx context.Context, guildID, categorySlug string) (int, error)
}

// New picks the Redis-backed allocator when a counter backend is
// configured, otherwise the record-count fallback.
func New(r *persistence.Redis, counts CountSource) Allocator {
	if r.Configured() {
		return &redisAllocator{client: r.Client, counts: counts}
	}
	return &countAllocator{counts: counts}
}

type redisAllocator struct {
	client *redis.Client
	counts CountSource
}

func scopeKey(guildID, categorySlug string) string {
	return fmt.Sprintf("ticket:seq:%s:%s", guildID, categorySlug)
}

func (a *redisAllocator) Next(ctx context.Context, guildID, categorySlug string) (int, error) {
	key := scopeKey(guildID, categorySlug)

	// Seed the counter from the store count the first time a scope is
	// seen. SetNX keeps concurrent seeders from clobbering each other.
	exists, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return a.fallback(ctx, guildID, categorySlug)
	}
	if exists == 0 {
		count, err := a.counts.CountInScope(ctx, guildID, categorySlug)
		if err != nil {
			return 0, err
		}
		if err := a.client.SetNX(ctx, key, strconv.Itoa(count), 0).Err(); err != nil {
			return a.fallback(ctx, guildID, categorySlug)
		}
	}

	next, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return a.fallback(ctx, guildID, categorySlug)
	}
	return int(next), nil
}

func (a *redisAllocator) fallback(ctx context.Context, guildID, categorySlug string) (int, error) {
	count, err := a.counts.CountInScope(ctx, guildID, categorySlug)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}

type countAllocator struct {
	counts CountSource
}

func (a *countAllocator) Next(ctx context.Context, guildID, categorySlug string) (int, error) {
	count, err := a.counts.CountInScope(ctx, guildID, categorySlug)
	if err != nil {
		return 0, err
	}
	return count + 1, nil
}
