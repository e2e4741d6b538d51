package redis

import (
	"context"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING CACHE
// Stores fully computed monthly rankings as single JSON blobs keyed by month.
// Rankings are recomputed from events on every miss, so the cache only needs
// TTL-based freshness, not incremental updates.
// ══════════════════════════════════════════════════════════════════════════════

// RankingCacheRepo implements leaderboard.RankingCache on top of Redis.
type RankingCacheRepo struct {
	cache *Cache
}

// NewRankingCacheRepo creates a new ranking cache.
func NewRankingCacheRepo(cache *Cache) *RankingCacheRepo {
	return &RankingCacheRepo{cache: cache}
}

// GetRanking returns the cached ranking for a month window.
// Returns ErrCacheMiss if no ranking is cached for the window.
func (r *RankingCacheRepo) GetRanking(ctx context.Context, window leaderboard.MonthWindow) (*leaderboard.Ranking, error) {
	var ranking leaderboard.Ranking
	if err := r.cache.Get(ctx, RankingKey(window.Key()), &ranking); err != nil {
		return nil, err
	}
	return &ranking, nil
}

// SetRanking stores a computed ranking with the given TTL.
func (r *RankingCacheRepo) SetRanking(ctx context.Context, ranking *leaderboard.Ranking, ttl time.Duration) error {
	if ranking == nil {
		return ErrCacheNilValue
	}
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}
	return r.cache.Set(ctx, RankingKey(ranking.Window.Key()), ranking, ttl)
}

// InvalidateRanking removes the cached ranking for a month window.
func (r *RankingCacheRepo) InvalidateRanking(ctx context.Context, window leaderboard.MonthWindow) error {
	return r.cache.Delete(ctx, RankingKey(window.Key()))
}

// Compile-time interface check.
var _ leaderboard.RankingCache = (*RankingCacheRepo)(nil)
