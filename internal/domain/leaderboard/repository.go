package leaderboard

import (
	"context"
	"time"
)

// RankingCache defines the optional memoization layer for computed rankings.
// The cache sits outside the derivation core: a miss or a cache failure
// simply means the ranking is recomputed from events.
type RankingCache interface {
	// GetRanking returns the cached ranking for a month window.
	// Returns shared.ErrNotFound on a cache miss.
	GetRanking(ctx context.Context, window MonthWindow) (*Ranking, error)

	// SetRanking stores a computed ranking with the given TTL.
	SetRanking(ctx context.Context, ranking *Ranking, ttl time.Duration) error

	// InvalidateRanking drops the cached ranking for a window.
	InvalidateRanking(ctx context.Context, window MonthWindow) error
}
