package redis

import (
	"context"
	"errors"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE ANALYTICS CACHE
// Stores computed course aggregates as JSON blobs keyed by course ID.
// Partial aggregates (those carrying omissions) are cached too: the omission
// list is part of the result, not an error state.
// ══════════════════════════════════════════════════════════════════════════════

// CourseCacheRepo implements analytics.CourseCache on top of Redis.
type CourseCacheRepo struct {
	cache *Cache
}

// NewCourseCacheRepo creates a new course analytics cache.
func NewCourseCacheRepo(cache *Cache) *CourseCacheRepo {
	return &CourseCacheRepo{cache: cache}
}

// GetCourseSummary returns the cached aggregate for a course.
// Returns shared.ErrNotFound on a cache miss.
func (r *CourseCacheRepo) GetCourseSummary(ctx context.Context, courseID string) (*analytics.CourseAnalyticsSummary, error) {
	var summary analytics.CourseAnalyticsSummary
	if err := r.cache.Get(ctx, CourseAnalyticsKey(courseID), &summary); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &summary, nil
}

// SetCourseSummary stores a computed aggregate with the given TTL.
func (r *CourseCacheRepo) SetCourseSummary(ctx context.Context, summary *analytics.CourseAnalyticsSummary, ttl time.Duration) error {
	if summary == nil {
		return ErrCacheNilValue
	}
	if ttl <= 0 {
		ttl = TTLCourseAnalytics
	}
	return r.cache.Set(ctx, CourseAnalyticsKey(summary.CourseID), summary, ttl)
}

// InvalidateCourseSummary drops the cached aggregate for a course.
func (r *CourseCacheRepo) InvalidateCourseSummary(ctx context.Context, courseID string) error {
	return r.cache.Delete(ctx, CourseAnalyticsKey(courseID))
}

// Compile-time interface check.
var _ analytics.CourseCache = (*CourseCacheRepo)(nil)
