package analytics

import (
	"context"
	"time"
)

// CourseCache defines the optional memoization layer for course aggregates.
// Like the ranking cache, it lives outside the derivation core: failures and
// misses fall back to recomputation from events.
type CourseCache interface {
	// GetCourseSummary returns the cached aggregate for a course.
	// Returns shared.ErrNotFound on a cache miss.
	GetCourseSummary(ctx context.Context, courseID string) (*CourseAnalyticsSummary, error)

	// SetCourseSummary stores a computed aggregate with the given TTL.
	SetCourseSummary(ctx context.Context, summary *CourseAnalyticsSummary, ttl time.Duration) error

	// InvalidateCourseSummary drops the cached aggregate for a course.
	InvalidateCourseSummary(ctx context.Context, courseID string) error
}
