package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM COURSES JOB
// ══════════════════════════════════════════════════════════════════════════════

// CourseLister enumerates the courses eligible for warming.
type CourseLister interface {
	ListCourseIDs(ctx context.Context) ([]string, error)
}

// CourseAggregator computes the analytics summary for one course.
type CourseAggregator interface {
	Aggregate(ctx context.Context, courseID string) (*analytics.CourseAnalyticsSummary, error)
}

// WarmCoursesJob recomputes course aggregates into the cache. Courses are
// processed sequentially: each aggregation already fans out per student, so
// the job itself stays single-file to bound load on the event stores.
type WarmCoursesJob struct {
	lister     CourseLister
	aggregator CourseAggregator
	cache      analytics.CourseCache
	log        *logger.Logger
	config     WarmCoursesConfig

	lastStats atomic.Value // *WarmCoursesStats
}

// WarmCoursesConfig contains configuration for the warm job.
type WarmCoursesConfig struct {
	// CacheTTL is the TTL for warmed aggregates.
	CacheTTL time.Duration

	// MaxCoursesPerRun caps how many courses a single run warms.
	// Zero means no cap.
	MaxCoursesPerRun int
}

// DefaultWarmCoursesConfig returns sensible defaults.
func DefaultWarmCoursesConfig() WarmCoursesConfig {
	return WarmCoursesConfig{
		CacheTTL:         5 * time.Minute,
		MaxCoursesPerRun: 200,
	}
}

// WarmCoursesStats contains statistics from a warm run.
type WarmCoursesStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	CoursesWarmed int
	CoursesFailed int
	PartialCount  int
	Errors        []error
}

// NewWarmCoursesJob creates a new course analytics warm job.
func NewWarmCoursesJob(
	lister CourseLister,
	aggregator CourseAggregator,
	cache analytics.CourseCache,
	log *logger.Logger,
	config WarmCoursesConfig,
) *WarmCoursesJob {
	if log == nil {
		log = logger.Default()
	}
	return &WarmCoursesJob{
		lister:     lister,
		aggregator: aggregator,
		cache:      cache,
		log:        log,
		config:     config,
	}
}

// Name returns the job name.
func (j *WarmCoursesJob) Name() string {
	return "warm_courses"
}

// Description returns a human-readable description.
func (j *WarmCoursesJob) Description() string {
	return "Recomputes course analytics aggregates into the cache"
}

// Run executes the warm job.
func (j *WarmCoursesJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &WarmCoursesStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	courseIDs, err := j.lister.ListCourseIDs(ctx)
	if err != nil {
		return fmt.Errorf("list courses: %w", err)
	}

	if j.config.MaxCoursesPerRun > 0 && len(courseIDs) > j.config.MaxCoursesPerRun {
		courseIDs = courseIDs[:j.config.MaxCoursesPerRun]
	}

	for _, courseID := range courseIDs {
		if err := ctx.Err(); err != nil {
			stats.Errors = append(stats.Errors, err)
			break
		}

		summary, err := j.aggregator.Aggregate(ctx, courseID)
		if err != nil {
			stats.CoursesFailed++
			stats.Errors = append(stats.Errors, fmt.Errorf("warm course %s: %w", courseID, err))
			j.log.Warn("course warm failed",
				logger.CourseID(courseID),
				logger.Err(err),
			)
			continue
		}

		if summary.IsPartial() {
			stats.PartialCount++
		}

		if j.cache != nil {
			if err := j.cache.SetCourseSummary(ctx, summary, j.config.CacheTTL); err != nil {
				j.log.Warn("course cache write failed",
					logger.CourseID(courseID),
					logger.Err(err),
				)
			}
		}

		stats.CoursesWarmed++
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.log.Info("warm_courses finished",
		logger.Int("warmed", stats.CoursesWarmed),
		logger.Int("failed", stats.CoursesFailed),
		logger.Int("partial", stats.PartialCount),
		logger.Latency(stats.Duration),
	)

	if stats.CoursesWarmed == 0 && stats.CoursesFailed > 0 {
		return fmt.Errorf("all courses failed: %w", stats.Errors[0])
	}
	return nil
}

// LastStats returns statistics from the most recent run.
func (j *WarmCoursesJob) LastStats() *WarmCoursesStats {
	if stats, ok := j.lastStats.Load().(*WarmCoursesStats); ok {
		return stats
	}
	return nil
}
