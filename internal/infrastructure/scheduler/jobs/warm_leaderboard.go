// Package jobs contains the scheduled jobs of the analytics engine. All of
// them are cache warmers: they recompute derived artifacts ahead of demand so
// interactive requests are served from Redis instead of folding raw events.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RankingComputer recomputes a monthly ranking and stores it in the cache.
type RankingComputer interface {
	Compute(ctx context.Context, window leaderboard.MonthWindow) (*leaderboard.Ranking, error)
}

// WarmLeaderboardJob recomputes the current month's ranking so public
// leaderboard requests land on a warm cache. The previous month is warmed
// too: it stays queryable right after rollover while stragglers look at
// last month's results.
type WarmLeaderboardJob struct {
	computer RankingComputer
	log      *logger.Logger
	config   WarmLeaderboardConfig

	lastStats atomic.Value // *WarmLeaderboardStats
}

// WarmLeaderboardConfig contains configuration for the warm job.
type WarmLeaderboardConfig struct {
	// WarmPreviousMonth also recomputes the previous month's ranking.
	WarmPreviousMonth bool
}

// DefaultWarmLeaderboardConfig returns sensible defaults.
func DefaultWarmLeaderboardConfig() WarmLeaderboardConfig {
	return WarmLeaderboardConfig{
		WarmPreviousMonth: true,
	}
}

// WarmLeaderboardStats contains statistics from a warm run.
type WarmLeaderboardStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	WindowsWarmed int
	Participants  int
	Errors        []error
}

// NewWarmLeaderboardJob creates a new leaderboard warm job.
func NewWarmLeaderboardJob(computer RankingComputer, log *logger.Logger, config WarmLeaderboardConfig) *WarmLeaderboardJob {
	if log == nil {
		log = logger.Default()
	}
	return &WarmLeaderboardJob{
		computer: computer,
		log:      log,
		config:   config,
	}
}

// Name returns the job name.
func (j *WarmLeaderboardJob) Name() string {
	return "warm_leaderboard"
}

// Description returns a human-readable description.
func (j *WarmLeaderboardJob) Description() string {
	return "Recomputes monthly leaderboard rankings into the cache"
}

// Run executes the warm job.
func (j *WarmLeaderboardJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &WarmLeaderboardStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	windows := []leaderboard.MonthWindow{leaderboard.CurrentMonth()}
	if j.config.WarmPreviousMonth {
		windows = append(windows, leaderboard.CurrentMonth().Previous())
	}

	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			stats.Errors = append(stats.Errors, err)
			break
		}

		ranking, err := j.computer.Compute(ctx, window)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("warm %s: %w", window.Key(), err))
			j.log.Warn("leaderboard warm failed",
				logger.MonthKey(window.Key()),
				logger.Err(err),
			)
			continue
		}

		stats.WindowsWarmed++
		stats.Participants += ranking.TotalParticipants()
		j.log.Debug("leaderboard warmed",
			logger.MonthKey(window.Key()),
			logger.Int("participants", ranking.TotalParticipants()),
		)
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastStats.Store(stats)

	j.log.Info("warm_leaderboard finished",
		logger.Int("windows", stats.WindowsWarmed),
		logger.Int("errors", len(stats.Errors)),
		logger.Latency(stats.Duration),
	)

	if stats.WindowsWarmed == 0 && len(stats.Errors) > 0 {
		return fmt.Errorf("all windows failed: %w", stats.Errors[0])
	}
	return nil
}

// LastStats returns statistics from the most recent run.
func (j *WarmLeaderboardJob) LastStats() *WarmLeaderboardStats {
	if stats, ok := j.lastStats.Load().(*WarmLeaderboardStats); ok {
		return stats
	}
	return nil
}
