// Package main - точка входа фонового воркера аналитики EduFlip.
//
// Воркер не обслуживает запросы - он периодически прогревает кэши, чтобы
// интерактивные запросы к API попадали в тёплый Redis, а не складывали
// сырые события:
// - Пересчёт месячного рейтинга (текущий и предыдущий месяц)
// - Пересчёт сводок аналитики по курсам
//
// Воркер нужен только при раздельном деплое: API умеет прогревать кэш
// в своём процессе через SCHEDULER_ENABLED.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eduflip/eduflip-analytics/config"
	"github.com/eduflip/eduflip-analytics/internal/application/query"
	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/persistence/postgres"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/persistence/redis"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/scheduler"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/scheduler/jobs"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
	"github.com/eduflip/eduflip-analytics/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting eduflip-analytics worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПОДКЛЮЧЕНИЕ К REDIS
	// ─────────────────────────────────────────────────────────────────────────
	// Без Redis воркеру нечего прогревать.
	if cfg.Redis.Disabled {
		return fmt.Errorf("worker requires redis, REDIS_DISABLED is set")
	}

	var redisCache *redis.Cache
	if cfg.Redis.URL != "" {
		redisCache, err = redis.NewCacheFromURL(cfg.Redis.URL)
	} else {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCache, err = redis.NewCache(redisCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisCache.Close()
	log.Info("redis connection established")

	courseCache := redis.NewCourseCacheRepo(redisCache)
	rankingCache := redis.NewRankingCacheRepo(redisCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. СБОРКА ОБРАБОТЧИКОВ АГРЕГАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	eventReader := postgres.NewEventReaderRepo(dbConn)
	enrollmentReader := postgres.NewEnrollmentReaderRepo(dbConn)
	courseReader := postgres.NewCourseReaderRepo(dbConn)
	windowReader := postgres.NewWindowReaderRepo(dbConn)

	thresholds := progress.ParticipationThresholds{
		Low:    cfg.Analytics.ParticipationLow,
		Medium: cfg.Analytics.ParticipationMedium,
		High:   cfg.Analytics.ParticipationHigh,
	}

	courseAnalyticsQuery := query.NewGetCourseAnalyticsHandler(
		eventReader, enrollmentReader, courseReader, courseCache,
		thresholds,
		query.CourseAggregationConfig{
			StudentConcurrency: cfg.Analytics.StudentConcurrency,
			ActivityWindow:     cfg.Analytics.ActivityWindow,
			CacheTTL:           cfg.Analytics.CourseCacheTTL,
		}, log)

	leaderboardQuery := query.NewGetLeaderboardHandler(
		windowReader, rankingCache,
		query.LeaderboardOptions{
			Weights: leaderboard.ScoreWeights{
				ChapterCompleted: cfg.Leaderboard.ChapterWeight,
				QuizCompleted:    cfg.Leaderboard.QuizWeight,
				CourseAccessed:   cfg.Leaderboard.CourseWeight,
			},
			DefaultPageSize: cfg.Leaderboard.PageSize,
			CacheTTL:        cfg.Leaderboard.CacheTTL,
		}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ПЛАНИРОВЩИК И ДЖОБЫ ПРОГРЕВА
	// ─────────────────────────────────────────────────────────────────────────
	schedConfig := scheduler.DefaultConfig()
	schedConfig.Logger = log
	schedConfig.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
	schedConfig.JobTimeout = cfg.Scheduler.JobTimeout

	sched := scheduler.New(schedConfig)

	leaderboardSchedule, err := warmSchedule(
		cfg.Scheduler.WarmLeaderboardCron, cfg.Scheduler.WarmLeaderboardInterval)
	if err != nil {
		return fmt.Errorf("invalid leaderboard schedule: %w", err)
	}
	warmLeaderboard := jobs.NewWarmLeaderboardJob(
		leaderboardQuery, log, jobs.DefaultWarmLeaderboardConfig())
	if err := sched.Register(warmLeaderboard, leaderboardSchedule); err != nil {
		return fmt.Errorf("failed to register warm_leaderboard: %w", err)
	}

	coursesSchedule, err := warmSchedule(
		cfg.Scheduler.WarmCoursesCron, cfg.Scheduler.WarmCoursesInterval)
	if err != nil {
		return fmt.Errorf("invalid courses schedule: %w", err)
	}
	warmCoursesConfig := jobs.DefaultWarmCoursesConfig()
	warmCoursesConfig.CacheTTL = cfg.Analytics.CourseCacheTTL
	warmCourses := jobs.NewWarmCoursesJob(
		courseReader, courseAnalyticsQuery, courseCache, log, warmCoursesConfig)
	if err := sched.Register(warmCourses, coursesSchedule); err != nil {
		return fmt.Errorf("failed to register warm_courses: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("worker is running",
		logger.Duration("leaderboard_interval", cfg.Scheduler.WarmLeaderboardInterval),
		logger.Duration("courses_interval", cfg.Scheduler.WarmCoursesInterval),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal")

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}

// warmSchedule выбирает расписание джобы прогрева: cron-выражение в
// платформенном времени, если задано, иначе интервал с джиттером.
func warmSchedule(cronExpr string, interval time.Duration) (scheduler.Schedule, error) {
	if cronExpr != "" {
		return scheduler.NewCronSchedule(cronExpr, timeutil.PlatformTZ)
	}
	return scheduler.NewJitteredSchedule(interval, time.Minute), nil
}
