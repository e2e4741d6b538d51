// Package main - точка входа HTTP API аналитики прогресса EduFlip.
//
// Движок аналитики не хранит собственного состояния: каждая сводка выводится
// из неизменяемых событий платформы на момент запроса. Redis используется
// строго как мемоизация - его потеря деградирует до пересчёта, но никогда
// не меняет ответы.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистые калькуляторы прогресса, агрегации и рейтинга
// - Application: query-обработчики (CQRS, только чтение)
// - Infrastructure: читатели событий, кэш, identity-клиент, планировщик
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eduflip/eduflip-analytics/config"
	"github.com/eduflip/eduflip-analytics/internal/application/query"
	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/external/identity"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/persistence/postgres"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/persistence/redis"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/scheduler"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/eduflip/eduflip-analytics/internal/interface/http"
	"github.com/eduflip/eduflip-analytics/internal/interface/http/handlers"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
	"github.com/eduflip/eduflip-analytics/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// .env подхватывается только если файл существует (локальная разработка).
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
	log.Info("starting eduflip-analytics api",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL, только чтение)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Кэш - чистая мемоизация: без Redis каждый запрос пересчитывается
	// из событий, ответы не меняются.
	var (
		redisCache   *redis.Cache
		courseCache  *redis.CourseCacheRepo
		rankingCache *redis.RankingCacheRepo
	)
	if !cfg.Redis.Disabled {
		log.Info("connecting to redis")
		redisCache, err = connectRedis(cfg)
		if err != nil {
			log.Warn("redis unavailable, serving without cache", logger.Err(err))
		} else {
			defer redisCache.Close()
			courseCache = redis.NewCourseCacheRepo(redisCache)
			rankingCache = redis.NewRankingCacheRepo(redisCache)
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ ЧТЕНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	eventReader := postgres.NewEventReaderRepo(dbConn)
	enrollmentReader := postgres.NewEnrollmentReaderRepo(dbConn)
	courseReader := postgres.NewCourseReaderRepo(dbConn)
	windowReader := postgres.NewWindowReaderRepo(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ IDENTITY-КЛИЕНТА (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var identityClient *identity.Client
	if cfg.Identity.BaseURL != "" {
		identityConfig := identity.DefaultClientConfig(cfg.Identity.BaseURL)
		identityConfig.APIKey = cfg.Identity.APIKey
		identityConfig.Timeout = cfg.Identity.RequestTimeout
		identityConfig.Logger = log
		identityConfig.Debug = cfg.App.Debug
		identityClient = identity.NewClient(identityConfig)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ QUERY-ОБРАБОТЧИКОВ
	// ─────────────────────────────────────────────────────────────────────────
	thresholds := progress.ParticipationThresholds{
		Low:    cfg.Analytics.ParticipationLow,
		Medium: cfg.Analytics.ParticipationMedium,
		High:   cfg.Analytics.ParticipationHigh,
	}

	studentProgressQuery := query.NewGetStudentProgressHandler(
		eventReader, enrollmentReader, courseReader, thresholds, log)

	courseAnalyticsQuery := query.NewGetCourseAnalyticsHandler(
		eventReader, enrollmentReader, courseReader, nilIfNoCourseCache(courseCache),
		thresholds,
		query.CourseAggregationConfig{
			StudentConcurrency: cfg.Analytics.StudentConcurrency,
			ActivityWindow:     cfg.Analytics.ActivityWindow,
			CacheTTL:           cfg.Analytics.CourseCacheTTL,
		}, log)

	teacherPortfolioQuery := query.NewGetTeacherPortfolioHandler(
		courseAnalyticsQuery,
		query.PortfolioConfig{
			CourseConcurrency: cfg.Analytics.CourseConcurrency,
			Deadline:          cfg.Analytics.AggregationDeadline,
		}, log)

	leaderboardQuery := query.NewGetLeaderboardHandler(
		windowReader, nilIfNoRankingCache(rankingCache),
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
	// 8. ПЛАНИРОВЩИК ПРОГРЕВА КЭША (опционально, в том же процессе)
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled && redisCache != nil {
		sched, err = buildScheduler(cfg, log, leaderboardQuery, courseReader, courseAnalyticsQuery, courseCache)
		if err != nil {
			return fmt.Errorf("failed to build scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		health.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. СОЗДАНИЕ И ЗАПУСК HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.ConfigFrom(cfg)
	httpDeps := httpserver.Dependencies{
		StudentProgress:  studentProgressQuery,
		CourseAnalytics:  courseAnalyticsQuery,
		TeacherPortfolio: teacherPortfolioQuery,
		Leaderboard:      leaderboardQuery,
		Identity:         identityClient,
		Scheduler:        sched,
		CourseCache:      nilIfNoCourseCache(courseCache),
		RankingCache:     nilIfNoRankingCache(rankingCache),
		Features:         cfg.Features,
		Logger:           log,
		Health:           health,
	}
	server := httpserver.NewServer(httpConfig, httpDeps)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("eduflip-analytics api is running", logger.String("addr", httpConfig.Addr))

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		log.Error("server error", logger.Err(err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop http server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// connectRedis подключается по URL, если он задан, иначе по отдельным полям.
func connectRedis(cfg *config.Config) (*redis.Cache, error) {
	if cfg.Redis.URL != "" {
		return redis.NewCacheFromURL(cfg.Redis.URL)
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
	return redis.NewCache(redisCfg)
}

// buildScheduler регистрирует джобы прогрева кэша.
func buildScheduler(
	cfg *config.Config,
	log *logger.Logger,
	leaderboardQuery *query.GetLeaderboardHandler,
	courseReader *postgres.CourseReaderRepo,
	courseAnalyticsQuery *query.GetCourseAnalyticsHandler,
	courseCache *redis.CourseCacheRepo,
) (*scheduler.Scheduler, error) {
	schedConfig := scheduler.DefaultConfig()
	schedConfig.Logger = log
	schedConfig.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
	schedConfig.JobTimeout = cfg.Scheduler.JobTimeout

	sched := scheduler.New(schedConfig)

	leaderboardSchedule, err := warmSchedule(
		cfg.Scheduler.WarmLeaderboardCron, cfg.Scheduler.WarmLeaderboardInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid leaderboard schedule: %w", err)
	}
	warmLeaderboard := jobs.NewWarmLeaderboardJob(
		leaderboardQuery, log, jobs.DefaultWarmLeaderboardConfig())
	if err := sched.Register(warmLeaderboard, leaderboardSchedule); err != nil {
		return nil, err
	}

	coursesSchedule, err := warmSchedule(
		cfg.Scheduler.WarmCoursesCron, cfg.Scheduler.WarmCoursesInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid courses schedule: %w", err)
	}
	warmCoursesConfig := jobs.DefaultWarmCoursesConfig()
	warmCoursesConfig.CacheTTL = cfg.Analytics.CourseCacheTTL
	warmCourses := jobs.NewWarmCoursesJob(
		courseReader, courseAnalyticsQuery, courseCache, log, warmCoursesConfig)
	if err := sched.Register(warmCourses, coursesSchedule); err != nil {
		return nil, err
	}

	return sched, nil
}

// warmSchedule выбирает расписание джобы прогрева: cron-выражение в
// платформенном времени, если задано, иначе интервал с джиттером.
func warmSchedule(cronExpr string, interval time.Duration) (scheduler.Schedule, error) {
	if cronExpr != "" {
		return scheduler.NewCronSchedule(cronExpr, timeutil.PlatformTZ)
	}
	return scheduler.NewJitteredSchedule(interval, time.Minute), nil
}

// nilIfNoCourseCache возвращает nil-интерфейс вместо интерфейса
// вокруг nil-указателя.
func nilIfNoCourseCache(repo *redis.CourseCacheRepo) analytics.CourseCache {
	if repo == nil {
		return nil
	}
	return repo
}

func nilIfNoRankingCache(repo *redis.RankingCacheRepo) leaderboard.RankingCache {
	if repo == nil {
		return nil
	}
	return repo
}
