package query

import (
	"context"
	"errors"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Рассчитывает месячный рейтинг из событий платформы.
// Публичный и аутентифицированный режимы используют одно и то же вычисление:
// аутентификация добавляет только подсветку записи вызывающего.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Year - календарный год. Ноль = текущий месяц.
	Year int

	// Month - календарный месяц (1-12). Ноль = текущий месяц.
	Month int

	// Limit - количество записей (по умолчанию из конфигурации, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int

	// RequesterID - идентификатор аутентифицированного вызывающего.
	// Пустая строка = публичный запрос без подсветки.
	RequesterID string

	// SkipCache - принудительно пересчитать, минуя кэш.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if (q.Year == 0) != (q.Month == 0) {
		return errors.New("year and month must be provided together")
	}
	if q.Month < 0 || q.Month > 12 {
		return errors.New("month must be between 1 and 12")
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

// LeaderboardEntryDTO - DTO записи лидерборда.
type LeaderboardEntryDTO struct {
	// Rank - позиция в рейтинге (начиная с 1).
	Rank int `json:"rank"`

	// UserID - идентификатор студента.
	UserID string `json:"user_id"`

	// Score - очки за месяц.
	Score int `json:"score"`

	// ChaptersCompleted - завершено глав за месяц.
	ChaptersCompleted int `json:"chapters_completed"`

	// QuizzesCompleted - пройдено квизов за месяц.
	QuizzesCompleted int `json:"quizzes_completed"`

	// CoursesAccessed - открыто курсов за месяц.
	CoursesAccessed int `json:"courses_accessed"`

	// IsRequester - это запись вызывающего (только в аутентифицированном режиме).
	IsRequester bool `json:"is_requester,omitempty"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	// Month - ключ месяца в формате YYYY-MM.
	Month string `json:"month"`

	// Entries - страница записей рейтинга.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - общее количество участников рейтинга.
	TotalCount int `json:"total_count"`

	// Me - запись вызывающего, если он есть в рейтинге.
	// Заполняется и тогда, когда запись не попала на текущую страницу.
	Me *LeaderboardEntryDTO `json:"me,omitempty"`

	// FromCache - рейтинг отдан из кэша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`

	// HasMore - есть ли ещё записи после текущей страницы.
	HasMore bool `json:"has_more"`

	// Page - текущая страница (1-based).
	Page int `json:"page"`

	// PageSize - размер страницы.
	PageSize int `json:"page_size"`
}

// LeaderboardOptions задаёт конфигурацию обработчика лидерборда.
type LeaderboardOptions struct {
	// Weights - веса очков.
	Weights leaderboard.ScoreWeights

	// DefaultPageSize - размер страницы по умолчанию.
	DefaultPageSize int

	// CacheTTL - срок жизни рейтинга в кэше.
	CacheTTL time.Duration
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	window  progress.WindowReader
	cache   leaderboard.RankingCache
	options LeaderboardOptions
	log     *logger.Logger
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
// cache может быть nil: тогда рейтинг считается заново на каждый запрос.
func NewGetLeaderboardHandler(
	window progress.WindowReader,
	cache leaderboard.RankingCache,
	options LeaderboardOptions,
	log *logger.Logger,
) *GetLeaderboardHandler {
	if options.DefaultPageSize < 1 {
		options.DefaultPageSize = 50
	}
	return &GetLeaderboardHandler{
		window:  window,
		cache:   cache,
		options: options,
		log:     log,
	}
}

// Handle выполняет запрос лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	// Валидация входных данных
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}
	if query.Limit == 0 {
		query.Limit = h.options.DefaultPageSize
	}

	window := leaderboard.CurrentMonth()
	if query.Year != 0 {
		var err error
		window, err = leaderboard.NewMonthWindow(query.Year, time.Month(query.Month))
		if err != nil {
			return nil, err
		}
	}

	ranking, fromCache, err := h.resolveRanking(ctx, window, query.SkipCache)
	if err != nil {
		return nil, err
	}

	return h.buildResult(ranking, query, fromCache), nil
}

// Compute рассчитывает рейтинг за окно и кладёт его в кэш.
// Используется также джобой прогрева кэша.
func (h *GetLeaderboardHandler) Compute(ctx context.Context, window leaderboard.MonthWindow) (*leaderboard.Ranking, error) {
	from, to := window.Bounds()

	chapters, err := h.window.ListChapterCompletionsInWindow(ctx, from, to)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrExternalService, "chapter window read failed", err)
	}
	quizzes, err := h.window.ListQuizCompletionsInWindow(ctx, from, to)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrExternalService, "quiz window read failed", err)
	}
	accesses, err := h.window.ListCourseAccessInWindow(ctx, from, to)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrExternalService, "course access window read failed", err)
	}

	ranking := leaderboard.ComputeRanking(leaderboard.RankingInput{
		Window:             window,
		ChapterCompletions: chapters,
		QuizCompletions:    quizzes,
		CourseAccess:       accesses,
		Weights:            h.options.Weights,
		Now:                time.Now().UTC(),
	})

	// Кэширование best effort.
	if h.cache != nil && h.options.CacheTTL > 0 {
		if err := h.cache.SetRanking(ctx, ranking, h.options.CacheTTL); err != nil {
			h.log.Warn("ranking cache write failed",
				logger.MonthKey(window.Key()),
				logger.Err(err),
			)
		}
	}

	return ranking, nil
}

// resolveRanking возвращает рейтинг из кэша или пересчитывает его.
func (h *GetLeaderboardHandler) resolveRanking(
	ctx context.Context,
	window leaderboard.MonthWindow,
	skipCache bool,
) (*leaderboard.Ranking, bool, error) {
	if !skipCache && h.cache != nil {
		if cached, err := h.cache.GetRanking(ctx, window); err == nil {
			return cached, true, nil
		}
	}

	ranking, err := h.Compute(ctx, window)
	if err != nil {
		return nil, false, err
	}
	return ranking, false, nil
}

// buildResult формирует итоговый результат с пагинацией и подсветкой.
func (h *GetLeaderboardHandler) buildResult(
	ranking *leaderboard.Ranking,
	query GetLeaderboardQuery,
	fromCache bool,
) *GetLeaderboardResult {
	total := ranking.TotalParticipants()

	// Пагинация
	start := query.Offset
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}
	page := ranking.Entries[start:end]

	dtos := make([]LeaderboardEntryDTO, len(page))
	for i, e := range page {
		dtos[i] = toLeaderboardEntryDTO(e, query.RequesterID)
	}

	result := &GetLeaderboardResult{
		Month:       ranking.Window.Key(),
		Entries:     dtos,
		TotalCount:  total,
		FromCache:   fromCache,
		GeneratedAt: time.Now().UTC(),
		HasMore:     end < total,
		Page:        (query.Offset / query.Limit) + 1,
		PageSize:    query.Limit,
	}

	// Подсветка вызывающего: запись ищется во всём рейтинге,
	// а не только на текущей странице.
	if query.RequesterID != "" {
		if entry, ok := ranking.Find(query.RequesterID); ok {
			me := toLeaderboardEntryDTO(entry, query.RequesterID)
			result.Me = &me
		}
	}

	return result
}

// toLeaderboardEntryDTO конвертирует доменную запись в DTO.
func toLeaderboardEntryDTO(e leaderboard.Entry, requesterID string) LeaderboardEntryDTO {
	return LeaderboardEntryDTO{
		Rank:              e.Rank,
		UserID:            e.UserID,
		Score:             e.Score,
		ChaptersCompleted: e.ChaptersCompleted,
		QuizzesCompleted:  e.QuizzesCompleted,
		CoursesAccessed:   e.CoursesAccessed,
		IsRequester:       requesterID != "" && e.UserID == requesterID,
	}
}
