package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TEACHER PORTFOLIO QUERY
// Агрегирует аналитику всех курсов преподавателя с ограниченной конкурентностью
// и общим дедлайном. Сбой одного курса не валит портфель: курс помечается
// пропущенным, остальные доводятся до конца.
// ══════════════════════════════════════════════════════════════════════════════

// GetTeacherPortfolioQuery содержит параметры запроса портфеля.
type GetTeacherPortfolioQuery struct {
	// TeacherID - идентификатор преподавателя.
	TeacherID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetTeacherPortfolioQuery) Validate() error {
	if q.TeacherID == "" {
		return errors.New("teacher id is required")
	}
	return nil
}

// StudentRollupDTO - DTO студента поверх всех курсов преподавателя.
type StudentRollupDTO struct {
	// UserID - идентификатор студента.
	UserID string `json:"user_id"`

	// Courses - сводки студента по курсам.
	Courses []StudentProgressDTO `json:"courses"`

	// AverageProgress - средний процент прохождения.
	AverageProgress float64 `json:"average_progress"`

	// LastActivityAt - самая поздняя активность. null = активности не было.
	LastActivityAt *time.Time `json:"last_activity_at"`
}

// TeacherPortfolioDTO - DTO портфеля преподавателя.
type TeacherPortfolioDTO struct {
	// TeacherID - идентификатор преподавателя.
	TeacherID string `json:"teacher_id"`

	// Courses - сводки по курсам.
	Courses []CourseAnalyticsDTO `json:"courses"`

	// Students - те же данные, перегруппированные по студентам.
	Students []StudentRollupDTO `json:"students"`

	// Unavailable - пропущенные курсы.
	Unavailable []OmissionDTO `json:"unavailable,omitempty"`

	// Partial - true, если были пропуски на любом уровне.
	Partial bool `json:"partial"`
}

// GetTeacherPortfolioResult содержит результат запроса.
type GetTeacherPortfolioResult struct {
	// Portfolio - портфель преподавателя.
	Portfolio TeacherPortfolioDTO `json:"portfolio"`

	// GeneratedAt - время расчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// PortfolioConfig задаёт параметры фан-аута по курсам.
type PortfolioConfig struct {
	// CourseConcurrency - размер пула горутин на портфель.
	CourseConcurrency int

	// Deadline - общий дедлайн агрегации портфеля.
	// Истечение даёт частичный результат, а не ошибку.
	Deadline time.Duration
}

// GetTeacherPortfolioHandler обрабатывает запросы портфеля преподавателя.
type GetTeacherPortfolioHandler struct {
	courseAgg *GetCourseAnalyticsHandler
	config    PortfolioConfig
	log       *logger.Logger
}

// NewGetTeacherPortfolioHandler создаёт новый обработчик.
func NewGetTeacherPortfolioHandler(
	courseAgg *GetCourseAnalyticsHandler,
	config PortfolioConfig,
	log *logger.Logger,
) *GetTeacherPortfolioHandler {
	if config.CourseConcurrency < 1 {
		config.CourseConcurrency = 1
	}
	return &GetTeacherPortfolioHandler{
		courseAgg: courseAgg,
		config:    config,
		log:       log,
	}
}

// Handle выполняет запрос портфеля.
func (h *GetTeacherPortfolioHandler) Handle(ctx context.Context, query GetTeacherPortfolioQuery) (*GetTeacherPortfolioResult, error) {
	// Валидация входных данных
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetTeacherPortfolio", shared.ErrValidation, err.Error(), err)
	}

	courses, err := h.courseAgg.courses.ListCoursesByTeacher(ctx, query.TeacherID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeacherPortfolio", shared.ErrNotFound, "teacher courses lookup failed", err)
	}

	// Общий дедлайн на весь портфель. Ветки, не успевшие к дедлайну,
	// помечаются пропущенными.
	aggCtx := ctx
	if h.config.Deadline > 0 {
		var cancel context.CancelFunc
		aggCtx, cancel = context.WithTimeout(ctx, h.config.Deadline)
		defer cancel()
	}

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, h.config.CourseConcurrency)
		mu        sync.Mutex
	)

	summaries := make([]*analytics.CourseAnalyticsSummary, 0, len(courses))
	omissions := make([]analytics.Omission, 0)

	for _, course := range courses {
		select {
		case <-aggCtx.Done():
			mu.Lock()
			omissions = append(omissions, analytics.NewOmission(
				analytics.ScopeCourse, course.CourseID, "portfolio deadline exceeded", time.Now().UTC()))
			mu.Unlock()
			continue
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(courseID string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			summary, err := h.courseAgg.Aggregate(aggCtx, courseID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.log.Warn("course aggregation failed, omitting from portfolio",
					logger.TeacherID(query.TeacherID),
					logger.CourseID(courseID),
					logger.Err(err),
				)
				omissions = append(omissions, analytics.NewOmission(
					analytics.ScopeCourse, courseID, err.Error(), time.Now().UTC()))
				return
			}
			summaries = append(summaries, summary)
		}(course.CourseID)
	}

	wg.Wait()

	portfolio := analytics.BuildPortfolio(query.TeacherID, summaries, omissions, time.Now().UTC())

	return &GetTeacherPortfolioResult{
		Portfolio:   toTeacherPortfolioDTO(portfolio),
		GeneratedAt: portfolio.GeneratedAt,
	}, nil
}

// toTeacherPortfolioDTO конвертирует доменный портфель в DTO.
func toTeacherPortfolioDTO(p *analytics.TeacherPortfolio) TeacherPortfolioDTO {
	courses := make([]CourseAnalyticsDTO, len(p.Courses))
	for i, c := range p.Courses {
		courses[i] = toCourseAnalyticsDTO(c)
	}

	students := make([]StudentRollupDTO, len(p.Students))
	for i, s := range p.Students {
		courseDTOs := make([]StudentProgressDTO, len(s.Courses))
		for j, c := range s.Courses {
			courseDTOs[j] = toStudentProgressDTO(c)
		}
		students[i] = StudentRollupDTO{
			UserID:          s.UserID,
			Courses:         courseDTOs,
			AverageProgress: s.AverageProgress,
			LastActivityAt:  s.LastActivityAt,
		}
	}

	return TeacherPortfolioDTO{
		TeacherID:   p.TeacherID,
		Courses:     courses,
		Students:    students,
		Unavailable: toOmissionDTOs(p.Omissions),
		Partial:     p.Partial,
	}
}
