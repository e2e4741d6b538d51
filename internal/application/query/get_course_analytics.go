package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE ANALYTICS QUERY
// Агрегирует сводки всех зачисленных студентов в сводку по курсу.
// Сбой расчёта одного студента изолируется как Omission и не валит весь ответ.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseAnalyticsQuery содержит параметры запроса аналитики курса.
type GetCourseAnalyticsQuery struct {
	// CourseID - идентификатор курса.
	CourseID string

	// SkipCache - принудительно пересчитать, минуя кэш.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetCourseAnalyticsQuery) Validate() error {
	if q.CourseID == "" {
		return errors.New("course id is required")
	}
	return nil
}

// OmissionDTO - DTO записи о пропуске.
type OmissionDTO struct {
	// Scope - уровень пропуска: student или course.
	Scope string `json:"scope"`

	// Key - идентификатор пропущенной сущности.
	Key string `json:"key"`

	// Reason - причина пропуска.
	Reason string `json:"reason"`
}

// CourseAnalyticsDTO - DTO сводки по курсу.
type CourseAnalyticsDTO struct {
	// CourseID - идентификатор курса.
	CourseID string `json:"course_id"`

	// Title - название курса.
	Title string `json:"title"`

	// EnrollmentCount - зачислено студентов.
	EnrollmentCount int `json:"enrollment_count"`

	// AverageProgress - средний процент прохождения по успешным сводкам.
	AverageProgress float64 `json:"average_progress"`

	// AverageQuizScore - средний балл по квизам. null = ни у кого не определён.
	AverageQuizScore *float64 `json:"average_quiz_score"`

	// QuizCompletionRate - процент зачисленных, завершивших хотя бы один квиз.
	QuizCompletionRate float64 `json:"quiz_completion_rate"`

	// ActiveStudents - студентов с активностью в окне давности.
	ActiveStudents int `json:"active_students"`

	// ParticipationDistribution - распределение по уровням участия.
	// Сумма всегда равна enrollment_count.
	ParticipationDistribution map[string]int `json:"participation_distribution"`

	// Students - успешно рассчитанные сводки студентов.
	Students []StudentProgressDTO `json:"students"`

	// Unavailable - пропущенные ветки агрегации.
	Unavailable []OmissionDTO `json:"unavailable,omitempty"`

	// Partial - true, если были пропуски.
	Partial bool `json:"partial"`
}

// GetCourseAnalyticsResult содержит результат запроса.
type GetCourseAnalyticsResult struct {
	// Analytics - сводка по курсу.
	Analytics CourseAnalyticsDTO `json:"analytics"`

	// FromCache - результат отдан из кэша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время расчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// CourseAggregationConfig задаёт параметры фан-аута по студентам.
type CourseAggregationConfig struct {
	// StudentConcurrency - размер пула горутин на курс.
	StudentConcurrency int

	// ActivityWindow - окно давности для счётчика активных студентов.
	ActivityWindow time.Duration

	// CacheTTL - срок жизни сводки в кэше.
	CacheTTL time.Duration
}

// GetCourseAnalyticsHandler обрабатывает запросы аналитики курса.
type GetCourseAnalyticsHandler struct {
	events      progress.EventReader
	enrollments progress.EnrollmentReader
	courses     progress.CourseReader
	cache       analytics.CourseCache
	thresholds  progress.ParticipationThresholds
	config      CourseAggregationConfig
	log         *logger.Logger
}

// NewGetCourseAnalyticsHandler создаёт новый обработчик.
// cache может быть nil: тогда каждая агрегация считается заново.
func NewGetCourseAnalyticsHandler(
	events progress.EventReader,
	enrollments progress.EnrollmentReader,
	courses progress.CourseReader,
	cache analytics.CourseCache,
	thresholds progress.ParticipationThresholds,
	config CourseAggregationConfig,
	log *logger.Logger,
) *GetCourseAnalyticsHandler {
	if config.StudentConcurrency < 1 {
		config.StudentConcurrency = 1
	}
	return &GetCourseAnalyticsHandler{
		events:      events,
		enrollments: enrollments,
		courses:     courses,
		cache:       cache,
		thresholds:  thresholds,
		config:      config,
		log:         log,
	}
}

// Handle выполняет запрос аналитики курса.
func (h *GetCourseAnalyticsHandler) Handle(ctx context.Context, query GetCourseAnalyticsQuery) (*GetCourseAnalyticsResult, error) {
	// Валидация входных данных
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetCourseAnalytics", shared.ErrValidation, err.Error(), err)
	}

	// Попытка получить из кэша. Ошибка кэша равносильна промаху.
	if !query.SkipCache && h.cache != nil {
		if cached, err := h.cache.GetCourseSummary(ctx, query.CourseID); err == nil {
			return &GetCourseAnalyticsResult{
				Analytics:   toCourseAnalyticsDTO(cached),
				FromCache:   true,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
	}

	summary, err := h.Aggregate(ctx, query.CourseID)
	if err != nil {
		return nil, err
	}

	// Кэширование best effort: ошибка записи не влияет на ответ.
	if h.cache != nil && h.config.CacheTTL > 0 {
		if err := h.cache.SetCourseSummary(ctx, summary, h.config.CacheTTL); err != nil {
			h.log.Warn("course summary cache write failed",
				logger.CourseID(query.CourseID),
				logger.Err(err),
			)
		}
	}

	return &GetCourseAnalyticsResult{
		Analytics:   toCourseAnalyticsDTO(summary),
		FromCache:   false,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Aggregate рассчитывает сводку по курсу из событий, минуя кэш.
// Используется также портфельным обработчиком и джобой прогрева кэша.
func (h *GetCourseAnalyticsHandler) Aggregate(ctx context.Context, courseID string) (*analytics.CourseAnalyticsSummary, error) {
	structure, err := h.courses.GetCourseStructure(ctx, courseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseAnalytics", shared.ErrNotFound, "course lookup failed", err)
	}

	enrollments, err := h.enrollments.ListEnrollments(ctx, courseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseAnalytics", shared.ErrNotFound, "enrollment lookup failed", err)
	}

	summaries, omissions := h.fanOutStudents(ctx, *structure, enrollments)

	if len(omissions) > 0 {
		h.log.Warn("course aggregation completed with omissions",
			logger.CourseID(courseID),
			logger.Omissions(len(omissions)),
		)
	}

	return analytics.FoldCourse(analytics.CourseFoldInput{
		Structure:      *structure,
		Enrollments:    enrollments,
		Summaries:      summaries,
		Omissions:      omissions,
		ActivityWindow: h.config.ActivityWindow,
		Now:            time.Now().UTC(),
	}), nil
}

// fanOutStudents рассчитывает сводки студентов с ограниченной конкурентностью.
// Паника или ошибка одной ветки превращается в Omission, остальные ветки
// доводятся до конца.
func (h *GetCourseAnalyticsHandler) fanOutStudents(
	ctx context.Context,
	structure progress.CourseStructure,
	enrollments []progress.Enrollment,
) ([]*progress.StudentCourseSummary, []analytics.Omission) {
	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, h.config.StudentConcurrency)
		mu        sync.Mutex
	)

	summaries := make([]*progress.StudentCourseSummary, 0, len(enrollments))
	omissions := make([]analytics.Omission, 0)

	for _, enrollment := range enrollments {
		// Дедлайн или отмена: оставшиеся студенты помечаются пропущенными.
		select {
		case <-ctx.Done():
			mu.Lock()
			omissions = append(omissions, analytics.NewOmission(
				analytics.ScopeStudent, enrollment.UserID, "aggregation deadline exceeded", time.Now().UTC()))
			mu.Unlock()
			continue
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					omissions = append(omissions, analytics.NewOmission(
						analytics.ScopeStudent, userID, "panic during summary calculation", time.Now().UTC()))
					mu.Unlock()
				}
			}()

			summary, err := h.calculateStudent(ctx, userID, structure, enrollments)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				omissions = append(omissions, analytics.NewOmission(
					analytics.ScopeStudent, userID, err.Error(), time.Now().UTC()))
				return
			}
			summaries = append(summaries, summary)
		}(enrollment.UserID)
	}

	wg.Wait()
	return summaries, omissions
}

// calculateStudent загружает события одного студента и считает его сводку.
func (h *GetCourseAnalyticsHandler) calculateStudent(
	ctx context.Context,
	userID string,
	structure progress.CourseStructure,
	enrollments []progress.Enrollment,
) (*progress.StudentCourseSummary, error) {
	chapters, err := h.events.ListChapterAccess(ctx, userID, structure.CourseID)
	if err != nil {
		return nil, err
	}
	quizzes, err := h.events.ListQuizAttempts(ctx, userID, structure.CourseID)
	if err != nil {
		return nil, err
	}
	posts, err := h.events.ListDiscussionPosts(ctx, userID, structure.CourseID)
	if err != nil {
		return nil, err
	}

	return progress.CalculateSummary(progress.SummaryInput{
		UserID:          userID,
		Structure:       structure,
		Enrollments:     enrollments,
		ChapterAccess:   chapters,
		QuizAttempts:    quizzes,
		DiscussionPosts: posts,
		Thresholds:      h.thresholds,
	})
}

// toCourseAnalyticsDTO конвертирует доменную сводку в DTO.
func toCourseAnalyticsDTO(s *analytics.CourseAnalyticsSummary) CourseAnalyticsDTO {
	students := make([]StudentProgressDTO, len(s.Summaries))
	for i, summary := range s.Summaries {
		students[i] = toStudentProgressDTO(summary)
	}

	dist := make(map[string]int, len(s.Distribution))
	for level, count := range s.Distribution {
		dist[string(level)] = count
	}

	return CourseAnalyticsDTO{
		CourseID:                  s.CourseID,
		Title:                     s.Title,
		EnrollmentCount:           s.EnrollmentCount,
		AverageProgress:           s.AverageProgress,
		AverageQuizScore:          s.AverageQuizScore,
		QuizCompletionRate:        s.QuizCompletionRate,
		ActiveStudents:            s.ActiveStudents,
		ParticipationDistribution: dist,
		Students:                  students,
		Unavailable:               toOmissionDTOs(s.Omissions),
		Partial:                   s.IsPartial(),
	}
}

// toOmissionDTOs конвертирует записи о пропусках в DTO.
func toOmissionDTOs(omissions []analytics.Omission) []OmissionDTO {
	if len(omissions) == 0 {
		return nil
	}
	dtos := make([]OmissionDTO, len(omissions))
	for i, o := range omissions {
		dtos[i] = OmissionDTO{
			Scope:  string(o.Scope),
			Key:    o.Key,
			Reason: o.Reason,
		}
	}
	return dtos
}
