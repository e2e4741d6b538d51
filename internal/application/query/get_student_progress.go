// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT PROGRESS QUERY
// Рассчитывает сводку прогресса одного студента по одному курсу.
// Сводка выводится из событий на лету и нигде не сохраняется.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentProgressQuery содержит параметры запроса сводки студента.
type GetStudentProgressQuery struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentProgressQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user id is required")
	}
	if q.CourseID == "" {
		return errors.New("course id is required")
	}
	return nil
}

// StudentProgressDTO - DTO сводки прогресса студента.
type StudentProgressDTO struct {
	// UserID - идентификатор студента.
	UserID string `json:"user_id"`

	// CourseID - идентификатор курса.
	CourseID string `json:"course_id"`

	// ProgressPercent - процент пройденных глав, 0-100.
	ProgressPercent int `json:"progress_percent"`

	// ChaptersCompleted - завершено глав.
	ChaptersCompleted int `json:"chapters_completed"`

	// TotalChapters - глав в курсе.
	TotalChapters int `json:"total_chapters"`

	// QuizAverage - средний балл по квизам. null = квизы не пройдены.
	QuizAverage *float64 `json:"quiz_average"`

	// QuizzesCompleted - пройдено квизов.
	QuizzesCompleted int `json:"quizzes_completed"`

	// DiscussionPosts - сообщений в обсуждениях.
	DiscussionPosts int `json:"discussion_posts"`

	// Participation - уровень участия: none, low, medium, high.
	Participation string `json:"participation"`

	// LastActivityAt - последняя активность. null = активности не было.
	LastActivityAt *time.Time `json:"last_activity_at"`
}

// GetStudentProgressResult содержит результат запроса.
type GetStudentProgressResult struct {
	// Summary - сводка прогресса.
	Summary StudentProgressDTO `json:"summary"`

	// GeneratedAt - время расчёта.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetStudentProgressHandler обрабатывает запросы сводки студента.
type GetStudentProgressHandler struct {
	events      progress.EventReader
	enrollments progress.EnrollmentReader
	courses     progress.CourseReader
	thresholds  progress.ParticipationThresholds
	log         *logger.Logger
}

// NewGetStudentProgressHandler создаёт новый обработчик.
func NewGetStudentProgressHandler(
	events progress.EventReader,
	enrollments progress.EnrollmentReader,
	courses progress.CourseReader,
	thresholds progress.ParticipationThresholds,
	log *logger.Logger,
) *GetStudentProgressHandler {
	return &GetStudentProgressHandler{
		events:      events,
		enrollments: enrollments,
		courses:     courses,
		thresholds:  thresholds,
		log:         log,
	}
}

// Handle выполняет запрос сводки прогресса.
func (h *GetStudentProgressHandler) Handle(ctx context.Context, query GetStudentProgressQuery) (*GetStudentProgressResult, error) {
	// Валидация входных данных
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrValidation, err.Error(), err)
	}

	// Структура курса: отсутствие курса - это NotFound, не пустая сводка.
	structure, err := h.courses.GetCourseStructure(ctx, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrNotFound, "course lookup failed", err)
	}

	// Зачисления - авторитетный источник членства.
	enrollments, err := h.enrollments.ListEnrollments(ctx, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrNotFound, "enrollment lookup failed", err)
	}

	input, err := h.collectEvents(ctx, query, *structure, enrollments)
	if err != nil {
		return nil, err
	}

	summary, err := progress.CalculateSummary(*input)
	if err != nil {
		if shared.IsNotEnrolled(err) {
			return nil, err
		}
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrInvalidInput, "summary calculation failed", err)
	}

	h.log.Debug("student summary calculated",
		logger.UserID(query.UserID),
		logger.CourseID(query.CourseID),
		logger.Int("progress_percent", summary.ProgressPercent),
	)

	return &GetStudentProgressResult{
		Summary:     toStudentProgressDTO(summary),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// collectEvents загружает неизменяемые события студента для калькулятора.
func (h *GetStudentProgressHandler) collectEvents(
	ctx context.Context,
	query GetStudentProgressQuery,
	structure progress.CourseStructure,
	enrollments []progress.Enrollment,
) (*progress.SummaryInput, error) {
	chapters, err := h.events.ListChapterAccess(ctx, query.UserID, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrExternalService, "chapter events read failed", err)
	}

	quizzes, err := h.events.ListQuizAttempts(ctx, query.UserID, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrExternalService, "quiz events read failed", err)
	}

	posts, err := h.events.ListDiscussionPosts(ctx, query.UserID, query.CourseID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentProgress", shared.ErrExternalService, "discussion events read failed", err)
	}

	return &progress.SummaryInput{
		UserID:          query.UserID,
		Structure:       structure,
		Enrollments:     enrollments,
		ChapterAccess:   chapters,
		QuizAttempts:    quizzes,
		DiscussionPosts: posts,
		Thresholds:      h.thresholds,
	}, nil
}

// toStudentProgressDTO конвертирует доменную сводку в DTO.
func toStudentProgressDTO(s *progress.StudentCourseSummary) StudentProgressDTO {
	return StudentProgressDTO{
		UserID:            s.UserID,
		CourseID:          s.CourseID,
		ProgressPercent:   s.ProgressPercent,
		ChaptersCompleted: s.ChaptersCompleted,
		TotalChapters:     s.TotalChapters,
		QuizAverage:       s.QuizAverage,
		QuizzesCompleted:  s.QuizzesCompleted,
		DiscussionPosts:   s.DiscussionPosts,
		Participation:     string(s.Participation),
		LastActivityAt:    s.LastActivityAt,
	}
}
