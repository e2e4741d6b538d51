package progress

import (
	"math"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// SummaryInput содержит всё необходимое для расчёта сводки одного студента.
// Все срезы неизменяемые: калькулятор их не модифицирует и не сохраняет.
type SummaryInput struct {
	// UserID - идентификатор студента.
	UserID string

	// Structure - актуальная структура курса.
	Structure CourseStructure

	// Enrollments - полный список зачислений на курс.
	Enrollments []Enrollment

	// ChapterAccess - события обращений студента к главам.
	ChapterAccess []ChapterAccess

	// QuizAttempts - попытки квизов студента.
	QuizAttempts []QuizAttempt

	// DiscussionPosts - сообщения студента в обсуждениях курса.
	DiscussionPosts []DiscussionPost

	// Thresholds - пороги уровней участия.
	Thresholds ParticipationThresholds
}

// CalculateSummary детерминированно выводит сводку прогресса из событий.
// Функция чистая: одинаковый вход всегда даёт одинаковый результат.
// Если студент не числится в списке зачислений, возвращается ErrUserNotEnrolled.
func CalculateSummary(in SummaryInput) (*StudentCourseSummary, error) {
	if in.UserID == "" {
		return nil, shared.ErrInvalidUserID
	}
	if in.Structure.CourseID == "" {
		return nil, shared.ErrInvalidCourseID
	}
	if !isEnrolled(in.UserID, in.Enrollments) {
		return nil, shared.ErrUserNotEnrolled
	}

	summary := &StudentCourseSummary{
		UserID:   in.UserID,
		CourseID: in.Structure.CourseID,
	}

	var lastActivity time.Time

	// Главы: считаем уникальные завершённые. События могут ссылаться на главы,
	// удалённые из структуры позже, поэтому процент зажимается в [0, 100].
	completedChapters := make(map[string]struct{})
	for _, access := range in.ChapterAccess {
		if access.UserID != in.UserID {
			continue
		}
		if access.Completed {
			completedChapters[access.ChapterID] = struct{}{}
		}
		lastActivity = laterOf(lastActivity, access.OccurredAt)
	}
	summary.ChaptersCompleted = len(completedChapters)
	summary.TotalChapters = in.Structure.TotalChapters()
	summary.ProgressPercent = progressPercent(summary.ChaptersCompleted, summary.TotalChapters)

	// Квизы: для каждого квиза берётся последняя завершённая попытка
	// (по времени завершения, при равенстве - с большим номером попытки).
	latest := make(map[string]QuizAttempt)
	for _, attempt := range in.QuizAttempts {
		if attempt.UserID != in.UserID {
			continue
		}
		lastActivity = laterOf(lastActivity, attempt.CompletedAt)
		if !attempt.Completed {
			continue
		}
		current, ok := latest[attempt.QuizID]
		if !ok || isLaterAttempt(attempt, current) {
			latest[attempt.QuizID] = attempt
		}
	}
	summary.QuizzesCompleted = len(latest)
	if len(latest) > 0 {
		var total float64
		for _, attempt := range latest {
			total += attempt.Score
		}
		avg := total / float64(len(latest))
		summary.QuizAverage = &avg
	}

	// Обсуждения.
	posts := 0
	for _, post := range in.DiscussionPosts {
		if post.UserID != in.UserID {
			continue
		}
		posts++
		lastActivity = laterOf(lastActivity, post.PostedAt)
	}
	summary.DiscussionPosts = posts
	summary.Participation = in.Thresholds.LevelFor(posts)

	if !lastActivity.IsZero() {
		ts := lastActivity
		summary.LastActivityAt = &ts
	}

	return summary, nil
}

// progressPercent вычисляет округлённый процент прохождения глав.
// Курс без глав даёт 0, а не деление на ноль.
func progressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// isLaterAttempt сообщает, является ли a более поздней попыткой, чем b.
func isLaterAttempt(a, b QuizAttempt) bool {
	if a.CompletedAt.After(b.CompletedAt) {
		return true
	}
	if a.CompletedAt.Equal(b.CompletedAt) {
		return a.AttemptNumber > b.AttemptNumber
	}
	return false
}

func isEnrolled(userID string, enrollments []Enrollment) bool {
	for _, e := range enrollments {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

func laterOf(current, candidate time.Time) time.Time {
	if candidate.After(current) {
		return candidate
	}
	return current
}
