package progress

import (
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PARTICIPATION LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// ParticipationLevel представляет уровень участия студента в обсуждениях.
type ParticipationLevel string

const (
	// ParticipationNone - нет сообщений в обсуждениях.
	ParticipationNone ParticipationLevel = "none"
	// ParticipationLow - низкая активность.
	ParticipationLow ParticipationLevel = "low"
	// ParticipationMedium - средняя активность.
	ParticipationMedium ParticipationLevel = "medium"
	// ParticipationHigh - высокая активность.
	ParticipationHigh ParticipationLevel = "high"
)

// Levels возвращает все уровни участия в порядке возрастания.
func Levels() []ParticipationLevel {
	return []ParticipationLevel{
		ParticipationNone,
		ParticipationLow,
		ParticipationMedium,
		ParticipationHigh,
	}
}

// ParticipationThresholds задаёт границы уровней участия по количеству
// сообщений. Границы включающие: posts >= High даёт ParticipationHigh.
type ParticipationThresholds struct {
	// Low - минимум сообщений для уровня low.
	Low int

	// Medium - минимум сообщений для уровня medium.
	Medium int

	// High - минимум сообщений для уровня high.
	High int
}

// DefaultThresholds возвращает пороги участия по умолчанию.
func DefaultThresholds() ParticipationThresholds {
	return ParticipationThresholds{Low: 1, Medium: 5, High: 10}
}

// Validate проверяет, что пороги строго возрастают и неотрицательны.
func (t ParticipationThresholds) Validate() error {
	if t.Low < 0 || t.Medium < 0 || t.High < 0 {
		return shared.ErrInvalidThresholds
	}
	if !(t.Low < t.Medium && t.Medium < t.High) {
		return shared.ErrInvalidThresholds
	}
	return nil
}

// LevelFor возвращает уровень участия для заданного количества сообщений.
func (t ParticipationThresholds) LevelFor(posts int) ParticipationLevel {
	switch {
	case posts >= t.High:
		return ParticipationHigh
	case posts >= t.Medium:
		return ParticipationMedium
	case posts >= t.Low:
		return ParticipationLow
	default:
		return ParticipationNone
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT COURSE SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// StudentCourseSummary представляет сводку прогресса студента по одному курсу.
// Сводка детерминированно выводится из событий и не хранится.
type StudentCourseSummary struct {
	// UserID - идентификатор студента.
	UserID string

	// CourseID - идентификатор курса.
	CourseID string

	// ProgressPercent - процент пройденных глав, 0-100.
	ProgressPercent int

	// ChaptersCompleted - количество завершённых глав (уникальных).
	ChaptersCompleted int

	// TotalChapters - количество глав в актуальной структуре курса.
	TotalChapters int

	// QuizAverage - средний балл по квизам (0-100) по последним попыткам.
	// nil означает "квизы не пройдены" и отличается от нуля баллов.
	QuizAverage *float64

	// QuizzesCompleted - количество квизов хотя бы с одной завершённой попыткой.
	QuizzesCompleted int

	// DiscussionPosts - количество сообщений в обсуждениях курса.
	DiscussionPosts int

	// Participation - уровень участия в обсуждениях.
	Participation ParticipationLevel

	// LastActivityAt - время последнего события любого типа.
	// nil означает полное отсутствие активности.
	LastActivityAt *time.Time
}

// HasActivity сообщает, была ли у студента хоть какая-то активность в курсе.
func (s *StudentCourseSummary) HasActivity() bool {
	return s.LastActivityAt != nil
}
