package analytics

import (
	"math"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE ANALYTICS SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// CourseAnalyticsSummary представляет агрегированную сводку по курсу.
type CourseAnalyticsSummary struct {
	// CourseID - идентификатор курса.
	CourseID string

	// Title - название курса.
	Title string

	// EnrollmentCount - количество зачисленных студентов.
	// Берётся из списка зачислений, а не из количества успешных сводок.
	EnrollmentCount int

	// AverageProgress - средний процент прохождения по успешным сводкам.
	AverageProgress float64

	// AverageQuizScore - средний балл по квизам среди студентов,
	// у которых он определён. nil, если ни у кого не определён.
	AverageQuizScore *float64

	// QuizCompletionRate - процент зачисленных студентов, завершивших
	// хотя бы один квиз. Знаменатель - количество зачисленных.
	QuizCompletionRate float64

	// ActiveStudents - количество студентов с активностью в окне давности.
	ActiveStudents int

	// Distribution - распределение студентов по уровням участия.
	// Каждый зачисленный студент учитывается ровно один раз;
	// пропущенные попадают в уровень none.
	Distribution map[progress.ParticipationLevel]int

	// Summaries - успешно рассчитанные сводки студентов.
	Summaries []*progress.StudentCourseSummary

	// Omissions - пропуски на уровне отдельных студентов.
	Omissions []Omission

	// GeneratedAt - время расчёта.
	GeneratedAt time.Time
}

// IsPartial сообщает, была ли агрегация частичной.
func (s *CourseAnalyticsSummary) IsPartial() bool {
	return len(s.Omissions) > 0
}

// CourseFoldInput содержит вход чистой свёртки по курсу.
type CourseFoldInput struct {
	// Structure - структура курса.
	Structure progress.CourseStructure

	// Enrollments - полный список зачислений (авторитетный источник).
	Enrollments []progress.Enrollment

	// Summaries - успешно рассчитанные сводки студентов.
	Summaries []*progress.StudentCourseSummary

	// Omissions - пропуски, накопленные при расчёте сводок.
	Omissions []Omission

	// ActivityWindow - окно давности для счётчика активных студентов.
	// Ноль означает "любая ненулевая активность".
	ActivityWindow time.Duration

	// Now - момент расчёта (для детерминированности передаётся снаружи).
	Now time.Time
}

// FoldCourse сворачивает сводки студентов в сводку по курсу.
// Функция чистая: средние считаются только по успешным сводкам,
// а знаменатели никогда не берутся из количества успехов там,
// где авторитетен список зачислений.
func FoldCourse(in CourseFoldInput) *CourseAnalyticsSummary {
	result := &CourseAnalyticsSummary{
		CourseID:        in.Structure.CourseID,
		Title:           in.Structure.Title,
		EnrollmentCount: len(in.Enrollments),
		Distribution:    emptyDistribution(),
		Summaries:       in.Summaries,
		Omissions:       in.Omissions,
		GeneratedAt:     in.Now,
	}

	if result.EnrollmentCount == 0 {
		return result
	}

	var (
		progressTotal  float64
		quizTotal      float64
		quizCount      int
		quizCompleters int
	)

	summarized := make(map[string]struct{}, len(in.Summaries))
	for _, s := range in.Summaries {
		summarized[s.UserID] = struct{}{}

		progressTotal += float64(s.ProgressPercent)
		if s.QuizAverage != nil {
			quizTotal += *s.QuizAverage
			quizCount++
		}
		if s.QuizzesCompleted > 0 {
			quizCompleters++
		}

		// Неизвестный уровень участия не создаёт пятую корзину:
		// сумма по четырём уровням всегда равна количеству зачисленных.
		level := s.Participation
		if _, known := result.Distribution[level]; !known {
			level = progress.ParticipationNone
		}
		result.Distribution[level]++

		if s.LastActivityAt != nil && withinWindow(*s.LastActivityAt, in.ActivityWindow, in.Now) {
			result.ActiveStudents++
		}
	}

	// Зачисленные без сводки (пропуски) учитываются в распределении как none,
	// чтобы сумма по уровням всегда равнялась количеству зачисленных.
	for _, e := range in.Enrollments {
		if _, ok := summarized[e.UserID]; !ok {
			result.Distribution[progress.ParticipationNone]++
		}
	}

	if len(in.Summaries) > 0 {
		result.AverageProgress = round2(progressTotal / float64(len(in.Summaries)))
	}
	if quizCount > 0 {
		avg := round2(quizTotal / float64(quizCount))
		result.AverageQuizScore = &avg
	}
	result.QuizCompletionRate = round2(float64(quizCompleters) / float64(result.EnrollmentCount) * 100)

	return result
}

func emptyDistribution() map[progress.ParticipationLevel]int {
	dist := make(map[progress.ParticipationLevel]int, 4)
	for _, level := range progress.Levels() {
		dist[level] = 0
	}
	return dist
}

func withinWindow(ts time.Time, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return true
	}
	return now.Sub(ts) <= window
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
