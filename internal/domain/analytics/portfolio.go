package analytics

import (
	"sort"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEACHER PORTFOLIO
// ══════════════════════════════════════════════════════════════════════════════

// TeacherPortfolio представляет портфель преподавателя: агрегаты по всем его
// курсам плюс перегруппировка тех же данных по студентам.
type TeacherPortfolio struct {
	// TeacherID - идентификатор преподавателя.
	TeacherID string

	// Courses - сводки по курсам, отсортированные по идентификатору курса.
	Courses []*CourseAnalyticsSummary

	// Students - те же данные, перегруппированные по студентам.
	Students []StudentRollup

	// Omissions - пропуски на уровне целых курсов.
	Omissions []Omission

	// Partial - агрегация завершилась с пропусками (на любом уровне).
	Partial bool

	// GeneratedAt - время расчёта.
	GeneratedAt time.Time
}

// StudentRollup представляет взгляд на одного студента поверх всех курсов
// преподавателя, где этот студент зачислен.
type StudentRollup struct {
	// UserID - идентификатор студента.
	UserID string

	// Courses - сводки студента по курсам, отсортированные по курсу.
	Courses []*progress.StudentCourseSummary

	// AverageProgress - средний процент прохождения по курсам студента.
	AverageProgress float64

	// LastActivityAt - самая поздняя активность по всем курсам.
	LastActivityAt *time.Time
}

// BuildPortfolio собирает портфель из готовых сводок по курсам.
// Порядок результата детерминирован независимо от порядка завершения
// конкурентных веток агрегации.
func BuildPortfolio(teacherID string, courses []*CourseAnalyticsSummary, omissions []Omission, now time.Time) *TeacherPortfolio {
	sorted := make([]*CourseAnalyticsSummary, len(courses))
	copy(sorted, courses)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CourseID < sorted[j].CourseID })

	partial := len(omissions) > 0
	for _, c := range sorted {
		if c.IsPartial() {
			partial = true
			break
		}
	}

	return &TeacherPortfolio{
		TeacherID:   teacherID,
		Courses:     sorted,
		Students:    regroupByStudent(sorted),
		Omissions:   omissions,
		Partial:     partial,
		GeneratedAt: now,
	}
}

// regroupByStudent перегруппировывает сводки курсов по студентам.
// Студент, зачисленный на несколько курсов, получает одну запись
// со всеми своими сводками.
func regroupByStudent(courses []*CourseAnalyticsSummary) []StudentRollup {
	byUser := make(map[string][]*progress.StudentCourseSummary)
	for _, course := range courses {
		for _, s := range course.Summaries {
			byUser[s.UserID] = append(byUser[s.UserID], s)
		}
	}

	rollups := make([]StudentRollup, 0, len(byUser))
	for userID, summaries := range byUser {
		sort.Slice(summaries, func(i, j int) bool { return summaries[i].CourseID < summaries[j].CourseID })

		var total float64
		var last *time.Time
		for _, s := range summaries {
			total += float64(s.ProgressPercent)
			if s.LastActivityAt != nil && (last == nil || s.LastActivityAt.After(*last)) {
				ts := *s.LastActivityAt
				last = &ts
			}
		}

		rollups = append(rollups, StudentRollup{
			UserID:          userID,
			Courses:         summaries,
			AverageProgress: round2(total / float64(len(summaries))),
			LastActivityAt:  last,
		})
	}

	sort.Slice(rollups, func(i, j int) bool { return rollups[i].UserID < rollups[j].UserID })
	return rollups
}
