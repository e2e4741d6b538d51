package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
)

func courseStructure(courseID string) progress.CourseStructure {
	return progress.CourseStructure{
		CourseID:   courseID,
		Title:      "Основы Go",
		TeacherID:  "teacher-1",
		ChapterIDs: []string{"ch-1", "ch-2", "ch-3", "ch-4"},
	}
}

func courseEnrollments(courseID string, userIDs ...string) []progress.Enrollment {
	enrollments := make([]progress.Enrollment, len(userIDs))
	for i, id := range userIDs {
		enrollments[i] = progress.Enrollment{UserID: id, CourseID: courseID}
	}
	return enrollments
}

func summaryOf(userID, courseID string, percent int, level progress.ParticipationLevel, lastActivity *time.Time) *progress.StudentCourseSummary {
	return &progress.StudentCourseSummary{
		UserID:          userID,
		CourseID:        courseID,
		ProgressPercent: percent,
		Participation:   level,
		LastActivityAt:  lastActivity,
	}
}

func TestFoldCourse_AveragesOverSuccessfulSummariesOnly(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2", "user-3"),
		Summaries: []*progress.StudentCourseSummary{
			summaryOf("user-1", "course-1", 80, progress.ParticipationLow, nil),
			summaryOf("user-2", "course-1", 40, progress.ParticipationNone, nil),
		},
		Omissions: []Omission{
			NewOmission(ScopeStudent, "user-3", "event reader timeout", now),
		},
		Now: now,
	})

	// Знаменатель среднего - успешные сводки, а не все зачисленные.
	assert.Equal(t, 60.0, result.AverageProgress)
	assert.Equal(t, 3, result.EnrollmentCount)
	assert.True(t, result.IsPartial())
}

func TestFoldCourse_DistributionSumsToEnrollmentCount(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2", "user-3", "user-4"),
		Summaries: []*progress.StudentCourseSummary{
			summaryOf("user-1", "course-1", 100, progress.ParticipationHigh, nil),
			summaryOf("user-2", "course-1", 50, progress.ParticipationMedium, nil),
		},
		Omissions: []Omission{
			NewOmission(ScopeStudent, "user-3", "boom", now),
			NewOmission(ScopeStudent, "user-4", "boom", now),
		},
		Now: now,
	})

	// Все четыре уровня присутствуют, пропущенные падают в none.
	assert.Len(t, result.Distribution, 4)
	assert.Equal(t, 1, result.Distribution[progress.ParticipationHigh])
	assert.Equal(t, 1, result.Distribution[progress.ParticipationMedium])
	assert.Equal(t, 0, result.Distribution[progress.ParticipationLow])
	assert.Equal(t, 2, result.Distribution[progress.ParticipationNone])

	sum := 0
	for _, count := range result.Distribution {
		sum += count
	}
	assert.Equal(t, result.EnrollmentCount, sum)
}

func TestFoldCourse_QuizAverageNilWhenNobodyHasOne(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1"),
		Summaries: []*progress.StudentCourseSummary{
			summaryOf("user-1", "course-1", 25, progress.ParticipationNone, nil),
		},
		Now: now,
	})

	assert.Nil(t, result.AverageQuizScore)
}

func TestFoldCourse_QuizAverageSkipsStudentsWithoutScore(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	scoreA, scoreB := 90.0, 70.0

	withScore := summaryOf("user-1", "course-1", 50, progress.ParticipationNone, nil)
	withScore.QuizAverage = &scoreA
	alsoWithScore := summaryOf("user-2", "course-1", 50, progress.ParticipationNone, nil)
	alsoWithScore.QuizAverage = &scoreB
	noScore := summaryOf("user-3", "course-1", 50, progress.ParticipationNone, nil)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2", "user-3"),
		Summaries:   []*progress.StudentCourseSummary{withScore, alsoWithScore, noScore},
		Now:         now,
	})

	require.NotNil(t, result.AverageQuizScore)
	assert.Equal(t, 80.0, *result.AverageQuizScore)
}

func TestFoldCourse_QuizCompletionRate(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	completed := summaryOf("user-1", "course-1", 50, progress.ParticipationNone, nil)
	completed.QuizzesCompleted = 1
	notCompleted := summaryOf("user-2", "course-1", 50, progress.ParticipationNone, nil)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2"),
		Summaries:   []*progress.StudentCourseSummary{completed, notCompleted},
		Now:         now,
	})

	// Знаменатель - все зачисленные, а не только успешные сводки.
	assert.Equal(t, 50.0, result.QuizCompletionRate)
}

func TestFoldCourse_QuizCompletionRateCountsEnrolledWithoutSummary(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	completed := summaryOf("user-1", "course-1", 50, progress.ParticipationNone, nil)
	completed.QuizzesCompleted = 2

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2", "user-3", "user-4"),
		Summaries:   []*progress.StudentCourseSummary{completed},
		Omissions: []Omission{
			NewOmission(ScopeStudent, "user-4", "boom", now),
		},
		Now: now,
	})

	assert.Equal(t, 25.0, result.QuizCompletionRate)
}

func TestFoldCourse_UnknownParticipationFallsToNone(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	unknown := summaryOf("user-1", "course-1", 50, progress.ParticipationLevel(""), nil)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2"),
		Summaries: []*progress.StudentCourseSummary{
			unknown,
			summaryOf("user-2", "course-1", 50, progress.ParticipationLow, nil),
		},
		Now: now,
	})

	// Пустой уровень не создаёт пятую корзину.
	assert.Len(t, result.Distribution, 4)
	assert.Equal(t, 1, result.Distribution[progress.ParticipationNone])
	assert.Equal(t, 1, result.Distribution[progress.ParticipationLow])

	sum := 0
	for _, count := range result.Distribution {
		sum += count
	}
	assert.Equal(t, result.EnrollmentCount, sum)
}

func TestFoldCourse_ZeroEnrollment(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	result := FoldCourse(CourseFoldInput{
		Structure: courseStructure("course-1"),
		Now:       now,
	})

	assert.Equal(t, 0, result.EnrollmentCount)
	assert.Equal(t, 0.0, result.AverageProgress)
	assert.Nil(t, result.AverageQuizScore)
	assert.Equal(t, 0.0, result.QuizCompletionRate)
	assert.Equal(t, 0, result.ActiveStudents)
	assert.Len(t, result.Distribution, 4)
	assert.False(t, result.IsPartial())
}

func TestFoldCourse_ActiveStudentsWindow(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	stale := now.Add(-30 * 24 * time.Hour)

	input := CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2", "user-3"),
		Summaries: []*progress.StudentCourseSummary{
			summaryOf("user-1", "course-1", 10, progress.ParticipationNone, &recent),
			summaryOf("user-2", "course-1", 10, progress.ParticipationNone, &stale),
			summaryOf("user-3", "course-1", 10, progress.ParticipationNone, nil),
		},
		ActivityWindow: 7 * 24 * time.Hour,
		Now:            now,
	}

	result := FoldCourse(input)
	assert.Equal(t, 1, result.ActiveStudents)

	// Нулевое окно засчитывает любую ненулевую активность.
	input.ActivityWindow = 0
	result = FoldCourse(input)
	assert.Equal(t, 2, result.ActiveStudents)
}

func TestFoldCourse_RoundsAverages(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	result := FoldCourse(CourseFoldInput{
		Structure:   courseStructure("course-1"),
		Enrollments: courseEnrollments("course-1", "user-1", "user-2", "user-3"),
		Summaries: []*progress.StudentCourseSummary{
			summaryOf("user-1", "course-1", 33, progress.ParticipationNone, nil),
			summaryOf("user-2", "course-1", 33, progress.ParticipationNone, nil),
			summaryOf("user-3", "course-1", 34, progress.ParticipationNone, nil),
		},
		Now: now,
	})

	assert.Equal(t, 33.33, result.AverageProgress)
}
