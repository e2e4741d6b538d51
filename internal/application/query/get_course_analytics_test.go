package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
)

func courseAnalyticsFixture() (*fakeEventReader, *fakeEnrollmentReader, *fakeCourseReader) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	events := newFakeEventReader()
	events.chapters["user-1"] = []progress.ChapterAccess{
		{UserID: "user-1", CourseID: "course-1", ChapterID: "ch-1", Completed: true, OccurredAt: at},
		{UserID: "user-1", CourseID: "course-1", ChapterID: "ch-2", Completed: true, OccurredAt: at},
	}
	events.chapters["user-2"] = []progress.ChapterAccess{
		{UserID: "user-2", CourseID: "course-1", ChapterID: "ch-1", Completed: true, OccurredAt: at},
	}

	enrollments := &fakeEnrollmentReader{byCourse: map[string][]progress.Enrollment{
		"course-1": {
			{UserID: "user-1", CourseID: "course-1"},
			{UserID: "user-2", CourseID: "course-1"},
		},
	}}
	courses := &fakeCourseReader{structures: map[string]progress.CourseStructure{
		"course-1": {CourseID: "course-1", Title: "Go", ChapterIDs: []string{"ch-1", "ch-2", "ch-3", "ch-4"}},
	}}

	return events, enrollments, courses
}

func courseAnalyticsHandler(
	events *fakeEventReader,
	enrollments *fakeEnrollmentReader,
	courses *fakeCourseReader,
	cache analytics.CourseCache,
) *GetCourseAnalyticsHandler {
	return NewGetCourseAnalyticsHandler(
		events, enrollments, courses, cache,
		progress.DefaultThresholds(),
		CourseAggregationConfig{StudentConcurrency: 4, CacheTTL: time.Minute},
		testLogger())
}

func TestGetCourseAnalytics_HappyPath(t *testing.T) {
	events, enrollments, courses := courseAnalyticsFixture()
	handler := courseAnalyticsHandler(events, enrollments, courses, nil)

	result, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)

	a := result.Analytics
	assert.Equal(t, "course-1", a.CourseID)
	assert.Equal(t, 2, a.EnrollmentCount)
	// user-1: 50%, user-2: 25%.
	assert.Equal(t, 37.5, a.AverageProgress)
	assert.Len(t, a.Students, 2)
	assert.False(t, a.Partial)
	assert.False(t, result.FromCache)

	sum := 0
	for _, count := range a.ParticipationDistribution {
		sum += count
	}
	assert.Equal(t, a.EnrollmentCount, sum)
}

func TestGetCourseAnalytics_QuizCompletionRate(t *testing.T) {
	events, enrollments, courses := courseAnalyticsFixture()
	events.quizzes["user-1"] = []progress.QuizAttempt{
		{UserID: "user-1", CourseID: "course-1", QuizID: "quiz-1", Score: 80,
			AttemptNumber: 1, Completed: true, CompletedAt: time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)},
	}
	handler := courseAnalyticsHandler(events, enrollments, courses, nil)

	result, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)

	// Один из двух зачисленных завершил хотя бы один квиз.
	assert.Equal(t, 50.0, result.Analytics.QuizCompletionRate)
	require.NotNil(t, result.Analytics.AverageQuizScore)
	assert.Equal(t, 80.0, *result.Analytics.AverageQuizScore)
}

func TestGetCourseAnalytics_ValidationError(t *testing.T) {
	handler := courseAnalyticsHandler(newFakeEventReader(), &fakeEnrollmentReader{}, &fakeCourseReader{}, nil)

	_, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetCourseAnalytics_CourseNotFound(t *testing.T) {
	handler := courseAnalyticsHandler(newFakeEventReader(), &fakeEnrollmentReader{},
		&fakeCourseReader{structures: map[string]progress.CourseStructure{}}, nil)

	_, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "missing"})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetCourseAnalytics_OmissionIsolation(t *testing.T) {
	events, enrollments, courses := courseAnalyticsFixture()
	// Сбой чтения событий одного студента не валит весь ответ.
	events.failFor["user-2"] = errCacheDown

	handler := courseAnalyticsHandler(events, enrollments, courses, nil)
	result, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)

	a := result.Analytics
	assert.True(t, a.Partial)
	require.Len(t, a.Unavailable, 1)
	assert.Equal(t, "student", a.Unavailable[0].Scope)
	assert.Equal(t, "user-2", a.Unavailable[0].Key)
	require.Len(t, a.Students, 1)
	assert.Equal(t, "user-1", a.Students[0].UserID)

	// Пропущенный студент учтён в распределении как none.
	assert.Equal(t, 2, a.EnrollmentCount)
	sum := 0
	for _, count := range a.ParticipationDistribution {
		sum += count
	}
	assert.Equal(t, 2, sum)
}

func TestGetCourseAnalytics_CacheReadThrough(t *testing.T) {
	events, enrollments, courses := courseAnalyticsFixture()
	cache := newFakeCourseCache()
	handler := courseAnalyticsHandler(events, enrollments, courses, cache)

	// Первый запрос считает из событий и кладёт в кэш.
	first, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.sets)

	// Второй запрос попадает в кэш.
	second, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, cache.sets)
}

func TestGetCourseAnalytics_SkipCache(t *testing.T) {
	events, enrollments, courses := courseAnalyticsFixture()
	cache := newFakeCourseCache()
	handler := courseAnalyticsHandler(events, enrollments, courses, cache)

	_, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1", SkipCache: true})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, cache.sets)
}

func TestGetCourseAnalytics_CacheFailureIsMiss(t *testing.T) {
	events, enrollments, courses := courseAnalyticsFixture()
	cache := newFakeCourseCache()
	cache.getErr = errCacheDown
	handler := courseAnalyticsHandler(events, enrollments, courses, cache)

	result, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, result.Analytics.EnrollmentCount)
}

func TestGetCourseAnalytics_EmptyCourse(t *testing.T) {
	enrollments := &fakeEnrollmentReader{byCourse: map[string][]progress.Enrollment{
		"course-1": {},
	}}
	courses := &fakeCourseReader{structures: map[string]progress.CourseStructure{
		"course-1": {CourseID: "course-1", ChapterIDs: []string{"ch-1"}},
	}}

	handler := courseAnalyticsHandler(newFakeEventReader(), enrollments, courses, nil)
	result, err := handler.Handle(context.Background(), GetCourseAnalyticsQuery{CourseID: "course-1"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Analytics.EnrollmentCount)
	assert.Equal(t, 0.0, result.Analytics.AverageProgress)
	assert.False(t, result.Analytics.Partial)
}
