package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
)

func studentProgressHandler(events *fakeEventReader, enrollments *fakeEnrollmentReader, courses *fakeCourseReader) *GetStudentProgressHandler {
	return NewGetStudentProgressHandler(
		events, enrollments, courses, progress.DefaultThresholds(), testLogger())
}

func TestGetStudentProgress_HappyPath(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	events := newFakeEventReader()
	events.chapters["user-1"] = []progress.ChapterAccess{
		{UserID: "user-1", CourseID: "course-1", ChapterID: "ch-1", Completed: true, OccurredAt: at},
		{UserID: "user-1", CourseID: "course-1", ChapterID: "ch-2", Completed: true, OccurredAt: at},
	}
	events.quizzes["user-1"] = []progress.QuizAttempt{
		{UserID: "user-1", CourseID: "course-1", QuizID: "quiz-1", Score: 90, AttemptNumber: 1, Completed: true, CompletedAt: at},
	}
	events.posts["user-1"] = []progress.DiscussionPost{
		{UserID: "user-1", CourseID: "course-1", PostID: "p-1", PostedAt: at},
	}

	enrollments := &fakeEnrollmentReader{byCourse: map[string][]progress.Enrollment{
		"course-1": {{UserID: "user-1", CourseID: "course-1"}},
	}}
	courses := &fakeCourseReader{structures: map[string]progress.CourseStructure{
		"course-1": {CourseID: "course-1", Title: "Go", ChapterIDs: []string{"ch-1", "ch-2", "ch-3", "ch-4"}},
	}}

	handler := studentProgressHandler(events, enrollments, courses)
	result, err := handler.Handle(context.Background(), GetStudentProgressQuery{
		UserID:   "user-1",
		CourseID: "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "user-1", result.Summary.UserID)
	assert.Equal(t, 50, result.Summary.ProgressPercent)
	assert.Equal(t, 2, result.Summary.ChaptersCompleted)
	assert.Equal(t, 4, result.Summary.TotalChapters)
	require.NotNil(t, result.Summary.QuizAverage)
	assert.Equal(t, 90.0, *result.Summary.QuizAverage)
	assert.Equal(t, "low", result.Summary.Participation)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestGetStudentProgress_ValidationError(t *testing.T) {
	handler := studentProgressHandler(newFakeEventReader(), &fakeEnrollmentReader{}, &fakeCourseReader{})

	_, err := handler.Handle(context.Background(), GetStudentProgressQuery{CourseID: "course-1"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), GetStudentProgressQuery{UserID: "user-1"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetStudentProgress_CourseNotFound(t *testing.T) {
	handler := studentProgressHandler(newFakeEventReader(), &fakeEnrollmentReader{},
		&fakeCourseReader{structures: map[string]progress.CourseStructure{}})

	_, err := handler.Handle(context.Background(), GetStudentProgressQuery{
		UserID:   "user-1",
		CourseID: "missing",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetStudentProgress_NotEnrolled(t *testing.T) {
	enrollments := &fakeEnrollmentReader{byCourse: map[string][]progress.Enrollment{
		"course-1": {{UserID: "somebody-else", CourseID: "course-1"}},
	}}
	courses := &fakeCourseReader{structures: map[string]progress.CourseStructure{
		"course-1": {CourseID: "course-1", ChapterIDs: []string{"ch-1"}},
	}}

	handler := studentProgressHandler(newFakeEventReader(), enrollments, courses)
	_, err := handler.Handle(context.Background(), GetStudentProgressQuery{
		UserID:   "user-1",
		CourseID: "course-1",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotEnrolled(err))
}

func TestGetStudentProgress_EventReaderFailure(t *testing.T) {
	events := newFakeEventReader()
	events.failFor["user-1"] = errCacheDown

	enrollments := &fakeEnrollmentReader{byCourse: map[string][]progress.Enrollment{
		"course-1": {{UserID: "user-1", CourseID: "course-1"}},
	}}
	courses := &fakeCourseReader{structures: map[string]progress.CourseStructure{
		"course-1": {CourseID: "course-1", ChapterIDs: []string{"ch-1"}},
	}}

	handler := studentProgressHandler(events, enrollments, courses)
	_, err := handler.Handle(context.Background(), GetStudentProgressQuery{
		UserID:   "user-1",
		CourseID: "course-1",
	})
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))
}

func TestGetStudentProgress_NoActivity(t *testing.T) {
	enrollments := &fakeEnrollmentReader{byCourse: map[string][]progress.Enrollment{
		"course-1": {{UserID: "user-1", CourseID: "course-1"}},
	}}
	courses := &fakeCourseReader{structures: map[string]progress.CourseStructure{
		"course-1": {CourseID: "course-1", ChapterIDs: []string{"ch-1", "ch-2"}},
	}}

	handler := studentProgressHandler(newFakeEventReader(), enrollments, courses)
	result, err := handler.Handle(context.Background(), GetStudentProgressQuery{
		UserID:   "user-1",
		CourseID: "course-1",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Summary.ProgressPercent)
	assert.Nil(t, result.Summary.QuizAverage)
	assert.Nil(t, result.Summary.LastActivityAt)
	assert.Equal(t, "none", result.Summary.Participation)
}
