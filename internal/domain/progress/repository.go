package progress

import (
	"context"
	"time"
)

// EventReader defines read-only access to the externally owned event stores.
// Implementations never mutate the underlying data: the analytics engine
// derives everything on demand. Empty event sets are returned as empty
// slices, never as errors.
type EventReader interface {
	// ListChapterAccess returns chapter access events for a user in a course,
	// ordered by occurrence time.
	ListChapterAccess(ctx context.Context, userID, courseID string) ([]ChapterAccess, error)

	// ListQuizAttempts returns quiz attempts for a user in a course.
	// Scores are normalized to the 0-100 scale at this boundary.
	ListQuizAttempts(ctx context.Context, userID, courseID string) ([]QuizAttempt, error)

	// ListDiscussionPosts returns discussion posts by a user in a course.
	ListDiscussionPosts(ctx context.Context, userID, courseID string) ([]DiscussionPost, error)
}

// EnrollmentReader defines read-only access to enrollment records.
// Enrollment is the authoritative membership source: a user with events but
// no enrollment record is not considered part of the course.
type EnrollmentReader interface {
	// ListEnrollments returns all enrollments for a course.
	// Returns shared.ErrNotFound if the course does not exist.
	ListEnrollments(ctx context.Context, courseID string) ([]Enrollment, error)

	// ListEnrollmentsForUser returns all courses a user is enrolled in.
	ListEnrollmentsForUser(ctx context.Context, userID string) ([]Enrollment, error)
}

// CourseReader defines read-only access to course topology.
type CourseReader interface {
	// GetCourseStructure returns the current structure of a course.
	// Returns shared.ErrNotFound if the course does not exist.
	GetCourseStructure(ctx context.Context, courseID string) (*CourseStructure, error)

	// ListCoursesByTeacher returns structures of all courses owned by a teacher.
	// Returns shared.ErrNotFound if the teacher does not exist.
	ListCoursesByTeacher(ctx context.Context, teacherID string) ([]CourseStructure, error)
}

// WindowReader defines read-only access to platform-wide events inside a
// time window. Used by the leaderboard ranker; the window is half-open
// [from, to).
type WindowReader interface {
	// ListChapterCompletionsInWindow returns completed chapter events across
	// all courses within the window.
	ListChapterCompletionsInWindow(ctx context.Context, from, to time.Time) ([]ChapterAccess, error)

	// ListQuizCompletionsInWindow returns completed quiz attempts across
	// all courses within the window.
	ListQuizCompletionsInWindow(ctx context.Context, from, to time.Time) ([]QuizAttempt, error)

	// ListCourseAccessInWindow returns course access events within the window.
	ListCourseAccessInWindow(ctx context.Context, from, to time.Time) ([]CourseAccess, error)
}
