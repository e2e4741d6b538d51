package query

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/analytics"
	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// testLogger пишет в никуда: тесты проверяют результаты, а не журнал.
func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// ─────────────────────────────────────────────────────────────────────────────
// Фейковые читатели событий
// ─────────────────────────────────────────────────────────────────────────────

type fakeEventReader struct {
	chapters map[string][]progress.ChapterAccess
	quizzes  map[string][]progress.QuizAttempt
	posts    map[string][]progress.DiscussionPost

	// failFor - пользователи, чтение событий которых падает.
	failFor map[string]error
}

func newFakeEventReader() *fakeEventReader {
	return &fakeEventReader{
		chapters: make(map[string][]progress.ChapterAccess),
		quizzes:  make(map[string][]progress.QuizAttempt),
		posts:    make(map[string][]progress.DiscussionPost),
		failFor:  make(map[string]error),
	}
}

func (f *fakeEventReader) ListChapterAccess(_ context.Context, userID, _ string) ([]progress.ChapterAccess, error) {
	if err, ok := f.failFor[userID]; ok {
		return nil, err
	}
	return f.chapters[userID], nil
}

func (f *fakeEventReader) ListQuizAttempts(_ context.Context, userID, _ string) ([]progress.QuizAttempt, error) {
	if err, ok := f.failFor[userID]; ok {
		return nil, err
	}
	return f.quizzes[userID], nil
}

func (f *fakeEventReader) ListDiscussionPosts(_ context.Context, userID, _ string) ([]progress.DiscussionPost, error) {
	if err, ok := f.failFor[userID]; ok {
		return nil, err
	}
	return f.posts[userID], nil
}

type fakeEnrollmentReader struct {
	byCourse map[string][]progress.Enrollment
	err      error

	// blockUntilCtx имитирует медленное хранилище: чтение висит до отмены
	// контекста и возвращает его ошибку.
	blockUntilCtx bool
}

func (f *fakeEnrollmentReader) ListEnrollments(ctx context.Context, courseID string) ([]progress.Enrollment, error) {
	if f.blockUntilCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	enrollments, ok := f.byCourse[courseID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return enrollments, nil
}

func (f *fakeEnrollmentReader) ListEnrollmentsForUser(_ context.Context, userID string) ([]progress.Enrollment, error) {
	var result []progress.Enrollment
	for _, enrollments := range f.byCourse {
		for _, e := range enrollments {
			if e.UserID == userID {
				result = append(result, e)
			}
		}
	}
	return result, nil
}

type fakeCourseReader struct {
	structures map[string]progress.CourseStructure
	byTeacher  map[string][]progress.CourseStructure
	err        error
}

func (f *fakeCourseReader) GetCourseStructure(_ context.Context, courseID string) (*progress.CourseStructure, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.structures[courseID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (f *fakeCourseReader) ListCoursesByTeacher(_ context.Context, teacherID string) ([]progress.CourseStructure, error) {
	if f.err != nil {
		return nil, f.err
	}
	courses, ok := f.byTeacher[teacherID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return courses, nil
}

type fakeWindowReader struct {
	chapters []progress.ChapterAccess
	quizzes  []progress.QuizAttempt
	accesses []progress.CourseAccess
	err      error

	calls int
}

func (f *fakeWindowReader) ListChapterCompletionsInWindow(_ context.Context, _, _ time.Time) ([]progress.ChapterAccess, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chapters, nil
}

func (f *fakeWindowReader) ListQuizCompletionsInWindow(_ context.Context, _, _ time.Time) ([]progress.QuizAttempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quizzes, nil
}

func (f *fakeWindowReader) ListCourseAccessInWindow(_ context.Context, _, _ time.Time) ([]progress.CourseAccess, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accesses, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Фейковые кэши
// ─────────────────────────────────────────────────────────────────────────────

var errCacheDown = errors.New("cache down")

type fakeCourseCache struct {
	mu      sync.Mutex
	entries map[string]*analytics.CourseAnalyticsSummary
	getErr  error
	sets    int
}

func newFakeCourseCache() *fakeCourseCache {
	return &fakeCourseCache{entries: make(map[string]*analytics.CourseAnalyticsSummary)}
}

func (f *fakeCourseCache) GetCourseSummary(_ context.Context, courseID string) (*analytics.CourseAnalyticsSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.entries[courseID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (f *fakeCourseCache) SetCourseSummary(_ context.Context, summary *analytics.CourseAnalyticsSummary, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[summary.CourseID] = summary
	f.sets++
	return nil
}

func (f *fakeCourseCache) InvalidateCourseSummary(_ context.Context, courseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, courseID)
	return nil
}

type fakeRankingCache struct {
	mu      sync.Mutex
	entries map[string]*leaderboard.Ranking
	getErr  error
	sets    int
}

func newFakeRankingCache() *fakeRankingCache {
	return &fakeRankingCache{entries: make(map[string]*leaderboard.Ranking)}
}

func (f *fakeRankingCache) GetRanking(_ context.Context, window leaderboard.MonthWindow) (*leaderboard.Ranking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.entries[window.Key()]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func (f *fakeRankingCache) SetRanking(_ context.Context, ranking *leaderboard.Ranking, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[ranking.Window.Key()] = ranking
	f.sets++
	return nil
}

func (f *fakeRankingCache) InvalidateRanking(_ context.Context, window leaderboard.MonthWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, window.Key())
	return nil
}
