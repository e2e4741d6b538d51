package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/pkg/timeutil"
)

func march() MonthWindow {
	return MonthWindow{Year: 2025, Month: time.March}
}

func chapterEvent(userID, courseID, chapterID string, at time.Time) progress.ChapterAccess {
	return progress.ChapterAccess{
		UserID:     userID,
		CourseID:   courseID,
		ChapterID:  chapterID,
		Completed:  true,
		OccurredAt: at,
	}
}

func quizEvent(userID, courseID, quizID string, at time.Time) progress.QuizAttempt {
	return progress.QuizAttempt{
		UserID:      userID,
		CourseID:    courseID,
		QuizID:      quizID,
		Completed:   true,
		CompletedAt: at,
	}
}

func TestComputeRanking_Scoring(t *testing.T) {
	at := timeutil.Date(2025, 3, 15)

	ranking := ComputeRanking(RankingInput{
		Window: march(),
		ChapterCompletions: []progress.ChapterAccess{
			chapterEvent("user-1", "course-1", "ch-1", at),
			chapterEvent("user-1", "course-1", "ch-2", at),
		},
		QuizCompletions: []progress.QuizAttempt{
			quizEvent("user-1", "course-1", "quiz-1", at),
		},
		CourseAccess: []progress.CourseAccess{
			{UserID: "user-1", CourseID: "course-1", OccurredAt: at},
		},
		Weights: DefaultWeights(),
		Now:     at,
	})

	require.Len(t, ranking.Entries, 1)
	entry := ranking.Entries[0]
	// 2 главы * 10 + 1 квиз * 20 + 1 курс * 5.
	assert.Equal(t, 45, entry.Score)
	assert.Equal(t, 2, entry.ChaptersCompleted)
	assert.Equal(t, 1, entry.QuizzesCompleted)
	assert.Equal(t, 1, entry.CoursesAccessed)
	assert.Equal(t, 1, entry.Rank)
}

func TestComputeRanking_WindowBounds(t *testing.T) {
	start, end := march().Bounds()

	ranking := ComputeRanking(RankingInput{
		Window: march(),
		ChapterCompletions: []progress.ChapterAccess{
			// Начало месяца входит, начало следующего - нет.
			chapterEvent("user-1", "course-1", "ch-1", start),
			chapterEvent("user-1", "course-1", "ch-2", end),
			chapterEvent("user-1", "course-1", "ch-3", start.Add(-time.Second)),
		},
		Weights: DefaultWeights(),
		Now:     end,
	})

	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, 1, ranking.Entries[0].ChaptersCompleted)
}

func TestComputeRanking_UniquePerCourseAndEntity(t *testing.T) {
	at := timeutil.Date(2025, 3, 15)

	ranking := ComputeRanking(RankingInput{
		Window: march(),
		ChapterCompletions: []progress.ChapterAccess{
			// Повтор одной главы не даёт очков, та же глава в другом
			// курсе - отдельная сущность.
			chapterEvent("user-1", "course-1", "ch-1", at),
			chapterEvent("user-1", "course-1", "ch-1", at.Add(time.Hour)),
			chapterEvent("user-1", "course-2", "ch-1", at),
		},
		CourseAccess: []progress.CourseAccess{
			{UserID: "user-1", CourseID: "course-1", OccurredAt: at},
			{UserID: "user-1", CourseID: "course-1", OccurredAt: at.Add(time.Hour)},
		},
		Weights: DefaultWeights(),
		Now:     at,
	})

	require.Len(t, ranking.Entries, 1)
	assert.Equal(t, 2, ranking.Entries[0].ChaptersCompleted)
	assert.Equal(t, 1, ranking.Entries[0].CoursesAccessed)
}

func TestComputeRanking_IncompleteEventsIgnored(t *testing.T) {
	at := timeutil.Date(2025, 3, 15)

	incomplete := chapterEvent("user-1", "course-1", "ch-1", at)
	incomplete.Completed = false
	abandoned := quizEvent("user-1", "course-1", "quiz-1", at)
	abandoned.Completed = false

	ranking := ComputeRanking(RankingInput{
		Window:             march(),
		ChapterCompletions: []progress.ChapterAccess{incomplete},
		QuizCompletions:    []progress.QuizAttempt{abandoned},
		Weights:            DefaultWeights(),
		Now:                at,
	})

	assert.Empty(t, ranking.Entries)
	assert.Equal(t, 0, ranking.TotalParticipants())
}

func TestComputeRanking_ZeroScoreExcluded(t *testing.T) {
	at := timeutil.Date(2025, 3, 15)

	// Вес курса нулевой, и единственная активность студента - заход в курс.
	weights := ScoreWeights{ChapterCompleted: 10, QuizCompleted: 20, CourseAccessed: 0}

	ranking := ComputeRanking(RankingInput{
		Window: march(),
		CourseAccess: []progress.CourseAccess{
			{UserID: "user-1", CourseID: "course-1", OccurredAt: at},
		},
		Weights: weights,
		Now:     at,
	})

	assert.Empty(t, ranking.Entries)
}

func TestComputeRanking_OrderingAndRanks(t *testing.T) {
	at := timeutil.Date(2025, 3, 15)

	input := RankingInput{
		Window: march(),
		ChapterCompletions: []progress.ChapterAccess{
			// user-b: 3 главы = 30 очков.
			chapterEvent("user-b", "course-1", "ch-1", at),
			chapterEvent("user-b", "course-1", "ch-2", at),
			chapterEvent("user-b", "course-1", "ch-3", at),
			// user-a: 1 глава + 1 квиз = 30 очков, но глав меньше.
			chapterEvent("user-a", "course-1", "ch-1", at),
			// user-c: 1 глава + 1 квиз = 30 очков, главы равны user-a.
			chapterEvent("user-c", "course-1", "ch-1", at),
			// user-d: 1 глава = 10 очков.
			chapterEvent("user-d", "course-1", "ch-1", at),
		},
		QuizCompletions: []progress.QuizAttempt{
			quizEvent("user-a", "course-1", "quiz-1", at),
			quizEvent("user-c", "course-1", "quiz-1", at),
		},
		Weights: DefaultWeights(),
		Now:     at,
	}

	ranking := ComputeRanking(input)
	require.Len(t, ranking.Entries, 4)

	// Очки по убыванию, затем главы по убыванию, затем userID.
	assert.Equal(t, "user-b", ranking.Entries[0].UserID)
	assert.Equal(t, "user-a", ranking.Entries[1].UserID)
	assert.Equal(t, "user-c", ranking.Entries[2].UserID)
	assert.Equal(t, "user-d", ranking.Entries[3].UserID)

	// Ранги позиционные, без пропусков и без разделения при равных очках.
	for i, entry := range ranking.Entries {
		assert.Equal(t, i+1, entry.Rank)
	}
}

func TestComputeRanking_Deterministic(t *testing.T) {
	at := timeutil.Date(2025, 3, 15)

	input := RankingInput{
		Window: march(),
		ChapterCompletions: []progress.ChapterAccess{
			chapterEvent("user-2", "course-1", "ch-1", at),
			chapterEvent("user-1", "course-1", "ch-1", at),
			chapterEvent("user-3", "course-1", "ch-1", at),
		},
		Weights: DefaultWeights(),
		Now:     at,
	}

	first := ComputeRanking(input)
	second := ComputeRanking(input)
	assert.Equal(t, first.Entries, second.Entries)
}

func TestRanking_Find(t *testing.T) {
	ranking := &Ranking{
		Window: march(),
		Entries: []Entry{
			{UserID: "user-1", Rank: 1, Score: 50},
			{UserID: "user-2", Rank: 2, Score: 30},
		},
	}

	entry, ok := ranking.Find("user-2")
	assert.True(t, ok)
	assert.Equal(t, 2, entry.Rank)

	_, ok = ranking.Find("stranger")
	assert.False(t, ok)
}

func TestRanking_Top(t *testing.T) {
	ranking := &Ranking{
		Entries: []Entry{
			{UserID: "user-1", Rank: 1},
			{UserID: "user-2", Rank: 2},
			{UserID: "user-3", Rank: 3},
		},
	}

	assert.Len(t, ranking.Top(2), 2)
	assert.Len(t, ranking.Top(0), 3)
	assert.Len(t, ranking.Top(10), 3)
}

func TestScoreWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	assert.Error(t, ScoreWeights{}.Validate())
	assert.Error(t, ScoreWeights{ChapterCompleted: -1, QuizCompleted: 20, CourseAccessed: 5}.Validate())
}
