package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/domain/progress"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/timeutil"
)

// leaderboardFixture наполняет март 2025 событиями трёх студентов
// с заведомо разными очками.
func leaderboardFixture() *fakeWindowReader {
	at := timeutil.Date(2025, 3, 15)

	reader := &fakeWindowReader{}
	for _, userChapters := range []struct {
		userID string
		count  int
	}{
		{"user-a", 3},
		{"user-b", 2},
		{"user-c", 1},
	} {
		for i := 0; i < userChapters.count; i++ {
			reader.chapters = append(reader.chapters, progress.ChapterAccess{
				UserID:     userChapters.userID,
				CourseID:   "course-1",
				ChapterID:  "ch-" + string(rune('1'+i)),
				Completed:  true,
				OccurredAt: at,
			})
		}
	}
	return reader
}

func leaderboardHandler(reader *fakeWindowReader, cache leaderboard.RankingCache) *GetLeaderboardHandler {
	return NewGetLeaderboardHandler(reader, cache, LeaderboardOptions{
		Weights:         leaderboard.DefaultWeights(),
		DefaultPageSize: 50,
		CacheTTL:        time.Minute,
	}, testLogger())
}

func TestGetLeaderboard_HappyPath(t *testing.T) {
	handler := leaderboardHandler(leaderboardFixture(), nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3})
	require.NoError(t, err)

	assert.Equal(t, "2025-03", result.Month)
	assert.Equal(t, 3, result.TotalCount)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "user-a", result.Entries[0].UserID)
	assert.Equal(t, 1, result.Entries[0].Rank)
	assert.Equal(t, 30, result.Entries[0].Score)
	assert.False(t, result.HasMore)
	assert.False(t, result.FromCache)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 50, result.PageSize)
	assert.Nil(t, result.Me)
}

func TestGetLeaderboard_Pagination(t *testing.T) {
	handler := leaderboardHandler(leaderboardFixture(), nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Year: 2025, Month: 3, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.True(t, result.HasMore)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 2, result.PageSize)

	result, err = handler.Handle(context.Background(), GetLeaderboardQuery{
		Year: 2025, Month: 3, Limit: 2, Offset: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "user-c", result.Entries[0].UserID)
	assert.False(t, result.HasMore)
	assert.Equal(t, 2, result.Page)
}

func TestGetLeaderboard_OffsetBeyondEnd(t *testing.T) {
	handler := leaderboardHandler(leaderboardFixture(), nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Year: 2025, Month: 3, Limit: 10, Offset: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Equal(t, 3, result.TotalCount)
	assert.False(t, result.HasMore)
}

func TestGetLeaderboard_MeOutsidePage(t *testing.T) {
	handler := leaderboardHandler(leaderboardFixture(), nil)

	// Страница из одной записи, вызывающий на третьем месте.
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Year: 2025, Month: 3, Limit: 1, RequesterID: "user-c",
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "user-a", result.Entries[0].UserID)
	require.NotNil(t, result.Me)
	assert.Equal(t, "user-c", result.Me.UserID)
	assert.Equal(t, 3, result.Me.Rank)
	assert.True(t, result.Me.IsRequester)
}

func TestGetLeaderboard_RequesterNotRanked(t *testing.T) {
	handler := leaderboardHandler(leaderboardFixture(), nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{
		Year: 2025, Month: 3, RequesterID: "lurker",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Me)
}

func TestGetLeaderboard_ValidationErrors(t *testing.T) {
	handler := leaderboardHandler(leaderboardFixture(), nil)

	// Год и месяц задаются только вместе.
	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), GetLeaderboardQuery{Month: 3})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3, Offset: -1})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetLeaderboard_CacheReadThrough(t *testing.T) {
	reader := leaderboardFixture()
	cache := newFakeRankingCache()
	handler := leaderboardHandler(reader, cache)

	first, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, reader.calls)

	second, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, reader.calls)
}

func TestGetLeaderboard_SkipCache(t *testing.T) {
	reader := leaderboardFixture()
	cache := newFakeRankingCache()
	handler := leaderboardHandler(reader, cache)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3, SkipCache: true})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, 2, reader.calls)
}

func TestGetLeaderboard_WindowReaderFailure(t *testing.T) {
	reader := &fakeWindowReader{err: errCacheDown}
	handler := leaderboardHandler(reader, nil)

	_, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3})
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))
}

func TestGetLeaderboard_EmptyMonth(t *testing.T) {
	handler := leaderboardHandler(&fakeWindowReader{}, nil)

	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{Year: 2025, Month: 3})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Equal(t, 0, result.TotalCount)
	assert.False(t, result.HasMore)
}
