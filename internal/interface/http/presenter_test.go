package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflip/eduflip-analytics/config"
	"github.com/eduflip/eduflip-analytics/internal/application/query"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/external/identity"
)

func leaderboardResult() *query.GetLeaderboardResult {
	return &query.GetLeaderboardResult{
		Month: "2025-03",
		Entries: []query.LeaderboardEntryDTO{
			{Rank: 1, UserID: "user-1", Score: 30, ChaptersCompleted: 3},
			{Rank: 2, UserID: "user-2", Score: 10, ChaptersCompleted: 1},
		},
		TotalCount: 2,
		Me:         &query.LeaderboardEntryDTO{Rank: 1, UserID: "user-1", Score: 30, IsRequester: true},
	}
}

func TestPresenter_NilIdentitySkipsEnrichment(t *testing.T) {
	p := NewPresenter(nil, nil, testLogger())

	view := p.LeaderboardView(context.Background(), leaderboardResult())

	require.Len(t, view.Entries, 2)
	assert.Equal(t, "user-1", view.Entries[0].UserID)
	assert.Equal(t, 30, view.Entries[0].Score)
	assert.Empty(t, view.Entries[0].DisplayName)
	require.NotNil(t, view.Me)
	assert.Empty(t, view.Me.DisplayName)
	assert.Equal(t, "2025-03", view.Month)
}

func TestPresenter_EnrichesFromIdentity(t *testing.T) {
	// Identity знает только user-1; user-2 получает fallback-профиль.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users/batch", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": [
				{
					"id": "user-1",
					"login": "aruzhan",
					"display_name": "Aruzhan K.",
					"avatar_url": "https://cdn.eduflip.io/avatars/aruzhan.png",
					"role": "student",
					"is_active": true
				}
			]
		}`))
	}))
	defer ts.Close()

	cfg := identity.DefaultClientConfig(ts.URL)
	cfg.Logger = testLogger()
	client := identity.NewClient(cfg)

	p := NewPresenter(client, nil, testLogger())
	view := p.LeaderboardView(context.Background(), leaderboardResult())

	require.Len(t, view.Entries, 2)
	assert.Equal(t, "Aruzhan K.", view.Entries[0].DisplayName)
	assert.Equal(t, "https://cdn.eduflip.io/avatars/aruzhan.png", view.Entries[0].AvatarURL)
	assert.Equal(t, "user-2", view.Entries[1].DisplayName)

	require.NotNil(t, view.Me)
	assert.Equal(t, "Aruzhan K.", view.Me.DisplayName)
	assert.True(t, view.Me.IsRequester)
}

func TestPresenter_FeatureFlagDisablesEnrichment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("identity must not be called when enrichment is off")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := identity.DefaultClientConfig(ts.URL)
	cfg.Logger = testLogger()
	client := identity.NewClient(cfg)

	features := config.LoadFeatureFlags()
	require.NoError(t, features.SetRolloutPercent(config.FeatureIdentityEnrichment, 0))

	p := NewPresenter(client, features, testLogger())
	view := p.LeaderboardView(context.Background(), leaderboardResult())

	require.Len(t, view.Entries, 2)
	assert.Empty(t, view.Entries[0].DisplayName)
}
