package http

import (
	"context"
	"time"

	"github.com/eduflip/eduflip-analytics/config"
	"github.com/eduflip/eduflip-analytics/internal/application/query"
	"github.com/eduflip/eduflip-analytics/internal/infrastructure/external/identity"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTATION ADAPTER
// Attaches display names from the identity service to outgoing payloads.
// Enrichment happens strictly at this boundary: the query layer works with
// opaque user IDs and never talks to identity. Any identity failure degrades
// to fallback profiles, it never fails or delays the analytics response
// beyond the enrichment timeout.
// ══════════════════════════════════════════════════════════════════════════════

// enrichmentTimeout bounds the identity round-trip during presentation.
const enrichmentTimeout = 2 * time.Second

// Presenter builds response views enriched with identity data.
type Presenter struct {
	identity *identity.Client
	features *config.FeatureFlags
	log      *logger.Logger
}

// NewPresenter creates a presenter. A nil identity client disables
// enrichment: views are served with IDs only.
func NewPresenter(client *identity.Client, features *config.FeatureFlags, log *logger.Logger) *Presenter {
	if log == nil {
		log = logger.Default()
	}
	return &Presenter{
		identity: client,
		features: features,
		log:      log.With(logger.Component("presenter")),
	}
}

// LeaderboardEntryView is a leaderboard entry with display data attached.
type LeaderboardEntryView struct {
	query.LeaderboardEntryDTO

	// DisplayName is resolved via the identity service. Falls back to the
	// user ID when identity is unavailable; empty when enrichment is off.
	DisplayName string `json:"display_name,omitempty"`

	// AvatarURL is the user's avatar, when known.
	AvatarURL string `json:"avatar_url,omitempty"`
}

// LeaderboardView is the leaderboard response payload.
type LeaderboardView struct {
	Month       string                 `json:"month"`
	Entries     []LeaderboardEntryView `json:"entries"`
	TotalCount  int                    `json:"total_count"`
	Me          *LeaderboardEntryView  `json:"me,omitempty"`
	FromCache   bool                   `json:"from_cache"`
	GeneratedAt time.Time              `json:"generated_at"`
	HasMore     bool                   `json:"has_more"`
	Page        int                    `json:"page"`
	PageSize    int                    `json:"page_size"`
}

// LeaderboardView converts a query result into the response view,
// enriching entries with display names where possible.
func (p *Presenter) LeaderboardView(ctx context.Context, result *query.GetLeaderboardResult) *LeaderboardView {
	view := &LeaderboardView{
		Month:       result.Month,
		Entries:     make([]LeaderboardEntryView, len(result.Entries)),
		TotalCount:  result.TotalCount,
		FromCache:   result.FromCache,
		GeneratedAt: result.GeneratedAt,
		HasMore:     result.HasMore,
		Page:        result.Page,
		PageSize:    result.PageSize,
	}

	profiles := p.resolveProfiles(ctx, result)

	for i, entry := range result.Entries {
		view.Entries[i] = p.entryView(entry, profiles)
	}
	if result.Me != nil {
		me := p.entryView(*result.Me, profiles)
		view.Me = &me
	}

	return view
}

// resolveProfiles fetches profiles for every user on the page, plus the
// caller's own entry if it landed outside the page.
func (p *Presenter) resolveProfiles(ctx context.Context, result *query.GetLeaderboardResult) map[string]identity.Profile {
	if !p.enrichmentEnabled() {
		return nil
	}

	userIDs := make([]string, 0, len(result.Entries)+1)
	for _, entry := range result.Entries {
		userIDs = append(userIDs, entry.UserID)
	}
	if result.Me != nil {
		userIDs = append(userIDs, result.Me.UserID)
	}
	if len(userIDs) == 0 {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, enrichmentTimeout)
	defer cancel()

	profiles, err := p.identity.GetProfiles(fetchCtx, userIDs)
	if err != nil {
		p.log.Warn("identity enrichment degraded to fallback", logger.Err(err))
		return nil
	}
	return profiles
}

// entryView attaches profile data to one entry. Users unknown to identity
// get a fallback profile so the view never shows a blank name.
func (p *Presenter) entryView(entry query.LeaderboardEntryDTO, profiles map[string]identity.Profile) LeaderboardEntryView {
	view := LeaderboardEntryView{LeaderboardEntryDTO: entry}

	if !p.enrichmentEnabled() {
		return view
	}

	profile, ok := profiles[entry.UserID]
	if !ok {
		profile = identity.FallbackProfile(entry.UserID)
	}
	view.DisplayName = profile.DisplayName
	view.AvatarURL = profile.AvatarURL

	return view
}

func (p *Presenter) enrichmentEnabled() bool {
	if p.identity == nil {
		return false
	}
	if p.features == nil {
		return true
	}
	return p.features.IsEnabled(config.FeatureIdentityEnrichment, "")
}
