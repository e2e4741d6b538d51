package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags управляет включением фич и постепенными раскатками.
// Раскатка детерминирована: студент остаётся в своей корзине между запросами.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// === Leaderboard Features ===
	FeatureLeaderboardPublic    = "leaderboard.public"    // unauthenticated leaderboard view
	FeatureLeaderboardHighlight = "leaderboard.highlight" // "me" highlight for authenticated callers

	// === Analytics Features ===
	FeatureAnalyticsCache     = "analytics.cache"    // read-through caching of aggregates
	FeatureAnalyticsRollup    = "analytics.rollup"   // per-student regrouping in portfolio
	FeatureIdentityEnrichment = "analytics.identity" // display name enrichment at the boundary
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureLeaderboardPublic] = &Feature{
		Name:           FeatureLeaderboardPublic,
		Description:    "Expose the leaderboard without authentication",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardHighlight] = &Feature{
		Name:           FeatureLeaderboardHighlight,
		Description:    "Highlight the caller's own entry",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnalyticsCache] = &Feature{
		Name:           FeatureAnalyticsCache,
		Description:    "Serve aggregates from Redis when fresh",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAnalyticsRollup] = &Feature{
		Name:           FeatureAnalyticsRollup,
		Description:    "Include per-student rollups in portfolio responses",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureIdentityEnrichment] = &Feature{
		Name:           FeatureIdentityEnrichment,
		Description:    "Resolve display names via the identity service",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ANALYTICS_CACHE=false
// Example: FEATURE_ANALYTICS_ROLLUP=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "analytics.cache" -> "FEATURE_ANALYTICS_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given user.
// An empty userID checks only the global switch.
func (ff *FeatureFlags) IsEnabled(featureName, userID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	if !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && userID != "" {
		return isInRollout(userID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))
	bucket := int(h.Sum32() % 100)
	return bucket < percent
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
