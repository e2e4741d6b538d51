package identity

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserProfileDTO_Parsing(t *testing.T) {
	jsonData := `{
    "success": true,
    "data": {
        "id": "a3f1c2d4-9b7e-4f10-8c55-1d2e3f4a5b6c",
        "login": "aruzhan",
        "display_name": "Aruzhan K.",
        "avatar_url": "https://cdn.eduflip.io/avatars/aruzhan.png",
        "role": "student",
        "is_active": true,
        "created_at": "2024-09-01T08:00:00Z"
    }
}`

	var resp APIResponse[UserProfileDTO]
	err := json.Unmarshal([]byte(jsonData), &resp)
	assert.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "a3f1c2d4-9b7e-4f10-8c55-1d2e3f4a5b6c", resp.Data.ID)
	assert.Equal(t, "aruzhan", resp.Data.Login)
	assert.Equal(t, "Aruzhan K.", resp.Data.DisplayName)
	assert.Equal(t, "student", resp.Data.Role)
	assert.True(t, resp.Data.IsActive)
}

func TestMapper_DisplayNameFallbackChain(t *testing.T) {
	mapper := NewMapper()

	// Полное имя побеждает.
	p := mapper.ProfileFromDTO(&UserProfileDTO{ID: "u-1", Login: "aruzhan", DisplayName: "Aruzhan K."})
	assert.Equal(t, "Aruzhan K.", p.DisplayName)

	// Без имени берётся логин.
	p = mapper.ProfileFromDTO(&UserProfileDTO{ID: "u-1", Login: "aruzhan"})
	assert.Equal(t, "aruzhan", p.DisplayName)

	// Без логина остаётся голый идентификатор.
	p = mapper.ProfileFromDTO(&UserProfileDTO{ID: "u-1"})
	assert.Equal(t, "u-1", p.DisplayName)

	assert.Equal(t, Profile{}, mapper.ProfileFromDTO(nil))
}

func TestMapper_ProfilesFromDTOs(t *testing.T) {
	mapper := NewMapper()

	profiles := mapper.ProfilesFromDTOs([]UserProfileDTO{
		{ID: "u-1", Login: "first"},
		{ID: "u-2", Login: "second"},
		{Login: "no-id-is-dropped"},
	})

	assert.Len(t, profiles, 2)
	assert.Equal(t, "first", profiles["u-1"].DisplayName)
	assert.Equal(t, "second", profiles["u-2"].DisplayName)
}

func TestFallbackProfile(t *testing.T) {
	p := FallbackProfile("u-42")
	assert.Equal(t, "u-42", p.UserID)
	assert.Equal(t, "u-42", p.DisplayName)
	assert.Empty(t, p.Login)
	assert.False(t, p.Active)
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		BurstSize:         3,
		WaitTimeout:       time.Second,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.TryAllow(), "request %d should pass", i)
	}
	assert.False(t, rl.TryAllow())
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1,
		WaitTimeout:       time.Second,
	})

	assert.True(t, rl.TryAllow())
	assert.False(t, rl.TryAllow())

	time.Sleep(10 * time.Millisecond)
	assert.True(t, rl.TryAllow())
}

func TestRateLimiter_MinInterval(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 100,
		BurstSize:         10,
		MinInterval:       time.Hour,
		WaitTimeout:       time.Second,
	})

	assert.True(t, rl.TryAllow())
	assert.False(t, rl.TryAllow())
}

func TestRateLimiter_AllowRespectsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         1,
		WaitTimeout:       time.Hour,
	})
	assert.True(t, rl.TryAllow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Allow(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter_RecordHitEmptiesBucket(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.RecordRateLimitHit(time.Minute)

	status := rl.Status()
	assert.Less(t, status.AvailableTokens, 1.0)
	assert.False(t, rl.TryAllow())

	rl.Reset()
	assert.True(t, rl.TryAllow())
}
