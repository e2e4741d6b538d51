package identity

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN TYPES AND MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// Profile is the resolved display profile used by the presentation layer.
type Profile struct {
	// UserID is the platform-wide user identifier.
	UserID string

	// Login is the unique username.
	Login string

	// DisplayName is the name to render. Never empty: falls back to
	// login, then to the raw ID.
	DisplayName string

	// AvatarURL is the profile picture URL (may be empty).
	AvatarURL string

	// Role is the platform role.
	Role string

	// Active indicates whether the account is active.
	Active bool
}

// FallbackProfile returns a degraded profile carrying only the raw ID.
// Used when the identity service is unavailable.
func FallbackProfile(userID string) Profile {
	return Profile{
		UserID:      userID,
		DisplayName: userID,
	}
}

// Mapper converts identity service DTOs to domain profiles.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ProfileFromDTO converts a UserProfileDTO to a Profile.
func (m *Mapper) ProfileFromDTO(dto *UserProfileDTO) Profile {
	if dto == nil {
		return Profile{}
	}

	displayName := dto.DisplayName
	if displayName == "" {
		displayName = dto.Login
	}
	if displayName == "" {
		displayName = dto.ID
	}

	return Profile{
		UserID:      dto.ID,
		Login:       dto.Login,
		DisplayName: displayName,
		AvatarURL:   dto.AvatarURL,
		Role:        dto.Role,
		Active:      dto.IsActive,
	}
}

// ProfilesFromDTOs converts a batch of DTOs to a map keyed by user ID.
func (m *Mapper) ProfilesFromDTOs(dtos []UserProfileDTO) map[string]Profile {
	profiles := make(map[string]Profile, len(dtos))
	for i := range dtos {
		p := m.ProfileFromDTO(&dtos[i])
		if p.UserID != "" {
			profiles[p.UserID] = p
		}
	}
	return profiles
}
