// Package identity implements the identity service API client.
// The analytics engine uses it only for display enrichment: resolving user,
// course, and teacher IDs to human-readable profiles. Every call site must
// tolerate the service being down and fall back to bare IDs.
package identity

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse is the generic envelope returned by the identity service.
type APIResponse[T any] struct {
	// Success indicates whether the request succeeded.
	Success bool `json:"success"`

	// Data contains the response payload.
	Data T `json:"data"`

	// Error contains the error message if Success is false.
	Error string `json:"error,omitempty"`

	// Meta contains pagination metadata for list responses.
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// APIErrorDTO represents a structured error response.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("identity api error %s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("identity api error %s: %s", e.Code, e.Message)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROFILES
// ══════════════════════════════════════════════════════════════════════════════

// UserProfileDTO is the wire representation of a platform user.
type UserProfileDTO struct {
	// ID is the platform-wide user identifier.
	ID string `json:"id"`

	// Login is the unique username.
	Login string `json:"login"`

	// DisplayName is the preferred display name (may be empty).
	DisplayName string `json:"display_name"`

	// AvatarURL is the profile picture URL (may be empty).
	AvatarURL string `json:"avatar_url,omitempty"`

	// Role is the platform role (student, teacher, admin).
	Role string `json:"role"`

	// IsActive indicates whether the account is active.
	IsActive bool `json:"is_active"`

	// CreatedAt is the account creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// BatchProfilesRequestDTO is the request body for batch profile resolution.
type BatchProfilesRequestDTO struct {
	// IDs is the list of user IDs to resolve (max 100 per request).
	IDs []string `json:"ids"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE INFO
// ══════════════════════════════════════════════════════════════════════════════

// CourseInfoDTO is the wire representation of course display information.
type CourseInfoDTO struct {
	// ID is the course identifier.
	ID string `json:"id"`

	// Title is the course title.
	Title string `json:"title"`

	// TeacherID is the owning teacher's user ID.
	TeacherID string `json:"teacher_id"`

	// IsPublished indicates whether the course is visible to students.
	IsPublished bool `json:"is_published"`
}
