package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError("progress", "Calculate", ErrValidation, "bad input")
	assert.Equal(t, "progress.Calculate: bad input", err.Error())

	wrapped := WrapError("analytics", "Aggregate", ErrExternalService, "read failed", errors.New("db down"))
	assert.Equal(t, "analytics.Aggregate: read failed: db down", wrapped.Error())
}

func TestDomainError_Is(t *testing.T) {
	err := WrapError("query", "GetLeaderboard", ErrExternalService, "window read failed", errors.New("db down"))

	assert.ErrorIs(t, err, ErrExternalService)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestDomainError_UnwrapPrefersUnderlying(t *testing.T) {
	cause := errors.New("db down")
	err := WrapError("query", "Op", ErrExternalService, "failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))

	bare := NewDomainError("query", "Op", ErrNotFound, "missing")
	assert.Equal(t, ErrNotFound, errors.Unwrap(bare))
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(ErrCourseNotFound))
	assert.True(t, IsNotEnrolled(ErrUserNotEnrolled))
	assert.True(t, IsValidation(ErrInvalidUserID))
	assert.True(t, IsValidation(ErrInvalidThresholds))
	assert.True(t, IsExternalService(ErrIdentityUnavailable))
	assert.True(t, IsExternalService(ErrIdentityRateLimited))

	// Классификаторы не пересекаются.
	assert.False(t, IsValidation(ErrCourseNotFound))
	assert.False(t, IsNotFound(ErrInvalidUserID))
	assert.False(t, IsExternalService(ErrUserNotEnrolled))
}

func TestClassifiers_SurviveWrapping(t *testing.T) {
	err := WrapError("query", "GetStudentProgress", ErrNotFound, "course lookup failed", ErrCourseNotFound)
	assert.True(t, IsNotFound(err))

	err = WrapError("query", "GetCourseAnalytics", ErrExternalService, "events read failed", errors.New("pg: timeout"))
	assert.True(t, IsExternalService(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrServiceUnavailable))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.False(t, IsRetryable(ErrNotFound))
	assert.False(t, IsRetryable(ErrRateLimited))
}
