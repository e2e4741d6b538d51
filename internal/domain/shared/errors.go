// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound    = errors.New("entity not found")
	ErrNotEnrolled = errors.New("user not enrolled")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrFutureTimestamp = errors.New("timestamp cannot be in the future")
	ErrInvalidFormat   = errors.New("invalid format")

	// Aggregation errors
	ErrPartialResult = errors.New("partial result")
	ErrExpired       = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "analytics", "leaderboard"
	Op      string // Operation that failed, e.g., "Calculate", "Aggregate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrCourseNotFound    = NewDomainError("progress", "Find", ErrNotFound, "course not found")
	ErrUserNotEnrolled   = NewDomainError("progress", "Calculate", ErrNotEnrolled, "user is not enrolled in the course")
	ErrInvalidUserID     = NewDomainError("progress", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidCourseID   = NewDomainError("progress", "Validate", ErrInvalidID, "invalid course ID")
	ErrInvalidQuizScore  = NewDomainError("progress", "Validate", ErrValueOutOfRange, "quiz score out of range")
	ErrInvalidEventTime  = NewDomainError("progress", "Validate", ErrFutureTimestamp, "event timestamp is in the future")
	ErrInvalidThresholds = NewDomainError("progress", "Validate", ErrInvalidInput, "participation thresholds must be ascending")
)

// Analytics domain errors
var (
	ErrTeacherNotFound   = NewDomainError("analytics", "Find", ErrNotFound, "teacher not found")
	ErrAggregationFailed = NewDomainError("analytics", "Aggregate", ErrPartialResult, "aggregation completed with omissions")
	ErrDeadlineExceeded  = NewDomainError("analytics", "Aggregate", ErrTimeout, "aggregation deadline exceeded")
)

// Leaderboard domain errors
var (
	ErrInvalidMonth       = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid year or month")
	ErrInvalidWeights     = NewDomainError("leaderboard", "Validate", ErrNegativeValue, "score weights cannot be negative")
	ErrRankingUnavailable = NewDomainError("leaderboard", "Compute", ErrServiceUnavailable, "ranking temporarily unavailable")
)

// External service errors
var (
	ErrIdentityUnavailable     = NewDomainError("identity", "Request", ErrServiceUnavailable, "identity service is unavailable")
	ErrIdentityRateLimited     = NewDomainError("identity", "Request", ErrRateLimited, "identity service rate limit exceeded")
	ErrIdentityTimeout         = NewDomainError("identity", "Request", ErrTimeout, "identity service request timeout")
	ErrIdentityInvalidResponse = NewDomainError("identity", "Parse", ErrInvalidFormat, "invalid response from identity service")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotEnrolled checks if the error is a "not enrolled" error.
func IsNotEnrolled(err error) bool {
	return errors.Is(err, ErrNotEnrolled)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
