package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/pkg/circuitbreaker"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
	"github.com/eduflip/eduflip-analytics/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// batchLimit is the maximum number of IDs the batch endpoint accepts.
const batchLimit = 100

// ClientConfig contains configuration for the identity API client.
type ClientConfig struct {
	// BaseURL is the identity service base URL
	BaseURL string

	// APIKey is the service-to-service API key
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *logger.Logger

	// Debug enables request-level debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           10 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the identity service API client.
// All calls go through a rate limiter, retrier, and circuit breaker so a
// degraded identity service never takes the analytics API down with it.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	log         *logger.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
	mapper      *Mapper
}

// NewClient creates a new identity API client.
func NewClient(config ClientConfig) *Client {
	log := config.Logger
	if log == nil {
		log = logger.Default()
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log:         log,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		retrier:     retry.IdentityRetrier(),
		mapper:      NewMapper(),
	}

	c.breaker = circuitbreaker.IdentityBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("identity circuit state changed",
			logger.Component(name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetProfile resolves a single user ID to a display profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	path := fmt.Sprintf("/api/v1/users/%s", url.PathEscape(userID))

	var response APIResponse[UserProfileDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("%w: %s", shared.ErrIdentityInvalidResponse, response.Error)
	}

	profile := c.mapper.ProfileFromDTO(&response.Data)
	return &profile, nil
}

// GetProfiles resolves a batch of user IDs to display profiles.
// IDs missing from the response are simply absent from the returned map:
// the caller decides how to degrade.
func (c *Client) GetProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	profiles := make(map[string]Profile, len(userIDs))

	for start := 0; start < len(userIDs); start += batchLimit {
		end := start + batchLimit
		if end > len(userIDs) {
			end = len(userIDs)
		}

		var response APIResponse[[]UserProfileDTO]
		body := BatchProfilesRequestDTO{IDs: userIDs[start:end]}
		if err := c.doRequest(ctx, http.MethodPost, "/api/v1/users/batch", body, &response); err != nil {
			return nil, fmt.Errorf("get profiles batch: %w", err)
		}

		if !response.Success {
			return nil, fmt.Errorf("%w: %s", shared.ErrIdentityInvalidResponse, response.Error)
		}

		for id, p := range c.mapper.ProfilesFromDTOs(response.Data) {
			profiles[id] = p
		}
	}

	return profiles, nil
}

// GetCourseInfo fetches display information for a course.
func (c *Client) GetCourseInfo(ctx context.Context, courseID string) (*CourseInfoDTO, error) {
	path := fmt.Sprintf("/api/v1/courses/%s", url.PathEscape(courseID))

	var response APIResponse[CourseInfoDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("get course info %s: %w", courseID, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("%w: %s", shared.ErrIdentityInvalidResponse, response.Error)
	}

	return &response.Data, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with rate limiting, retries, and circuit
// breaking. The breaker wraps the whole retry loop: a request that exhausts
// its retries counts as one failure.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("%w: %v", shared.ErrIdentityRateLimited, err))
			}

			err := c.doSingleRequest(ctx, method, path, body, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
				return retry.Retryable(err)
			}

			if isTransient(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})
	})
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.log.Debug("identity api request",
			logger.String("method", method),
			logger.String("path", path),
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("identity api error: status %d", resp.StatusCode)
	}

	// Unmarshal response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrIdentityInvalidResponse, err)
		}
	}

	return nil
}

// isTransient reports whether an error is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.Code == "SERVER_ERROR" || apiErr.Code == "TEMPORARILY_UNAVAILABLE"
	}

	errStr := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF", "status 5"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the identity service is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil
}

// ClientStatus contains the current status of the client.
type ClientStatus struct {
	RateLimiter  RateLimiterStatus
	CircuitState circuitbreaker.State
	IsHealthy    bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:  c.rateLimiter.Status(),
		CircuitState: c.breaker.State(),
		IsHealthy:    c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}
