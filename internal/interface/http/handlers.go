package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/eduflip/eduflip-analytics/config"
	"github.com/eduflip/eduflip-analytics/internal/application/query"
	"github.com/eduflip/eduflip-analytics/internal/domain/leaderboard"
	"github.com/eduflip/eduflip-analytics/internal/domain/shared"
	"github.com/eduflip/eduflip-analytics/internal/interface/http/handlers"
	"github.com/eduflip/eduflip-analytics/pkg/logger"
)

// validate checks request parameter structs before they reach the query layer.
var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// SERVICE INFO AND PROBES
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "eduflip-analytics",
		"version": s.config.Version,
		"time":    time.Now().UTC(),
		"endpoints": []string{
			"GET /api/v1/students/{user_id}/courses/{course_id}/progress",
			"GET /api/v1/courses/{course_id}/analytics",
			"GET /api/v1/teachers/{teacher_id}/portfolio",
			"GET /api/v1/leaderboard",
		},
	})
}

// handleHealth returns the detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, r, code, status)
}

// handleReady is the Kubernetes readiness probe.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	if !status.Ready {
		s.writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the Kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// handleStudentProgress serves one student's progress summary for one course.
func (s *Server) handleStudentProgress(w http.ResponseWriter, r *http.Request) {
	q := query.GetStudentProgressQuery{
		UserID:   r.PathValue("user_id"),
		CourseID: r.PathValue("course_id"),
	}

	result, err := s.deps.StudentProgress.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}

// handleCourseAnalytics serves the aggregated analytics of one course.
// Omissions are part of the payload: a partial aggregate is still a 200.
func (s *Server) handleCourseAnalytics(w http.ResponseWriter, r *http.Request) {
	q := query.GetCourseAnalyticsQuery{
		CourseID:  r.PathValue("course_id"),
		SkipCache: s.skipCacheRequested(r),
	}

	result, err := s.deps.CourseAnalytics.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}

// handleTeacherPortfolio serves the cross-course portfolio of one teacher.
// Deadline expiry during aggregation yields a partial portfolio, not an error.
func (s *Server) handleTeacherPortfolio(w http.ResponseWriter, r *http.Request) {
	q := query.GetTeacherPortfolioQuery{
		TeacherID: r.PathValue("teacher_id"),
	}

	result, err := s.deps.TeacherPortfolio.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}

// leaderboardParams holds the parsed leaderboard query string.
type leaderboardParams struct {
	Year   int `validate:"omitempty,min=2000,max=2100"`
	Month  int `validate:"omitempty,min=1,max=12"`
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`
}

// handleLeaderboard serves the monthly ranking. Works without authentication;
// a valid bearer token additionally highlights the caller's own entry.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	requesterID := handlers.RequesterID(r.Context())

	if requesterID == "" && !s.featureEnabled(config.FeatureLeaderboardPublic, "") {
		s.writeJSONError(w, r, http.StatusUnauthorized,
			"authentication_required", "Public leaderboard is disabled")
		return
	}

	params := leaderboardParams{
		Year:   getQueryInt(r, "year", 0),
		Month:  getQueryInt(r, "month", 0),
		Limit:  getQueryInt(r, "limit", 0),
		Offset: getQueryInt(r, "offset", 0),
	}
	if err := validate.Struct(params); err != nil {
		s.writeJSONErrorWithDetails(w, r, http.StatusBadRequest,
			"validation_error", "Invalid query parameters", validationDetails(err))
		return
	}

	q := query.GetLeaderboardQuery{
		Year:      params.Year,
		Month:     params.Month,
		Limit:     params.Limit,
		Offset:    params.Offset,
		SkipCache: s.skipCacheRequested(r),
	}
	if s.featureEnabled(config.FeatureLeaderboardHighlight, requesterID) {
		q.RequesterID = requesterID
	}

	result, err := s.deps.Leaderboard.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, s.presenter.LeaderboardView(r.Context(), result))
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// invalidateRequest is the admin cache invalidation request body.
type invalidateRequest struct {
	// CourseID drops one course aggregate.
	CourseID string `json:"course_id" validate:"omitempty,max=128"`

	// Month drops one monthly ranking, format YYYY-MM.
	Month string `json:"month" validate:"omitempty,len=7"`
}

// handleAdminInvalidate drops cached aggregates so the next request
// recomputes them from events.
func (s *Server) handleAdminInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, r, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeJSONErrorWithDetails(w, r, http.StatusBadRequest,
			"validation_error", "Invalid request body", validationDetails(err))
		return
	}
	if req.CourseID == "" && req.Month == "" {
		s.writeJSONError(w, r, http.StatusBadRequest, "validation_error",
			"Either course_id or month is required")
		return
	}

	invalidated := make([]string, 0, 2)

	if req.CourseID != "" {
		if s.deps.CourseCache == nil {
			s.writeJSONError(w, r, http.StatusServiceUnavailable, "cache_unavailable", "Course cache is not configured")
			return
		}
		if err := s.deps.CourseCache.InvalidateCourseSummary(r.Context(), req.CourseID); err != nil {
			s.log.Error("course cache invalidation failed", logger.CourseID(req.CourseID), logger.Err(err))
			s.writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Cache invalidation failed")
			return
		}
		invalidated = append(invalidated, "course:"+req.CourseID)
	}

	if req.Month != "" {
		if s.deps.RankingCache == nil {
			s.writeJSONError(w, r, http.StatusServiceUnavailable, "cache_unavailable", "Ranking cache is not configured")
			return
		}
		window, err := leaderboard.ParseWindowKey(req.Month)
		if err != nil {
			s.writeJSONError(w, r, http.StatusBadRequest, "validation_error", "Month must be in YYYY-MM format")
			return
		}
		if err := s.deps.RankingCache.InvalidateRanking(r.Context(), window); err != nil {
			s.log.Error("ranking cache invalidation failed", logger.MonthKey(req.Month), logger.Err(err))
			s.writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Cache invalidation failed")
			return
		}
		invalidated = append(invalidated, "ranking:"+req.Month)
	}

	s.writeJSON(w, r, http.StatusOK, map[string]any{"invalidated": invalidated})
}

// handleAdminRunJob triggers a registered warm job immediately.
func (s *Server) handleAdminRunJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scheduler == nil {
		s.writeJSONError(w, r, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler is not running in this process")
		return
	}

	name := r.PathValue("name")
	result, err := s.deps.Scheduler.RunNow(r.Context(), name)
	if err != nil {
		s.writeJSONError(w, r, http.StatusNotFound, "job_not_found", err.Error())
		return
	}

	s.log.Info("job triggered via admin api", logger.String("job", name))
	s.writeJSON(w, r, http.StatusOK, result)
}

// handleAdminListJobs lists the registered jobs and their state.
func (s *Server) handleAdminListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scheduler == nil {
		s.writeJSONError(w, r, http.StatusServiceUnavailable, "scheduler_unavailable", "Scheduler is not running in this process")
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"jobs": s.deps.Scheduler.ListJobs()})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		s.writeJSONError(w, r, http.StatusBadRequest, "validation_error", err.Error())

	case shared.IsNotEnrolled(err):
		// Membership is checked before any calculation: a non-enrolled
		// student has no summary to serve.
		s.writeJSONError(w, r, http.StatusNotFound, "not_enrolled", err.Error())

	case shared.IsNotFound(err):
		s.writeJSONError(w, r, http.StatusNotFound, "not_found", err.Error())

	case shared.IsExternalService(err):
		s.log.Error("upstream failure", logger.String("path", r.URL.Path), logger.Err(err))
		s.writeJSONError(w, r, http.StatusServiceUnavailable, "service_unavailable",
			"A required upstream is unavailable")

	default:
		s.log.Error("unhandled error", logger.String("path", r.URL.Path), logger.Err(err))
		s.writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// validationDetails flattens validator errors into a field→rule map.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range vErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// skipCacheRequested honors ?fresh=true, but only when caching is enabled
// at all. With the cache feature off every request recomputes anyway.
func (s *Server) skipCacheRequested(r *http.Request) bool {
	if !s.featureEnabled(config.FeatureAnalyticsCache, "") {
		return true
	}
	return getQueryBool(r, "fresh")
}

func (s *Server) featureEnabled(name, userID string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabled(name, userID)
}
