// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Authentication middleware (bearer tokens and admin API keys)
//   - Reusable middleware components
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("identity", handlers.NewIdentityCheck(identityClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Authentication
//
// Bearer tokens identify callers for the authenticated leaderboard view.
// Authentication is optional there: requests without a token get the public
// view, requests with a valid token additionally get their own entry
// highlighted.
//
//	bearer := handlers.NewBearerAuth(jwtSecret)
//	handler := bearer.OptionalMiddleware(leaderboardHandler)
//
// Admin endpoints are guarded by an API key checked against a bcrypt hash,
// so the plaintext key never lives in configuration:
//
//	admin := handlers.NewAdminKeyAuth("X-API-Key", bcryptHash)
//	protected := admin.Middleware(adminHandler)
//
// # Middleware
//
//	// Request timeout
//	withTimeout := handlers.TimeoutMiddleware(30 * time.Second)(myHandler)
//
//	// Security headers
//	secure := handlers.SecurityHeadersMiddleware(myHandler)
//
//	// Chain multiple middleware
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    admin.Middleware,
//	)
//
// # Best Practices
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
//   - Return detailed information for debugging
package handlers
