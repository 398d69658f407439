// Package middleware provides the HTTP middleware stack of the bridge server.
//
// Middleware stack includes:
//   - CORS: cross-origin access for browser clients
//   - RateLimit: per-IP token bucket rate limiting with idle eviction
//   - RequestID: UUID request identifiers echoed in X-Request-ID
//   - Logger: one zap line per request
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
