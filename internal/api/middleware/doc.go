// Package middleware provides the HTTP middleware shared by the API and the
// viewer endpoint.
//
// CORS wraps gin-contrib/cors and exposes the trace headers. RateLimit keeps
// one token bucket per client IP and forgets clients that stay idle past
// IdleTTL; rejected requests get 429 with a Retry-After header.
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
