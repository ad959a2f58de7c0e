// Package shield provides reusable HTTP security middleware: security
// headers, per-IP rate limiting, and body size limits.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxJSONBody(1 << 20))
//	rl := shield.NewRateLimiter(db, "/healthz")
//	rl.StartReloader(done)
//	r.Use(rl.Middleware)
package shield

import "net/http"

// DefaultStack returns the standard middleware stack for a public API:
// SecurityHeaders → MaxJSONBody → RateLimiter.
func DefaultStack(rl *RateLimiter) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(1 << 20),
		rl.Middleware,
	}
}
