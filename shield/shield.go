// Package shield provides the HTTP middleware in front of the clipboard
// endpoint: security headers, body limits, request IDs, per-IP rate
// limiting and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	stack, rl := shield.Stack(shield.Config{MaxBody: 64 << 20})
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
//	if rl != nil {
//	    go rl.Run(ctx)
//	}
package shield

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/clipbridge/clock"
)

// Config selects and tunes the middleware of Stack.
type Config struct {
	Headers HeaderConfig

	// MaxBody caps every request body. Zero disables the cap.
	MaxBody int64

	// RateLimit is the per-IP budget for the clipboard endpoint. A zero
	// MaxRequests disables rate limiting.
	RateLimit RateLimitConfig

	// Exclude lists path prefixes that bypass rate limiting.
	Exclude []string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Stack returns the middleware chain in order:
// HeadToGet → SecurityHeaders → MaxBody → RequestID → RateLimiter.
// The returned limiter is nil when rate limiting is disabled.
func Stack(cfg Config) ([]func(http.Handler) http.Handler, *RateLimiter) {
	if cfg.Headers == (HeaderConfig{}) {
		cfg.Headers = DefaultHeaders()
	}
	stack := []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(cfg.Headers),
		MaxBody(cfg.MaxBody),
		RequestID(cfg.Logger),
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		return stack, nil
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	rl := NewRateLimiter(cfg.RateLimit, cfg.Clock, cfg.Exclude...)
	return append(stack, rl.Middleware), rl
}
