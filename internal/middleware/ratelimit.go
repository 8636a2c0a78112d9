// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/walleralexander/yamleditor/internal/ratelimit"
)

// maxLimiterEntries caps the limiter cache before it is reset wholesale.
const maxLimiterEntries = 10000

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// newLimiterCache creates a new limiter cache.
func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	// Unbounded growth guard: reset the whole cache rather than track LRU.
	if len(lc.limiters) > maxLimiterEntries {
		lc.limiters = make(map[K]*rate.Limiter)
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// RequestRateLimiter throttles requests per client IP with a token bucket.
// It sits in front of the persistent login attempt tracking and guards all
// unauthenticated endpoints against request floods.
type RequestRateLimiter struct {
	cache *limiterCache[string]
}

// NewRequestRateLimiter creates a per-IP rate limiter.
// rps is requests per second, burst is the maximum burst size.
func NewRequestRateLimiter(rps float64, burst int) *RequestRateLimiter {
	return &RequestRateLimiter{
		cache: newLimiterCache[string](rps, burst),
	}
}

// Middleware returns the rate limiting middleware for API routes (JSON errors).
func (rl *RequestRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ratelimit.ClientIP(r)
			if !rl.cache.get(ip).Allow() {
				slog.Warn("request rate limit exceeded", "ip", ip, "path", r.URL.Path)
				WriteJSONError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTMLMiddleware returns the rate limiting middleware for public HTML routes
// (plain text errors). Suitable for the login form endpoint.
func (rl *RequestRateLimiter) HTMLMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ratelimit.ClientIP(r)
			if !rl.cache.get(ip).Allow() {
				slog.Warn("public rate limit exceeded", "ip", ip, "path", r.URL.Path)
				http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
