// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ratelimit throttles repeated failed login attempts per source IP
// using a trailing-window counter backed by the login_attempts table, so
// lockouts survive process restarts.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/walleralexander/yamleditor/internal/store"
)

// Defaults matching the login lockout policy.
const (
	DefaultMaxAttempts = 5
	DefaultLockoutTime = 15 * time.Minute
	cleanupAge         = 24 * time.Hour
)

// Limiter counts failed attempts per IP within a trailing window.
// Reads and writes are not transactionally isolated; concurrent requests
// from one IP can slip past the check before either records its row. That
// is accepted — the limiter only needs to stop human-speed brute force.
type Limiter struct {
	queries     *store.Queries
	maxAttempts int
	lockoutTime time.Duration
}

// New creates a Limiter. Non-positive parameters fall back to the defaults.
func New(queries *store.Queries, maxAttempts int, lockoutTime time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockoutTime <= 0 {
		lockoutTime = DefaultLockoutTime
	}
	return &Limiter{
		queries:     queries,
		maxAttempts: maxAttempts,
		lockoutTime: lockoutTime,
	}
}

// MaxAttempts returns the configured attempt ceiling.
func (l *Limiter) MaxAttempts() int {
	return l.maxAttempts
}

// IsBlocked reports whether the IP has reached the attempt ceiling within
// the trailing lockout window. Storage errors propagate; a failing store
// must surface as an internal error, never as "not blocked".
func (l *Limiter) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := l.queries.CountFailedAttempts(ctx, ip, time.Now().Add(-l.lockoutTime))
	if err != nil {
		return false, err
	}
	return n >= l.maxAttempts, nil
}

// RemainingLockoutTime returns how long the IP stays blocked, measured from
// its most recent failed attempt. Zero when no qualifying attempt exists.
func (l *Limiter) RemainingLockoutTime(ctx context.Context, ip string) (time.Duration, error) {
	last, ok, err := l.queries.LastFailedAttempt(ctx, ip, time.Now().Add(-l.lockoutTime))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	remaining := time.Until(last.Add(l.lockoutTime))
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// RemainingAttempts returns how many failures are left before the IP is
// blocked.
func (l *Limiter) RemainingAttempts(ctx context.Context, ip string) (int, error) {
	n, err := l.queries.CountFailedAttempts(ctx, ip, time.Now().Add(-l.lockoutTime))
	if err != nil {
		return 0, err
	}
	remaining := l.maxAttempts - n
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// RecordFailure appends a failed attempt row for the IP.
func (l *Limiter) RecordFailure(ctx context.Context, ip, username string) error {
	return l.queries.InsertLoginAttempt(ctx, ip, username, time.Now(), false)
}

// RecordSuccess appends a success row and deletes all failed rows for the
// IP, resetting its window immediately.
func (l *Limiter) RecordSuccess(ctx context.Context, ip, username string) error {
	if err := l.queries.InsertLoginAttempt(ctx, ip, username, time.Now(), true); err != nil {
		return err
	}
	return l.queries.ClearFailedAttempts(ctx, ip)
}

// Cleanup removes attempt rows older than 24 hours. Callers invoke it
// opportunistically (around 1% of login requests) instead of from a
// background worker.
func (l *Limiter) Cleanup(ctx context.Context) (int64, error) {
	return l.queries.DeleteAttemptsBefore(ctx, time.Now().Add(-cleanupAge))
}

// ClientIP resolves the caller's IP: the first X-Forwarded-For entry when
// present, else the connection address. The forwarded header is trusted
// unconditionally, which is spoofable when the service is exposed without
// a trusted reverse proxy in front.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
