// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, CSRF and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/walleralexander/yamleditor/internal/model"
	"github.com/walleralexander/yamleditor/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser is the context key holding the current session user.
const ContextKeyUser ContextKey = "user"

// SessionUser is the identity snapshot stored in the session at login.
type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin returns true if the session user has the admin role.
func (u SessionUser) IsAdmin() bool {
	return u.Role == model.RoleAdmin
}

// CurrentUser reads the session identity, enforcing the session lifetime
// lazily: a session older than lifetime is destroyed on this access and
// reported as absent. There is no background sweep.
func CurrentUser(ctx context.Context, sm *scs.SessionManager, lifetime time.Duration) (SessionUser, bool) {
	userID := sm.GetInt64(ctx, session.KeyUserID)
	loginTime := sm.GetInt64(ctx, session.KeyLoginTime)
	if userID == 0 || loginTime == 0 {
		return SessionUser{}, false
	}

	if time.Since(time.Unix(loginTime, 0)) > lifetime {
		if err := sm.Destroy(ctx); err != nil {
			slog.Error("destroying expired session", "error", err)
		}
		return SessionUser{}, false
	}

	return SessionUser{
		ID:       userID,
		Username: sm.GetString(ctx, session.KeyUsername),
		Role:     sm.GetString(ctx, session.KeyRole),
	}, true
}

// RequireLogin redirects unauthenticated requests to the login page.
// Intended for page handlers; API routes use RequireLoginJSON.
func RequireLogin(sm *scs.SessionManager, lifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context(), sm, lifetime)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireLoginJSON rejects unauthenticated requests with a 401 JSON body.
func RequireLoginJSON(sm *scs.SessionManager, lifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context(), sm, lifetime)
			if !ok {
				WriteJSONError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireAdminJSON rejects non-admin users with a 403 JSON body. Must run
// after one of the RequireLogin middlewares.
func RequireAdminJSON() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteJSONError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !user.IsAdmin() {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
				)
				WriteJSONError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin redirects unauthenticated users to login and answers 403 for
// authenticated non-admins. For page handlers.
func RequireAdmin(sm *scs.SessionManager, lifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context(), sm, lifetime)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !user.IsAdmin() {
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func withUser(ctx context.Context, user SessionUser) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// UserFromContext retrieves the session user placed by the auth middleware.
func UserFromContext(ctx context.Context) (SessionUser, bool) {
	user, ok := ctx.Value(ContextKeyUser).(SessionUser)
	return user, ok
}
