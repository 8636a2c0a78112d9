// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/walleralexander/yamleditor/internal/auth"
	"github.com/walleralexander/yamleditor/internal/middleware"
	"github.com/walleralexander/yamleditor/internal/ratelimit"
	"github.com/walleralexander/yamleditor/internal/session"
	"github.com/walleralexander/yamleditor/internal/store"
)

// AuthHandler handles the login and logout routes and the session endpoint.
type AuthHandler struct {
	queries         *store.Queries
	sessionManager  *scs.SessionManager
	limiter         *ratelimit.Limiter
	sessionLifetime time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(queries *store.Queries, sm *scs.SessionManager, limiter *ratelimit.Limiter, lifetime time.Duration) *AuthHandler {
	return &AuthHandler{
		queries:         queries,
		sessionManager:  sm,
		limiter:         limiter,
		sessionLifetime: lifetime,
	}
}

// loginPageData feeds the login template.
type loginPageData struct {
	Error    string
	Username string
	Blocked  bool
}

// LoginForm renders the login page. Already-authenticated users are
// redirected to the editor.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.CurrentUser(r.Context(), h.sessionManager, h.sessionLifetime); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	blocked, err := h.limiter.IsBlocked(r.Context(), ratelimit.ClientIP(r))
	if err != nil {
		slog.Error("rate limiter check failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	renderTemplate(w, "login.html", loginPageData{Blocked: blocked})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Opportunistic cleanup of stale attempt rows on ~1% of requests, in
	// place of a background worker.
	if rand.IntN(100) == 0 {
		if n, err := h.limiter.Cleanup(r.Context()); err != nil {
			slog.Error("login attempt cleanup failed", "error", err)
		} else if n > 0 {
			slog.Debug("cleaned up stale login attempts", "deleted", n)
		}
	}

	if err := r.ParseForm(); err != nil {
		renderTemplate(w, "login.html", loginPageData{Error: "Invalid form data"})
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	ip := ratelimit.ClientIP(r)

	blocked, err := h.limiter.IsBlocked(r.Context(), ip)
	if err != nil {
		slog.Error("rate limiter check failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if blocked {
		remaining, err := h.limiter.RemainingLockoutTime(r.Context(), ip)
		if err != nil {
			slog.Error("rate limiter check failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		minutes := int(remaining.Minutes()) + 1
		renderTemplate(w, "login.html", loginPageData{
			Error:   fmt.Sprintf("Too many failed attempts. Please wait %d minute(s).", minutes),
			Blocked: true,
		})
		return
	}

	if username == "" || password == "" {
		renderTemplate(w, "login.html", loginPageData{
			Error:    "Please enter username and password",
			Username: username,
		})
		return
	}

	user, err := h.queries.GetUserByUsername(r.Context(), username)
	valid := err == nil && auth.CheckPassword(password, user.PasswordHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Error("database error during login", "error", err)
	}

	if !valid {
		// Identical handling for unknown user and wrong password so the
		// response does not leak which one it was.
		slog.Debug("failed login attempt", "username", username, "ip", ip)
		if err := h.limiter.RecordFailure(r.Context(), ip, username); err != nil {
			slog.Error("recording failed login attempt", "error", err)
		}
		remaining, err := h.limiter.RemainingAttempts(r.Context(), ip)
		if err != nil {
			slog.Error("rate limiter check failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := loginPageData{Username: username}
		if remaining > 0 {
			data.Error = fmt.Sprintf("Invalid username or password. %d attempt(s) remaining.", remaining)
		} else {
			data.Error = "Too many failed attempts. Please wait 15 minutes."
			data.Blocked = true
		}
		renderTemplate(w, "login.html", data)
		return
	}

	if err := h.limiter.RecordSuccess(r.Context(), ip, username); err != nil {
		slog.Error("recording successful login", "error", err)
	}

	// Regenerate the session ID so a pre-login session identifier never
	// becomes an authenticated one (session fixation).
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("session renewal error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.sessionManager.Put(r.Context(), session.KeyUserID, user.ID)
	h.sessionManager.Put(r.Context(), session.KeyUsername, user.Username)
	h.sessionManager.Put(r.Context(), session.KeyRole, user.Role)
	h.sessionManager.Put(r.Context(), session.KeyLoginTime, time.Now().Unix())

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session unconditionally and returns to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), session.KeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	if userID > 0 {
		slog.Info("user logged out", "user_id", userID)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Session handles GET /api/session: the current identity plus the CSRF token
// the client must send on mutating API calls.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	token, err := middleware.CSRFToken(r.Context(), h.sessionManager)
	if err != nil {
		logAndInternalError(w, "issuing csrf token", "error", err)
		return
	}

	writeJSONData(w, map[string]any{
		"user":       user,
		"csrf_token": token,
	})
}
