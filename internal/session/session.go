// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the server-side session manager.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Keys for values stored in the session.
const (
	KeyUserID    = "user_id"
	KeyUsername  = "username"
	KeyRole      = "role"
	KeyLoginTime = "login_time"
	KeyCSRFToken = "csrf_token"
)

// New creates a session manager backed by the sessions table in the given
// database. lifetime bounds how long a login stays valid; the login_time
// check in the auth middleware enforces the same bound lazily, matching
// cookie and server-side state.
func New(db *sql.DB, lifetime time.Duration, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)
	sm.Lifetime = lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only
	return sm
}
