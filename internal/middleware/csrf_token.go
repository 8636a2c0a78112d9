// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/walleralexander/yamleditor/internal/session"
)

// CSRFHeader is the request header carrying the per-session token on
// state-mutating API calls.
const CSRFHeader = "X-CSRF-Token"

// csrfTokenBytes is the entropy of a generated token before hex encoding.
const csrfTokenBytes = 32

// CSRFToken returns the session's CSRF token, generating and storing one on
// first access. The same value is returned for the lifetime of the session.
func CSRFToken(ctx context.Context, sm *scs.SessionManager) (string, error) {
	if token := sm.GetString(ctx, session.KeyCSRFToken); token != "" {
		return token, nil
	}

	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	token := hex.EncodeToString(buf)
	sm.Put(ctx, session.KeyCSRFToken, token)
	return token, nil
}

// ValidateCSRFToken compares the supplied token against the session's token
// in constant time. False when either side is empty.
func ValidateCSRFToken(ctx context.Context, sm *scs.SessionManager, token string) bool {
	stored := sm.GetString(ctx, session.KeyCSRFToken)
	if stored == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1
}

// RequireCSRFToken rejects state-mutating requests whose X-CSRF-Token header
// does not match the session's token. Safe methods pass through unchecked.
func RequireCSRFToken(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if !ValidateCSRFToken(r.Context(), sm, r.Header.Get(CSRFHeader)) {
				slog.Warn("CSRF token validation failed",
					"method", r.Method,
					"path", r.URL.Path,
				)
				WriteJSONError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
