// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/walleralexander/yamleditor/internal/auth"
	"github.com/walleralexander/yamleditor/internal/middleware"
	"github.com/walleralexander/yamleditor/internal/store"
)

// PasswordHandler serves the self-service password change endpoint.
type PasswordHandler struct {
	queries           *store.Queries
	passwordMinLength int
}

// NewPasswordHandler creates a new PasswordHandler.
func NewPasswordHandler(queries *store.Queries, passwordMinLength int) *PasswordHandler {
	return &PasswordHandler{queries: queries, passwordMinLength: passwordMinLength}
}

// Change handles POST /api/password. The current password must verify
// before the new one is accepted.
func (h *PasswordHandler) Change(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		writeJSONError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeJSONError(w, http.StatusBadRequest, "New passwords do not match")
		return
	}
	if err := auth.ValidatePasswordLength(req.NewPassword, h.passwordMinLength); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("New password must be at least %d characters", h.passwordMinLength))
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), sessionUser.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		logAndInternalError(w, "fetching user for password change", "error", err)
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		writeJSONError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		logAndInternalError(w, "hashing password", "error", err)
		return
	}
	if err := h.queries.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		logAndInternalError(w, "updating password", "error", err, "user_id", user.ID)
		return
	}

	slog.Info("password changed", "user_id", user.ID)
	writeJSONMessage(w, "Password changed successfully", nil)
}
