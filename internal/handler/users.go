// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/walleralexander/yamleditor/internal/auth"
	"github.com/walleralexander/yamleditor/internal/model"
	"github.com/walleralexander/yamleditor/internal/store"
)

// UsersHandler serves the admin-only user management API: CRUD plus JSON
// export and import.
type UsersHandler struct {
	queries           *store.Queries
	adminUsername     string
	passwordMinLength int
}

// NewUsersHandler creates a new UsersHandler. adminUsername names the seeded
// administrator account, which can never be deleted.
func NewUsersHandler(queries *store.Queries, adminUsername string, passwordMinLength int) *UsersHandler {
	return &UsersHandler{
		queries:           queries,
		adminUsername:     adminUsername,
		passwordMinLength: passwordMinLength,
	}
}

// exportUser is the wire shape of one user in an export document. Unlike the
// API responses it carries the password hash so an import can restore
// accounts without resetting credentials.
type exportUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// userPayload is the union body of POST /api/users: either a single new user
// or a bulk import of previously exported users.
type userPayload struct {
	Import    bool         `json:"import"`
	Users     []exportUser `json:"users"`
	Overwrite bool         `json:"overwrite"`

	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Get handles GET /api/users, /api/users?id=N and /api/users?export=1.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("export") {
		h.export(w, r)
		return
	}

	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil || id <= 0 {
			writeJSONError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}
		user, err := h.queries.GetUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeJSONError(w, http.StatusNotFound, "User not found")
				return
			}
			logAndInternalError(w, "fetching user", "error", err, "id", id)
			return
		}
		writeJSONData(w, user)
		return
	}

	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "listing users", "error", err)
		return
	}
	writeJSONData(w, users)
}

// export emits a downloadable JSON document including password hashes.
func (h *UsersHandler) export(w http.ResponseWriter, r *http.Request) {
	users, err := h.queries.ListUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "exporting users", "error", err)
		return
	}

	doc := map[string]any{
		"version":     "1.0",
		"exported_at": time.Now().Format("2006-01-02 15:04:05"),
		"users":       toExportUsers(users),
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logAndInternalError(w, "encoding user export", "error", err)
		return
	}

	filename := "users_export_" + time.Now().Format("2006-01-02_150405") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(body)

	slog.Info("users exported", "count", len(users))
}

func toExportUsers(users []model.User) []exportUser {
	out := make([]exportUser, 0, len(users))
	for _, u := range users {
		out = append(out, exportUser{
			ID:        u.ID,
			Username:  u.Username,
			Password:  u.PasswordHash,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
			UpdatedAt: u.UpdatedAt,
		})
	}
	return out
}

// Create handles POST /api/users: either a single new user or, when the body
// carries import:true, a bulk import with per-row upsert-or-skip policy.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Import && req.Users != nil {
		h.importUsers(w, r, req)
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	if username == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if !model.IsValidRole(role) {
		writeJSONError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	if err := auth.ValidatePasswordLength(req.Password, h.passwordMinLength); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", h.passwordMinLength))
		return
	}

	if _, err := h.queries.GetUserByUsername(r.Context(), username); err == nil {
		writeJSONError(w, http.StatusConflict, "Username already exists")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, "checking username", "error", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logAndInternalError(w, "hashing password", "error", err)
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		logAndInternalError(w, "creating user", "error", err)
		return
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username)
	writeJSONMessage(w, "User created", nil)
}

// importUsers restores accounts from an export document. Passwords arrive
// pre-hashed and are stored verbatim. Existing usernames are overwritten or
// skipped depending on the overwrite flag; row errors are aggregated rather
// than aborting the batch.
func (h *UsersHandler) importUsers(w http.ResponseWriter, r *http.Request, req userPayload) {
	var imported, skipped int
	var rowErrors []string

	for _, row := range req.Users {
		username := strings.TrimSpace(row.Username)
		if username == "" {
			rowErrors = append(rowErrors, "(missing username)")
			continue
		}
		role := row.Role
		if role == "" {
			role = model.RoleUser
		}
		if !model.IsValidRole(role) {
			rowErrors = append(rowErrors, username+": invalid role")
			continue
		}

		existing, err := h.queries.GetUserByUsername(r.Context(), username)
		switch {
		case err == nil:
			if !req.Overwrite {
				skipped++
				continue
			}
			p := store.UpdateUserParams{ID: existing.ID}
			p.Username = &username
			p.Email = &row.Email
			p.Role = &role
			if row.Password != "" {
				p.PasswordHash = &row.Password
			}
			if err := h.queries.UpdateUser(r.Context(), p); err != nil {
				rowErrors = append(rowErrors, username+": "+err.Error())
				continue
			}
			imported++
		case errors.Is(err, sql.ErrNoRows):
			now := time.Now()
			if _, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
				Username:     username,
				PasswordHash: row.Password,
				Email:        row.Email,
				Role:         role,
				CreatedAt:    now,
				UpdatedAt:    now,
			}); err != nil {
				rowErrors = append(rowErrors, username+": "+err.Error())
				continue
			}
			imported++
		default:
			rowErrors = append(rowErrors, username+": "+err.Error())
		}
	}

	message := fmt.Sprintf("%d user(s) imported", imported)
	if skipped > 0 {
		message += fmt.Sprintf(", %d skipped", skipped)
	}
	if len(rowErrors) > 0 {
		message += ". Errors: " + strings.Join(rowErrors, ", ")
	}

	slog.Info("users imported", "imported", imported, "skipped", skipped, "errors", len(rowErrors))
	writeJSONMessage(w, message, map[string]any{
		"imported": imported,
		"skipped":  skipped,
	})
}

// Update handles PUT /api/users: a partial update where only the supplied
// fields change. An empty password field leaves the password untouched.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       int64   `json:"id"`
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
		Password *string `json:"password"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.ID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	p := store.UpdateUserParams{ID: req.ID}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			writeJSONError(w, http.StatusBadRequest, "Username must not be empty")
			return
		}
		if existing, err := h.queries.GetUserByUsername(r.Context(), username); err == nil && existing.ID != req.ID {
			writeJSONError(w, http.StatusConflict, "Username already exists")
			return
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			logAndInternalError(w, "checking username", "error", err)
			return
		}
		p.Username = &username
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		p.Email = &email
	}
	if req.Role != nil {
		if !model.IsValidRole(*req.Role) {
			writeJSONError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		p.Role = req.Role
	}
	if req.Password != nil && *req.Password != "" {
		if err := auth.ValidatePasswordLength(*req.Password, h.passwordMinLength); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", h.passwordMinLength))
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			logAndInternalError(w, "hashing password", "error", err)
			return
		}
		p.PasswordHash = &hash
	}

	if p.Username == nil && p.Email == nil && p.Role == nil && p.PasswordHash == nil {
		writeJSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	if err := h.queries.UpdateUser(r.Context(), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		logAndInternalError(w, "updating user", "error", err, "id", req.ID)
		return
	}

	slog.Info("user updated", "user_id", req.ID)
	writeJSONMessage(w, "User updated", nil)
}

// Delete handles DELETE /api/users?id=N. The seeded admin account is
// protected from deletion.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	user, err := h.queries.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		logAndInternalError(w, "fetching user", "error", err, "id", id)
		return
	}
	if user.Username == h.adminUsername {
		writeJSONError(w, http.StatusBadRequest, "The admin user cannot be deleted")
		return
	}

	if err := h.queries.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		logAndInternalError(w, "deleting user", "error", err, "id", id)
		return
	}

	slog.Info("user deleted", "user_id", id, "username", user.Username)
	writeJSONMessage(w, "User deleted", nil)
}
