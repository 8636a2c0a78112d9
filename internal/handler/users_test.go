// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/walleralexander/yamleditor/internal/auth"
	"github.com/walleralexander/yamleditor/internal/model"
	"github.com/walleralexander/yamleditor/internal/store"
)

func newTestUsersHandler(t *testing.T) (*UsersHandler, *store.Queries) {
	t.Helper()

	q := store.New(testDB(t))
	return NewUsersHandler(q, "admin", 8), q
}

func TestUsersHandlerList(t *testing.T) {
	h, q := newTestUsersHandler(t)
	createTestUser(t, q, "admin", "admin-secret", model.RoleAdmin)
	createTestUser(t, q, "bob", "bob-secret-1", model.RoleUser)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	users := body["data"].([]any)
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	first := users[0].(map[string]any)
	if _, leaked := first["password"]; leaked {
		t.Error("list response leaks password hash")
	}
}

func TestUsersHandlerGetByID(t *testing.T) {
	h, q := newTestUsersHandler(t)
	id := createTestUser(t, q, "alice", "alice-secret", model.RoleUser)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/users?id=%d", id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	if data["username"] != "alice" {
		t.Errorf("username = %q, want alice", data["username"])
	}

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/users?id=999", nil))
	wantError(t, rec, http.StatusNotFound, "User not found")

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/users?id=abc", nil))
	wantError(t, rec, http.StatusBadRequest, "Invalid user ID")
}

func TestUsersHandlerExport(t *testing.T) {
	h, q := newTestUsersHandler(t)
	createTestUser(t, q, "admin", "admin-secret", model.RoleAdmin)
	createTestUser(t, q, "bob", "bob-secret-1", model.RoleUser)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/users?export=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="users_export_`) {
		t.Errorf("Content-Disposition = %q", disposition)
	}

	var doc struct {
		Version    string       `json:"version"`
		ExportedAt string       `json:"exported_at"`
		Users      []exportUser `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if doc.Version != "1.0" {
		t.Errorf("version = %q, want 1.0", doc.Version)
	}
	if doc.ExportedAt == "" {
		t.Error("exported_at is empty")
	}
	if len(doc.Users) != 2 {
		t.Fatalf("got %d users, want 2", len(doc.Users))
	}
	for _, u := range doc.Users {
		if !strings.HasPrefix(u.Password, "$2") {
			t.Errorf("export of %q misses the bcrypt hash: %q", u.Username, u.Password)
		}
	}
}

func TestUsersHandlerCreate(t *testing.T) {
	h, q := newTestUsersHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"username":"carol","password":"carol-secret","email":"carol@example.com","role":"user"}`))
	h.Create(rec, req)
	wantMessage(t, rec, "User created")

	user, err := q.GetUserByUsername(context.Background(), "carol")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if !auth.CheckPassword("carol-secret", user.PasswordHash) {
		t.Error("stored hash does not verify against the submitted password")
	}
	if user.Role != model.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
}

func TestUsersHandlerCreateDefaultsRole(t *testing.T) {
	h, q := newTestUsersHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"username":"dave","password":"dave-secret-1"}`))
	h.Create(rec, req)
	wantMessage(t, rec, "User created")

	user, err := q.GetUserByUsername(context.Background(), "dave")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("role = %q, want user", user.Role)
	}
}

func TestUsersHandlerCreateErrors(t *testing.T) {
	h, q := newTestUsersHandler(t)
	createTestUser(t, q, "taken", "taken-secret", model.RoleUser)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing username", `{"password":"secret-password"}`, http.StatusBadRequest, "Username and password are required"},
		{"missing password", `{"username":"x"}`, http.StatusBadRequest, "Username and password are required"},
		{"invalid role", `{"username":"x","password":"secret-password","role":"root"}`, http.StatusBadRequest, "Invalid role"},
		{"short password", `{"username":"x","password":"short"}`, http.StatusBadRequest, "Password must be at least 8 characters"},
		{"duplicate username", `{"username":"taken","password":"secret-password"}`, http.StatusConflict, "Username already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(tt.body)))
			wantError(t, rec, tt.status, tt.message)
		})
	}
}

func TestUsersHandlerImport(t *testing.T) {
	h, q := newTestUsersHandler(t)
	createTestUser(t, q, "existing", "existing-pw1", model.RoleUser)

	body := `{
		"import": true,
		"users": [
			{"username":"existing","password":"$2a$10$somehash","email":"e@example.com","role":"admin"},
			{"username":"fresh","password":"$2a$10$otherhash","email":"f@example.com","role":"user"},
			{"username":"","password":"x"},
			{"username":"badrole","password":"x","role":"root"}
		]
	}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env["imported"] != float64(1) {
		t.Errorf("imported = %v, want 1", env["imported"])
	}
	if env["skipped"] != float64(1) {
		t.Errorf("skipped = %v, want 1", env["skipped"])
	}
	msg := env["message"].(string)
	if !strings.Contains(msg, "1 user(s) imported") || !strings.Contains(msg, "1 skipped") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "Errors:") {
		t.Errorf("message misses error summary: %q", msg)
	}

	// The existing user was skipped, not overwritten.
	existing, err := q.GetUserByUsername(context.Background(), "existing")
	if err != nil {
		t.Fatal(err)
	}
	if existing.Role != model.RoleUser {
		t.Errorf("existing user role changed to %q without overwrite", existing.Role)
	}

	// The fresh user keeps its exported hash verbatim.
	fresh, err := q.GetUserByUsername(context.Background(), "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.PasswordHash != "$2a$10$otherhash" {
		t.Errorf("fresh hash = %q, want verbatim import", fresh.PasswordHash)
	}
}

func TestUsersHandlerImportOverwrite(t *testing.T) {
	h, q := newTestUsersHandler(t)
	createTestUser(t, q, "existing", "existing-pw1", model.RoleUser)

	body := `{
		"import": true,
		"overwrite": true,
		"users": [
			{"username":"existing","password":"$2a$10$newhash","email":"new@example.com","role":"admin"}
		]
	}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body)))
	wantMessage(t, rec, "1 user(s) imported")

	user, err := q.GetUserByUsername(context.Background(), "existing")
	if err != nil {
		t.Fatal(err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", user.Role)
	}
	if user.Email != "new@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.PasswordHash != "$2a$10$newhash" {
		t.Errorf("hash = %q, want verbatim overwrite", user.PasswordHash)
	}
}

func TestUsersHandlerUpdate(t *testing.T) {
	h, q := newTestUsersHandler(t)
	id := createTestUser(t, q, "erin", "erin-secret1", model.RoleUser)

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"id":%d,"email":"new@example.com","role":"admin","password":"fresh-secret"}`, id)
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(body)))
	wantMessage(t, rec, "User updated")

	user, err := q.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "new@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", user.Role)
	}
	if !auth.CheckPassword("fresh-secret", user.PasswordHash) {
		t.Error("new password does not verify")
	}
	if user.Username != "erin" {
		t.Errorf("username = %q, want unchanged", user.Username)
	}
}

func TestUsersHandlerUpdateEmptyPasswordKeepsOld(t *testing.T) {
	h, q := newTestUsersHandler(t)
	id := createTestUser(t, q, "frank", "frank-secret", model.RoleUser)

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"id":%d,"email":"f@example.com","password":""}`, id)
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(body)))
	wantMessage(t, rec, "User updated")

	user, err := q.GetUserByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !auth.CheckPassword("frank-secret", user.PasswordHash) {
		t.Error("old password no longer verifies")
	}
}

func TestUsersHandlerUpdateErrors(t *testing.T) {
	h, q := newTestUsersHandler(t)
	id := createTestUser(t, q, "grace", "grace-secret", model.RoleUser)
	createTestUser(t, q, "taken", "taken-secret", model.RoleUser)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing id", `{"email":"x@example.com"}`, http.StatusBadRequest, "User ID is required"},
		{"no fields", fmt.Sprintf(`{"id":%d}`, id), http.StatusBadRequest, "No fields to update"},
		{"empty username", fmt.Sprintf(`{"id":%d,"username":"  "}`, id), http.StatusBadRequest, "Username must not be empty"},
		{"username conflict", fmt.Sprintf(`{"id":%d,"username":"taken"}`, id), http.StatusConflict, "Username already exists"},
		{"invalid role", fmt.Sprintf(`{"id":%d,"role":"root"}`, id), http.StatusBadRequest, "Invalid role"},
		{"short password", fmt.Sprintf(`{"id":%d,"password":"short"}`, id), http.StatusBadRequest, "Password must be at least 8 characters"},
		{"unknown user", `{"id":999,"email":"x@example.com"}`, http.StatusNotFound, "User not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(tt.body)))
			wantError(t, rec, tt.status, tt.message)
		})
	}
}

func TestUsersHandlerUpdateUsernameToOwnName(t *testing.T) {
	h, q := newTestUsersHandler(t)
	id := createTestUser(t, q, "heidi", "heidi-secret", model.RoleUser)

	rec := httptest.NewRecorder()
	body := fmt.Sprintf(`{"id":%d,"username":"heidi","email":"h@example.com"}`, id)
	h.Update(rec, httptest.NewRequest(http.MethodPut, "/api/users", strings.NewReader(body)))
	wantMessage(t, rec, "User updated")
}

func TestUsersHandlerDelete(t *testing.T) {
	h, q := newTestUsersHandler(t)
	id := createTestUser(t, q, "ivan", "ivan-secret1", model.RoleUser)

	rec := httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/users?id=%d", id), nil))
	wantMessage(t, rec, "User deleted")

	if _, err := q.GetUserByID(context.Background(), id); err == nil {
		t.Error("user still present after delete")
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/users?id=%d", id), nil))
	wantError(t, rec, http.StatusNotFound, "User not found")

	rec = httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, "/api/users", nil))
	wantError(t, rec, http.StatusBadRequest, "User ID is required")
}

func TestUsersHandlerDeleteAdminProtected(t *testing.T) {
	h, q := newTestUsersHandler(t)
	adminID := createTestUser(t, q, "admin", "admin-secret", model.RoleAdmin)

	rec := httptest.NewRecorder()
	h.Delete(rec, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/users?id=%d", adminID), nil))
	wantError(t, rec, http.StatusBadRequest, "The admin user cannot be deleted")

	if _, err := q.GetUserByID(context.Background(), adminID); err != nil {
		t.Errorf("admin user vanished: %v", err)
	}
}
