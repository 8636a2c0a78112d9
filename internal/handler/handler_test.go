// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/walleralexander/yamleditor/internal/auth"
	"github.com/walleralexander/yamleditor/internal/middleware"
	"github.com/walleralexander/yamleditor/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "yamleditor-handler-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

func createTestUser(t *testing.T, q *store.Queries, username, password, role string) int64 {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now()
	user, err := q.CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		Email:        username + "@example.com",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return user.ID
}

// asUser attaches a session user the way the auth middleware would.
func asUser(r *http.Request, id int64, username, role string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, middleware.SessionUser{
		ID:       id,
		Username: username,
		Role:     role,
	})
	return r.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] != message {
		t.Errorf("error = %q, want %q", body["error"], message)
	}
}

func wantMessage(t *testing.T, rec *httptest.ResponseRecorder, message string) map[string]any {
	t.Helper()

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["message"] != message {
		t.Errorf("message = %q, want %q", body["message"], message)
	}
	return body
}
