// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/walleralexander/yamleditor/internal/middleware"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db              *sql.DB
	sm              *scs.SessionManager
	filesDir        string
	sessionLifetime time.Duration
	startTime       time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *sql.DB, sm *scs.SessionManager, filesDir string, lifetime time.Duration) *HealthHandler {
	return &HealthHandler{
		db:              db,
		sm:              sm,
		filesDir:        filesDir,
		sessionLifetime: lifetime,
		startTime:       time.Now(),
	}
}

// healthCheck represents a single health check result.
type healthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health. Unauthenticated callers get only the overall
// status; authenticated ones get the per-check details.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase()
	filesCheck := h.checkFilesDir()

	status := "healthy"
	if dbCheck.Status != "healthy" || filesCheck.Status != "healthy" {
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if !h.isAuthenticated(r) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"checks": map[string]healthCheck{
			"database":  dbCheck,
			"files_dir": filesCheck,
		},
	})
}

// isAuthenticated reports whether the request carries a valid session.
// SCS panics when session data is not loaded into context, so recover.
func (h *HealthHandler) isAuthenticated(r *http.Request) (authenticated bool) {
	defer func() {
		if rec := recover(); rec != nil {
			authenticated = false
		}
	}()

	_, ok := middleware.CurrentUser(r.Context(), h.sm, h.sessionLifetime)
	return ok
}

// checkDatabase verifies database connectivity.
func (h *HealthHandler) checkDatabase() healthCheck {
	start := time.Now()
	err := h.db.Ping()
	latency := time.Since(start)

	if err != nil {
		return healthCheck{Status: "unhealthy", Message: err.Error(), Latency: latency.String()}
	}
	return healthCheck{Status: "healthy", Message: "Connected", Latency: latency.String()}
}

// checkFilesDir verifies the files directory exists and is a directory.
func (h *HealthHandler) checkFilesDir() healthCheck {
	info, err := os.Stat(h.filesDir)
	if err != nil {
		return healthCheck{Status: "unhealthy", Message: "Files directory not accessible: " + err.Error()}
	}
	if !info.IsDir() {
		return healthCheck{Status: "unhealthy", Message: "Files path is not a directory"}
	}
	return healthCheck{Status: "healthy", Message: "Accessible"}
}
