// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeJSONData writes a JSON success response carrying a data payload.
func writeJSONData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeJSONMessage writes a JSON success response carrying a human-readable
// message, optionally merged with extra top-level fields.
func writeJSONMessage(w http.ResponseWriter, message string, extra map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{
		"success": true,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSONBody decodes the request body into dst, answering a 400 on
// malformed input. Returns false if an error response was written.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// logAndInternalError logs an unexpected error and answers a generic 500
// without leaking internals.
func logAndInternalError(w http.ResponseWriter, msg string, args ...any) {
	slog.Error(msg, args...)
	writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
}
