// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/walleralexander/yamleditor/internal/files"
)

// ValidateHandler checks file content for syntax errors before saving. Only
// YAML and JSON have a meaningful syntax check; other types always pass.
type ValidateHandler struct{}

// NewValidateHandler creates a new ValidateHandler.
func NewValidateHandler() *ValidateHandler {
	return &ValidateHandler{}
}

// Check handles POST /api/validate {filename, content}.
func (h *ValidateHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Filename == "" {
		writeJSONError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	result := map[string]any{
		"filename": req.Filename,
		"type":     files.FileType(req.Filename),
		"valid":    true,
	}

	switch files.FileType(req.Filename) {
	case "yaml":
		var doc any
		if err := yaml.Unmarshal([]byte(req.Content), &doc); err != nil {
			result["valid"] = false
			result["error"] = err.Error()
		}
	case "json":
		if len(req.Content) > 0 && !json.Valid([]byte(req.Content)) {
			result["valid"] = false
			result["error"] = "invalid JSON syntax"
		}
	}

	writeJSONData(w, result)
}
