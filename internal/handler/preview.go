// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"net/http"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// htmlSanitizer strips script tags, event handlers and other dangerous
// markup from rendered previews while keeping safe formatting.
var htmlSanitizer = bluemonday.UGCPolicy()

// PreviewHandler renders Markdown content to sanitized HTML for the editor's
// live preview pane.
type PreviewHandler struct{}

// NewPreviewHandler creates a new PreviewHandler.
func NewPreviewHandler() *PreviewHandler {
	return &PreviewHandler{}
}

// Render handles POST /api/preview {content}.
func (h *PreviewHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(req.Content), &buf); err != nil {
		logAndInternalError(w, "rendering markdown preview", "error", err)
		return
	}

	writeJSONData(w, map[string]any{
		"html": htmlSanitizer.Sanitize(buf.String()),
	})
}
