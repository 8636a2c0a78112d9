// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/walleralexander/yamleditor/web"
)

var templates = template.Must(template.ParseFS(web.Templates, "templates/*.html"))

// renderTemplate executes an embedded page template.
func renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
