// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/walleralexander/yamleditor/internal/middleware"
)

// PagesHandler renders the editor and admin pages. Authentication is
// enforced by the surrounding middleware; the handlers only read the user
// from context and seed the CSRF token the page scripts send back.
type PagesHandler struct {
	sessionManager *scs.SessionManager
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(sm *scs.SessionManager) *PagesHandler {
	return &PagesHandler{sessionManager: sm}
}

// pageData feeds the editor and admin templates.
type pageData struct {
	User      middleware.SessionUser
	CSRFToken string
}

// Editor renders the main editor page at GET /.
func (h *PagesHandler) Editor(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "editor.html")
}

// Admin renders the user administration page at GET /admin.
func (h *PagesHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "admin.html")
}

func (h *PagesHandler) renderPage(w http.ResponseWriter, r *http.Request, name string) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := middleware.CSRFToken(r.Context(), h.sessionManager)
	if err != nil {
		slog.Error("issuing csrf token", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	renderTemplate(w, name, pageData{User: user, CSRFToken: token})
}
