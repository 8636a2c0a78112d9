// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/walleralexander/yamleditor/internal/files"
)

// FilesHandler serves the file CRUD API backed by the file store.
type FilesHandler struct {
	manager *files.Manager
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(manager *files.Manager) *FilesHandler {
	return &FilesHandler{manager: manager}
}

// Get handles GET /api/files. With a file query parameter it reads a single
// file, otherwise it lists all editable files.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("file"); name != "" {
		file, err := h.manager.Read(name)
		if err != nil {
			h.writeFileError(w, err)
			return
		}
		if file == nil {
			writeJSONError(w, http.StatusNotFound, "File not found")
			return
		}
		writeJSONData(w, file)
		return
	}

	list, err := h.manager.List()
	if err != nil {
		logAndInternalError(w, "listing files", "error", err)
		return
	}
	writeJSONData(w, list)
}

// Create handles POST /api/files.
func (h *FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	if err := h.manager.Create(req.Filename, req.Content); err != nil {
		h.writeFileError(w, err)
		return
	}

	slog.Info("file created", "filename", req.Filename)
	writeJSONMessage(w, "File created", nil)
}

// Update handles PUT /api/files. The prior content is snapshotted into the
// backup store before the overwrite.
func (h *FilesHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	if err := h.manager.Update(req.Filename, req.Content); err != nil {
		h.writeFileError(w, err)
		return
	}

	slog.Info("file updated", "filename", req.Filename)
	writeJSONMessage(w, "File saved", nil)
}

// Rename handles PATCH /api/files.
func (h *FilesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldName string `json:"oldName"`
		NewName string `json:"newName"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.OldName == "" || req.NewName == "" {
		writeJSONError(w, http.StatusBadRequest, "Both old and new filename are required")
		return
	}

	if err := h.manager.Rename(req.OldName, req.NewName); err != nil {
		h.writeFileError(w, err)
		return
	}

	slog.Info("file renamed", "from", req.OldName, "to", req.NewName)
	writeJSONMessage(w, "File renamed", nil)
}

// Delete handles DELETE /api/files?file=NAME.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	if err := h.manager.Delete(name); err != nil {
		h.writeFileError(w, err)
		return
	}

	slog.Info("file deleted", "filename", name)
	writeJSONMessage(w, "File deleted", nil)
}

// writeFileError maps the file store error taxonomy onto HTTP statuses.
// Permission errors keep their remediation hint; anything unexpected is a 500.
func (h *FilesHandler) writeFileError(w http.ResponseWriter, err error) {
	var permErr *files.PermissionError
	switch {
	case errors.Is(err, files.ErrInvalidName):
		writeJSONError(w, http.StatusBadRequest, "Invalid filename or extension")
	case errors.Is(err, files.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, files.ErrExists):
		writeJSONError(w, http.StatusConflict, "File already exists")
	case errors.As(err, &permErr):
		writeJSONError(w, http.StatusBadRequest, permErr.Error())
	default:
		logAndInternalError(w, "file operation failed", "error", err)
	}
}
