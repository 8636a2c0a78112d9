// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package files

import (
	"errors"
	"fmt"
)

// Error taxonomy for file store operations. Handlers map these onto HTTP
// status codes at the API boundary.
var (
	// ErrInvalidName is returned when a filename is empty or its extension
	// is not on the allow-list.
	ErrInvalidName = errors.New("invalid filename")

	// ErrNotFound is returned when the target file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrExists is returned when a create or rename target already exists.
	ErrExists = errors.New("file already exists")
)

// PermissionError reports a filesystem permission problem together with a
// remediation hint naming the exact command to run on the host.
type PermissionError struct {
	Path string
	Hint string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("no write permission for %s. %s", e.Path, e.Hint)
}

// newPermissionError builds a PermissionError for the given directory.
func newPermissionError(dir string) *PermissionError {
	return &PermissionError{
		Path: dir,
		Hint: fmt.Sprintf("Run on the server: chmod u+w %s (or chown the directory to the service user)", dir),
	}
}
