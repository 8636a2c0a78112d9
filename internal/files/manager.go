// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package files implements CRUD over a restricted directory of text files
// with extension allow-listing, path traversal defense, content
// normalization and rolling backups.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupDirName is the hidden subdirectory holding rolling backups.
const BackupDirName = ".backups"

// DefaultMaxBackups is the number of backups retained per file when the
// configuration does not override it.
const DefaultMaxBackups = 15

// Info describes one editable file.
type Info struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Type     string    `json:"type"`
}

// File is the read result: name, content and derived type tag.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Manager owns the on-disk directory tree rooted at its base path. All
// operations are confined to that directory; only base filenames are ever
// used, so path traversal input degrades to a lookup in the base directory.
//
// Concurrent updates to the same filename are last-writer-wins. There is no
// lock file or concurrency token; the deployment target is a small team
// with low write concurrency.
type Manager struct {
	basePath    string
	allowedExts map[string]bool
	maxBackups  int
}

// NewManager creates a Manager rooted at basePath. The base directory is
// created if absent, but its parent must already exist.
func NewManager(basePath string, allowedExts []string, maxBackups int) (*Manager, error) {
	if maxBackups <= 0 {
		maxBackups = DefaultMaxBackups
	}

	exts := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		exts[strings.ToLower(ext)] = true
	}

	if _, err := os.Stat(filepath.Dir(basePath)); err != nil {
		return nil, fmt.Errorf("parent of files directory %s: %w", basePath, err)
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating files directory: %w", err)
	}

	return &Manager{
		basePath:    basePath,
		allowedExts: exts,
		maxBackups:  maxBackups,
	}, nil
}

// BasePath returns the directory the manager is rooted at.
func (m *Manager) BasePath() string {
	return m.basePath
}

// extension returns the lowercased extension of name without the dot.
func extension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.ToLower(ext)
}

// FileType derives the editor type tag from the filename extension.
func FileType(name string) string {
	switch extension(name) {
	case "yaml", "yml":
		return "yaml"
	case "md", "markdown":
		return "markdown"
	case "json":
		return "json"
	default:
		return "text"
	}
}

// securePath strips any directory component from the supplied name and
// checks the extension allow-list. Traversal attempts are neutralized, not
// rejected: "../../etc/passwd" resolves to "passwd" inside the base
// directory and then fails the extension check.
func (m *Manager) securePath(filename string) (string, error) {
	base := filepath.Base(filepath.ToSlash(filename))
	if base == "." || base == ".." || base == "" || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	if !m.allowedExts[extension(base)] {
		return "", fmt.Errorf("%w: extension %q not allowed", ErrInvalidName, extension(base))
	}
	return filepath.Join(m.basePath, base), nil
}

// List returns all editable files directly inside the base directory,
// sorted case-insensitively by name. The hidden backups directory and any
// nested directories are excluded.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		return nil, fmt.Errorf("reading files directory: %w", err)
	}

	files := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !m.allowedExts[extension(entry.Name())] {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stating %s: %w", entry.Name(), err)
		}
		files = append(files, Info{
			Name:     entry.Name(),
			Size:     fi.Size(),
			Modified: fi.ModTime(),
			Type:     FileType(entry.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})

	return files, nil
}

// Read returns the file content, or nil if the name does not resolve or the
// file does not exist. Absence is not an error; callers render a 404.
func (m *Manager) Read(filename string) (*File, error) {
	path, err := m.securePath(filename)
	if err != nil {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	return &File{
		Name:    filepath.Base(path),
		Content: string(content),
		Type:    FileType(path),
	}, nil
}

// Create writes a new file. The target must not already exist. Content is
// normalized before the write.
func (m *Manager) Create(filename, content string) error {
	path, err := m.securePath(filename)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, filepath.Base(path))
	}

	if !m.isWritable() {
		return newPermissionError(m.basePath)
	}

	return m.writeAtomic(path, NormalizeContent(content))
}

// Update overwrites an existing file. The prior on-disk content is
// snapshotted into the backup store before the write and excess backups are
// pruned synchronously.
func (m *Manager) Update(filename, content string) error {
	path, err := m.securePath(filename)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return fmt.Errorf("stating %s: %w", filepath.Base(path), err)
	}

	if !m.isWritable() {
		return newPermissionError(m.basePath)
	}

	if err := m.backup(path); err != nil {
		return fmt.Errorf("backing up %s: %w", filepath.Base(path), err)
	}

	return m.writeAtomic(path, NormalizeContent(content))
}

// Rename moves a file to a new name. Both names are validated
// independently; the old file must exist and the new one must not.
func (m *Manager) Rename(oldName, newName string) error {
	oldPath, err := m.securePath(oldName)
	if err != nil {
		return err
	}
	newPath, err := m.securePath(newName)
	if err != nil {
		return err
	}

	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(oldPath))
		}
		return fmt.Errorf("stating %s: %w", filepath.Base(oldPath), err)
	}
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, filepath.Base(newPath))
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", filepath.Base(oldPath), filepath.Base(newPath), err)
	}
	return nil
}

// Delete removes a file.
func (m *Manager) Delete(filename string) error {
	path, err := m.securePath(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return fmt.Errorf("deleting %s: %w", filepath.Base(path), err)
	}
	return nil
}

// isWritable probes the base directory for write permission.
func (m *Manager) isWritable() bool {
	probe, err := os.CreateTemp(m.basePath, ".writecheck-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return true
}

// writeAtomic replaces the file content via a temp file and rename, so a
// failed write never leaves a partially written target behind.
func (m *Manager) writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(m.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting permissions on %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
