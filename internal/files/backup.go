// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupTimeLayout produces names like notes_2026-08-29_14-03-59.md.
const backupTimeLayout = "2006-01-02_15-04-05"

// backup snapshots the current content of path into the hidden backup
// directory and prunes excess snapshots for that filename. It is called
// before every overwrite.
func (m *Manager) backup(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading current content: %w", err)
	}

	backupDir := filepath.Join(m.basePath, BackupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	ts := time.Now().Format(backupTimeLayout)

	// Updates within the same second get a counter suffix so every update
	// produces its own snapshot.
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s_%s%s", stem, ts, ext))
	for i := 2; ; i++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		backupPath = filepath.Join(backupDir, fmt.Sprintf("%s_%s_%d%s", stem, ts, i, ext))
	}

	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}

	return m.pruneBackups(name)
}

// pruneBackups keeps only the maxBackups most recent snapshots for the
// given logical filename, deleting oldest-by-modification-time first.
func (m *Manager) pruneBackups(name string) error {
	backups, err := m.listBackups(name)
	if err != nil {
		return err
	}
	if len(backups) <= m.maxBackups {
		return nil
	}

	// Oldest first; names embed the creation timestamp, so they break ties
	// between snapshots written within the same second
	sort.Slice(backups, func(i, j int) bool {
		if backups[i].modTime.Equal(backups[j].modTime) {
			return backups[i].path < backups[j].path
		}
		return backups[i].modTime.Before(backups[j].modTime)
	})

	for _, b := range backups[:len(backups)-m.maxBackups] {
		if err := os.Remove(b.path); err != nil {
			return fmt.Errorf("pruning backup %s: %w", filepath.Base(b.path), err)
		}
	}
	return nil
}

type backupEntry struct {
	path    string
	modTime time.Time
}

// listBackups returns the backup snapshots belonging to the given logical
// filename. Names follow {stem}_{timestamp}{ext}; the timestamp suffix is
// length-checked so stems that prefix each other do not collide.
func (m *Manager) listBackups(name string) ([]backupEntry, error) {
	backupDir := filepath.Join(m.basePath, BackupDirName)
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	prefix := stem + "_"

	var backups []backupEntry
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		n := entry.Name()
		if !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ext) {
			continue
		}
		// The middle part is a timestamp, optionally followed by a
		// same-second counter suffix
		middle := strings.TrimSuffix(strings.TrimPrefix(n, prefix), ext)
		if len(middle) < len(backupTimeLayout) {
			continue
		}
		if _, err := time.Parse(backupTimeLayout, middle[:len(backupTimeLayout)]); err != nil {
			continue
		}
		if rest := middle[len(backupTimeLayout):]; rest != "" && !strings.HasPrefix(rest, "_") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stating backup %s: %w", n, err)
		}
		backups = append(backups, backupEntry{
			path:    filepath.Join(backupDir, n),
			modTime: fi.ModTime(),
		})
	}
	return backups, nil
}

// BackupCount returns the number of retained backups for a logical
// filename. Used by tests and the health endpoint.
func (m *Manager) BackupCount(name string) (int, error) {
	backups, err := m.listBackups(name)
	if err != nil {
		return 0, err
	}
	return len(backups), nil
}
