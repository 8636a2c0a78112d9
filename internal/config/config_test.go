// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const testSecret = "test-secret-key-that-is-long-enough!"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EDITOR_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/editor.db" {
		t.Errorf("DBPath = %q, want ./data/editor.db", cfg.DBPath)
	}
	if cfg.FilesDir != "./data/files" {
		t.Errorf("FilesDir = %q, want ./data/files", cfg.FilesDir)
	}
	if cfg.SessionLifetime != 3600 {
		t.Errorf("SessionLifetime = %d, want 3600", cfg.SessionLifetime)
	}
	if cfg.MaxLoginAttempts != 5 {
		t.Errorf("MaxLoginAttempts = %d, want 5", cfg.MaxLoginAttempts)
	}
	if cfg.LockoutTime != 900 {
		t.Errorf("LockoutTime = %d, want 900", cfg.LockoutTime)
	}
	if cfg.MaxBackups != 15 {
		t.Errorf("MaxBackups = %d, want 15", cfg.MaxBackups)
	}
	if cfg.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q, want admin", cfg.AdminUsername)
	}

	wantExts := []string{"yaml", "yml", "md", "markdown", "json", "txt"}
	if len(cfg.AllowedExtensions) != len(wantExts) {
		t.Fatalf("AllowedExtensions = %v, want %v", cfg.AllowedExtensions, wantExts)
	}
	for i, ext := range wantExts {
		if cfg.AllowedExtensions[i] != ext {
			t.Errorf("AllowedExtensions[%d] = %q, want %q", i, cfg.AllowedExtensions[i], ext)
		}
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("EDITOR_SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with empty secret should fail")
	}
}

func TestLoadShortSecret(t *testing.T) {
	t.Setenv("EDITOR_SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() with short secret should fail")
	}
	if !strings.Contains(err.Error(), "at least") {
		t.Errorf("error %q should mention minimum length", err)
	}
}

func TestLoadExtensionsNormalized(t *testing.T) {
	t.Setenv("EDITOR_SESSION_SECRET", testSecret)
	t.Setenv("EDITOR_ALLOWED_EXTENSIONS", "YAML, Md ,txt")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []string{"yaml", "md", "txt"}
	for i, ext := range want {
		if cfg.AllowedExtensions[i] != ext {
			t.Errorf("AllowedExtensions[%d] = %q, want %q", i, cfg.AllowedExtensions[i], ext)
		}
	}
}

func TestLoadInvalidLifetime(t *testing.T) {
	t.Setenv("EDITOR_SESSION_SECRET", testSecret)
	t.Setenv("EDITOR_SESSION_LIFETIME", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with zero session lifetime should fail")
	}
}

func TestServerAddr(t *testing.T) {
	cfg := Config{ServerHost: "0.0.0.0", ServerPort: 9000}
	if got := cfg.ServerAddr(); got != "0.0.0.0:9000" {
		t.Errorf("ServerAddr() = %q, want 0.0.0.0:9000", got)
	}
}

func TestIsDevelopment(t *testing.T) {
	if !(Config{Env: "development"}).IsDevelopment() {
		t.Error("development env should report IsDevelopment")
	}
	if (Config{Env: "production"}).IsDevelopment() {
		t.Error("production env should not report IsDevelopment")
	}
}
