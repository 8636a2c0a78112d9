// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from environment
// variables.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretLength is the minimum required length for the session
// secret used to authenticate CSRF state.
const MinSessionSecretLength = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"EDITOR_DB_PATH" envDefault:"./data/editor.db"`
	FilesDir      string `env:"EDITOR_FILES_DIR" envDefault:"./data/files"`
	SessionSecret string `env:"EDITOR_SESSION_SECRET,required"`
	ServerHost    string `env:"EDITOR_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"EDITOR_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"EDITOR_ENV" envDefault:"development"`
	LogLevel      string `env:"EDITOR_LOG_LEVEL" envDefault:"info"`

	// Session settings
	SessionLifetime int `env:"EDITOR_SESSION_LIFETIME" envDefault:"3600"` // Seconds of inactivity before a login expires

	// File store settings
	AllowedExtensions []string `env:"EDITOR_ALLOWED_EXTENSIONS" envDefault:"yaml,yml,md,markdown,json,txt"`
	MaxBackups        int      `env:"EDITOR_MAX_BACKUPS" envDefault:"15"`

	// Login rate limiting
	MaxLoginAttempts int `env:"EDITOR_MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LockoutTime      int `env:"EDITOR_LOCKOUT_TIME" envDefault:"900"` // Seconds

	// Seed admin account
	AdminUsername string `env:"EDITOR_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"EDITOR_ADMIN_PASSWORD" envDefault:"admin123"`

	// Password policy
	PasswordMinLength int `env:"EDITOR_PASSWORD_MIN_LENGTH" envDefault:"8"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("EDITOR_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	if cfg.SessionLifetime <= 0 {
		return nil, fmt.Errorf("EDITOR_SESSION_LIFETIME must be positive, got %d", cfg.SessionLifetime)
	}

	if cfg.MaxBackups < 1 {
		return nil, fmt.Errorf("EDITOR_MAX_BACKUPS must be at least 1, got %d", cfg.MaxBackups)
	}

	// Extensions are matched case-insensitively against lowercased names
	for i, ext := range cfg.AllowedExtensions {
		cfg.AllowedExtensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}

	return cfg, nil
}
