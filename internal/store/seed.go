// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/walleralexander/yamleditor/internal/auth"
	"github.com/walleralexander/yamleditor/internal/model"
)

// Seed ensures the admin account exists. It is invoked on every boot and is
// a no-op once the account is present, so the invariant "exactly one seed
// admin" holds from first start onward.
func Seed(ctx context.Context, db *sql.DB, username, password string) error {
	queries := New(db)

	_, err := queries.GetUserByUsername(ctx, username)
	if err == nil {
		slog.Info("admin user already exists, skipping seed", "username", username)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user", "id", user.ID, "username", user.Username)
	return nil
}
