// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/walleralexander/yamleditor/internal/model"
)

const userColumns = "id, username, password_hash, email, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByID returns the user with the given ID.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByUsername returns the user with the given username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// ListUsers returns all users sorted by username. Password hashes are
// populated; callers decide whether to expose them (export only).
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the total number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// CreateUserParams holds the values for a new user row. PasswordHash must
// already be hashed; the store never sees plaintext passwords.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	Email        string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns it.
func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (model.User, error) {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.Username, p.PasswordHash, p.Email, p.Role, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("creating user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("reading insert id: %w", err)
	}
	return q.GetUserByID(ctx, id)
}

// UpdateUserParams is a typed patch: nil fields are left untouched.
// PasswordHash, when set, must already be hashed.
type UpdateUserParams struct {
	ID           int64
	Username     *string
	Email        *string
	Role         *string
	PasswordHash *string
}

// UpdateUser applies a partial update to the user row. Returns
// sql.ErrNoRows if the user does not exist, and an error if the patch is
// empty.
func (q *Queries) UpdateUser(ctx context.Context, p UpdateUserParams) error {
	var sets []string
	var args []any

	if p.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *p.Username)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *p.Email)
	}
	if p.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *p.Role)
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *p.PasswordHash)
	}

	if len(sets) == 0 {
		return fmt.Errorf("updating user %d: no fields to update", p.ID)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), p.ID)

	res, err := q.db.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user %d: %w", p.ID, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating password for user %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteUser removes the user row. Returns sql.ErrNoRows if it does not
// exist. Protection of the seed admin account is enforced by the caller,
// which knows the configured admin username.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
