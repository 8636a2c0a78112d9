// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models shared across the application.
package model

import "time"

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleAdmin, RoleUser}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// User represents an editor account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginAttempt is one row of the append-only login attempt log used for
// rate limiting. Attempts are only ever read through windowed aggregates.
type LoginAttempt struct {
	ID          int64     `json:"id"`
	IPAddress   string    `json:"ip_address"`
	Username    string    `json:"username,omitempty"`
	AttemptTime time.Time `json:"attempt_time"`
	Success     bool      `json:"success"`
}
