// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth provides password hashing and verification utilities
// for secure credential storage.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordMinLength is the fallback minimum password length when the
// configuration does not override it.
const DefaultPasswordMinLength = 8

// ErrPasswordTooShort is returned when a plaintext password does not meet
// the minimum length policy.
var ErrPasswordTooShort = errors.New("password too short")

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a bcrypt hash. The comparison
// inside bcrypt is constant-time.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordLength enforces the minimum password length policy.
// A minLength of zero falls back to DefaultPasswordMinLength.
func ValidatePasswordLength(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	if len(password) < minLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooShort, minLength)
	}
	return nil
}
