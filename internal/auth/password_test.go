// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q is not a bcrypt hash", hash)
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("CheckPassword should accept the original password")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("CheckPassword should reject a wrong password")
	}
	if CheckPassword("correct horse battery staple", "not-a-hash") {
		t.Error("CheckPassword should reject a malformed hash")
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h1, err := HashPassword("samepassword")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("samepassword")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestValidatePasswordLength(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		minLength int
		wantErr   bool
	}{
		{"long enough", "12345678", 8, false},
		{"too short", "1234567", 8, true},
		{"empty", "", 8, true},
		{"custom minimum", "abcd", 4, false},
		{"zero falls back to default", "1234567", 0, true},
		{"zero default accepts 8", "12345678", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordLength(tt.password, tt.minLength)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePasswordLength(%q, %d) error = %v, wantErr %v",
					tt.password, tt.minLength, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrPasswordTooShort) {
				t.Errorf("error should wrap ErrPasswordTooShort, got %v", err)
			}
		})
	}
}
