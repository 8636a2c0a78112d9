// Copyright (c) 2025-2026 Alexander Waller
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertLoginAttempt appends one row to the login attempt log.
func (q *Queries) InsertLoginAttempt(ctx context.Context, ip, username string, at time.Time, success bool) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO login_attempts (ip_address, username, attempt_time, success) VALUES (?, ?, ?, ?)",
		ip, username, at.Unix(), success)
	if err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}
	return nil
}

// CountFailedAttempts returns the number of failed attempts from ip since
// the given time.
func (q *Queries) CountFailedAttempts(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM login_attempts WHERE ip_address = ? AND attempt_time > ? AND success = 0",
		ip, since.Unix()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting failed attempts: %w", err)
	}
	return n, nil
}

// LastFailedAttempt returns the time of the most recent failed attempt from
// ip since the given time. The bool result is false when no qualifying
// attempt exists.
func (q *Queries) LastFailedAttempt(ctx context.Context, ip string, since time.Time) (time.Time, bool, error) {
	var last sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		"SELECT MAX(attempt_time) FROM login_attempts WHERE ip_address = ? AND attempt_time > ? AND success = 0",
		ip, since.Unix()).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying last failed attempt: %w", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(last.Int64, 0), true, nil
}

// ClearFailedAttempts removes all failed rows for ip. Called after a
// successful login so the window resets immediately.
func (q *Queries) ClearFailedAttempts(ctx context.Context, ip string) error {
	_, err := q.db.ExecContext(ctx,
		"DELETE FROM login_attempts WHERE ip_address = ? AND success = 0", ip)
	if err != nil {
		return fmt.Errorf("clearing failed attempts: %w", err)
	}
	return nil
}

// DeleteAttemptsBefore removes attempt rows older than the cutoff.
func (q *Queries) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM login_attempts WHERE attempt_time < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("cleaning up login attempts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleaning up login attempts: %w", err)
	}
	return n, nil
}
