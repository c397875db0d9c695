package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *Store) SetTimezone(ctx context.Context, userID, timezone string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timezones (user_id, timezone, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at
	`, userID, timezone, time.Now().Unix())
	return err
}

func (s *Store) GetTimezone(ctx context.Context, userID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT timezone FROM timezones WHERE user_id = ?`, userID)
	var timezone string
	if err := row.Scan(&timezone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return timezone, nil
}
