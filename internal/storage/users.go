package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// User holds per-member economy state.
type User struct {
	ID              string
	Balance         int64
	Stars           int
	ReceivedOGPerks bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EnsureUser returns the user record, creating it with the starting balance
// on first sight.
func (s *Store) EnsureUser(ctx context.Context, id string, startingBalance int64) (User, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, balance, stars, received_og_perks, created_at, updated_at)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, startingBalance, now.Unix(), now.Unix())
	if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, balance, stars, received_og_perks, created_at, updated_at
		FROM users WHERE id = ?`, id)

	var user User
	var ogPerks int
	var created, updated int64
	err := row.Scan(&user.ID, &user.Balance, &user.Stars, &ogPerks, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.ReceivedOGPerks = ogPerks == 1
	user.CreatedAt = time.Unix(created, 0)
	user.UpdatedAt = time.Unix(updated, 0)
	return user, nil
}

// AddBalance adjusts a user's balance, creating the record first if needed.
// The balance never drops below zero.
func (s *Store) AddBalance(ctx context.Context, id string, delta, startingBalance int64) (int64, error) {
	if _, err := s.EnsureUser(ctx, id, startingBalance); err != nil {
		return 0, err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET balance = MAX(0, balance + ?), updated_at = ? WHERE id = ?
	`, delta, time.Now().Unix(), id)
	if err != nil {
		return 0, err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}

func (s *Store) AddStar(ctx context.Context, id string, startingBalance int64) error {
	if _, err := s.EnsureUser(ctx, id, startingBalance); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET stars = stars + 1, updated_at = ? WHERE id = ?
	`, time.Now().Unix(), id)
	return err
}

func (s *Store) MarkOGPerks(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET received_og_perks = 1, updated_at = ? WHERE id = ?
	`, time.Now().Unix(), id)
	return err
}

func (s *Store) TopBalances(ctx context.Context, limit int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, balance, stars, received_og_perks, created_at, updated_at
		FROM users ORDER BY balance DESC, id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		var ogPerks int
		var created, updated int64
		if err := rows.Scan(&user.ID, &user.Balance, &user.Stars, &ogPerks, &created, &updated); err != nil {
			return nil, err
		}
		user.ReceivedOGPerks = ogPerks == 1
		user.CreatedAt = time.Unix(created, 0)
		user.UpdatedAt = time.Unix(updated, 0)
		users = append(users, user)
	}
	return users, rows.Err()
}
