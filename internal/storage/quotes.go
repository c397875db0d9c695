package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrDuplicateQuote is returned when adding a quote whose content already exists.
var ErrDuplicateQuote = errors.New("storage: duplicate quote")

type Quote struct {
	ID        int64
	Content   string
	AuthorID  string
	CreatedAt time.Time
}

func (s *Store) AddQuote(ctx context.Context, content, authorID string) (Quote, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (content, author_id, created_at) VALUES (?, ?, ?)
	`, content, authorID, now.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Quote{}, ErrDuplicateQuote
		}
		return Quote{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Quote{}, err
	}
	return Quote{ID: id, Content: content, AuthorID: authorID, CreatedAt: now}, nil
}

func (s *Store) RandomQuote(ctx context.Context) (Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content, author_id, created_at FROM quotes ORDER BY RANDOM() LIMIT 1
	`)

	var quote Quote
	var created int64
	err := row.Scan(&quote.ID, &quote.Content, &quote.AuthorID, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, err
	}
	quote.CreatedAt = time.Unix(created, 0)
	return quote, nil
}

func (s *Store) CountQuotes(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quotes`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
