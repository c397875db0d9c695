package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Task is a persisted deferred action owned by the scheduler.
type Task struct {
	ID        string
	Name      string
	Arguments []string
	RunAt     time.Time
	CreatedAt time.Time
}

func (s *Store) CreateTask(ctx context.Context, task Task) error {
	args, err := json.Marshal(task.Arguments)
	if err != nil {
		return err
	}
	if task.Arguments == nil {
		args = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, arguments, run_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, task.ID, task.Name, string(args), task.RunAt.Unix(), task.CreatedAt.Unix())
	return err
}

func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, arguments, run_at, created_at FROM tasks ORDER BY run_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// FindTask resolves a persisted task by preset name and exact argument list.
func (s *Store) FindTask(ctx context.Context, name string, arguments []string) (Task, error) {
	args, err := json.Marshal(arguments)
	if err != nil {
		return Task{}, err
	}
	if arguments == nil {
		args = []byte("[]")
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, arguments, run_at, created_at
		FROM tasks WHERE name = ? AND arguments = ?
		ORDER BY run_at ASC LIMIT 1
	`, name, string(args))

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task row. Deleting an already-deleted task is benign.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var args string
	var runAt, created int64
	if err := row.Scan(&task.ID, &task.Name, &args, &runAt, &created); err != nil {
		return Task{}, err
	}
	if err := json.Unmarshal([]byte(args), &task.Arguments); err != nil {
		return Task{}, err
	}
	task.RunAt = time.Unix(runAt, 0)
	task.CreatedAt = time.Unix(created, 0)
	return task, nil
}
