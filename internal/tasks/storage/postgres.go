package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/dkarpov/taskboard/internal/tasks/models"
)

type PostgresStorage struct {
	db  *sql.DB
	log *slog.Logger
}

func NewPostgresStorage(host, port, user, password, dbname string, log *slog.Logger) (*PostgresStorage, error) {
	psqlInfo := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}

	s := &PostgresStorage{db: db, log: log}

	if err := s.init(); err != nil {
		return nil, fmt.Errorf("cannot initialize db schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStorage) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id SERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		date TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		owner_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS tasks_owner_id_idx ON tasks (owner_id);`
	_, err := s.db.Exec(schema)
	return err
}

// Every query below carries the owner predicate in the SQL itself.
// Filtering after the read would open a window where a concurrent
// request could observe or mutate another owner's task.

func (s *PostgresStorage) CreateTask(ctx context.Context, ownerID int64, fields models.TaskFields) (*models.Task, error) {
	query := `
	INSERT INTO tasks (text, date, tags, owner_id)
	VALUES ($1, $2, $3, $4)
	RETURNING id, text, completed, date, tags, owner_id, created_at`

	return s.scanTask(s.db.QueryRowContext(ctx, query,
		fields.Text, fields.Date, pq.Array(fields.Tags), ownerID))
}

func (s *PostgresStorage) ListTasks(ctx context.Context, ownerID int64) ([]*models.Task, error) {
	query := `
	SELECT id, text, completed, date, tags, owner_id, created_at
	FROM tasks
	WHERE owner_id = $1
	ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		var task models.Task
		var tags pq.StringArray
		err := rows.Scan(&task.ID, &task.Text, &task.Completed, &task.Date, &tags, &task.OwnerID, &task.CreatedAt)
		if err != nil {
			return nil, err
		}
		task.Tags = tags
		tasks = append(tasks, &task)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *PostgresStorage) UpdateTask(ctx context.Context, ownerID, taskID int64, patch models.TaskPatch) (*models.Task, error) {
	query := `
	UPDATE tasks SET
		text = COALESCE($3, text),
		completed = COALESCE($4, completed),
		date = COALESCE($5, date),
		tags = COALESCE($6, tags)
	WHERE id = $1 AND owner_id = $2
	RETURNING id, text, completed, date, tags, owner_id, created_at`

	var tags interface{}
	if patch.Tags != nil {
		tags = pq.Array(patch.Tags)
	}

	task, err := s.scanTask(s.db.QueryRowContext(ctx, query,
		taskID, ownerID, patch.Text, patch.Completed, patch.Date, tags))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	return task, err
}

func (s *PostgresStorage) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND owner_id = $2", taskID, ownerID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *PostgresStorage) scanTask(row *sql.Row) (*models.Task, error) {
	var task models.Task
	var tags pq.StringArray

	err := row.Scan(&task.ID, &task.Text, &task.Completed, &task.Date, &tags, &task.OwnerID, &task.CreatedAt)
	if err != nil {
		return nil, err
	}
	task.Tags = tags
	return &task, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
