// Package job tracks render jobs: persistence, lifecycle transitions, and
// background pipeline runs with live progress sessions.
package job

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/karatext/karatext/internal/models"
)

type DB struct {
	conn *sql.DB
}

func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		input_mode TEXT NOT NULL,
		text_file TEXT,
		audio_file TEXT,
		output_file TEXT,
		error TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Repository persists jobs over the sqlite connection.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, status, input_mode, text_file, audio_file, output_file, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.conn.ExecContext(ctx, query,
		job.ID, job.Status, job.InputMode,
		job.TextFile, job.AudioFile, job.OutputFile, job.Error,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, job *models.Job) error {
	query := `
		UPDATE jobs
		SET status = ?, output_file = ?, error = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.conn.ExecContext(ctx, query,
		job.Status, job.OutputFile, job.Error, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}
	return nil
}

// GetByID returns nil without error when no such job exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, status, input_mode, text_file, audio_file, output_file, error, created_at, updated_at
		FROM jobs
		WHERE id = ?`

	job := &models.Job{}
	err := r.db.conn.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Status, &job.InputMode,
		&job.TextFile, &job.AudioFile, &job.OutputFile, &job.Error,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	return job, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Job, error) {
	query := `
		SELECT id, status, input_mode, text_file, audio_file, output_file, error, created_at, updated_at
		FROM jobs
		ORDER BY created_at DESC`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(
			&job.ID, &job.Status, &job.InputMode,
			&job.TextFile, &job.AudioFile, &job.OutputFile, &job.Error,
			&job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
