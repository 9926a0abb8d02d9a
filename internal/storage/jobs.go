package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates a missing record.
var ErrNotFound = errors.New("record not found")

// JobStatus is the lifecycle state of a translation job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one translation run's persisted record.
type Job struct {
	ID              uuid.UUID
	DocumentRef     string
	Status          JobStatus
	Partial         bool
	DownloadRef     string
	SuccessfulUnits int
	TotalUnits      int
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DB is the database handle subset the repository needs.
type DB interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// JobRepository persists translation jobs.
type JobRepository struct {
	db DB
}

// NewJobRepository creates a job repository.
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

// Migrate creates the jobs table when missing.
func Migrate(ctx context.Context, db DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			document_ref TEXT NOT NULL,
			status TEXT NOT NULL,
			partial INTEGER NOT NULL DEFAULT 0,
			download_ref TEXT NOT NULL DEFAULT '',
			successful_units INTEGER NOT NULL DEFAULT 0,
			total_units INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// Create inserts a new job.
func (r *JobRepository) Create(ctx context.Context, job *Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	query := `
		INSERT INTO jobs (id, document_ref, status, partial, download_ref,
			successful_units, total_units, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID.String(), job.DocumentRef, string(job.Status), job.Partial,
		job.DownloadRef, job.SuccessfulUnits, job.TotalUnits, job.Error,
		job.CreatedAt, job.UpdatedAt,
	)
	return err
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, document_ref, status, partial, download_ref,
			successful_units, total_units, error, created_at, updated_at
		FROM jobs WHERE id = $1
	`
	job := &Job{}
	var idStr, status string
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr, &job.DocumentRef, &status, &job.Partial, &job.DownloadRef,
		&job.SuccessfulUnits, &job.TotalUnits, &job.Error,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	job.ID, err = uuid.Parse(idStr)
	job.Status = JobStatus(status)
	return job, err
}

// Update persists the mutable fields of a job.
func (r *JobRepository) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	query := `
		UPDATE jobs SET status = $2, partial = $3, download_ref = $4,
			successful_units = $5, total_units = $6, error = $7, updated_at = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		job.ID.String(), string(job.Status), job.Partial, job.DownloadRef,
		job.SuccessfulUnits, job.TotalUnits, job.Error, job.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
