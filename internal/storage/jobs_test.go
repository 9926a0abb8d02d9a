package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *JobRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	require.NoError(t, Migrate(context.Background(), db))
	return NewJobRepository(db)
}

func TestJobRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job := &Job{DocumentRef: "doc-1", Status: JobStatusRunning}
	require.NoError(t, repo.Create(ctx, job))
	require.NotEqual(t, uuid.Nil, job.ID)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "doc-1", got.DocumentRef)
	assert.Equal(t, JobStatusRunning, got.Status)
	assert.False(t, got.Partial)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestJobRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobRepository_Update(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	job := &Job{DocumentRef: "doc-1", Status: JobStatusRunning}
	require.NoError(t, repo.Create(ctx, job))

	job.Status = JobStatusSucceeded
	job.Partial = true
	job.DownloadRef = "out-1"
	job.SuccessfulUnits = 4
	job.TotalUnits = 5
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusSucceeded, got.Status)
	assert.True(t, got.Partial)
	assert.Equal(t, "out-1", got.DownloadRef)
	assert.Equal(t, 4, got.SuccessfulUnits)
	assert.Equal(t, 5, got.TotalUnits)
}

func TestJobRepository_UpdateMissing(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Update(context.Background(), &Job{ID: uuid.New(), Status: JobStatusFailed})

	assert.ErrorIs(t, err, ErrNotFound)
}
