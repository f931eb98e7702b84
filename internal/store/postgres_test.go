package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), RunStatusRunning, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pipeline_runs SET status`).
		WithArgs(RunStatusSucceeded, pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing-run", RunStatusSucceeded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, started_at, finished_at FROM pipeline_runs WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinishStage(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	counts := StageCounts{Processed: 10, New: 6, Known: 3, Dropped: 1, Failed: 2}
	mock.ExpectExec(`UPDATE stage_runs`).
		WithArgs(RunStatusSucceeded, 10, 6, 3, 1, 2, "", pgxmock.AnyArg(), "stage-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FinishStage(context.Background(), "stage-1", RunStatusSucceeded, counts, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListStageRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Minute)
	rows := pgxmock.NewRows([]string{
		"id", "run_id", "stage", "status", "processed", "new_count", "known", "dropped", "failed", "error", "started_at", "finished_at",
	}).
		AddRow("sr-1", "run-1", "discover", RunStatusSucceeded, 40, 25, 12, 3, 1, "", started, &finished).
		AddRow("sr-2", "run-1", "collect", RunStatusRunning, 0, 0, 0, 0, 0, "", finished, (*time.Time)(nil))

	mock.ExpectQuery(`SELECT id, run_id, stage, status`).
		WithArgs("run-1").
		WillReturnRows(rows)

	stages, err := s.ListStageRuns(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "discover", stages[0].Stage)
	assert.Equal(t, StageCounts{Processed: 40, New: 25, Known: 12, Dropped: 3, Failed: 1}, stages[0].Counts)
	assert.Equal(t, 3*time.Minute, stages[0].Duration())
	assert.Nil(t, stages[1].FinishedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
