package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, s.FinishRun(ctx, run.ID, RunStatusSucceeded))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))
}

func TestSQLiteStageRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx)
	require.NoError(t, err)

	discover, err := s.StartStage(ctx, run.ID, "discover")
	require.NoError(t, err)
	collect, err := s.StartStage(ctx, run.ID, "collect")
	require.NoError(t, err)

	counts := StageCounts{Processed: 40, New: 25, Known: 12, Dropped: 2, Failed: 1}
	require.NoError(t, s.FinishStage(ctx, discover.ID, RunStatusSucceeded, counts, ""))
	require.NoError(t, s.FinishStage(ctx, collect.ID, RunStatusFailed, StageCounts{Processed: 5}, "fetch: status 503"))

	stages, err := s.ListStageRuns(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "discover", stages[0].Stage)
	assert.Equal(t, RunStatusSucceeded, stages[0].Status)
	assert.Equal(t, counts, stages[0].Counts)
	assert.NotNil(t, stages[0].FinishedAt)

	assert.Equal(t, "collect", stages[1].Stage)
	assert.Equal(t, RunStatusFailed, stages[1].Status)
	assert.Equal(t, "fetch: status 503", stages[1].Error)
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		run, err := s.CreateRun(ctx)
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	_ = ids
}

func TestSQLiteFinishUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.FinishRun(context.Background(), "no-such-run", RunStatusSucceeded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}
