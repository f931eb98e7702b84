package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS stage_runs (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES pipeline_runs(id),
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	processed   INTEGER NOT NULL DEFAULT 0,
	new_count   INTEGER NOT NULL DEFAULT 0,
	known       INTEGER NOT NULL DEFAULT 0,
	dropped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);
CREATE INDEX IF NOT EXISTS idx_stage_runs_run_id ON stage_runs(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*PipelineRun, error) {
	run := &PipelineRun{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) StartStage(ctx context.Context, runID, stage string) (*StageRun, error) {
	sr := &StageRun{
		ID:        uuid.New().String(),
		RunID:     runID,
		Stage:     stage,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_runs (id, run_id, stage, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, sr.Stage, sr.Status, sr.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert stage run %s", stage)
	}
	return sr, nil
}

func (s *SQLiteStore) FinishStage(ctx context.Context, stageRunID, status string, counts StageCounts, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stage_runs
		 SET status = ?, processed = ?, new_count = ?, known = ?, dropped = ?, failed = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		status, counts.Processed, counts.New, counts.Known, counts.Dropped, counts.Failed, errMsg, time.Now().UTC(), stageRunID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish stage run %s", stageRunID)
	}
	return checkRowsAffected(res, "stage run", stageRunID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*PipelineRun, error) {
	var run PipelineRun
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, started_at, finished_at FROM pipeline_runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Status, &run.StartedAt, &finished)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, started_at, finished_at FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var run PipelineRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Status, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) ListStageRuns(ctx context.Context, runID string) ([]StageRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, stage, status, processed, new_count, known, dropped, failed, error, started_at, finished_at
		 FROM stage_runs WHERE run_id = ? ORDER BY started_at`, runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list stage runs %s", runID)
	}
	defer rows.Close()

	var stages []StageRun
	for rows.Next() {
		var sr StageRun
		var finished sql.NullTime
		err := rows.Scan(&sr.ID, &sr.RunID, &sr.Stage, &sr.Status,
			&sr.Counts.Processed, &sr.Counts.New, &sr.Counts.Known, &sr.Counts.Dropped, &sr.Counts.Failed,
			&sr.Error, &sr.StartedAt, &finished)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stage run")
		}
		if finished.Valid {
			sr.FinishedAt = &finished.Time
		}
		stages = append(stages, sr)
	}
	return stages, eris.Wrap(rows.Err(), "sqlite: list stage runs")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
