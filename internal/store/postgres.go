package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses, extracted so tests can
// substitute a mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
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
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);
CREATE INDEX IF NOT EXISTS idx_stage_runs_run_id ON stage_runs(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*PipelineRun, error) {
	run := &PipelineRun{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		run.ID, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs SET status = $1, finished_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) StartStage(ctx context.Context, runID, stage string) (*StageRun, error) {
	sr := &StageRun{
		ID:        uuid.New().String(),
		RunID:     runID,
		Stage:     stage,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stage_runs (id, run_id, stage, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		sr.ID, sr.RunID, sr.Stage, sr.Status, sr.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert stage run %s", stage)
	}
	return sr, nil
}

func (s *PostgresStore) FinishStage(ctx context.Context, stageRunID, status string, counts StageCounts, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE stage_runs
		 SET status = $1, processed = $2, new_count = $3, known = $4, dropped = $5, failed = $6, error = $7, finished_at = $8
		 WHERE id = $9`,
		status, counts.Processed, counts.New, counts.Known, counts.Dropped, counts.Failed, errMsg, time.Now().UTC(), stageRunID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish stage run %s", stageRunID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: stage run %s not found", stageRunID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*PipelineRun, error) {
	var run PipelineRun
	var finished *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, started_at, finished_at FROM pipeline_runs WHERE id = $1`, runID,
	).Scan(&run.ID, &run.Status, &run.StartedAt, &finished)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	run.FinishedAt = finished
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, started_at, finished_at FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var run PipelineRun
		var finished *time.Time
		if err := rows.Scan(&run.ID, &run.Status, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		run.FinishedAt = finished
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) ListStageRuns(ctx context.Context, runID string) ([]StageRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, stage, status, processed, new_count, known, dropped, failed, error, started_at, finished_at
		 FROM stage_runs WHERE run_id = $1 ORDER BY started_at`, runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list stage runs %s", runID)
	}
	defer rows.Close()

	var stages []StageRun
	for rows.Next() {
		var sr StageRun
		var finished *time.Time
		err := rows.Scan(&sr.ID, &sr.RunID, &sr.Stage, &sr.Status,
			&sr.Counts.Processed, &sr.Counts.New, &sr.Counts.Known, &sr.Counts.Dropped, &sr.Counts.Failed,
			&sr.Error, &sr.StartedAt, &finished)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan stage run")
		}
		sr.FinishedAt = finished
		stages = append(stages, sr)
	}
	return stages, eris.Wrap(rows.Err(), "postgres: list stage runs")
}
