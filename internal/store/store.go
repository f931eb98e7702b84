// Package store persists the run ledger: one row per pipeline invocation and
// one per stage execution, so past runs can be listed and inspected after the
// checkpoint artifacts have moved on. SQLite is the default backend; Postgres
// is available for shared deployments.
package store

import (
	"context"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun is one invocation of the pipeline.
type PipelineRun struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StageCounts summarizes one stage execution. Dropped counts malformed
// records discarded outright; Failed counts entities retained after a
// connector failure (fetch or extraction), which stay in the artifact with
// explicit not-found values.
type StageCounts struct {
	Processed int `json:"processed"`
	New       int `json:"new"`
	Known     int `json:"known"`
	Dropped   int `json:"dropped"`
	Failed    int `json:"failed"`
}

// StageRun is one stage execution within a pipeline run.
type StageRun struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Stage      string      `json:"stage"`
	Status     string      `json:"status"`
	Counts     StageCounts `json:"counts"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// Duration returns the stage's wall time, zero while still running.
func (s *StageRun) Duration() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Store defines the run ledger persistence interface.
type Store interface {
	CreateRun(ctx context.Context) (*PipelineRun, error)
	FinishRun(ctx context.Context, runID, status string) error
	StartStage(ctx context.Context, runID, stage string) (*StageRun, error)
	FinishStage(ctx context.Context, stageRunID, status string, counts StageCounts, errMsg string) error
	GetRun(ctx context.Context, runID string) (*PipelineRun, error)
	ListRuns(ctx context.Context, limit int) ([]PipelineRun, error)
	ListStageRuns(ctx context.Context, runID string) ([]StageRun, error)

	Migrate(ctx context.Context) error
	Close() error
}
