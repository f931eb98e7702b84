// Package pipeline orchestrates the four collection stages: discover,
// collect, extract, report. Each stage reads the previous stage's checkpoint
// artifact, commits after every record, and an interrupted run resumes from
// the first stage whose artifact is missing.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/checkpoint"
	"github.com/sells-group/venture-scout/internal/fetcher"
	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resolver"
	"github.com/sells-group/venture-scout/internal/scorer"
	"github.com/sells-group/venture-scout/internal/store"
)

// Stage names in execution order.
const (
	StageDiscover = "discover"
	StageCollect  = "collect"
	StageExtract  = "extract"
	StageReport   = "report"
)

// StageOrder lists the stages in execution order.
var StageOrder = []string{StageDiscover, StageCollect, StageExtract, StageReport}

// Stage execution states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Searcher produces candidate records for a discovery query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.RawRecord, error)
}

// SiteFetcher retrieves a company website as plaintext.
type SiteFetcher interface {
	FetchSite(ctx context.Context, url string) (*fetcher.Page, error)
}

// Extractor enriches an entity with attributes pulled from page text.
type Extractor interface {
	Extract(ctx context.Context, entity *model.Entity, pageText string) error
}

// Options carries the run parameters that are configuration, not wiring.
type Options struct {
	Queries     []string
	ScoreConfig scorer.Config
}

// Pipeline wires the stages to their dependencies.
type Pipeline struct {
	ckpt      *checkpoint.Store
	res       *resolver.Resolver
	searcher  Searcher
	fetcher   SiteFetcher
	extractor Extractor
	ledger    store.Store
	opts      Options
}

// New creates a Pipeline. The ledger may be nil; stage outcomes are then only
// logged, not persisted.
func New(ckpt *checkpoint.Store, res *resolver.Resolver, searcher Searcher, f SiteFetcher, ex Extractor, ledger store.Store, opts Options) *Pipeline {
	return &Pipeline{
		ckpt:      ckpt,
		res:       res,
		searcher:  searcher,
		fetcher:   f,
		extractor: ex,
		ledger:    ledger,
		opts:      opts,
	}
}

// StageOutcome is the result of one stage execution.
type StageOutcome struct {
	Stage    string            `json:"stage"`
	Status   string            `json:"status"`
	Counts   store.StageCounts `json:"counts"`
	Duration time.Duration     `json:"duration"`
	Error    string            `json:"error,omitempty"`
}

// RunReport summarizes a pipeline run.
type RunReport struct {
	RunID    string         `json:"run_id,omitempty"`
	Status   string         `json:"status"`
	Outcomes []StageOutcome `json:"outcomes"`
}

// StartStage returns the first stage whose checkpoint artifact is missing.
// When every artifact exists the final stage is returned, so a completed
// workspace re-runs only the report.
func (p *Pipeline) StartStage() string {
	for _, stage := range StageOrder {
		if !p.ckpt.ArtifactExists(stage) {
			return stage
		}
	}
	return StageReport
}

// Run executes the stages beginning at from ("" means resume automatically).
// The first stage failure halts the run; later stages stay pending so the
// next invocation resumes at the failed stage.
func (p *Pipeline) Run(ctx context.Context, from string) (*RunReport, error) {
	if from == "" {
		from = p.StartStage()
	}
	if !validStage(from) {
		return nil, eris.Errorf("pipeline: unknown stage %q", from)
	}

	report := &RunReport{Status: StatusSucceeded}

	var runID string
	if p.ledger != nil {
		run, err := p.ledger.CreateRun(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
		report.RunID = runID
	}

	started := false
	for _, stage := range StageOrder {
		if stage == from {
			started = true
		}
		if !started {
			report.Outcomes = append(report.Outcomes, StageOutcome{Stage: stage, Status: StatusSucceeded})
			continue
		}
		if report.Status == StatusFailed {
			report.Outcomes = append(report.Outcomes, StageOutcome{Stage: stage, Status: StatusPending})
			continue
		}

		outcome := p.runStage(ctx, runID, stage)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Status == StatusFailed {
			report.Status = StatusFailed
		}
	}

	if p.ledger != nil {
		ledgerStatus := store.RunStatusSucceeded
		if report.Status == StatusFailed {
			ledgerStatus = store.RunStatusFailed
		}
		if err := p.ledger.FinishRun(ctx, runID, ledgerStatus); err != nil {
			zap.L().Warn("pipeline: failed to finish run record", zap.Error(err))
		}
	}

	if report.Status == StatusFailed {
		return report, eris.Errorf("pipeline: run failed at %s", report.FailedStage())
	}
	return report, nil
}

func (p *Pipeline) runStage(ctx context.Context, runID, stage string) StageOutcome {
	log := zap.L().With(zap.String("stage", stage))
	log.Info("stage starting")

	var stageRunID string
	if p.ledger != nil {
		sr, err := p.ledger.StartStage(ctx, runID, stage)
		if err != nil {
			log.Warn("failed to record stage start", zap.Error(err))
		} else {
			stageRunID = sr.ID
		}
	}

	start := time.Now()
	var counts store.StageCounts
	var err error
	switch stage {
	case StageDiscover:
		counts, err = p.discover(ctx)
	case StageCollect:
		counts, err = p.collect(ctx)
	case StageExtract:
		counts, err = p.extract(ctx)
	case StageReport:
		counts, err = p.report(ctx)
	}
	duration := time.Since(start)

	outcome := StageOutcome{
		Stage:    stage,
		Status:   StatusSucceeded,
		Counts:   counts,
		Duration: duration,
	}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
		log.Error("stage failed", zap.Duration("duration", duration), zap.Error(err))
	} else {
		log.Info("stage complete",
			zap.Duration("duration", duration),
			zap.Int("processed", counts.Processed),
			zap.Int("new", counts.New),
			zap.Int("known", counts.Known),
			zap.Int("dropped", counts.Dropped),
			zap.Int("failed", counts.Failed),
		)
	}

	if stageRunID != "" {
		if ferr := p.ledger.FinishStage(ctx, stageRunID, outcome.Status, counts, outcome.Error); ferr != nil {
			log.Warn("failed to record stage finish", zap.Error(ferr))
		}
	}
	return outcome
}

func validStage(stage string) bool {
	for _, s := range StageOrder {
		if s == stage {
			return true
		}
	}
	return false
}
