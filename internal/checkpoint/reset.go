package checkpoint

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/model"
)

// Incomplete reports whether an entity is missing too much required data:
// at least threshold of the required fields are absent, empty, or hold a
// not-found/unknown placeholder.
func Incomplete(e *model.Entity, required []string, threshold int) bool {
	missing := 0
	for _, key := range required {
		f, ok := e.Attr(key)
		if !ok || !f.Useful() {
			missing++
			continue
		}
		switch strings.ToLower(strings.TrimSpace(f.String())) {
		case "unknown", "n/a", "none", "not found":
			missing++
		}
	}
	return missing >= threshold
}

// EvictReport summarizes one eviction pass.
type EvictReport struct {
	Evicted     []string       // canonical keys removed
	RemovedFrom map[string]int // stage -> entities removed
	BackupsMade []string
	KeptInStage int
}

// EvictIncomplete removes persistently incomplete entities from a stage's
// persisted set and cascades the removal by canonical key to every listed
// downstream stage, so all artifacts stay mutually consistent. Every file it
// mutates is backed up first. The evicted keys are reprocessed from scratch
// on the next run of the stage.
func (s *Store) EvictIncomplete(stage string, downstream []string, required []string, threshold int) (*EvictReport, error) {
	set, err := s.Load(stage)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, eris.Errorf("checkpoint: stage %s has no artifact", stage)
	}

	report := &EvictReport{RemovedFrom: make(map[string]int)}
	evicted := make(map[string]bool)

	var kept []model.Entity
	for i := range set {
		if Incomplete(&set[i], required, threshold) {
			evicted[set[i].CanonicalKey] = true
			report.Evicted = append(report.Evicted, set[i].CanonicalKey)
			continue
		}
		kept = append(kept, set[i])
	}
	report.KeptInStage = len(kept)

	if len(evicted) == 0 {
		return report, nil
	}

	backups, err := s.Backup(stage)
	if err != nil {
		return nil, err
	}
	report.BackupsMade = append(report.BackupsMade, backups...)

	if err := s.Commit(stage, kept); err != nil {
		return nil, err
	}
	report.RemovedFrom[stage] = len(set) - len(kept)

	for _, ds := range downstream {
		dsSet, err := s.Load(ds)
		if err != nil {
			return nil, err
		}
		if dsSet == nil {
			continue
		}

		var dsKept []model.Entity
		for i := range dsSet {
			if evicted[dsSet[i].CanonicalKey] {
				continue
			}
			dsKept = append(dsKept, dsSet[i])
		}
		if len(dsKept) == len(dsSet) {
			continue
		}

		backups, err := s.Backup(ds)
		if err != nil {
			return nil, err
		}
		report.BackupsMade = append(report.BackupsMade, backups...)

		if err := s.Commit(ds, dsKept); err != nil {
			return nil, err
		}
		report.RemovedFrom[ds] = len(dsSet) - len(dsKept)
	}

	zap.L().Info("checkpoint: evicted incomplete entities",
		zap.String("stage", stage),
		zap.Int("evicted", len(report.Evicted)),
		zap.Int("threshold", threshold),
	)
	return report, nil
}
