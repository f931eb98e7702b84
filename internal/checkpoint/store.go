// Package checkpoint persists per-stage entity sets so that stages are
// idempotent and resumable. Each stage owns two agreeing artifacts: a JSON
// record sequence (canonical) and a CSV mirror (human-browsable). Writes are
// atomic via temp-file-then-rename, and a directory lock enforces the
// single-writer assumption.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resolver"
)

// Store reads and writes stage checkpoints under a single output directory.
type Store struct {
	dir  string
	res  *resolver.Resolver
	lock *flock.Flock
}

// Open prepares the output directory and takes the writer lock. A second
// concurrent writer against the same directory fails fast instead of
// corrupting checkpoints.
func Open(dir string, res *resolver.Resolver) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "checkpoint: create output dir")
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: acquire lock")
	}
	if !ok {
		return nil, eris.Errorf("checkpoint: %s is locked by another run", dir)
	}

	return &Store{dir: dir, res: res, lock: lock}, nil
}

// OpenRead opens the directory without the writer lock, for commands that
// only inspect artifacts while a run may be in progress. Mutating methods
// fail on a read-only store.
func OpenRead(dir string, res *resolver.Resolver) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "checkpoint: create output dir")
	}
	return &Store{dir: dir, res: res}, nil
}

// Close releases the writer lock, if held.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Store) requireWriter() error {
	if s.lock == nil {
		return eris.New("checkpoint: store is read-only")
	}
	return nil
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// JSONPath returns the canonical artifact path for a stage.
func (s *Store) JSONPath(stage string) string {
	return filepath.Join(s.dir, stage+".json")
}

// CSVPath returns the tabular mirror path for a stage.
func (s *Store) CSVPath(stage string) string {
	return filepath.Join(s.dir, stage+".csv")
}

// ArtifactExists reports whether a stage has committed at least once.
func (s *Store) ArtifactExists(stage string) bool {
	_, err := os.Stat(s.JSONPath(stage))
	return err == nil
}

// Load returns the persisted entity set for a stage, or an empty set when
// the stage has never committed.
func (s *Store) Load(stage string) ([]model.Entity, error) {
	data, err := os.ReadFile(s.JSONPath(stage))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "checkpoint: read %s", stage)
	}

	var set []model.Entity
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: decode %s", stage)
	}
	return set, nil
}

// Commit persists the full merged set for a stage: the JSON artifact and the
// CSV mirror, each written to a temporary file and renamed into place so a
// crash can never leave a partial checkpoint. Both views are rendered before
// either rename so the window where they disagree is as small as the two
// renames; the JSON view is authoritative on recovery. Callers commit after
// every processed record, so an interrupt loses at most one unit of work.
func (s *Store) Commit(stage string, set []model.Entity) error {
	if err := s.requireWriter(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "checkpoint: encode %s", stage)
	}
	mirror, err := renderMirror(set)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: render %s mirror", stage)
	}

	if err := atomicWrite(s.JSONPath(stage), data); err != nil {
		return eris.Wrapf(err, "checkpoint: commit %s", stage)
	}
	if err := atomicWrite(s.CSVPath(stage), mirror); err != nil {
		return eris.Wrapf(err, "checkpoint: commit %s mirror", stage)
	}
	return nil
}

// PartitionNew classifies a candidate batch against an existing set. A
// candidate is new only when no existing entity would be judged the same
// entity by the resolver predicate; plain key equality would reprocess
// records that a merge pass would have absorbed. Malformed records (no name,
// no URL) are counted in dropped so stage summaries add up.
func (s *Store) PartitionNew(existing []model.Entity, batch []model.RawRecord) (fresh []model.RawRecord, known, dropped int) {
	for _, rec := range batch {
		cand, ok := s.res.EntityFromRecord(rec)
		if !ok {
			dropped++
			continue
		}
		if s.matchesExisting(existing, &cand) {
			known++
			continue
		}
		fresh = append(fresh, rec)
	}
	return fresh, known, dropped
}

// PartitionEntities is the inter-stage variant of PartitionNew: it splits an
// upstream entity set into entities a downstream stage still has to process
// and the count it already holds.
func (s *Store) PartitionEntities(existing, incoming []model.Entity) (todo []model.Entity, known int) {
	for i := range incoming {
		if s.matchesExisting(existing, &incoming[i]) {
			known++
			continue
		}
		todo = append(todo, incoming[i].Clone())
	}
	return todo, known
}

func (s *Store) matchesExisting(existing []model.Entity, cand *model.Entity) bool {
	for i := range existing {
		if cand.HasResolvedURL() && existing[i].Domain == cand.Domain {
			return true
		}
		if s.res.SameEntity(&existing[i], cand) {
			return true
		}
	}
	return false
}

// Backup copies a stage's current artifacts aside with a timestamp suffix
// and returns the created paths. Missing artifacts are skipped.
func (s *Store) Backup(stage string) ([]string, error) {
	if err := s.requireWriter(); err != nil {
		return nil, err
	}
	stamp := time.Now().Format("20060102_150405")
	var created []string

	for _, src := range []string{s.JSONPath(stage), s.CSVPath(stage)} {
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return created, eris.Wrapf(err, "checkpoint: backup %s", stage)
		}
		ext := filepath.Ext(src)
		dst := strings.TrimSuffix(src, ext) + "_backup_" + stamp + ext
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return created, eris.Wrapf(err, "checkpoint: write backup %s", dst)
		}
		created = append(created, dst)
	}

	if len(created) > 0 {
		zap.L().Info("checkpoint: backed up stage artifacts",
			zap.String("stage", stage),
			zap.Int("files", len(created)),
		)
	}
	return created, nil
}

// atomicWrite writes data to a sibling temp file and renames it over path.
// Rename is atomic on POSIX filesystems, so the prior artifact survives any
// mid-write crash untouched.
func atomicWrite(path string, data []byte) error {
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
