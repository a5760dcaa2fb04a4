// Package checkpoint persists job progress as a single JSON document that is
// replaced in full on every save.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

var (
	// ErrCorrupt is returned by Load under strict recovery when the snapshot
	// cannot be parsed.
	ErrCorrupt = eris.New("checkpoint is unreadable")

	// ErrLocked means another process holds the store's lock file.
	ErrLocked = eris.New("checkpoint is locked by another process")
)

// State is the job snapshot shared by the checkpoint and the published output.
type State struct {
	ProcessedCount int             `json:"processed_count"`
	Results        []enrich.Record `json:"results"`
}

// Empty returns a fresh job state.
func Empty() State {
	return State{Results: []enrich.Record{}}
}

// Append adds one record and keeps ProcessedCount in step with Results.
func (s *State) Append(rec enrich.Record) {
	s.Results = append(s.Results, rec)
	s.ProcessedCount = len(s.Results)
}

// AlreadyProcessed returns the exact names present in results.
func AlreadyProcessed(s State) map[string]struct{} {
	done := make(map[string]struct{}, len(s.Results))
	for _, r := range s.Results {
		done[r.Name] = struct{}{}
	}
	return done
}

type Options struct {
	Logger *zap.Logger

	// StrictRecovery makes Load fail with ErrCorrupt instead of starting over
	// when the snapshot is unreadable.
	StrictRecovery bool
}

// Store reads and writes one snapshot file.
type Store struct {
	path   string
	logger *zap.Logger
	strict bool
	lock   *flock.Flock
}

func New(path string, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &Store{
		path:   path,
		logger: logger.With(zap.String("path", path)),
		strict: opts.StrictRecovery,
		lock:   flock.New(path + ".lock"),
	}
}

func (s *Store) Path() string { return s.path }

// Exists reports whether a snapshot file is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, eris.Wrapf(err, "stat %s", s.path)
}

// Load returns the persisted state. A missing file yields an empty state. An
// unparsable file is moved aside, logged at error level, and replaced by an
// empty state unless strict recovery is on.
func (s *Store) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return State{}, eris.Wrapf(err, "read checkpoint %s", s.path)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return s.recoverCorrupt(err)
	}
	if st.Results == nil {
		st.Results = []enrich.Record{}
	}
	if st.ProcessedCount != len(st.Results) {
		s.logger.Warn("checkpoint processed_count disagrees with results; using results",
			zap.Int("processed_count", st.ProcessedCount),
			zap.Int("results", len(st.Results)),
		)
		st.ProcessedCount = len(st.Results)
	}
	return st, nil
}

func (s *Store) recoverCorrupt(cause error) (State, error) {
	if s.strict {
		s.logger.Error("checkpoint is unreadable; refusing to start over", zap.Error(cause))
		return State{}, eris.Wrapf(ErrCorrupt, "%s: %v", s.path, cause)
	}

	backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, backup); err != nil {
		s.logger.Warn("could not move unreadable checkpoint aside", zap.Error(err))
		backup = ""
	}
	s.logger.Error("checkpoint is unreadable; starting from an empty state",
		zap.Error(cause),
		zap.String("backup", backup),
		zap.String("impact", "previously processed entities will be classified again"),
	)
	return Empty(), nil
}

// Save replaces the snapshot with st. The file is written to a temp sibling,
// synced and renamed, so readers see either the old or the new snapshot.
func (s *Store) Save(st State) error {
	staged, err := s.Stage(st)
	if err != nil {
		return err
	}
	return staged.Commit()
}

// Staged is a fully written snapshot waiting to replace the live file.
type Staged struct {
	tmp  string
	path string
}

// Stage writes st to a synced temp file next to the snapshot without touching
// the snapshot itself. Callers must Commit or Abort.
func (s *Store) Stage(st State) (*Staged, error) {
	if st.Results == nil {
		st.Results = []enrich.Record{}
	}
	st.ProcessedCount = len(st.Results)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "marshal checkpoint")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create checkpoint directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return nil, eris.Wrap(err, "create temp file")
	}
	staged := &Staged{tmp: tmp.Name(), path: s.path}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		staged.Abort()
		return nil, eris.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		staged.Abort()
		return nil, eris.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		staged.Abort()
		return nil, eris.Wrap(err, "close temp file")
	}
	return staged, nil
}

// Commit renames the staged file over the snapshot.
func (p *Staged) Commit() error {
	if err := os.Rename(p.tmp, p.path); err != nil {
		p.Abort()
		return eris.Wrapf(err, "replace %s", p.path)
	}
	syncDir(filepath.Dir(p.path))
	return nil
}

// Abort removes the staged file. Safe to call after Commit.
func (p *Staged) Abort() {
	_ = os.Remove(p.tmp)
}

// Discard removes the snapshot. A missing file is not an error.
func (s *Store) Discard() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "remove checkpoint %s", s.path)
	}
	return nil
}

// Lock takes the store's lock file without blocking.
func (s *Store) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "create lock directory")
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return eris.Wrapf(err, "acquire lock %s", s.lock.Path())
	}
	if !ok {
		return eris.Wrapf(ErrLocked, "%s", s.lock.Path())
	}
	return nil
}

func (s *Store) Unlock() error {
	if err := s.lock.Unlock(); err != nil {
		return eris.Wrapf(err, "release lock %s", s.lock.Path())
	}
	return nil
}

// syncDir makes a rename durable on filesystems that need it. Failures are
// ignored; not every platform allows opening a directory for sync.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
