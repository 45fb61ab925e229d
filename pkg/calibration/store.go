// Package calibration persists the distance constant K and runs the
// interactive session that measures it.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFile is where the record lives unless configured otherwise.
const DefaultFile = "calibration.json"

// Record is the persisted calibration. A nil K means uncalibrated.
type Record struct {
	K *float64 `json:"K"`
}

// IsSet reports whether K has been measured.
func (r Record) IsSet() bool {
	return r.K != nil
}

// Value returns K, or 0 when unset.
func (r Record) Value() float64 {
	if r.K == nil {
		return 0
	}
	return *r.K
}

// Store loads and saves a Record.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// FileStore keeps the record in a small JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the record. A missing file is an uncalibrated record.
func (s *FileStore) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if rec.K != nil {
		if err := validK(*rec.K); err != nil {
			return Record{}, fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	return rec, nil
}

// Save writes the record via a temp file and rename.
func (s *FileStore) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Calibration is the in-memory K shared by the estimator and the session.
type Calibration struct {
	store Store

	mu  sync.RWMutex
	rec Record
}

// Open loads the current record from store.
func Open(store Store) (*Calibration, error) {
	rec, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Calibration{store: store, rec: rec}, nil
}

// K returns a copy of the current constant, nil when uncalibrated.
func (c *Calibration) K() *float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rec.K == nil {
		return nil
	}
	k := *c.rec.K
	return &k
}

// Record returns a snapshot of the record.
func (c *Calibration) Record() Record {
	return Record{K: c.K()}
}

// Commit sets K and persists it immediately. Memory is only updated once
// the write succeeds.
func (c *Calibration) Commit(k float64) error {
	if err := validK(k); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := Record{K: &k}
	if err := c.store.Save(rec); err != nil {
		return err
	}
	c.rec = rec
	return nil
}

// Reset clears K and persists the uncalibrated record.
func (c *Calibration) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(Record{}); err != nil {
		return err
	}
	c.rec = Record{}
	return nil
}

func validK(k float64) error {
	if !(k > 0) || math.IsInf(k, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidK, k)
	}
	return nil
}
