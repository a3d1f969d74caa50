package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// File permission constants.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// ErrCorrupt indicates a state file that exists but cannot be parsed.
// Starting over would silently move the watermark, so this is fatal.
var ErrCorrupt = errors.New("state: corrupt state file")

// State is the runtime section rewritten on every checkpoint.
type State struct {
	Token           string     `yaml:"token,omitempty"`
	TokenExpiration time.Time  `yaml:"token_expiration,omitempty"`
	CustomerID      int64      `yaml:"customer_id,omitempty"`
	LastRunEnd      *time.Time `yaml:"last_run_end,omitempty"`
}

// Watermark returns the end of the last successful window, or nil before the
// first successful run.
func (s *State) Watermark() *time.Time {
	if s.LastRunEnd == nil || s.LastRunEnd.IsZero() {
		return nil
	}
	t := s.LastRunEnd.UTC()
	return &t
}

// Advance moves the watermark to end.
func (s *State) Advance(end time.Time) {
	t := end.UTC()
	s.LastRunEnd = &t
}

// FileStore reads and writes State as YAML at a fixed path.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the state file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields an empty State.
func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	st := &State{}
	if err := yaml.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	return st, nil
}

// Save atomically replaces the state file with st.
func (s *FileStore) Save(st *State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // No-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("syncing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing state: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		return fmt.Errorf("setting state permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
