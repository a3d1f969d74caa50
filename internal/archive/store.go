package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// File permission constants.
const (
	dirPermissions  = 0750
	filePermissions = 0640
)

// archiveDir is the subdirectory of the data folder holding ingested files.
const archiveDir = "archive"

// Entry is a pending raw response file.
type Entry struct {
	Key  Key
	Path string
}

// Store manages raw files under a data folder.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dataFolder.
func NewStore(dataFolder string) *Store {
	return &Store{root: dataFolder}
}

// Root returns the data folder.
func (s *Store) Root() string {
	return s.root
}

// Save writes body as the pending file for k and returns its path.
// An existing file for the same key is replaced.
func (s *Store) Save(k Key, body []byte) (string, error) {
	name, err := Name(k)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.root, dirPermissions); err != nil {
		return "", fmt.Errorf("creating data folder: %w", err)
	}

	path := filepath.Join(s.root, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, filePermissions); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck // Best effort cleanup
		return "", fmt.Errorf("renaming %s: %w", name, err)
	}
	return path, nil
}

// Read returns the content of a pending file.
func (s *Store) Read(e Entry) ([]byte, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(e.Path), err)
	}
	return data, nil
}

// Pending lists files in the data folder that match the naming schema,
// ordered by window start, then by name. Other files are ignored and
// reported in skipped.
func (s *Store) Pending() (entries []Entry, skipped []string, err error) {
	dirents, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("listing data folder: %w", err)
	}

	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		k, err := ParseName(d.Name())
		if err != nil {
			skipped = append(skipped, d.Name())
			continue
		}
		entries = append(entries, Entry{Key: k, Path: filepath.Join(s.root, d.Name())})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Key.Window.Start.Equal(b.Key.Window.Start) {
			return a.Key.Window.Start.Before(b.Key.Window.Start)
		}
		return a.Path < b.Path
	})
	return entries, skipped, nil
}

// Archive moves a pending file into archive/YYYY-MM-DD/ by its window
// start and returns the new path.
func (s *Store) Archive(e Entry) (string, error) {
	dir := filepath.Join(s.root, archiveDir, e.Key.Window.Start.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	dest := filepath.Join(dir, filepath.Base(e.Path))
	if err := os.Rename(e.Path, dest); err != nil {
		return "", fmt.Errorf("archiving %s: %w", filepath.Base(e.Path), err)
	}
	return dest, nil
}
