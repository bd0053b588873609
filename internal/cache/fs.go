package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore persists one JSON file per chunk under a root directory. Entries
// stay human-inspectable, so an analyst can open a chunk file and see
// exactly what a run fetched for those days.
type FSStore struct {
	dir string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// path maps a store key to a file path. Key segments become directories;
// characters unfit for file names are replaced.
func (s *FSStore) path(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, ":", "_")
	}
	return filepath.Join(append([]string{s.dir}, parts...)...) + ".json"
}

// Get reads the entry file for key. A missing file is a miss, not an error.
func (s *FSStore) Get(_ context.Context, key string) (Entry, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return e, true, nil
}

// Put writes the entry atomically: temp file in the same directory, then
// rename over the final path.
func (s *FSStore) Put(_ context.Context, key string, e Entry) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache subdir: %w", err)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry file; missing files are fine.
func (s *FSStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}

// Len counts entry files under the root.
func (s *FSStore) Len(_ context.Context) (int, error) {
	n := 0
	err := filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk cache dir: %w", err)
	}
	return n, nil
}

// Purge removes every entry and recreates the empty root.
func (s *FSStore) Purge(_ context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("purge cache dir: %w", err)
	}
	return os.MkdirAll(s.dir, 0o755)
}

// Close is a no-op for the file store.
func (s *FSStore) Close() error { return nil }
