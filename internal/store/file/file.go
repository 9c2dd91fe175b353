// Package file stores tracker documents as JSON files in a data directory.
//
// Writes are atomic: data goes to a temporary file that is renamed into
// place. An flock(2) lock file in the same directory is held shared by
// readers and exclusive by writers across processes.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karmanspace/tracker/internal/store/blobstore"
)

// Store is a blobstore.Blob backed by files in a directory.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns a Store for it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file that holds key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key)
}

// Get reads the file for key under a shared directory lock.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := withLock(ctx, s.dir, Shared, func() error {
		var err error
		data, err = os.ReadFile(s.Path(key))
		if os.IsNotExist(err) {
			return blobstore.ErrMissing
		}
		if err != nil {
			return fmt.Errorf("read state file: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Put atomically replaces the file for key under an exclusive directory lock.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	return withLock(ctx, s.dir, Exclusive, func() error {
		target := s.Path(key)
		tmp := target + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := os.Rename(tmp, target); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	})
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid document key %q", key)
	}
	return nil
}
