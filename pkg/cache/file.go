package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCachePath returns $BCDATA_CACHE if set, otherwise ~/.bcdata.
func DefaultCachePath() string {
	if p := os.Getenv("BCDATA_CACHE"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bcdata"
	}
	return filepath.Join(home, ".bcdata")
}

// FileBackend stores entries as files under a cache directory.
type FileBackend struct {
	root string
}

// NewFileBackend creates the cache directory if needed. A stale regular
// file named .bcdata at the path (left behind by old releases that cached
// to a single file) is removed; any other file in the way is an error the
// user has to resolve.
func NewFileBackend(root string) (*FileBackend, error) {
	info, err := os.Stat(root)
	if err == nil && !info.IsDir() {
		if filepath.Base(root) == ".bcdata" {
			if err := os.Remove(root); err != nil {
				return nil, fmt.Errorf("remove stale cache file %s: %w", root, err)
			}
		} else {
			return nil, fmt.Errorf("cache file exists, delete before using: %s", root)
		}
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", root, err)
	}

	return &FileBackend{root: root}, nil
}

// Name implements Backend.
func (b *FileBackend) Name() string {
	return "file"
}

// Get implements Backend.
func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// Set implements Backend. The advisory ttl is ignored; expiry lives inside
// the entry and is checked by the manager. Writes are atomic via rename.
func (b *FileBackend) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	path := b.path(key)

	tmp, err := os.CreateTemp(b.root, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Delete implements Backend.
func (b *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// path maps a cache key to a file name. Keys are table names and fixed
// labels; separators are flattened so every key stays a single path element.
func (b *FileBackend) path(key string) string {
	name := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(key)
	return filepath.Join(b.root, name)
}
