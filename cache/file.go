package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileCache is a file-backed ephemeral cache. Entries live at
// <dir>/<key>.bin and freshness is evaluated against file mtime.
type FileCache struct {
	dir        string
	defaultTTL *int64
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string, defaultTTLSeconds *int64) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, defaultTTL: defaultTTLSeconds}, nil
}

// Get returns the cached bytes for key if present and fresh.
func (c *FileCache) Get(_ context.Context, key string, ttlSeconds *int64) ([]byte, bool, error) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	ttl := ttlSeconds
	if ttl == nil {
		ttl = c.defaultTTL
	}
	if ttl != nil {
		age := time.Since(info.ModTime())
		if age > time.Duration(*ttl)*time.Second {
			return nil, false, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Concurrent eviction between stat and read; treat as a miss.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put writes the entry via a temporary file and atomic rename.
func (c *FileCache) Put(_ context.Context, key string, data []byte) error {
	path := c.path(key)
	tmp, err := os.CreateTemp(c.dir, "entry-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// path restricts entries to a flat filename scheme below dir; keys are
// fingerprint hex, never caller-supplied paths.
func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".bin")
}
