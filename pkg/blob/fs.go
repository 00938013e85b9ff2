package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/granula/internal/logger"
)

// tmpSuffix marks in-flight writes. Readers and Purge skip these files.
const tmpSuffix = ".tmp"

// FSConfig contains filesystem backend configuration.
type FSConfig struct {
	// Path is the directory payloads are stored under.
	Path string

	// CreateDir creates the directory if it does not exist.
	CreateDir bool

	// DirMode is the permission mode for created directories.
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	FileMode os.FileMode
}

func (c *FSConfig) applyDefaults() {
	if c.DirMode == 0 {
		c.DirMode = 0755
	}
	if c.FileMode == 0 {
		c.FileMode = 0644
	}
}

// FSStore stores payloads as files under a base directory.
//
// Writes are atomic: the payload is streamed to a temporary file and
// renamed into place, so readers never observe a partial object.
type FSStore struct {
	mu       sync.RWMutex
	basePath string
	config   FSConfig
	closed   bool
}

// NewFSStore creates a filesystem payload store rooted at config.Path.
func NewFSStore(config FSConfig) (*FSStore, error) {
	config.applyDefaults()
	if config.Path == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}

	basePath, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}

	if config.CreateDir {
		if err := os.MkdirAll(basePath, config.DirMode); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage path is not a directory: %s", basePath)
	}

	logger.Debug("filesystem payload store initialized", "path", basePath)

	return &FSStore{
		basePath: basePath,
		config:   config,
	}, nil
}

// objectPath maps a key onto the local filesystem.
func (s *FSStore) objectPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *FSStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save streams the payload to a temporary file and renames it into place.
func (s *FSStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), s.config.DirMode); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmpPath := path + tmpSuffix
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.config.FileMode)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file for %s: %w", key, err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close temporary file for %s: %w", key, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to finalize %s: %w", key, err)
	}

	return written, nil
}

// Open returns a reader over the full object.
func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.OpenRange(ctx, key, 0)
}

// OpenRange returns a reader positioned at the given offset.
func (s *FSStore) OpenRange(ctx context.Context, key string, offset uint64) (io.ReadCloser, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	if offset > 0 {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to stat %s: %w", key, err)
		}
		if offset >= uint64(info.Size()) {
			f.Close()
			return io.NopCloser(bytes.NewReader(nil)), nil
		}
		if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to seek %s to offset %d: %w", key, offset, err)
		}
	}

	return f, nil
}

// Size returns the object's size in bytes.
func (s *FSStore) Size(ctx context.Context, key string) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	info, err := os.Stat(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return info.Size(), nil
}

// Exists reports whether the object exists.
func (s *FSStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	_, err := os.Stat(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes the object and prunes empty parent directories.
func (s *FSStore) Remove(ctx context.Context, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	path := s.objectPath(key)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	s.cleanEmptyDirs(filepath.Dir(path))
	return nil
}

// Purge deletes every stored object.
func (s *FSStore) Purge(ctx context.Context) (int64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var removed int64
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tmpSuffix) {
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk storage directory: %w", err)
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read storage directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.basePath, entry.Name())); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	return removed, nil
}

// cleanEmptyDirs removes empty directories walking up towards the base path.
func (s *FSStore) cleanEmptyDirs(dir string) {
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// Backend returns the backend name.
func (s *FSStore) Backend() string {
	return string(BackendFilesystem)
}

// Healthcheck verifies the base directory is accessible.
func (s *FSStore) Healthcheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("storage directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage path is not a directory: %s", s.basePath)
	}
	return nil
}

// Close marks the store as closed.
func (s *FSStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*FSStore)(nil)
