// Package blob stores uploaded file payloads and serves byte-addressed
// reads over them.
//
// Uploads are written once at admission time and then read back by the
// planner (a full scan) and by workers (a seek to the chunk's start offset).
// Two backends are supported:
//   - filesystem (single-node, default)
//   - S3 or any S3-compatible endpoint such as MinIO
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Store errors
var (
	// ErrNotFound indicates the object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("blob store is closed")
)

// Store is the payload storage interface.
//
// Implementations must be safe for concurrent use: an upload can be written
// while workers stream ranges of other objects.
type Store interface {
	// Save streams the payload into the store under the given key and
	// returns the number of bytes written. An existing object under the
	// same key is replaced.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)

	// Open returns a reader over the full object.
	// Returns ErrNotFound if the object does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// OpenRange returns a reader starting at the given byte offset and
	// running to the end of the object. An offset at or past the end
	// yields an empty reader, mirroring what a seek past EOF reads.
	// Returns ErrNotFound if the object does not exist.
	OpenRange(ctx context.Context, key string, offset uint64) (io.ReadCloser, error)

	// Size returns the object's size in bytes.
	// Returns ErrNotFound if the object does not exist.
	Size(ctx context.Context, key string) (int64, error)

	// Exists reports whether the object exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error

	// Purge deletes every object in the store.
	// Returns the number of objects removed.
	Purge(ctx context.Context) (int64, error)

	// Backend returns the backend name for logging and status output.
	Backend() string

	// Healthcheck verifies the store is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// BackendType selects the payload storage backend.
type BackendType string

const (
	// BackendFilesystem stores payloads under a local directory.
	BackendFilesystem BackendType = "filesystem"

	// BackendS3 stores payloads in an S3 bucket.
	BackendS3 BackendType = "s3"
)

// Config contains payload storage configuration.
type Config struct {
	Backend BackendType
	FS      FSConfig
	S3      S3Config
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFilesystem
	}
	c.FS.applyDefaults()
	c.S3.applyDefaults()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFilesystem:
		if c.FS.Path == "" {
			return fmt.Errorf("filesystem storage requires a path")
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Backend)
	}
	return nil
}

// New creates the configured payload store.
func New(ctx context.Context, config *Config) (Store, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	switch config.Backend {
	case BackendFilesystem:
		return NewFSStore(config.FS)
	case BackendS3:
		return NewS3Store(ctx, config.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", config.Backend)
	}
}

// MakeKey derives the storage key for an uploaded file. The original
// filename contributes only its extension; the unique file ID keeps
// concurrent uploads of the same name from colliding. Files without an
// extension are stored as .dat.
func MakeKey(fileID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 16 {
		ext = ".dat"
	}
	return fileID + ext
}

// retryConfig bounds the retry loop used by remote backends.
type retryConfig struct {
	maxRetries        uint
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// calculateBackoff returns the backoff duration for a given attempt.
func (r retryConfig) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.initialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= r.backoffMultiplier
	}
	if backoff > float64(r.maxBackoff) {
		backoff = float64(r.maxBackoff)
	}
	return time.Duration(backoff)
}
