// Package store provides the ingestion persistence layer.
//
// This package implements the Store interface for tracking uploaded files,
// their planned chunks, and the records produced by chunk execution.
//
// Two backends are supported:
//   - SQLite (single-node, default)
//   - PostgreSQL (HA-capable)
package store

import (
	"context"

	"github.com/marmos91/granula/pkg/models"
)

// Store provides the ingestion persistence interface.
//
// State transitions that race between workers (claiming a chunk, recording
// its outcome, finalizing a file) are expressed as compare-and-swap updates
// so that concurrent workers cannot double-count or finalize twice.
//
// Thread Safety: Implementations must be safe for concurrent use from
// multiple goroutines.
type Store interface {
	// ============================================
	// FILE OPERATIONS
	// ============================================

	// CreateFile creates a new file row.
	// The file ID will be generated if empty.
	// Returns the generated ID.
	// Returns models.ErrDuplicateFile if a file with the same ID exists.
	CreateFile(ctx context.Context, file *models.File) (string, error)

	// GetFile returns a file by ID.
	// Returns models.ErrFileNotFound if the file doesn't exist.
	GetFile(ctx context.Context, id string) (*models.File, error)

	// ListFiles returns all files, most recently created first.
	ListFiles(ctx context.Context) ([]*models.File, error)

	// SetFileStatus transitions a file from one status to another.
	// Returns true if the transition happened, false if the file was not in
	// the expected status (or doesn't exist).
	SetFileStatus(ctx context.Context, id string, from, to models.FileStatus) (bool, error)

	// SetFileFailed marks a file as failed with a reason. Files already in a
	// terminal status are left untouched and false is returned.
	SetFileFailed(ctx context.Context, id, reason string) (bool, error)

	// MarkFilePlanned records that planning finished: it stamps planned_at
	// and sets the total chunk count in one update.
	// Returns models.ErrFileNotFound if the file doesn't exist.
	MarkFilePlanned(ctx context.Context, id string, totalChunks int) error

	// FilesNeedingRecovery returns non-terminal files, oldest first. Callers
	// distinguish files that still need planning (PlannedAt is nil) from
	// files whose remaining chunks just need re-enqueueing.
	FilesNeedingRecovery(ctx context.Context) ([]*models.File, error)

	// ResetFileForReplan wipes any partial planning output for a file:
	// chunk rows, records, counters and the planned_at stamp. The file is
	// put back in the queued status. Used on startup for files whose
	// planner died mid-flight.
	ResetFileForReplan(ctx context.Context, id string) error

	// ============================================
	// CHUNK OPERATIONS
	// ============================================

	// CreateChunks inserts the planned chunk rows for a file in one
	// transaction. Chunk IDs are generated if empty.
	// Returns models.ErrDuplicateChunk if any (file, index) pair exists.
	CreateChunks(ctx context.Context, chunks []*models.Chunk) error

	// GetChunk returns a chunk by ID.
	// Returns models.ErrChunkNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)

	// ListChunks returns all chunks of a file ordered by chunk index.
	ListChunks(ctx context.Context, fileID string) ([]*models.Chunk, error)

	// PendingChunks returns a file's chunks still in the queued status,
	// ordered by chunk index. Used to re-enqueue work after a restart.
	PendingChunks(ctx context.Context, fileID string) ([]*models.Chunk, error)

	// ClaimChunk transitions a chunk from queued to processing and
	// increments its attempt counter. Returns the claimed chunk and true,
	// or false if the chunk was not claimable (already claimed or
	// terminal). Only the caller that observes true owns the chunk.
	ClaimChunk(ctx context.Context, id string) (*models.Chunk, bool, error)

	// CompleteChunk persists a chunk's records and marks it completed in a
	// single transaction, advancing the file's processed counter. The
	// update is guarded on the processing status so a duplicate delivery
	// cannot double-insert records or double-count.
	// Returns false if the chunk was not in the processing status.
	CompleteChunk(ctx context.Context, id string, records []models.ProcessedRecord) (bool, error)

	// FailChunk marks a processing chunk as permanently failed and advances
	// the file's failed counter in one transaction.
	// Returns false if the chunk was not in the processing status.
	FailChunk(ctx context.Context, id, reason string) (bool, error)

	// RequeueChunk returns a processing chunk to the queued status after a
	// transient failure, recording the error for observability. The attempt
	// counter keeps its value; it only advances on claim.
	// Returns false if the chunk was not in the processing status.
	RequeueChunk(ctx context.Context, id, reason string) (bool, error)

	// FinalizeFileIfDone atomically moves a file to its terminal status once
	// every chunk is accounted for. Exactly one caller observes finalized
	// true; the status returned reflects the file's state either way.
	// Returns models.ErrFileNotFound if the file doesn't exist.
	FinalizeFileIfDone(ctx context.Context, fileID string) (status models.FileStatus, finalized bool, err error)

	// ============================================
	// RECORD OPERATIONS
	// ============================================

	// ListRecords returns a page of a file's records ordered by
	// (chunk_index, id), plus the total record count for the file.
	// Returns models.ErrFileNotFound if the file doesn't exist.
	ListRecords(ctx context.Context, fileID string, limit, offset int) ([]*models.ProcessedRecord, int64, error)

	// CountRecords returns the total number of records across all files.
	CountRecords(ctx context.Context) (int64, error)

	// ============================================
	// ADMIN OPERATIONS
	// ============================================

	// CountFilesByStatus returns the number of files in each status.
	CountFilesByStatus(ctx context.Context) (map[models.FileStatus]int64, error)

	// PurgeAll deletes every file, chunk and record.
	// Returns the number of files removed.
	PurgeAll(ctx context.Context) (int64, error)

	// ============================================
	// HEALTH & LIFECYCLE
	// ============================================

	// Healthcheck verifies the store is operational.
	// Returns an error if the store is not healthy.
	Healthcheck(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}
