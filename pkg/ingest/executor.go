package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/internal/telemetry"
	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

// ExecutorConfig tunes chunk execution.
type ExecutorConfig struct {
	// Backoff computes the delay before a requeued chunk runs again.
	Backoff BackoffPolicy

	// MaxRetries is how many times a chunk is retried after its first
	// attempt before failing permanently.
	MaxRetries int

	// DeleteOnComplete removes the payload from blob storage once every
	// chunk of its file completed successfully.
	DeleteOnComplete bool
}

// Executor runs a single chunk end to end: claim it, re-read its rows from
// the payload, commit them, and arbitrate between retry and permanent
// failure when something breaks.
//
// All state transitions go through the store's compare-and-swap operations,
// so a task delivered twice is harmless: the second claim simply loses.
type Executor struct {
	store   store.Store
	blobs   blob.Store
	queue   *Queue
	config  ExecutorConfig
	metrics Metrics
}

// NewExecutor creates an executor that schedules retries back onto queue.
func NewExecutor(st store.Store, blobs blob.Store, queue *Queue, cfg ExecutorConfig, m Metrics) *Executor {
	return &Executor{
		store:   st,
		blobs:   blobs,
		queue:   queue,
		config:  cfg,
		metrics: m,
	}
}

// Process executes one chunk task. Errors are handled internally: transient
// failures are requeued with backoff, permanent ones settle the chunk. The
// task itself is disposable; the chunk row holds the durable state.
func (e *Executor) Process(ctx context.Context, task *ChunkTask) {
	ctx, span := telemetry.StartChunkSpan(ctx, task.FileID, task.ChunkIndex,
		telemetry.ChunkID(task.ChunkID))
	defer span.End()

	start := time.Now()

	chunk, claimed, err := e.store.ClaimChunk(ctx, task.ChunkID)
	if err != nil {
		// The chunk row still says queued, so a restart re-enqueues it.
		logger.Error("Failed to claim chunk",
			logger.ChunkID(task.ChunkID),
			logger.FileID(task.FileID),
			logger.Err(err))
		return
	}
	if !claimed {
		logger.Debug("Chunk not claimable, skipping",
			logger.ChunkID(task.ChunkID),
			logger.FileID(task.FileID),
			logger.ChunkIndex(task.ChunkIndex))
		return
	}

	span.SetAttributes(telemetry.Attempt(chunk.Attempts))

	meta, err := chunk.GetMeta()
	if err != nil {
		// A chunk without a readable location can never execute.
		e.failChunk(ctx, task, chunk, err)
		return
	}

	rows, err := ReadChunk(ctx, e.blobs, task.StorageKey, meta.StartCookie, meta.NumRows)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			// Retrying cannot bring the payload back.
			e.failChunk(ctx, task, chunk, fmt.Errorf("payload missing from storage: %w", err))
			return
		}
		e.retryOrFail(ctx, task, chunk, err)
		return
	}

	records := make([]models.ProcessedRecord, 0, len(rows))
	for _, row := range rows {
		record, err := models.NewRecord(task.FileID, task.ChunkIndex, row)
		if err != nil {
			e.failChunk(ctx, task, chunk, err)
			return
		}
		records = append(records, record)
	}

	committed, err := e.store.CompleteChunk(ctx, task.ChunkID, records)
	if err != nil {
		e.retryOrFail(ctx, task, chunk, fmt.Errorf("failed to commit chunk: %w", err))
		return
	}
	if !committed {
		logger.Debug("Chunk no longer processing, commit skipped",
			logger.ChunkID(task.ChunkID),
			logger.FileID(task.FileID))
		return
	}

	observeCompleted(e.metrics, len(records), time.Since(start))
	logger.Info("Chunk completed",
		logger.FileID(task.FileID),
		logger.ChunkIndex(task.ChunkIndex),
		logger.Records(len(records)),
		logger.Attempt(chunk.Attempts),
		logger.DurationMs(logger.Duration(start)))

	e.finalize(ctx, task)
}

// retryOrFail settles a transient failure: requeue with backoff while the
// attempt budget lasts, fail permanently once it is spent. The attempt
// counter advanced when the chunk was claimed, so it already counts the
// attempt that just failed.
func (e *Executor) retryOrFail(ctx context.Context, task *ChunkTask, chunk *models.Chunk, cause error) {
	telemetry.RecordError(ctx, cause)

	if chunk.Attempts > e.config.MaxRetries {
		e.failChunk(ctx, task, chunk, cause)
		return
	}

	requeued, err := e.store.RequeueChunk(ctx, task.ChunkID, cause.Error())
	if err != nil {
		logger.Error("Failed to requeue chunk",
			logger.ChunkID(task.ChunkID),
			logger.FileID(task.FileID),
			logger.Err(err))
		return
	}
	if !requeued {
		return
	}

	delay := e.config.Backoff.Delay(chunk.Attempts)
	observeRetried(e.metrics)
	logger.Warn("Chunk failed, retrying",
		logger.FileID(task.FileID),
		logger.ChunkIndex(task.ChunkIndex),
		logger.Attempt(chunk.Attempts),
		logger.MaxRetries(e.config.MaxRetries),
		logger.Backoff(delay),
		logger.Err(cause))

	retry := *task
	retry.Attempts = chunk.Attempts
	time.AfterFunc(delay, func() {
		e.queue.Push(&retry)
	})
}

// failChunk marks a chunk permanently failed and checks whether that settles
// the file.
func (e *Executor) failChunk(ctx context.Context, task *ChunkTask, chunk *models.Chunk, cause error) {
	failed, err := e.store.FailChunk(ctx, task.ChunkID, cause.Error())
	if err != nil {
		logger.Error("Failed to mark chunk failed",
			logger.ChunkID(task.ChunkID),
			logger.FileID(task.FileID),
			logger.Err(err))
		return
	}
	if !failed {
		return
	}

	observeFailed(e.metrics)
	logger.Error("Chunk failed permanently",
		logger.FileID(task.FileID),
		logger.ChunkIndex(task.ChunkIndex),
		logger.Attempt(chunk.Attempts),
		logger.Err(cause))

	e.finalize(ctx, task)
}

// finalize moves the file to its terminal status once every chunk is
// settled. Exactly one worker wins the transition; it also disposes of the
// payload when configured to.
func (e *Executor) finalize(ctx context.Context, task *ChunkTask) {
	status, finalized, err := e.store.FinalizeFileIfDone(ctx, task.FileID)
	if err != nil {
		logger.Error("Failed to finalize file",
			logger.FileID(task.FileID),
			logger.Err(err))
		return
	}
	if !finalized {
		return
	}

	observeFinalized(e.metrics, string(status))
	logger.Info("File finished",
		logger.FileID(task.FileID),
		logger.FileStatus(string(status)))

	if status == models.FileStatusCompleted && e.config.DeleteOnComplete {
		if err := e.blobs.Remove(ctx, task.StorageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logger.Warn("Failed to remove payload after completion",
				logger.Key(task.StorageKey),
				logger.Err(err))
		}
	}
}
