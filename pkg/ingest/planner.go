package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/internal/telemetry"
	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

// Planner splits an uploaded payload into chunks of at most rowsPerChunk
// CSV rows, each addressed by the byte offset of its first row.
//
// Planning is a single sequential scan: the chunk rows are committed in one
// transaction and the file's total is stamped only after every chunk row
// exists. A crash before the stamp leaves planned_at unset, which is how
// startup recovery knows to wipe the partial plan and scan again.
type Planner struct {
	store        store.Store
	blobs        blob.Store
	rowsPerChunk uint32
	metrics      Metrics
}

// NewPlanner creates a planner producing chunks of rowsPerChunk rows.
func NewPlanner(st store.Store, blobs blob.Store, rowsPerChunk int, m Metrics) *Planner {
	if rowsPerChunk <= 0 {
		rowsPerChunk = DefaultChunkSize
	}
	return &Planner{
		store:        st,
		blobs:        blobs,
		rowsPerChunk: uint32(rowsPerChunk),
		metrics:      m,
	}
}

// Plan takes ownership of a queued file, scans its payload and writes the
// chunk plan. It returns the tasks to schedule, already carrying the file's
// priority and storage key.
//
// Only the caller that wins the queued to processing transition plans the
// file; every other caller gets (nil, nil). A payload that cannot be read
// or parsed fails the whole file and no chunks are created. Store errors
// are returned as-is: the file is left processing without a planned_at
// stamp, and startup recovery will re-plan it.
func (p *Planner) Plan(ctx context.Context, fileID string) ([]*ChunkTask, error) {
	ctx, span := telemetry.StartIngestSpan(ctx, "plan", fileID)
	defer span.End()

	file, err := p.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	claimed, err := p.store.SetFileStatus(ctx, fileID, models.FileStatusQueued, models.FileStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		logger.Debug("Skipping plan, file is not queued",
			logger.FileID(fileID),
			logger.FileStatus(string(file.Status)))
		return nil, nil
	}

	chunks, rows, err := p.scan(ctx, file)
	if err != nil {
		// Shutdown mid-scan must not fail the file: recovery re-plans it.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		telemetry.RecordError(ctx, err)
		observePlanFailed(p.metrics)
		if _, failErr := p.store.SetFileFailed(ctx, fileID, err.Error()); failErr != nil {
			logger.Error("Failed to mark file failed after plan error",
				logger.FileID(fileID),
				logger.Err(failErr))
		}
		logger.Warn("Planning failed",
			logger.FileID(fileID),
			logger.Filename(file.Filename),
			logger.Err(err))
		return nil, err
	}

	if len(chunks) == 0 {
		if err := p.store.MarkFilePlanned(ctx, fileID, 0); err != nil {
			return nil, err
		}
		if _, err := p.store.SetFileStatus(ctx, fileID, models.FileStatusProcessing, models.FileStatusCompleted); err != nil {
			return nil, err
		}
		logger.Info("File has no rows, completed without chunks", logger.FileID(fileID))
		return nil, nil
	}

	if err := p.store.CreateChunks(ctx, chunks); err != nil {
		return nil, err
	}
	if err := p.store.MarkFilePlanned(ctx, fileID, len(chunks)); err != nil {
		return nil, err
	}

	observePlanned(p.metrics, len(chunks))
	span.SetAttributes(telemetry.TotalChunks(len(chunks)))
	logger.Info("Planned file",
		logger.FileID(fileID),
		logger.Filename(file.Filename),
		logger.TotalChunks(len(chunks)),
		logger.Rows(rows))

	tasks := make([]*ChunkTask, 0, len(chunks))
	for _, chunk := range chunks {
		meta, err := chunk.GetMeta()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &ChunkTask{
			FileID:      fileID,
			ChunkID:     chunk.ID,
			ChunkIndex:  chunk.ChunkIndex,
			StorageKey:  file.StorageKey,
			StartCookie: meta.StartCookie,
			NumRows:     meta.NumRows,
			Priority:    file.Priority,
		})
	}
	return tasks, nil
}

// scan reads the payload once, cutting a chunk every rowsPerChunk rows.
// Returns the chunk rows to insert and the total row count.
//
// The offset recorded for each chunk comes from csv.Reader.InputOffset,
// which after a successful Read points at the first byte of the next row.
// That makes every start cookie a row boundary, including rows with quoted
// embedded newlines, so workers can parse from the cookie without scanning.
func (p *Planner) scan(ctx context.Context, file *models.File) ([]*models.Chunk, int, error) {
	rc, err := p.blobs.Open(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, 0, fmt.Errorf("payload missing from storage: %w", err)
		}
		return nil, 0, fmt.Errorf("failed to open payload: %w", err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	var (
		chunks []*models.Chunk
		start  uint64
		rows   uint32
		total  int
	)

	appendChunk := func() error {
		chunk := &models.Chunk{
			FileID:     file.ID,
			ChunkIndex: len(chunks),
			Status:     models.ChunkStatusQueued,
		}
		if err := chunk.SetMeta(models.ChunkMeta{StartCookie: start, NumRows: rows}); err != nil {
			return err
		}
		chunks = append(chunks, chunk)
		start = uint64(reader.InputOffset())
		rows = 0
		return nil
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse payload: %w", err)
		}
		rows++
		total++

		if rows == p.rowsPerChunk {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			if err := appendChunk(); err != nil {
				return nil, 0, err
			}
		}
	}
	if rows > 0 {
		if err := appendChunk(); err != nil {
			return nil, 0, err
		}
	}

	return chunks, total, nil
}
