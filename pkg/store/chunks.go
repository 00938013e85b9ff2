package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/granula/pkg/models"
)

// Batch size for bulk inserts, keeps bind parameter counts within the
// limits of both backends.
const insertBatchSize = 500

// ============================================
// CHUNK OPERATIONS
// ============================================

func (s *GORMStore) CreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now()
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		if chunk.Status == "" {
			chunk.Status = models.ChunkStatusQueued
		}
		chunk.CreatedAt = now
	}

	if err := s.db.WithContext(ctx).CreateInBatches(chunks, insertBatchSize).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.ErrDuplicateChunk
		}
		return err
	}
	return nil
}

func (s *GORMStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	return getByField[models.Chunk](s.db, ctx, "id", id, models.ErrChunkNotFound)
}

func (s *GORMStore) ListChunks(ctx context.Context, fileID string) ([]*models.Chunk, error) {
	return listOrdered[models.Chunk](s.db, ctx, "chunk_index ASC", "file_id = ?", fileID)
}

func (s *GORMStore) PendingChunks(ctx context.Context, fileID string) ([]*models.Chunk, error) {
	return listOrdered[models.Chunk](s.db, ctx, "chunk_index ASC",
		"file_id = ? AND status = ?", fileID, models.ChunkStatusQueued)
}

func (s *GORMStore) ClaimChunk(ctx context.Context, id string) (*models.Chunk, bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Chunk{}).
		Where("id = ? AND status = ?", id, models.ChunkStatusQueued).
		Updates(map[string]any{
			"status":   models.ChunkStatusProcessing,
			"attempts": gorm.Expr("attempts + 1"),
		})

	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}

	chunk, err := s.GetChunk(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return chunk, true, nil
}

func (s *GORMStore) CompleteChunk(ctx context.Context, id string, records []models.ProcessedRecord) (bool, error) {
	completed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chunk models.Chunk
		if err := tx.Where("id = ?", id).First(&chunk).Error; err != nil {
			return convertNotFoundError(err, models.ErrChunkNotFound)
		}

		// Guard on the processing status: if another resolution won the
		// race, the transaction writes nothing and counters stay correct.
		result := tx.Model(&models.Chunk{}).
			Where("id = ? AND status = ?", id, models.ChunkStatusProcessing).
			Update("status", models.ChunkStatusCompleted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if len(records) > 0 {
			if err := tx.CreateInBatches(&records, insertBatchSize).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.File{}).
			Where("id = ?", chunk.FileID).
			Update("processed_chunks", gorm.Expr("processed_chunks + 1")).Error; err != nil {
			return err
		}

		completed = true
		return nil
	})

	return completed, err
}

func (s *GORMStore) FailChunk(ctx context.Context, id, reason string) (bool, error) {
	failed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chunk models.Chunk
		if err := tx.Where("id = ?", id).First(&chunk).Error; err != nil {
			return convertNotFoundError(err, models.ErrChunkNotFound)
		}

		result := tx.Model(&models.Chunk{}).
			Where("id = ? AND status = ?", id, models.ChunkStatusProcessing).
			Updates(map[string]any{
				"status": models.ChunkStatusFailed,
				"error":  reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.File{}).
			Where("id = ?", chunk.FileID).
			Update("failed_chunks", gorm.Expr("failed_chunks + 1")).Error; err != nil {
			return err
		}

		failed = true
		return nil
	})

	return failed, err
}

func (s *GORMStore) RequeueChunk(ctx context.Context, id, reason string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Chunk{}).
		Where("id = ? AND status = ?", id, models.ChunkStatusProcessing).
		Updates(map[string]any{
			"status": models.ChunkStatusQueued,
			"error":  reason,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GORMStore) FinalizeFileIfDone(ctx context.Context, fileID string) (models.FileStatus, bool, error) {
	// Single-statement compare-and-swap: the status flip and the terminal
	// status computation happen in one atomic UPDATE, so of all racing
	// workers exactly one observes RowsAffected == 1.
	result := s.db.WithContext(ctx).Exec(`
		UPDATE files
		SET status = CASE
			WHEN failed_chunks = 0 THEN ?
			WHEN failed_chunks >= total_chunks THEN ?
			ELSE ?
		END,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		  AND status = ?
		  AND total_chunks > 0
		  AND processed_chunks + failed_chunks >= total_chunks`,
		models.FileStatusCompleted,
		models.FileStatusFailed,
		models.FileStatusCompletedWithErrors,
		fileID,
		models.FileStatusProcessing,
	)
	if result.Error != nil {
		return "", false, result.Error
	}

	file, err := s.GetFile(ctx, fileID)
	if err != nil {
		return "", false, err
	}
	return file.Status, result.RowsAffected > 0, nil
}
