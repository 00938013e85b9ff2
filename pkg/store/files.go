package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/granula/pkg/models"
)

// ============================================
// FILE OPERATIONS
// ============================================

func (s *GORMStore) CreateFile(ctx context.Context, file *models.File) (string, error) {
	if file.Status == "" {
		file.Status = models.FileStatusQueued
	}
	file.CreatedAt = time.Now()
	return createWithID(s.db, ctx, file, func(f *models.File, id string) { f.ID = id }, file.ID, models.ErrDuplicateFile)
}

func (s *GORMStore) GetFile(ctx context.Context, id string) (*models.File, error) {
	return getByField[models.File](s.db, ctx, "id", id, models.ErrFileNotFound)
}

func (s *GORMStore) ListFiles(ctx context.Context) ([]*models.File, error) {
	return listOrdered[models.File](s.db, ctx, "created_at DESC", "")
}

func (s *GORMStore) SetFileStatus(ctx context.Context, id string, from, to models.FileStatus) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GORMStore) SetFileFailed(ctx context.Context, id, reason string) (bool, error) {
	// Terminal files keep their status; failure is only recorded for files
	// that are still active.
	result := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ? AND status IN ?", id, []models.FileStatus{models.FileStatusQueued, models.FileStatusProcessing}).
		Updates(map[string]any{
			"status": models.FileStatusFailed,
			"error":  reason,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GORMStore) MarkFilePlanned(ctx context.Context, id string, totalChunks int) error {
	result := s.db.WithContext(ctx).
		Model(&models.File{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"planned_at":   time.Now(),
			"total_chunks": totalChunks,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrFileNotFound
	}
	return nil
}

func (s *GORMStore) FilesNeedingRecovery(ctx context.Context) ([]*models.File, error) {
	return listOrdered[models.File](s.db, ctx, "created_at ASC",
		"status IN ?", []models.FileStatus{models.FileStatusQueued, models.FileStatusProcessing})
}

func (s *GORMStore) ResetFileForReplan(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var file models.File
		if err := tx.Where("id = ?", id).First(&file).Error; err != nil {
			return convertNotFoundError(err, models.ErrFileNotFound)
		}

		// Drop any partial planning output before the file is planned again
		if err := tx.Where("file_id = ?", id).Delete(&models.ProcessedRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", id).Delete(&models.Chunk{}).Error; err != nil {
			return err
		}

		return tx.Model(&file).Updates(map[string]any{
			"status":           models.FileStatusQueued,
			"total_chunks":     0,
			"processed_chunks": 0,
			"failed_chunks":    0,
			"planned_at":       nil,
			"error":            "",
		}).Error
	})
}
