package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/marmos91/granula/pkg/models"
)

// ============================================
// ADMIN OPERATIONS
// ============================================

func (s *GORMStore) CountFilesByStatus(ctx context.Context) (map[models.FileStatus]int64, error) {
	var rows []struct {
		Status models.FileStatus
		Count  int64
	}

	if err := s.db.WithContext(ctx).
		Model(&models.File{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.FileStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *GORMStore) PurgeAll(ctx context.Context) (int64, error) {
	var removed int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.File{}).Count(&removed).Error; err != nil {
			return err
		}

		// Children first so the deletes also work without cascading
		// foreign keys enabled.
		if err := tx.Exec("DELETE FROM processed_records").Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM chunks").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM files").Error
	})

	if err != nil {
		return 0, err
	}
	return removed, nil
}
