package store

import (
	"context"

	"github.com/marmos91/granula/pkg/models"
)

// ============================================
// RECORD OPERATIONS
// ============================================

func (s *GORMStore) ListRecords(ctx context.Context, fileID string, limit, offset int) ([]*models.ProcessedRecord, int64, error) {
	if _, err := s.GetFile(ctx, fileID); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.ProcessedRecord{}).
		Where("file_id = ?", fileID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Ordering by (chunk_index, id) keeps pages stable: ids are assigned in
	// insertion order, so rows come back in the order they were parsed.
	var records []*models.ProcessedRecord
	if err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("chunk_index ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (s *GORMStore) CountRecords(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.ProcessedRecord{}).Count(&total).Error
	return total, err
}
