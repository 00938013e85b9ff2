package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RowData is the persisted payload of a single CSV row.
type RowData struct {
	Row []string `json:"row"`
}

// ProcessedRecord is one CSV row persisted by a worker. Records are written
// in a single transaction with the owning chunk's completion, so a chunk is
// either fully represented here or not at all.
//
// The auto-incremented ID preserves insertion order, which keeps result
// pagination stable within a chunk.
type ProcessedRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID     string    `gorm:"not null;size:36;index:idx_records_file_chunk,priority:1" json:"file_id"`
	ChunkIndex int       `gorm:"not null;index:idx_records_file_chunk,priority:2" json:"chunk_index"`
	Data       string    `gorm:"type:text;not null" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for ProcessedRecord.
func (ProcessedRecord) TableName() string {
	return "processed_records"
}

// NewRecord builds a record for one parsed CSV row.
func NewRecord(fileID string, chunkIndex int, fields []string) (ProcessedRecord, error) {
	rec := ProcessedRecord{FileID: fileID, ChunkIndex: chunkIndex}
	if err := rec.SetRow(fields); err != nil {
		return ProcessedRecord{}, err
	}
	return rec, nil
}

// SetRow encodes and stores the row's fields.
func (r *ProcessedRecord) SetRow(fields []string) error {
	data, err := json.Marshal(RowData{Row: fields})
	if err != nil {
		return fmt.Errorf("failed to encode row data: %w", err)
	}
	r.Data = string(data)
	return nil
}

// GetRow returns the decoded row fields.
func (r *ProcessedRecord) GetRow() ([]string, error) {
	var row RowData
	if err := json.Unmarshal([]byte(r.Data), &row); err != nil {
		return nil, fmt.Errorf("failed to parse row data: %w", err)
	}
	return row.Row, nil
}

// RawData returns the stored payload as raw JSON, suitable for embedding in
// API responses without a decode/encode round trip.
func (r *ProcessedRecord) RawData() json.RawMessage {
	return json.RawMessage(r.Data)
}
