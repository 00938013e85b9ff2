// Package models contains the database models for the ingestion pipeline.
package models

// Priority bounds for uploaded files. Higher priority files are planned and
// executed before lower priority ones.
const (
	MinPriority = 0
	MaxPriority = 10
)

// ValidPriority reports whether p is within the accepted range.
func ValidPriority(p int) bool {
	return p >= MinPriority && p <= MaxPriority
}

// AllModels returns all models for database migration.
func AllModels() []any {
	return []any{
		&File{},
		&Chunk{},
		&ProcessedRecord{},
	}
}
