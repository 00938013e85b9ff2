package models

import (
	"fmt"
	"math"
	"time"
)

// FileStatus represents the lifecycle state of an uploaded file.
type FileStatus string

const (
	// FileStatusQueued means the file is saved and waiting to be planned.
	FileStatusQueued FileStatus = "queued"
	// FileStatusProcessing means chunks are being planned or executed.
	FileStatusProcessing FileStatus = "processing"
	// FileStatusCompleted means every chunk finished successfully.
	FileStatusCompleted FileStatus = "completed"
	// FileStatusCompletedWithErrors means processing finished but some
	// chunks exhausted their retries.
	FileStatusCompletedWithErrors FileStatus = "completed_with_errors"
	// FileStatusFailed means the file could not be processed at all:
	// planning failed or every chunk failed permanently.
	FileStatusFailed FileStatus = "failed"
)

// IsValid checks if the status is a valid FileStatus.
func (s FileStatus) IsValid() bool {
	switch s {
	case FileStatusQueued, FileStatusProcessing, FileStatusCompleted,
		FileStatusCompletedWithErrors, FileStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final. Terminal files are never
// moved back to an active state.
func (s FileStatus) IsTerminal() bool {
	switch s {
	case FileStatusCompleted, FileStatusCompletedWithErrors, FileStatusFailed:
		return true
	}
	return false
}

// File represents an uploaded CSV file tracked through ingestion.
//
// Counters are advanced atomically in the database as chunks finish, so the
// row is the single source of truth for progress reporting and finalization.
// PlannedAt is set only after every chunk row for the file has been created;
// a processing file without it means the planner died mid-flight and the
// file must be re-planned on startup.
type File struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Filename        string     `gorm:"not null;size:255" json:"filename"`
	StorageKey      string     `gorm:"not null;size:512" json:"-"`
	ContentType     string     `gorm:"size:255" json:"content_type,omitempty"`
	Size            int64      `json:"size"`
	Status          FileStatus `gorm:"not null;default:queued;size:50;index" json:"status"`
	Priority        int        `gorm:"not null;default:0" json:"priority"`
	TotalChunks     int        `gorm:"not null;default:0" json:"total_chunks"`
	ProcessedChunks int        `gorm:"not null;default:0" json:"processed_chunks"`
	FailedChunks    int        `gorm:"not null;default:0" json:"failed_chunks"`
	Error           string     `gorm:"size:1024" json:"error,omitempty"`
	PlannedAt       *time.Time `json:"planned_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// One-to-many relationships, removed with the file
	Chunks  []Chunk           `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
	Records []ProcessedRecord `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}

// Progress returns the completion percentage, rounded to two decimals.
// Both completed and permanently failed chunks count as progress; a file
// with no planned chunks reports 0.
func (f *File) Progress() float64 {
	if f.TotalChunks == 0 {
		return 0.0
	}
	pct := float64(f.ProcessedChunks+f.FailedChunks) / float64(f.TotalChunks) * 100.0
	return math.Round(pct*100) / 100
}

// IsTerminal reports whether the file reached a final state.
func (f *File) IsTerminal() bool {
	return f.Status.IsTerminal()
}

// IsDone reports whether every planned chunk has been accounted for.
// Always false before planning finishes (TotalChunks is 0 until then).
func (f *File) IsDone() bool {
	return f.TotalChunks > 0 && f.ProcessedChunks+f.FailedChunks >= f.TotalChunks
}

// FinalStatus computes the terminal status the file should land in once all
// chunks are accounted for. All chunks failed means the file failed; any
// mix of success and failure completes with errors.
func (f *File) FinalStatus() FileStatus {
	switch {
	case f.FailedChunks == 0:
		return FileStatusCompleted
	case f.FailedChunks >= f.TotalChunks:
		return FileStatusFailed
	default:
		return FileStatusCompletedWithErrors
	}
}

// Validate checks if the file has valid configuration.
func (f *File) Validate() error {
	if f.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if f.StorageKey == "" {
		return fmt.Errorf("storage key is required")
	}
	if f.Status != "" && !f.Status.IsValid() {
		return fmt.Errorf("invalid status %q", f.Status)
	}
	if f.Priority < 0 {
		return fmt.Errorf("priority must not be negative")
	}
	return nil
}
