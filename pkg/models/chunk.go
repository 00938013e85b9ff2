package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChunkStatus represents the processing state of a single chunk.
type ChunkStatus string

const (
	// ChunkStatusQueued means the chunk is planned and waiting for a worker.
	ChunkStatusQueued ChunkStatus = "queued"
	// ChunkStatusProcessing means a worker claimed the chunk.
	ChunkStatusProcessing ChunkStatus = "processing"
	// ChunkStatusCompleted means the chunk's rows were persisted.
	ChunkStatusCompleted ChunkStatus = "completed"
	// ChunkStatusFailed means the chunk exhausted its retries.
	ChunkStatusFailed ChunkStatus = "failed"
)

// IsValid checks if the status is a valid ChunkStatus.
func (s ChunkStatus) IsValid() bool {
	switch s {
	case ChunkStatusQueued, ChunkStatusProcessing, ChunkStatusCompleted, ChunkStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final.
func (s ChunkStatus) IsTerminal() bool {
	return s == ChunkStatusCompleted || s == ChunkStatusFailed
}

// ChunkMeta locates a chunk's rows inside the uploaded file. StartCookie is
// the byte offset of the chunk's first row, NumRows how many rows follow.
// Workers reopen the file, seek to the cookie and parse exactly NumRows, so
// no chunk payload ever travels through the queue.
type ChunkMeta struct {
	StartCookie uint64 `json:"start_cookie"`
	NumRows     uint32 `json:"num_rows"`
}

// Chunk represents one contiguous slice of an uploaded file's rows.
//
// The (FileID, ChunkIndex) pair is unique, which makes planning idempotent:
// replanning after a crash inserts the same rows it inserted before, and the
// constraint rejects duplicates instead of double-counting.
type Chunk struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	FileID     string      `gorm:"not null;size:36;uniqueIndex:idx_chunks_file_index,priority:1;index:idx_chunks_file_status,priority:1" json:"file_id"`
	ChunkIndex int         `gorm:"not null;uniqueIndex:idx_chunks_file_index,priority:2" json:"chunk_index"`
	Status     ChunkStatus `gorm:"not null;default:queued;size:50;index:idx_chunks_file_status,priority:2" json:"status"`
	Attempts   int         `gorm:"not null;default:0" json:"attempts"`
	ResultMeta string      `gorm:"type:text" json:"-"`
	Error      string      `gorm:"size:1024" json:"error,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	// ParsedMeta caches the decoded ResultMeta (not stored in DB)
	ParsedMeta *ChunkMeta `gorm:"-" json:"result_meta,omitempty"`
}

// TableName returns the table name for Chunk.
func (Chunk) TableName() string {
	return "chunks"
}

// GetMeta returns the decoded chunk location, parsing ResultMeta on first use.
func (c *Chunk) GetMeta() (ChunkMeta, error) {
	if c.ParsedMeta != nil {
		return *c.ParsedMeta, nil
	}
	if c.ResultMeta == "" {
		return ChunkMeta{}, fmt.Errorf("chunk %s has no metadata", c.ID)
	}
	var meta ChunkMeta
	if err := json.Unmarshal([]byte(c.ResultMeta), &meta); err != nil {
		return ChunkMeta{}, fmt.Errorf("failed to parse chunk metadata: %w", err)
	}
	c.ParsedMeta = &meta
	return meta, nil
}

// SetMeta encodes and stores the chunk location.
func (c *Chunk) SetMeta(meta ChunkMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	c.ResultMeta = string(data)
	c.ParsedMeta = &meta
	return nil
}

// IsTerminal reports whether the chunk reached a final state.
func (c *Chunk) IsTerminal() bool {
	return c.Status.IsTerminal()
}
