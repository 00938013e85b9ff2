package ingest

import "time"

// Metrics receives pipeline observations. Implementations must be safe for
// concurrent use; a nil Metrics disables collection with zero overhead.
//
// The Prometheus implementation lives in pkg/metrics, which keeps this
// package free of a direct Prometheus dependency.
type Metrics interface {
	// ChunksPlanned records that planning produced n chunks for a file
	ChunksPlanned(n int)

	// PlanFailed records a planning failure (unreadable or invalid payload)
	PlanFailed()

	// ChunkCompleted records a successfully committed chunk and the number
	// of records it inserted
	ChunkCompleted(records int, duration time.Duration)

	// ChunkRetried records a transient chunk failure that was requeued
	ChunkRetried()

	// ChunkFailed records a chunk that exhausted its retries
	ChunkFailed()

	// FileFinalized records a file reaching a terminal status
	FileFinalized(status string)

	// SetQueueDepth records the current number of queued tasks
	SetQueueDepth(n int)
}

// observePlanned is a nil-safe helper for recording planning output.
func observePlanned(m Metrics, n int) {
	if m != nil {
		m.ChunksPlanned(n)
	}
}

// observePlanFailed is a nil-safe helper for recording planning failures.
func observePlanFailed(m Metrics) {
	if m != nil {
		m.PlanFailed()
	}
}

// observeCompleted is a nil-safe helper for recording chunk completion.
func observeCompleted(m Metrics, records int, duration time.Duration) {
	if m != nil {
		m.ChunkCompleted(records, duration)
	}
}

// observeRetried is a nil-safe helper for recording a requeued chunk.
func observeRetried(m Metrics) {
	if m != nil {
		m.ChunkRetried()
	}
}

// observeFailed is a nil-safe helper for recording a permanently failed chunk.
func observeFailed(m Metrics) {
	if m != nil {
		m.ChunkFailed()
	}
}

// observeFinalized is a nil-safe helper for recording file finalization.
func observeFinalized(m Metrics, status string) {
	if m != nil {
		m.FileFinalized(status)
	}
}

// observeQueueDepth is a nil-safe helper for recording queue depth.
func observeQueueDepth(m Metrics, n int) {
	if m != nil {
		m.SetQueueDepth(n)
	}
}
