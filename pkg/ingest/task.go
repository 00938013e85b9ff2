// Package ingest turns uploaded CSV payloads into durable processed
// records.
//
// The pipeline: a planner scans the payload once and splits it into
// chunks addressed by byte offset, a priority queue hands chunk tasks to
// a pool of workers, and an executor claims each chunk, re-reads its rows
// from the payload, and commits them in a single transaction. Chunk state
// lives in the database, so a crash never loses work: the queue is just a
// scheduling hint over the durable backlog.
package ingest

// ChunkTask describes one schedulable unit of work: a contiguous run of
// CSV rows addressed by the byte offset of its first row.
//
// Tasks are cheap to rebuild from the chunks table, so the queue holds
// them in memory only. The attempt count that matters for retry limits is
// the one on the chunk row; the task copy is a scheduling convenience.
type ChunkTask struct {
	FileID      string
	ChunkID     string
	ChunkIndex  int
	StorageKey  string
	StartCookie uint64
	NumRows     uint32
	Attempts    int
	Priority    int

	// seq is assigned by the queue to keep equal-priority tasks FIFO.
	seq uint64
}
