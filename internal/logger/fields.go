package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so ingestion runs
// can be correlated and queried in log aggregation.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// HTTP Requests
	// ========================================================================
	KeyRequestID = "request_id" // HTTP request ID assigned by middleware
	KeyMethod    = "method"     // HTTP method: GET, POST, etc.
	KeyPath      = "path"       // Request path
	KeyStatus    = "status"     // HTTP response status code
	KeyClientIP  = "client_ip"  // Client IP address
	KeyBytes     = "bytes"      // Response body size in bytes

	// ========================================================================
	// File Lifecycle
	// ========================================================================
	KeyFileID          = "file_id"          // Uploaded file identifier
	KeyFilename        = "filename"         // Original filename from the upload
	KeyContentType     = "content_type"     // Declared or sniffed content type
	KeySize            = "size"             // File size in bytes
	KeyFileStatus      = "file_status"      // File lifecycle status
	KeyPriority        = "priority"         // Processing priority (0 = highest)
	KeyTotalChunks     = "total_chunks"     // Chunks planned for the file
	KeyProcessedChunks = "processed_chunks" // Chunks completed so far
	KeyFailedChunks    = "failed_chunks"    // Chunks permanently failed

	// ========================================================================
	// Chunk Processing
	// ========================================================================
	KeyChunkID    = "chunk_id"    // Chunk identifier
	KeyChunkIndex = "chunk_index" // Chunk position within the file (0-based)
	KeyStartByte  = "start_byte"  // Byte offset where the chunk begins
	KeyRows       = "rows"        // CSV rows covered by the chunk
	KeyRecords    = "records"     // Records written to the database
	KeyAttempt    = "attempt"     // Processing attempt number
	KeyMaxRetries = "max_retries" // Maximum processing attempts
	KeyBackoff    = "backoff"     // Retry backoff delay

	// ========================================================================
	// Queue & Workers
	// ========================================================================
	KeyQueueDepth = "queue_depth" // Tasks currently queued
	KeyWorkerID   = "worker_id"   // Worker number (1-based)
	KeyWorkers    = "workers"     // Worker pool size
	KeyBusy       = "busy"        // Workers currently executing a chunk

	// ========================================================================
	// Blob Storage
	// ========================================================================
	KeyBackend      = "backend"       // Blob backend: local, s3
	KeyKey          = "key"           // Object key in blob storage
	KeyBucket       = "bucket"        // S3 bucket name
	KeyRegion       = "region"        // S3 region
	KeyOffset       = "offset"        // Byte offset for ranged reads
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written

	// ========================================================================
	// Database
	// ========================================================================
	KeyDatabase     = "database"      // Database type: postgres, sqlite
	KeyRowsAffected = "rows_affected" // Rows affected by a statement
	KeyMigration    = "migration"     // Schema migration version

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyComponent  = "component"   // Component name: planner, executor, pool, api
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyCount      = "count"       // Generic count
	KeyLimit      = "limit"       // Pagination limit
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// HTTP Requests
// ----------------------------------------------------------------------------

// RequestID returns a slog.Attr for the HTTP request ID
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method returns a slog.Attr for the HTTP method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path returns a slog.Attr for the request path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status returns a slog.Attr for the HTTP response status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Bytes returns a slog.Attr for response body size
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// ----------------------------------------------------------------------------
// File Lifecycle
// ----------------------------------------------------------------------------

// FileID returns a slog.Attr for the uploaded file identifier
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// Filename returns a slog.Attr for the original filename
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// ContentType returns a slog.Attr for the file content type
func ContentType(ct string) slog.Attr {
	return slog.String(KeyContentType, ct)
}

// Size returns a slog.Attr for file size in bytes
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// FileStatus returns a slog.Attr for the file lifecycle status
func FileStatus(status string) slog.Attr {
	return slog.String(KeyFileStatus, status)
}

// Priority returns a slog.Attr for processing priority
func Priority(p int) slog.Attr {
	return slog.Int(KeyPriority, p)
}

// TotalChunks returns a slog.Attr for the number of planned chunks
func TotalChunks(n int) slog.Attr {
	return slog.Int(KeyTotalChunks, n)
}

// ProcessedChunks returns a slog.Attr for the number of completed chunks
func ProcessedChunks(n int) slog.Attr {
	return slog.Int(KeyProcessedChunks, n)
}

// FailedChunks returns a slog.Attr for the number of permanently failed chunks
func FailedChunks(n int) slog.Attr {
	return slog.Int(KeyFailedChunks, n)
}

// ----------------------------------------------------------------------------
// Chunk Processing
// ----------------------------------------------------------------------------

// ChunkID returns a slog.Attr for the chunk identifier
func ChunkID(id string) slog.Attr {
	return slog.String(KeyChunkID, id)
}

// ChunkIndex returns a slog.Attr for the chunk position within the file
func ChunkIndex(idx int) slog.Attr {
	return slog.Int(KeyChunkIndex, idx)
}

// StartByte returns a slog.Attr for the byte offset where the chunk begins
func StartByte(off uint64) slog.Attr {
	return slog.Uint64(KeyStartByte, off)
}

// Rows returns a slog.Attr for CSV rows covered by the chunk
func Rows(n int) slog.Attr {
	return slog.Int(KeyRows, n)
}

// Records returns a slog.Attr for records written to the database
func Records(n int) slog.Attr {
	return slog.Int(KeyRecords, n)
}

// Attempt returns a slog.Attr for the processing attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum processing attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// Backoff returns a slog.Attr for the retry backoff delay
func Backoff(d time.Duration) slog.Attr {
	return slog.Duration(KeyBackoff, d)
}

// ----------------------------------------------------------------------------
// Queue & Workers
// ----------------------------------------------------------------------------

// QueueDepth returns a slog.Attr for the number of queued tasks
func QueueDepth(n int) slog.Attr {
	return slog.Int(KeyQueueDepth, n)
}

// WorkerID returns a slog.Attr for the worker number
func WorkerID(id int) slog.Attr {
	return slog.Int(KeyWorkerID, id)
}

// Workers returns a slog.Attr for the worker pool size
func Workers(n int) slog.Attr {
	return slog.Int(KeyWorkers, n)
}

// Busy returns a slog.Attr for the number of workers mid-chunk
func Busy(n int) slog.Attr {
	return slog.Int(KeyBusy, n)
}

// ----------------------------------------------------------------------------
// Blob Storage
// ----------------------------------------------------------------------------

// Backend returns a slog.Attr for the blob backend type
func Backend(b string) slog.Attr {
	return slog.String(KeyBackend, b)
}

// Key returns a slog.Attr for the object key in blob storage
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Bucket returns a slog.Attr for the S3 bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Region returns a slog.Attr for the S3 region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// Offset returns a slog.Attr for a byte offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// ----------------------------------------------------------------------------
// Database
// ----------------------------------------------------------------------------

// Database returns a slog.Attr for the database type
func Database(db string) slog.Attr {
	return slog.String(KeyDatabase, db)
}

// RowsAffected returns a slog.Attr for rows affected by a statement
func RowsAffected(n int64) slog.Attr {
	return slog.Int64(KeyRowsAffected, n)
}

// Migration returns a slog.Attr for the schema migration version
func Migration(version uint) slog.Attr {
	return slog.Uint64(KeyMigration, uint64(version))
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component returns a slog.Attr for the component name
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Count returns a slog.Attr for a generic count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Limit returns a slog.Attr for a pagination limit
func Limit(n int) slog.Attr {
	return slog.Int(KeyLimit, n)
}
