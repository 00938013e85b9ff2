package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for ingestion operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Upload attributes
	// ========================================================================
	AttrUploadFilename    = "upload.filename"
	AttrUploadContentType = "upload.content_type"
	AttrUploadSize        = "upload.size"
	AttrUploadPriority    = "upload.priority"

	// ========================================================================
	// File attributes
	// ========================================================================
	AttrFileID          = "file.id"
	AttrFileStatus      = "file.status"
	AttrTotalChunks     = "file.total_chunks"
	AttrProcessedChunks = "file.processed_chunks"
	AttrFailedChunks    = "file.failed_chunks"

	// ========================================================================
	// Chunk attributes
	// ========================================================================
	AttrChunkID    = "chunk.id"
	AttrChunkIndex = "chunk.index"
	AttrChunkStart = "chunk.start_byte"
	AttrChunkRows  = "chunk.rows"
	AttrAttempt    = "chunk.attempt"

	// ========================================================================
	// Queue & worker attributes
	// ========================================================================
	AttrQueueDepth = "queue.depth"
	AttrWorkerID   = "worker.id"

	// ========================================================================
	// Blob storage attributes
	// ========================================================================
	AttrBackend   = "storage.backend"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"
	AttrOffset    = "storage.offset"
	AttrBytesRead = "storage.bytes_read"

	// ========================================================================
	// Database attributes
	// ========================================================================
	AttrDBOperation    = "db.operation"
	AttrDBRowsAffected = "db.rows_affected"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// ========================================================================
	// HTTP gateway spans
	// ========================================================================
	SpanUploadRequest = "upload.request"
	SpanUploadAdmit   = "upload.admit"
	SpanUploadSave    = "upload.save"
	SpanStatusRequest = "status.request"
	SpanResults       = "results.request"

	// ========================================================================
	// Ingestion pipeline spans
	// ========================================================================
	SpanPlanFile     = "ingest.plan"
	SpanProcessChunk = "ingest.chunk"
	SpanFinalizeFile = "ingest.finalize"
	SpanRecover      = "ingest.recover"

	// ========================================================================
	// Blob storage spans
	// ========================================================================
	SpanBlobRead  = "blob.read"
	SpanBlobWrite = "blob.write"
	SpanBlobStat  = "blob.stat"

	// ========================================================================
	// Store spans
	// ========================================================================
	SpanStoreClaim    = "store.claim"
	SpanStoreCommit   = "store.commit"
	SpanStoreFinalize = "store.finalize"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// UploadFilename returns an attribute for the uploaded filename
func UploadFilename(name string) attribute.KeyValue {
	return attribute.String(AttrUploadFilename, name)
}

// UploadContentType returns an attribute for the upload content type
func UploadContentType(ct string) attribute.KeyValue {
	return attribute.String(AttrUploadContentType, ct)
}

// UploadSize returns an attribute for the upload size in bytes
func UploadSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrUploadSize, size)
}

// UploadPriority returns an attribute for the processing priority
func UploadPriority(p int) attribute.KeyValue {
	return attribute.Int(AttrUploadPriority, p)
}

// FileID returns an attribute for the file identifier
func FileID(id string) attribute.KeyValue {
	return attribute.String(AttrFileID, id)
}

// FileStatus returns an attribute for the file lifecycle status
func FileStatus(status string) attribute.KeyValue {
	return attribute.String(AttrFileStatus, status)
}

// TotalChunks returns an attribute for the number of planned chunks
func TotalChunks(n int) attribute.KeyValue {
	return attribute.Int(AttrTotalChunks, n)
}

// ProcessedChunks returns an attribute for the number of completed chunks
func ProcessedChunks(n int) attribute.KeyValue {
	return attribute.Int(AttrProcessedChunks, n)
}

// FailedChunks returns an attribute for the number of failed chunks
func FailedChunks(n int) attribute.KeyValue {
	return attribute.Int(AttrFailedChunks, n)
}

// ChunkID returns an attribute for the chunk identifier
func ChunkID(id string) attribute.KeyValue {
	return attribute.String(AttrChunkID, id)
}

// ChunkIndex returns an attribute for the chunk position within the file
func ChunkIndex(idx int) attribute.KeyValue {
	return attribute.Int(AttrChunkIndex, idx)
}

// ChunkStart returns an attribute for the byte offset where the chunk begins
func ChunkStart(off uint64) attribute.KeyValue {
	return attribute.Int64(AttrChunkStart, int64(off))
}

// ChunkRows returns an attribute for CSV rows covered by the chunk
func ChunkRows(n int) attribute.KeyValue {
	return attribute.Int(AttrChunkRows, n)
}

// Attempt returns an attribute for the processing attempt number
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// QueueDepth returns an attribute for the number of queued tasks
func QueueDepth(n int) attribute.KeyValue {
	return attribute.Int(AttrQueueDepth, n)
}

// WorkerID returns an attribute for the worker number
func WorkerID(id int) attribute.KeyValue {
	return attribute.Int(AttrWorkerID, id)
}

// Backend returns an attribute for the blob backend type
func Backend(b string) attribute.KeyValue {
	return attribute.String(AttrBackend, b)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for the object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for the S3 region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// StorageOffset returns an attribute for a byte offset
func StorageOffset(off uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(off))
}

// BytesRead returns an attribute for actual bytes read
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// DBOperation returns an attribute for the store operation name
func DBOperation(op string) attribute.KeyValue {
	return attribute.String(AttrDBOperation, op)
}

// DBRowsAffected returns an attribute for rows affected by a statement
func DBRowsAffected(n int64) attribute.KeyValue {
	return attribute.Int64(AttrDBRowsAffected, n)
}

// StartUploadSpan starts a span for an upload gateway operation.
// This is a convenience function that sets common attributes.
func StartUploadSpan(ctx context.Context, operation string, filename string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		UploadFilename(filename),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "upload."+operation, trace.WithAttributes(allAttrs...))
}

// StartIngestSpan starts a span for an ingestion pipeline operation.
func StartIngestSpan(ctx context.Context, operation string, fileID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		FileID(fileID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "ingest."+operation, trace.WithAttributes(allAttrs...))
}

// StartChunkSpan starts a span covering the processing of one chunk.
func StartChunkSpan(ctx context.Context, fileID string, chunkIndex int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		FileID(fileID),
		ChunkIndex(chunkIndex),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanProcessChunk, trace.WithAttributes(allAttrs...))
}

// StartBlobSpan starts a span for a blob storage operation.
func StartBlobSpan(ctx context.Context, operation string, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StorageKey(key),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "blob."+operation, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a metadata store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation, trace.WithAttributes(attrs...))
}
