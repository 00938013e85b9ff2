package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	RequestID  string    // HTTP request ID (from chi middleware)
	FileID     string    // Uploaded file being processed
	ChunkIndex int       // Chunk position within the file (-1 when not chunk-scoped)
	WorkerID   int       // Worker executing the chunk (0 when not worker-scoped)
	ClientIP   string    // Client IP address (without port)
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:   clientIP,
		ChunkIndex: -1,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		RequestID:  lc.RequestID,
		FileID:     lc.FileID,
		ChunkIndex: lc.ChunkIndex,
		WorkerID:   lc.WorkerID,
		ClientIP:   lc.ClientIP,
		StartTime:  lc.StartTime,
	}
}

// WithRequestID returns a copy with the HTTP request ID set
func (lc *LogContext) WithRequestID(requestID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RequestID = requestID
	}
	return clone
}

// WithFile returns a copy with the file ID set
func (lc *LogContext) WithFile(fileID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.FileID = fileID
	}
	return clone
}

// WithChunk returns a copy scoped to a specific chunk of a file
func (lc *LogContext) WithChunk(fileID string, chunkIndex int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.FileID = fileID
		clone.ChunkIndex = chunkIndex
	}
	return clone
}

// WithWorker returns a copy with the worker ID set
func (lc *LogContext) WithWorker(workerID int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.WorkerID = workerID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
