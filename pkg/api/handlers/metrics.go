package handlers

import "time"

// Metrics receives HTTP-level observations. Implementations must be safe
// for concurrent use; a nil Metrics disables collection with zero overhead.
//
// The Prometheus implementation lives in pkg/metrics, which keeps the API
// packages free of a direct Prometheus dependency.
type Metrics interface {
	// ObserveRequest records a completed request against its route pattern
	ObserveRequest(method, route string, status int, duration time.Duration)

	// UploadAccepted records an admitted upload and its payload size
	UploadAccepted(sizeBytes int64)

	// UploadRejected records a rejected upload with the admission check
	// that refused it: size, content_type, priority, csv or multipart
	UploadRejected(reason string)
}

// Rejection reasons reported through Metrics.UploadRejected.
const (
	RejectSize        = "size"
	RejectContentType = "content_type"
	RejectPriority    = "priority"
	RejectCSV         = "csv"
	RejectMultipart   = "multipart"
)

// ObserveRequest is a nil-safe helper for recording a completed request.
func ObserveRequest(m Metrics, method, route string, status int, duration time.Duration) {
	if m != nil {
		m.ObserveRequest(method, route, status, duration)
	}
}

// observeAccepted is a nil-safe helper for recording an admitted upload.
func observeAccepted(m Metrics, sizeBytes int64) {
	if m != nil {
		m.UploadAccepted(sizeBytes)
	}
}

// observeRejected is a nil-safe helper for recording a refused upload.
func observeRejected(m Metrics, reason string) {
	if m != nil {
		m.UploadRejected(reason)
	}
}
