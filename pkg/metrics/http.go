package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/granula/pkg/api/handlers"
)

// httpMetrics is the Prometheus implementation of handlers.Metrics.
type httpMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadsAccepted prometheus.Counter
	uploadBytes     prometheus.Counter
	uploadsRejected *prometheus.CounterVec
}

// NewHTTPMetrics creates Prometheus-backed HTTP metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// The API treats a nil Metrics as a no-op.
func NewHTTPMetrics() handlers.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &httpMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "granula_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "granula_http_request_duration_seconds",
				Help: "HTTP request duration by method and route",
				Buckets: []float64{
					0.005, // 5ms - status and results reads
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1,     // 1s - large upload admission
					2.5,   // 2.5s
					5,     // 5s
					10,    // 10s
					30,    // 30s - uploads on slow links
				},
			},
			[]string{"method", "route"},
		),
		uploadsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_http_uploads_accepted_total",
			Help: "Total number of uploads admitted into the pipeline",
		}),
		uploadBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_http_upload_bytes_total",
			Help: "Total payload bytes accepted",
		}),
		uploadsRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "granula_http_uploads_rejected_total",
				Help: "Total number of uploads refused at admission",
			},
			[]string{"reason"}, // "size", "content_type", "priority", "csv", "multipart"
		),
	}
}

// ObserveRequest implements handlers.Metrics.
func (m *httpMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// UploadAccepted implements handlers.Metrics.
func (m *httpMetrics) UploadAccepted(sizeBytes int64) {
	m.uploadsAccepted.Inc()
	m.uploadBytes.Add(float64(sizeBytes))
}

// UploadRejected implements handlers.Metrics.
func (m *httpMetrics) UploadRejected(reason string) {
	m.uploadsRejected.WithLabelValues(reason).Inc()
}
