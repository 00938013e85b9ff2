package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/granula/pkg/ingest"
)

// ingestMetrics is the Prometheus implementation of ingest.Metrics.
type ingestMetrics struct {
	chunksPlanned   prometheus.Counter
	plansFailed     prometheus.Counter
	chunksCompleted prometheus.Counter
	chunksRetried   prometheus.Counter
	chunksFailed    prometheus.Counter
	recordsInserted prometheus.Counter
	filesFinalized  *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	chunkDuration   prometheus.Histogram
}

// NewIngestMetrics creates Prometheus-backed pipeline metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// The pipeline treats a nil Metrics as a no-op.
func NewIngestMetrics() ingest.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &ingestMetrics{
		chunksPlanned: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_ingest_chunks_planned_total",
			Help: "Total number of chunks produced by the planner",
		}),
		plansFailed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_ingest_plans_failed_total",
			Help: "Total number of files that failed during planning",
		}),
		chunksCompleted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_ingest_chunks_completed_total",
			Help: "Total number of chunks committed successfully",
		}),
		chunksRetried: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_ingest_chunks_retried_total",
			Help: "Total number of chunk attempts requeued after a transient failure",
		}),
		chunksFailed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_ingest_chunks_failed_total",
			Help: "Total number of chunks that exhausted their retries",
		}),
		recordsInserted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "granula_ingest_records_inserted_total",
			Help: "Total number of CSV rows persisted as records",
		}),
		filesFinalized: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "granula_ingest_files_finalized_total",
				Help: "Total number of files reaching a terminal status",
			},
			[]string{"status"}, // "completed", "completed_with_errors", "failed"
		),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "granula_ingest_queue_depth",
			Help: "Number of chunk tasks currently queued",
		}),
		chunkDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "granula_ingest_chunk_duration_seconds",
			Help: "Duration of chunk execution from claim to commit",
			Buckets: []float64{
				0.01, // 10ms - small chunks on local storage
				0.05, // 50ms
				0.1,  // 100ms
				0.25, // 250ms
				0.5,  // 500ms
				1,    // 1s
				2.5,  // 2.5s - large chunks over S3
				5,    // 5s
				10,   // 10s
				30,   // 30s
			},
		}),
	}
}

func (m *ingestMetrics) ChunksPlanned(n int) {
	m.chunksPlanned.Add(float64(n))
}

func (m *ingestMetrics) PlanFailed() {
	m.plansFailed.Inc()
}

func (m *ingestMetrics) ChunkCompleted(records int, duration time.Duration) {
	m.chunksCompleted.Inc()
	m.recordsInserted.Add(float64(records))
	m.chunkDuration.Observe(duration.Seconds())
}

func (m *ingestMetrics) ChunkRetried() {
	m.chunksRetried.Inc()
}

func (m *ingestMetrics) ChunkFailed() {
	m.chunksFailed.Inc()
}

func (m *ingestMetrics) FileFinalized(status string) {
	m.filesFinalized.WithLabelValues(status).Inc()
}

func (m *ingestMetrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}
