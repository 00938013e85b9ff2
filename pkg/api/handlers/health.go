package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/ingest"
	"github.com/marmos91/granula/pkg/store"
)

// StatsSource exposes live pipeline counters for health reporting.
// Satisfied by *ingest.Manager.
type StatsSource interface {
	Stats() ingest.Stats
}

// HealthHandler reports service health including its dependencies.
type HealthHandler struct {
	store   store.Store
	blobs   blob.Store
	ingest  StatsSource
	started time.Time
}

// NewHealthHandler creates a new HealthHandler. The stats source may be
// nil, in which case the queue section is omitted.
func NewHealthHandler(st store.Store, blobs blob.Store, ingest StatsSource) *HealthHandler {
	return &HealthHandler{store: st, blobs: blobs, ingest: ingest, started: time.Now().UTC()}
}

// QueueHealth is a snapshot of the in-memory scheduling state.
type QueueHealth struct {
	Depth   int `json:"depth"`
	Workers int `json:"workers"`
	Busy    int `json:"busy"`
}

// HealthResponse is the response body for GET /health.
//
// Database and Storage carry "ok" or the failing check's error text, so
// the response says which dependency is down without a second request.
type HealthResponse struct {
	Status    string       `json:"status"`
	Database  string       `json:"database"`
	Storage   string       `json:"storage"`
	StartedAt string       `json:"started_at"`
	Uptime    string       `json:"uptime"`
	Queue     *QueueHealth `json:"queue,omitempty"`
}

// Check handles GET /health.
//
// Returns 200 with status "ok" when the database and the blob store both
// answer their healthchecks, 503 with status "degraded" otherwise.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		Storage:   "ok",
		StartedAt: h.started.Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	healthy := true
	if err := h.store.Healthcheck(r.Context()); err != nil {
		resp.Database = err.Error()
		healthy = false
	}
	if err := h.blobs.Healthcheck(r.Context()); err != nil {
		resp.Storage = err.Error()
		healthy = false
	}

	if h.ingest != nil {
		stats := h.ingest.Stats()
		resp.Queue = &QueueHealth{
			Depth:   stats.QueueDepth,
			Workers: stats.Workers,
			Busy:    stats.Busy,
		}
	}

	if !healthy {
		resp.Status = "degraded"
		WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	WriteJSONOK(w, resp)
}
