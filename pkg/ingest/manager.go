package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/internal/telemetry"
	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultChunkSize      = 10000
	DefaultMaxConcurrency = 10
	DefaultMaxRetries     = 3
	DefaultBaseBackoff    = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

// planTimeout bounds one planning scan. Large payloads are read once end
// to end, so this is generous.
const planTimeout = 10 * time.Minute

// planConcurrency bounds how many payloads are scanned at the same time.
const planConcurrency = 2

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("ingestion manager already started")

	// ErrNotStarted is returned when work is submitted before Start.
	ErrNotStarted = errors.New("ingestion manager not started")
)

// Config controls the ingestion pipeline.
type Config struct {
	// ChunkSize is the number of CSV rows per chunk.
	ChunkSize int `mapstructure:"chunk_size" validate:"omitempty,gte=1" yaml:"chunk_size" json:"chunk_size"`

	// MaxConcurrency is the number of chunk workers.
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"omitempty,gte=1,lte=256" yaml:"max_concurrency" json:"max_concurrency"`

	// MaxRetries is how many times a chunk is retried after its first
	// attempt before failing permanently.
	MaxRetries int `mapstructure:"max_retries" validate:"omitempty,gte=1" yaml:"max_retries" json:"max_retries"`

	// BaseBackoff is the delay before a chunk's first retry.
	BaseBackoff time.Duration `mapstructure:"base_backoff" validate:"omitempty,gt=0" yaml:"base_backoff" json:"base_backoff"`

	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration `mapstructure:"max_backoff" validate:"omitempty,gt=0" yaml:"max_backoff" json:"max_backoff"`

	// BackoffJitter spreads retry delays by up to ±10%.
	BackoffJitter bool `mapstructure:"backoff_jitter" yaml:"backoff_jitter" json:"backoff_jitter"`

	// DeleteOnComplete removes payloads from blob storage once their file
	// completes with no failed chunks.
	DeleteOnComplete bool `mapstructure:"delete_on_complete" yaml:"delete_on_complete" json:"delete_on_complete"`

	// DisableBackground stores uploads without planning or processing
	// them. Useful for tests that drive the pipeline by hand.
	DisableBackground bool `mapstructure:"disable_background" yaml:"disable_background" json:"disable_background"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
}

// Manager owns the ingestion pipeline: it plans uploaded files into chunks,
// schedules them on the priority queue, runs the worker pool and recovers
// in-flight work on startup.
//
// The manager holds no durable state. Everything it schedules is derived
// from file and chunk rows, so killing the process at any point loses no
// work: the next Start rebuilds the queue from the database.
type Manager struct {
	config   Config
	store    store.Store
	blobs    blob.Store
	queue    *Queue
	planner  *Planner
	executor *Executor
	pool     *WorkerPool
	metrics  Metrics

	// planSem bounds concurrent planning scans so a burst of uploads
	// cannot saturate blob storage with full-file reads.
	planSem *semaphore.Weighted

	mu      sync.Mutex
	started bool
}

// Stats is a point-in-time snapshot of the pipeline, as reported by the
// health endpoint.
type Stats struct {
	QueueDepth int `json:"queue_depth"`
	Workers    int `json:"workers"`
	Busy       int `json:"busy"`
}

// NewManager wires the pipeline together. Metrics may be nil.
func NewManager(st store.Store, blobs blob.Store, cfg Config, m Metrics) *Manager {
	cfg.ApplyDefaults()

	queue := NewQueue()
	executor := NewExecutor(st, blobs, queue, ExecutorConfig{
		Backoff: BackoffPolicy{
			Base:   cfg.BaseBackoff,
			Max:    cfg.MaxBackoff,
			Jitter: cfg.BackoffJitter,
		},
		MaxRetries:       cfg.MaxRetries,
		DeleteOnComplete: cfg.DeleteOnComplete,
	}, m)

	return &Manager{
		config:   cfg,
		store:    st,
		blobs:    blobs,
		queue:    queue,
		planner:  NewPlanner(st, blobs, cfg.ChunkSize, m),
		executor: executor,
		pool:     NewWorkerPool(queue, executor, cfg.MaxConcurrency, m),
		metrics:  m,
		planSem:  semaphore.NewWeighted(planConcurrency),
	}
}

// Start verifies the store, launches the workers and recovers any work that
// was in flight when the previous process died.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	if err := m.store.Healthcheck(ctx); err != nil {
		m.setStarted(false)
		return fmt.Errorf("store not ready: %w", err)
	}

	if m.config.DisableBackground {
		logger.Warn("Background processing disabled, uploads will be stored but not processed")
		return nil
	}

	m.pool.Start(ctx)

	if err := m.recoverInFlight(ctx); err != nil {
		m.pool.Stop(time.Second)
		m.setStarted(false)
		return fmt.Errorf("startup recovery failed: %w", err)
	}
	return nil
}

func (m *Manager) setStarted(v bool) {
	m.mu.Lock()
	m.started = v
	m.mu.Unlock()
}

// Stop shuts the pipeline down, giving in-flight chunks up to timeout to
// settle. Anything still queued stays in the database backlog.
func (m *Manager) Stop(timeout time.Duration) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	if m.config.DisableBackground {
		return
	}
	m.pool.Stop(timeout)
}

// Enqueue schedules planning and processing for an uploaded file. It
// returns as soon as the work is handed off; planning runs in the
// background so the upload response never waits on a payload scan.
func (m *Manager) Enqueue(ctx context.Context, fileID string) error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	if m.config.DisableBackground {
		logger.Debug("Background processing disabled, file stays queued", logger.FileID(fileID))
		return nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
		defer cancel()

		if err := m.planSem.Acquire(ctx, 1); err != nil {
			logger.Error("Failed to acquire planning slot",
				logger.FileID(fileID),
				logger.Err(err))
			return
		}
		defer m.planSem.Release(1)

		if err := m.plan(ctx, fileID); err != nil {
			logger.Error("Failed to plan file",
				logger.FileID(fileID),
				logger.Err(err))
		}
	}()
	return nil
}

// Stats returns a snapshot of queue depth and worker occupancy.
func (m *Manager) Stats() Stats {
	return Stats{
		QueueDepth: m.queue.Len(),
		Workers:    m.pool.Workers(),
		Busy:       m.pool.Busy(),
	}
}

// plan runs the planner for one file and schedules the resulting tasks.
func (m *Manager) plan(ctx context.Context, fileID string) error {
	tasks, err := m.planner.Plan(ctx, fileID)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		m.queue.Push(task)
	}
	if len(tasks) > 0 {
		observeQueueDepth(m.metrics, m.queue.Len())
	}
	return nil
}

// recoverInFlight rebuilds the schedule for files the previous process left
// unfinished. Files that never finished planning are re-planned from
// scratch; files with a durable plan get their unfinished chunks back on
// the queue. A file that cannot be recovered is logged and skipped so one
// bad payload cannot block startup.
func (m *Manager) recoverInFlight(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRecover)
	defer span.End()

	files, err := m.store.FilesNeedingRecovery(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files needing recovery: %w", err)
	}
	if len(files) == 0 {
		return nil
	}

	logger.Info("Recovering unfinished files", logger.Count(len(files)))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.recoverFile(ctx, file); err != nil {
			logger.Error("Failed to recover file",
				logger.FileID(file.ID),
				logger.FileStatus(string(file.Status)),
				logger.Err(err))
		}
	}

	observeQueueDepth(m.metrics, m.queue.Len())
	return nil
}

func (m *Manager) recoverFile(ctx context.Context, file *models.File) error {
	switch {
	case file.Status == models.FileStatusQueued:
		// Uploaded but never planned.
		return m.plan(ctx, file.ID)

	case file.PlannedAt == nil:
		// The planner died mid-scan. The chunk rows it managed to write
		// are an unknown prefix of the plan, so wipe them and scan again.
		logger.Info("Re-planning file with incomplete plan", logger.FileID(file.ID))
		if err := m.store.ResetFileForReplan(ctx, file.ID); err != nil {
			return err
		}
		return m.plan(ctx, file.ID)

	default:
		return m.requeueChunks(ctx, file)
	}
}

// requeueChunks puts a planned file's unfinished chunks back on the queue.
// Chunks a dead worker left in processing are first returned to queued,
// keeping their attempt count.
func (m *Manager) requeueChunks(ctx context.Context, file *models.File) error {
	chunks, err := m.store.ListChunks(ctx, file.ID)
	if err != nil {
		return err
	}

	for _, chunk := range chunks {
		if chunk.Status != models.ChunkStatusProcessing {
			continue
		}
		if _, err := m.store.RequeueChunk(ctx, chunk.ID, "requeued after restart"); err != nil {
			return err
		}
	}

	pending, err := m.store.PendingChunks(ctx, file.ID)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		// Every chunk settled but the previous process died before the
		// file status caught up.
		status, finalized, err := m.store.FinalizeFileIfDone(ctx, file.ID)
		if err != nil {
			return err
		}
		if finalized {
			observeFinalized(m.metrics, string(status))
			logger.Info("Finalized file left behind by previous run",
				logger.FileID(file.ID),
				logger.FileStatus(string(status)))
		}
		return nil
	}

	for _, chunk := range pending {
		meta, err := chunk.GetMeta()
		if err != nil {
			logger.Error("Skipping chunk with unreadable metadata",
				logger.ChunkID(chunk.ID),
				logger.FileID(file.ID),
				logger.Err(err))
			continue
		}
		m.queue.Push(&ChunkTask{
			FileID:      file.ID,
			ChunkID:     chunk.ID,
			ChunkIndex:  chunk.ChunkIndex,
			StorageKey:  file.StorageKey,
			StartCookie: meta.StartCookie,
			NumRows:     meta.NumRows,
			Attempts:    chunk.Attempts,
			Priority:    file.Priority,
		})
	}

	logger.Info("Re-enqueued unfinished chunks",
		logger.FileID(file.ID),
		logger.Count(len(pending)))
	return nil
}
