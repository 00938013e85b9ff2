package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/granula/internal/logger"
)

// taskTimeout bounds a single chunk execution, covering the blob read and
// the commit transaction.
const taskTimeout = 5 * time.Minute

// WorkerPool runs a fixed number of workers against the task queue.
//
// Workers block on the queue's notify channel when there is nothing to do
// and exit only when Stop is called. Tasks still queued at shutdown are
// dropped without concern: their chunk rows remain queued in the database
// and startup recovery re-enqueues them.
type WorkerPool struct {
	queue    *Queue
	executor *Executor
	workers  int
	metrics  Metrics

	mu        sync.Mutex
	started   bool
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	busy atomic.Int32
}

// NewWorkerPool creates a pool of the given size. A non-positive size falls
// back to DefaultMaxConcurrency.
func NewWorkerPool(queue *Queue, executor *Executor, workers int, m Metrics) *WorkerPool {
	if workers <= 0 {
		workers = DefaultMaxConcurrency
	}
	return &WorkerPool{
		queue:     queue,
		executor:  executor,
		workers:   workers,
		metrics:   m,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	logger.Info("Starting worker pool", logger.Workers(p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	// Monitor goroutine to close stoppedCh when all workers exit
	go func() {
		p.wg.Wait()
		close(p.stoppedCh)
	}()
}

// Stop shuts the pool down, waiting up to timeout for in-flight chunks to
// settle. Queued tasks are abandoned; the database backlog keeps them.
func (p *WorkerPool) Stop(timeout time.Duration) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	logger.Info("Stopping worker pool", logger.QueueDepth(p.queue.Len()))

	close(p.stopCh)

	select {
	case <-p.stoppedCh:
		logger.Info("Worker pool stopped")
	case <-time.After(timeout):
		logger.Warn("Worker pool stop timed out", logger.Busy(int(p.busy.Load())))
	}
}

// Workers returns the pool size.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// Busy returns the number of workers currently executing a chunk.
func (p *WorkerPool) Busy() int {
	return int(p.busy.Load())
}

// worker pops tasks until stopped. The startup context is deliberately not
// used for lifetime: each task gets a fresh context in process, and the
// worker itself exits only on stopCh.
func (p *WorkerPool) worker(_ context.Context, id int) {
	defer p.wg.Done()

	logger.Debug("Worker started", logger.WorkerID(id))

	for {
		task, ok := p.queue.Pop()
		if ok {
			// Pass the signal on before processing so one coalesced
			// notify cannot leave the rest of the pool asleep.
			p.queue.Wake()
			p.process(task)
			continue
		}

		select {
		case <-p.queue.Notify():
		case <-p.stopCh:
			logger.Debug("Worker stopped", logger.WorkerID(id))
			return
		}
	}
}

// process runs one task under a fresh bounded context.
func (p *WorkerPool) process(task *ChunkTask) {
	p.busy.Add(1)
	defer p.busy.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	p.executor.Process(ctx, task)
	observeQueueDepth(p.metrics, p.queue.Len())
}
