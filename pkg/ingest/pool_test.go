package ingest

import (
	"context"
	"testing"
	"time"
)

func newIdlePool(workers int) *WorkerPool {
	queue := NewQueue()
	executor := NewExecutor(nil, nil, queue, ExecutorConfig{}, nil)
	return NewWorkerPool(queue, executor, workers, nil)
}

func TestWorkerPool_StartStop(t *testing.T) {
	pool := newIdlePool(3)

	pool.Start(context.Background())
	if pool.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", pool.Workers())
	}
	if pool.Busy() != 0 {
		t.Errorf("Busy() = %d, want 0", pool.Busy())
	}

	pool.Stop(time.Second)
}

func TestWorkerPool_StopWithoutStart(t *testing.T) {
	pool := newIdlePool(2)

	// Stop without starting - should not panic
	pool.Stop(time.Second)
}

func TestWorkerPool_DoubleStart(t *testing.T) {
	pool := newIdlePool(2)

	ctx := context.Background()
	pool.Start(ctx)
	pool.Start(ctx) // Should be a no-op

	pool.Stop(time.Second)
}

func TestWorkerPool_DoubleStop(t *testing.T) {
	pool := newIdlePool(2)

	pool.Start(context.Background())
	pool.Stop(time.Second)
	pool.Stop(time.Second) // Second stop must not panic
}

func TestNewWorkerPool_InvalidSize(t *testing.T) {
	pool := newIdlePool(-1)

	if pool.Workers() != DefaultMaxConcurrency {
		t.Errorf("Workers() = %d, want %d", pool.Workers(), DefaultMaxConcurrency)
	}
}
