package ingest

import (
	"container/heap"
	"sync"
)

// taskHeap is a heap sorted first by priority (higher first), then by
// chunk index (earlier first), and finally by insertion order. Sorting by
// chunk index keeps a file's records landing roughly in order, which
// keeps result pagination stable while the file is still processing.
type taskHeap []*ChunkTask

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	if h[i].ChunkIndex != h[j].ChunkIndex {
		return h[i].ChunkIndex < h[j].ChunkIndex
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*ChunkTask)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Queue is a thread-safe priority queue of chunk tasks.
//
// It holds no durable state: the chunks table is the real backlog, and
// the queue only decides which claimable chunk a worker tries next. A
// notify channel wakes workers blocked on an empty queue.
type Queue struct {
	mu     sync.Mutex
	heap   taskHeap
	seq    uint64
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Push adds a task and wakes one waiting worker.
func (q *Queue) Push(task *ChunkTask) {
	q.mu.Lock()
	q.seq++
	task.seq = q.seq
	heap.Push(&q.heap, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the highest-priority task. Returns false when
// the queue is empty.
func (q *Queue) Pop() (*ChunkTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil, false
	}
	return heap.Pop(&q.heap).(*ChunkTask), true
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Notify returns the channel workers block on while the queue is empty.
// A receive means at least one Push happened; workers must still Pop in a
// loop since a single signal can cover several pushes.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

// Wake re-signals the notify channel if tasks remain. A worker that popped
// a task calls this before processing it, so a burst of pushes whose
// signals coalesced still wakes the other workers one by one.
func (q *Queue) Wake() {
	q.mu.Lock()
	pending := len(q.heap)
	q.mu.Unlock()

	if pending == 0 {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
