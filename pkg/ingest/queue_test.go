package ingest

import (
	"fmt"
	"testing"
)

func queueTask(priority, index int) *ChunkTask {
	return &ChunkTask{
		ChunkID:    fmt.Sprintf("p%d-i%d", priority, index),
		Priority:   priority,
		ChunkIndex: index,
	}
}

func TestQueue_PopEmpty(t *testing.T) {
	q := NewQueue()

	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned a task")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_HigherPriorityFirst(t *testing.T) {
	q := NewQueue()
	q.Push(queueTask(0, 0))
	q.Push(queueTask(10, 0))
	q.Push(queueTask(5, 0))

	want := []int{10, 5, 0}
	for i, priority := range want {
		task, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop(%d) found the queue empty", i)
		}
		if task.Priority != priority {
			t.Errorf("Pop(%d).Priority = %d, want %d", i, task.Priority, priority)
		}
	}
}

func TestQueue_ChunkIndexBreaksPriorityTies(t *testing.T) {
	q := NewQueue()
	q.Push(queueTask(5, 2))
	q.Push(queueTask(5, 0))
	q.Push(queueTask(5, 1))

	for want := 0; want < 3; want++ {
		task, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() found the queue empty at index %d", want)
		}
		if task.ChunkIndex != want {
			t.Errorf("Pop().ChunkIndex = %d, want %d", task.ChunkIndex, want)
		}
	}
}

func TestQueue_EqualTasksAreFIFO(t *testing.T) {
	q := NewQueue()
	ids := []string{"first", "second", "third", "fourth"}
	for _, id := range ids {
		q.Push(&ChunkTask{ChunkID: id, Priority: 3, ChunkIndex: 7})
	}

	for i, want := range ids {
		task, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop(%d) found the queue empty", i)
		}
		if task.ChunkID != want {
			t.Errorf("Pop(%d).ChunkID = %q, want %q", i, task.ChunkID, want)
		}
	}
}

func TestQueue_Len(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Push(queueTask(0, i))
	}
	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	q.Pop()
	q.Pop()
	if q.Len() != 3 {
		t.Errorf("Len() after two pops = %d, want 3", q.Len())
	}
}

func TestQueue_PushSignalsNotify(t *testing.T) {
	q := NewQueue()

	select {
	case <-q.Notify():
		t.Fatal("Notify() signalled before any push")
	default:
	}

	q.Push(queueTask(0, 0))

	select {
	case <-q.Notify():
	default:
		t.Fatal("Notify() not signalled after push")
	}
}

func TestQueue_WakeResignalsWhilePending(t *testing.T) {
	q := NewQueue()
	q.Push(queueTask(0, 0))
	q.Push(queueTask(0, 1))

	// Both pushes coalesce into one signal.
	<-q.Notify()
	select {
	case <-q.Notify():
		t.Fatal("expected push signals to coalesce")
	default:
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("Pop() found the queue empty")
	}
	q.Wake()

	select {
	case <-q.Notify():
	default:
		t.Fatal("Wake() did not signal while a task was pending")
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("Pop() found the queue empty")
	}
	q.Wake()

	select {
	case <-q.Notify():
		t.Fatal("Wake() signalled on an empty queue")
	default:
	}
}

func TestQueue_ReassignsSequenceOnPush(t *testing.T) {
	// A task popped and pushed again goes behind tasks that were already
	// waiting at the same priority and index.
	q := NewQueue()
	a := &ChunkTask{ChunkID: "a", Priority: 1, ChunkIndex: 0}
	b := &ChunkTask{ChunkID: "b", Priority: 1, ChunkIndex: 0}

	q.Push(a)
	q.Push(b)

	first, _ := q.Pop()
	if first.ChunkID != "a" {
		t.Fatalf("Pop().ChunkID = %q, want %q", first.ChunkID, "a")
	}
	q.Push(first)

	second, _ := q.Pop()
	if second.ChunkID != "b" {
		t.Errorf("Pop().ChunkID = %q, want %q", second.ChunkID, "b")
	}
}
