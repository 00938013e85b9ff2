//go:build integration

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/models"
	"github.com/marmos91/granula/pkg/store"
)

func newIngestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.New(context.Background(), &store.Config{
		Type: store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "granula.db"),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newIngestBlobs(t *testing.T) blob.Store {
	t.Helper()
	blobs, err := blob.New(context.Background(), &blob.Config{
		Backend: blob.BackendFilesystem,
		FS: blob.FSConfig{
			Path:      t.TempDir(),
			CreateDir: true,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	return blobs
}

// uploadPayload stores the payload and creates its file row, the same way
// the upload handler does.
func uploadPayload(t *testing.T, st store.Store, blobs blob.Store, payload string, priority int) *models.File {
	t.Helper()
	ctx := context.Background()

	fileID := uuid.NewString()
	key := blob.MakeKey(fileID, "data.csv")
	_, err := blobs.Save(ctx, key, strings.NewReader(payload))
	require.NoError(t, err)

	file := &models.File{
		ID:          fileID,
		Filename:    "data.csv",
		StorageKey:  key,
		ContentType: "text/csv",
		Size:        int64(len(payload)),
		Priority:    priority,
	}
	_, err = st.CreateFile(ctx, file)
	require.NoError(t, err)
	return file
}

// flakyBlob fails OpenRange a configured number of times before delegating.
// A negative count fails forever.
type flakyBlob struct {
	blob.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyBlob) OpenRange(ctx context.Context, key string, offset uint64) (io.ReadCloser, error) {
	f.mu.Lock()
	fail := f.failures != 0
	if f.failures > 0 {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return nil, errors.New("simulated storage outage")
	}
	return f.Store.OpenRange(ctx, key, offset)
}

// gateBlob holds every chunk read until the gate opens and records the
// order reads were issued. Planner scans go through Open and bypass it.
type gateBlob struct {
	blob.Store
	gate chan struct{}

	mu    sync.Mutex
	reads []blobRead
}

type blobRead struct {
	key    string
	offset uint64
}

func (g *gateBlob) OpenRange(ctx context.Context, key string, offset uint64) (io.ReadCloser, error) {
	<-g.gate
	g.mu.Lock()
	g.reads = append(g.reads, blobRead{key: key, offset: offset})
	g.mu.Unlock()
	return g.Store.OpenRange(ctx, key, offset)
}

func (g *gateBlob) Reads() []blobRead {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]blobRead(nil), g.reads...)
}

func testExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Backoff:    BackoffPolicy{Base: time.Millisecond, Max: 10 * time.Millisecond},
		MaxRetries: 3,
	}
}

func TestPlanner_PlanPersistsChunks(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(25)
	file := uploadPayload(t, st, blobs, payload, 7)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusProcessing, stored.Status)
	require.Equal(t, 3, stored.TotalChunks)
	require.NotNil(t, stored.PlannedAt)

	chunks, err := st.ListChunks(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, task := range tasks {
		require.Equal(t, chunks[i].ID, task.ChunkID)
		require.Equal(t, i, task.ChunkIndex)
		require.Equal(t, 7, task.Priority)
		require.Equal(t, file.StorageKey, task.StorageKey)
	}

	// A second plan loses the status transition and schedules nothing.
	again, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestPlanner_InvalidPayloadFailsFile(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	file := uploadPayload(t, st, blobs, "a,b\n\"unclosed\n", 0)

	planner := NewPlanner(st, blobs, 10, nil)
	_, err := planner.Plan(ctx, file.ID)
	require.Error(t, err)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusFailed, stored.Status)
	require.NotEmpty(t, stored.Error)
	require.Zero(t, stored.TotalChunks)

	chunks, err := st.ListChunks(ctx, file.ID)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestPlanner_MissingPayloadFailsFile(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	fileID := uuid.NewString()
	_, err := st.CreateFile(ctx, &models.File{
		ID:         fileID,
		Filename:   "data.csv",
		StorageKey: blob.MakeKey(fileID, "data.csv"),
	})
	require.NoError(t, err)

	planner := NewPlanner(st, blobs, 10, nil)
	_, err = planner.Plan(ctx, fileID)
	require.ErrorIs(t, err, blob.ErrNotFound)

	stored, err := st.GetFile(ctx, fileID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusFailed, stored.Status)
}

func TestExecutor_CompletesChunkAndFinalizesFile(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	executor := NewExecutor(st, blobs, NewQueue(), testExecutorConfig(), nil)
	executor.Process(ctx, tasks[0])

	chunk, err := st.GetChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, models.ChunkStatusCompleted, chunk.Status)
	require.Equal(t, 1, chunk.Attempts)

	records, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)

	row, err := records[0].GetRow()
	require.NoError(t, err)
	require.Equal(t, []string{"row-0", "value-0"}, row)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusCompleted, stored.Status)
	require.Equal(t, 1, stored.ProcessedChunks)
	require.Zero(t, stored.FailedChunks)
}

func TestExecutor_DuplicateDeliveryIsHarmless(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)

	executor := NewExecutor(st, blobs, NewQueue(), testExecutorConfig(), nil)
	executor.Process(ctx, tasks[0])
	executor.Process(ctx, tasks[0])

	_, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.ProcessedChunks)
}

func TestExecutor_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)

	queue := NewQueue()
	flaky := &flakyBlob{Store: blobs, failures: 1}
	executor := NewExecutor(st, flaky, queue, testExecutorConfig(), nil)

	executor.Process(ctx, tasks[0])

	chunk, err := st.GetChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, models.ChunkStatusQueued, chunk.Status)
	require.Equal(t, 1, chunk.Attempts)
	require.Contains(t, chunk.Error, "simulated storage outage")

	// The retry lands back on the queue after the backoff delay.
	require.Eventually(t, func() bool { return queue.Len() == 1 },
		time.Second, 5*time.Millisecond)

	retry, ok := queue.Pop()
	require.True(t, ok)
	require.Equal(t, 1, retry.Attempts)

	executor.Process(ctx, retry)

	chunk, err = st.GetChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, models.ChunkStatusCompleted, chunk.Status)
	require.Equal(t, 2, chunk.Attempts)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusCompleted, stored.Status)
}

func TestExecutor_ExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)

	queue := NewQueue()
	cfg := testExecutorConfig()
	cfg.MaxRetries = 1
	executor := NewExecutor(st, &flakyBlob{Store: blobs, failures: -1}, queue, cfg, nil)

	// First attempt fails and requeues.
	executor.Process(ctx, tasks[0])
	require.Eventually(t, func() bool { return queue.Len() == 1 },
		time.Second, 5*time.Millisecond)

	// Second attempt exceeds the retry budget and settles the chunk.
	retry, ok := queue.Pop()
	require.True(t, ok)
	executor.Process(ctx, retry)

	chunk, err := st.GetChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, models.ChunkStatusFailed, chunk.Status)
	require.Equal(t, 2, chunk.Attempts)
	require.NotEmpty(t, chunk.Error)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusFailed, stored.Status)
	require.Equal(t, 1, stored.FailedChunks)

	_, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestExecutor_MissingPayloadFailsWithoutRetry(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)

	require.NoError(t, blobs.Remove(ctx, file.StorageKey))

	queue := NewQueue()
	executor := NewExecutor(st, blobs, queue, testExecutorConfig(), nil)
	executor.Process(ctx, tasks[0])

	chunk, err := st.GetChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, models.ChunkStatusFailed, chunk.Status)
	require.Equal(t, 1, chunk.Attempts)
	require.Zero(t, queue.Len())

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusFailed, stored.Status)
}

func TestExecutor_MixedOutcomeCompletesWithErrors(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(10)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 5, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	cfg := testExecutorConfig()
	cfg.MaxRetries = 0
	executor := NewExecutor(st, blobs, NewQueue(), cfg, nil)

	// First chunk commits, then the payload disappears under the second.
	executor.Process(ctx, tasks[0])
	require.NoError(t, blobs.Remove(ctx, file.StorageKey))
	executor.Process(ctx, tasks[1])

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusCompletedWithErrors, stored.Status)
	require.Equal(t, 1, stored.ProcessedChunks)
	require.Equal(t, 1, stored.FailedChunks)

	_, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
}

func TestExecutor_DeleteOnComplete(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)

	cfg := testExecutorConfig()
	cfg.DeleteOnComplete = true
	executor := NewExecutor(st, blobs, NewQueue(), cfg, nil)
	executor.Process(ctx, tasks[0])

	exists, err := blobs.Exists(ctx, file.StorageKey)
	require.NoError(t, err)
	require.False(t, exists)
}

func waitForStatus(t *testing.T, st store.Store, fileID string, want models.FileStatus) *models.File {
	t.Helper()

	var file *models.File
	require.Eventually(t, func() bool {
		f, err := st.GetFile(context.Background(), fileID)
		if err != nil {
			return false
		}
		file = f
		return f.Status == want
	}, 5*time.Second, 10*time.Millisecond, "file never reached status %s", want)
	return file
}

func testManagerConfig() Config {
	return Config{
		ChunkSize:      10,
		MaxConcurrency: 4,
		MaxRetries:     2,
		BaseBackoff:    5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}
}

func TestManager_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	manager := NewManager(st, blobs, testManagerConfig(), nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(2 * time.Second)

	bigPayload, _ := buildCSV(35)
	smallPayload, _ := buildCSV(12)
	big := uploadPayload(t, st, blobs, bigPayload, 2)
	small := uploadPayload(t, st, blobs, smallPayload, 9)

	require.NoError(t, manager.Enqueue(ctx, big.ID))
	require.NoError(t, manager.Enqueue(ctx, small.ID))

	bigDone := waitForStatus(t, st, big.ID, models.FileStatusCompleted)
	require.Equal(t, 4, bigDone.TotalChunks)
	require.Equal(t, 4, bigDone.ProcessedChunks)
	require.InDelta(t, 100.0, bigDone.Progress(), 0.01)

	smallDone := waitForStatus(t, st, small.ID, models.FileStatusCompleted)
	require.Equal(t, 2, smallDone.TotalChunks)

	// Records come back in source order regardless of which worker
	// committed which chunk.
	records, total, err := st.ListRecords(ctx, big.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 35, total)
	for i, record := range records {
		row, err := record.GetRow()
		require.NoError(t, err)
		require.Equal(t, []string{
			fmt.Sprintf("row-%d", i),
			fmt.Sprintf("value-%d", i),
		}, row)
	}

	// Pagination over the tail.
	tail, total, err := st.ListRecords(ctx, big.ID, 10, 30)
	require.NoError(t, err)
	require.EqualValues(t, 35, total)
	require.Len(t, tail, 5)
}

func TestManager_PriorityPreemption(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := &gateBlob{Store: newIngestBlobs(t), gate: make(chan struct{})}
	openGate := sync.OnceFunc(func() { close(blobs.gate) })
	t.Cleanup(openGate)

	cfg := testManagerConfig()
	cfg.MaxConcurrency = 1
	manager := NewManager(st, blobs, cfg, nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(2 * time.Second)

	lowPayload, _ := buildCSV(30)
	highPayload, _ := buildCSV(10)
	low := uploadPayload(t, st, blobs, lowPayload, 1)
	high := uploadPayload(t, st, blobs, highPayload, 9)

	require.NoError(t, manager.Enqueue(ctx, low.ID))
	require.NoError(t, manager.Enqueue(ctx, high.ID))

	// Four tasks planned across the two files. The lone worker holds one
	// at the gate, so the queue settles at three with all plans in.
	require.Eventually(t, func() bool {
		stats := manager.Stats()
		return stats.Busy == 1 && stats.QueueDepth == 3
	}, 5*time.Second, 10*time.Millisecond, "planned tasks never reached the queue")

	openGate()

	waitForStatus(t, st, high.ID, models.FileStatusCompleted)
	lowDone := waitForStatus(t, st, low.ID, models.FileStatusCompleted)
	require.Equal(t, 3, lowDone.TotalChunks)

	// The high-priority chunk jumps the low file's backlog: whichever task
	// the worker picked up first, every remaining low chunk runs after it.
	reads := blobs.Reads()
	require.Len(t, reads, 4)
	highAt := -1
	for i, read := range reads {
		if read.key == high.StorageKey {
			highAt = i
			break
		}
	}
	require.NotEqual(t, -1, highAt, "no read recorded for the high-priority file")
	for i, read := range reads {
		if read.key == low.StorageKey && read.offset > 0 {
			require.Greater(t, i, highAt,
				"low-priority chunk at offset %d ran before the high-priority file", read.offset)
		}
	}
}

func TestManager_RecoveryPlansQueuedFile(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	// Uploaded, then the process died before planning started.
	payload, _ := buildCSV(12)
	file := uploadPayload(t, st, blobs, payload, 0)

	manager := NewManager(st, blobs, testManagerConfig(), nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(2 * time.Second)

	done := waitForStatus(t, st, file.ID, models.FileStatusCompleted)
	require.Equal(t, 2, done.TotalChunks)

	_, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 12, total)
}

func TestManager_RecoveryReplansPartialPlan(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	// The planner died mid-scan: the file is processing, some chunk rows
	// exist, but planned_at was never stamped.
	payload, _ := buildCSV(12)
	file := uploadPayload(t, st, blobs, payload, 0)

	moved, err := st.SetFileStatus(ctx, file.ID, models.FileStatusQueued, models.FileStatusProcessing)
	require.NoError(t, err)
	require.True(t, moved)

	orphan := &models.Chunk{FileID: file.ID, ChunkIndex: 0}
	require.NoError(t, orphan.SetMeta(models.ChunkMeta{StartCookie: 0, NumRows: 10}))
	require.NoError(t, st.CreateChunks(ctx, []*models.Chunk{orphan}))

	manager := NewManager(st, blobs, testManagerConfig(), nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(2 * time.Second)

	done := waitForStatus(t, st, file.ID, models.FileStatusCompleted)
	require.Equal(t, 2, done.TotalChunks)
	require.Equal(t, 2, done.ProcessedChunks)

	chunks, err := st.ListChunks(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	_, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 12, total)
}

func TestManager_RecoveryRequeuesPlannedChunks(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	// The plan is durable and a worker died holding the first chunk.
	payload, _ := buildCSV(12)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	_, claimed, err := st.ClaimChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.True(t, claimed)

	manager := NewManager(st, blobs, testManagerConfig(), nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(2 * time.Second)

	waitForStatus(t, st, file.ID, models.FileStatusCompleted)

	// The interrupted claim still counts: the rerun claims it again.
	chunk, err := st.GetChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.Equal(t, 2, chunk.Attempts)

	_, total, err := st.ListRecords(ctx, file.ID, 100, 0)
	require.NoError(t, err)
	require.EqualValues(t, 12, total)
}

func TestManager_RecoveryFinalizesSettledFile(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	// Every chunk settled but the process died before finalization.
	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)

	planner := NewPlanner(st, blobs, 10, nil)
	tasks, err := planner.Plan(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, claimed, err := st.ClaimChunk(ctx, tasks[0].ChunkID)
	require.NoError(t, err)
	require.True(t, claimed)

	rows, err := ReadChunk(ctx, blobs, file.StorageKey, tasks[0].StartCookie, tasks[0].NumRows)
	require.NoError(t, err)
	records := make([]models.ProcessedRecord, 0, len(rows))
	for _, row := range rows {
		record, err := models.NewRecord(file.ID, 0, row)
		require.NoError(t, err)
		records = append(records, record)
	}
	committed, err := st.CompleteChunk(ctx, tasks[0].ChunkID, records)
	require.NoError(t, err)
	require.True(t, committed)

	manager := NewManager(st, blobs, testManagerConfig(), nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(2 * time.Second)

	waitForStatus(t, st, file.ID, models.FileStatusCompleted)
}

func TestManager_DisableBackground(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	cfg := testManagerConfig()
	cfg.DisableBackground = true
	manager := NewManager(st, blobs, cfg, nil)
	require.NoError(t, manager.Start(ctx))
	defer manager.Stop(time.Second)

	payload, _ := buildCSV(5)
	file := uploadPayload(t, st, blobs, payload, 0)
	require.NoError(t, manager.Enqueue(ctx, file.ID))

	time.Sleep(50 * time.Millisecond)

	stored, err := st.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, models.FileStatusQueued, stored.Status)
	require.Zero(t, stored.TotalChunks)
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := newIngestStore(t)
	blobs := newIngestBlobs(t)

	manager := NewManager(st, blobs, testManagerConfig(), nil)

	require.ErrorIs(t, manager.Enqueue(ctx, "some-file"), ErrNotStarted)

	require.NoError(t, manager.Start(ctx))
	require.ErrorIs(t, manager.Start(ctx), ErrAlreadyStarted)

	stats := manager.Stats()
	require.Equal(t, 4, stats.Workers)
	require.Zero(t, stats.QueueDepth)

	manager.Stop(time.Second)
	manager.Stop(time.Second)

	require.ErrorIs(t, manager.Enqueue(ctx, "some-file"), ErrNotStarted)
}
