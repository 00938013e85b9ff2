//go:build integration

package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()

	s, err := NewFSStore(FSConfig{
		Path:      t.TempDir(),
		CreateDir: true,
	})
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	return string(data)
}

func TestFSStore_SaveAndOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "f1a2b3c4.csv"
	payload := "id,name\n1,alice\n2,bob\n"

	written, err := s.Save(ctx, key, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if written != int64(len(payload)) {
		t.Errorf("Save wrote %d bytes, want %d", written, len(payload))
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := readAll(t, rc); got != payload {
		t.Errorf("Open returned %q, want %q", got, payload)
	}

	// No temporary file should survive a successful save
	if _, err := os.Stat(filepath.Join(s.basePath, key+tmpSuffix)); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind after save")
	}
}

func TestFSStore_SaveOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "f1a2b3c4.csv"
	if _, err := s.Save(ctx, key, strings.NewReader("first")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Save(ctx, key, strings.NewReader("second")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := readAll(t, rc); got != "second" {
		t.Errorf("Open returned %q, want %q", got, "second")
	}
}

func TestFSStore_OpenNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Open(ctx, "missing.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Open returned error %v, want ErrNotFound", err)
	}

	_, err = s.Size(ctx, "missing.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Size returned error %v, want ErrNotFound", err)
	}
}

func TestFSStore_OpenRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "f1a2b3c4.csv"
	payload := "id,name\n1,alice\n2,bob\n"
	if _, err := s.Save(ctx, key, strings.NewReader(payload)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Offset into the middle reads the remainder
	rc, err := s.OpenRange(ctx, key, 8)
	if err != nil {
		t.Fatalf("OpenRange failed: %v", err)
	}
	if got := readAll(t, rc); got != payload[8:] {
		t.Errorf("OpenRange(8) returned %q, want %q", got, payload[8:])
	}

	// Offset zero reads everything
	rc, err = s.OpenRange(ctx, key, 0)
	if err != nil {
		t.Fatalf("OpenRange failed: %v", err)
	}
	if got := readAll(t, rc); got != payload {
		t.Errorf("OpenRange(0) returned %q, want %q", got, payload)
	}

	// Offset at the end reads nothing
	rc, err = s.OpenRange(ctx, key, uint64(len(payload)))
	if err != nil {
		t.Fatalf("OpenRange failed: %v", err)
	}
	if got := readAll(t, rc); got != "" {
		t.Errorf("OpenRange(end) returned %q, want empty", got)
	}

	// Offset past the end reads nothing
	rc, err = s.OpenRange(ctx, key, uint64(len(payload))+100)
	if err != nil {
		t.Fatalf("OpenRange failed: %v", err)
	}
	if got := readAll(t, rc); got != "" {
		t.Errorf("OpenRange(past end) returned %q, want empty", got)
	}
}

func TestFSStore_SizeAndExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "f1a2b3c4.csv"
	payload := "1,2,3\n"
	if _, err := s.Save(ctx, key, strings.NewReader(payload)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	size, err := s.Size(ctx, key)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", size, len(payload))
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists = false for stored object")
	}

	exists, err = s.Exists(ctx, "missing.csv")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists = true for missing object")
	}
}

func TestFSStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	key := "nested/dir/f1a2b3c4.csv"
	if _, err := s.Save(ctx, key, strings.NewReader("data")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("object still exists after Remove")
	}

	// Empty parent directories are pruned
	if _, err := os.Stat(filepath.Join(s.basePath, "nested")); !os.IsNotExist(err) {
		t.Error("empty parent directory not pruned after Remove")
	}

	// Removing a missing object is not an error
	if err := s.Remove(ctx, key); err != nil {
		t.Errorf("Remove of missing object returned %v", err)
	}
}

func TestFSStore_Purge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"a.csv", "b.csv", "nested/c.csv"} {
		if _, err := s.Save(ctx, key, strings.NewReader("data")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	removed, err := s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Purge removed %d objects, want 3", removed)
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		t.Fatalf("failed to read storage dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("storage dir has %d entries after purge, want 0", len(entries))
	}

	// Purging an empty store is fine
	removed, err = s.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("Purge removed %d objects from empty store, want 0", removed)
	}
}

func TestFSStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.Save(ctx, "x.csv", strings.NewReader("data")); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save on closed store returned %v, want ErrStoreClosed", err)
	}
	if _, err := s.Open(ctx, "x.csv"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Open on closed store returned %v, want ErrStoreClosed", err)
	}
	if err := s.Healthcheck(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Healthcheck on closed store returned %v, want ErrStoreClosed", err)
	}
}

func TestFSStore_Healthcheck(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Healthcheck(ctx); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestNewFactory(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, &Config{
		Backend: BackendFilesystem,
		FS:      FSConfig{Path: t.TempDir(), CreateDir: true},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	if s.Backend() != string(BackendFilesystem) {
		t.Errorf("Backend() = %q, want %q", s.Backend(), BackendFilesystem)
	}

	_, err = New(ctx, &Config{Backend: "carrier-pigeon"})
	if err == nil {
		t.Error("New accepted unsupported backend")
	}
}
