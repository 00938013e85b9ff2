package models

import (
	"testing"
)

func TestFileStatus_IsValid(t *testing.T) {
	tests := []struct {
		status FileStatus
		valid  bool
	}{
		{FileStatusQueued, true},
		{FileStatusProcessing, true},
		{FileStatusCompleted, true},
		{FileStatusCompletedWithErrors, true},
		{FileStatusFailed, true},
		{"invalid", false},
		{"", false},
		{"QUEUED", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("FileStatus(%q).IsValid() = %v, want %v", tt.status, got, tt.valid)
			}
		})
	}
}

func TestFileStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   FileStatus
		terminal bool
	}{
		{FileStatusQueued, false},
		{FileStatusProcessing, false},
		{FileStatusCompleted, true},
		{FileStatusCompletedWithErrors, true},
		{FileStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestFile_Progress(t *testing.T) {
	tests := []struct {
		name string
		file File
		want float64
	}{
		{"no chunks planned", File{}, 0.0},
		{"nothing done", File{TotalChunks: 10}, 0.0},
		{"half done", File{TotalChunks: 10, ProcessedChunks: 5}, 50.0},
		{"all done", File{TotalChunks: 10, ProcessedChunks: 10}, 100.0},
		{"failures count as progress", File{TotalChunks: 10, ProcessedChunks: 6, FailedChunks: 4}, 100.0},
		{"rounds to two decimals", File{TotalChunks: 3, ProcessedChunks: 1}, 33.33},
		{"two thirds", File{TotalChunks: 3, ProcessedChunks: 2}, 66.67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.Progress(); got != tt.want {
				t.Errorf("Progress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_IsDone(t *testing.T) {
	tests := []struct {
		name string
		file File
		want bool
	}{
		{"unplanned", File{}, false},
		{"in flight", File{TotalChunks: 4, ProcessedChunks: 3}, false},
		{"all processed", File{TotalChunks: 4, ProcessedChunks: 4}, true},
		{"mixed outcome", File{TotalChunks: 4, ProcessedChunks: 2, FailedChunks: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.IsDone(); got != tt.want {
				t.Errorf("IsDone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_FinalStatus(t *testing.T) {
	tests := []struct {
		name string
		file File
		want FileStatus
	}{
		{"all succeeded", File{TotalChunks: 5, ProcessedChunks: 5}, FileStatusCompleted},
		{"some failed", File{TotalChunks: 5, ProcessedChunks: 3, FailedChunks: 2}, FileStatusCompletedWithErrors},
		{"all failed", File{TotalChunks: 5, FailedChunks: 5}, FileStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.file.FinalStatus(); got != tt.want {
				t.Errorf("FinalStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr bool
	}{
		{"valid file", File{Filename: "data.csv", StorageKey: "ab/abc123.csv"}, false},
		{"valid with status", File{Filename: "data.csv", StorageKey: "k", Status: FileStatusQueued}, false},
		{"missing filename", File{StorageKey: "k"}, true},
		{"missing storage key", File{Filename: "data.csv"}, true},
		{"invalid status", File{Filename: "data.csv", StorageKey: "k", Status: "bogus"}, true},
		{"negative priority", File{Filename: "data.csv", StorageKey: "k", Priority: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunkStatus_IsValid(t *testing.T) {
	tests := []struct {
		status ChunkStatus
		valid  bool
	}{
		{ChunkStatusQueued, true},
		{ChunkStatusProcessing, true},
		{ChunkStatusCompleted, true},
		{ChunkStatusFailed, true},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.valid {
				t.Errorf("ChunkStatus(%q).IsValid() = %v, want %v", tt.status, got, tt.valid)
			}
		})
	}
}

func TestChunk_Meta(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		chunk := Chunk{ID: "c1"}
		meta := ChunkMeta{StartCookie: 4096, NumRows: 500}
		if err := chunk.SetMeta(meta); err != nil {
			t.Fatalf("SetMeta() error = %v", err)
		}
		got, err := chunk.GetMeta()
		if err != nil {
			t.Fatalf("GetMeta() error = %v", err)
		}
		if got != meta {
			t.Errorf("GetMeta() = %+v, want %+v", got, meta)
		}
	})

	t.Run("get parses stored JSON", func(t *testing.T) {
		chunk := Chunk{ID: "c1", ResultMeta: `{"start_cookie":128,"num_rows":42}`}
		got, err := chunk.GetMeta()
		if err != nil {
			t.Fatalf("GetMeta() error = %v", err)
		}
		if got.StartCookie != 128 || got.NumRows != 42 {
			t.Errorf("GetMeta() = %+v, want {128 42}", got)
		}
	})

	t.Run("empty metadata", func(t *testing.T) {
		chunk := Chunk{ID: "c1"}
		if _, err := chunk.GetMeta(); err == nil {
			t.Error("expected error for missing metadata")
		}
	})

	t.Run("malformed metadata", func(t *testing.T) {
		chunk := Chunk{ID: "c1", ResultMeta: "not json"}
		if _, err := chunk.GetMeta(); err == nil {
			t.Error("expected error for malformed metadata")
		}
	})

	t.Run("get uses cache", func(t *testing.T) {
		chunk := Chunk{ID: "c1", ParsedMeta: &ChunkMeta{StartCookie: 7, NumRows: 1}}
		got, err := chunk.GetMeta()
		if err != nil {
			t.Fatalf("GetMeta() error = %v", err)
		}
		if got.StartCookie != 7 {
			t.Errorf("expected cached meta, got %+v", got)
		}
	})
}

func TestProcessedRecord_Row(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		rec, err := NewRecord("f1", 3, []string{"1", "alice", "alice@example.com"})
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		if rec.FileID != "f1" || rec.ChunkIndex != 3 {
			t.Errorf("unexpected record identity: %+v", rec)
		}
		fields, err := rec.GetRow()
		if err != nil {
			t.Fatalf("GetRow() error = %v", err)
		}
		if len(fields) != 3 || fields[1] != "alice" {
			t.Errorf("GetRow() = %v", fields)
		}
	})

	t.Run("stored shape", func(t *testing.T) {
		rec, err := NewRecord("f1", 0, []string{"a", "b"})
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		want := `{"row":["a","b"]}`
		if rec.Data != want {
			t.Errorf("Data = %q, want %q", rec.Data, want)
		}
		if string(rec.RawData()) != want {
			t.Errorf("RawData() = %q, want %q", rec.RawData(), want)
		}
	})

	t.Run("empty row", func(t *testing.T) {
		rec, err := NewRecord("f1", 0, nil)
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		if rec.Data != `{"row":null}` {
			t.Errorf("Data = %q", rec.Data)
		}
	})

	t.Run("malformed data", func(t *testing.T) {
		rec := ProcessedRecord{Data: "nope"}
		if _, err := rec.GetRow(); err == nil {
			t.Error("expected error for malformed data")
		}
	})
}

func TestValidPriority(t *testing.T) {
	tests := []struct {
		priority int
		valid    bool
	}{
		{0, true},
		{5, true},
		{10, true},
		{-1, false},
		{11, false},
	}

	for _, tt := range tests {
		if got := ValidPriority(tt.priority); got != tt.valid {
			t.Errorf("ValidPriority(%d) = %v, want %v", tt.priority, got, tt.valid)
		}
	}
}

func TestAllModels(t *testing.T) {
	all := AllModels()
	if len(all) != 3 {
		t.Fatalf("expected 3 models, got %d", len(all))
	}
}
