package csvutil

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErr     error
		wantErrText string
		wantColumns int
		wantRows    int
	}{
		{
			name:        "valid three column file",
			input:       "id,name,value\n1,Alice,100\n2,Bob,200\n",
			wantColumns: 3,
			wantRows:    2,
		},
		{
			name:        "single data row",
			input:       "id,name\n1,Alice\n",
			wantColumns: 2,
			wantRows:    1,
		},
		{
			name:        "no trailing newline",
			input:       "id,name\n1,Alice",
			wantColumns: 2,
			wantRows:    1,
		},
		{
			name:        "quoted field with embedded newline counts as one row",
			input:       "id,note\n1,\"line one\nline two\"\n",
			wantColumns: 2,
			wantRows:    1,
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrEmptyFile,
		},
		{
			name:    "header only",
			input:   "id,name,value\n",
			wantErr: ErrNoDataRows,
		},
		{
			name:        "row with too few columns",
			input:       "id,name,value\n1,Alice,100\n2,Bob\n",
			wantErrText: "row 3 has 2 columns, expected 3",
		},
		{
			name:        "row with too many columns",
			input:       "id,name\n1,Alice,extra\n",
			wantErrText: "row 2 has 3 columns, expected 2",
		},
		{
			name:    "invalid utf8 in data row",
			input:   "id,name\n1,\xff\xfe\n",
			wantErr: ErrInvalidEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := Validate(strings.NewReader(tt.input))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErrText != "" {
				if err == nil || err.Error() != tt.wantErrText {
					t.Fatalf("Validate() error = %v, want %q", err, tt.wantErrText)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if summary.Columns != tt.wantColumns {
				t.Errorf("Columns = %d, want %d", summary.Columns, tt.wantColumns)
			}
			if summary.Rows != tt.wantRows {
				t.Errorf("Rows = %d, want %d", summary.Rows, tt.wantRows)
			}
		})
	}
}

func TestValidate_MalformedQuoting(t *testing.T) {
	_, err := Validate(strings.NewReader("id,name\n1,\"unterminated\n"))
	if err == nil {
		t.Fatal("Validate accepted malformed quoting")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := GenerateOptions{Rows: 50, Seed: 42}

	var first, second bytes.Buffer
	if err := Generate(&first, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if err := Generate(&second, opts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if first.String() != second.String() {
		t.Error("same seed produced different output")
	}
}

func TestGenerate_OutputValidates(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, GenerateOptions{Rows: 10, Seed: 1}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	summary, err := Validate(&buf)
	if err != nil {
		t.Fatalf("generated CSV failed validation: %v", err)
	}
	if summary.Columns != 3 {
		t.Errorf("Columns = %d, want 3", summary.Columns)
	}
	if summary.Rows != 10 {
		t.Errorf("Rows = %d, want 10", summary.Rows)
	}
	if got := strings.Join(summary.Header, ","); got != "id,name,value" {
		t.Errorf("header = %q, want id,name,value", got)
	}
}

func TestGenerate_SkipHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, GenerateOptions{Rows: 3, Seed: 1, SkipHeader: true}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if strings.HasPrefix(lines[0], "id,") {
		t.Error("header present despite SkipHeader")
	}
}

func TestGenerate_InvalidOptions(t *testing.T) {
	if err := Generate(&bytes.Buffer{}, GenerateOptions{Rows: -1}); err == nil {
		t.Error("Generate accepted negative rows")
	}
	if err := Generate(&bytes.Buffer{}, GenerateOptions{Rows: 1, MinValue: 10, MaxValue: 5}); err == nil {
		t.Error("Generate accepted min > max")
	}
}

func TestGenerate_ValueBounds(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, GenerateOptions{Rows: 100, Seed: 7, MinValue: 5, MaxValue: 6}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if v := fields[2]; v != "5" && v != "6" {
			t.Fatalf("value %q outside [5,6]", v)
		}
	}
}
