package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/marmos91/granula/pkg/blob"
)

// ReadChunk reads up to numRows CSV rows from the payload, starting at
// the byte offset recorded when the chunk was planned.
//
// The start cookie always points at the first byte of a row, so parsing
// can begin immediately without scanning for a boundary. Hitting EOF
// before the row budget is not an error: the planner counted the rows
// that exist, and a shorter read just means the payload ended.
func ReadChunk(ctx context.Context, blobs blob.Store, key string, startCookie uint64, numRows uint32) ([][]string, error) {
	rc, err := blobs.OpenRange(ctx, key, startCookie)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	rows := make([][]string, 0, numRows)
	for uint32(len(rows)) < numRows {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse chunk at offset %d: %w", startCookie, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
