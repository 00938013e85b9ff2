// Package csvutil validates the structure of uploaded CSV payloads and
// generates deterministic sample data for testing.
//
// Validation is structural only: every row must have the same number of
// columns as the header. No schema inference or type checking is done;
// rows are ingested as opaque string fields.
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Validation errors
var (
	// ErrEmptyFile indicates the payload contains no rows at all.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoHeader indicates the first row is empty.
	ErrNoHeader = errors.New("no header row found")

	// ErrNoDataRows indicates the payload has a header but no data rows.
	ErrNoDataRows = errors.New("no data rows found")

	// ErrInvalidEncoding indicates a field is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid encoding (use UTF-8)")
)

// Summary describes a structurally valid CSV payload.
type Summary struct {
	// Header is the first row.
	Header []string

	// Columns is the number of columns every row must have.
	Columns int

	// Rows is the number of data rows, excluding the header.
	Rows int
}

// Validate reads the payload to the end and checks its structure: a header
// row, at least one data row, and a uniform column count throughout.
//
// Row numbers in errors count the header as row 1, so the first data row
// is row 2. Multi-line quoted fields count as one row.
func Validate(r io.Reader) (*Summary, error) {
	reader := csv.NewReader(r)
	// Column counts are checked by hand so the error can say which row
	// diverged and by how much.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || (len(header) == 1 && header[0] == "") {
		return nil, ErrNoHeader
	}
	if err := checkEncoding(header); err != nil {
		return nil, err
	}

	expected := len(header)
	rows := 0
	rowNum := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rowNum++
		if len(row) != expected {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", rowNum, len(row), expected)
		}
		if err := checkEncoding(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		rows++
	}

	if rows == 0 {
		return nil, ErrNoDataRows
	}

	return &Summary{
		Header:  header,
		Columns: expected,
		Rows:    rows,
	}, nil
}

func checkEncoding(row []string) error {
	for _, field := range row {
		if !utf8.ValidString(field) {
			return ErrInvalidEncoding
		}
	}
	return nil
}
