package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"
)

// DefaultNames is the pool sampled for the name column when no override
// is given.
var DefaultNames = []string{
	"Alice", "Bob", "Carol", "Dave", "Eve", "Frank", "Grace", "Heidi", "Ivan", "Judy",
	"Mallory", "Niaj", "Olivia", "Peggy", "Sybil", "Trent", "Victor", "Wendy",
}

// GenerateOptions controls sample CSV generation.
type GenerateOptions struct {
	// Rows is the number of data rows to generate.
	Rows int

	// MinValue and MaxValue bound the value column.
	MinValue int
	MaxValue int

	// Names overrides the pool for the name column.
	Names []string

	// Seed makes the output reproducible. Zero seeds from the clock.
	Seed int64

	// SkipHeader omits the header row, producing a payload the
	// validator rejects. Useful for exercising failure paths.
	SkipHeader bool
}

// ApplyDefaults fills in missing options with default values.
func (o *GenerateOptions) ApplyDefaults() {
	if o.Rows == 0 {
		o.Rows = 1000
	}
	if o.MinValue == 0 && o.MaxValue == 0 {
		o.MinValue = 1
		o.MaxValue = 1000
	}
	if len(o.Names) == 0 {
		o.Names = DefaultNames
	}
}

// Validate checks if the options are valid.
func (o *GenerateOptions) Validate() error {
	if o.Rows < 0 {
		return fmt.Errorf("rows must be >= 0")
	}
	if o.MinValue > o.MaxValue {
		return fmt.Errorf("min value %d cannot be greater than max value %d", o.MinValue, o.MaxValue)
	}
	return nil
}

// Generate writes a sample CSV with columns id,name,value. Row i carries
// id i (1-based), a name sampled from the pool, and a value in
// [MinValue, MaxValue].
func Generate(w io.Writer, opts GenerateOptions) error {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	writer := csv.NewWriter(w)

	if !opts.SkipHeader {
		if err := writer.Write([]string{"id", "name", "value"}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	span := opts.MaxValue - opts.MinValue + 1
	for i := 1; i <= opts.Rows; i++ {
		row := []string{
			strconv.Itoa(i),
			opts.Names[rng.Intn(len(opts.Names))],
			strconv.Itoa(opts.MinValue + rng.Intn(span)),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
