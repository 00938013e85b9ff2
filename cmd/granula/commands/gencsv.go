package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marmos91/granula/internal/bytesize"
	"github.com/marmos91/granula/pkg/csvutil"
	"github.com/spf13/cobra"
)

var (
	gencsvOutput string
	gencsvRows   int
	gencsvSize   string
	gencsvMin    int
	gencsvMax    int
	gencsvNames  []string
	gencsvSeed   int64
	gencsvHeader bool
)

var gencsvCmd = &cobra.Command{
	Use:   "gencsv",
	Short: "Generate a sample CSV file",
	Long: `Generate a sample CSV file with the id,name,value columns the upload
endpoint expects. Useful for trying out the service and for load tests.

Row ids are sequential, names are sampled from a fixed pool and values are
uniform in [--min, --max]. Pass --seed for reproducible output, or --size
to target an approximate file size instead of a row count.

Examples:
  # 1000 rows to sample.csv (defaults)
  granula gencsv

  # One million rows, reproducible
  granula gencsv --rows 1000000 --seed 42 -o big.csv

  # Roughly 50 MiB of data
  granula gencsv --size 50Mi -o load.csv

  # Payload the validator rejects (missing header)
  granula gencsv --header=false -o bad.csv`,
	RunE: runGencsv,
}

func init() {
	gencsvCmd.Flags().StringVarP(&gencsvOutput, "output", "o", "sample.csv", "Output CSV file path")
	gencsvCmd.Flags().IntVarP(&gencsvRows, "rows", "n", 1000, "Number of data rows to generate")
	gencsvCmd.Flags().StringVar(&gencsvSize, "size", "", "Approximate target file size (e.g. 50Mi, 100MB); overrides --rows")
	gencsvCmd.Flags().IntVar(&gencsvMin, "min", 1, "Minimum value for the 'value' column")
	gencsvCmd.Flags().IntVar(&gencsvMax, "max", 1000, "Maximum value for the 'value' column")
	gencsvCmd.Flags().StringSliceVar(&gencsvNames, "names", nil, "Override list of names to sample from (comma-separated)")
	gencsvCmd.Flags().Int64Var(&gencsvSeed, "seed", 0, "Random seed for reproducibility (0 seeds from the clock)")
	gencsvCmd.Flags().BoolVar(&gencsvHeader, "header", true, "Write the id,name,value header row")
}

func runGencsv(cmd *cobra.Command, args []string) error {
	opts := csvutil.GenerateOptions{
		Rows:       gencsvRows,
		MinValue:   gencsvMin,
		MaxValue:   gencsvMax,
		Names:      gencsvNames,
		Seed:       gencsvSeed,
		SkipHeader: !gencsvHeader,
	}

	if gencsvSize != "" {
		if cmd.Flags().Changed("rows") {
			return fmt.Errorf("--rows and --size are mutually exclusive")
		}
		target, err := bytesize.ParseByteSize(gencsvSize)
		if err != nil {
			return fmt.Errorf("invalid --size: %w", err)
		}
		rows, err := estimateRows(opts, target.Uint64())
		if err != nil {
			return err
		}
		opts.Rows = rows
	}

	// Create the output directory if needed
	if dir := filepath.Dir(gencsvOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(gencsvOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	counter := &countingWriter{w: file}
	if err := csvutil.Generate(counter, opts); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	fmt.Printf("CSV generated: %s (%d rows, %s)\n",
		gencsvOutput, opts.Rows, bytesize.ByteSize(counter.n).String())
	return nil
}

// estimateRows sizes the row count for a byte target by measuring the
// average row length on a small sample. The result is approximate: row ids
// grow in width as the file grows.
func estimateRows(opts csvutil.GenerateOptions, targetBytes uint64) (int, error) {
	const sampleRows = 1000

	sample := opts
	sample.Rows = sampleRows

	counter := &countingWriter{w: io.Discard}
	if err := csvutil.Generate(counter, sample); err != nil {
		return 0, err
	}
	if counter.n == 0 {
		return 0, fmt.Errorf("sample generation produced no output")
	}

	avg := float64(counter.n) / float64(sampleRows)
	rows := int(float64(targetBytes) / avg)
	if rows < 1 {
		rows = 1
	}
	return rows, nil
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}
