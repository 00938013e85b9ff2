package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/granula/internal/bytesize"
	"github.com/marmos91/granula/internal/cli/output"
	"github.com/marmos91/granula/internal/cli/timeutil"
	"github.com/marmos91/granula/pkg/config"
	"github.com/marmos91/granula/pkg/models"
	"github.com/spf13/cobra"
)

var filesOutput string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List ingested files",
	Long: `List every uploaded file with its processing state.

The command reads the database directly, so it works whether or not a
server is running.

Examples:
  # List files as table
  granula files

  # List as JSON
  granula files -o json`,
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().StringVarP(&filesOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// FileList is a list of files for table rendering.
type FileList []*models.File

// Headers implements TableRenderer.
func (fl FileList) Headers() []string {
	return []string{"ID", "FILENAME", "STATUS", "CHUNKS", "SIZE", "UPLOADED"}
}

// Rows implements TableRenderer.
func (fl FileList) Rows() [][]string {
	rows := make([][]string, 0, len(fl))
	for _, f := range fl {
		chunks := fmt.Sprintf("%d/%d", f.ProcessedChunks, f.TotalChunks)
		if f.FailedChunks > 0 {
			chunks = fmt.Sprintf("%d/%d (%d failed)", f.ProcessedChunks, f.TotalChunks, f.FailedChunks)
		}
		rows = append(rows, []string{
			f.ID,
			f.Filename,
			string(f.Status),
			chunks,
			bytesize.ByteSize(f.Size).String(),
			f.CreatedAt.Local().Format(timeutil.LocalTimeFormat),
		})
	}
	return rows
}

func runFiles(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(filesOutput)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx := context.Background()

	st, err := cfg.CreateStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	files, err := st.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, files)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, files)
	default:
		if len(files) == 0 {
			fmt.Println("No files found.")
			return nil
		}
		return output.PrintTable(os.Stdout, FileList(files))
	}
}
