package commands

import (
	"context"
	"fmt"

	"github.com/marmos91/granula/internal/cli/output"
	"github.com/marmos91/granula/internal/cli/prompt"
	"github.com/marmos91/granula/pkg/config"
	"github.com/spf13/cobra"
)

var purgeForce bool

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all ingested data and stored payloads",
	Long: `Delete every file, chunk and record row from the database and every
payload from blob storage. This cannot be undone.

The server does not need to be running. Do not purge while a server is
processing: workers would lose their rows mid-chunk.

Examples:
  # Purge with confirmation prompt
  granula purge

  # Purge without prompting (automation)
  granula purge --force`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false, "Skip the confirmation prompt")
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	confirmed, err := prompt.ConfirmWithForce("Delete ALL ingested data and stored payloads?", purgeForce)
	if err != nil {
		if prompt.IsAborted(err) {
			fmt.Println("Aborted.")
			return nil
		}
		return err
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	ctx := context.Background()

	st, err := cfg.CreateStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	blobs, err := cfg.CreateBlobStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = blobs.Close() }()

	rows, err := st.PurgeAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge database: %w", err)
	}

	payloads, err := blobs.Purge(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge blob storage: %w", err)
	}

	output.DefaultPrinter().Success(
		fmt.Sprintf("Purged %d database rows and %d stored payloads", rows, payloads))
	return nil
}
