package config

import (
	"fmt"

	"github.com/marmos91/granula/pkg/config"
	"github.com/marmos91/granula/pkg/store"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the Granula configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  granula config validate

  # Validate specific config file
  granula config validate --config /etc/granula/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	// Load and validate configuration
	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	// Determine path for display
	displayPath := configPath
	if displayPath == "" {
		if config.DefaultConfigExists() {
			displayPath = config.GetDefaultConfigPath()
		} else {
			displayPath = "(defaults and environment)"
		}
	}

	dbCfg, err := store.ParseDatabaseURL(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}

	// Additional validation checks
	var warnings []string

	if cfg.Processing.DisableBackground {
		warnings = append(warnings, "Background processing is disabled - uploads will be stored but never processed")
	}
	if dbCfg.Type == store.DatabaseTypeSQLite && cfg.Processing.MaxConcurrency > 1 {
		warnings = append(warnings, fmt.Sprintf("SQLite allows a single writer - max_concurrency %d is reduced to 1 at start",
			cfg.Processing.MaxConcurrency))
	}

	// Print results
	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Database type:   %s\n", dbCfg.Type)
	fmt.Printf("  Blob backend:    %s\n", cfg.Blob.Backend)
	fmt.Printf("  API port:        %d\n", cfg.Server.Port)
	fmt.Printf("  Chunk size:      %d\n", cfg.Processing.ChunkSize)
	fmt.Printf("  Workers:         %d\n", cfg.Processing.MaxConcurrency)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
