package config

import (
	"fmt"

	"github.com/marmos91/granula/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initForce  bool
	initOutput string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a commented starter configuration file.

By default the file is created at $XDG_CONFIG_HOME/granula/config.yaml.
Use --output to write it somewhere else. The file is created with mode
0600 since it may hold database credentials.

Examples:
  # Initialize with default location
  granula config init

  # Initialize with custom path
  granula config init --output /etc/granula/config.yaml

  # Force overwrite existing config
  granula config init --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Path to write the config file (default: $XDG_CONFIG_HOME/granula/config.yaml)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string
	var err error

	if initOutput != "" {
		// Use custom path
		err = config.InitConfigToPath(initOutput, initForce)
		configPath = initOutput
	} else {
		// Use default path
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: granula start")
	fmt.Printf("  3. Or specify custom config: granula start --config %s\n", configPath)

	return nil
}
