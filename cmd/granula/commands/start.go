package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/marmos91/granula/internal/logger"
	"github.com/marmos91/granula/internal/telemetry"
	"github.com/marmos91/granula/pkg/api"
	"github.com/marmos91/granula/pkg/config"
	"github.com/marmos91/granula/pkg/ingest"
	"github.com/marmos91/granula/pkg/metrics"
	"github.com/marmos91/granula/pkg/store"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Granula server",
	Long: `Start the Granula server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

On startup the server recovers any files whose processing was interrupted:
unplanned uploads are re-planned and unfinished chunks go back on the queue.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/granula/config.yaml.

Examples:
  # Start in background (default)
  granula start

  # Start in foreground
  granula start --foreground

  # Start with custom config file
  granula start --config /etc/granula/config.yaml

  # Start with environment variable overrides
  GRANULA_LOGGING_LEVEL=DEBUG granula start --foreground

  # Or with the canonical deployment variables
  DATABASE_URL=postgres://granula@localhost/granula MAX_CONCURRENCY=8 granula start -f`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/granula/granula.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/granula/granula.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "granula",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "granula",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("Granula - Asynchronous CSV ingestion service")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics FIRST (before creating the pipeline that asks for
	// collectors). Constructors return nil while the registry is down.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	// SQLite allows a single writer at a time, so extra chunk workers would
	// only contend on the write lock.
	dbCfg, err := store.ParseDatabaseURL(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}
	if dbCfg.Type == store.DatabaseTypeSQLite && cfg.Processing.MaxConcurrency > 1 {
		logger.Info("SQLite backend is single-writer, reducing chunk workers to 1",
			"configured", cfg.Processing.MaxConcurrency)
		cfg.Processing.MaxConcurrency = 1
	}

	// Open the relational store (ensures the schema on SQLite)
	st, err := cfg.CreateStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	logger.Info("Database ready", "type", string(dbCfg.Type))

	// Open blob storage for uploaded payloads
	blobs, err := cfg.CreateBlobStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = blobs.Close() }()
	logger.Info("Blob storage ready", "backend", blobs.Backend())

	// Start the ingestion pipeline. Start recovers work the previous
	// process left in flight before accepting new uploads.
	mgr := ingest.NewManager(st, blobs, cfg.Processing, metrics.NewIngestMetrics())
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ingestion pipeline: %w", err)
	}
	logger.Info("Ingestion pipeline started",
		"workers", cfg.Processing.MaxConcurrency,
		"chunk_size", cfg.Processing.ChunkSize,
		"max_retries", cfg.Processing.MaxRetries)

	// Create the API server
	deps := api.Dependencies{
		Store:   st,
		Blobs:   blobs,
		Ingest:  mgr,
		Version: Version,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.NewHTTPMetrics()
		deps.MetricsHandler = metrics.Handler()
	}
	apiServer := api.NewServer(cfg.Server, deps)
	logger.Info("API server configured", "port", cfg.Server.Port)

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Stop accepting requests first, then drain the workers
		serverErr := <-serverDone
		mgr.Stop(cfg.ShutdownTimeout)
		if serverErr != nil {
			logger.Error("Server shutdown error", "error", serverErr)
			return serverErr
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		mgr.Stop(cfg.ShutdownTimeout)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()

	// Create state directory if it doesn't exist
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Set default PID file if not specified
	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check if already running
	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				// Check if process is still running
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("Granula is already running (PID %d)\nUse 'granula stop' to stop the running instance", pid)
					}
				}
			}
		}
		// Stale PID file, remove it
		_ = os.Remove(pidPath)
	}

	// Set default log file if not specified
	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	// Get the executable path
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Build arguments for the daemon process
	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	// Create the daemon process
	cmd := exec.Command(executable, daemonArgs...)

	// Open log file for stdout/stderr
	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	// Detach from parent process
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	// Start the daemon
	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("Granula started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'granula stop' to stop the server")
	fmt.Println("Use 'granula status' to check server status")

	return nil
}
