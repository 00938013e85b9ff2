package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/granula/pkg/blob"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyDatabaseDefaults(&cfg.Database)
	applyBlobDefaults(&cfg.Blob)
	applyProcessingDefaults(cfg)
	applyServerDefaults(cfg)
	// Metrics need no defaults: collection is opt-in and the zero value
	// keeps it disabled.
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)
	// No need to set, zero value is false

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	// Apply profiling defaults
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Enabled defaults to false (opt-in for profiling)
	// No need to set, zero value is false

	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDatabaseDefaults points an unset database at a SQLite file under the
// config directory, mirroring the original deployment's local fallback.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.URL == "" {
		cfg.URL = "sqlite://" + filepath.ToSlash(filepath.Join(getConfigDir(), "granula.db"))
	}
}

// applyBlobDefaults sets payload storage defaults.
func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Backend == "" {
		cfg.Backend = string(blob.BackendFilesystem)
	}
	// Default upload directory matches the layout the service has always
	// used; it is created on startup.
	if cfg.Path == "" {
		cfg.Path = filepath.Join("storage", "uploads")
	}
}

// applyProcessingDefaults sets pipeline defaults.
func applyProcessingDefaults(cfg *Config) {
	cfg.Processing.ApplyDefaults()
}

// applyServerDefaults sets HTTP server defaults.
// The API is always enabled; it is the only ingress of the service.
func applyServerDefaults(cfg *Config) {
	cfg.Server.ApplyDefaults()
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
