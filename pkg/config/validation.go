package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/granula/pkg/blob"
	"github.com/marmos91/granula/pkg/store"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Per-field constraints are expressed as struct tags and checked with the
// validator package. Rules that span more than one field (an enabled
// subsystem missing its endpoint, a backend missing its location) cannot be
// expressed as tags and are checked by hand below.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return errors.New("telemetry is enabled but no endpoint is configured")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return errors.New("profiling is enabled but no endpoint is configured")
	}

	switch cfg.Blob.Backend {
	case "", string(blob.BackendFilesystem):
		if cfg.Blob.Path == "" {
			return errors.New("blob storage path is required for the filesystem backend")
		}
	case string(blob.BackendS3):
		if cfg.Blob.S3.Bucket == "" {
			return errors.New("blob storage bucket is required for the s3 backend")
		}
		if cfg.Blob.S3.Region == "" && cfg.Blob.S3.Endpoint == "" {
			return errors.New("blob storage s3 backend needs a region or an endpoint")
		}
	}

	if cfg.Database.URL != "" {
		if _, err := store.ParseDatabaseURL(cfg.Database.URL); err != nil {
			return fmt.Errorf("invalid database url: %w", err)
		}
	}

	return nil
}
