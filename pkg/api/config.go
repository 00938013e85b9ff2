package api

import "time"

// Config configures the REST API HTTP server.
//
// The API is the only ingress of the service: it accepts uploads, reports
// per-file progress, and pages through processed records. Admission limits
// (maximum payload size, accepted content types) live here because they are
// enforced at the HTTP boundary, before anything is persisted.
type Config struct {
	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Uploads stream through this window, so it must
	// accommodate the largest accepted payload on a slow link.
	// Default: 5m
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means there is no timeout.
	// Default: 1m
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If zero, the value of ReadTimeout is used.
	// Default: 2m
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// RequestTimeout bounds handler time for the read-side endpoints
	// (status, results, health). Uploads are exempt; they are bounded by
	// ReadTimeout instead so large payloads are not cut off mid-stream.
	// Default: 1m
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// MaxUploadMB is the maximum accepted payload size in megabytes.
	// Uploads above this limit are rejected before the body is read in full.
	// Default: 500
	MaxUploadMB int `mapstructure:"max_upload_mb" validate:"omitempty,min=1" yaml:"max_upload_mb"`

	// AllowedContentTypes lists the MIME types accepted for uploads.
	// Requests with a missing or generic content type are sniffed and
	// admitted when the detected type is in this list.
	// Default: text/csv, application/csv
	AllowedContentTypes []string `mapstructure:"allowed_content_types" yaml:"allowed_content_types"`
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = time.Minute
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 500
	}
	if len(c.AllowedContentTypes) == 0 {
		c.AllowedContentTypes = []string{"text/csv", "application/csv"}
	}
}

// MaxUploadBytes returns the admission limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
