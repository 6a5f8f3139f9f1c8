package config

import (
	"strings"
	"time"

	"github.com/marmos91/mediaview/pkg/api"
	"github.com/marmos91/mediaview/pkg/media"
	"github.com/marmos91/mediaview/pkg/preload"
)

// DefaultUserAgent is sent by the HTTP fetcher unless configured otherwise.
const DefaultUserAgent = "mediaview"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyPreloadDefaults(&cfg.Preload)
	applySourcesDefaults(&cfg.Sources)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets the port only when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

func applyPreloadDefaults(cfg *PreloadConfig) {
	if cfg.Capacity == 0 {
		cfg.Capacity = preload.DefaultCapacity
	}
	if cfg.MemoryThreshold == 0 {
		cfg.MemoryThreshold = preload.DefaultMemoryThreshold
	}
	if cfg.HeapStats == "" {
		cfg.HeapStats = HeapStatsRuntime
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = media.DefaultMaxImageBytes
	}
	if cfg.VideoMetadataBytes == 0 {
		cfg.VideoMetadataBytes = media.DefaultVideoMetadataBytes
	}
}

func applySourcesDefaults(cfg *SourcesConfig) {
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 15 * time.Second
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = DefaultUserAgent
	}
	if cfg.S3.MaxRetries == 0 {
		cfg.S3.MaxRetries = 3
	}
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
