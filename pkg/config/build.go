package config

import (
	"context"
	"fmt"

	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/pkg/media"
	"github.com/marmos91/mediaview/pkg/media/source"
	"github.com/marmos91/mediaview/pkg/metrics"
	"github.com/marmos91/mediaview/pkg/metrics/prometheus"
	"github.com/marmos91/mediaview/pkg/preload"
	"github.com/marmos91/mediaview/pkg/viewer"
)

// HeapStats probe names.
const (
	HeapStatsRuntime = "runtime"
	HeapStatsNone    = "none"
)

// MetricsResult contains the result of metrics initialization.
type MetricsResult struct {
	// Server is the metrics HTTP server. Nil when metrics are disabled.
	Server *metrics.Server

	// Preload is the cache observer shared by every session. Nil when
	// metrics are disabled.
	Preload preload.CacheMetrics

	// Source observes fetches. Nil when metrics are disabled.
	Source source.Metrics
}

// InitializeMetrics creates the registry, the observers and the metrics
// server when metrics are enabled. Observers are created once and shared:
// Prometheus rejects a second registration of the same series.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	reg := metrics.InitRegistry()
	return MetricsResult{
		Server:  metrics.NewServer(cfg.Metrics.Port, reg),
		Preload: prometheus.NewPreloadMetrics(),
		Source:  prometheus.NewSourceMetrics(),
	}
}

// NewFetcher builds the scheme router from the sources configuration.
// http and https are always served; s3 and file only when enabled.
func NewFetcher(ctx context.Context, cfg SourcesConfig, m source.Metrics) (*source.Router, error) {
	router := source.NewRouter().WithMetrics(m)

	router.Handle(source.NewHTTPFetcher(source.HTTPConfig{
		Timeout:   cfg.HTTP.Timeout,
		UserAgent: cfg.HTTP.UserAgent,
	}), "http", "https")

	if cfg.S3.Enabled {
		s3, err := source.NewS3FetcherFromConfig(ctx, source.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			MaxRetries:      cfg.S3.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 fetcher: %w", err)
		}
		router.Handle(s3, "s3")
	}

	if cfg.File.Enabled {
		router.Handle(source.FileFetcher{Root: cfg.File.Root}, "file")
	}

	logger.Debug("Media sources configured", "schemes", router.Schemes())
	return router, nil
}

// NewLoaders returns the image and video loaders over fetcher.
func NewLoaders(cfg PreloadConfig, fetcher source.Fetcher) preload.Loaders {
	return preload.Loaders{
		preload.KindImage: &media.ImageLoader{
			Fetcher:  fetcher,
			MaxBytes: cfg.MaxImageBytes.Int64(),
		},
		preload.KindVideo: &media.VideoLoader{
			Fetcher:       fetcher,
			MetadataBytes: cfg.VideoMetadataBytes.Int64(),
		},
	}
}

// NewHeapStats returns the admission probe selected by name, or nil for
// "none".
func NewHeapStats(name string) preload.HeapStatsProvider {
	if name == HeapStatsNone {
		return nil
	}
	return preload.RuntimeHeapStats{}
}

// NewCacheFactory returns a viewer.CacheFactory producing caches configured
// from cfg. observer may be nil.
func NewCacheFactory(cfg PreloadConfig, fetcher source.Fetcher, observer preload.CacheMetrics) viewer.CacheFactory {
	loaders := NewLoaders(cfg, fetcher)
	cacheCfg := preload.Config{
		Capacity:        cfg.Capacity,
		MemoryThreshold: cfg.MemoryThreshold,
		LoadTimeout:     cfg.LoadTimeout,
	}

	opts := []preload.Option{preload.WithMetrics(observer)}
	if hs := NewHeapStats(cfg.HeapStats); hs != nil {
		opts = append(opts, preload.WithHeapStats(hs))
	}

	return func() *preload.Cache {
		return preload.New(cacheCfg, loaders, opts...)
	}
}
