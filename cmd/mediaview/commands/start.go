package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/internal/telemetry"
	"github.com/marmos91/mediaview/pkg/api"
	"github.com/marmos91/mediaview/pkg/config"
	"github.com/marmos91/mediaview/pkg/viewer"
)

var noWatch bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mediaview server",
	Long: `Start the viewer session API in the foreground.

The server runs until it receives SIGINT or SIGTERM. Open sessions are
closed on shutdown, which cancels their in-flight prefetches.

The logging level and format are reloaded when the configuration file
changes; everything else requires a restart.

Examples:
  # Start with the default config location
  mediaview start

  # Start with a custom config file
  mediaview start --config /etc/mediaview/config.yaml

  # Override settings with environment variables
  MEDIAVIEW_LOGGING_LEVEL=DEBUG MEDIAVIEW_PRELOAD_CAPACITY=20 mediaview start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload logging settings when the config file changes")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "mediaview",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "mediaview",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	// Metrics first, so the fetcher and caches get live observers.
	metricsResult := config.InitializeMetrics(cfg)

	fetcher, err := config.NewFetcher(ctx, cfg.Sources, metricsResult.Source)
	if err != nil {
		return err
	}

	manager := viewer.NewManager(config.NewCacheFactory(cfg.Preload, fetcher, metricsResult.Preload))
	defer manager.CloseAll()

	logger.Info("Preload cache configured",
		logger.KeyCacheCapacity, cfg.Preload.Capacity,
		logger.KeyThreshold, cfg.Preload.MemoryThreshold,
		"heap_stats", cfg.Preload.HeapStats,
		"schemes", fetcher.Schemes())

	if !noWatch {
		if err := config.Watch(GetConfigFile(), config.ApplyLogging); err != nil {
			logger.Warn("Config watch disabled", logger.KeyError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		g.Go(func() error { return metricsResult.Server.Start(gctx) })
	} else {
		logger.Info("Metrics collection disabled")
	}

	if cfg.API.IsEnabled() {
		apiServer := api.NewServer(cfg.API, manager)
		g.Go(func() error { return apiServer.Start(gctx) })
	} else {
		logger.Warn("API server disabled, nothing to serve")
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	err = g.Wait()
	if ctx.Err() != nil {
		logger.Info("Shutdown signal received, closing sessions", "sessions", manager.Len())
	}
	if err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
