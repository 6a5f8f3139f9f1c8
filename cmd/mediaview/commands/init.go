package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/mediaview/internal/cli/prompt"
	"github.com/marmos91/mediaview/pkg/config"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a configuration file",
	Long: `Create a configuration file with default settings.

With --interactive, the most common settings are asked for first.

Examples:
  # Create config at the default location
  mediaview init

  # Create config at a custom location
  mediaview init --config /etc/mediaview/config.yaml

  # Walk through the main settings
  mediaview init --interactive

  # Overwrite an existing config
  mediaview init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := askConfig(cfg); err != nil {
			if errors.Is(err, prompt.ErrAborted) {
				return fmt.Errorf("init aborted")
			}
			return err
		}
	}

	if err := config.WriteConfig(cfg, path, initForce); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w\nUse --force to overwrite", err)
		}
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Edit the configuration file to customize your setup")
	_, _ = fmt.Fprintln(out, "  2. Start the server with: mediaview start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: mediaview start --config %s\n", path)
	return nil
}

// askConfig prompts for the settings most deployments change.
func askConfig(cfg *config.Config) error {
	var err error

	if cfg.API.Port, err = prompt.InputPort("API port", cfg.API.Port); err != nil {
		return err
	}
	if cfg.Preload.Capacity, err = prompt.InputInt("Preload cache capacity (entries)", cfg.Preload.Capacity, 1); err != nil {
		return err
	}
	if cfg.Preload.MemoryThreshold, err = prompt.InputFraction("Heap usage threshold for prefetching", cfg.Preload.MemoryThreshold); err != nil {
		return err
	}

	level, err := prompt.Select("Log level", []prompt.Option{
		{Label: "INFO", Value: "INFO", Description: "Server lifecycle and configuration"},
		{Label: "DEBUG", Value: "DEBUG", Description: "Every prefetch, eviction and navigation"},
		{Label: "WARN", Value: "WARN"},
		{Label: "ERROR", Value: "ERROR"},
	})
	if err != nil {
		return err
	}
	cfg.Logging.Level = level

	if cfg.Metrics.Enabled, err = prompt.Confirm("Enable Prometheus metrics", false); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port, err = prompt.InputPort("Metrics port", 9090); err != nil {
			return err
		}
	}

	if cfg.Sources.S3.Enabled, err = prompt.Confirm("Serve s3:// locators", false); err != nil {
		return err
	}
	if cfg.Sources.S3.Enabled {
		if cfg.Sources.S3.Region, err = prompt.Input("S3 region", "us-east-1"); err != nil {
			return err
		}
		if cfg.Sources.S3.Endpoint, err = prompt.Input("S3 endpoint (empty for AWS)", ""); err != nil {
			return err
		}
		cfg.Sources.S3.ForcePathStyle = cfg.Sources.S3.Endpoint != ""
	}

	if cfg.Sources.File.Enabled, err = prompt.Confirm("Serve local files", false); err != nil {
		return err
	}
	if cfg.Sources.File.Enabled {
		if cfg.Sources.File.Root, err = prompt.Input("Media root directory", "/srv/media"); err != nil {
			return err
		}
	}
	return nil
}
