package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/mediaview/internal/cli/output"
	"github.com/marmos91/mediaview/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the mediaview configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  mediaview config validate
  mediaview config validate --config /etc/mediaview/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	var kv output.KeyValues
	kv.Add("API port", fmt.Sprint(cfg.API.Port))
	kv.Add("Preload capacity", fmt.Sprint(cfg.Preload.Capacity))
	kv.Add("Memory threshold", fmt.Sprint(cfg.Preload.MemoryThreshold))
	kv.Add("Max image size", cfg.Preload.MaxImageBytes.String())
	kv.Add("Video metadata", cfg.Preload.VideoMetadataBytes.String())
	kv.Add("Log level", cfg.Logging.Level)
	return output.PrintKeyValues(out, kv)
}

// configWarnings flags settings that are valid but likely unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if !cfg.API.IsEnabled() {
		warnings = append(warnings, "API server disabled - 'mediaview start' will serve nothing")
	}
	if cfg.Preload.HeapStats == config.HeapStatsNone {
		warnings = append(warnings, "Heap stats disabled - prefetching ignores memory pressure")
	}
	if cfg.Preload.Capacity < 5 {
		warnings = append(warnings, fmt.Sprintf("Preload capacity %d is smaller than one neighborhood (5)", cfg.Preload.Capacity))
	}
	return warnings
}
