package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by the init functions when the target file
// exists and force is false.
var ErrConfigExists = errors.New("configuration file already exists")

const configHeader = `# mediaview Configuration File
#
# Every value below is a default. Environment variables override any key,
# e.g. MEDIAVIEW_PRELOAD_CAPACITY=20 or MEDIAVIEW_LOGGING_LEVEL=DEBUG.
#
# Sizes accept human-readable units ("32Mi", "256KiB", "10MB").
# Durations use Go syntax ("15s", "1m30s").
#
# Generate a JSON schema for editor completion with:
#   mediaview config schema --output config.schema.json

`

// InitConfig writes the default configuration to the default location and
// returns its path.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path.
func InitConfigToPath(path string, force bool) error {
	return WriteConfig(GetDefaultConfig(), path, force)
}

// WriteConfig validates cfg and writes it to path with the sample header.
func WriteConfig(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
		}
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("refusing to write invalid configuration: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_ = enc.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
