package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/mediaview/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

preload:
  capacity: 6
  max_image_bytes: 8Mi
  video_metadata_bytes: 128Ki
  load_timeout: 20s
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Preload.Capacity != 6 {
		t.Errorf("Expected capacity 6, got %d", cfg.Preload.Capacity)
	}
	if cfg.Preload.MaxImageBytes != 8*bytesize.MiB {
		t.Errorf("Expected max_image_bytes 8Mi, got %v", cfg.Preload.MaxImageBytes)
	}
	if cfg.Preload.VideoMetadataBytes != 128*bytesize.KiB {
		t.Errorf("Expected video_metadata_bytes 128Ki, got %v", cfg.Preload.VideoMetadataBytes)
	}
	if cfg.Preload.LoadTimeout != 20*time.Second {
		t.Errorf("Expected load_timeout 20s, got %v", cfg.Preload.LoadTimeout)
	}
	if cfg.Preload.MemoryThreshold != 0.80 {
		t.Errorf("Expected default memory_threshold 0.80, got %v", cfg.Preload.MemoryThreshold)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected API port 8080, got %d", cfg.API.Port)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Preload.Capacity != 10 {
		t.Errorf("Expected default capacity 10, got %d", cfg.Preload.Capacity)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
preload:
  memory_threshold: 1.5
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for memory_threshold > 1")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[sources.file]
enabled = true
root = "`+yamlSafePath(os.TempDir())+`"

[sources.s3]
enabled = true
region = "eu-west-1"
force_path_style = true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if !cfg.Sources.File.Enabled {
		t.Error("Expected file source enabled")
	}
	if cfg.Sources.S3.Region != "eu-west-1" || !cfg.Sources.S3.ForcePathStyle {
		t.Errorf("Unexpected s3 source config: %+v", cfg.Sources.S3)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Preload.HeapStats != HeapStatsRuntime {
		t.Errorf("Expected default heap_stats %q, got %q", HeapStatsRuntime, cfg.Preload.HeapStats)
	}
	if cfg.Sources.HTTP.Timeout != 15*time.Second {
		t.Errorf("Expected default http timeout 15s, got %v", cfg.Sources.HTTP.Timeout)
	}
	if cfg.Sources.File.Enabled || cfg.Sources.S3.Enabled {
		t.Error("Expected s3 and file sources disabled by default")
	}
	if !cfg.API.IsEnabled() {
		t.Error("Expected API enabled by default")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if filepath.Base(GetConfigDir()) != "mediaview" {
		t.Errorf("Expected directory name 'mediaview', got %q", filepath.Base(GetConfigDir()))
	}
	if DefaultConfigExists() {
		t.Error("Expected no default config in an empty XDG_CONFIG_HOME")
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("MEDIAVIEW_LOGGING_LEVEL", "ERROR")
	t.Setenv("MEDIAVIEW_API_PORT", "9191")
	t.Setenv("MEDIAVIEW_PRELOAD_CAPACITY", "25")
	t.Setenv("MEDIAVIEW_PRELOAD_MAX_IMAGE_BYTES", "4Mi")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
api:
  port: 8080
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("Expected port 9191 from env var, got %d", cfg.API.Port)
	}
	if cfg.Preload.Capacity != 25 {
		t.Errorf("Expected capacity 25 from env var, got %d", cfg.Preload.Capacity)
	}
	if cfg.Preload.MaxImageBytes != 4*bytesize.MiB {
		t.Errorf("Expected max_image_bytes 4Mi from env var, got %v", cfg.Preload.MaxImageBytes)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Preload.Capacity = 7
	cfg.Preload.VideoMetadataBytes = 64 * bytesize.KiB

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat saved config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Preload.Capacity != 7 {
		t.Errorf("Expected capacity 7, got %d", loaded.Preload.Capacity)
	}
	if loaded.Preload.VideoMetadataBytes != 64*bytesize.KiB {
		t.Errorf("Expected video_metadata_bytes 64Ki, got %v", loaded.Preload.VideoMetadataBytes)
	}
}
