package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marmos91/mediaview/internal/logger"
)

// Watch reloads the configuration file whenever it changes on disk and
// calls onChange with the new, validated configuration. Invalid edits are
// logged and ignored. Only settings that can change at runtime should be
// acted upon; today that is the logging level and format.
//
// Watch returns immediately. It is a no-op when configPath is empty and no
// default config file exists.
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil || !found {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				"file", e.Name, logger.KeyError, err)
			return
		}
		logger.Info("Configuration reloaded", "file", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// ApplyLogging applies the hot-reloadable logging settings.
func ApplyLogging(cfg *Config) {
	if !strings.EqualFold(logger.Level(), cfg.Logging.Level) {
		logger.Info("Log level changed", "from", logger.Level(), "to", cfg.Logging.Level)
		logger.SetLevel(cfg.Logging.Level)
	}
	logger.SetFormat(cfg.Logging.Format)
}
