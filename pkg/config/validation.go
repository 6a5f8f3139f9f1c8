package config

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/mediaview/internal/telemetry"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags and the cross-field rules tags cannot
// express. It expects defaults to have been applied.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if err := configValidator().Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Telemetry.Endpoint); err != nil {
			return fmt.Errorf("telemetry.endpoint must be host:port: %w", err)
		}
	}

	if cfg.Telemetry.Profiling.Enabled {
		if _, err := telemetry.ParseProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
			return fmt.Errorf("telemetry.profiling.profile_types: %w", err)
		}
	}

	s3 := cfg.Sources.S3
	if (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
		return errors.New("sources.s3: access_key_id and secret_access_key must be set together")
	}

	if cfg.Metrics.Enabled && cfg.API.IsEnabled() && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.API.Port)
	}

	return nil
}
