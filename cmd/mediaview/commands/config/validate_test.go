package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/mediaview/pkg/config"
)

func TestConfigWarnings(t *testing.T) {
	cfg := config.GetDefaultConfig()
	assert.Empty(t, configWarnings(cfg))

	disabled := false
	cfg.API.Enabled = &disabled
	cfg.Preload.HeapStats = config.HeapStatsNone
	cfg.Preload.Capacity = 3
	assert.Len(t, configWarnings(cfg), 3)
}
