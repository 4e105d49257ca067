package config_test

import (
	"testing"

	"picture-manager/core/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig(t.TempDir())
	assert.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.True(t, cfg.Inventory.Enabled)
	assert.Equal(t, "/pictures", cfg.Inventory.MountRoot)
	assert.Equal(t, 5, cfg.Inventory.DebounceSeconds)

	assert.True(t, cfg.Thumbnail.Enabled)
	assert.Equal(t, 1024, cfg.Thumbnail.BudgetMB)
	assert.Equal(t, 168, cfg.Thumbnail.TTLHours)
	assert.Equal(t, 80, cfg.Thumbnail.JPEGQuality)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("INVENTORY_SOURCES", "Holidays=/mnt/holidays")
	t.Setenv("THUMBNAIL_BUDGET_MB", "64")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.LoadConfig(t.TempDir())
	assert.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "Holidays=/mnt/holidays", cfg.Inventory.Sources)
	assert.Equal(t, 64, cfg.Thumbnail.BudgetMB)
	assert.Equal(t, "debug", cfg.Log.Level)
}
