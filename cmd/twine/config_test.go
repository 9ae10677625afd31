package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, strings.HasSuffix(cfg.DBPath, "twine.db"))
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TWINE_DB_PATH", "/tmp/custom.db")
	t.Setenv("TWINE_LOG_LEVEL", "debug")

	cfg := loadConfig()
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}
