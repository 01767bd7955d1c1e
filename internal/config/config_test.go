package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"OPTI_QUALITY", "OPTI_PRESET", "OPTI_THREADS", "FETCH_TIMEOUT_SECONDS", "LOG_LEVEL", "GIN_MODE"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, 80, cfg.Quality)
	assert.Equal(t, "web", cfg.Preset)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OPTI_QUALITY", "65")
	t.Setenv("OPTI_PRESET", "Maximum")
	t.Setenv("OPTI_THREADS", "8")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "5")
	t.Setenv("MAX_FILE_SIZE", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, 65, cfg.Quality)
	assert.Equal(t, "maximum", cfg.Preset)
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(104857600), cfg.MaxFileSize)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("GIN_MODE", "debug")
		return FromEnv()
	}

	cfg := base()
	cfg.Quality = 101
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Preset = "ultra"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Threads = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.GinMode = "release"
	cfg.AppUsername = "admin"
	cfg.AppPasswordHash = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_PASSWORD_HASH")
}
