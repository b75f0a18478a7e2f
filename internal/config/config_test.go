package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.DirectoryBackend)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.InDelta(t, 10.0, cfg.RateLimitRPS, 0.001)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DIRECTORY_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, BackendRedis, cfg.DirectoryBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.001)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VALID_MEMBER_IDS=1,2\nNOTIFY_CHANNEL=circulation\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("VALID_MEMBER_IDS")
		os.Unsetenv("NOTIFY_CHANNEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1,2", cfg.ValidMemberIDs)
	assert.Equal(t, "circulation", cfg.NotifyChannel)
}

func TestLoad_Invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("backend", func(t *testing.T) {
		t.Setenv("DIRECTORY_BACKEND", "sqlite")
		_, err := Load(missing)
		assert.Error(t, err)
	})

	t.Run("number", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_BURST", "lots")
		_, err := Load(missing)
		assert.Error(t, err)
	})
}
