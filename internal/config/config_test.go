package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-ems-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestSyncConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("EMS_BASE_URL", "")
		t.Setenv("EMS_SYNC_MODE", "")
		t.Setenv("EMS_HTTP_TIMEOUT", "")
		c := config.New()
		require.Equal(t, "https://bk-ems.abdisa.me", c.GetBaseURL())
		require.Equal(t, config.SyncModeSingle, c.GetSyncMode())
		require.Zero(t, c.GetHTTPTimeout())
		require.Equal(t, 2*time.Second, c.GetSuccessDisplay())
		require.Equal(t, 5*time.Second, c.GetErrorDisplay())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("EMS_BASE_URL", "http://localhost:8000/")
		t.Setenv("EMS_SYNC_MODE", "STREAM")
		t.Setenv("EMS_HTTP_TIMEOUT", "90s")
		c := config.New()
		require.Equal(t, "http://localhost:8000", c.GetBaseURL())
		require.Equal(t, config.SyncModeStream, c.GetSyncMode())
		require.Equal(t, 90*time.Second, c.GetHTTPTimeout())
	})

	t.Run("malformed duration falls back", func(t *testing.T) {
		t.Setenv("EMS_ERROR_DISPLAY", "soon")
		require.Equal(t, 5*time.Second, config.New().GetErrorDisplay())
	})
}

func TestStorageConfig(t *testing.T) {
	t.Setenv("EMS_DATA_DIR", "/tmp/ems-test")
	t.Setenv("EMS_CACHE_BACKEND", "sqlite")
	t.Setenv("EMS_MASTER_KEY_HEX", "  abcd  ")
	c := config.New()
	require.Equal(t, "/tmp/ems-test", c.GetDataFolder())
	require.Equal(t, config.CacheBackendSQLite, c.GetCacheBackend())
	require.Equal(t, "abcd", c.GetMasterKeyHex())

	t.Setenv("EMS_CACHE_BACKEND", "redis")
	require.Equal(t, config.CacheBackendFile, config.New().GetCacheBackend())
}

func TestLogLevel(t *testing.T) {
	t.Setenv("EMS_LOG_LEVEL", "")
	t.Setenv("ENV", "")
	require.Equal(t, "debug", config.New().GetLogLevel())
	t.Setenv("ENV", "prod")
	require.Equal(t, "PROD", config.New().GetEnv())
	require.Equal(t, "info", config.New().GetLogLevel())
}
