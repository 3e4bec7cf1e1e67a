package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SURREAL_URL", "ws://localhost:8000/rpc")
	t.Setenv("SURREAL_NS", "roster")
	t.Setenv("SURREAL_DB", "test")
	t.Setenv("SESSION_SECRET", "secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, CacheBackendFile, cfg.GetCacheBackend())
	assert.Equal(t, "var/userdata", cfg.GetCacheDir())
	assert.Equal(t, 30*time.Second, cfg.GetCacheFetchTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetDBQueryTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetDBExecuteTimeout())
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("CACHE_FETCH_TIMEOUT", "0s")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DB_QUERY_TIMEOUT", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, CacheBackendRedis, cfg.GetCacheBackend())
	assert.Equal(t, time.Duration(0), cfg.GetCacheFetchTimeout())
	assert.Equal(t, "cache:6379", cfg.GetRedisAddr())
	assert.Equal(t, 3, cfg.GetRedisDB())
	assert.Equal(t, 5*time.Second, cfg.GetDBQueryTimeout(), "malformed duration falls back to default")
	require.NoError(t, cfg.Validate())
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{CacheBackend: "sqlite"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SURREAL_URL")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "DB_QUERY_TIMEOUT")
	assert.Contains(t, err.Error(), `unknown CACHE_BACKEND "sqlite"`)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 5)
}
