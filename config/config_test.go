package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pilab-dev/twitched-link/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, config.StoreTypeRedis, cfg.StoreType)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.True(t, cfg.RedisSecure)
	assert.Equal(t, 1, cfg.RedisConnections)
	assert.Equal(t, 5*time.Second, cfg.RedisPoolTimeout)
	assert.Equal(t, []string{"roku"}, cfg.DeviceTypes)
	assert.Equal(t, 24*time.Hour, cfg.PairingTTL)
	assert.Equal(t, 10*time.Minute, cfg.TokenRecordTTL)
	assert.Equal(t, time.Hour, cfg.FollowRefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"chat_login", "user_follows_edit", "user_subscriptions"}, cfg.OAuthScopes)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TWITCHED_STORE_TYPE", "memory")
	t.Setenv("TWITCHED_REDIS_SECURE", "false")
	t.Setenv("TWITCHED_REDIS_CONNECTIONS", "8")
	t.Setenv("TWITCHED_PAIRING_TTL", "2h")
	t.Setenv("TWITCHED_CLIENT_ID", "cid")
	t.Setenv("TWITCHED_UPSTREAM_TIMEOUT", "3s")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.StoreTypeMemory, cfg.StoreType)
	assert.False(t, cfg.RedisSecure)
	assert.Equal(t, 8, cfg.RedisConnections)
	assert.Equal(t, 2*time.Hour, cfg.PairingTTL)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twitched.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: 127.0.0.1:9999\ndevice_types: [roku, firetv]\n"), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"roku", "firetv"}, cfg.DeviceTypes)
}

func TestLoadConfig_InvalidStoreType(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TWITCHED_STORE_TYPE", "etcd")

	_, err := config.LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store_type")
}

func TestLoadConfig_InvalidUpstreamTimeout(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TWITCHED_UPSTREAM_TIMEOUT", "0s")

	_, err := config.LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream_timeout")
}

func TestTrustPEM_UnfoldsEscapedNewlines(t *testing.T) {
	cfg := &config.Config{RedisTrust: `-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----`}
	assert.Equal(t, "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----", cfg.TrustPEM())
}
