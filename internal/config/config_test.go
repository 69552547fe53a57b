package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "https://admin.gkstore.in/v1/api"
  timeout: 30s
realtime:
  transports: [polling]
  reconnect_attempts: 3
  reconnect_delay: 2s
notifications:
  banner_duration: 0s
  permission: granted
log:
  level: debug
  file: /tmp/gkadmin.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://admin.gkstore.in/v1/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, []string{"polling"}, cfg.Realtime.Transports)
	assert.Equal(t, 3, cfg.Realtime.ReconnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Realtime.ReconnectDelay)
	assert.Equal(t, time.Duration(0), cfg.Notifications.BannerDuration)
	assert.Equal(t, "granted", cfg.Notifications.Permission)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, "/socket.io/", cfg.Realtime.Path)
	assert.Equal(t, "New Order!", cfg.Notifications.Title)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "http://from-file:6005/v1/api"
`)
	t.Setenv("GKADMIN_API_BASE_URL", "http://from-env:7000/v1/api")
	t.Setenv("GKADMIN_REALTIME_TRANSPORTS", "websocket")
	t.Setenv("GKADMIN_REALTIME_RECONNECT_DELAY", "250ms")
	t.Setenv("GKADMIN_NOTIFY_DESKTOP", "false")
	t.Setenv("GKADMIN_MOCK_ORDER_INTERVAL", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:7000/v1/api", cfg.API.BaseURL)
	assert.Equal(t, []string{"websocket"}, cfg.Realtime.Transports)
	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.ReconnectDelay)
	assert.False(t, cfg.Notifications.Desktop)
	assert.Equal(t, time.Second, cfg.Mock.OrderInterval)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "api: [unclosed"},
		{"relative base url", "api:\n  base_url: /v1/api\n"},
		{"negative attempts", "realtime:\n  reconnect_attempts: -1\n"},
		{"negative banner", "notifications:\n  banner_duration: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestRealtimeURL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:6005", cfg.RealtimeURL())

	cfg.Realtime.URL = "https://rt.gkstore.in"
	assert.Equal(t, "https://rt.gkstore.in", cfg.RealtimeURL())
}
