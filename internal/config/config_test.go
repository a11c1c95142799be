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
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 6, cfg.Publisher.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Publisher.Timeout())
	assert.Equal(t, "https://dev.to", cfg.Publisher.DevTo.BaseURL)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.Publisher.Blogger.TokenURL)
	assert.Equal(t, 5*time.Second, cfg.Queue.Interval())
	assert.Equal(t, time.Minute, cfg.Queue.Retry())
	assert.Equal(t, 5*time.Minute, cfg.Queue.Lease())
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.False(t, cfg.Queue.EmbeddedConsumer)
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("PS_TEST_DB_PASSWORD", "s3cret")
	cfg, err := LoadConfig(writeConfig(t, `
database:
  password: ${PS_TEST_DB_PASSWORD}
publisher:
  blogger:
    disabled: true
    client_id: blogger-client
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.True(t, cfg.Publisher.Blogger.Disabled)
	assert.Equal(t, "blogger-client", cfg.Publisher.Blogger.ClientID)
	assert.Contains(t, cfg.Database.DSN(), "password=s3cret")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "queue:\n  poll_interval: often\n"))
	assert.ErrorContains(t, err, "queue.poll_interval")
}
