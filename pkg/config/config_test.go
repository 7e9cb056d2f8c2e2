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
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Fetchers.Timeout)
	assert.Equal(t, "local", cfg.Scheduler.Backend)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: sqlite
  sqlite_path: /tmp/tracker.db
fetchers:
  timeout: 10s
aggregator:
  parallel: true
  max_parallel: 2
`)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TRACKER_HTTP_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/tracker.db", cfg.Database.SQLitePath)
	assert.Equal(t, 10*time.Second, cfg.Fetchers.Timeout)
	assert.True(t, cfg.Aggregator.Parallel)
	assert.Equal(t, 2, cfg.Aggregator.MaxParallel)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Default()
	cfg.Fetchers.Timeout = 2 * time.Minute
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scheduler.Backend = "kafka"
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}
