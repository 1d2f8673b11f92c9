package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "explorer.db", cfg.Store.Path)
	assert.Equal(t, 500, cfg.Sync.BatchSize)
	assert.Equal(t, 24*time.Hour, cfg.Sync.StaleAfter)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
portals:
  - data.city.gov
store:
  path: /tmp/replica.db
sync:
  batch_size: 100
  stale_after: 1h
logging:
  level: debug
  development: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"data.city.gov"}, cfg.Portals)
	assert.Equal(t, "/tmp/replica.db", cfg.Store.Path)
	assert.Equal(t, 100, cfg.Sync.BatchSize)
	assert.Equal(t, time.Hour, cfg.Sync.StaleAfter)
	assert.Equal(t, 1000, cfg.Sync.PageSize, "unset fields keep defaults")

	log, err := cfg.BuildLogger()
	require.NoError(t, err)
	defer log.Sync()
	assert.NotNil(t, log)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "sync:\n  batch_size: -1\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "logging:\n  level: shouting\n"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "portals: [unclosed"))
	require.Error(t, err)
}
