package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GUARDPOST_DATA_DIR", dir)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "guardpost", config.APIServer.Name)
	assert.Equal(t, 8090, config.APIServer.Port)
	assert.Equal(t, []string{"eventlog", "filesearch"}, config.Services)
	assert.False(t, config.Metrics.Enabled)

	// Both data paths are pinned under the data directory.
	assert.Equal(t, filepath.Join(dir, "permissions.json"), config.ConfigStore.Path)
	assert.Equal(t, filepath.Join(dir, "audit.log"), config.Audit.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GUARDPOST_DATA_DIR", dir)
	t.Setenv("GUARDPOST_SERVER_PORT", "9999")
	t.Setenv("GUARDPOST_SERVER_ADMIN_TOKEN", "sekrit")
	t.Setenv("GUARDPOST_LOG_LEVEL", "debug")
	t.Setenv("GUARDPOST_SERVICES", "eventlog")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, config.APIServer.Port)
	assert.Equal(t, "sekrit", config.APIServer.AdminToken)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, []string{"eventlog"}, config.Services)
}

func TestLoadRejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()

	t.Run("dot dot escape", func(t *testing.T) {
		t.Setenv("GUARDPOST_DATA_DIR", dir)
		t.Setenv("GUARDPOST_CONFIG_STORE_PATH", filepath.Join(dir, "..", "outside.json"))

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config_store.path")
	})

	t.Run("absolute path outside data dir", func(t *testing.T) {
		t.Setenv("GUARDPOST_DATA_DIR", dir)
		t.Setenv("GUARDPOST_AUDIT_PATH", "/etc/audit.log")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "audit.path")
	})

	t.Run("symlink escape", func(t *testing.T) {
		outside := t.TempDir()
		link := filepath.Join(dir, "link")
		require.NoError(t, os.Symlink(outside, link))

		t.Setenv("GUARDPOST_DATA_DIR", dir)
		t.Setenv("GUARDPOST_AUDIT_PATH", filepath.Join(link, "audit.log"))

		_, err := Load()
		require.Error(t, err)
	})
}

func TestValidateAggregatesErrors(t *testing.T) {
	config := Default()
	config.APIServer.Port = 0
	config.Log.Name = ""
	config.Services = nil

	err := config.Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "log.name")
	assert.Contains(t, err.Error(), "services")
}
