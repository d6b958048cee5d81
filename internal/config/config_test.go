// ABOUTME: Tests for configuration loading, env expansion, and validation.
// ABOUTME: Exercises missing files, overrides, and malformed values.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.Server.URL)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "root", cfg.Admin.ProtectedAccount)
	assert.InDelta(t, 35.6762, cfg.Map.DefaultLatitude, 1e-9)
	assert.InDelta(t, 139.6503, cfg.Map.DefaultLongitude, 1e-9)
	assert.Equal(t, 10, cfg.Map.DefaultZoom)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  url: https://console.example.com
  timeout: 30s
map:
  default_latitude: 51.5074
  default_longitude: -0.1278
  default_zoom: 12
journal:
  path: /var/lib/cosmic/journal.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://console.example.com", cfg.Server.URL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 12, cfg.Map.DefaultZoom)
	assert.Equal(t, "/var/lib/cosmic/journal.db", cfg.Journal.Path)
	// Sections the file omits keep their defaults.
	assert.Equal(t, "root", cfg.Admin.ProtectedAccount)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("CONSOLE_TEST_URL", "https://env.example.com")
	path := writeConfig(t, `
server:
  url: ${CONSOLE_TEST_URL}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Server.URL)
}

func TestLoadInvalidDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  url: http://localhost:3000
  timeout: soon
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.timeout")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("empty server url", func(t *testing.T) {
		cfg := Default()
		cfg.Server.URL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty protected account", func(t *testing.T) {
		cfg := Default()
		cfg.Admin.ProtectedAccount = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero zoom", func(t *testing.T) {
		cfg := Default()
		cfg.Map.DefaultZoom = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})
}
