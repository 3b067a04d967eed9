package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Point at a nonexistent file so a developer's local monoinstall.yml
	// cannot leak into the test.
	t.Setenv("MONO_CONFIG_FILE", filepath.Join(t.TempDir(), "none.yml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8178, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Server.InstallTimeout)
	assert.Equal(t, "https://api.monolithos.app/v1/license/verify", cfg.License.VerifyURL)
	assert.Equal(t, 30*time.Second, cfg.License.Timeout)
	assert.Equal(t, "https://releases.monolithos.app/monolithos-latest.zip", cfg.Package.DownloadURL)
	assert.Equal(t, "1.4.2", cfg.Package.Version)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "config", cfg.Paths.ConfigDir)
	assert.Equal(t, "installer-settings.json", cfg.Paths.SettingsFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MONO_CONFIG_FILE", filepath.Join(t.TempDir(), "none.yml"))
	t.Setenv("MONO_SERVER_PORT", "9000")
	t.Setenv("MONO_LICENSE_VERIFY_URL", "https://staging.monolithos.app/verify")
	t.Setenv("MONO_PATHS_CONFIG_DIR", "/tmp/host-config")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://staging.monolithos.app/verify", cfg.License.VerifyURL)
	assert.Equal(t, "/tmp/host-config", cfg.Paths.ConfigDir)
}

func TestLoad_FileOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "monoinstall.yml")
	yaml := `
server:
  port: 9100
package:
  version: "2.0.0"
paths:
  config_dir: /opt/host
`
	require.NoError(t, os.WriteFile(configFile, []byte(yaml), 0644))

	t.Setenv("MONO_CONFIG_FILE", configFile)
	t.Setenv("MONO_SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	// Explicit file values win; unset file fields keep env/defaults.
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "2.0.0", cfg.Package.Version)
	assert.Equal(t, "/opt/host", cfg.Paths.ConfigDir)
	assert.Equal(t, "https://api.monolithos.app/v1/license/verify", cfg.License.VerifyURL)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("MONO_CONFIG_FILE", filepath.Join(t.TempDir(), "none.yml"))
	t.Setenv("MONO_SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_InvalidURL(t *testing.T) {
	t.Setenv("MONO_CONFIG_FILE", filepath.Join(t.TempDir(), "none.yml"))
	t.Setenv("MONO_LICENSE_VERIFY_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	paths, err := ResolvePaths(PathsConfig{
		ConfigDir:    dir,
		SettingsFile: "installer-settings.json",
	})
	require.NoError(t, err)

	assert.Equal(t, dir, paths.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "plugins"), paths.PluginsDir)
	assert.Equal(t, filepath.Join(dir, "snippets"), paths.SnippetsDir)
	assert.Equal(t, filepath.Join(dir, "appearance.json"), paths.AppearanceFile)
	assert.Equal(t, filepath.Join(dir, "installer-settings.json"), paths.SettingsFile)
}

func TestResolvePaths_RelativeDirBecomesAbsolute(t *testing.T) {
	paths, err := ResolvePaths(PathsConfig{
		ConfigDir:    "relative-config",
		SettingsFile: "installer-settings.json",
	})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.ConfigDir))
}

func TestEnsureDirectories(t *testing.T) {
	paths, err := ResolvePaths(PathsConfig{
		ConfigDir:    filepath.Join(t.TempDir(), "host"),
		SettingsFile: "installer-settings.json",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	assert.DirExists(t, paths.ConfigDir)
	assert.DirExists(t, paths.PluginsDir)
	assert.DirExists(t, paths.SnippetsDir)
}
