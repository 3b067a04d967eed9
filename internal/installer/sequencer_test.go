package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monoinstall/internal/config"
	"monoinstall/internal/settings"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.ResolvePaths(config.PathsConfig{
		ConfigDir:    t.TempDir(),
		SettingsFile: "installer-settings.json",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zipServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestSequencer(t *testing.T, downloadURL string, paths *config.Paths) (*Sequencer, *settings.Store) {
	t.Helper()
	store := settings.NewStore(paths.SettingsFile, testLogger())
	seq := NewSequencer(config.PackageConfig{
		DownloadURL: downloadURL,
		Version:     "1.4.2",
	}, paths, NewOSFileSystem(), store, testLogger())
	return seq, store
}

func TestRun_InstallsRecognizedEntries(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"release/plugins/monolithos/main.js":     "console.log('hi')",
		"release/snippets/mono-theme.css":        "body {}",
		"release/readme.txt":                     "ignore me",
		"release/plugins/other-plugin/plugin.js": "nope",
	})
	server := zipServer(t, payload)
	paths := testPaths(t)
	seq, store := newTestSequencer(t, server.URL, paths)

	require.NoError(t, seq.Run(context.Background(), nil))

	assert.FileExists(t, filepath.Join(paths.PluginsDir, "monolithos", "main.js"))
	assert.FileExists(t, filepath.Join(paths.SnippetsDir, "mono-theme.css"))
	assert.NoFileExists(t, filepath.Join(paths.ConfigDir, "readme.txt"))
	assert.NoFileExists(t, filepath.Join(paths.PluginsDir, "other-plugin", "plugin.js"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Installed)
	assert.Equal(t, "1.4.2", loaded.InstalledVersion)
}

func TestRun_EmitsPhasesInOrder(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"plugins/monolithos/main.js": "x",
	})
	server := zipServer(t, payload)
	paths := testPaths(t)
	seq, _ := newTestSequencer(t, server.URL, paths)

	var phases []Phase
	require.NoError(t, seq.Run(context.Background(), func(e ProgressEvent) {
		phases = append(phases, e.Phase)
	}))

	assert.Equal(t, []Phase{
		PhaseDownload,
		PhaseExtract,
		PhaseInstall,
		PhaseAppearance,
		PhaseFinalize,
	}, phases)
}

func TestRun_IsIdempotent(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"plugins/monolithos/main.js":   "v2 content",
		"snippets/monolithos-ui.css":   ".ui {}",
		"snippets/mono-theme-dark.css": ".dark {}",
	})
	server := zipServer(t, payload)
	paths := testPaths(t)
	seq, _ := newTestSequencer(t, server.URL, paths)

	require.NoError(t, seq.Run(context.Background(), nil))
	require.NoError(t, seq.Run(context.Background(), nil))

	content, err := os.ReadFile(filepath.Join(paths.PluginsDir, "monolithos", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "v2 content", string(content))

	// Second run must not duplicate entries in the enabled list.
	data, err := os.ReadFile(paths.AppearanceFile)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.ElementsMatch(t, []interface{}{"monolithos-ui", "mono-theme-dark"}, doc["enabledCssSnippets"])
}

func TestRun_AppearanceFailureDoesNotFailInstall(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"plugins/monolithos/main.js": "x",
	})
	server := zipServer(t, payload)
	paths := testPaths(t)
	seq, store := newTestSequencer(t, server.URL, paths)

	require.NoError(t, os.WriteFile(paths.AppearanceFile, []byte("{broken"), 0644))

	require.NoError(t, seq.Run(context.Background(), nil))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Installed)

	// The malformed document is left alone.
	data, err := os.ReadFile(paths.AppearanceFile)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}

func TestRun_DownloadFailureLeavesSettingsUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	paths := testPaths(t)
	seq, store := newTestSequencer(t, server.URL, paths)

	require.NoError(t, store.Save(settings.Settings{LicenseKey: "MONO-KEY"}))

	err := seq.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download package")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.False(t, loaded.Installed)
	assert.Empty(t, loaded.InstalledVersion)
	assert.Equal(t, "MONO-KEY", loaded.LicenseKey)
}

func TestRun_MalformedArchive(t *testing.T) {
	server := zipServer(t, []byte("definitely not a zip"))
	paths := testPaths(t)
	seq, store := newTestSequencer(t, server.URL, paths)

	err := seq.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode package archive")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.False(t, loaded.Installed)
}

func TestClassifyTarget(t *testing.T) {
	paths := testPaths(t)
	seq, _ := newTestSequencer(t, "http://unused.invalid", paths)

	tests := []struct {
		name   string
		entry  string
		target string
		ok     bool
	}{
		{
			name:   "plugin entry with wrapper dir",
			entry:  "pkg-1.4.2/plugins/monolithos/main.js",
			target: filepath.Join(paths.ConfigDir, "plugins", "monolithos", "main.js"),
			ok:     true,
		},
		{
			name:   "snippet entry",
			entry:  "snippets/mono-theme.css",
			target: filepath.Join(paths.ConfigDir, "snippets", "mono-theme.css"),
			ok:     true,
		},
		{
			name:  "unrelated entry",
			entry: "docs/readme.md",
			ok:    false,
		},
		{
			name:   "marker mid-path matches anywhere",
			entry:  "assets/snippets/extra.css",
			target: filepath.Join(paths.ConfigDir, "snippets", "extra.css"),
			ok:     true,
		},
		{
			name:  "foreign plugin directory",
			entry: "plugins/someone-else/main.js",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := seq.classifyTarget(tt.entry)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.target, target)
			}
		})
	}
}
