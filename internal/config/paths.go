package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Well-known file and directory names inside the host configuration
// directory. These mirror the layout the host application reads.
const (
	PluginsDirName     = "plugins"
	SnippetsDirName    = "snippets"
	AppearanceFileName = "appearance.json"
)

// Paths holds all resolved file system locations used by the installer.
type Paths struct {
	// ConfigDir is the absolute host configuration directory.
	ConfigDir string
	// PluginsDir is where plugin payload files are placed.
	PluginsDir string
	// SnippetsDir is where CSS snippet files are placed.
	SnippetsDir string
	// AppearanceFile is the host appearance configuration document.
	AppearanceFile string
	// SettingsFile persists the installer's own settings record.
	SettingsFile string
}

// ResolvePaths derives all paths from the configured config directory,
// making relative directories absolute against the working directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	configDir := cfg.ConfigDir
	if !filepath.IsAbs(configDir) {
		abs, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		configDir = abs
	}

	return &Paths{
		ConfigDir:      configDir,
		PluginsDir:     filepath.Join(configDir, PluginsDirName),
		SnippetsDir:    filepath.Join(configDir, SnippetsDirName),
		AppearanceFile: filepath.Join(configDir, AppearanceFileName),
		SettingsFile:   filepath.Join(configDir, cfg.SettingsFile),
	}, nil
}

// EnsureDirectories creates the directories the installer writes into.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConfigDir, p.PluginsDir, p.SnippetsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether the given path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
