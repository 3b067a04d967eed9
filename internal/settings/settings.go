// Package settings persists the installer's settings record as a JSON
// document in the host configuration directory.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the persisted installer state.
type Settings struct {
	LicenseKey       string `json:"license_key"`
	Installed        bool   `json:"installed"`
	InstalledVersion string `json:"installed_version"`
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{}
}

// Store loads and saves the settings record. It is passed explicitly to
// its consumers; there is no package-level instance.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a settings store backed by the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With(slog.String("component", "settings.store")),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file, merging the stored fields over defaults.
// A missing file yields defaults without error.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return loaded, nil
		}
		return loaded, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := json.Unmarshal(data, &loaded); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings file: %w", err)
	}

	return loaded, nil
}

// Save writes the settings record pretty-printed, creating the parent
// directory if needed.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	s.logger.Debug("settings saved",
		slog.String("path", s.path),
		slog.Bool("installed", settings.Installed),
		slog.String("installed_version", settings.InstalledVersion))

	return nil
}
