package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"monoinstall/internal/config"
	"monoinstall/internal/settings"
)

// Phase identifies one step of the install sequence.
type Phase string

// Install phases, emitted in this order. Each phase is reported before its
// step starts so the UI can show what is about to happen.
const (
	PhaseDownload   Phase = "downloading"
	PhaseExtract    Phase = "extracting"
	PhaseInstall    Phase = "installing files"
	PhaseAppearance Phase = "updating appearance"
	PhaseFinalize   Phase = "finalizing"
)

// ProgressEvent is one progress notification from a running install.
type ProgressEvent struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// ProgressFunc receives progress events during Run. It may be nil.
type ProgressFunc func(ProgressEvent)

// Target path markers. Classification matches these anywhere in the entry
// path, not just as a prefix; that mirrors the package layout the releases
// pipeline produces, but an unrelated entry that happens to contain
// "snippets/" somewhere in its path would be misclassified.
const (
	pluginPathMarker  = "plugins/monolithos/"
	snippetPathMarker = "snippets/"
)

// archiveEntry is one file decoded from the downloaded package. Entries are
// transient: produced by extraction, consumed immediately by the write step.
type archiveEntry struct {
	Path    string
	Content []byte
}

// Sequencer orchestrates one install run: download, archive decode, file
// placement, appearance edit, settings update. Runs are strictly sequential;
// concurrent runs are prevented by the caller, not in here.
type Sequencer struct {
	downloadURL string
	version     string
	paths       *config.Paths
	fs          FileSystem
	store       *settings.Store
	appearance  *AppearanceEditor
	client      *http.Client
	logger      *slog.Logger
}

// NewSequencer creates a sequencer for the configured package.
func NewSequencer(pkg config.PackageConfig, paths *config.Paths, fs FileSystem, store *settings.Store, logger *slog.Logger) *Sequencer {
	logger = logger.With(slog.String("component", "installer.sequencer"))
	return &Sequencer{
		downloadURL: pkg.DownloadURL,
		version:     pkg.Version,
		paths:       paths,
		fs:          fs,
		store:       store,
		appearance:  NewAppearanceEditor(paths, fs, logger),
		client:      &http.Client{Timeout: 5 * time.Minute},
		logger:      logger,
	}
}

// Run executes the install sequence. Errors from the download, decode and
// write steps abort the run and propagate; already-written files are left in
// place and persisted settings stay untouched. The appearance edit is
// best-effort and never fails the run.
func (s *Sequencer) Run(ctx context.Context, progress ProgressFunc) error {
	emit := func(phase Phase, message string) {
		if progress != nil {
			progress(ProgressEvent{Phase: phase, Message: message})
		}
	}

	emit(PhaseDownload, "Downloading package")
	payload, err := s.download(ctx)
	if err != nil {
		return fmt.Errorf("failed to download package: %w", err)
	}

	emit(PhaseExtract, "Extracting archive")
	entries, err := decodeArchive(payload)
	if err != nil {
		return fmt.Errorf("failed to decode package archive: %w", err)
	}

	emit(PhaseInstall, "Installing files")
	written := 0
	for _, entry := range entries {
		target, ok := s.classifyTarget(entry.Path)
		if !ok {
			// Unrecognized entries are discarded, not errors.
			s.logger.DebugContext(ctx, "skipping unrecognized archive entry",
				slog.String("path", entry.Path))
			continue
		}
		if err := s.writeEntry(target, entry.Content); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		written++
	}
	s.logger.InfoContext(ctx, "package files installed",
		slog.Int("entries", len(entries)),
		slog.Int("written", written))

	emit(PhaseAppearance, "Updating appearance configuration")
	if err := s.appearance.EnableBrandSnippets(ctx); err != nil {
		// Cosmetic step: logged, never fatal.
		s.logger.WarnContext(ctx, "appearance configuration edit failed",
			slog.String("error", err.Error()))
	}

	emit(PhaseFinalize, "Saving install state")
	current, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	current.Installed = true
	current.InstalledVersion = s.version
	if err := s.store.Save(current); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	s.logger.InfoContext(ctx, "install completed",
		slog.String("version", s.version))

	return nil
}

// download fetches the package URL into memory.
func (s *Sequencer) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.downloadURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// decodeArchive decodes a zip payload into file entries, skipping
// directory entries.
func decodeArchive(payload []byte) ([]archiveEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, err
	}

	var entries []archiveEntry
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}

		entries = append(entries, archiveEntry{Path: f.Name, Content: content})
	}

	return entries, nil
}

// classifyTarget maps an archive entry path to its install location under
// the config directory, or reports false for entries to discard.
func (s *Sequencer) classifyTarget(entryPath string) (string, bool) {
	if idx := strings.Index(entryPath, pluginPathMarker); idx >= 0 {
		return filepath.Join(s.paths.ConfigDir, filepath.FromSlash(entryPath[idx:])), true
	}
	if idx := strings.Index(entryPath, snippetPathMarker); idx >= 0 {
		return filepath.Join(s.paths.ConfigDir, filepath.FromSlash(entryPath[idx:])), true
	}
	return "", false
}

// writeEntry ensures the parent directory and writes the file, overwriting
// any existing content at that path.
func (s *Sequencer) writeEntry(target string, content []byte) error {
	if dir := filepath.Dir(target); !s.fs.Exists(dir) {
		if err := s.fs.MkdirAll(dir); err != nil {
			return err
		}
	}
	return s.fs.WriteFile(target, content)
}
