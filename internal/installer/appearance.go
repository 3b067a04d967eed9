package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"monoinstall/internal/config"
)

// enabledSnippetsField is the appearance document field listing enabled
// style snippets by bare name.
const enabledSnippetsField = "enabledCssSnippets"

// snippetMarkers are the brand/theme markers; snippets whose name contains
// any of them get enabled after an install.
var snippetMarkers = []string{"monolithos", "mono-theme"}

// AppearanceEditor performs the post-install edit of the host's appearance
// configuration document. The document is externally owned; everything here
// is advisory cosmetic configuration, not install-critical.
type AppearanceEditor struct {
	paths  *config.Paths
	fs     FileSystem
	logger *slog.Logger
}

// NewAppearanceEditor creates an editor bound to the resolved paths.
func NewAppearanceEditor(paths *config.Paths, fs FileSystem, logger *slog.Logger) *AppearanceEditor {
	return &AppearanceEditor{
		paths:  paths,
		fs:     fs,
		logger: logger.With(slog.String("component", "installer.appearance")),
	}
}

// EnableBrandSnippets adds every brand-marked snippet in the snippets
// directory to the enabled list, preserving insertion order and suppressing
// duplicates, then rewrites the document pretty-printed. The edit is
// idempotent: re-running after the same install changes nothing.
func (e *AppearanceEditor) EnableBrandSnippets(ctx context.Context) error {
	doc := make(map[string]interface{})

	if e.fs.Exists(e.paths.AppearanceFile) {
		data, err := e.fs.ReadFile(e.paths.AppearanceFile)
		if err != nil {
			return fmt.Errorf("failed to read appearance file: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse appearance file: %w", err)
		}
	}

	enabled := enabledList(doc)

	names, err := e.fs.ListDir(e.paths.SnippetsDir)
	if err != nil {
		return fmt.Errorf("failed to list snippets directory: %w", err)
	}

	added := 0
	for _, name := range names {
		if !strings.HasSuffix(name, ".css") {
			continue
		}
		bare := strings.TrimSuffix(name, ".css")
		if !hasMarker(bare) {
			continue
		}
		if contains(enabled, bare) {
			continue
		}
		enabled = append(enabled, bare)
		added++
	}

	doc[enabledSnippetsField] = enabled

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal appearance file: %w", err)
	}
	if err := e.fs.WriteFile(e.paths.AppearanceFile, data); err != nil {
		return fmt.Errorf("failed to write appearance file: %w", err)
	}

	e.logger.InfoContext(ctx, "appearance configuration updated",
		slog.Int("snippets_enabled", added),
		slog.Int("total_enabled", len(enabled)))

	return nil
}

// enabledList extracts the enabled-snippets list from the document,
// tolerating a missing or malformed field.
func enabledList(doc map[string]interface{}) []string {
	raw, ok := doc[enabledSnippetsField].([]interface{})
	if !ok {
		return nil
	}
	list := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			list = append(list, s)
		}
	}
	return list
}

// hasMarker reports whether a snippet name carries any brand/theme marker.
func hasMarker(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range snippetMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
