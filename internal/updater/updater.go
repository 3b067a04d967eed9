// Package updater checks the releases endpoint for a newer plugin package
// than the one recorded in settings. It never installs anything itself; the
// UI triggers a regular install run when the user accepts an update.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"monoinstall/internal/settings"
)

// EventUpdateAvailable is the message type broadcast when a newer package
// is published.
const EventUpdateAvailable = "update:available"

// manifest is the wire format of the published release manifest.
type manifest struct {
	Version string `json:"version"`
	Notes   string `json:"notes,omitempty"`
}

// UpdateInfo describes the outcome of one update check.
type UpdateInfo struct {
	UpdateAvailable  bool   `json:"update_available"`
	InstalledVersion string `json:"installed_version,omitempty"`
	LatestVersion    string `json:"latest_version"`
	Notes            string `json:"notes,omitempty"`
}

// Checker fetches the release manifest and compares it against the
// installed version on record.
type Checker struct {
	manifestURL string
	client      *http.Client
	store       *settings.Store
	logger      *slog.Logger
}

// NewChecker creates an update checker against the given manifest URL.
func NewChecker(manifestURL string, timeout time.Duration, store *settings.Store, logger *slog.Logger) *Checker {
	return &Checker{
		manifestURL: manifestURL,
		client:      &http.Client{Timeout: timeout},
		store:       store,
		logger:      logger.With(slog.String("component", "updater")),
	}
}

// Check fetches the manifest and reports whether a newer package is
// published. An uninstalled host always reports an available update.
func (c *Checker) Check(ctx context.Context) (*UpdateInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.manifestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release manifest returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read release manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to parse release manifest: %w", err)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("release manifest carries no version")
	}

	current, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	info := &UpdateInfo{
		UpdateAvailable:  !current.Installed || current.InstalledVersion != m.Version,
		InstalledVersion: current.InstalledVersion,
		LatestVersion:    m.Version,
		Notes:            m.Notes,
	}

	c.logger.InfoContext(ctx, "update check completed",
		slog.String("installed_version", current.InstalledVersion),
		slog.String("latest_version", m.Version),
		slog.Bool("update_available", info.UpdateAvailable))

	return info, nil
}

// Notifier receives update availability events from the periodic checker.
// The websocket hub satisfies this.
type Notifier interface {
	Broadcast(messageType string, data interface{})
}

// PeriodicChecker runs update checks on an interval and pushes availability
// to connected clients. Check failures are logged and retried on the next
// tick.
type PeriodicChecker struct {
	checker  *Checker
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger
	quit     chan struct{}
}

// NewPeriodicChecker creates a periodic checker. notifier may be nil.
func NewPeriodicChecker(checker *Checker, notifier Notifier, interval time.Duration, logger *slog.Logger) *PeriodicChecker {
	return &PeriodicChecker{
		checker:  checker,
		notifier: notifier,
		interval: interval,
		logger:   logger.With(slog.String("component", "updater.periodic")),
		quit:     make(chan struct{}),
	}
}

// Start launches the check loop.
func (p *PeriodicChecker) Start() {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.quit:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				info, err := p.checker.Check(ctx)
				cancel()
				if err != nil {
					p.logger.Warn("periodic update check failed",
						slog.String("error", err.Error()))
					continue
				}
				if info.UpdateAvailable && p.notifier != nil {
					p.notifier.Broadcast(EventUpdateAvailable, info)
				}
			}
		}
	}()
}

// Stop terminates the check loop.
func (p *PeriodicChecker) Stop() {
	close(p.quit)
}
