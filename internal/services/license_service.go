package services

import (
	"context"
	"log/slog"

	"monoinstall/internal/license"
	"monoinstall/internal/settings"
)

// LicenseService provides the business logic for license operations.
type LicenseService interface {
	// Verify checks the key against the remote service and, when valid,
	// persists it in settings. The returned result is always usable by the
	// UI; the error reports persistence failures only.
	Verify(ctx context.Context, key string) (license.Result, error)
	// GetStatus reports the persisted license/install state.
	GetStatus(ctx context.Context) (*LicenseStatusResponse, error)
	// Clear removes the persisted license key.
	Clear(ctx context.Context) error
}

// LicenseStatusResponse is the status payload for the settings panel.
type LicenseStatusResponse struct {
	HasLicense       bool   `json:"has_license"`
	LicenseKey       string `json:"license_key,omitempty"` // masked for display
	Installed        bool   `json:"installed"`
	InstalledVersion string `json:"installed_version,omitempty"`
}

type licenseService struct {
	verifier *license.Verifier
	store    *settings.Store
	logger   *slog.Logger
}

// NewLicenseService creates the license service.
func NewLicenseService(verifier *license.Verifier, store *settings.Store, logger *slog.Logger) LicenseService {
	return &licenseService{
		verifier: verifier,
		store:    store,
		logger:   logger.With(slog.String("service", "license")),
	}
}

func (s *licenseService) Verify(ctx context.Context, key string) (license.Result, error) {
	result := s.verifier.Verify(ctx, key)
	if !result.Valid {
		verificationsTotal.WithLabelValues("rejected").Inc()
		return result, nil
	}

	verificationsTotal.WithLabelValues("valid").Inc()

	current, err := s.store.Load()
	if err != nil {
		return result, err
	}
	current.LicenseKey = key
	if err := s.store.Save(current); err != nil {
		return result, err
	}

	s.logger.InfoContext(ctx, "license key stored",
		slog.String("tier", result.Tier))

	return result, nil
}

func (s *licenseService) GetStatus(ctx context.Context) (*LicenseStatusResponse, error) {
	current, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	return &LicenseStatusResponse{
		HasLicense:       current.LicenseKey != "",
		LicenseKey:       maskKey(current.LicenseKey),
		Installed:        current.Installed,
		InstalledVersion: current.InstalledVersion,
	}, nil
}

func (s *licenseService) Clear(ctx context.Context) error {
	current, err := s.store.Load()
	if err != nil {
		return err
	}
	current.LicenseKey = ""
	if err := s.store.Save(current); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "license key cleared")
	return nil
}

// maskKey masks a license key for display and logging.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
