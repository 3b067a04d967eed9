package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monoinstall/internal/license"
	"monoinstall/internal/settings"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *settings.Store {
	t.Helper()
	return settings.NewStore(filepath.Join(t.TempDir(), "installer-settings.json"), testLogger())
}

func verifyServer(t *testing.T, valid bool, message string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"valid":   valid,
			"tier":    "pro",
			"message": message,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLicenseVerify_ValidKeyIsPersisted(t *testing.T) {
	server := verifyServer(t, true, "")
	store := newTestStore(t)
	svc := NewLicenseService(license.NewVerifier(server.URL, 5*time.Second, testLogger()), store, testLogger())

	result, err := svc.Verify(context.Background(), "MONO-1234-5678-9ABC")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "pro", result.Tier)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "MONO-1234-5678-9ABC", saved.LicenseKey)
}

func TestLicenseVerify_InvalidKeyIsNotPersisted(t *testing.T) {
	server := verifyServer(t, false, "expired")
	store := newTestStore(t)
	svc := NewLicenseService(license.NewVerifier(server.URL, 5*time.Second, testLogger()), store, testLogger())

	result, err := svc.Verify(context.Background(), "MONO-BAD-KEY-0000")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "expired", result.Error)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, saved.LicenseKey)
}

func TestLicenseVerify_UnreachableServerIsNotAnError(t *testing.T) {
	server := verifyServer(t, true, "")
	url := server.URL
	server.Close()

	store := newTestStore(t)
	svc := NewLicenseService(license.NewVerifier(url, 2*time.Second, testLogger()), store, testLogger())

	result, err := svc.Verify(context.Background(), "MONO-1234-5678-9ABC")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, license.MsgCouldNotConnect, result.Error)
}

func TestLicenseGetStatus(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(settings.Settings{
		LicenseKey:       "MONO-1234-5678-9ABC",
		Installed:        true,
		InstalledVersion: "1.4.2",
	}))

	svc := NewLicenseService(license.NewVerifier("http://unused.invalid", time.Second, testLogger()), store, testLogger())

	status, err := svc.GetStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, status.HasLicense)
	assert.Equal(t, "MONO****9ABC", status.LicenseKey)
	assert.True(t, status.Installed)
	assert.Equal(t, "1.4.2", status.InstalledVersion)
}

func TestLicenseGetStatus_Empty(t *testing.T) {
	store := newTestStore(t)
	svc := NewLicenseService(license.NewVerifier("http://unused.invalid", time.Second, testLogger()), store, testLogger())

	status, err := svc.GetStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.HasLicense)
	assert.Empty(t, status.LicenseKey)
	assert.False(t, status.Installed)
}

func TestLicenseClear(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(settings.Settings{
		LicenseKey:       "MONO-1234-5678-9ABC",
		Installed:        true,
		InstalledVersion: "1.4.2",
	}))

	svc := NewLicenseService(license.NewVerifier("http://unused.invalid", time.Second, testLogger()), store, testLogger())
	require.NoError(t, svc.Clear(context.Background()))

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, saved.LicenseKey)
	// Clearing the key does not uninstall.
	assert.True(t, saved.Installed)
	assert.Equal(t, "1.4.2", saved.InstalledVersion)
}

func TestMaskKey(t *testing.T) {
	assert.Empty(t, maskKey(""))
	assert.Equal(t, "****", maskKey("tiny"))
	assert.Equal(t, "MONO****9ABC", maskKey("MONO-1234-5678-9ABC"))
}
