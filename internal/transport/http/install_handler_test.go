package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "monoinstall/internal/errors"
	"monoinstall/internal/services"
)

// MockInstallRunner mocks the install service surface.
type MockInstallRunner struct {
	mock.Mock
}

func (m *MockInstallRunner) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInstallRunner) Status() services.InstallStatus {
	args := m.Called()
	return args.Get(0).(services.InstallStatus)
}

func postInstall(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestInstallRun_Success(t *testing.T) {
	svc := new(MockInstallRunner)
	svc.On("Run", mock.Anything).Return(nil)
	svc.On("Status").Return(services.InstallStatus{State: services.StateDone})

	handler := NewInstallHandler(svc, testLogger())
	rec := postInstall(handler.Routes())

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	status := body["status"].(map[string]interface{})
	assert.Equal(t, "done", status["state"])
	svc.AssertExpectations(t)
}

func TestInstallRun_AlreadyInProgress(t *testing.T) {
	svc := new(MockInstallRunner)
	svc.On("Run", mock.Anything).Return(apperrors.ErrInstallInProgress)

	handler := NewInstallHandler(svc, testLogger())
	rec := postInstall(handler.Routes())

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/install-in-progress", body["type"])
}

func TestInstallRun_LicenseRequired(t *testing.T) {
	svc := new(MockInstallRunner)
	svc.On("Run", mock.Anything).Return(apperrors.ErrLicenseRequired)

	handler := NewInstallHandler(svc, testLogger())
	rec := postInstall(handler.Routes())

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/license-required", body["type"])
}

func TestInstallRun_SequenceFailure(t *testing.T) {
	svc := new(MockInstallRunner)
	svc.On("Run", mock.Anything).Return(assert.AnError)

	handler := NewInstallHandler(svc, testLogger())
	rec := postInstall(handler.Routes())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/errors/install-failed", body["type"])
	assert.Contains(t, body["detail"], "installation failed: ")
}

func TestInstallGetStatus(t *testing.T) {
	svc := new(MockInstallRunner)
	svc.On("Status").Return(services.InstallStatus{
		State: services.StateFailed,
		Error: "failed to download package: boom",
	})

	handler := NewInstallHandler(svc, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "failed", body["state"])
	assert.Equal(t, "failed to download package: boom", body["error"])
}
