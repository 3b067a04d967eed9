package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshal(t *testing.T, pd *ProblemDetails) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(pd)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestProblemDetails_MarshalFlattensExtensions(t *testing.T) {
	pd := NewProblemDetails(
		http.StatusConflict,
		"/errors/install-in-progress",
		"Install In Progress",
		"detail text",
		"/api/install#req-1",
	).WithExtension("trace_id", "trace-123")

	body := marshal(t, pd)
	assert.Equal(t, "/errors/install-in-progress", body["type"])
	assert.Equal(t, "Install In Progress", body["title"])
	assert.Equal(t, float64(http.StatusConflict), body["status"])
	assert.Equal(t, "detail text", body["detail"])
	assert.Equal(t, "/api/install#req-1", body["instance"])
	assert.Equal(t, "trace-123", body["trace_id"])
}

func TestProblemDetails_OmitsEmptyFields(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, "/errors/invalid-request", "Invalid Request", "", "")

	body := marshal(t, pd)
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "instance")
}

func TestNewInstallFailedError(t *testing.T) {
	pd := NewInstallFailedError(errors.New("failed to download package: status 503"), "/api/install#r", "t")

	assert.Equal(t, http.StatusInternalServerError, pd.Status)
	assert.Equal(t, "installation failed: failed to download package: status 503", pd.Detail)
}

func TestNewLicenseRequiredError(t *testing.T) {
	pd := NewLicenseRequiredError("/api/install#r", "t")

	assert.Equal(t, http.StatusPreconditionFailed, pd.Status)
	assert.Equal(t, ErrLicenseRequired.Error(), pd.Detail)
	assert.Equal(t, "t", pd.Extensions["trace_id"])
}

func TestNewInstallInProgressError(t *testing.T) {
	pd := NewInstallInProgressError("/api/install#r", "t")

	assert.Equal(t, http.StatusConflict, pd.Status)
	assert.Equal(t, "/errors/install-in-progress", pd.Type)
}
