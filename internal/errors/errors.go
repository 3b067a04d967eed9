// Package errors defines the error surface of the installer API: RFC 7807
// problem documents for the HTTP boundary and sentinel errors shared by the
// service layer.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// Sentinel errors used across the service layer.
var (
	// ErrInstallInProgress is returned when an install run is triggered
	// while another one is still active.
	ErrInstallInProgress = errors.New("an install is already in progress")
	// ErrLicenseRequired is returned when an install is triggered without
	// a verified license key on record.
	ErrLicenseRequired = errors.New("a verified license key is required before installing")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Extensions carries additional response fields.
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extensions into the problem document.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewInvalidRequestError maps a request decode/validation failure.
func NewInvalidRequestError(detail, instance, traceID string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusBadRequest,
		"/errors/invalid-request",
		"Invalid Request",
		detail,
		instance,
	).WithExtension("trace_id", traceID)
}

// NewInstallInProgressError maps the single-run guard rejection.
func NewInstallInProgressError(instance, traceID string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusConflict,
		"/errors/install-in-progress",
		"Install In Progress",
		"An install run is already active. Wait for it to finish before retrying.",
		instance,
	).WithExtension("trace_id", traceID)
}

// NewInstallFailedError maps a failed install run; the detail carries the
// step error so the UI can show "installation failed: <message>".
func NewInstallFailedError(err error, instance, traceID string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusInternalServerError,
		"/errors/install-failed",
		"Installation Failed",
		"installation failed: "+err.Error(),
		instance,
	).WithExtension("trace_id", traceID)
}

// NewLicenseRequiredError maps an install trigger without a verified key.
func NewLicenseRequiredError(instance, traceID string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusPreconditionFailed,
		"/errors/license-required",
		"License Required",
		ErrLicenseRequired.Error(),
		instance,
	).WithExtension("trace_id", traceID)
}
