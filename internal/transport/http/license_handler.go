package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "monoinstall/internal/errors"
	"monoinstall/internal/infrastructure"
	"monoinstall/internal/license"
	"monoinstall/internal/middleware"
	"monoinstall/internal/services"
)

// LicenseHandler handles license-related HTTP requests.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// VerifyRequest is the license verification request payload.
type VerifyRequest struct {
	LicenseKey string `json:"license_key"`
}

// Bind enforces the non-blank key rule at the boundary; the verifier itself
// does not re-validate format.
func (v *VerifyRequest) Bind(r *http.Request) error {
	if strings.TrimSpace(v.LicenseKey) == "" {
		return errors.New("license_key is required")
	}
	return nil
}

// VerifyResponse wraps the verification result for the UI.
type VerifyResponse struct {
	license.Result
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Routes returns a chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/verify", h.Verify)
	r.Get("/status", h.GetStatus)
	r.Delete("/", h.Clear)

	return r
}

// Verify handles POST /api/license/verify.
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.verify",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/verify"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &VerifyRequest{}
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)

		h.logger.WarnContext(ctx, "invalid verification request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewInvalidRequestError(
			err.Error(),
			"/api/license/verify#"+reqID,
			infrastructure.TraceIDFromContext(ctx),
		))
		return
	}

	// The verifier never fails; the error reports settings persistence only.
	result, err := h.service.Verify(ctx, data.LicenseKey)
	span.SetAttributes(attribute.Bool("license.valid", result.Valid))
	if err != nil {
		span.RecordError(err)

		h.logger.ErrorContext(ctx, "failed to persist verified license",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/settings-persistence",
			"Settings Persistence Failed",
			err.Error(),
			"/api/license/verify#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)))
		return
	}

	render.JSON(w, r, VerifyResponse{
		Result:    result,
		TraceID:   infrastructure.TraceIDFromContext(ctx),
		Timestamp: time.Now(),
	})
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.service.GetStatus(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, status)
}

// Clear handles DELETE /api/license — the settings panel clear-license
// action.
func (h *LicenseHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	if err := h.service.Clear(ctx); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "license cleared",
		slog.String("request_id", reqID))

	render.JSON(w, r, map[string]interface{}{
		"success":  true,
		"message":  "License key cleared.",
		"trace_id": infrastructure.TraceIDFromContext(ctx),
	})
}

// handleError maps service errors to problem documents.
func (h *LicenseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.ErrorContext(ctx, "license request failed",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path),
		slog.String("request_id", reqID))

	render.Render(w, r, apperrors.NewProblemDetails(
		http.StatusInternalServerError,
		"/errors/license-operation",
		"License Operation Failed",
		err.Error(),
		r.URL.Path+"#"+reqID,
	).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)))
}
