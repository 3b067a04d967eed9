package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "monoinstall/internal/errors"
	"monoinstall/internal/infrastructure"
	"monoinstall/internal/middleware"
	"monoinstall/internal/services"
)

// InstallRunner is the install service surface the handler consumes,
// narrowed for testing.
type InstallRunner interface {
	Run(ctx context.Context) error
	Status() services.InstallStatus
}

// InstallHandler handles install-related HTTP requests.
type InstallHandler struct {
	service InstallRunner
	logger  *slog.Logger
}

// NewInstallHandler creates a new install handler.
func NewInstallHandler(service InstallRunner, logger *slog.Logger) *InstallHandler {
	return &InstallHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "install")),
	}
}

// InstallResponse reports the outcome of a completed install run.
type InstallResponse struct {
	Success   bool                   `json:"success"`
	Status    services.InstallStatus `json:"status"`
	TraceID   string                 `json:"trace_id"`
	Timestamp time.Time              `json:"timestamp"`
}

// Routes returns a chi router for install endpoints.
func (h *InstallHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Run)
	r.Get("/status", h.GetStatus)

	return r
}

// Run handles POST /api/install. The run is synchronous: the response is
// sent when the sequence finishes or fails, while per-phase progress is
// streamed over the websocket in the meantime.
func (h *InstallHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("install-handler")

	ctx, span := tracer.Start(ctx, "install_handler.run",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/install"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "install run requested",
		slog.String("request_id", reqID))

	err := h.service.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("install.result", "failure"))

		traceID := infrastructure.TraceIDFromContext(ctx)
		instance := "/api/install#" + reqID

		switch {
		case errors.Is(err, apperrors.ErrInstallInProgress):
			render.Render(w, r, apperrors.NewInstallInProgressError(instance, traceID))
		case errors.Is(err, apperrors.ErrLicenseRequired):
			render.Render(w, r, apperrors.NewLicenseRequiredError(instance, traceID))
		default:
			h.logger.ErrorContext(ctx, "install run failed",
				slog.String("error", err.Error()),
				slog.String("request_id", reqID))
			render.Render(w, r, apperrors.NewInstallFailedError(err, instance, traceID))
		}
		return
	}

	span.SetAttributes(attribute.String("install.result", "success"))

	render.JSON(w, r, InstallResponse{
		Success:   true,
		Status:    h.service.Status(),
		TraceID:   infrastructure.TraceIDFromContext(ctx),
		Timestamp: time.Now(),
	})
}

// GetStatus handles GET /api/install/status.
func (h *InstallHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}
