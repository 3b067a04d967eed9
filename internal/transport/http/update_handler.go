package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "monoinstall/internal/errors"
	"monoinstall/internal/infrastructure"
	"monoinstall/internal/middleware"
	"monoinstall/internal/updater"
)

// UpdateChecker is the updater surface the handler consumes.
type UpdateChecker interface {
	Check(ctx context.Context) (*updater.UpdateInfo, error)
}

// UpdateHandler handles update-check HTTP requests.
type UpdateHandler struct {
	checker UpdateChecker
	logger  *slog.Logger
}

// NewUpdateHandler creates a new update handler.
func NewUpdateHandler(checker UpdateChecker, logger *slog.Logger) *UpdateHandler {
	return &UpdateHandler{
		checker: checker,
		logger:  logger.With(slog.String("handler", "update")),
	}
}

// Routes returns a chi router for update endpoints.
func (h *UpdateHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/check", h.Check)

	return r
}

// Check handles GET /api/updates/check.
func (h *UpdateHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	info, err := h.checker.Check(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "update check failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Render(w, r, apperrors.NewProblemDetails(
			http.StatusBadGateway,
			"/errors/update-check-failed",
			"Update Check Failed",
			err.Error(),
			"/api/updates/check#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)))
		return
	}

	render.JSON(w, r, info)
}
