package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "tyrepulse/internal/errors"
	"tyrepulse/internal/services"
	"tyrepulse/pkg/contracts/domain"
)

// DashboardHandler serves aggregated KPI data and anomaly reports.
type DashboardHandler struct {
	service      *services.DashboardService
	logger       *slog.Logger
	errorHandler *apierrors.Handler
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(service *services.DashboardService, logger *slog.Logger, errorHandler *apierrors.Handler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "dashboard")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/dashboard-data", h.DashboardData)
	r.Get("/anomalies", h.Anomalies)
	return r
}

// DashboardData handles GET /api/dashboard-data.
func (h *DashboardHandler) DashboardData(w http.ResponseWriter, r *http.Request) {
	grouping, err := groupingParam(r)
	if err != nil {
		h.errorHandler.WriteError(w, r, err)
		return
	}

	data, err := h.service.Dashboard(r.Context(), grouping)
	if err != nil {
		h.errorHandler.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, data)
}

// Anomalies handles GET /api/anomalies.
func (h *DashboardHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	grouping, err := groupingParam(r)
	if err != nil {
		h.errorHandler.WriteError(w, r, err)
		return
	}

	report, err := h.service.Anomalies(r.Context(), grouping)
	if err != nil {
		h.errorHandler.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// groupingParam reads the optional grouping query parameter, daily by
// default.
func groupingParam(r *http.Request) (domain.Grouping, error) {
	raw := r.URL.Query().Get("grouping")
	if raw == "" {
		return domain.GroupingDaily, nil
	}
	grouping := domain.Grouping(raw)
	if !grouping.IsValid() {
		return "", apierrors.NewValidation(fmt.Sprintf("unknown grouping %q", raw)).
			WithField("allowed", []string{"daily", "weekly", "monthly"})
	}
	return grouping, nil
}
