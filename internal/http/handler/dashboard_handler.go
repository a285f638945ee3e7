package handler

import (
	"net/http"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

func statsFilter(r *http.Request) (domain.StatsFilter, error) {
	filter := domain.StatsFilter{
		Company: r.URL.Query().Get("company"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := domain.ParseDate(from)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := domain.ParseDate(to)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	return filter, nil
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Warranty buckets, service histograms and the expiring-soon list
// @Tags Dashboard
// @Produce json
// @Param company query string false "Company name filter (substring)"
// @Param from query string false "Start of date range (YYYY-MM-DD)"
// @Param to query string false "End of date range (YYYY-MM-DD)"
// @Success 200 {object} domain.DashboardStats
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filter, err := statsFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date filter")
		return
	}

	stats, err := h.dashboardService.Stats(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to compute dashboard stats", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// PartsSummary godoc
// @Summary Spare part usage summary
// @Description Part rows grouped by normalized part number, restricted to the filtered services
// @Tags Dashboard
// @Produce json
// @Param company query string false "Company name filter (substring)"
// @Param from query string false "Start of date range (YYYY-MM-DD)"
// @Param to query string false "End of date range (YYYY-MM-DD)"
// @Success 200 {object} domain.PartsSummary
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /dashboard/parts [get]
func (h *DashboardHandler) PartsSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := statsFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date filter")
		return
	}

	summary, err := h.dashboardService.PartsSummary(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to compute parts summary", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
