package handler

import (
	"encoding/json"
	"net/http"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TechnicianHandler struct {
	technicianService *service.TechnicianService
	logger            *zap.Logger
}

func NewTechnicianHandler(technicianService *service.TechnicianService, logger *zap.Logger) *TechnicianHandler {
	return &TechnicianHandler{technicianService: technicianService, logger: logger}
}

// List godoc
// @Summary List technicians
// @Tags Technicians
// @Produce json
// @Success 200 {array} domain.Technician
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /technicians [get]
func (h *TechnicianHandler) List(w http.ResponseWriter, r *http.Request) {
	techs, err := h.technicianService.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list technicians", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, techs)
}

// Create godoc
// @Summary Create a technician
// @Tags Technicians
// @Accept json
// @Produce json
// @Param technician body domain.CreateTechnicianRequest true "Technician"
// @Success 201 {object} domain.Technician
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /technicians [post]
func (h *TechnicianHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTechnicianRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	tech, err := h.technicianService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create technician", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tech)
}

// Delete godoc
// @Summary Delete a technician
// @Tags Technicians
// @Param id path string true "Technician ID"
// @Success 204 "No Content"
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /technicians/{id} [delete]
func (h *TechnicianHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.technicianService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
