package handler

import (
	"encoding/json"
	"net/http"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/service"
	"go.uber.org/zap"
)

type WarrantyHandler struct {
	warrantyService *service.WarrantyService
	logger          *zap.Logger
}

func NewWarrantyHandler(warrantyService *service.WarrantyService, logger *zap.Logger) *WarrantyHandler {
	return &WarrantyHandler{warrantyService: warrantyService, logger: logger}
}

// Create godoc
// @Summary Create a warranty
// @Description Registers a coverage window and bulk-generates its planned maintenance cases
// @Tags Warranties
// @Accept json
// @Produce json
// @Param warranty body domain.CreateWarrantyRequest true "Warranty"
// @Success 201 {object} domain.WarrantyDTO
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /warranties [post]
func (h *WarrantyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateWarrantyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	warranty, err := h.warrantyService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create warranty", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, warranty)
}
