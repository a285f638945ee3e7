package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CaseHandler struct {
	caseService *service.CaseService
	logger      *zap.Logger
}

func NewCaseHandler(caseService *service.CaseService, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{caseService: caseService, logger: logger}
}

// List godoc
// @Summary List service cases
// @Tags Cases
// @Produce json
// @Param query query string false "Search term"
// @Param type query string false "Service type" Enums(PM, CM, SERVICE)
// @Param status query string false "Status filter" Enums(Completed, Cancelled, Pending)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(20)
// @Success 200 {object} domain.PagedCases
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases [get]
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	q := domain.CaseQuery{
		Search:   r.URL.Query().Get("query"),
		Type:     domain.ServiceType(r.URL.Query().Get("type")),
		Status:   r.URL.Query().Get("status"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.caseService.List(r.Context(), q)
	if err != nil {
		h.logger.Error("failed to list cases", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get a service case with its related records
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.ServiceCaseDetail
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.caseService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// GetByCode godoc
// @Summary Find a service case by its case code
// @Description Joined with warranty, product and company; sections whose reference points at nothing come back null
// @Tags Cases
// @Produce json
// @Param caseCode path string true "Case code (e.g. PM_000001)"
// @Success 200 {object} domain.ServiceCaseDetail
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases/code/{caseCode} [get]
func (h *CaseHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	detail, err := h.caseService.GetByCode(r.Context(), chi.URLParam(r, "caseCode"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// Create godoc
// @Summary Create a service case
// @Description Assigns the next case code for the service type and creates the part rows
// @Tags Cases
// @Accept json
// @Produce json
// @Param case body domain.CreateCaseRequest true "Case"
// @Success 201 {object} domain.ServiceCaseDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases [post]
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	created, err := h.caseService.Create(r.Context(), &req)
	if err != nil {
		if service.IsConflict(err) {
			respondWithError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to create case", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// Update godoc
// @Summary Update a service case
// @Description Partial update; a non-null parts array replaces the whole part set
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param case body domain.UpdateCaseRequest true "Fields to update"
// @Success 200 {object} domain.ServiceCaseDetail
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /cases/{id} [patch]
func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Parts != nil {
		for i := range *req.Parts {
			if err := validate.Struct(&(*req.Parts)[i]); err != nil {
				respondValidationError(w, err)
				return
			}
		}
	}

	detail, err := h.caseService.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.logger.Error("failed to update case", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}
