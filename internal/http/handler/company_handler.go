package handler

import (
	"encoding/json"
	"net/http"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	companyService *service.CompanyService
	logger         *zap.Logger
}

func NewCompanyHandler(companyService *service.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companyService: companyService, logger: logger}
}

// List godoc
// @Summary List companies
// @Description Search companies by name, secondary name, tax id, or a product serial number
// @Tags Companies
// @Produce json
// @Param query query string false "Search term"
// @Success 200 {array} domain.CompanyDTO
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /companies [get]
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companyService.List(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.logger.Error("failed to list companies", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, companies)
}

// Get godoc
// @Summary Get a company
// @Tags Companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} domain.CompanyDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /companies/{id} [get]
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, err := h.companyService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// Products godoc
// @Summary List a company's products
// @Tags Companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {array} domain.ProductDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /companies/{id}/products [get]
func (h *CompanyHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.companyService.Products(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// Create godoc
// @Summary Create a company
// @Tags Companies
// @Accept json
// @Produce json
// @Param company body domain.CreateCompanyRequest true "Company"
// @Success 201 {object} domain.CompanyDTO
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /companies [post]
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	company, err := h.companyService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create company", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, company)
}

// Update godoc
// @Summary Update a company
// @Tags Companies
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param company body domain.CreateCompanyRequest true "Company"
// @Success 200 {object} domain.CompanyDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /companies/{id} [put]
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	company, err := h.companyService.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}
