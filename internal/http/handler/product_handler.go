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

type ProductHandler struct {
	productService  *service.ProductService
	warrantyService *service.WarrantyService
	logger          *zap.Logger
}

func NewProductHandler(productService *service.ProductService, warrantyService *service.WarrantyService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService:  productService,
		warrantyService: warrantyService,
		logger:          logger,
	}
}

// List godoc
// @Summary List products
// @Description Paginated product search with warranty-status filter, sorted by nearest expiry
// @Tags Products
// @Produce json
// @Param query query string false "Search term"
// @Param status query string false "Warranty status filter" Enums(all, active, near_expiry, expired)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 100)" default(20)
// @Success 200 {object} domain.PagedProducts
// @Failure 500 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	q := domain.ProductQuery{
		Search:   r.URL.Query().Get("query"),
		Status:   domain.WarrantyStatus(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.productService.List(r.Context(), q)
	if err != nil {
		h.logger.Error("failed to list products", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get a product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.ProductDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /products/{id} [get]
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// Warranties godoc
// @Summary List a product's warranties
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {array} domain.WarrantyDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /products/{id}/warranties [get]
func (h *ProductHandler) Warranties(w http.ResponseWriter, r *http.Request) {
	warranties, err := h.warrantyService.ListByProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, warranties)
}

// Create godoc
// @Summary Create a product
// @Tags Products
// @Accept json
// @Produce json
// @Param product body domain.CreateProductRequest true "Product"
// @Success 201 {object} domain.ProductDTO
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	product, err := h.productService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create product", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// Update godoc
// @Summary Update a product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param product body domain.CreateProductRequest true "Product"
// @Success 200 {object} domain.ProductDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /products/{id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}
