package router

import (
	"encoding/json"
	"net/http"

	"github.com/coretrack/warranty-api/internal/config"
	"github.com/coretrack/warranty-api/internal/database"
	"github.com/coretrack/warranty-api/internal/http/handler"
	"github.com/coretrack/warranty-api/internal/http/middleware"
	"github.com/coretrack/warranty-api/internal/legacy"
	"github.com/coretrack/warranty-api/internal/store"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/coretrack/warranty-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg               *config.Config
	logger            *zap.Logger
	db                *gorm.DB // nil when the linked-record backend is active
	store             store.Store
	legacyClient      *legacy.Client
	rateLimiter       *middleware.RateLimiter
	companyHandler    *handler.CompanyHandler
	productHandler    *handler.ProductHandler
	warrantyHandler   *handler.WarrantyHandler
	caseHandler       *handler.CaseHandler
	dashboardHandler  *handler.DashboardHandler
	technicianHandler *handler.TechnicianHandler
	fileHandler       *handler.FileHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	st store.Store,
	legacyClient *legacy.Client,
	rateLimiter *middleware.RateLimiter,
	companyHandler *handler.CompanyHandler,
	productHandler *handler.ProductHandler,
	warrantyHandler *handler.WarrantyHandler,
	caseHandler *handler.CaseHandler,
	dashboardHandler *handler.DashboardHandler,
	technicianHandler *handler.TechnicianHandler,
	fileHandler *handler.FileHandler,
) *Router {
	return &Router{
		cfg:               cfg,
		logger:            logger,
		db:                db,
		store:             st,
		legacyClient:      legacyClient,
		rateLimiter:       rateLimiter,
		companyHandler:    companyHandler,
		productHandler:    productHandler,
		warrantyHandler:   warrantyHandler,
		caseHandler:       caseHandler,
		dashboardHandler:  dashboardHandler,
		technicianHandler: technicianHandler,
		fileHandler:       fileHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Backend health check (readiness probe with pool stats where available)
	r.Get("/health/db", rt.backendHealth)

	// Combined readiness check (backend plus the optional legacy connection)
	r.Get("/health/ready", rt.readiness)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(rt.cfg.ApiKey.Value, rt.logger))

		// Companies
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", rt.companyHandler.List)
			r.Post("/", rt.companyHandler.Create)
			r.Get("/{id}", rt.companyHandler.Get)
			r.Put("/{id}", rt.companyHandler.Update)
			r.Get("/{id}/products", rt.companyHandler.Products)
		})

		// Products
		r.Route("/products", func(r chi.Router) {
			r.Get("/", rt.productHandler.List)
			r.Post("/", rt.productHandler.Create)
			r.Get("/{id}", rt.productHandler.Get)
			r.Put("/{id}", rt.productHandler.Update)
			r.Get("/{id}/warranties", rt.productHandler.Warranties)
		})

		// Warranties
		r.Post("/warranties", rt.warrantyHandler.Create)

		// Service cases
		r.Route("/cases", func(r chi.Router) {
			r.Get("/", rt.caseHandler.List)
			r.Post("/", rt.caseHandler.Create)
			r.Get("/code/{caseCode}", rt.caseHandler.GetByCode)
			r.Get("/code/{caseCode}/attachments", rt.fileHandler.List)
			r.Post("/code/{caseCode}/attachments", rt.fileHandler.Upload)
			r.Get("/{id}", rt.caseHandler.Get)
			r.Patch("/{id}", rt.caseHandler.Update)
		})

		// Attachments
		r.Route("/attachments", func(r chi.Router) {
			r.Get("/{id}/download", rt.fileHandler.Download)
			r.Delete("/{id}", rt.fileHandler.Delete)
		})

		// Technicians
		r.Route("/technicians", func(r chi.Router) {
			r.Get("/", rt.technicianHandler.List)
			r.Post("/", rt.technicianHandler.Create)
			r.Delete("/{id}", rt.technicianHandler.Delete)
		})

		// Dashboard
		r.Get("/dashboard/stats", rt.dashboardHandler.Stats)
		r.Get("/dashboard/parts", rt.dashboardHandler.PartsSummary)
	})

	return r
}

func (rt *Router) backendHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := rt.store.Ping(r.Context()); err != nil {
		rt.logger.Error("backend health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"backend": rt.store.Name(),
		})
		return
	}

	body := map[string]interface{}{
		"status":  "healthy",
		"backend": rt.store.Name(),
	}
	if rt.db != nil {
		if stats, err := database.Stats(rt.db); err == nil {
			body["stats"] = stats
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := rt.store.Ping(r.Context()); err != nil {
		rt.logger.Error("backend health check failed", zap.Error(err))
		checks["backend"] = map[string]interface{}{
			"status": "unhealthy",
			"name":   rt.store.Name(),
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["backend"] = map[string]interface{}{
			"status": "healthy",
			"name":   rt.store.Name(),
		}
	}

	// The legacy connection is optional and never blocks readiness
	if rt.legacyClient.IsEnabled() {
		checks["legacy"] = rt.legacyClient.HealthCheck(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	status := "healthy"
	if !allHealthy {
		status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
