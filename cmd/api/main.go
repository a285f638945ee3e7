package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coretrack/warranty-api/docs"
	"github.com/coretrack/warranty-api/internal/aggregate"
	"github.com/coretrack/warranty-api/internal/cache"
	"github.com/coretrack/warranty-api/internal/config"
	"github.com/coretrack/warranty-api/internal/database"
	"github.com/coretrack/warranty-api/internal/http/handler"
	"github.com/coretrack/warranty-api/internal/http/middleware"
	"github.com/coretrack/warranty-api/internal/http/router"
	"github.com/coretrack/warranty-api/internal/jobs"
	"github.com/coretrack/warranty-api/internal/legacy"
	"github.com/coretrack/warranty-api/internal/logger"
	"github.com/coretrack/warranty-api/internal/parts"
	"github.com/coretrack/warranty-api/internal/sequence"
	"github.com/coretrack/warranty-api/internal/service"
	"github.com/coretrack/warranty-api/internal/storage"
	"github.com/coretrack/warranty-api/internal/store"
	"github.com/coretrack/warranty-api/internal/store/linkedrecord"
	"github.com/coretrack/warranty-api/internal/store/relational"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title CoreTrack Warranty API
// @version 1.0
// @description Warranty and service tracking API for customers, products, warranties and service cases

// @contact.name API Support
// @contact.email support@coretrack.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for all endpoints
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.String("backend", basicCfg.Backend.Driver),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Select the record backend. The driver is fixed for the process
	// lifetime; everything above this point is backend-agnostic.
	var (
		st store.Store
		db *gorm.DB
	)
	switch cfg.Backend.Driver {
	case config.DriverPostgres:
		db, err = database.NewDatabase(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		st = relational.New(db, log)
	case config.DriverLinkedRecord:
		client, err := linkedrecord.NewClient(linkedrecord.ClientConfig{
			BaseURL: cfg.RecordStore.BaseURL,
			Token:   cfg.RecordStore.Token,
			Timeout: cfg.RecordStore.TimeoutDuration(),
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create record store client: %w", err)
		}
		st = linkedrecord.New(client, cache.New(cfg.RecordStore.CacheTTLDuration()), log)
	default:
		return fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
	log.Info("Record backend selected", zap.String("backend", st.Name()))

	// Initialize storage
	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Optional read-only connection to the retired service-desk system.
	// The app continues without it if the connection fails.
	var legacyClient *legacy.Client
	if cfg.Legacy.Enabled {
		legacyClient, err = legacy.NewClient(&cfg.Legacy, log)
		if err != nil {
			log.Warn("Legacy system connection failed, continuing without it", zap.Error(err))
		}
	} else {
		log.Info("Legacy system not configured, skipping")
	}

	// When the legacy system is reachable, raise the relational case
	// sequences above its highest historical ticket numbers so new case
	// codes never collide with migrated ones.
	if legacyClient.IsEnabled() && cfg.Backend.Driver == config.DriverPostgres {
		seedSequencesFromLegacy(ctx, st.(*relational.Store), legacyClient, log)
	}

	seq := sequence.NewGenerator(st, log)
	partsSync := parts.NewSynchronizer(st, log)
	engine := aggregate.NewEngine(st, log)

	// Initialize services
	companyService := service.NewCompanyService(st, log)
	productService := service.NewProductService(st, log)
	warrantyService := service.NewWarrantyService(st, seq, log)
	caseService := service.NewCaseService(st, seq, partsSync, log)
	dashboardService := service.NewDashboardService(engine, log)
	technicianService := service.NewTechnicianService(st, log)
	fileService := service.NewFileService(st, fileStorage, log)

	// Initialize middleware and handlers
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	companyHandler := handler.NewCompanyHandler(companyService, log)
	productHandler := handler.NewProductHandler(productService, warrantyService, log)
	warrantyHandler := handler.NewWarrantyHandler(warrantyService, log)
	caseHandler := handler.NewCaseHandler(caseService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)
	technicianHandler := handler.NewTechnicianHandler(technicianService, log)
	fileHandler := handler.NewFileHandler(fileService, cfg.Storage.MaxUploadSizeMB, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		st,
		legacyClient,
		rateLimiter,
		companyHandler,
		productHandler,
		warrantyHandler,
		caseHandler,
		dashboardHandler,
		technicianHandler,
		fileHandler,
	)

	// The nightly coverage repair only applies to the linked-record backend;
	// the relational backend derives coverage in SQL and never drifts.
	var scheduler *jobs.Scheduler
	if cfg.Backend.Driver == config.DriverLinkedRecord && cfg.Jobs.CoverageSyncEnabled {
		scheduler = jobs.NewScheduler(log)
		job := jobs.NewCoverageSyncJob(st.(*linkedrecord.Store), log, 30*time.Minute)
		if err := scheduler.AddJob(jobs.CoverageSyncJobName, cfg.Jobs.CoverageSyncSchedule, job.Run); err != nil {
			log.Error("Failed to register coverage sync job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with coverage sync job",
				zap.String("cron_expr", cfg.Jobs.CoverageSyncSchedule))
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if err := legacyClient.Close(); err != nil {
			log.Warn("Error closing legacy system connection", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}

// seedSequencesFromLegacy raises each case code sequence above the highest
// ticket number the legacy system ever issued. SetSequence never lowers, so
// repeating this on every boot is safe.
func seedSequencesFromLegacy(ctx context.Context, st *relational.Store, client *legacy.Client, log *zap.Logger) {
	for _, prefix := range []string{"PM", "CM", "SERVICE"} {
		max, err := client.MaxCaseNumber(ctx, prefix)
		if err != nil {
			log.Warn("Failed to read legacy max case number",
				zap.String("prefix", prefix), zap.Error(err))
			continue
		}
		if max == 0 {
			continue
		}
		if err := st.SetSequence(ctx, prefix, max); err != nil {
			log.Warn("Failed to seed case sequence",
				zap.String("prefix", prefix), zap.Int("value", max), zap.Error(err))
			continue
		}
		log.Info("Case sequence seeded from legacy system",
			zap.String("prefix", prefix), zap.Int("value", max))
	}
}
