package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	v1 "github.com/dmehra2102/prod-golang-projects/medication/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/cache"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/tracer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func runServer(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}

	sealer, err := newSealer(cfg, log)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting sql.DB: %w", err)
	}
	defer sqlDB.Close()

	collector := metrics.NewCollector(cfg.App.Name, prometheus.DefaultRegisterer)

	checks := []v1.Check{{
		Name: "database",
		Ping: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	prescriberRepo := repository.NewPrescriberRepository(db)
	pharmacistRepo := repository.NewPharmacistRepository(db)
	prescriptionRepo := repository.NewPrescriptionRepository(db)
	adherenceRepo := repository.NewAdherenceRepository(db)

	var medicationRepo medication.Repository = repository.NewMedicationRepository(db)
	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(cfg.Redis)
		defer client.Close()

		rc := cache.NewRedisCache(client, cfg.App.Name)
		medicationRepo = repository.NewCachedMedicationRepository(medicationRepo, rc, cfg.Redis.CatalogTTL, collector, log)
		checks = append(checks, v1.Check{Name: "cache", Ping: rc.Ping})
		log.Info("medication catalog cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Services
	jwtManager := auth.NewJWTManager(cfg.JWT)
	auditSvc := service.NewAuditService(auditRepo, collector, log)
	defer auditSvc.Shutdown()

	authSvc := service.NewAuthService(userRepo, jwtManager, auditSvc, log)
	patientSvc := service.NewPatientService(patientRepo, sealer, auditSvc, log)
	catalogSvc := service.NewCatalogService(medicationRepo)
	prescriptionSvc := service.NewPrescriptionService(
		prescriptionRepo, patientRepo, medicationRepo, prescriberRepo, pharmacistRepo, auditSvc, collector, log,
	)
	adherenceSvc := service.NewAdherenceService(adherenceRepo, prescriptionRepo, patientRepo, auditSvc, collector, log)

	globalLimit := middleware.NewGlobalLimiter(cfg.RateLimit)
	authLimit := middleware.NewAuthLimiter(cfg.RateLimit)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go globalLimit.RunCleanup(stopCleanup)
	go authLimit.RunCleanup(stopCleanup)

	router := v1.NewRouter(v1.RouterDeps{
		Config:      cfg,
		Log:         log,
		Metrics:     collector,
		Gatherer:    prometheus.DefaultGatherer,
		Tokens:      jwtManager,
		GlobalLimit: globalLimit,
		AuthLimit:   authLimit,

		Auth:          v1.NewAuthHandler(authSvc, log),
		Patients:      v1.NewPatientHandler(patientSvc, log),
		Catalog:       v1.NewCatalogHandler(catalogSvc, log),
		Prescriptions: v1.NewPrescriptionHandler(prescriptionSvc, log),
		Adherence:     v1.NewAdherenceHandler(adherenceSvc, log),
		Health:        v1.NewHealthHandler(cfg.App.Version, log, checks...),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("medication-api starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	return shutdown(srv, tp.Shutdown, cfg.Server, log)
}

func shutdown(srv *http.Server, flushTraces func(context.Context) error, cfg config.ServerConfig, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := flushTraces(ctx); err != nil {
		log.Warn("flushing traces", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
