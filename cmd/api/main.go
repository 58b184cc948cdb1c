package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brokerage-onboarding-backend/config"
	_ "brokerage-onboarding-backend/docs" // Important for Swagger
	v1 "brokerage-onboarding-backend/internal/delivery/http/v1"
	"brokerage-onboarding-backend/internal/repository"
	"brokerage-onboarding-backend/internal/usecase"
	"brokerage-onboarding-backend/pkg/audit"
	"brokerage-onboarding-backend/pkg/auth"
	"brokerage-onboarding-backend/pkg/logger"
	"brokerage-onboarding-backend/pkg/redis"
	"brokerage-onboarding-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

// @title           Brokerage Onboarding API
// @version         1.0
// @description     KYC onboarding wizard state for the brokerage client portal.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting onboarding backend", "port", cfg.Port, "storage", cfg.StorageDriver)

	auditLogger := audit.NewLogger(cfg.ServiceName, cfg.AppEnv)
	defer func() { _ = auditLogger.Sync() }()

	seq, err := cfg.StepSequence()
	if err != nil {
		logger.Log.Error("Invalid ONBOARDING_STEPS", "error", err)
		os.Exit(1)
	}

	// 3. Setup Storage
	ctx := context.Background()
	kv, closeStore, err := repository.OpenKeyValueStore(ctx, cfg)
	if err != nil {
		logger.Log.Error("Failed to open onboarding storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Rate limiting shares Redis when configured, memory otherwise
	if cfg.RedisURL != "" && redis.Client() == nil {
		if err := redis.Initialize(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting falls back to memory", "error", err)
		} else {
			defer func() { _ = redis.Close() }()
		}
	}

	// 4. Setup UseCases
	stores := repository.NewOnboardingStoreFactory(kv, cfg.StorageKeyPrefix)
	onboardingUC := usecase.NewOnboardingUsecase(stores, seq, validation.New(), auditLogger)

	healthChecks := map[string]usecase.HealthCheck{}
	if redis.Client() != nil {
		healthChecks["redis"] = redis.HealthCheck
	}
	healthUC := usecase.NewHealthUsecase(kv, cfg.StorageDriver, healthChecks)

	// 5. Setup Auth
	var jwksProvider *auth.Provider
	if cfg.JWKSURL != "" {
		jwksProvider = auth.NewProvider(cfg.JWKSURL)
	}
	verifier := auth.NewVerifier(cfg.JWTSecret, jwksProvider)

	// 6. Setup Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(v1.RouterDeps{
		OnboardingUC: onboardingUC,
		HealthUC:     healthUC,
		Verifier:     verifier,
		Config:       cfg,
		Audit:        auditLogger,
	})

	// 7. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
