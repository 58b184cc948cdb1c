package v1

import (
	"context"
	"net/http"
	"time"

	"brokerage-onboarding-backend/config"
	"brokerage-onboarding-backend/internal/delivery/http/middleware"
	"brokerage-onboarding-backend/internal/delivery/http/response"
	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/pkg/audit"
	"brokerage-onboarding-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	OnboardingUC domain.OnboardingUsecase
	HealthUC     domain.HealthUsecase
	Verifier     *auth.Verifier
	Config       *config.Config
	Audit        *audit.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	origins := append([]string{deps.Config.FrontendURL}, deps.Config.AllowedOrigins...)

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(origins, deps.Config.IsProduction())) // CORS must be first!
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config.IsProduction()))
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		report := deps.HealthUC.Check(ctx)
		if !report.Healthy() {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", report)
			return
		}
		response.Success(c, http.StatusOK, "System operational", report)
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	mutationLimit := middleware.RateLimitMiddleware(middleware.OnboardingRateLimitConfig(
		deps.Config.RateLimitOnboardingThreshold,
		time.Duration(deps.Config.RateLimitWindowSeconds)*time.Second,
		deps.Audit,
	))

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Verifier))
	{
		NewOnboardingHandler(protected, deps.OnboardingUC, deps.Config.FrontendURL, mutationLimit)
	}

	return r
}
