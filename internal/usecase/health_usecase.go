package usecase

import (
	"context"

	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/pkg/logger"
)

// healthProbeKey is never written; Exists on it only proves the backend answers
const healthProbeKey = "health:probe"

// HealthCheck probes one optional dependency
type HealthCheck func(ctx context.Context) error

type healthUsecase struct {
	store  domain.KeyValueStore
	driver string
	checks map[string]HealthCheck
}

// NewHealthUsecase probes the onboarding store and any extra checks, keyed by component name
func NewHealthUsecase(store domain.KeyValueStore, driver string, checks map[string]HealthCheck) domain.HealthUsecase {
	return &healthUsecase{store: store, driver: driver, checks: checks}
}

func (u *healthUsecase) Check(ctx context.Context) *domain.HealthReport {
	report := &domain.HealthReport{Status: "ok", Components: map[string]string{}}

	if _, err := u.store.Exists(ctx, healthProbeKey); err != nil {
		logger.Log.Warn("Storage health check failed", "driver", u.driver, "error", err)
		report.Components["storage"] = "unavailable"
		report.Status = "degraded"
	} else {
		report.Components["storage"] = "ok"
	}

	for name, check := range u.checks {
		if err := check(ctx); err != nil {
			logger.Log.Warn("Health check failed", "component", name, "error", err)
			report.Components[name] = "unavailable"
			report.Status = "degraded"
			continue
		}
		report.Components[name] = "ok"
	}

	return report
}
