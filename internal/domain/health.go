package domain

import "context"

// HealthReport lists the state of every dependency probed by a health check
type HealthReport struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Healthy reports whether every component answered
func (r *HealthReport) Healthy() bool {
	return r.Status == "ok"
}

type HealthUsecase interface {
	Check(ctx context.Context) *HealthReport
}
