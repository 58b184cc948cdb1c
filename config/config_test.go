package config_test

import (
	"os"
	"testing"

	"brokerage-onboarding-backend/config"
	"brokerage-onboarding-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "GIN_MODE", "FRONTEND_URL", "ALLOWED_ORIGINS", "ONBOARDING_STEPS",
		"STORAGE_DRIVER", "RATE_LIMIT_WINDOW_SECONDS", "RATE_LIMIT_ONBOARDING_THRESHOLD", "LOG_LEVEL")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, config.StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 60, cfg.RateLimitWindowSeconds)
	assert.Equal(t, 30, cfg.RateLimitOnboardingThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.IsProduction())

	seq, err := cfg.StepSequence()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStepSequence().Steps(), seq.Steps())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("ALLOWED_ORIGINS", " https://admin.example.com/ ,, https://ops.example.com")
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "not-a-number")
	t.Setenv("RATE_LIMIT_ONBOARDING_THRESHOLD", "5")
	t.Setenv("ONBOARDING_STEPS", "signin, bank, completion")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, config.StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 60, cfg.RateLimitWindowSeconds)
	assert.Equal(t, 5, cfg.RateLimitOnboardingThreshold)

	seq, err := cfg.StepSequence()
	require.NoError(t, err)
	assert.Equal(t, []domain.StepID{domain.StepSignin, domain.StepBank, domain.StepCompletion}, seq.Steps())
}

func TestStepSequenceRejectsDuplicates(t *testing.T) {
	cfg := &config.Config{OnboardingSteps: "signin,bank,signin"}

	_, err := cfg.StepSequence()
	assert.Error(t, err)
}
