package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"brokerage-onboarding-backend/internal/domain"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageS3       = "s3"
)

type Config struct {
	Port        string
	GinMode     string
	AppEnv      string
	ServiceName string
	LogLevel    string
	FrontendURL string
	// Extra CORS origins on top of FrontendURL
	AllowedOrigins []string
	// Auth Configuration
	JWTSecret string
	JWKSURL   string
	// Onboarding Configuration
	OnboardingSteps string // Optional comma separated override of the wizard order
	// Storage Configuration
	StorageDriver    string
	StorageKeyPrefix string
	StorageFileDir   string
	DBUrl            string
	StoragePGTable   string
	// Redis Configuration
	RedisURL      string
	RedisPassword string
	// S3 Configuration
	S3Provider        string
	S3Bucket          string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	// Rate Limiting Configuration
	RateLimitWindowSeconds       int
	RateLimitOnboardingThreshold int
}

func LoadConfig() (*Config, error) {
	// Load .env file (only effective locally, ignored when the file is absent)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		AppEnv:      getEnv("APP_ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "brokerage-onboarding"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		// Strip trailing slash to avoid double slashes in redirects
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		// Auth
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWKSURL:   getEnv("JWKS_URL", ""),
		// Onboarding
		OnboardingSteps: getEnv("ONBOARDING_STEPS", ""),
		// Storage
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		StorageKeyPrefix: getEnv("STORAGE_KEY_PREFIX", "kyc"),
		StorageFileDir:   getEnv("STORAGE_FILE_DIR", "./data/onboarding"),
		DBUrl:            getEnv("DATABASE_URL", ""),
		StoragePGTable:   getEnv("STORAGE_PG_TABLE", "onboarding_kv"),
		// Redis
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		// S3
		S3Provider:        getEnv("S3_PROVIDER", "aws"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "ap-south-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		// Rate Limiting (with sensible defaults)
		RateLimitWindowSeconds:       getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),       // 1 minute window
		RateLimitOnboardingThreshold: getEnvInt("RATE_LIMIT_ONBOARDING_THRESHOLD", 30), // 30 mutations per window
	}

	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		log.Println("WARNING: neither JWT_SECRET nor JWKS_URL is set. Every request will be rejected.")
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DBUrl == "" {
			log.Println("WARNING: STORAGE_DRIVER=postgres but DATABASE_URL is missing.")
		}
	case StorageRedis:
		if cfg.RedisURL == "" {
			log.Println("WARNING: STORAGE_DRIVER=redis but REDIS_URL is missing.")
		}
	case StorageS3:
		if cfg.S3Bucket == "" {
			log.Println("WARNING: STORAGE_DRIVER=s3 but S3_BUCKET is missing.")
		}
	}

	// Log Redis configuration status (helpful for debugging)
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// IsProduction reports whether gin runs in release mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// StepSequence returns the wizard order, honouring ONBOARDING_STEPS when set
func (c *Config) StepSequence() (domain.StepSequence, error) {
	if strings.TrimSpace(c.OnboardingSteps) == "" {
		return domain.DefaultStepSequence(), nil
	}
	return domain.ParseStepSequence(c.OnboardingSteps)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping blanks and trailing slashes
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
