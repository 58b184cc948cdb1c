package repository

import (
	"context"
	"fmt"

	"brokerage-onboarding-backend/config"
	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/internal/repository/filestore"
	"brokerage-onboarding-backend/internal/repository/memstore"
	"brokerage-onboarding-backend/internal/repository/postgres"
	"brokerage-onboarding-backend/internal/repository/redisstore"
	"brokerage-onboarding-backend/internal/repository/s3store"
	"brokerage-onboarding-backend/pkg/database"
	"brokerage-onboarding-backend/pkg/objectstore"
	"brokerage-onboarding-backend/pkg/redis"

	"github.com/spf13/afero"
)

// OpenKeyValueStore connects the backend selected by STORAGE_DRIVER.
// The returned close func releases its connections.
func OpenKeyValueStore(ctx context.Context, cfg *config.Config) (domain.KeyValueStore, func(), error) {
	noop := func() {}

	switch cfg.StorageDriver {
	case config.StorageMemory, "":
		return memstore.NewKeyValueStore(), noop, nil

	case config.StorageFile:
		return filestore.NewKeyValueStore(afero.NewOsFs(), cfg.StorageFileDir), noop, nil

	case config.StorageRedis:
		if err := redis.Initialize(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
			return nil, nil, err
		}
		return redisstore.NewKeyValueStore(redis.Client()), func() { _ = redis.Close() }, nil

	case config.StoragePostgres:
		pool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool, cfg.StoragePGTable); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewKeyValueStore(pool, cfg.StoragePGTable), pool.Close, nil

	case config.StorageS3:
		client, err := objectstore.NewS3Client(ctx, objectstore.Config{
			Provider:        objectstore.Provider(cfg.S3Provider),
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := objectstore.CheckBucket(ctx, client, cfg.S3Bucket); err != nil {
			return nil, nil, err
		}
		return s3store.NewKeyValueStore(client, cfg.S3Bucket), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}
