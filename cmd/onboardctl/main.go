package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"brokerage-onboarding-backend/config"
	"brokerage-onboarding-backend/internal/delivery/cli"
	"brokerage-onboarding-backend/internal/repository"
	"brokerage-onboarding-backend/internal/usecase"
	"brokerage-onboarding-backend/pkg/audit"
	"brokerage-onboarding-backend/pkg/logger"
	"brokerage-onboarding-backend/pkg/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(loadDeps).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadDeps(ctx context.Context) (*cli.Deps, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.LogLevel)

	seq, err := cfg.StepSequence()
	if err != nil {
		return nil, nil, err
	}

	kv, closeStore, err := repository.OpenKeyValueStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	auditLogger := audit.NewLogger(cfg.ServiceName+"-cli", cfg.AppEnv)
	stores := repository.NewOnboardingStoreFactory(kv, cfg.StorageKeyPrefix)

	release := func() {
		_ = auditLogger.Sync()
		closeStore()
	}

	return &cli.Deps{
		Usecase:  usecase.NewOnboardingUsecase(stores, seq, validation.New(), auditLogger),
		Stores:   stores,
		Sequence: seq,
	}, release, nil
}
