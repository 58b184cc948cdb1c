package usecase_test

import (
	"context"
	"encoding/json"

	"brokerage-onboarding-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockOnboardingStore struct {
	mock.Mock
}

func (m *MockOnboardingStore) LoadState(ctx context.Context) (*domain.OnboardingState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingState), args.Error(1)
}

func (m *MockOnboardingStore) SaveState(ctx context.Context, state *domain.OnboardingState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *MockOnboardingStore) HasStepData(ctx context.Context, step domain.StepID) (bool, error) {
	args := m.Called(ctx, step)
	return args.Bool(0), args.Error(1)
}

func (m *MockOnboardingStore) LoadStepData(ctx context.Context, step domain.StepID) (json.RawMessage, error) {
	args := m.Called(ctx, step)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockOnboardingStore) SaveStepData(ctx context.Context, step domain.StepID, data json.RawMessage) error {
	return m.Called(ctx, step, data).Error(0)
}

func (m *MockOnboardingStore) DeleteStepData(ctx context.Context, step domain.StepID) error {
	return m.Called(ctx, step).Error(0)
}

func (m *MockOnboardingStore) Reset(ctx context.Context, steps []domain.StepID) error {
	return m.Called(ctx, steps).Error(0)
}

type MockStoreFactory struct {
	mock.Mock
}

func (m *MockStoreFactory) ForClient(clientID string) domain.OnboardingStore {
	return m.Called(clientID).Get(0).(domain.OnboardingStore)
}
