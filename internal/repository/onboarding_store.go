package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"brokerage-onboarding-backend/internal/domain"
)

const (
	// DefaultKeyPrefix namespaces every onboarding key
	DefaultKeyPrefix = "kyc"

	stateKeyName    = "kyc_onboarding_state"
	stepDataKeyName = "kyc_step_data"
)

type onboardingStoreFactory struct {
	kv     domain.KeyValueStore
	prefix string
}

// NewOnboardingStoreFactory scopes kv to individual clients under prefix
func NewOnboardingStoreFactory(kv domain.KeyValueStore, prefix string) domain.OnboardingStoreFactory {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &onboardingStoreFactory{kv: kv, prefix: prefix}
}

func (f *onboardingStoreFactory) ForClient(clientID string) domain.OnboardingStore {
	return &onboardingStore{
		kv:        f.kv,
		namespace: f.prefix + ":" + clientID,
	}
}

type onboardingStore struct {
	kv        domain.KeyValueStore
	namespace string
}

// StateKey is the key of the state blob for namespace "<prefix>:<client>"
func StateKey(namespace string) string {
	return namespace + ":" + stateKeyName
}

// StepDataKey is the key of one step payload for namespace "<prefix>:<client>"
func StepDataKey(namespace string, step domain.StepID) string {
	return namespace + ":" + stepDataKeyName + ":" + string(step)
}

// ============================================================================
// State Blob
// ============================================================================

func (s *onboardingStore) LoadState(ctx context.Context) (*domain.OnboardingState, error) {
	raw, found, err := s.kv.Get(ctx, StateKey(s.namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to read onboarding state: %w", err)
	}
	if !found || len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var state domain.OnboardingState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt blob is treated like a first visit
		return nil, nil
	}
	return &state, nil
}

func (s *onboardingStore) SaveState(ctx context.Context, state *domain.OnboardingState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode onboarding state: %w", err)
	}
	if err := s.kv.Set(ctx, StateKey(s.namespace), raw); err != nil {
		return fmt.Errorf("failed to write onboarding state: %w", err)
	}
	return nil
}

// ============================================================================
// Step Payloads
// ============================================================================

func (s *onboardingStore) HasStepData(ctx context.Context, step domain.StepID) (bool, error) {
	return s.kv.Exists(ctx, StepDataKey(s.namespace, step))
}

func (s *onboardingStore) LoadStepData(ctx context.Context, step domain.StepID) (json.RawMessage, error) {
	raw, found, err := s.kv.Get(ctx, StepDataKey(s.namespace, step))
	if err != nil {
		return nil, fmt.Errorf("failed to read data for step %s: %w", step, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", domain.ErrStepDataNotFound, step)
	}
	return json.RawMessage(raw), nil
}

func (s *onboardingStore) SaveStepData(ctx context.Context, step domain.StepID, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("data for step %s is not valid JSON", step)
	}
	if err := s.kv.Set(ctx, StepDataKey(s.namespace, step), data); err != nil {
		return fmt.Errorf("failed to write data for step %s: %w", step, err)
	}
	return nil
}

func (s *onboardingStore) DeleteStepData(ctx context.Context, step domain.StepID) error {
	return s.kv.Delete(ctx, StepDataKey(s.namespace, step))
}

func (s *onboardingStore) Reset(ctx context.Context, steps []domain.StepID) error {
	keys := make([]string, 0, len(steps)+1)
	keys = append(keys, StateKey(s.namespace))
	for _, step := range steps {
		keys = append(keys, StepDataKey(s.namespace, step))
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to reset onboarding: %w", err)
	}
	return nil
}
