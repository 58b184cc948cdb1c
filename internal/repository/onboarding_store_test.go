package repository_test

import (
	"context"
	"encoding/json"
	"testing"

	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/internal/repository"
	"brokerage-onboarding-backend/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnboardingStoreKeys(t *testing.T) {
	assert.Equal(t, "kyc:c1:kyc_onboarding_state", repository.StateKey("kyc:c1"))
	assert.Equal(t, "kyc:c1:kyc_step_data:nominee-poa", repository.StepDataKey("kyc:c1", domain.StepNomineePOA))
}

func TestOnboardingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("First visit has no state", func(t *testing.T) {
		store := repository.NewOnboardingStoreFactory(memstore.NewKeyValueStore(), "").ForClient("c1")

		state, err := store.LoadState(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("Writes the state blob under the client namespace", func(t *testing.T) {
		kv := memstore.NewKeyValueStore()
		store := repository.NewOnboardingStoreFactory(kv, "").ForClient("c1")

		require.NoError(t, store.SaveState(ctx, &domain.OnboardingState{
			CurrentStep: domain.StepBank,
			Steps:       map[domain.StepID]domain.StepStatus{domain.StepSignin: domain.StatusCompleted},
		}))

		raw, found, err := kv.Get(ctx, "kyc:c1:kyc_onboarding_state")
		require.NoError(t, err)
		require.True(t, found)
		assert.JSONEq(t, `{"currentStep":"bank","steps":{"signin":"completed"}}`, string(raw))

		state, err := store.LoadState(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StepBank, state.CurrentStep)
	})

	t.Run("A corrupt blob reads as a first visit", func(t *testing.T) {
		kv := memstore.NewKeyValueStore()
		require.NoError(t, kv.Set(ctx, "kyc:c1:kyc_onboarding_state", []byte(`{"currentStep":`)))

		state, err := repository.NewOnboardingStoreFactory(kv, "").ForClient("c1").LoadState(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("Clients never see each other's data", func(t *testing.T) {
		factory := repository.NewOnboardingStoreFactory(memstore.NewKeyValueStore(), "kyc")
		require.NoError(t, factory.ForClient("c1").SaveStepData(ctx, domain.StepBank, json.RawMessage(`{}`)))

		has, err := factory.ForClient("c2").HasStepData(ctx, domain.StepBank)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("Step data round trips and reports missing payloads", func(t *testing.T) {
		store := repository.NewOnboardingStoreFactory(memstore.NewKeyValueStore(), "").ForClient("c1")

		_, err := store.LoadStepData(ctx, domain.StepBank)
		assert.ErrorIs(t, err, domain.ErrStepDataNotFound)

		assert.Error(t, store.SaveStepData(ctx, domain.StepBank, json.RawMessage(`not json`)))

		require.NoError(t, store.SaveStepData(ctx, domain.StepBank, json.RawMessage(`{"ifsc":"HDFC0001234"}`)))
		data, err := store.LoadStepData(ctx, domain.StepBank)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ifsc":"HDFC0001234"}`, string(data))

		require.NoError(t, store.DeleteStepData(ctx, domain.StepBank))
		has, err := store.HasStepData(ctx, domain.StepBank)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("Reset removes the state and the listed payloads", func(t *testing.T) {
		store := repository.NewOnboardingStoreFactory(memstore.NewKeyValueStore(), "").ForClient("c1")
		require.NoError(t, store.SaveState(ctx, domain.NewOnboardingState(domain.DefaultStepSequence())))
		require.NoError(t, store.SaveStepData(ctx, domain.StepSignin, json.RawMessage(`{}`)))

		require.NoError(t, store.Reset(ctx, domain.DefaultKYCSteps()))

		state, err := store.LoadState(ctx)
		require.NoError(t, err)
		assert.Nil(t, state)
		has, err := store.HasStepData(ctx, domain.StepSignin)
		require.NoError(t, err)
		assert.False(t, has)
	})
}
