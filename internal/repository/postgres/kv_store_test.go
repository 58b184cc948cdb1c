package postgres_test

import (
	"context"
	"os"
	"testing"

	"brokerage-onboarding-backend/internal/repository/postgres"
	"brokerage-onboarding-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when TEST_DATABASE_URL is set
func TestPostgresKeyValueStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := database.NewPostgresConnection(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	table := "onboarding_kv_test_" + uuid.NewString()[:8]
	require.NoError(t, postgres.EnsureSchema(ctx, pool, table))
	defer pool.Exec(ctx, "DROP TABLE IF EXISTS "+`"`+table+`"`)

	store := postgres.NewKeyValueStore(pool, table)

	_, found, err := store.Get(ctx, "kyc:c1:kyc_onboarding_state")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "kyc:c1:kyc_onboarding_state", []byte(`{"currentStep":"signin"}`)))
	require.NoError(t, store.Set(ctx, "kyc:c1:kyc_onboarding_state", []byte(`{"currentStep":"bank"}`)))

	got, found, err := store.Get(ctx, "kyc:c1:kyc_onboarding_state")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"currentStep":"bank"}`, string(got))

	require.NoError(t, store.Set(ctx, "kyc:c1:kyc_step_data:bank", []byte(`{}`)))
	require.NoError(t, store.Delete(ctx, "kyc:c1:kyc_onboarding_state", "kyc:c1:kyc_step_data:bank"))

	ok, err := store.Exists(ctx, "kyc:c1:kyc_step_data:bank")
	require.NoError(t, err)
	assert.False(t, ok)
}
