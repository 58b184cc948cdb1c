package memstore_test

import (
	"context"
	"testing"

	"brokerage-onboarding-backend/internal/repository/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryKeyValueStore(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewKeyValueStore()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte(`{"a":1}`)
	require.NoError(t, store.Set(ctx, "k", value))
	value[2] = 'b'

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"a":1}`, string(got), "stored bytes are copied")

	got[2] = 'c'
	again, _, _ := store.Get(ctx, "k")
	assert.Equal(t, `{"a":1}`, string(again), "returned bytes are copied")

	require.NoError(t, store.Delete(ctx, "k", "missing"))
	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
