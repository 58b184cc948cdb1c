package memstore

import (
	"context"

	"brokerage-onboarding-backend/internal/domain"

	gocache "github.com/patrickmn/go-cache"
)

// kvStore keeps onboarding keys in process memory. Values never expire and
// no janitor goroutine is started.
type kvStore struct {
	cache *gocache.Cache
}

func NewKeyValueStore() domain.KeyValueStore {
	return &kvStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (s *kvStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

func (s *kvStore) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.cache.Set(key, stored, gocache.NoExpiration)
	return nil
}

func (s *kvStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

func (s *kvStore) Exists(_ context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}
