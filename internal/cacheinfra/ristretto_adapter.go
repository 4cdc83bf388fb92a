package cacheinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// ristrettoStore keeps entries in a ristretto cache. ristretto has no
// read-through API, so concurrent misses are collapsed with singleflight.
type ristrettoStore struct {
	cache *ristretto.Cache[string, any]
	group singleflight.Group
	ttl   time.Duration
}

// NewRistrettoService creates a tagged cache service backed by ristretto.
// Every entry costs 1, so Capacity bounds the number of entries.
func NewRistrettoService(cfg Config) (*TaggedService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters:        int64(cfg.Capacity) * 10,
		MaxCost:            int64(cfg.Capacity),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto cache: %w", err)
	}

	return newTaggedService(&ristrettoStore{cache: c, ttl: cfg.TTL}, cfg), nil
}

func (s *ristrettoStore) getOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetWithTTL(key, v, 1, s.ttl)
		s.cache.Wait()
		return v, nil
	})
	return v, err
}

func (s *ristrettoStore) delete(key string) {
	s.cache.Del(key)
}

func (s *ristrettoStore) close() {
	s.cache.Close()
}
