package cacheinfra

import (
	"context"

	"github.com/viccon/sturdyc"
)

// sturdycStore wraps a sturdyc client. sturdyc de-duplicates concurrent
// fetches for the same key.
type sturdycStore struct {
	client *sturdyc.Client[sturdycEntry]
}

// sturdycEntry boxes cached values. sturdyc type-asserts every fetch result
// to the client's type parameter, and a nil interface fails that assertion
// and replaces the fetch error with ErrInvalidType.
type sturdycEntry struct {
	value any
}

// NewSturdycService creates a tagged cache service backed by sturdyc.
//
// Capacity, NumShards, TTL and EvictionPercentage are passed to sturdyc.New();
// other options are applied via ToSturdycOptions().
func NewSturdycService(cfg Config) (*TaggedService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[sturdycEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return newTaggedService(&sturdycStore{client: client}, cfg), nil
}

func (s *sturdycStore) getOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	entry, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (sturdycEntry, error) {
		v, err := fetch(ctx)
		return sturdycEntry{value: v}, err
	})
	if err != nil {
		return nil, err
	}
	return entry.value, nil
}

func (s *sturdycStore) delete(key string) {
	s.client.Delete(key)
}

// close is a no-op; sturdyc has no resources to release.
func (s *sturdycStore) close() {}
