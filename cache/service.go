package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidResultType is returned by GetOrFetch when the cached value does not
// have the requested type. It indicates two callers sharing a key with
// different result types.
var ErrInvalidResultType = errors.New("cache: invalid result type")

// KeySerializer builds a cache key from a method name + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// TagInvalidator drops every entry registered under any of the given tags.
// Invalidating an unknown or already invalidated tag is a no-op.
type TagInvalidator interface {
	InvalidateTags(ctx context.Context, tags ...string) error
}

// CacheService exposes tagged read-through caching.
//
// GetOrFetch returns the fresh entry stored under key, or runs fetchFn, stores
// the result and registers key under every tag. fetchFn must have the shape
// func(context.Context) (T, error); errors it returns are never cached.
type CacheService interface {
	TagInvalidator
	GetOrFetch(ctx context.Context, key string, tags []string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, tags []string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	result, err := service.GetOrFetch(ctx, key, tags, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrInvalidResultType, key, result)
	}
	return typed, nil
}
