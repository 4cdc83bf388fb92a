// Package data holds the cached reads of the dashboard.
//
// Every read resolves the session, validates its input, then reads through
// the cache. Each cached value is registered under the tags of every piece of
// data it is derived from; the actions package invalidates the same tags once
// a write commits. Session and validation failures return before the cache is
// touched, and fetch errors (NotFound included) are never cached.
package data

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/schemas"
	"github.com/goliatone/go-tagcache/internal/store"
)

// Reader serves cached DTOs.
type Reader struct {
	store    *store.Store
	cache    cache.CacheService
	keys     cache.KeySerializer
	webhooks repository.Repository[*domain.Webhook]
}

// New returns a Reader. webhooks is expected to be a cached repository;
// reads through it are scoped with the organization's Webhooks tag.
func New(st *store.Store, svc cache.CacheService, keys cache.KeySerializer, webhooks repository.Repository[*domain.Webhook]) *Reader {
	return &Reader{
		store:    st,
		cache:    svc,
		keys:     keys,
		webhooks: webhooks,
	}
}

func fetch[T any](ctx context.Context, r *Reader, key string, tags []cachetag.Tag, fn func(ctx context.Context) (T, error)) (T, error) {
	return cache.GetOrFetch(ctx, r.cache, key, cachetag.Strings(tags...), func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil {
			var zero T
			return zero, apperrors.Internal(err, "failed to load data")
		}
		return v, nil
	})
}

// checkContactID validates a contact id and returns its canonical form, so
// tags built from caller input match the tags mutations build from stored ids.
func checkContactID(id string) (string, error) {
	if err := schemas.Check(schemas.ContactID{ID: id}, "invalid contact id"); err != nil {
		return "", err
	}
	return schemas.ParseID(id).String(), nil
}
