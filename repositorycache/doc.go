// Package repositorycache provides tagged cached repository decorators for go-repository-bun.
//
// # Overview
//
// CachedRepository wraps a base repository. Reads go through a tagged
// CacheService; writes go to the base repository and, once they succeed,
// invalidate the tags they affect.
//
// # Basic Usage
//
//	base := repository.NewRepository[*Webhook](db, handlers)
//	cached := repositorycache.New[*Webhook](base, cacheService, keySerializer,
//		repositorycache.WithRecordTags(func(w *Webhook) []string {
//			return cachetag.Strings(cachetag.Organization(cachetag.Webhooks, w.OrganizationID))
//		}),
//	)
//
//	ctx = repositorycache.WithScope(ctx, cachetag.Organization(cachetag.Webhooks, orgID))
//	hooks, total, err := cached.List(ctx, byOrganization(orgID))
//
// # Tags
//
// Every cached read is registered under:
//
//   - the namespace tag, repo:<namespace>
//   - the scope tags carried by the context (WithScope, WithCacheTags)
//   - repo:<namespace>:id:<id> for GetByID
//   - repo:<namespace>:identifier:<identifier> for GetByIdentifier
//
// # Keys
//
// A read is keyed by its method, the scope tags, its id or identifier and its
// criteria. Criteria closures serialize as their code address: closures built
// by the same literal share a key whatever they captured. Scope tags and
// WithKeyParams are part of the key, so the captured values belong there:
//
//	ctx = repositorycache.WithKeyParams(ctx, orgID)
//	hooks, total, err := cached.List(ctx, byOrganization(orgID))
//
// Every successful write invalidates the namespace tag, the context scope
// tags, and the id, identifier and WithRecordTags tags of each written record.
// Failed writes invalidate nothing.
//
// # Transactions
//
// Reads inside a transaction (*Tx methods) bypass the cache. Writes inside a
// transaction hand their tags to the TagCollector installed with
// WithTagCollector, so the caller can invalidate them after commit and drop
// them on rollback. Without a collector the tags are invalidated immediately.
//
// # Errors
//
// Errors from the base repository are returned unchanged and never cached.
// Invalidation failures are passed to the WithErrorHandler callback because
// the write itself has already succeeded.
package repositorycache
