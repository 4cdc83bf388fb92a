package repositorycache

import (
	"context"

	"github.com/goliatone/go-tagcache/cachetag"
)

type cacheTagsContextKey struct{}

type tagCollectorContextKey struct{}

type keyParamsContextKey struct{}

// TagCollector receives the tags of writes made inside a transaction so they
// can be invalidated after the transaction commits.
type TagCollector interface {
	Collect(tags ...string)
}

// WithCacheTags attaches additional cache tags to the context for read registration.
func WithCacheTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	existing := cacheTagsFromContext(ctx)
	combined := append(existing, tags...)
	combined = dedupeStrings(combined)
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

// WithScope is WithCacheTags for structured tags.
func WithScope(ctx context.Context, tags ...cachetag.Tag) context.Context {
	return WithCacheTags(ctx, cachetag.Strings(tags...)...)
}

// WithKeyParams adds params to the cache key of reads made with ctx. They are
// not registered as tags. Criteria closures are keyed by their code address,
// so the values a closure captures must be passed here or in the scope.
func WithKeyParams(ctx context.Context, params ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(params) == 0 {
		return ctx
	}
	combined := append(keyParamsFromContext(ctx), params...)
	return context.WithValue(ctx, keyParamsContextKey{}, combined)
}

// WithTagCollector routes invalidations of transactional writes to c.
func WithTagCollector(ctx context.Context, c TagCollector) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, tagCollectorContextKey{}, c)
}

func cacheTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

func keyParamsFromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	if params, ok := ctx.Value(keyParamsContextKey{}).([]any); ok {
		return append([]any(nil), params...)
	}
	return nil
}

func tagCollectorFromContext(ctx context.Context) TagCollector {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(tagCollectorContextKey{}).(TagCollector)
	return c
}

// dedupeStrings drops empty strings and duplicates, keeping first occurrences in order.
func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
