// Package actions holds the mutations of the dashboard.
//
// A mutation validates its input, authorizes the caller, writes in a single
// transaction and, once the transaction has committed, invalidates every tag
// whose data it changed. Failed writes invalidate nothing.
package actions

import (
	"context"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/goliatone/go-tagcache/repositorycache"
	"github.com/uptrace/bun"
)

// Actions runs mutations.
type Actions struct {
	store       *store.Store
	invalidator cache.TagInvalidator
	webhooks    repository.Repository[*domain.Webhook]
	logger      *slog.Logger
}

// New returns Actions. webhooks is expected to be the cached repository the
// reads use, so its transactional writes hand their tags to the pending set.
func New(st *store.Store, inv cache.TagInvalidator, webhooks repository.Repository[*domain.Webhook], logger *slog.Logger) *Actions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Actions{
		store:       st,
		invalidator: inv,
		webhooks:    webhooks,
		logger:      logger,
	}
}

// txFunc writes through tx and queues the tags the write affects on pending.
type txFunc func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error

// mutate runs fn in a transaction and flushes the queued tags after commit.
//
// A flush failure is logged, not returned: the write has already committed.
// The local cache is invalidated before any broadcast is attempted.
func (a *Actions) mutate(ctx context.Context, name string, fn txFunc) error {
	pending := invalidation.NewPending(a.invalidator)

	txCtx := repositorycache.WithTagCollector(ctx, pending)
	err := a.store.RunInTx(txCtx, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx, pending)
	})
	if err != nil {
		pending.Discard()
		return apperrors.Internal(err, "failed to "+name)
	}

	tags := pending.Tags()
	if err := pending.Flush(ctx); err != nil {
		a.logger.ErrorContext(ctx, "invalidation after commit failed",
			"mutation", name,
			"tags", tags,
			"error", err,
		)
		return nil
	}
	a.logger.DebugContext(ctx, "mutation committed", "mutation", name, "tags", len(tags))
	return nil
}
