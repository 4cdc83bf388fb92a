package actions

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/schemas"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/goliatone/go-tagcache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AddWebhook registers a webhook for the active organization. Admins only.
//
// The write goes through the cached repository with the organization's
// Webhooks tag as scope; the repository hands that tag to the pending set of
// the transaction.
func (a *Actions) AddWebhook(ctx context.Context, in schemas.AddWebhook) (string, error) {
	session, membership, err := auth.OrganizationContext(ctx)
	if err != nil {
		return "", err
	}
	if err := auth.RequireAdmin(membership); err != nil {
		return "", err
	}
	if err := schemas.Check(in, "invalid webhook"); err != nil {
		return "", err
	}

	hook := &domain.Webhook{
		ID:             uuid.New(),
		OrganizationID: session.OrganizationID,
		URL:            in.URL,
		Triggers:       domain.JoinTriggers(in.Triggers),
		Secret:         uuid.NewString(),
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	scoped := webhookScope(ctx, session)
	err = a.mutate(scoped, "add webhook", func(ctx context.Context, tx bun.Tx, _ *invalidation.Pending) error {
		_, err := a.webhooks.CreateTx(ctx, tx, hook)
		return err
	})
	if err != nil {
		return "", err
	}
	return hook.ID.String(), nil
}

// DeleteWebhook removes a webhook of the active organization. Admins only.
func (a *Actions) DeleteWebhook(ctx context.Context, in schemas.DeleteWebhook) error {
	session, membership, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := auth.RequireAdmin(membership); err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid webhook id"); err != nil {
		return err
	}

	id := schemas.ParseID(in.ID).String()
	scoped := webhookScope(ctx, session)
	return a.mutate(scoped, "delete webhook", func(ctx context.Context, tx bun.Tx, _ *invalidation.Pending) error {
		hook, err := a.webhooks.GetByIDTx(ctx, tx, id, store.WebhookOfOrganization(session.OrganizationID))
		if err != nil {
			if apperrors.IsNotFound(err) || repository.IsRecordNotFound(err) {
				return apperrors.NotFound("webhook not found")
			}
			return err
		}
		return a.webhooks.DeleteTx(ctx, tx, hook)
	})
}

func webhookScope(ctx context.Context, session *auth.Session) context.Context {
	return repositorycache.WithScope(ctx,
		cachetag.Organization(cachetag.Webhooks, session.OrganizationID.String()))
}
