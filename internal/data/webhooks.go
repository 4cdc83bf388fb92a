package data

import (
	"context"

	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/goliatone/go-tagcache/repositorycache"
)

// GetWebhooks lists the webhooks of the active organization. Admins only.
//
// The read goes through the cached webhook repository with the
// organization's Webhooks tag as scope, so webhook writes invalidate it. The
// organization id is also a key param: the criteria closure does not key it.
func (r *Reader) GetWebhooks(ctx context.Context) ([]domain.WebhookDto, error) {
	session, membership, err := auth.OrganizationContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(membership); err != nil {
		return nil, err
	}

	orgID := session.OrganizationID.String()
	scoped := repositorycache.WithKeyParams(
		repositorycache.WithScope(ctx, cachetag.Organization(cachetag.Webhooks, orgID)),
		orgID)
	hooks, _, err := r.webhooks.List(scoped, store.WebhooksOfOrganization(session.OrganizationID))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load webhooks")
	}

	out := make([]domain.WebhookDto, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, domain.WebhookDto{
			ID:       h.ID.String(),
			URL:      h.URL,
			Triggers: h.TriggerList(),
			Secret:   h.Secret,
		})
	}
	return out, nil
}
