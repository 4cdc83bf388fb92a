package store

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewWebhookRepository returns the generic repository for webhooks. Reads
// through it are meant to be wrapped by repositorycache.
func NewWebhookRepository(db *bun.DB) repository.Repository[*domain.Webhook] {
	handlers := repository.ModelHandlers[*domain.Webhook]{
		NewRecord: func() *domain.Webhook {
			return &domain.Webhook{}
		},
		GetID: func(record *domain.Webhook) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *domain.Webhook, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "url"
		},
	}
	return repository.NewRepository[*domain.Webhook](db, handlers)
}

// WebhookCacheOptions configures the cached webhook repository: entries live
// in the "webhooks" namespace and every record is tagged with its
// organization's Webhooks tag. The invalidator is added by the caller.
func WebhookCacheOptions() []repositorycache.Option[*domain.Webhook] {
	return []repositorycache.Option[*domain.Webhook]{
		repositorycache.WithNamespace[*domain.Webhook]("webhooks"),
		repositorycache.WithRecordTags(func(w *domain.Webhook) []string {
			return []string{cachetag.Organization(cachetag.Webhooks, w.OrganizationID.String()).String()}
		}),
	}
}

// WebhooksOfOrganization selects the webhooks owned by organizationID.
func WebhooksOfOrganization(organizationID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.organization_id = ?", organizationID).
			OrderExpr("?TableAlias.created_at ASC")
	}
}

// WebhookOfOrganization narrows a webhook lookup to organizationID.
func WebhookOfOrganization(organizationID uuid.UUID) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.organization_id = ?", organizationID)
	}
}
