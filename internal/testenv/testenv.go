// Package testenv builds a migrated in-memory dashboard for package tests:
// two organizations with members, a cache container and the cached webhook
// repository, wired the way the server wires them.
package testenv

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-tagcache/cache"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/goliatone/go-tagcache/pkg/di"
	"github.com/goliatone/go-tagcache/pkg/testsupport"
	"github.com/goliatone/go-tagcache/repositorycache"
	"github.com/google/uuid"
)

// Env is a seeded dashboard.
//
// Acme has Olivia (admin, owner), Adam (admin) and Mia (member). Globex is
// owned by Gina and Mia is a member of it too.
type Env struct {
	Store     *store.Store
	Container *di.Container
	Cache     *CountingCache
	Webhooks  *repositorycache.CachedRepository[*domain.Webhook]
	Logger    *slog.Logger

	Acme   *domain.Organization
	Globex *domain.Organization

	Olivia *domain.User
	Adam   *domain.User
	Mia    *domain.User
	Gina   *domain.User

	resolver *auth.Resolver
}

// New returns a seeded Env closed with the test.
func New(t testing.TB) *Env {
	t.Helper()
	ctx := context.Background()

	db := testsupport.NewTestDB(t)
	if err := store.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	st := store.New(db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	container, err := di.NewContainerWithDefaults(di.WithLogger(logger))
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	counting := &CountingCache{CacheService: container.CacheService()}
	env := &Env{
		Store:     st,
		Container: container,
		Cache:     counting,
		Logger:    logger,
		Webhooks: repositorycache.New[*domain.Webhook](
			store.NewWebhookRepository(db), counting, container.KeySerializer(),
			WebhookOptions(container.Invalidator())...,
		),
		resolver: auth.NewResolver(st),
	}
	env.seed(t)
	return env
}

// WebhookOptions configures the cached webhook repository the way the
// server does, invalidating through inv.
func WebhookOptions(inv cache.TagInvalidator) []repositorycache.Option[*domain.Webhook] {
	return append(store.WebhookCacheOptions(), repositorycache.WithInvalidator[*domain.Webhook](inv))
}

func (e *Env) seed(t testing.TB) {
	t.Helper()
	ctx := context.Background()
	db := e.Store.DB()

	e.Acme = &domain.Organization{Name: "Acme", Slug: "acme"}
	e.Globex = &domain.Organization{Name: "Globex", Slug: "globex"}
	for _, org := range []*domain.Organization{e.Acme, e.Globex} {
		if err := e.Store.InsertOrganization(ctx, db, org); err != nil {
			t.Fatalf("failed to insert organization: %v", err)
		}
	}

	e.Olivia = &domain.User{Name: "Olivia Owner", Email: "olivia@acme.test"}
	e.Adam = &domain.User{Name: "Adam Admin", Email: "adam@acme.test"}
	e.Mia = &domain.User{Name: "Mia Member", Email: "mia@acme.test"}
	e.Gina = &domain.User{Name: "Gina Globex", Email: "gina@globex.test"}
	for _, u := range []*domain.User{e.Olivia, e.Adam, e.Mia, e.Gina} {
		if err := e.Store.InsertUser(ctx, db, u); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}
	}

	memberships := []*domain.Membership{
		{OrganizationID: e.Acme.ID, UserID: e.Olivia.ID, Role: domain.RoleAdmin, IsOwner: true},
		{OrganizationID: e.Acme.ID, UserID: e.Adam.ID, Role: domain.RoleAdmin},
		{OrganizationID: e.Acme.ID, UserID: e.Mia.ID, Role: domain.RoleMember},
		{OrganizationID: e.Globex.ID, UserID: e.Gina.ID, Role: domain.RoleAdmin, IsOwner: true},
		{OrganizationID: e.Globex.ID, UserID: e.Mia.ID, Role: domain.RoleMember},
	}
	for _, m := range memberships {
		if err := e.Store.InsertMembership(ctx, db, m); err != nil {
			t.Fatalf("failed to insert membership: %v", err)
		}
	}
}

// As returns a context carrying the session of user in org.
func (e *Env) As(t testing.TB, user *domain.User, org *domain.Organization) context.Context {
	t.Helper()
	session, err := e.resolver.Resolve(context.Background(), user.ID, org.ID)
	if err != nil {
		t.Fatalf("failed to resolve session: %v", err)
	}
	return auth.WithSession(context.Background(), session)
}

// AddContact inserts a contact into org directly.
func (e *Env) AddContact(t testing.TB, org *domain.Organization, name string, record domain.ContactRecord, tags ...string) *domain.Contact {
	t.Helper()
	c := &domain.Contact{
		OrganizationID: org.ID,
		Name:           name,
		Email:          uuid.NewString()[:8] + "@contacts.test",
		Record:         record,
		Stage:          domain.ContactStageLead,
	}
	for _, text := range tags {
		c.Tags = append(c.Tags, &domain.ContactTag{Text: text})
	}
	if err := e.Store.InsertContact(context.Background(), e.Store.DB(), c); err != nil {
		t.Fatalf("failed to insert contact: %v", err)
	}
	return c
}

// Exec runs a statement behind the cache's back.
func (e *Env) Exec(t testing.TB, query string, args ...any) {
	t.Helper()
	if _, err := e.Store.DB().ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("failed to exec %q: %v", query, err)
	}
}

// Now is a timestamp truncated to what the database stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CountingCache records every lookup made through it.
type CountingCache struct {
	cache.CacheService

	mu   sync.Mutex
	keys []string
}

func (c *CountingCache) GetOrFetch(ctx context.Context, key string, tags []string, fetchFn any) (any, error) {
	c.mu.Lock()
	c.keys = append(c.keys, key)
	c.mu.Unlock()
	return c.CacheService.GetOrFetch(ctx, key, tags, fetchFn)
}

// Lookups returns the number of GetOrFetch calls.
func (c *CountingCache) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// Keys returns the keys looked up so far.
func (c *CountingCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}
