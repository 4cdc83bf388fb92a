package store

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/pkg/testsupport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *Store
	org   *domain.Organization
	owner *domain.User
	admin *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := testsupport.NewTestDB(t)
	require.NoError(t, Migrate(ctx, db))

	s := New(db)
	f := &fixture{
		store: s,
		org:   &domain.Organization{Name: "Acme", Slug: "acme"},
		owner: &domain.User{Name: "Olivia Owner", Email: "olivia@acme.test"},
		admin: &domain.User{Name: "Adam Admin", Email: "adam@acme.test"},
	}
	require.NoError(t, s.InsertOrganization(ctx, db, f.org))
	require.NoError(t, s.InsertUser(ctx, db, f.owner))
	require.NoError(t, s.InsertUser(ctx, db, f.admin))
	require.NoError(t, s.InsertMembership(ctx, db, &domain.Membership{
		OrganizationID: f.org.ID, UserID: f.owner.ID, Role: domain.RoleAdmin, IsOwner: true,
	}))
	require.NoError(t, s.InsertMembership(ctx, db, &domain.Membership{
		OrganizationID: f.org.ID, UserID: f.admin.ID, Role: domain.RoleAdmin,
	}))
	return f
}

func (f *fixture) addContact(t *testing.T, name, email string, record domain.ContactRecord, tags ...string) *domain.Contact {
	t.Helper()
	c := &domain.Contact{OrganizationID: f.org.ID, Name: name, Email: email, Record: record}
	for _, text := range tags {
		c.Tags = append(c.Tags, &domain.ContactTag{Text: text})
	}
	require.NoError(t, f.store.InsertContact(context.Background(), f.store.DB(), c))
	return c
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := testsupport.NewTestDB(t)

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	version, err := MigrationVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestUserByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.store.UserByID(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Olivia Owner", user.Name)
	assert.Equal(t, "en-US", user.Locale)

	_, err = f.store.UserByID(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMemberships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	memberships, err := f.store.MembershipsOfUser(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	require.NotNil(t, memberships[0].Organization)
	assert.Equal(t, "acme", memberships[0].Organization.Slug)

	members, err := f.store.MembersOf(ctx, f.org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.NotNil(t, members[0].User)

	ids, err := f.store.MemberIDs(ctx, f.store.DB(), f.org.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.owner.ID, f.admin.ID}, ids)

	require.NoError(t, f.store.SetOwner(ctx, f.store.DB(), f.org.ID, f.admin.ID, true))
	m, err := f.store.Membership(ctx, f.store.DB(), f.org.ID, f.admin.ID)
	require.NoError(t, err)
	assert.True(t, m.IsOwner)

	err = f.store.SetOwner(ctx, f.store.DB(), f.org.ID, uuid.New(), true)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListContacts_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addContact(t, "Alice Anders", "alice@example.com", domain.ContactRecordPerson, "vip")
	f.addContact(t, "Bob Brown", "bob@example.com", domain.ContactRecordPerson)
	f.addContact(t, "Contoso Ltd", "hello@contoso.test", domain.ContactRecordCompany, "vip", "partner")

	tests := []struct {
		name         string
		query        ContactQuery
		wantNames    []string
		wantFiltered int
	}{
		{
			name:         "all sorted by name",
			query:        ContactQuery{PageSize: 10, SortBy: "name"},
			wantNames:    []string{"Alice Anders", "Bob Brown", "Contoso Ltd"},
			wantFiltered: 3,
		},
		{
			name:         "descending",
			query:        ContactQuery{PageSize: 10, SortBy: "name", SortDesc: true},
			wantNames:    []string{"Contoso Ltd", "Bob Brown", "Alice Anders"},
			wantFiltered: 3,
		},
		{
			name:         "companies only",
			query:        ContactQuery{PageSize: 10, Record: domain.ContactRecordCompany},
			wantNames:    []string{"Contoso Ltd"},
			wantFiltered: 1,
		},
		{
			name:         "tag filter",
			query:        ContactQuery{PageSize: 10, Tags: []string{"vip"}},
			wantNames:    []string{"Alice Anders", "Contoso Ltd"},
			wantFiltered: 2,
		},
		{
			name:         "case insensitive search on email",
			query:        ContactQuery{PageSize: 10, Search: "BOB@"},
			wantNames:    []string{"Bob Brown"},
			wantFiltered: 1,
		},
		{
			name:         "second page",
			query:        ContactQuery{PageSize: 2, PageIndex: 1, SortBy: "name"},
			wantNames:    []string{"Contoso Ltd"},
			wantFiltered: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.OrganizationID = f.org.ID
			contacts, filtered, total, err := f.store.ListContacts(ctx, q)
			require.NoError(t, err)

			names := make([]string, 0, len(contacts))
			for _, c := range contacts {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantFiltered, filtered)
			assert.Equal(t, 3, total)
		})
	}
}

func TestContactChildrenAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.DB()

	c := f.addContact(t, "Alice Anders", "alice@example.com", domain.ContactRecordPerson, "vip")
	other := f.addContact(t, "Bob Brown", "bob@example.com", domain.ContactRecordPerson)

	require.NoError(t, f.store.InsertContactNote(ctx, db, &domain.ContactNote{ContactID: c.ID, UserID: f.owner.ID, Text: "called"}))
	task := &domain.ContactTask{ContactID: c.ID, Title: "follow up"}
	require.NoError(t, f.store.InsertContactTask(ctx, db, task))
	require.NoError(t, f.store.AddFavorite(ctx, db, f.owner.ID, c.ID))
	require.NoError(t, f.store.AddFavorite(ctx, db, f.owner.ID, c.ID))
	require.NoError(t, f.store.AddFavorite(ctx, db, f.owner.ID, other.ID))

	notes, err := f.store.ContactNotes(ctx, f.org.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].User)
	assert.Equal(t, "Olivia Owner", notes[0].User.Name)

	require.NoError(t, f.store.UpdateContactTaskStatus(ctx, db, task.ID, domain.TaskStatusCompleted))
	tasks, err := f.store.ContactTasks(ctx, f.org.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusCompleted, tasks[0].Status)

	favorites, err := f.store.Favorites(ctx, f.org.ID, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	assert.Equal(t, 0, favorites[0].Order)
	assert.Equal(t, 1, favorites[1].Order)

	deleted, err := f.store.DeleteContacts(ctx, db, f.org.ID, []uuid.UUID{c.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, deleted)

	_, err = f.store.ContactByID(ctx, db, f.org.ID, c.ID)
	assert.True(t, apperrors.IsNotFound(err))

	isFav, err := f.store.IsFavorite(ctx, f.owner.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, isFav)

	isFav, err = f.store.IsFavorite(ctx, f.owner.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, isFav)
}

func TestContactByID_OtherOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.addContact(t, "Alice Anders", "alice@example.com", domain.ContactRecordPerson)

	_, err := f.store.ContactByID(ctx, f.store.DB(), uuid.New(), c.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestContactChildren_ScopedToOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.DB()

	c := f.addContact(t, "Alice Anders", "alice@example.com", domain.ContactRecordPerson, "vip")
	require.NoError(t, f.store.InsertContactNote(ctx, db, &domain.ContactNote{ContactID: c.ID, UserID: f.owner.ID, Text: "called"}))
	task := &domain.ContactTask{ContactID: c.ID, Title: "follow up"}
	require.NoError(t, f.store.InsertContactTask(ctx, db, task))
	require.NoError(t, f.store.AddFavorite(ctx, db, f.owner.ID, c.ID))

	otherOrg := uuid.New()

	notes, err := f.store.ContactNotes(ctx, otherOrg, c.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	tasks, err := f.store.ContactTasks(ctx, otherOrg, c.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = f.store.ContactTaskByID(ctx, db, otherOrg, task.ID)
	assert.True(t, apperrors.IsNotFound(err), "unexpected error: %v", err)

	found, err := f.store.ContactTaskByID(ctx, db, f.org.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ContactID)

	favorites, err := f.store.Favorites(ctx, otherOrg, f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, favorites)

	favorites, err = f.store.Favorites(ctx, f.org.ID, f.owner.ID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.NotNil(t, favorites[0].Contact)
	assert.Equal(t, "Alice Anders", favorites[0].Contact.Name)
}

func TestListContacts_TagFilterIgnoresOtherOrganizations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addContact(t, "Alice Anders", "alice@example.com", domain.ContactRecordPerson, "vip")
	globex := &domain.Organization{Name: "Globex", Slug: "globex"}
	require.NoError(t, f.store.InsertOrganization(ctx, f.store.DB(), globex))
	require.NoError(t, f.store.InsertContact(ctx, f.store.DB(), &domain.Contact{
		OrganizationID: globex.ID,
		Name:           "Elsewhere",
		Tags:           []*domain.ContactTag{{Text: "vip"}},
	}))

	contacts, filtered, total, err := f.store.ListContacts(ctx, ContactQuery{
		OrganizationID: f.org.ID,
		PageSize:       10,
		Tags:           []string{"vip", "missing"},
	})
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alice Anders", contacts[0].Name)
	assert.Equal(t, 1, filtered)
	assert.Equal(t, 1, total)
}

func TestContactsCreatedBetween(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.store.DB()

	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, record := range []domain.ContactRecord{domain.ContactRecordPerson, domain.ContactRecordCompany, domain.ContactRecordPerson} {
		require.NoError(t, f.store.InsertContact(ctx, db, &domain.Contact{
			OrganizationID: f.org.ID,
			Name:           "c",
			Record:         record,
			CreatedAt:      day.AddDate(0, 0, i),
		}))
	}

	contacts, err := f.store.ContactsCreatedBetween(ctx, f.org.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}

func TestWebhookRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repo := f.store.Webhooks()
	created, err := repo.Create(ctx, &domain.Webhook{
		OrganizationID: f.org.ID,
		URL:            "https://hooks.acme.test/contacts",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	hooks, total, err := repo.List(ctx, WebhooksOfOrganization(f.org.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, hooks, 1)
	assert.Equal(t, "https://hooks.acme.test/contacts", hooks[0].URL)

	hooks, total, err = repo.List(ctx, WebhooksOfOrganization(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, hooks)
}
