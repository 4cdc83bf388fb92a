package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// sortColumns maps the sortable fields of a contacts listing to columns.
var sortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"address":   "address",
	"phone":     "phone",
	"stage":     "stage",
	"createdAt": "created_at",
}

// SortableContactFields returns the fields a contacts listing can be sorted by.
func SortableContactFields() []string {
	out := make([]string, 0, len(sortColumns))
	for k := range sortColumns {
		out = append(out, k)
	}
	return out
}

// ContactQuery filters and pages a contacts listing.
type ContactQuery struct {
	OrganizationID uuid.UUID
	PageIndex      int
	PageSize       int
	SortBy         string
	SortDesc       bool
	Tags           []string
	Record         domain.ContactRecord // empty matches every record kind
	Search         string
}

// ListContacts returns one page of contacts, the number of contacts matching
// the filters and the number of contacts in the organization.
func (s *Store) ListContacts(ctx context.Context, q ContactQuery) ([]domain.Contact, int, int, error) {
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	var contacts []domain.Contact
	sel := s.db.NewSelect().
		Model(&contacts).
		Relation("Tags", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.OrderExpr("?TableAlias.text ASC")
		}).
		Where("?TableAlias.organization_id = ?", q.OrganizationID)

	if q.Record != "" {
		sel = sel.Where("?TableAlias.record = ?", q.Record)
	}
	if len(q.Tags) > 0 {
		sel = sel.Where("c.id IN (?)", s.db.NewSelect().
			Model((*domain.ContactTag)(nil)).
			Column("contact_id").
			Where("text IN (?)", bun.In(q.Tags)))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		sel = sel.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
			return g.Where("LOWER(?TableAlias.name) LIKE ?", pattern).
				WhereOr("LOWER(?TableAlias.email) LIKE ?", pattern)
		})
	}

	filtered, err := sel.
		OrderExpr(fmt.Sprintf("?TableAlias.%s %s", column, direction)).
		OrderExpr("?TableAlias.id ASC").
		Limit(q.PageSize).
		Offset(q.PageIndex * q.PageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("select contacts: %w", err)
	}

	total, err := s.db.NewSelect().
		Model((*domain.Contact)(nil)).
		Where("organization_id = ?", q.OrganizationID).
		Count(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("count contacts: %w", err)
	}

	return contacts, filtered, total, nil
}

// ContactByID loads a contact of organizationID with its tags.
func (s *Store) ContactByID(ctx context.Context, db bun.IDB, organizationID, contactID uuid.UUID) (*domain.Contact, error) {
	contact := new(domain.Contact)
	err := db.NewSelect().
		Model(contact).
		Relation("Tags").
		Where("?TableAlias.id = ?", contactID).
		Where("?TableAlias.organization_id = ?", organizationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "contact not found")
	}
	return contact, nil
}

// ContactNotes returns the notes of a contact, oldest first.
func (s *Store) ContactNotes(ctx context.Context, organizationID, contactID uuid.UUID) ([]domain.ContactNote, error) {
	var notes []domain.ContactNote
	err := s.db.NewSelect().
		Model(&notes).
		Relation("User").
		Where("?TableAlias.contact_id = ?", contactID).
		Where("cn.contact_id IN (?)", ownedContacts(s.db, organizationID)).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select contact notes: %w", err)
	}
	return notes, nil
}

// ContactTasks returns the tasks of a contact, oldest first.
func (s *Store) ContactTasks(ctx context.Context, organizationID, contactID uuid.UUID) ([]domain.ContactTask, error) {
	var tasks []domain.ContactTask
	err := s.db.NewSelect().
		Model(&tasks).
		Where("?TableAlias.contact_id = ?", contactID).
		Where("ctk.contact_id IN (?)", ownedContacts(s.db, organizationID)).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select contact tasks: %w", err)
	}
	return tasks, nil
}

// ContactTaskByID loads a task of a contact owned by organizationID.
func (s *Store) ContactTaskByID(ctx context.Context, db bun.IDB, organizationID, taskID uuid.UUID) (*domain.ContactTask, error) {
	task := new(domain.ContactTask)
	err := db.NewSelect().
		Model(task).
		Where("?TableAlias.id = ?", taskID).
		Where("ctk.contact_id IN (?)", ownedContacts(db, organizationID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "task not found")
	}
	return task, nil
}

// ContactsCreatedBetween returns the contacts of organizationID created in
// [from, to], oldest first.
func (s *Store) ContactsCreatedBetween(ctx context.Context, organizationID uuid.UUID, from, to time.Time) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := s.db.NewSelect().
		Model(&contacts).
		Column("id", "record", "created_at").
		Where("organization_id = ?", organizationID).
		Where("created_at >= ?", from.UTC()).
		Where("created_at <= ?", to.UTC()).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select contacts by creation date: %w", err)
	}
	return contacts, nil
}

// InsertContact stores a contact and its tags.
func (s *Store) InsertContact(ctx context.Context, db bun.IDB, contact *domain.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	if contact.Record == "" {
		contact.Record = domain.ContactRecordPerson
	}
	if contact.Stage == "" {
		contact.Stage = domain.ContactStageLead
	}
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now()
	}
	if contact.UpdatedAt.IsZero() {
		contact.UpdatedAt = contact.CreatedAt
	}
	if _, err := db.NewInsert().Model(contact).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	for _, tag := range contact.Tags {
		tag.ContactID = contact.ID
		if tag.ID == uuid.Nil {
			tag.ID = uuid.New()
		}
	}
	if len(contact.Tags) > 0 {
		if _, err := db.NewInsert().Model(&contact.Tags).Exec(ctx); err != nil {
			return fmt.Errorf("insert contact tags: %w", err)
		}
	}
	return nil
}

// ContactProperties are the editable fields of a contact.
type ContactProperties struct {
	Record  domain.ContactRecord
	Name    string
	Email   string
	Phone   string
	Address string
	Stage   domain.ContactStage
}

// UpdateContact overwrites the properties of a contact owned by organizationID.
func (s *Store) UpdateContact(ctx context.Context, db bun.IDB, organizationID, contactID uuid.UUID, p ContactProperties) error {
	q := db.NewUpdate().
		Model((*domain.Contact)(nil)).
		Set("name = ?", p.Name).
		Set("email = ?", p.Email).
		Set("phone = ?", p.Phone).
		Set("address = ?", p.Address).
		Set("updated_at = ?", now()).
		Where("id = ?", contactID).
		Where("organization_id = ?", organizationID)
	if p.Record != "" {
		q = q.Set("record = ?", p.Record)
	}
	if p.Stage != "" {
		q = q.Set("stage = ?", p.Stage)
	}
	return updateOne(ctx, q, "contact not found")
}

// DeleteContacts removes contacts owned by organizationID together with every
// record hanging off them. It returns the ids that existed.
func (s *Store) DeleteContacts(ctx context.Context, db bun.IDB, organizationID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var existing []uuid.UUID
	err := db.NewSelect().
		Model((*domain.Contact)(nil)).
		Column("id").
		Where("organization_id = ?", organizationID).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx, &existing)
	if err != nil {
		return nil, fmt.Errorf("select contacts to delete: %w", err)
	}
	if len(existing) == 0 {
		return nil, nil
	}

	dependents := []any{
		(*domain.ContactTag)(nil),
		(*domain.ContactNote)(nil),
		(*domain.ContactTask)(nil),
		(*domain.Favorite)(nil),
		(*domain.ContactActivity)(nil),
		(*domain.ContactComment)(nil),
		(*domain.ContactPageVisit)(nil),
	}
	for _, model := range dependents {
		if _, err := db.NewDelete().Model(model).Where("contact_id IN (?)", bun.In(existing)).Exec(ctx); err != nil {
			return nil, fmt.Errorf("delete contact dependents: %w", err)
		}
	}
	if _, err := db.NewDelete().Model((*domain.Contact)(nil)).Where("id IN (?)", bun.In(existing)).Exec(ctx); err != nil {
		return nil, fmt.Errorf("delete contacts: %w", err)
	}
	return existing, nil
}

// InsertContactNote stores a note.
func (s *Store) InsertContactNote(ctx context.Context, db bun.IDB, note *domain.ContactNote) error {
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now()
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	if _, err := db.NewInsert().Model(note).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact note: %w", err)
	}
	return nil
}

// InsertContactTask stores a task.
func (s *Store) InsertContactTask(ctx context.Context, db bun.IDB, task *domain.ContactTask) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusOpen
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now()
	}
	if _, err := db.NewInsert().Model(task).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact task: %w", err)
	}
	return nil
}

// UpdateContactTaskStatus sets the status of a task.
func (s *Store) UpdateContactTaskStatus(ctx context.Context, db bun.IDB, taskID uuid.UUID, status domain.TaskStatus) error {
	return updateOne(ctx, db.NewUpdate().
		Model((*domain.ContactTask)(nil)).
		Set("status = ?", status).
		Where("id = ?", taskID), "task not found")
}

// Favorites returns the favorites of userID among the contacts of organizationID.
func (s *Store) Favorites(ctx context.Context, organizationID, userID uuid.UUID) ([]domain.Favorite, error) {
	var favorites []domain.Favorite
	err := s.db.NewSelect().
		Model(&favorites).
		Relation("Contact").
		Where("?TableAlias.user_id = ?", userID).
		Where("f.contact_id IN (?)", ownedContacts(s.db, organizationID)).
		OrderExpr("?TableAlias.sort_order ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select favorites: %w", err)
	}
	return favorites, nil
}

// IsFavorite reports whether userID marked contactID as a favorite.
func (s *Store) IsFavorite(ctx context.Context, userID, contactID uuid.UUID) (bool, error) {
	ok, err := s.db.NewSelect().
		Model((*domain.Favorite)(nil)).
		Where("user_id = ?", userID).
		Where("contact_id = ?", contactID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("select favorite: %w", err)
	}
	return ok, nil
}

// AddFavorite appends contactID to the favorites of userID. Adding an
// existing favorite is a no-op.
func (s *Store) AddFavorite(ctx context.Context, db bun.IDB, userID, contactID uuid.UUID) error {
	exists, err := db.NewSelect().
		Model((*domain.Favorite)(nil)).
		Where("user_id = ?", userID).
		Where("contact_id = ?", contactID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("select favorite: %w", err)
	}
	if exists {
		return nil
	}

	count, err := db.NewSelect().
		Model((*domain.Favorite)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("count favorites: %w", err)
	}

	fav := &domain.Favorite{ID: uuid.New(), UserID: userID, ContactID: contactID, Order: count}
	if _, err := db.NewInsert().Model(fav).Exec(ctx); err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// RemoveFavorite removes contactID from the favorites of userID.
func (s *Store) RemoveFavorite(ctx context.Context, db bun.IDB, userID, contactID uuid.UUID) error {
	_, err := db.NewDelete().
		Model((*domain.Favorite)(nil)).
		Where("user_id = ?", userID).
		Where("contact_id = ?", contactID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// ownedContacts selects the contact ids of organizationID. A Where taking it
// as an argument must name the outer alias literally: ?TableAlias would
// resolve to the subquery's.
func ownedContacts(db bun.IDB, organizationID uuid.UUID) *bun.SelectQuery {
	return db.NewSelect().
		Model((*domain.Contact)(nil)).
		Column("id").
		Where("organization_id = ?", organizationID)
}
