package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ContactActivities returns the activities of a contact, newest first.
func (s *Store) ContactActivities(ctx context.Context, organizationID, contactID uuid.UUID) ([]domain.ContactActivity, error) {
	var activities []domain.ContactActivity
	err := s.db.NewSelect().
		Model(&activities).
		Where("?TableAlias.contact_id = ?", contactID).
		Where("ca.contact_id IN (?)", ownedContacts(s.db, organizationID)).
		OrderExpr("?TableAlias.occurred_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select contact activities: %w", err)
	}
	return activities, nil
}

// ContactComments returns the comments of a contact with their authors,
// newest first.
func (s *Store) ContactComments(ctx context.Context, organizationID, contactID uuid.UUID) ([]domain.ContactComment, error) {
	var comments []domain.ContactComment
	err := s.db.NewSelect().
		Model(&comments).
		Relation("User").
		Where("?TableAlias.contact_id = ?", contactID).
		Where("ccm.contact_id IN (?)", ownedContacts(s.db, organizationID)).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select contact comments: %w", err)
	}
	return comments, nil
}

// InsertContactActivity stores an activity.
func (s *Store) InsertContactActivity(ctx context.Context, db bun.IDB, activity *domain.ContactActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.ActorType == "" {
		activity.ActorType = domain.ActorTypeSystem
	}
	if activity.OccurredAt.IsZero() {
		activity.OccurredAt = now()
	}
	if _, err := db.NewInsert().Model(activity).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact activity: %w", err)
	}
	return nil
}

// InsertContactComment stores a comment.
func (s *Store) InsertContactComment(ctx context.Context, db bun.IDB, comment *domain.ContactComment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now()
	}
	if comment.UpdatedAt.IsZero() {
		comment.UpdatedAt = comment.CreatedAt
	}
	if _, err := db.NewInsert().Model(comment).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact comment: %w", err)
	}
	return nil
}

// InsertContactPageVisit records that a user opened a contact.
func (s *Store) InsertContactPageVisit(ctx context.Context, db bun.IDB, visit *domain.ContactPageVisit) error {
	if visit.ID == uuid.Nil {
		visit.ID = uuid.New()
	}
	if visit.VisitedAt.IsZero() {
		visit.VisitedAt = now()
	}
	if _, err := db.NewInsert().Model(visit).Exec(ctx); err != nil {
		return fmt.Errorf("insert contact page visit: %w", err)
	}
	return nil
}

// ContactVisits is a contact with the number of visits in a range.
type ContactVisits struct {
	ID         uuid.UUID            `bun:"id"`
	Name       string               `bun:"name"`
	Image      string               `bun:"image"`
	Record     domain.ContactRecord `bun:"record"`
	PageVisits int                  `bun:"page_visits"`
}

// VisitedContacts ranks the contacts of organizationID by their visits in
// [from, to]. Contacts without visits count as zero. Ties are ordered by name.
func (s *Store) VisitedContacts(ctx context.Context, organizationID uuid.UUID, from, to time.Time, mostVisited bool, limit int) ([]ContactVisits, error) {
	direction := "ASC"
	if mostVisited {
		direction = "DESC"
	}

	visits := s.db.NewSelect().
		Model((*domain.ContactPageVisit)(nil)).
		ColumnExpr("COUNT(*)").
		Where("cpv.contact_id = c.id").
		Where("cpv.visited_at >= ?", from.UTC()).
		Where("cpv.visited_at <= ?", to.UTC())

	var rows []ContactVisits
	err := s.db.NewSelect().
		Model((*domain.Contact)(nil)).
		Column("c.id", "c.name", "c.image", "c.record").
		ColumnExpr("(?) AS page_visits", visits).
		Where("c.organization_id = ?", organizationID).
		OrderExpr("page_visits " + direction).
		OrderExpr("c.name ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("select visited contacts: %w", err)
	}
	return rows, nil
}
