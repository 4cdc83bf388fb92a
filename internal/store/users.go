package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserByID loads a user. A missing user is a NotFound error.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user := new(domain.User)
	err := s.db.NewSelect().Model(user).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// MembershipsOfUser returns the memberships of userID with their organizations.
func (s *Store) MembershipsOfUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := s.db.NewSelect().
		Model(&memberships).
		Relation("Organization").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select memberships of user: %w", err)
	}
	return memberships, nil
}

// Membership returns the membership of userID in organizationID.
func (s *Store) Membership(ctx context.Context, db bun.IDB, organizationID, userID uuid.UUID) (*domain.Membership, error) {
	m := new(domain.Membership)
	err := db.NewSelect().
		Model(m).
		Where("?TableAlias.organization_id = ?", organizationID).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err, "membership not found")
	}
	return m, nil
}

// MembersOf returns the memberships of organizationID with their users.
func (s *Store) MembersOf(ctx context.Context, organizationID uuid.UUID) ([]domain.Membership, error) {
	var members []domain.Membership
	err := s.db.NewSelect().
		Model(&members).
		Relation("User").
		Where("?TableAlias.organization_id = ?", organizationID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	return members, nil
}

// MemberIDs returns the user ids of every member of organizationID.
func (s *Store) MemberIDs(ctx context.Context, db bun.IDB, organizationID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.NewSelect().
		Model((*domain.Membership)(nil)).
		Column("user_id").
		Where("organization_id = ?", organizationID).
		OrderExpr("created_at ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select member ids: %w", err)
	}
	return ids, nil
}

// MemberCount returns the number of members of organizationID.
func (s *Store) MemberCount(ctx context.Context, organizationID uuid.UUID) (int, error) {
	n, err := s.db.NewSelect().
		Model((*domain.Membership)(nil)).
		Where("organization_id = ?", organizationID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

// UpdatePersonalDetails sets the name and phone of userID.
func (s *Store) UpdatePersonalDetails(ctx context.Context, db bun.IDB, userID uuid.UUID, name, phone string) error {
	return updateOne(ctx, db.NewUpdate().
		Model((*domain.User)(nil)).
		Set("name = ?", name).
		Set("phone = ?", phone).
		Set("updated_at = ?", now()).
		Where("id = ?", userID), "user not found")
}

// UpdateLocale sets the locale of userID.
func (s *Store) UpdateLocale(ctx context.Context, db bun.IDB, userID uuid.UUID, locale string) error {
	return updateOne(ctx, db.NewUpdate().
		Model((*domain.User)(nil)).
		Set("locale = ?", locale).
		Set("updated_at = ?", now()).
		Where("id = ?", userID), "user not found")
}

// SetOwner sets the owner flag of userID's membership in organizationID.
func (s *Store) SetOwner(ctx context.Context, db bun.IDB, organizationID, userID uuid.UUID, isOwner bool) error {
	return updateOne(ctx, db.NewUpdate().
		Model((*domain.Membership)(nil)).
		Set("is_owner = ?", isOwner).
		Where("organization_id = ?", organizationID).
		Where("user_id = ?", userID), "membership not found")
}

// InsertUser stores a new user, assigning an id and timestamps when missing.
func (s *Store) InsertUser(ctx context.Context, db bun.IDB, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Locale == "" {
		user.Locale = "en-US"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	if _, err := db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// InsertOrganization stores a new organization.
func (s *Store) InsertOrganization(ctx context.Context, db bun.IDB, org *domain.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now()
	}
	if _, err := db.NewInsert().Model(org).Exec(ctx); err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

// InsertMembership stores a new membership.
func (s *Store) InsertMembership(ctx context.Context, db bun.IDB, m *domain.Membership) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Role == "" {
		m.Role = domain.RoleMember
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if _, err := db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// UsersByIDs loads the users among ids. Unknown ids are skipped.
func (s *Store) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := s.db.NewSelect().Model(&users).Where("?TableAlias.id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

// OrganizationByID loads an organization. A missing organization is a
// NotFound error.
func (s *Store) OrganizationByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	org := new(domain.Organization)
	err := s.db.NewSelect().Model(org).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "organization not found")
	}
	return org, nil
}

// SocialMedia are the profile links of an organization. Empty values clear
// a link.
type SocialMedia struct {
	LinkedInProfile  string
	InstagramProfile string
	YouTubeChannel   string
	XProfile         string
	TikTokProfile    string
	FacebookPage     string
}

// UpdateSocialMedia overwrites the profile links of organizationID.
func (s *Store) UpdateSocialMedia(ctx context.Context, db bun.IDB, organizationID uuid.UUID, sm SocialMedia) error {
	return updateOne(ctx, db.NewUpdate().
		Model((*domain.Organization)(nil)).
		Set("linkedin_profile = ?", sm.LinkedInProfile).
		Set("instagram_profile = ?", sm.InstagramProfile).
		Set("youtube_channel = ?", sm.YouTubeChannel).
		Set("x_profile = ?", sm.XProfile).
		Set("tiktok_profile = ?", sm.TikTokProfile).
		Set("facebook_page = ?", sm.FacebookPage).
		Where("id = ?", organizationID), "organization not found")
}

func updateOne(ctx context.Context, q *bun.UpdateQuery, missing string) error {
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound(missing)
	}
	return nil
}

func notFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(message)
	}
	return fmt.Errorf("select: %w", err)
}

// now is truncated to microseconds and kept in UTC so stored timestamps
// compare and round trip the same on every driver.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
