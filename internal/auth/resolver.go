package auth

import (
	"context"

	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
)

// UserStore is the persistence the Resolver reads from.
type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	MembershipsOfUser(ctx context.Context, userID uuid.UUID) ([]domain.Membership, error)
}

// Resolver builds sessions from stored memberships.
type Resolver struct {
	store UserStore
}

func NewResolver(store UserStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the session of userID acting in organizationID. When
// organizationID is uuid.Nil the first organization the user joined becomes
// the active one. Unknown users are Unauthorized. A requested organization
// the user does not belong to is kept as active so that organization reads
// report Forbidden.
func (r *Resolver) Resolve(ctx context.Context, userID, organizationID uuid.UUID) (*Session, error) {
	if _, err := r.store.UserByID(ctx, userID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("Unauthorized")
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}

	memberships, err := r.store.MembershipsOfUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load memberships")
	}

	s := &Session{
		UserID:         userID,
		OrganizationID: organizationID,
		Memberships:    make([]Membership, 0, len(memberships)),
	}
	for _, m := range memberships {
		s.Memberships = append(s.Memberships, Membership{
			OrganizationID: m.OrganizationID,
			Role:           m.Role,
			IsOwner:        m.IsOwner,
		})
	}
	if s.OrganizationID == uuid.Nil && len(s.Memberships) > 0 {
		s.OrganizationID = s.Memberships[0].OrganizationID
	}
	return s, nil
}
