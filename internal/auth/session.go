// Package auth resolves the authenticated caller and the organization it acts in.
package auth

import (
	"context"

	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
)

// Membership is the caller's role in one organization.
type Membership struct {
	OrganizationID uuid.UUID
	Role           domain.Role
	IsOwner        bool
}

// Session is the authenticated caller. OrganizationID is the active
// organization; it is uuid.Nil when the caller belongs to none.
type Session struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Memberships    []Membership
}

// Membership returns the caller's membership in organizationID.
func (s *Session) Membership(organizationID uuid.UUID) (Membership, bool) {
	if s == nil {
		return Membership{}, false
	}
	for _, m := range s.Memberships {
		if m.OrganizationID == organizationID {
			return m, true
		}
	}
	return Membership{}, false
}

// OrganizationIDs lists every organization the caller belongs to.
func (s *Session) OrganizationIDs() []uuid.UUID {
	if s == nil {
		return nil
	}
	out := make([]uuid.UUID, 0, len(s.Memberships))
	for _, m := range s.Memberships {
		out = append(out, m.OrganizationID)
	}
	return out
}

type sessionKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session in ctx, or an Unauthorized error.
func FromContext(ctx context.Context) (*Session, error) {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	if s == nil || s.UserID == uuid.Nil {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	return s, nil
}

// OrganizationContext returns the session and the caller's membership in the
// active organization. A caller without a membership there is Forbidden.
func OrganizationContext(ctx context.Context) (*Session, Membership, error) {
	s, err := FromContext(ctx)
	if err != nil {
		return nil, Membership{}, err
	}
	m, ok := s.Membership(s.OrganizationID)
	if !ok || s.OrganizationID == uuid.Nil {
		return nil, Membership{}, apperrors.Forbidden("You are not a member of this organization")
	}
	return s, m, nil
}

// IsAdmin reports whether m has the admin role.
func (m Membership) IsAdmin() bool {
	return m.Role == domain.RoleAdmin
}

// RequireAdmin returns Forbidden unless m is an admin membership.
func RequireAdmin(m Membership) error {
	if !m.IsAdmin() {
		return apperrors.Forbidden("Only admins can perform this action")
	}
	return nil
}

// RequireOwner returns Forbidden unless m owns the organization.
func RequireOwner(m Membership) error {
	if !m.IsOwner {
		return apperrors.Forbidden("Only the owner can perform this action")
	}
	return nil
}
