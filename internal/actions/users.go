package actions

import (
	"context"

	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/schemas"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/uptrace/bun"
)

// UpdatePersonalDetails sets the caller's name and phone. Member listings of
// every organization the caller belongs to show the name, so they are
// invalidated as well.
func (a *Actions) UpdatePersonalDetails(ctx context.Context, in schemas.PersonalDetails) error {
	session, err := auth.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid personal details"); err != nil {
		return err
	}

	return a.mutate(ctx, "update personal details", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if err := a.store.UpdatePersonalDetails(ctx, tx, session.UserID, in.Name, in.Phone); err != nil {
			return err
		}
		userID := session.UserID.String()
		pending.Add(
			cachetag.User(cachetag.Profile, userID),
			cachetag.User(cachetag.PersonalDetails, userID),
		)
		for _, orgID := range session.OrganizationIDs() {
			pending.Add(cachetag.Organization(cachetag.Members, orgID.String()))
		}
		return nil
	})
}

// UpdatePreferences sets the caller's locale.
func (a *Actions) UpdatePreferences(ctx context.Context, in schemas.Preferences) error {
	session, err := auth.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid preferences"); err != nil {
		return err
	}

	return a.mutate(ctx, "update preferences", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if err := a.store.UpdateLocale(ctx, tx, session.UserID, in.Locale); err != nil {
			return err
		}
		userID := session.UserID.String()
		pending.Add(
			cachetag.User(cachetag.Preferences, userID),
			cachetag.User(cachetag.Profile, userID),
		)
		return nil
	})
}

// TransferOwnership makes the target member the owner of the active
// organization. Only the owner can transfer, never to themselves, and only to
// an admin.
func (a *Actions) TransferOwnership(ctx context.Context, in schemas.TransferOwnership) error {
	session, membership, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid ownership transfer"); err != nil {
		return err
	}

	target := schemas.ParseID(in.TargetUserID)
	if target == session.UserID {
		return apperrors.Forbidden("You can't transfer ownership on yourself")
	}
	if err := auth.RequireOwner(membership); err != nil {
		return err
	}

	orgID := session.OrganizationID
	return a.mutate(ctx, "transfer ownership", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		targetMembership, err := a.store.Membership(ctx, tx, orgID, target)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.Forbidden("The target user is not a member of this organization")
			}
			return err
		}
		if err := auth.RequireAdmin(auth.Membership{Role: targetMembership.Role}); err != nil {
			return apperrors.Forbidden("Ownership can only be transferred to an admin")
		}

		if err := a.store.SetOwner(ctx, tx, orgID, session.UserID, false); err != nil {
			return err
		}
		if err := a.store.SetOwner(ctx, tx, orgID, target, true); err != nil {
			return err
		}

		userID, targetID := session.UserID.String(), target.String()
		pending.Add(
			cachetag.User(cachetag.Profile, userID),
			cachetag.User(cachetag.Profile, targetID),
			cachetag.User(cachetag.Organizations, userID),
			cachetag.User(cachetag.Organizations, targetID),
			cachetag.Organization(cachetag.Members, orgID.String()),
			cachetag.User(cachetag.PersonalDetails, targetID),
		)
		return nil
	})
}

// UpdateSocialMedia overwrites the profile links of the active organization.
// Admins only.
func (a *Actions) UpdateSocialMedia(ctx context.Context, in schemas.SocialMedia) error {
	session, membership, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := auth.RequireAdmin(membership); err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid social media"); err != nil {
		return err
	}

	return a.mutate(ctx, "update social media", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		err := a.store.UpdateSocialMedia(ctx, tx, session.OrganizationID, store.SocialMedia{
			LinkedInProfile:  in.LinkedInProfile,
			InstagramProfile: in.InstagramProfile,
			YouTubeChannel:   in.YouTubeChannel,
			XProfile:         in.XProfile,
			TikTokProfile:    in.TikTokProfile,
			FacebookPage:     in.FacebookPage,
		})
		if err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.SocialMedia, session.OrganizationID.String()))
		return nil
	})
}
