package data

import (
	"context"

	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
)

// GetProfile returns the caller's profile. The profile is composed from the
// personal details and the preferences of the user, so it is tagged with all
// three. IsOwner and Role come from the session and are never cached.
func (r *Reader) GetProfile(ctx context.Context) (domain.ProfileDto, error) {
	session, membership, err := auth.OrganizationContext(ctx)
	if err != nil {
		return domain.ProfileDto{}, err
	}

	userID := session.UserID.String()
	profile, err := fetch(ctx, r,
		r.keys.SerializeKey("GetProfile", userID),
		[]cachetag.Tag{
			cachetag.User(cachetag.Profile, userID),
			cachetag.User(cachetag.PersonalDetails, userID),
			cachetag.User(cachetag.Preferences, userID),
		},
		func(ctx context.Context) (domain.ProfileDto, error) {
			user, err := r.store.UserByID(ctx, session.UserID)
			if err != nil {
				return domain.ProfileDto{}, err
			}
			return domain.ProfileDto{
				ID:     user.ID.String(),
				Image:  user.Image,
				Name:   user.Name,
				Email:  user.Email,
				Locale: user.Locale,
			}, nil
		})
	if err != nil {
		return domain.ProfileDto{}, err
	}

	profile.IsOwner = membership.IsOwner
	profile.Role = membership.Role
	return profile, nil
}

// GetOrganizations lists the organizations the caller belongs to.
func (r *Reader) GetOrganizations(ctx context.Context) ([]domain.OrganizationDto, error) {
	session, err := auth.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	userID := session.UserID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetOrganizations", userID),
		[]cachetag.Tag{cachetag.User(cachetag.Organizations, userID)},
		func(ctx context.Context) ([]domain.OrganizationDto, error) {
			memberships, err := r.store.MembershipsOfUser(ctx, session.UserID)
			if err != nil {
				return nil, err
			}
			out := make([]domain.OrganizationDto, 0, len(memberships))
			for _, m := range memberships {
				if m.Organization == nil {
					continue
				}
				count, err := r.store.MemberCount(ctx, m.OrganizationID)
				if err != nil {
					return nil, err
				}
				out = append(out, domain.OrganizationDto{
					ID:          m.Organization.ID.String(),
					Name:        m.Organization.Name,
					Slug:        m.Organization.Slug,
					Logo:        m.Organization.Logo,
					MemberCount: count,
				})
			}
			return out, nil
		})
}

// GetMembers lists the members of the active organization.
func (r *Reader) GetMembers(ctx context.Context) ([]domain.MemberDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return nil, err
	}

	orgID := session.OrganizationID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetMembers", orgID),
		[]cachetag.Tag{cachetag.Organization(cachetag.Members, orgID)},
		func(ctx context.Context) ([]domain.MemberDto, error) {
			members, err := r.store.MembersOf(ctx, session.OrganizationID)
			if err != nil {
				return nil, err
			}
			out := make([]domain.MemberDto, 0, len(members))
			for _, m := range members {
				if m.User == nil {
					continue
				}
				out = append(out, domain.MemberDto{
					ID:        m.User.ID.String(),
					Image:     m.User.Image,
					Name:      m.User.Name,
					Email:     m.User.Email,
					Role:      m.Role,
					IsOwner:   m.IsOwner,
					DateAdded: m.CreatedAt,
				})
			}
			return out, nil
		})
}

// GetSocialMedia returns the profile links of the active organization.
func (r *Reader) GetSocialMedia(ctx context.Context) (domain.SocialMediaDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return domain.SocialMediaDto{}, err
	}

	orgID := session.OrganizationID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetSocialMedia", orgID),
		[]cachetag.Tag{cachetag.Organization(cachetag.SocialMedia, orgID)},
		func(ctx context.Context) (domain.SocialMediaDto, error) {
			org, err := r.store.OrganizationByID(ctx, session.OrganizationID)
			if err != nil {
				return domain.SocialMediaDto{}, err
			}
			return domain.SocialMediaDto{
				LinkedInProfile:  org.LinkedInProfile,
				InstagramProfile: org.InstagramProfile,
				YouTubeChannel:   org.YouTubeChannel,
				XProfile:         org.XProfile,
				TikTokProfile:    org.TikTokProfile,
				FacebookPage:     org.FacebookPage,
			}, nil
		})
}
