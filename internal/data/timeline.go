package data

import (
	"context"
	"sort"

	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/schemas"
	"github.com/google/uuid"
)

// visitedContactsLimit is the length of the most and least visited lists.
const visitedContactsLimit = 6

// GetContactTimelineEvents merges the activities and comments of a contact,
// newest first. Member actors are resolved to their names.
func (r *Reader) GetContactTimelineEvents(ctx context.Context, contactID string) ([]domain.TimelineEventDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return nil, err
	}
	contactID, err = checkContactID(contactID)
	if err != nil {
		return nil, err
	}

	orgID := session.OrganizationID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetContactTimelineEvents", orgID, contactID),
		[]cachetag.Tag{
			cachetag.Organization(cachetag.ContactTimelineEvents, orgID, contactID),
			cachetag.Organization(cachetag.Contact, orgID, contactID),
			cachetag.Organization(cachetag.Contacts, orgID),
		},
		func(ctx context.Context) ([]domain.TimelineEventDto, error) {
			id := schemas.ParseID(contactID)
			activities, err := r.store.ContactActivities(ctx, session.OrganizationID, id)
			if err != nil {
				return nil, err
			}
			comments, err := r.store.ContactComments(ctx, session.OrganizationID, id)
			if err != nil {
				return nil, err
			}
			actors, err := r.memberActors(ctx, activities)
			if err != nil {
				return nil, err
			}
			return timelineEvents(activities, comments, actors), nil
		})
}

func (r *Reader) memberActors(ctx context.Context, activities []domain.ContactActivity) (map[string]domain.User, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, a := range activities {
		if a.ActorType != domain.ActorTypeMember {
			continue
		}
		id, err := uuid.Parse(a.ActorID)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	users, err := r.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.User, len(users))
	for _, u := range users {
		out[u.ID.String()] = u
	}
	return out, nil
}

func timelineEvents(activities []domain.ContactActivity, comments []domain.ContactComment, actors map[string]domain.User) []domain.TimelineEventDto {
	out := make([]domain.TimelineEventDto, 0, len(activities)+len(comments))
	for _, a := range activities {
		actor := &domain.NoteSenderDto{}
		if u, ok := actors[a.ActorID]; ok {
			actor = &domain.NoteSenderDto{ID: u.ID.String(), Name: u.Name, Image: u.Image}
		}
		out = append(out, domain.TimelineEventDto{
			ID:         a.ID.String(),
			ContactID:  a.ContactID.String(),
			Type:       domain.TimelineEventActivity,
			OccurredAt: a.OccurredAt,
			ActionType: a.ActionType,
			ActorType:  a.ActorType,
			Metadata:   a.Metadata,
			Actor:      actor,
		})
	}
	for _, c := range comments {
		updated := c.UpdatedAt
		sender := &domain.NoteSenderDto{ID: c.UserID.String()}
		if c.User != nil {
			sender.Name = c.User.Name
			sender.Image = c.User.Image
		}
		out = append(out, domain.TimelineEventDto{
			ID:         c.ID.String(),
			ContactID:  c.ContactID.String(),
			Type:       domain.TimelineEventComment,
			OccurredAt: c.CreatedAt,
			Text:       c.Text,
			Edited:     !c.CreatedAt.Equal(c.UpdatedAt),
			UpdatedAt:  &updated,
			Sender:     sender,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out
}

// GetMostVisitedContacts returns the contacts of the active organization
// visited most often in the filter's days.
func (r *Reader) GetMostVisitedContacts(ctx context.Context, filter schemas.VisitedContactsFilter) ([]domain.VisitedContactDto, error) {
	return r.visitedContacts(ctx, "GetMostVisitedContacts", filter, true)
}

// GetLeastVisitedContacts returns the contacts of the active organization
// visited least often in the filter's days. Contacts never visited come first.
func (r *Reader) GetLeastVisitedContacts(ctx context.Context, filter schemas.VisitedContactsFilter) ([]domain.VisitedContactDto, error) {
	return r.visitedContacts(ctx, "GetLeastVisitedContacts", filter, false)
}

func (r *Reader) visitedContacts(ctx context.Context, op string, filter schemas.VisitedContactsFilter, most bool) ([]domain.VisitedContactDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := schemas.Check(filter, "invalid visited contacts filter"); err != nil {
		return nil, err
	}

	orgID := session.OrganizationID.String()
	from, to := filter.Days()
	return fetch(ctx, r,
		r.keys.SerializeKey(op, orgID, from, to),
		[]cachetag.Tag{
			cachetag.Organization(cachetag.ContactPageVisits, orgID),
			cachetag.Organization(cachetag.Contacts, orgID),
		},
		func(ctx context.Context) ([]domain.VisitedContactDto, error) {
			rows, err := r.store.VisitedContacts(ctx, session.OrganizationID, from, to, most, visitedContactsLimit)
			if err != nil {
				return nil, err
			}
			out := make([]domain.VisitedContactDto, 0, len(rows))
			for _, row := range rows {
				out = append(out, domain.VisitedContactDto{
					ID:         row.ID.String(),
					Name:       row.Name,
					Image:      row.Image,
					Record:     row.Record,
					PageVisits: row.PageVisits,
				})
			}
			return out, nil
		})
}
