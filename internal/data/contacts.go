package data

import (
	"context"
	"sort"

	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/schemas"
	"github.com/goliatone/go-tagcache/internal/store"
)

// GetContacts returns one page of the active organization's contacts.
func (r *Reader) GetContacts(ctx context.Context, filter schemas.ContactsFilter) (domain.ContactsPage, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return domain.ContactsPage{}, err
	}
	filter = filter.WithDefaults()
	if err := schemas.Check(filter, "invalid contacts filter"); err != nil {
		return domain.ContactsPage{}, err
	}

	orgID := session.OrganizationID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetContacts", orgID, filter),
		[]cachetag.Tag{cachetag.Organization(cachetag.Contacts, orgID)},
		func(ctx context.Context) (domain.ContactsPage, error) {
			contacts, filtered, total, err := r.store.ListContacts(ctx, store.ContactQuery{
				OrganizationID: session.OrganizationID,
				PageIndex:      filter.PageIndex,
				PageSize:       filter.PageSize,
				SortBy:         filter.SortBy,
				SortDesc:       filter.SortDesc,
				Tags:           filter.Tags,
				Record:         filter.Records.ContactRecord(),
				Search:         filter.SearchQuery,
			})
			if err != nil {
				return domain.ContactsPage{}, err
			}
			page := domain.ContactsPage{
				Contacts:      make([]domain.ContactDto, 0, len(contacts)),
				FilteredCount: filtered,
				TotalCount:    total,
			}
			for i := range contacts {
				page.Contacts = append(page.Contacts, contactDto(&contacts[i]))
			}
			return page, nil
		})
}

// GetContact returns a single contact. A contact that does not exist in the
// active organization is NotFound.
func (r *Reader) GetContact(ctx context.Context, contactID string) (domain.ContactDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return domain.ContactDto{}, err
	}
	contactID, err = checkContactID(contactID)
	if err != nil {
		return domain.ContactDto{}, err
	}

	orgID := session.OrganizationID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetContact", orgID, contactID),
		[]cachetag.Tag{
			cachetag.Organization(cachetag.Contact, orgID, contactID),
			cachetag.Organization(cachetag.Contacts, orgID),
		},
		func(ctx context.Context) (domain.ContactDto, error) {
			c, err := r.store.ContactByID(ctx, r.store.DB(), session.OrganizationID, schemas.ParseID(contactID))
			if err != nil {
				return domain.ContactDto{}, err
			}
			return contactDto(c), nil
		})
}

// GetContactNotes returns the notes of a contact, oldest first.
func (r *Reader) GetContactNotes(ctx context.Context, contactID string) ([]domain.ContactNoteDto, error) {
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
		r.keys.SerializeKey("GetContactNotes", orgID, contactID),
		[]cachetag.Tag{
			cachetag.Organization(cachetag.ContactNotes, orgID, contactID),
			cachetag.Organization(cachetag.Contact, orgID, contactID),
			cachetag.Organization(cachetag.Contacts, orgID),
		},
		func(ctx context.Context) ([]domain.ContactNoteDto, error) {
			notes, err := r.store.ContactNotes(ctx, session.OrganizationID, schemas.ParseID(contactID))
			if err != nil {
				return nil, err
			}
			out := make([]domain.ContactNoteDto, 0, len(notes))
			for _, n := range notes {
				dto := domain.ContactNoteDto{
					ID:        n.ID.String(),
					ContactID: n.ContactID.String(),
					Text:      n.Text,
					Edited:    !n.CreatedAt.Equal(n.UpdatedAt),
					CreatedAt: n.CreatedAt,
					UpdatedAt: n.UpdatedAt,
					Sender:    domain.NoteSenderDto{ID: n.UserID.String()},
				}
				if n.User != nil {
					dto.Sender.Name = n.User.Name
					dto.Sender.Image = n.User.Image
				}
				out = append(out, dto)
			}
			return out, nil
		})
}

// GetContactTasks returns the tasks of a contact, oldest first.
func (r *Reader) GetContactTasks(ctx context.Context, contactID string) ([]domain.ContactTaskDto, error) {
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
		r.keys.SerializeKey("GetContactTasks", orgID, contactID),
		[]cachetag.Tag{cachetag.Organization(cachetag.ContactTasks, orgID, contactID)},
		func(ctx context.Context) ([]domain.ContactTaskDto, error) {
			tasks, err := r.store.ContactTasks(ctx, session.OrganizationID, schemas.ParseID(contactID))
			if err != nil {
				return nil, err
			}
			out := make([]domain.ContactTaskDto, 0, len(tasks))
			for _, t := range tasks {
				out = append(out, domain.ContactTaskDto{
					ID:          t.ID.String(),
					ContactID:   t.ContactID.String(),
					Title:       t.Title,
					Description: t.Description,
					Status:      t.Status,
					DueDate:     t.DueDate,
					CreatedAt:   t.CreatedAt,
				})
			}
			return out, nil
		})
}

// GetFavorites returns the caller's favorite contacts in the active
// organization. The list embeds contact names, so it is also tagged with the
// organization's Contacts tag.
func (r *Reader) GetFavorites(ctx context.Context) ([]domain.FavoriteDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return nil, err
	}

	orgID, userID := session.OrganizationID.String(), session.UserID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetFavorites", orgID, userID),
		[]cachetag.Tag{
			cachetag.Organization(cachetag.Favorites, orgID, userID),
			cachetag.Organization(cachetag.Contacts, orgID),
		},
		func(ctx context.Context) ([]domain.FavoriteDto, error) {
			favorites, err := r.store.Favorites(ctx, session.OrganizationID, session.UserID)
			if err != nil {
				return nil, err
			}
			out := make([]domain.FavoriteDto, 0, len(favorites))
			for _, f := range favorites {
				dto := domain.FavoriteDto{
					ID:        f.ID.String(),
					ContactID: f.ContactID.String(),
					Order:     f.Order,
				}
				if f.Contact != nil {
					dto.Name = f.Contact.Name
					dto.Record = f.Contact.Record
					dto.Image = f.Contact.Image
				}
				out = append(out, dto)
			}
			return out, nil
		})
}

// IsContactInFavorites reports whether the caller marked contactID as a favorite.
func (r *Reader) IsContactInFavorites(ctx context.Context, contactID string) (bool, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return false, err
	}
	contactID, err = checkContactID(contactID)
	if err != nil {
		return false, err
	}

	userID := session.UserID.String()
	return fetch(ctx, r,
		r.keys.SerializeKey("IsContactInFavorites", userID, contactID),
		[]cachetag.Tag{cachetag.User(cachetag.ContactIsInFavorites, userID, contactID)},
		func(ctx context.Context) (bool, error) {
			return r.store.IsFavorite(ctx, session.UserID, schemas.ParseID(contactID))
		})
}

// GetLeadGenerationData counts the contacts created per day in the filter's
// range, split into people and companies. Days without new contacts are
// omitted.
func (r *Reader) GetLeadGenerationData(ctx context.Context, filter schemas.LeadGenerationFilter) ([]domain.LeadGenerationDataPointDto, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := schemas.Check(filter, "invalid lead generation filter"); err != nil {
		return nil, err
	}

	orgID := session.OrganizationID.String()
	from, to := filter.From.UTC(), filter.To.UTC()
	return fetch(ctx, r,
		r.keys.SerializeKey("GetLeadGenerationData", orgID, from, to),
		[]cachetag.Tag{
			cachetag.Organization(cachetag.LeadGenerationData, orgID),
			cachetag.Organization(cachetag.Contacts, orgID),
		},
		func(ctx context.Context) ([]domain.LeadGenerationDataPointDto, error) {
			contacts, err := r.store.ContactsCreatedBetween(ctx, session.OrganizationID, from, to)
			if err != nil {
				return nil, err
			}
			return leadGenerationSeries(contacts), nil
		})
}

func leadGenerationSeries(contacts []domain.Contact) []domain.LeadGenerationDataPointDto {
	byDay := make(map[string]*domain.LeadGenerationDataPointDto)
	for _, c := range contacts {
		day := c.CreatedAt.UTC().Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &domain.LeadGenerationDataPointDto{Date: day}
			byDay[day] = point
		}
		if c.Record == domain.ContactRecordCompany {
			point.Companies++
		} else {
			point.People++
		}
	}

	out := make([]domain.LeadGenerationDataPointDto, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func contactDto(c *domain.Contact) domain.ContactDto {
	dto := domain.ContactDto{
		ID:        c.ID.String(),
		Record:    c.Record,
		Image:     c.Image,
		Name:      c.Name,
		Email:     c.Email,
		Address:   c.Address,
		Phone:     c.Phone,
		Stage:     c.Stage,
		CreatedAt: c.CreatedAt,
		Tags:      make([]domain.ContactTagDto, 0, len(c.Tags)),
	}
	for _, t := range c.Tags {
		dto.Tags = append(dto.Tags, domain.ContactTagDto{ID: t.ID.String(), Text: t.Text})
	}
	return dto
}
