package actions

import (
	"context"

	"github.com/goliatone/go-tagcache/cachetag"
	"github.com/goliatone/go-tagcache/internal/auth"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/invalidation"
	"github.com/goliatone/go-tagcache/internal/schemas"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AddContact creates a contact in the active organization and returns its id.
func (a *Actions) AddContact(ctx context.Context, in schemas.AddContact) (string, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return "", err
	}
	if err := schemas.Check(in, "invalid contact"); err != nil {
		return "", err
	}

	contact := &domain.Contact{
		ID:             uuid.New(),
		OrganizationID: session.OrganizationID,
		Record:         in.Record,
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		Address:        in.Address,
		Stage:          in.Stage,
	}
	for _, text := range in.Tags {
		contact.Tags = append(contact.Tags, &domain.ContactTag{Text: text})
	}

	err = a.mutate(ctx, "add contact", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if err := a.store.InsertContact(ctx, tx, contact); err != nil {
			return err
		}
		if err := a.store.InsertContactActivity(ctx, tx, memberActivity(session, contact.ID, domain.ActionTypeCreate, nil)); err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.Contacts, session.OrganizationID.String()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return contact.ID.String(), nil
}

// UpdateContactProperties overwrites the properties of a contact.
func (a *Actions) UpdateContactProperties(ctx context.Context, in schemas.UpdateContactProperties) error {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid contact"); err != nil {
		return err
	}

	contactID := schemas.ParseID(in.ID)
	return a.mutate(ctx, "update contact", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		before, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID)
		if err != nil {
			return err
		}
		props := store.ContactProperties{
			Record:  in.Record,
			Name:    in.Name,
			Email:   in.Email,
			Phone:   in.Phone,
			Address: in.Address,
			Stage:   in.Stage,
		}
		if err := a.store.UpdateContact(ctx, tx, session.OrganizationID, contactID, props); err != nil {
			return err
		}
		if changes := changedProperties(before, props); len(changes) > 0 {
			if err := a.store.InsertContactActivity(ctx, tx, memberActivity(session, contactID, domain.ActionTypeUpdate, changes)); err != nil {
				return err
			}
		}
		orgID := session.OrganizationID.String()
		pending.Add(
			cachetag.Organization(cachetag.Contacts, orgID),
			cachetag.Organization(cachetag.Contact, orgID, contactID.String()),
		)
		return nil
	})
}

// changedProperties maps the fields an update changes to their new values.
// Empty record and stage keep the stored value.
func changedProperties(before *domain.Contact, p store.ContactProperties) map[string]string {
	changes := make(map[string]string)
	set := func(field, old, updated string) {
		if old != updated {
			changes[field] = updated
		}
	}
	if p.Record != "" {
		set("record", string(before.Record), string(p.Record))
	}
	set("name", before.Name, p.Name)
	set("email", before.Email, p.Email)
	set("phone", before.Phone, p.Phone)
	set("address", before.Address, p.Address)
	if p.Stage != "" {
		set("stage", string(before.Stage), string(p.Stage))
	}
	return changes
}

func memberActivity(session *auth.Session, contactID uuid.UUID, action domain.ActionType, metadata map[string]string) *domain.ContactActivity {
	return &domain.ContactActivity{
		ContactID:  contactID,
		ActionType: action,
		ActorType:  domain.ActorTypeMember,
		ActorID:    session.UserID.String(),
		Metadata:   metadata,
	}
}

// DeleteContacts removes contacts of the active organization. Ids that do not
// exist are ignored.
//
// Any member may have a deleted contact among their favorites, so the
// favorites of every member are invalidated, not only the caller's.
func (a *Actions) DeleteContacts(ctx context.Context, in schemas.DeleteContacts) error {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid contacts"); err != nil {
		return err
	}

	orgID := session.OrganizationID
	return a.mutate(ctx, "delete contacts", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		deleted, err := a.store.DeleteContacts(ctx, tx, orgID, schemas.ParseIDs(in.IDs))
		if err != nil {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}
		members, err := a.store.MemberIDs(ctx, tx, orgID)
		if err != nil {
			return err
		}

		pending.Add(deletedContactTags(orgID, deleted, members)...)
		return nil
	})
}

func deletedContactTags(orgID uuid.UUID, contacts, members []uuid.UUID) []cachetag.Tag {
	org := orgID.String()
	tags := []cachetag.Tag{
		cachetag.Organization(cachetag.Contacts, org),
		cachetag.Organization(cachetag.ContactPageVisits, org),
	}
	for _, c := range contacts {
		id := c.String()
		tags = append(tags,
			cachetag.Organization(cachetag.Contact, org, id),
			cachetag.Organization(cachetag.ContactNotes, org, id),
			cachetag.Organization(cachetag.ContactTasks, org, id),
			cachetag.Organization(cachetag.ContactTags, org, id),
			cachetag.Organization(cachetag.ContactTimelineEvents, org, id),
		)
	}
	for _, m := range members {
		member := m.String()
		tags = append(tags, cachetag.Organization(cachetag.Favorites, org, member))
		for _, c := range contacts {
			tags = append(tags, cachetag.User(cachetag.ContactIsInFavorites, member, c.String()))
		}
	}
	return tags
}

// AddFavorite marks a contact of the active organization as a favorite of
// the caller.
func (a *Actions) AddFavorite(ctx context.Context, in schemas.ContactID) error {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid contact id"); err != nil {
		return err
	}

	contactID := schemas.ParseID(in.ID)
	return a.mutate(ctx, "add favorite", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if _, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID); err != nil {
			return err
		}
		if err := a.store.AddFavorite(ctx, tx, session.UserID, contactID); err != nil {
			return err
		}
		pending.Add(favoriteTags(session, contactID)...)
		return nil
	})
}

// RemoveFavorite unmarks a favorite of the caller. The contact must belong
// to the active organization.
func (a *Actions) RemoveFavorite(ctx context.Context, in schemas.ContactID) error {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid contact id"); err != nil {
		return err
	}

	contactID := schemas.ParseID(in.ID)
	return a.mutate(ctx, "remove favorite", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if _, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID); err != nil {
			return err
		}
		if err := a.store.RemoveFavorite(ctx, tx, session.UserID, contactID); err != nil {
			return err
		}
		pending.Add(favoriteTags(session, contactID)...)
		return nil
	})
}

func favoriteTags(session *auth.Session, contactID uuid.UUID) []cachetag.Tag {
	userID := session.UserID.String()
	return []cachetag.Tag{
		cachetag.Organization(cachetag.Favorites, session.OrganizationID.String(), userID),
		cachetag.User(cachetag.ContactIsInFavorites, userID, contactID.String()),
	}
}

// AddContactNote appends a note written by the caller to a contact.
func (a *Actions) AddContactNote(ctx context.Context, in schemas.AddContactNote) (string, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return "", err
	}
	if err := schemas.Check(in, "invalid note"); err != nil {
		return "", err
	}

	contactID := schemas.ParseID(in.ContactID)
	note := &domain.ContactNote{ID: uuid.New(), ContactID: contactID, UserID: session.UserID, Text: in.Text}
	err = a.mutate(ctx, "add note", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if _, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID); err != nil {
			return err
		}
		if err := a.store.InsertContactNote(ctx, tx, note); err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.ContactNotes, session.OrganizationID.String(), contactID.String()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return note.ID.String(), nil
}

// AddContactTask creates a task on a contact.
func (a *Actions) AddContactTask(ctx context.Context, in schemas.AddContactTask) (string, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return "", err
	}
	if err := schemas.Check(in, "invalid task"); err != nil {
		return "", err
	}

	contactID := schemas.ParseID(in.ContactID)
	task := &domain.ContactTask{
		ID:          uuid.New(),
		ContactID:   contactID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	}
	err = a.mutate(ctx, "add task", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if _, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID); err != nil {
			return err
		}
		if err := a.store.InsertContactTask(ctx, tx, task); err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.ContactTasks, session.OrganizationID.String(), contactID.String()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return task.ID.String(), nil
}

// UpdateContactTaskStatus opens or completes a task.
func (a *Actions) UpdateContactTaskStatus(ctx context.Context, in schemas.UpdateContactTaskStatus) error {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid task status"); err != nil {
		return err
	}

	taskID := schemas.ParseID(in.TaskID)
	return a.mutate(ctx, "update task status", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		task, err := a.store.ContactTaskByID(ctx, tx, session.OrganizationID, taskID)
		if err != nil {
			return err
		}
		if err := a.store.UpdateContactTaskStatus(ctx, tx, taskID, in.Status); err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.ContactTasks, session.OrganizationID.String(), task.ContactID.String()))
		return nil
	})
}

// AddContactComment appends a comment written by the caller to the timeline
// of a contact.
func (a *Actions) AddContactComment(ctx context.Context, in schemas.AddContactComment) (string, error) {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return "", err
	}
	if err := schemas.Check(in, "invalid comment"); err != nil {
		return "", err
	}

	contactID := schemas.ParseID(in.ContactID)
	comment := &domain.ContactComment{ID: uuid.New(), ContactID: contactID, UserID: session.UserID, Text: in.Text}
	err = a.mutate(ctx, "add comment", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if _, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID); err != nil {
			return err
		}
		if err := a.store.InsertContactComment(ctx, tx, comment); err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.ContactTimelineEvents, session.OrganizationID.String(), contactID.String()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return comment.ID.String(), nil
}

// RecordContactPageVisit counts a visit of the caller to a contact page.
func (a *Actions) RecordContactPageVisit(ctx context.Context, in schemas.ContactID) error {
	session, _, err := auth.OrganizationContext(ctx)
	if err != nil {
		return err
	}
	if err := schemas.Check(in, "invalid contact id"); err != nil {
		return err
	}

	contactID := schemas.ParseID(in.ID)
	return a.mutate(ctx, "record page visit", func(ctx context.Context, tx bun.Tx, pending *invalidation.Pending) error {
		if _, err := a.store.ContactByID(ctx, tx, session.OrganizationID, contactID); err != nil {
			return err
		}
		visit := &domain.ContactPageVisit{ContactID: contactID, UserID: session.UserID}
		if err := a.store.InsertContactPageVisit(ctx, tx, visit); err != nil {
			return err
		}
		pending.Add(cachetag.Organization(cachetag.ContactPageVisits, session.OrganizationID.String()))
		return nil
	})
}
