// Package seed loads organizations, users and contacts from YAML files.
//
// Records reference each other by the keys declared in the file, so a seed
// file stays readable without spelling out ids:
//
//	users:
//	  - key: olivia
//	    name: Olivia Owner
//	    email: olivia@acme.test
//	organizations:
//	  - key: acme
//	    name: Acme
//	    members:
//	      - user: olivia
//	        role: admin
//	        owner: true
//	    contacts:
//	      - name: Ada Lovelace
//	        favorited_by: [olivia]
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/store"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demo []byte

type File struct {
	Users         []User         `yaml:"users"`
	Organizations []Organization `yaml:"organizations"`
}

type User struct {
	Key    string `yaml:"key"`
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Phone  string `yaml:"phone"`
	Locale string `yaml:"locale"`
}

type Organization struct {
	Key      string    `yaml:"key"`
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Slug     string    `yaml:"slug"`
	Members  []Member  `yaml:"members"`
	Contacts []Contact `yaml:"contacts"`
	Webhooks []Webhook `yaml:"webhooks"`
}

type Member struct {
	User  string `yaml:"user"`
	Role  string `yaml:"role"`
	Owner bool   `yaml:"owner"`
}

type Contact struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Record      string   `yaml:"record"`
	Email       string   `yaml:"email"`
	Phone       string   `yaml:"phone"`
	Stage       string   `yaml:"stage"`
	Tags        []string `yaml:"tags"`
	DaysAgo     int      `yaml:"days_ago"`
	FavoritedBy []string `yaml:"favorited_by"`
	Notes       []Note   `yaml:"notes"`
	Tasks       []Task   `yaml:"tasks"`
}

type Note struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

type Task struct {
	Title  string `yaml:"title"`
	Status string `yaml:"status"`
	DueIn  int    `yaml:"due_in_days"`
}

type Webhook struct {
	URL      string   `yaml:"url"`
	Triggers []string `yaml:"triggers"`
}

// Summary counts the inserted records.
type Summary struct {
	Users         int
	Organizations int
	Memberships   int
	Contacts      int
	Notes         int
	Tasks         int
	Favorites     int
	Webhooks      int
}

// Parse decodes a seed file and validates its references.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &f, nil
}

// LoadFile parses the seed file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Demo returns the seed shipped with the binary.
func Demo() (*File, error) {
	return Parse(bytes.NewReader(demo))
}

var errUnknownUser = validation.NewError("seed_unknown_user", "references an undeclared user")

func optionalUUID(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return validation.NewError("seed_uuid", "must be a valid UUID")
	}
	return nil
}

// Validate checks required fields and that every user reference resolves.
func (f File) Validate() error {
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		users[u.Key] = true
	}
	known := validation.By(func(value any) error {
		if key, _ := value.(string); !users[key] {
			return errUnknownUser
		}
		return nil
	})

	return validation.ValidateStruct(&f,
		validation.Field(&f.Users, validation.Each(validation.By(func(value any) error {
			u := value.(User)
			return validation.ValidateStruct(&u,
				validation.Field(&u.Key, validation.Required),
				validation.Field(&u.ID, validation.By(optionalUUID)),
				validation.Field(&u.Name, validation.Required),
				validation.Field(&u.Email, validation.Required),
			)
		}))),
		validation.Field(&f.Organizations, validation.Each(validation.By(func(value any) error {
			o := value.(Organization)
			return validation.ValidateStruct(&o,
				validation.Field(&o.Key, validation.Required),
				validation.Field(&o.ID, validation.By(optionalUUID)),
				validation.Field(&o.Name, validation.Required),
				validation.Field(&o.Members, validation.Each(validation.By(func(value any) error {
					m := value.(Member)
					return validation.ValidateStruct(&m,
						validation.Field(&m.User, validation.Required, known),
						validation.Field(&m.Role, validation.In(string(domain.RoleAdmin), string(domain.RoleMember))),
					)
				}))),
				validation.Field(&o.Contacts, validation.Each(validation.By(func(value any) error {
					c := value.(Contact)
					return validation.ValidateStruct(&c,
						validation.Field(&c.ID, validation.By(optionalUUID)),
						validation.Field(&c.Name, validation.Required),
						validation.Field(&c.Record, validation.In(string(domain.ContactRecordPerson), string(domain.ContactRecordCompany))),
						validation.Field(&c.FavoritedBy, validation.Each(known)),
						validation.Field(&c.Notes, validation.Each(validation.By(func(value any) error {
							n := value.(Note)
							return validation.ValidateStruct(&n, validation.Field(&n.Author, validation.Required, known))
						}))),
					)
				}))),
				validation.Field(&o.Webhooks, validation.Each(validation.By(func(value any) error {
					w := value.(Webhook)
					return validation.ValidateStruct(&w, validation.Field(&w.URL, validation.Required))
				}))),
			)
		}))),
	)
}

// Apply inserts f in a single transaction.
func Apply(ctx context.Context, st *store.Store, f *File) (Summary, error) {
	var sum Summary
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := st.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		users := make(map[string]uuid.UUID, len(f.Users))
		for _, u := range f.Users {
			rec := &domain.User{
				ID:     parseOrNil(u.ID),
				Name:   u.Name,
				Email:  u.Email,
				Phone:  u.Phone,
				Locale: u.Locale,
			}
			if err := st.InsertUser(ctx, tx, rec); err != nil {
				return fmt.Errorf("user %s: %w", u.Key, err)
			}
			users[u.Key] = rec.ID
			sum.Users++
		}

		for _, o := range f.Organizations {
			org := &domain.Organization{ID: parseOrNil(o.ID), Name: o.Name, Slug: o.Slug}
			if org.Slug == "" {
				org.Slug = o.Key
			}
			if err := st.InsertOrganization(ctx, tx, org); err != nil {
				return fmt.Errorf("organization %s: %w", o.Key, err)
			}
			sum.Organizations++

			for _, m := range o.Members {
				rec := &domain.Membership{
					OrganizationID: org.ID,
					UserID:         users[m.User],
					Role:           domain.Role(m.Role),
					IsOwner:        m.Owner,
				}
				if err := st.InsertMembership(ctx, tx, rec); err != nil {
					return fmt.Errorf("organization %s member %s: %w", o.Key, m.User, err)
				}
				sum.Memberships++
			}

			for _, c := range o.Contacts {
				if err := insertContact(ctx, st, tx, org.ID, c, users, now, &sum); err != nil {
					return fmt.Errorf("organization %s contact %s: %w", o.Key, c.Name, err)
				}
			}

			for _, w := range o.Webhooks {
				rec := &domain.Webhook{
					ID:             uuid.New(),
					OrganizationID: org.ID,
					URL:            w.URL,
					Triggers:       domain.JoinTriggers(w.Triggers),
					CreatedAt:      now,
				}
				if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
					return fmt.Errorf("organization %s webhook: %w", o.Key, err)
				}
				sum.Webhooks++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func insertContact(ctx context.Context, st *store.Store, tx bun.Tx, orgID uuid.UUID, c Contact, users map[string]uuid.UUID, now time.Time, sum *Summary) error {
	created := now.AddDate(0, 0, -c.DaysAgo)
	rec := &domain.Contact{
		ID:             parseOrNil(c.ID),
		OrganizationID: orgID,
		Name:           c.Name,
		Record:         domain.ContactRecord(c.Record),
		Email:          c.Email,
		Phone:          c.Phone,
		Stage:          domain.ContactStage(c.Stage),
		CreatedAt:      created,
	}
	for _, text := range c.Tags {
		rec.Tags = append(rec.Tags, &domain.ContactTag{Text: text})
	}
	if err := st.InsertContact(ctx, tx, rec); err != nil {
		return err
	}
	sum.Contacts++

	for _, n := range c.Notes {
		note := &domain.ContactNote{ContactID: rec.ID, UserID: users[n.Author], Text: n.Text}
		if err := st.InsertContactNote(ctx, tx, note); err != nil {
			return err
		}
		sum.Notes++
	}

	for _, t := range c.Tasks {
		task := &domain.ContactTask{ContactID: rec.ID, Title: t.Title, Status: domain.TaskStatus(t.Status)}
		if t.DueIn != 0 {
			due := now.AddDate(0, 0, t.DueIn)
			task.DueDate = &due
		}
		if err := st.InsertContactTask(ctx, tx, task); err != nil {
			return err
		}
		sum.Tasks++
	}

	for _, key := range c.FavoritedBy {
		if err := st.AddFavorite(ctx, tx, users[key], rec.ID); err != nil {
			return err
		}
		sum.Favorites++
	}
	return nil
}

func parseOrNil(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
