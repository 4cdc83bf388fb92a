// Package schemas validates the inputs of reads and mutations.
//
// Every schema has a Validate method returning an ozzo-validation error;
// Check converts it into a validation error of the application taxonomy.
package schemas

import (
	"errors"
	"net/url"
	"regexp"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
)

const (
	MaxPageSize       = 100
	DefaultPageSize   = 25
	MaxNameLength     = 64
	MaxTextLength     = 2048
	MaxTagLength      = 32
	MaxTagsPerContact = 16
	MaxDeleteBatch    = 100

	MaxLeadGenerationSpan = 366 * 24 * time.Hour
)

// Locales lists the locales a user can pick.
var Locales = []string{"en-US", "de-DE", "fr-FR", "es-ES"}

// WebhookTriggers lists the events a webhook can subscribe to.
var WebhookTriggers = []string{"contact.created", "contact.updated", "contact.deleted", "note.created", "task.created"}

// Validator is implemented by every schema.
type Validator interface {
	Validate() error
}

// Check validates v and converts failures to a validation error.
func Check(v Validator, message string) error {
	return apperrors.FromValidation(v.Validate(), message)
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{3,32}$`)

	errUUID = validation.NewError("validation_is_uuid", "must be a valid UUID")
	errURL  = validation.NewError("validation_is_url", "must be an absolute http(s) URL")
)

// isUUID accepts strings parseable as a UUID and skips empty values.
var isUUID = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return errUUID
	}
	return nil
})

var isHTTPURL = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errURL
	}
	return nil
})

func in[T comparable](values ...T) validation.Rule {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return validation.In(args...)
}

var (
	contactRecords = in(domain.ContactRecordPerson, domain.ContactRecordCompany)
	contactStages  = in(
		domain.ContactStageLead,
		domain.ContactStageQualified,
		domain.ContactStageOpportunity,
		domain.ContactStageProposal,
		domain.ContactStageInNegotiation,
		domain.ContactStageLost,
		domain.ContactStageWon,
	)
	taskStatuses = in(domain.TaskStatusOpen, domain.TaskStatusCompleted)
)

// ParseID parses a validated UUID string. Invalid input yields uuid.Nil.
func ParseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ParseIDs parses validated UUID strings.
func ParseIDs(ss []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		out = append(out, ParseID(s))
	}
	return out
}

// ContactID identifies a single contact.
type ContactID struct {
	ID string `json:"id"`
}

func (c ContactID) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required, isUUID),
	)
}

// Records selects which contact kinds a listing returns.
type Records string

const (
	RecordsAll       Records = "all"
	RecordsPeople    Records = "people"
	RecordsCompanies Records = "companies"
)

// ContactRecord returns the record kind to filter on, empty for all.
func (r Records) ContactRecord() domain.ContactRecord {
	switch r {
	case RecordsPeople:
		return domain.ContactRecordPerson
	case RecordsCompanies:
		return domain.ContactRecordCompany
	default:
		return ""
	}
}

// ContactsFilter pages, sorts and filters a contacts listing.
type ContactsFilter struct {
	PageIndex   int      `json:"pageIndex"`
	PageSize    int      `json:"pageSize"`
	SortBy      string   `json:"sortBy"`
	SortDesc    bool     `json:"sortDesc"`
	Tags        []string `json:"tags"`
	Records     Records  `json:"records"`
	SearchQuery string   `json:"searchQuery"`
}

// SortableFields lists the fields a contacts listing can be ordered by.
var SortableFields = []string{"name", "email", "address", "phone", "stage", "createdAt"}

// WithDefaults fills unset paging and filter fields.
func (f ContactsFilter) WithDefaults() ContactsFilter {
	if f.PageSize == 0 {
		f.PageSize = DefaultPageSize
	}
	if f.SortBy == "" {
		f.SortBy = "name"
	}
	if f.Records == "" {
		f.Records = RecordsAll
	}
	if f.Tags == nil {
		f.Tags = []string{}
	} else {
		f.Tags = slices.Clone(f.Tags)
		slices.Sort(f.Tags)
		f.Tags = slices.Compact(f.Tags)
	}
	return f
}

func (f ContactsFilter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.PageIndex, validation.Min(0)),
		validation.Field(&f.PageSize, validation.Required, validation.Min(1), validation.Max(MaxPageSize)),
		validation.Field(&f.SortBy, in(SortableFields...)),
		validation.Field(&f.Tags, validation.Each(validation.Required, validation.Length(1, MaxTagLength))),
		validation.Field(&f.Records, in(RecordsAll, RecordsPeople, RecordsCompanies)),
		validation.Field(&f.SearchQuery, validation.Length(0, MaxNameLength)),
	)
}

// LeadGenerationFilter bounds the lead generation series.
type LeadGenerationFilter struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (f LeadGenerationFilter) Validate() error {
	return validation.ValidateStruct(&f, dateRangeRules(&f.From, &f.To)...)
}

func dateRangeRules(from, to *time.Time) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(from, validation.Required),
		validation.Field(to, validation.Required, validation.By(func(any) error {
			if to.Before(*from) {
				return errors.New("must not be before from")
			}
			if to.Sub(*from) > MaxLeadGenerationSpan {
				return errors.New("must be within one year of from")
			}
			return nil
		})),
	}
}

// VisitedContactsFilter bounds the visit counts of the most and least visited
// contacts. Both ends are widened to whole days.
type VisitedContactsFilter struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (f VisitedContactsFilter) Validate() error {
	return validation.ValidateStruct(&f, dateRangeRules(&f.From, &f.To)...)
}

// Days returns the start of From's day and the end of To's day, in UTC.
func (f VisitedContactsFilter) Days() (time.Time, time.Time) {
	from := f.From.UTC().Truncate(24 * time.Hour)
	to := f.To.UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Microsecond)
	return from, to
}

// PersonalDetails updates the caller's name and phone.
type PersonalDetails struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (p PersonalDetails) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&p.Phone, validation.Match(phonePattern)),
	)
}

// Preferences updates the caller's locale.
type Preferences struct {
	Locale string `json:"locale"`
}

func (p Preferences) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Locale, validation.Required, in(Locales...)),
	)
}

// ContactProperties are the editable fields of a contact.
type ContactProperties struct {
	Record  domain.ContactRecord `json:"record"`
	Name    string               `json:"name"`
	Email   string               `json:"email"`
	Phone   string               `json:"phone"`
	Address string               `json:"address"`
	Stage   domain.ContactStage  `json:"stage"`
}

func contactPropertyRules(pp *ContactProperties) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(&pp.Record, contactRecords),
		validation.Field(&pp.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&pp.Email, validation.Length(0, 255), validation.Match(emailPattern)),
		validation.Field(&pp.Phone, validation.Match(phonePattern)),
		validation.Field(&pp.Address, validation.Length(0, 255)),
		validation.Field(&pp.Stage, contactStages),
	}
}

// AddContact creates a contact.
type AddContact struct {
	ContactProperties
	Tags []string `json:"tags"`
}

func (a AddContact) Validate() error {
	rules := contactPropertyRules(&a.ContactProperties)
	return validation.ValidateStruct(&a, append(rules,
		validation.Field(&a.Tags,
			validation.Length(0, MaxTagsPerContact),
			validation.Each(validation.Required, validation.Length(1, MaxTagLength)),
		),
	)...)
}

// UpdateContactProperties overwrites the properties of a contact.
type UpdateContactProperties struct {
	ID string `json:"id"`
	ContactProperties
}

func (u UpdateContactProperties) Validate() error {
	rules := contactPropertyRules(&u.ContactProperties)
	return validation.ValidateStruct(&u, append(rules,
		validation.Field(&u.ID, validation.Required, isUUID),
	)...)
}

// DeleteContacts removes contacts in bulk.
type DeleteContacts struct {
	IDs []string `json:"ids"`
}

func (d DeleteContacts) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.IDs,
			validation.Required,
			validation.Length(1, MaxDeleteBatch),
			validation.Each(validation.Required, isUUID),
		),
	)
}

// AddContactNote appends a note to a contact.
type AddContactNote struct {
	ContactID string `json:"contactId"`
	Text      string `json:"text"`
}

func (a AddContactNote) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ContactID, validation.Required, isUUID),
		validation.Field(&a.Text, validation.Required, validation.Length(1, MaxTextLength)),
	)
}

// AddContactComment appends a comment to the timeline of a contact.
type AddContactComment struct {
	ContactID string `json:"contactId"`
	Text      string `json:"text"`
}

func (a AddContactComment) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ContactID, validation.Required, isUUID),
		validation.Field(&a.Text, validation.Required, validation.Length(1, MaxTextLength)),
	)
}

// AddContactTask creates a task on a contact.
type AddContactTask struct {
	ContactID   string     `json:"contactId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

func (a AddContactTask) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ContactID, validation.Required, isUUID),
		validation.Field(&a.Title, validation.Required, validation.Length(1, 128)),
		validation.Field(&a.Description, validation.Length(0, MaxTextLength)),
	)
}

// UpdateContactTaskStatus opens or completes a task.
type UpdateContactTaskStatus struct {
	TaskID string            `json:"taskId"`
	Status domain.TaskStatus `json:"status"`
}

func (u UpdateContactTaskStatus) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.TaskID, validation.Required, isUUID),
		validation.Field(&u.Status, validation.Required, taskStatuses),
	)
}

// AddWebhook registers a webhook for the active organization.
type AddWebhook struct {
	URL      string   `json:"url"`
	Triggers []string `json:"triggers"`
}

func (a AddWebhook) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.URL, validation.Required, validation.Length(1, 2048), isHTTPURL),
		validation.Field(&a.Triggers, validation.Required, validation.Each(in(WebhookTriggers...))),
	)
}

// DeleteWebhook removes a webhook.
type DeleteWebhook struct {
	ID string `json:"id"`
}

func (d DeleteWebhook) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required, isUUID),
	)
}

// SocialMedia sets the profile links of the active organization. Empty
// values clear a link.
type SocialMedia struct {
	LinkedInProfile  string `json:"linkedInProfile"`
	InstagramProfile string `json:"instagramProfile"`
	YouTubeChannel   string `json:"youTubeChannel"`
	XProfile         string `json:"xProfile"`
	TikTokProfile    string `json:"tikTokProfile"`
	FacebookPage     string `json:"facebookPage"`
}

func (sm SocialMedia) Validate() error {
	link := []validation.Rule{validation.Length(0, 2048), isHTTPURL}
	return validation.ValidateStruct(&sm,
		validation.Field(&sm.LinkedInProfile, link...),
		validation.Field(&sm.InstagramProfile, link...),
		validation.Field(&sm.YouTubeChannel, link...),
		validation.Field(&sm.XProfile, link...),
		validation.Field(&sm.TikTokProfile, link...),
		validation.Field(&sm.FacebookPage, link...),
	)
}

// TransferOwnership hands the organization to another admin.
type TransferOwnership struct {
	TargetUserID string `json:"targetUserId"`
}

func (t TransferOwnership) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.TargetUserID, validation.Required, isUUID),
	)
}
