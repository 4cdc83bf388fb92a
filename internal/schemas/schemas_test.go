package schemas

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactsFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  ContactsFilter
		wantErr string
	}{
		{"defaults", ContactsFilter{}.WithDefaults(), ""},
		{"max page size", ContactsFilter{PageSize: MaxPageSize}.WithDefaults(), ""},
		{"page size too large", ContactsFilter{PageSize: MaxPageSize + 1}.WithDefaults(), "pageSize"},
		{"negative page index", ContactsFilter{PageIndex: -1}.WithDefaults(), "pageIndex"},
		{"unknown sort field", ContactsFilter{SortBy: "password"}.WithDefaults(), "sortBy"},
		{"unknown records", ContactsFilter{Records: "robots"}.WithDefaults(), "records"},
		{"empty tag", ContactsFilter{Tags: []string{""}}.WithDefaults(), "tags"},
		{"long search", ContactsFilter{SearchQuery: strings.Repeat("a", MaxNameLength+1)}.WithDefaults(), "searchQuery"},
		{"companies sorted by creation", ContactsFilter{Records: RecordsCompanies, SortBy: "createdAt", SortDesc: true}.WithDefaults(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.filter, "invalid contacts filter")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error()+fieldsOf(err), tt.wantErr)
		})
	}
}

func TestContactsFilter_WithDefaultsNormalizesTags(t *testing.T) {
	in := []string{"vip", "partner", "vip"}
	f := ContactsFilter{Tags: in}.WithDefaults()

	assert.Equal(t, []string{"partner", "vip"}, f.Tags)
	assert.Equal(t, []string{"vip", "partner", "vip"}, in, "caller slice must not be modified")
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, RecordsAll, f.Records)
	assert.Equal(t, "name", f.SortBy)
}

func TestRecords_ContactRecord(t *testing.T) {
	assert.Equal(t, domain.ContactRecordPerson, RecordsPeople.ContactRecord())
	assert.Equal(t, domain.ContactRecordCompany, RecordsCompanies.ContactRecord())
	assert.Equal(t, domain.ContactRecord(""), RecordsAll.ContactRecord())
}

func TestLeadGenerationFilter(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, LeadGenerationFilter{From: from, To: from.AddDate(0, 1, 0)}.Validate())
	assert.Error(t, LeadGenerationFilter{From: from, To: from.AddDate(0, 0, -1)}.Validate())
	assert.Error(t, LeadGenerationFilter{From: from, To: from.AddDate(2, 0, 0)}.Validate())
	assert.Error(t, LeadGenerationFilter{To: from}.Validate())
}

func TestMutationSchemas(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name  string
		input Validator
		valid bool
	}{
		{"personal details", PersonalDetails{Name: "Ada", Phone: "+44 20 7946 0958"}, true},
		{"personal details without name", PersonalDetails{Phone: "123"}, false},
		{"personal details bad phone", PersonalDetails{Name: "Ada", Phone: "call me"}, false},
		{"preferences", Preferences{Locale: "de-DE"}, true},
		{"unknown locale", Preferences{Locale: "tlh"}, false},
		{"add contact", AddContact{ContactProperties: ContactProperties{Name: "Ada", Email: "ada@example.com", Record: domain.ContactRecordPerson}, Tags: []string{"vip"}}, true},
		{"add contact bad email", AddContact{ContactProperties: ContactProperties{Name: "Ada", Email: "ada"}}, false},
		{"add contact bad stage", AddContact{ContactProperties: ContactProperties{Name: "Ada", Stage: "dormant"}}, false},
		{"update contact", UpdateContactProperties{ID: id, ContactProperties: ContactProperties{Name: "Ada"}}, true},
		{"update contact bad id", UpdateContactProperties{ID: "42", ContactProperties: ContactProperties{Name: "Ada"}}, false},
		{"delete contacts", DeleteContacts{IDs: []string{id}}, true},
		{"delete nothing", DeleteContacts{}, false},
		{"delete bad id", DeleteContacts{IDs: []string{id, "nope"}}, false},
		{"note", AddContactNote{ContactID: id, Text: "called"}, true},
		{"empty note", AddContactNote{ContactID: id}, false},
		{"task", AddContactTask{ContactID: id, Title: "follow up"}, true},
		{"task status", UpdateContactTaskStatus{TaskID: id, Status: domain.TaskStatusCompleted}, true},
		{"task status unknown", UpdateContactTaskStatus{TaskID: id, Status: "blocked"}, false},
		{"webhook", AddWebhook{URL: "https://hooks.example.com/in", Triggers: []string{"contact.created"}}, true},
		{"webhook relative url", AddWebhook{URL: "/in", Triggers: []string{"contact.created"}}, false},
		{"webhook ftp url", AddWebhook{URL: "ftp://hooks.example.com", Triggers: []string{"contact.created"}}, false},
		{"webhook unknown trigger", AddWebhook{URL: "https://hooks.example.com/in", Triggers: []string{"deal.won"}}, false},
		{"delete webhook", DeleteWebhook{ID: id}, true},
		{"transfer ownership", TransferOwnership{TargetUserID: id}, true},
		{"transfer ownership missing target", TransferOwnership{}, false},
		{"contact id", ContactID{ID: id}, true},
		{"contact id malformed", ContactID{ID: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.input, "invalid input")
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestParseIDs(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, []uuid.UUID{id, uuid.Nil}, ParseIDs([]string{id.String(), "bad"}))
}

func fieldsOf(err error) string {
	e := apperrors.AsError(err)
	if e == nil {
		return ""
	}
	var b strings.Builder
	for _, f := range e.ValidationErrors {
		b.WriteString(f.Field)
		b.WriteString(" ")
	}
	return b.String()
}
