// Package domain holds the persisted records of the dashboard and the DTOs
// cached reads return.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

type ContactRecord string

const (
	ContactRecordPerson  ContactRecord = "person"
	ContactRecordCompany ContactRecord = "company"
)

type ContactStage string

const (
	ContactStageLead          ContactStage = "lead"
	ContactStageQualified     ContactStage = "qualified"
	ContactStageOpportunity   ContactStage = "opportunity"
	ContactStageProposal      ContactStage = "proposal"
	ContactStageInNegotiation ContactStage = "in_negotiation"
	ContactStageLost          ContactStage = "lost"
	ContactStageWon           ContactStage = "won"
)

type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

// ActionType is what happened to a contact in an activity.
type ActionType string

const (
	ActionTypeCreate ActionType = "create"
	ActionTypeUpdate ActionType = "update"
)

// ActorType is who caused an activity. Only member actors carry a user id.
type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeMember ActorType = "member"
	ActorTypeAPI    ActorType = "api"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	Image     string    `bun:"image"`
	Phone     string    `bun:"phone"`
	Locale    string    `bun:"locale,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:o"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	Name      string    `bun:"name,notnull"`
	Slug      string    `bun:"slug,notnull"`
	Logo      string    `bun:"logo"`
	CreatedAt time.Time `bun:"created_at,notnull"`

	LinkedInProfile  string `bun:"linkedin_profile"`
	InstagramProfile string `bun:"instagram_profile"`
	YouTubeChannel   string `bun:"youtube_channel"`
	XProfile         string `bun:"x_profile"`
	TikTokProfile    string `bun:"tiktok_profile"`
	FacebookPage     string `bun:"facebook_page"`
}

type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:m"`

	ID             uuid.UUID `bun:"id,pk,type:text"`
	OrganizationID uuid.UUID `bun:"organization_id,notnull,type:text"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:text"`
	Role           Role      `bun:"role,notnull"`
	IsOwner        bool      `bun:"is_owner,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`

	User         *User         `bun:"rel:belongs-to,join:user_id=id"`
	Organization *Organization `bun:"rel:belongs-to,join:organization_id=id"`
}

type Contact struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID             uuid.UUID     `bun:"id,pk,type:text"`
	OrganizationID uuid.UUID     `bun:"organization_id,notnull,type:text"`
	Record         ContactRecord `bun:"record,notnull"`
	Name           string        `bun:"name,notnull"`
	Email          string        `bun:"email"`
	Phone          string        `bun:"phone"`
	Address        string        `bun:"address"`
	Image          string        `bun:"image"`
	Stage          ContactStage  `bun:"stage,notnull"`
	CreatedAt      time.Time     `bun:"created_at,notnull"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull"`

	Tags []*ContactTag `bun:"rel:has-many,join:id=contact_id"`
}

type ContactTag struct {
	bun.BaseModel `bun:"table:contact_tags,alias:ct"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	ContactID uuid.UUID `bun:"contact_id,notnull,type:text"`
	Text      string    `bun:"text,notnull"`
}

type ContactNote struct {
	bun.BaseModel `bun:"table:contact_notes,alias:cn"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	ContactID uuid.UUID `bun:"contact_id,notnull,type:text"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:text"`
	Text      string    `bun:"text"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

type ContactTask struct {
	bun.BaseModel `bun:"table:contact_tasks,alias:ctk"`

	ID          uuid.UUID  `bun:"id,pk,type:text"`
	ContactID   uuid.UUID  `bun:"contact_id,notnull,type:text"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description"`
	Status      TaskStatus `bun:"status,notnull"`
	DueDate     *time.Time `bun:"due_date"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
}

type ContactActivity struct {
	bun.BaseModel `bun:"table:contact_activities,alias:ca"`

	ID         uuid.UUID         `bun:"id,pk,type:text"`
	ContactID  uuid.UUID         `bun:"contact_id,notnull,type:text"`
	ActionType ActionType        `bun:"action_type,notnull"`
	ActorType  ActorType         `bun:"actor_type,notnull"`
	ActorID    string            `bun:"actor_id"`
	Metadata   map[string]string `bun:"metadata,type:text"`
	OccurredAt time.Time         `bun:"occurred_at,notnull"`
}

type ContactComment struct {
	bun.BaseModel `bun:"table:contact_comments,alias:ccm"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	ContactID uuid.UUID `bun:"contact_id,notnull,type:text"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:text"`
	Text      string    `bun:"text,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
}

type ContactPageVisit struct {
	bun.BaseModel `bun:"table:contact_page_visits,alias:cpv"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	ContactID uuid.UUID `bun:"contact_id,notnull,type:text"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:text"`
	VisitedAt time.Time `bun:"visited_at,notnull"`
}

type Favorite struct {
	bun.BaseModel `bun:"table:favorites,alias:f"`

	ID        uuid.UUID `bun:"id,pk,type:text"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:text"`
	ContactID uuid.UUID `bun:"contact_id,notnull,type:text"`
	Order     int       `bun:"sort_order,notnull"`

	Contact *Contact `bun:"rel:belongs-to,join:contact_id=id"`
}

type Webhook struct {
	bun.BaseModel `bun:"table:webhooks,alias:w"`

	ID             uuid.UUID `bun:"id,pk,type:text"`
	OrganizationID uuid.UUID `bun:"organization_id,notnull,type:text"`
	URL            string    `bun:"url,notnull"`
	Triggers       string    `bun:"triggers"`
	Secret         string    `bun:"secret"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

// TriggerList splits the stored comma separated triggers.
func (w *Webhook) TriggerList() []string {
	if w.Triggers == "" {
		return []string{}
	}
	return strings.Split(w.Triggers, ",")
}

// JoinTriggers encodes triggers for storage.
func JoinTriggers(triggers []string) string {
	return strings.Join(triggers, ",")
}
