package domain

import "time"

// ProfileDto is the signed-in user's profile. IsOwner and Role come from the
// session and are overlaid after the cached part is read.
type ProfileDto struct {
	ID      string `json:"id"`
	Image   string `json:"image,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Locale  string `json:"locale"`
	IsOwner bool   `json:"isOwner"`
	Role    Role   `json:"role"`
}

type OrganizationDto struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Logo        string `json:"logo,omitempty"`
	MemberCount int    `json:"memberCount"`
}

type ContactTagDto struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ContactDto struct {
	ID        string          `json:"id"`
	Record    ContactRecord   `json:"record"`
	Image     string          `json:"image,omitempty"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Address   string          `json:"address,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Stage     ContactStage    `json:"stage"`
	CreatedAt time.Time       `json:"createdAt"`
	Tags      []ContactTagDto `json:"tags"`
}

type ContactsPage struct {
	Contacts      []ContactDto `json:"contacts"`
	FilteredCount int          `json:"filteredCount"`
	TotalCount    int          `json:"totalCount"`
}

type NoteSenderDto struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type ContactNoteDto struct {
	ID        string        `json:"id"`
	ContactID string        `json:"contactId"`
	Text      string        `json:"text,omitempty"`
	Edited    bool          `json:"edited"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Sender    NoteSenderDto `json:"sender"`
}

type ContactTaskDto struct {
	ID          string     `json:"id"`
	ContactID   string     `json:"contactId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type FavoriteDto struct {
	ID        string        `json:"id"`
	ContactID string        `json:"contactId"`
	Order     int           `json:"order"`
	Name      string        `json:"name"`
	Record    ContactRecord `json:"record"`
	Image     string        `json:"image,omitempty"`
}

type MemberDto struct {
	ID        string    `json:"id"`
	Image     string    `json:"image,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsOwner   bool      `json:"isOwner"`
	DateAdded time.Time `json:"dateAdded"`
}

type WebhookDto struct {
	ID       string   `json:"id"`
	URL      string   `json:"url"`
	Triggers []string `json:"triggers"`
	Secret   string   `json:"secret,omitempty"`
}

// LeadGenerationDataPointDto counts contacts created on one day.
type LeadGenerationDataPointDto struct {
	Date      string `json:"date"`
	People    int    `json:"people"`
	Companies int    `json:"companies"`
}

// TimelineEventType tells activities and comments apart on a contact timeline.
type TimelineEventType string

const (
	TimelineEventActivity TimelineEventType = "activity"
	TimelineEventComment  TimelineEventType = "comment"
)

// TimelineEventDto is an activity or a comment. OccurredAt is the comment's
// creation time for comments. Actor is set on activities, Sender on comments.
type TimelineEventDto struct {
	ID         string            `json:"id"`
	ContactID  string            `json:"contactId"`
	Type       TimelineEventType `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`

	ActionType ActionType        `json:"actionType,omitempty"`
	ActorType  ActorType         `json:"actorType,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Actor      *NoteSenderDto    `json:"actor,omitempty"`

	Text      string         `json:"text,omitempty"`
	Edited    bool           `json:"edited,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
	Sender    *NoteSenderDto `json:"sender,omitempty"`
}

type VisitedContactDto struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Image      string        `json:"image,omitempty"`
	Record     ContactRecord `json:"record"`
	PageVisits int           `json:"pageVisits"`
}

type SocialMediaDto struct {
	LinkedInProfile  string `json:"linkedInProfile,omitempty"`
	InstagramProfile string `json:"instagramProfile,omitempty"`
	YouTubeChannel   string `json:"youTubeChannel,omitempty"`
	XProfile         string `json:"xProfile,omitempty"`
	TikTokProfile    string `json:"tikTokProfile,omitempty"`
	FacebookPage     string `json:"facebookPage,omitempty"`
}
