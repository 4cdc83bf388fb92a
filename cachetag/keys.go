package cachetag

// UserKey identifies a class of cached data owned by a single user.
type UserKey int

const (
	Organizations UserKey = iota + 1
	Profile
	PersonalDetails
	Preferences
	MultiFactorAuthentication
	Sessions
	TransactionalEmails
	MarketingEmails
	ContactIsInFavorites
)

var userKeyNames = map[UserKey]string{
	Organizations:             "Organizations",
	Profile:                   "Profile",
	PersonalDetails:           "PersonalDetails",
	Preferences:               "Preferences",
	MultiFactorAuthentication: "MultiFactorAuthentication",
	Sessions:                  "Sessions",
	TransactionalEmails:       "TransactionalEmails",
	MarketingEmails:           "MarketingEmails",
	ContactIsInFavorites:      "ContactIsInFavorites",
}

// String returns the enum name, e.g. "PersonalDetails".
func (k UserKey) String() string {
	if name, ok := userKeyNames[k]; ok {
		return name
	}
	return "UserKey(invalid)"
}

// Valid reports whether k is one of the declared user keys.
func (k UserKey) Valid() bool {
	_, ok := userKeyNames[k]
	return ok
}

// OrganizationKey identifies a class of cached data owned by an organization.
// Some keys are further scoped by a member or a sub-resource, see Organization.
type OrganizationKey int

const (
	OrganizationLogo OrganizationKey = iota + 1
	OrganizationDetails
	BusinessHours
	SocialMedia
	Members
	Invitations
	ApiKeys
	Webhooks
	Contacts
	Contact
	ContactTags
	ContactNotes
	ContactTasks
	ContactTimelineEvents
	ContactPageVisits
	LeadGenerationData
	Favorites
)

var organizationKeyNames = map[OrganizationKey]string{
	OrganizationLogo:      "OrganizationLogo",
	OrganizationDetails:   "OrganizationDetails",
	BusinessHours:         "BusinessHours",
	SocialMedia:           "SocialMedia",
	Members:               "Members",
	Invitations:           "Invitations",
	ApiKeys:               "ApiKeys",
	Webhooks:              "Webhooks",
	Contacts:              "Contacts",
	Contact:               "Contact",
	ContactTags:           "ContactTags",
	ContactNotes:          "ContactNotes",
	ContactTasks:          "ContactTasks",
	ContactTimelineEvents: "ContactTimelineEvents",
	ContactPageVisits:     "ContactPageVisits",
	LeadGenerationData:    "LeadGenerationData",
	Favorites:             "Favorites",
}

// String returns the enum name, e.g. "ContactNotes".
func (k OrganizationKey) String() string {
	if name, ok := organizationKeyNames[k]; ok {
		return name
	}
	return "OrganizationKey(invalid)"
}

// Valid reports whether k is one of the declared organization keys.
func (k OrganizationKey) Valid() bool {
	_, ok := organizationKeyNames[k]
	return ok
}

// segment names are computed once; they are part of the wire format of a tag.
var (
	userKeySegments         = make(map[UserKey]string, len(userKeyNames))
	organizationKeySegments = make(map[OrganizationKey]string, len(organizationKeyNames))
	segmentUserKeys         = make(map[string]UserKey, len(userKeyNames))
	segmentOrganizationKeys = make(map[string]OrganizationKey, len(organizationKeyNames))
)

func init() {
	for k, name := range userKeyNames {
		seg := SnakeCase(name)
		userKeySegments[k] = seg
		segmentUserKeys[seg] = k
	}
	for k, name := range organizationKeyNames {
		seg := SnakeCase(name)
		organizationKeySegments[k] = seg
		segmentOrganizationKeys[seg] = k
	}
}
