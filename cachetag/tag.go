package cachetag

import (
	"fmt"
	"strings"
)

// Separator delimits the segments of an encoded tag.
const Separator = ":"

// Scope is the kind of entity a tag is parameterized by.
type Scope string

const (
	ScopeUser         Scope = "user"
	ScopeOrganization Scope = "organization"
)

// Tag is a cache key class bound to concrete scope identifiers. It is the unit
// of invalidation. Build tags with User or Organization; the zero value is not
// a valid tag.
type Tag struct {
	scope   Scope
	userKey UserKey
	orgKey  OrganizationKey
	ids     []string
}

// User builds a user-scoped tag. Identifiers are ordered: the user id, then any
// sub-resource ids (for ContactIsInFavorites, the contact id).
func User(key UserKey, userID string, resourceIDs ...string) Tag {
	ids := make([]string, 0, 1+len(resourceIDs))
	ids = append(ids, userID)
	ids = append(ids, resourceIDs...)
	return Tag{scope: ScopeUser, userKey: key, ids: ids}
}

// Organization builds an organization-scoped tag. Identifiers are ordered: the
// organization id, then the member user id for per-member data (Favorites), or
// the contact id for per-contact data (Contact, ContactNotes, ContactTasks,
// ContactTags, ContactTimelineEvents).
func Organization(key OrganizationKey, organizationID string, ids ...string) Tag {
	all := make([]string, 0, 1+len(ids))
	all = append(all, organizationID)
	all = append(all, ids...)
	return Tag{scope: ScopeOrganization, orgKey: key, ids: all}
}

// Scope returns the scope kind of the tag.
func (t Tag) Scope() Scope { return t.scope }

// IDs returns a copy of the scope identifiers in builder order.
func (t Tag) IDs() []string { return append([]string(nil), t.ids...) }

// IsZero reports whether t was never built.
func (t Tag) IsZero() bool { return t.scope == "" }

func (t Tag) keySegment() string {
	switch t.scope {
	case ScopeUser:
		if seg, ok := userKeySegments[t.userKey]; ok {
			return seg
		}
	case ScopeOrganization:
		if seg, ok := organizationKeySegments[t.orgKey]; ok {
			return seg
		}
	}
	return "invalid"
}

// String renders the canonical encoding:
//
//	<scope>:<scopeID>:<key>[:<id>...]
//
// Every identifier is escaped so that no identifier can contain the separator.
// Empty identifiers are kept as empty segments.
func (t Tag) String() string {
	if t.IsZero() {
		return ""
	}

	var b strings.Builder
	b.WriteString(string(t.scope))
	b.WriteString(Separator)
	b.WriteString(escape(t.ids[0]))
	b.WriteString(Separator)
	b.WriteString(t.keySegment())
	for _, id := range t.ids[1:] {
		b.WriteString(Separator)
		b.WriteString(escape(id))
	}
	return b.String()
}

// Equal reports whether two tags denote the same data.
func (t Tag) Equal(other Tag) bool {
	return t.String() == other.String()
}

// Parse decodes the output of Tag.String.
func Parse(s string) (Tag, error) {
	parts := strings.Split(s, Separator)
	if len(parts) < 3 {
		return Tag{}, fmt.Errorf("cachetag: malformed tag %q", s)
	}

	ids := make([]string, 0, len(parts)-2)
	first, err := unescape(parts[1])
	if err != nil {
		return Tag{}, fmt.Errorf("cachetag: malformed tag %q: %w", s, err)
	}
	ids = append(ids, first)
	for _, p := range parts[3:] {
		id, err := unescape(p)
		if err != nil {
			return Tag{}, fmt.Errorf("cachetag: malformed tag %q: %w", s, err)
		}
		ids = append(ids, id)
	}

	switch Scope(parts[0]) {
	case ScopeUser:
		key, ok := segmentUserKeys[parts[2]]
		if !ok {
			return Tag{}, fmt.Errorf("cachetag: unknown user key %q", parts[2])
		}
		return Tag{scope: ScopeUser, userKey: key, ids: ids}, nil
	case ScopeOrganization:
		key, ok := segmentOrganizationKeys[parts[2]]
		if !ok {
			return Tag{}, fmt.Errorf("cachetag: unknown organization key %q", parts[2])
		}
		return Tag{scope: ScopeOrganization, orgKey: key, ids: ids}, nil
	default:
		return Tag{}, fmt.Errorf("cachetag: unknown scope %q", parts[0])
	}
}

// Strings encodes every tag.
func Strings(tags ...Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// EscapeID escapes an identifier the way Tag.String does, for callers that
// derive their own tag families.
func EscapeID(id string) string {
	return escape(id)
}

var escaper = strings.NewReplacer("%", "%25", Separator, "%3A")

func escape(id string) string {
	if !strings.ContainsAny(id, "%"+Separator) {
		return id
	}
	return escaper.Replace(id)
}

func unescape(seg string) (string, error) {
	if !strings.Contains(seg, "%") {
		return seg, nil
	}

	var b strings.Builder
	b.Grow(len(seg))
	for i := 0; i < len(seg); i++ {
		if seg[i] != '%' {
			b.WriteByte(seg[i])
			continue
		}
		if i+2 >= len(seg) {
			return "", fmt.Errorf("truncated escape in %q", seg)
		}
		switch seg[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "3A":
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("invalid escape %q", seg[i:i+3])
		}
		i += 2
	}
	return b.String(), nil
}
