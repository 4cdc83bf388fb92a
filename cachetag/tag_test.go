package cachetag

import (
	"fmt"
	"testing"

	"github.com/goliatone/go-tagcache/pkg/testsupport"
)

type tagScenario struct {
	Name  string   `yaml:"name"`
	Scope string   `yaml:"scope"`
	Key   string   `yaml:"key"`
	IDs   []string `yaml:"ids"`
	Want  string   `yaml:"want"`
}

type tagFixtures struct {
	Scenarios []tagScenario `yaml:"scenarios"`
}

func buildScenarioTag(t *testing.T, sc tagScenario) Tag {
	t.Helper()

	switch Scope(sc.Scope) {
	case ScopeUser:
		for k, name := range userKeyNames {
			if name == sc.Key {
				return User(k, sc.IDs[0], sc.IDs[1:]...)
			}
		}
	case ScopeOrganization:
		for k, name := range organizationKeyNames {
			if name == sc.Key {
				return Organization(k, sc.IDs[0], sc.IDs[1:]...)
			}
		}
	}
	t.Fatalf("unknown scenario key %s/%s", sc.Scope, sc.Key)
	return Tag{}
}

func TestTag_StringScenarios(t *testing.T) {
	fixtures := testsupport.Fixture[tagFixtures](t, "tag_scenarios.yaml")

	if len(fixtures.Scenarios) == 0 {
		t.Fatal("expected scenarios in fixture")
	}

	for _, sc := range fixtures.Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			tag := buildScenarioTag(t, sc)
			if got := tag.String(); got != sc.Want {
				t.Errorf("String() = %q, want %q", got, sc.Want)
			}

			parsed, err := Parse(sc.Want)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", sc.Want, err)
			}
			if !parsed.Equal(tag) {
				t.Errorf("Parse(%q) = %q, want %q", sc.Want, parsed.String(), tag.String())
			}
		})
	}
}

func TestTag_Deterministic(t *testing.T) {
	a := Organization(Favorites, "org1", "u1")
	b := Organization(Favorites, "org1", "u1")

	if a.String() != b.String() {
		t.Errorf("equal inputs produced %q and %q", a.String(), b.String())
	}
	if !a.Equal(b) {
		t.Error("expected Equal to be true for equal inputs")
	}
}

func TestTag_DistinctInputsNeverAlias(t *testing.T) {
	tags := []Tag{
		User(Profile, "u1"),
		User(Profile, "u2"),
		User(Preferences, "u1"),
		User(ContactIsInFavorites, "u1", "c1"),
		User(ContactIsInFavorites, "u1", "c2"),
		User(ContactIsInFavorites, "u1"),
		User(ContactIsInFavorites, "u1", ""),
		User(ContactIsInFavorites, "u1", "c1", ""),
		Organization(Contacts, "u1"),
		Organization(Contact, "org1", "c1"),
		Organization(Contact, "org1:c1"),
		Organization(Contact, "org1", "c1:x"),
		Organization(Contact, "org1", "c1", "x"),
		Organization(ContactNotes, "org1", "c1"),
		Organization(Favorites, "org1", "u1"),
		Organization(Favorites, "org1", "u1%3A"),
		Organization(Favorites, "org1", "u1:"),
		Organization(Favorites, "org1"),
	}

	seen := make(map[string]int, len(tags))
	for i, tag := range tags {
		enc := tag.String()
		if j, ok := seen[enc]; ok {
			t.Errorf("tags %d and %d alias to %q", j, i, enc)
		}
		seen[enc] = i
	}
}

func TestTag_DistinctInputsGrid(t *testing.T) {
	ids := []string{"a", "b", "a:b", "a%3Ab", ""}
	seen := make(map[string]string)

	for key := range userKeyNames {
		for _, first := range ids {
			for _, second := range ids {
				tag := User(key, first, second)
				enc := tag.String()
				desc := fmt.Sprintf("user/%s/%q/%q", key, first, second)
				if prev, ok := seen[enc]; ok {
					t.Fatalf("%s aliases %s as %q", desc, prev, enc)
				}
				seen[enc] = desc
			}
		}
	}

	for key := range organizationKeyNames {
		for _, first := range ids {
			tag := Organization(key, first)
			enc := tag.String()
			desc := fmt.Sprintf("org/%s/%q", key, first)
			if prev, ok := seen[enc]; ok {
				t.Fatalf("%s aliases %s as %q", desc, prev, enc)
			}
			seen[enc] = desc
		}
	}
}

func TestTag_ZeroValue(t *testing.T) {
	var zero Tag
	if !zero.IsZero() {
		t.Error("expected zero tag to report IsZero")
	}
	if zero.String() != "" {
		t.Errorf("expected empty encoding, got %q", zero.String())
	}
}

func TestTag_IDsReturnsCopy(t *testing.T) {
	tag := Organization(Contact, "org1", "c1")
	ids := tag.IDs()
	ids[0] = "mutated"

	if tag.String() != "organization:org1:contact:c1" {
		t.Errorf("mutating IDs() changed the tag: %q", tag.String())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"user:u1",
		"team:t1:profile",
		"user:u1:unknown_key",
		"organization:org1:contacts:%ZZ",
		"organization:org1:contacts:%2",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); err == nil {
				t.Errorf("expected Parse(%q) to fail", in)
			}
		})
	}
}

func TestKeys_StringAndValid(t *testing.T) {
	if Profile.String() != "Profile" {
		t.Errorf("unexpected name %q", Profile.String())
	}
	if !ContactNotes.Valid() {
		t.Error("expected ContactNotes to be valid")
	}
	if UserKey(0).Valid() {
		t.Error("expected zero UserKey to be invalid")
	}
	if OrganizationKey(999).String() != "OrganizationKey(invalid)" {
		t.Errorf("unexpected invalid name %q", OrganizationKey(999).String())
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"ContactIsInFavorites": "contact_is_in_favorites",
		"ApiKeys":              "api_keys",
		"*domain.Webhook":      "domain_webhook",
		"HTTPServer":           "http_server",
		"User2":                "user_2",
		"already_snake":        "already_snake",
		"":                     "",
	}

	for in, want := range tests {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSet_DedupesInOrder(t *testing.T) {
	s := NewSet(
		Organization(Contacts, "org1"),
		Organization(Contact, "org1", "c1"),
		Organization(Contacts, "org1"),
		Tag{},
	)
	s.Add(User(Profile, "u1"), Organization(Contact, "org1", "c1"))

	want := []string{
		"organization:org1:contacts",
		"organization:org1:contact:c1",
		"user:u1:profile",
	}
	got := s.Strings()
	if len(got) != len(want) {
		t.Fatalf("expected %d tags, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
	if !s.Has(User(Profile, "u1")) {
		t.Error("expected Has to find profile tag")
	}

	var nilSet *Set
	if nilSet.Len() != 0 || nilSet.Strings() != nil {
		t.Error("expected nil set to be empty")
	}
}
