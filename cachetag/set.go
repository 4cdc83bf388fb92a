package cachetag

// Set collects tags in insertion order, dropping duplicates by encoding.
// The zero value is ready to use. A Set is not safe for concurrent use.
type Set struct {
	seen map[string]struct{}
	tags []Tag
}

// NewSet returns a set seeded with tags.
func NewSet(tags ...Tag) *Set {
	s := &Set{}
	s.Add(tags...)
	return s
}

// Add appends tags not already present. Zero tags are ignored.
func (s *Set) Add(tags ...Tag) {
	if s.seen == nil {
		s.seen = make(map[string]struct{}, len(tags))
	}
	for _, t := range tags {
		if t.IsZero() {
			continue
		}
		enc := t.String()
		if _, ok := s.seen[enc]; ok {
			continue
		}
		s.seen[enc] = struct{}{}
		s.tags = append(s.tags, t)
	}
}

// Has reports whether t is in the set.
func (s *Set) Has(t Tag) bool {
	if s == nil || s.seen == nil {
		return false
	}
	_, ok := s.seen[t.String()]
	return ok
}

// Len returns the number of distinct tags.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tags)
}

// Tags returns a copy of the tags in insertion order.
func (s *Set) Tags() []Tag {
	if s == nil {
		return nil
	}
	return append([]Tag(nil), s.tags...)
}

// Strings returns the encoded tags in insertion order.
func (s *Set) Strings() []string {
	if s == nil {
		return nil
	}
	return Strings(s.tags...)
}
