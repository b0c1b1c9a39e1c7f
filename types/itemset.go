package types //nolint:revive // types is a valid package name

// ItemSet is an insertion-ordered set of item identifiers.
// The retry engine depends on the ordering guarantee: iterating a snapshot
// visits items in the order they entered the set.
type ItemSet struct {
	order   []string
	members map[string]struct{}
}

// NewItemSet builds a set from items, dropping duplicates while preserving
// first-occurrence order.
func NewItemSet(items ...string) *ItemSet {
	s := &ItemSet{members: make(map[string]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add appends item if not already present.
func (s *ItemSet) Add(item string) {
	if _, ok := s.members[item]; ok {
		return
	}
	s.members[item] = struct{}{}
	s.order = append(s.order, item)
}

// Remove deletes item from the set. No-op if absent.
func (s *ItemSet) Remove(item string) {
	if _, ok := s.members[item]; !ok {
		return
	}
	delete(s.members, item)
	for i, existing := range s.order {
		if existing == item {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains reports membership.
func (s *ItemSet) Contains(item string) bool {
	_, ok := s.members[item]
	return ok
}

// Len returns the number of members.
func (s *ItemSet) Len() int {
	return len(s.order)
}

// Items returns the members in insertion order. The returned slice is a
// copy; mutating it does not affect the set.
func (s *ItemSet) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
