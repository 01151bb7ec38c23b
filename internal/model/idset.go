package model

// IDSet is a set of node ids that remembers insertion order.
// It backs the sent set, the per-round reported ids and the crawl frontier.
// Iteration order is deterministic so that dispatch order and written
// artifacts do not depend on map iteration.
//
// The zero value is ready to use.
type IDSet struct {
	ids   []string
	index map[string]struct{}
}

// NewIDSet creates a set containing ids, in order, without duplicates.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present.
func (s *IDSet) Add(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Has reports whether id is in the set.
func (s *IDSet) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids in the set.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the ids in insertion order.
func (s *IDSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Clear removes every id from the set.
func (s *IDSet) Clear() {
	s.ids = nil
	s.index = nil
}
