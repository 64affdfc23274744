package domain

import "sort"

// Set holds distinct domains keyed by ID.
type Set struct {
	domains map[string]Domain
}

// NewSet returns a Set holding ds.
func NewSet(ds ...Domain) *Set {
	s := &Set{domains: make(map[string]Domain, len(ds))}
	for _, d := range ds {
		s.Add(d)
	}
	return s
}

// Add inserts d and reports whether it was not already present.
func (s *Set) Add(d Domain) bool {
	id := d.ID()
	if _, ok := s.domains[id]; ok {
		return false
	}
	s.domains[id] = d
	return true
}

// Contains reports whether a domain equal to d is in the set.
func (s *Set) Contains(d Domain) bool {
	_, ok := s.domains[d.ID()]
	return ok
}

func (s *Set) Len() int {
	return len(s.domains)
}

// Domains returns the members ordered by ID.
func (s *Set) Domains() []Domain {
	ids := make([]string, 0, len(s.domains))
	for id := range s.domains {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Domain, len(ids))
	for i, id := range ids {
		out[i] = s.domains[id]
	}
	return out
}
