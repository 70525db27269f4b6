package domain

import "sort"

// ExclusionSet is a set of venue labels to omit from future quote requests.
// The nil set is empty and safe to read.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from venue labels, ignoring empty strings.
func NewExclusionSet(venues ...string) ExclusionSet {
	s := make(ExclusionSet, len(venues))
	for _, v := range venues {
		s.Add(v)
	}
	return s
}

// Add inserts a venue label.
func (s ExclusionSet) Add(venue string) {
	if venue == "" {
		return
	}
	s[venue] = struct{}{}
}

// Contains reports whether the venue is excluded.
func (s ExclusionSet) Contains(venue string) bool {
	_, ok := s[venue]
	return ok
}

// Len returns the number of excluded venues.
func (s ExclusionSet) Len() int {
	return len(s)
}

// List returns the excluded venues sorted lexically.
func (s ExclusionSet) List() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the venues of both sets.
// Exclusions only grow across attempts.
func (s ExclusionSet) Union(other ExclusionSet) ExclusionSet {
	out := make(ExclusionSet, len(s)+len(other))
	for v := range s {
		out[v] = struct{}{}
	}
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}
