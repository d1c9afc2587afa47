package graph

import (
	"cmp"
	"slices"
)

// Set is an unordered collection of nodes.
type Set[N cmp.Ordered] map[N]struct{}

// NewSet creates a set holding the given members.
func NewSet[N cmp.Ordered](members ...N) Set[N] {
	s := make(Set[N], len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts n into the set.
func (s Set[N]) Add(n N) {
	s[n] = struct{}{}
}

// Has reports whether n is a member. A nil set has no members.
func (s Set[N]) Has(n N) bool {
	_, ok := s[n]
	return ok
}

// Len returns the number of members.
func (s Set[N]) Len() int {
	return len(s)
}

// Union returns a new set with the members of both sets.
func (s Set[N]) Union(other Set[N]) Set[N] {
	out := make(Set[N], len(s)+len(other))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the members present in both sets.
func (s Set[N]) Intersect(other Set[N]) Set[N] {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set[N])
	for n := range small {
		if large.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s Set[N]) Sorted() []N {
	out := make([]N, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
