package util

import "maps"

// Set is a generic set implementation for comparable values
type Set[K comparable] map[K]struct{}

// Add adds an element to the set
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// Remove removes an element from the set
func (s Set[K]) Remove(key K) {
	delete(s, key)
}

// Contains returns true if the element exists in the set
func (s Set[K]) Contains(key K) bool {
	_, exists := s[key]
	return exists
}

// IsEmpty returns true if the set is empty
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}

// Clone returns a shallow copy of the set
func (s Set[K]) Clone() Set[K] {
	return maps.Clone(s)
}
