// Package orderedset provides a set that remembers insertion order.
package orderedset

// Set is a set with O(1) membership that iterates in first-insertion order.
// The zero value is ready to use.
type Set[T comparable] struct {
	index map[T]int
	items []T
}

// New returns a set holding items in the order given, duplicates dropped.
func New[T comparable](items ...T) *Set[T] {
	s := &Set[T]{}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts v and reports whether it was not already present.
func (s *Set[T]) Add(v T) bool {
	if s.index == nil {
		s.index = make(map[T]int)
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

// Has reports whether v is in the set.
func (s *Set[T]) Has(v T) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[v]
	return ok
}

// Remove deletes v, keeping the relative order of the remaining items.
func (s *Set[T]) Remove(v T) bool {
	if s == nil {
		return false
	}
	i, ok := s.index[v]
	if !ok {
		return false
	}
	delete(s.index, v)
	copy(s.items[i:], s.items[i+1:])
	s.items = s.items[:len(s.items)-1]
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

// Len returns the number of items.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the items in insertion order.
func (s *Set[T]) Items() []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Each calls fn for every item in insertion order.
func (s *Set[T]) Each(fn func(T)) {
	if s == nil {
		return
	}
	for _, it := range s.items {
		fn(it)
	}
}

// Clone returns an independent copy.
func (s *Set[T]) Clone() *Set[T] {
	if s == nil {
		return &Set[T]{}
	}
	return New(s.items...)
}
