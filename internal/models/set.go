package models

import "slices"

// Set is an optional collection of distinct values kept in first-occurrence
// order. The zero Set is absent; a Set built with no values is present but
// empty. The encoder omits absent sets and emits empty ones as [].
type Set[T comparable] struct {
	items   []T
	present bool
}

// NewSet returns a present Set holding the distinct values of items.
func NewSet[T comparable](items ...T) Set[T] {
	seen := make(map[T]struct{}, len(items))
	distinct := make([]T, 0, len(items))
	for _, v := range items {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		distinct = append(distinct, v)
	}

	return Set[T]{items: distinct, present: true}
}

// Present reports whether the set was supplied at all.
func (s Set[T]) Present() bool {
	return s.present
}

// Len returns the number of distinct values.
func (s Set[T]) Len() int {
	return len(s.items)
}

// Contains reports whether v is in the set.
func (s Set[T]) Contains(v T) bool {
	return slices.Contains(s.items, v)
}

// Values returns a copy of the values in first-occurrence order. It returns
// nil for an absent set.
func (s Set[T]) Values() []T {
	if !s.present {
		return nil
	}

	return slices.Clone(s.items)
}
