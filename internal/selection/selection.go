// Package selection tracks which messages of the open thread are selected.
package selection

import (
	"maps"
	"slices"
)

// Selection is a set of message orders. One Selection belongs to one thread
// view; the message list and the toolbar share it by pointer.
//
// A Selection is not safe for concurrent use. It is mutated only from the UI
// update loop.
type Selection struct {
	orders map[int]struct{}
}

func New() *Selection {
	return &Selection{orders: make(map[int]struct{})}
}

// Select adds order. Selecting an order that is already selected is a
// no-op and returns false.
func (s *Selection) Select(order int) bool {
	if _, ok := s.orders[order]; ok {
		return false
	}
	s.orders[order] = struct{}{}
	return true
}

// Deselect removes order and reports whether it was selected.
func (s *Selection) Deselect(order int) bool {
	if _, ok := s.orders[order]; !ok {
		return false
	}
	delete(s.orders, order)
	return true
}

// Toggle flips order and returns whether it is selected afterwards.
func (s *Selection) Toggle(order int) bool {
	if s.Deselect(order) {
		return false
	}
	s.Select(order)
	return true
}

func (s *Selection) Contains(order int) bool {
	_, ok := s.orders[order]
	return ok
}

func (s *Selection) Len() int    { return len(s.orders) }
func (s *Selection) Empty() bool { return len(s.orders) == 0 }

// Orders returns the selected orders ascending. The slice is a copy.
func (s *Selection) Orders() []int {
	return slices.Sorted(maps.Keys(s.orders))
}

// Prune drops every member not in valid and returns the dropped orders
// ascending.
func (s *Selection) Prune(valid []int) []int {
	keep := make(map[int]struct{}, len(valid))
	for _, o := range valid {
		keep[o] = struct{}{}
	}

	var dropped []int
	for o := range s.orders {
		if _, ok := keep[o]; !ok {
			dropped = append(dropped, o)
			delete(s.orders, o)
		}
	}
	slices.Sort(dropped)
	return dropped
}

func (s *Selection) Clear() {
	clear(s.orders)
}
