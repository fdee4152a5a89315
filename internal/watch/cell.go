// Package watch turns push-based account notifications into continuously
// updated "latest decoded value" views with explicit lifecycles.
package watch

import "sync/atomic"

// Cell is a single-slot holder of the latest decoded value. Writes replace
// the value wholesale via an atomic pointer swap, so readers never block the
// writer or each other and never observe a partial value. No history is kept.
type Cell[T any] struct {
	p atomic.Pointer[T]
}

// NewCell creates a cell seeded with an initial value, so a reader never
// sees an empty cell after construction.
func NewCell[T any](initial T) *Cell[T] {
	c := &Cell[T]{}
	c.p.Store(&initial)
	return c
}

// Load returns the most recently stored value. Never blocks.
func (c *Cell[T]) Load() T {
	return *c.p.Load()
}

// Store replaces the held value.
func (c *Cell[T]) Store(v T) {
	c.p.Store(&v)
}
