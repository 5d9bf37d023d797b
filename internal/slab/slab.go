// File: internal/slab/slab.go
// Author: momentics <momentics@gmail.com>
//
// Package slab implements a slot arena with index reuse. Each slot carries a
// generation counter so a token minted before a slot was recycled no longer
// resolves once the slot is handed to a new occupant.

package slab

import (
	"container/heap"
	"math"

	"github.com/momentics/hioload-logrelay/api"
)

type entry[T any] struct {
	value    T
	gen      uint32
	occupied bool
}

// Slab maps tokens to values. Indices start at base and the lowest free
// index is always reused first. Not safe for concurrent use.
type Slab[T any] struct {
	base    uint32
	entries []entry[T]
	free    freeList
	live    int
}

// New creates a slab whose first token index is base.
func New[T any](base uint32, capacity int) *Slab[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Slab[T]{
		base:    base,
		entries: make([]entry[T], 0, capacity),
	}
}

// Insert stores v in the lowest free slot and returns its token.
func (s *Slab[T]) Insert(v T) (api.Token, error) {
	if s.free.Len() > 0 {
		i := heap.Pop(&s.free).(int)
		e := &s.entries[i]
		e.value = v
		e.occupied = true
		s.live++
		return api.NewToken(s.base+uint32(i), e.gen), nil
	}
	if uint64(s.base)+uint64(len(s.entries)) > math.MaxUint32 {
		return api.InvalidToken, api.ErrResourceExhausted
	}
	s.entries = append(s.entries, entry[T]{value: v, occupied: true})
	s.live++
	return api.NewToken(s.base+uint32(len(s.entries)-1), 0), nil
}

func (s *Slab[T]) lookup(tok api.Token) (*entry[T], int, bool) {
	idx := tok.Index()
	if idx < s.base {
		return nil, 0, false
	}
	i := int(idx - s.base)
	if i >= len(s.entries) {
		return nil, 0, false
	}
	e := &s.entries[i]
	if !e.occupied || e.gen != tok.Generation() {
		return nil, 0, false
	}
	return e, i, true
}

// Get returns the value for tok if the token is live.
func (s *Slab[T]) Get(tok api.Token) (T, bool) {
	e, _, ok := s.lookup(tok)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Contains reports whether tok names a live slot.
func (s *Slab[T]) Contains(tok api.Token) bool {
	_, _, ok := s.lookup(tok)
	return ok
}

// Remove vacates the slot for tok and returns its previous value.
func (s *Slab[T]) Remove(tok api.Token) (T, bool) {
	e, i, ok := s.lookup(tok)
	if !ok {
		var zero T
		return zero, false
	}
	v := e.value
	var zero T
	e.value = zero
	e.occupied = false
	e.gen++
	heap.Push(&s.free, i)
	s.live--
	return v, true
}

// Len returns the number of live slots.
func (s *Slab[T]) Len() int { return s.live }

// Range calls fn for every live slot in index order until fn returns false.
func (s *Slab[T]) Range(fn func(api.Token, T) bool) {
	for i := range s.entries {
		e := &s.entries[i]
		if !e.occupied {
			continue
		}
		if !fn(api.NewToken(s.base+uint32(i), e.gen), e.value) {
			return
		}
	}
}

// freeList is a min-heap of vacant slot offsets.
type freeList []int

func (f freeList) Len() int           { return len(f) }
func (f freeList) Less(i, j int) bool { return f[i] < f[j] }
func (f freeList) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *freeList) Push(x any)        { *f = append(*f, x.(int)) }
func (f *freeList) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}
