// Package idgen issues the numeric identifiers assigned to requests.
package idgen

import (
	"math"
	"sync/atomic"
)

// Allocator hands out monotonically increasing positive ids. When the counter
// reaches math.MaxInt32 it wraps to zero before incrementing, so issued ids
// restart at 1. Zero is never returned by Next.
//
// The zero value is ready to use and starts issuing at 1.
type Allocator struct {
	current atomic.Int32
}

// New returns an allocator whose next id is seed+1.
func New(seed int32) *Allocator {
	a := &Allocator{}
	a.Init(seed)
	return a
}

// Init resets the counter to seed. Negative seeds are clamped to zero.
func (a *Allocator) Init(seed int32) {
	if seed < 0 {
		seed = 0
	}
	a.current.Store(seed)
}

// Next advances the counter and returns the new value.
func (a *Allocator) Next() int32 {
	for {
		prev := a.current.Load()
		next := prev + 1
		if prev == math.MaxInt32 {
			next = 1
		}
		if a.current.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Snapshot returns the last issued value without advancing the counter.
func (a *Allocator) Snapshot() int32 {
	return a.current.Load()
}
