// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import "sync/atomic"

// Watch implements the versioned-history "has this object moved since I
// last looked" query. Rather than pin the object (which
// would defeat a moving collector), a Watch records the generation counter
// at creation time and compares it against the arena's current generation;
// Moved reports true once a collection has run that could have relocated
// the watched object.
//
// The zero value is not usable; callers get a *Watch from Arena.CreateWatch.
type Watch struct {
	gen     *atomic.Uint64
	created uint64
}

// newWatch snapshots the arena's current generation. Arena implementations
// call this from their CreateWatch method.
func newWatch(gen *atomic.Uint64) *Watch {
	return &Watch{gen: gen, created: gen.Load()}
}

// Moved reports whether a collection has completed since w was created (or
// since the last call to Reset).
func (w *Watch) Moved() bool {
	return w.gen.Load() != w.created
}

// Reset rearms the watch against the current generation.
func (w *Watch) Reset() {
	w.created = w.gen.Load()
}

// Generation is embedded by each Arena implementation and bumped once per
// completed collection cycle; it is the shared counter behind Watch's
// staleness check.
type Generation struct {
	counter atomic.Uint64
}

// Bump advances the generation, invalidating every outstanding Watch taken
// against it.
func (g *Generation) Bump() { g.counter.Add(1) }

// Load returns the current generation value.
func (g *Generation) Load() uint64 { return g.counter.Load() }

// Watch arms a new Watch against this generation.
func (g *Generation) Watch() *Watch { return newWatch(&g.counter) }
