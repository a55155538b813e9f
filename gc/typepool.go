// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"sync"

	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

// TypePool hands out *gcfmt.Header descriptors from a pool that the
// collectors never move. Descriptors are reference counted: FreeType drops a
// reference and the backing Header is only released once the count
// reaches zero, because code allocations and live objects keep pointing at
// their Header for the lifetime of the allocation.
type TypePool struct {
	mu    sync.Mutex
	live  map[*gcfmt.Header]int
}

// NewTypePool returns an empty pool. Each Arena implementation owns one.
func NewTypePool() *TypePool {
	return &TypePool{live: make(map[*gcfmt.Header]int)}
}

// Alloc builds a new Header, pins it in the pool with a reference count of
// one and returns it.
func (p *TypePool) Alloc(kind gcfmt.Kind, userType interface{}, stride uintptr, ptrOffsets []uintptr) *gcfmt.Header {
	h := &gcfmt.Header{
		Kind:     kind,
		Stride:   stride,
		Ptrs:     append([]uintptr(nil), ptrOffsets...),
		UserType: userType,
	}
	p.mu.Lock()
	p.live[h] = 1
	p.mu.Unlock()
	return h
}

// Retain bumps the reference count of a Header the pool owns; a Header it
// does not own is ignored. The arenas' SwitchType does not call it.
func (p *TypePool) Retain(h *gcfmt.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.live[h]; ok {
		p.live[h]++
	}
}

// Free drops a reference to h, removing it from the pool once nothing else
// refers to it. Freeing a Header that the pool does not own is a silent
// no-op.
func (p *TypePool) Free(h *gcfmt.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.live[h]
	if !ok {
		return
	}
	if n <= 1 {
		delete(p.live, h)
		return
	}
	p.live[h] = n - 1
}

// Len reports the number of distinct Headers currently pinned, used by
// MemorySummary.PerPool["types"].
func (p *TypePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}
