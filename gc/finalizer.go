// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"sync"
	"unsafe"
)

// finBlockSize mirrors the runtime's _FinBlockSize: finalizer entries are
// queued in fixed-size blocks rather than one allocation per entry, so a
// finalizer storm does not thrash the allocator that is, itself, trying to
// recover from being nearly full.
const finBlockSize = 32

type finalizerEntry struct {
	fn  func(unsafe.Pointer)
	arg unsafe.Pointer
}

type finBlock struct {
	next *finBlock
	cnt  int
	fin  [finBlockSize]finalizerEntry
}

// FinalizationQueue is an MPSC queue: any number of collector goroutines
// enqueue (Queue), a single worker goroutine drains it (Run). Modeled on mfinal.go's finq /
// finc block list; unlike the runtime we don't need a pointer-mask for the
// GC since Go's own collector already knows how to scan finalizerEntry.
type FinalizationQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending *finBlock // blocks awaiting the worker
	free    *finBlock // cache of drained blocks, avoids reallocating
	closed  bool
}

// NewFinalizationQueue returns an empty queue.
func NewFinalizationQueue() *FinalizationQueue {
	q := &FinalizationQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Queue appends a finalizer invocation. Safe to call from any number of
// goroutines, including from inside a stop-the-world collection pause —
// it never allocates once free blocks exist.
func (q *FinalizationQueue) Queue(fn func(unsafe.Pointer), arg unsafe.Pointer) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending == nil || q.pending.cnt == finBlockSize {
		var b *finBlock
		if q.free != nil {
			b = q.free
			q.free = b.next
			b.cnt = 0
		} else {
			b = &finBlock{}
		}
		b.next = q.pending
		q.pending = b
	}
	b := q.pending
	b.fin[b.cnt] = finalizerEntry{fn: fn, arg: arg}
	b.cnt++
	q.cond.Signal()
}

// Drain runs every queued finalizer synchronously on the calling
// goroutine, blocks that are emptied are returned to the free cache. It
// returns the number of finalizers run.
func (q *FinalizationQueue) Drain() int {
	q.mu.Lock()
	blocks := q.pending
	q.pending = nil
	q.mu.Unlock()

	ran := 0
	for b := blocks; b != nil; {
		next := b.next
		for i := 0; i < b.cnt; i++ {
			e := b.fin[i]
			e.fn(e.arg)
			ran++
		}
		q.mu.Lock()
		b.next = q.free
		q.free = b
		q.mu.Unlock()
		b = next
	}
	return ran
}

// Run drains the queue in a loop until Close is called, blocking between
// bursts. Intended to run on its own goroutine, one per Arena, matching
// the runtime's single "fing" finalizer goroutine.
func (q *FinalizationQueue) Run() {
	for {
		q.mu.Lock()
		for q.pending == nil && !q.closed {
			q.cond.Wait()
		}
		closed := q.closed
		q.mu.Unlock()
		q.Drain()
		if closed {
			return
		}
	}
}

// Close unblocks a goroutine parked in Run. Any finalizers queued after
// Close is called are never run.
func (q *FinalizationQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
