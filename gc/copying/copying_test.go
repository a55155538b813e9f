// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package copying

import (
	"testing"
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gc"
	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

func newTestArena(t *testing.T) *Arena {
	t.Helper()
	a, err := New(1 << 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.AttachThread(); err != nil {
		t.Fatalf("AttachThread: %v", err)
	}
	return a
}

func countLive(t *testing.T, a *Arena) int {
	t.Helper()
	n := 0
	if err := a.WalkObjects(func(unsafe.Pointer) error { n++; return nil }); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestAllocRequiresAttach(t *testing.T) {
	a, err := New(1 << 16)
	if err != nil {
		t.Fatal(err)
	}
	h := &gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8}
	_, err = a.Alloc(h)
	if _, ok := err.(*gc.ThreadNotRegisteredError); !ok {
		t.Fatalf("Alloc before attach = %v, want ThreadNotRegisteredError", err)
	}
}

// TestCollectMovesRootedObjectAndReclaimsTheRest checks that a
// collection changes a surviving object's address, reclaims garbage,
// updates roots to the new address, and preserves content across the
// move.
func TestCollectMovesRootedObjectAndReclaimsTheRest(t *testing.T) {
	a := newTestArena(t)
	h := &gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8}

	kept, err := a.Alloc(h)
	if err != nil {
		t.Fatal(err)
	}
	*(*int64)(kept) = 0x2a2a2a2a
	if _, err := a.Alloc(h); err != nil {
		t.Fatal(err) // garbage, never rooted
	}

	var rootSlot unsafe.Pointer = kept
	root, err := a.CreateRoot(unsafe.Pointer(&rootSlot), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	defer a.DestroyRoot(root)

	if got := countLive(t, a); got != 2 {
		t.Fatalf("before collect: %d live objects, want 2", got)
	}

	w := a.CreateWatch()
	if err := a.Collect(); err != nil {
		t.Fatal(err)
	}
	if !w.Moved() {
		t.Error("a Watch taken before Collect should report moved afterwards")
	}

	if got := countLive(t, a); got != 1 {
		t.Fatalf("after collect: %d live objects, want 1 (the unrooted one is gone)", got)
	}
	if rootSlot == kept {
		t.Error("the root's referent should have a new address after Collect")
	}
	if got := *(*int64)(rootSlot); got != 0x2a2a2a2a {
		t.Errorf("surviving object's contents = %#x, want 0x2a2a2a2a", got)
	}
}

// TestCollectMarksThroughPointerChain exercises the scan convergence loop
// (gcfmt.Objects over a growing to-space) by rooting only the head of a
// two-object chain.
func TestCollectMarksThroughPointerChain(t *testing.T) {
	a := newTestArena(t)
	h := &gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8, Ptrs: []uintptr{0}}

	leaf, err := a.Alloc(h)
	if err != nil {
		t.Fatal(err)
	}
	*(*int64)(leaf) = 7

	mid, err := a.Alloc(h)
	if err != nil {
		t.Fatal(err)
	}
	*(*unsafe.Pointer)(mid) = leaf

	var rootSlot unsafe.Pointer = mid
	root, err := a.CreateRoot(unsafe.Pointer(&rootSlot), 1, false)
	if err != nil {
		t.Fatal(err)
	}
	defer a.DestroyRoot(root)

	if err := a.Collect(); err != nil {
		t.Fatal(err)
	}
	if got := countLive(t, a); got != 2 {
		t.Fatalf("after collect: %d live objects, want 2 (mid and leaf both reachable)", got)
	}

	newLeaf := *(*unsafe.Pointer)(rootSlot)
	if got := *(*int64)(newLeaf); got != 7 {
		t.Errorf("leaf contents after move = %d, want 7", got)
	}
}

// TestFinalizerGetsOneExtraLife mirrors gc/marksweep's equivalent test,
// exercised here across a semispace flip instead of an in-place sweep.
func TestFinalizerGetsOneExtraLife(t *testing.T) {
	a := newTestArena(t)
	ran := make(chan unsafe.Pointer, 1)
	h := &gcfmt.Header{
		Kind:      gcfmt.KindFixed,
		Stride:    8,
		Finalizer: func(client unsafe.Pointer) { ran <- client },
	}

	if _, err := a.Alloc(h); err != nil {
		t.Fatal(err)
	}

	if err := a.Collect(); err != nil {
		t.Fatal(err)
	}
	if got := countLive(t, a); got != 1 {
		t.Fatalf("after first collect: %d live objects, want 1 (reprieved for finalization)", got)
	}

	finalized := <-ran
	if !gcfmt.IsFinalized(finalized) {
		t.Error("reprieved object should be marked finalized")
	}

	if err := a.Collect(); err != nil {
		t.Fatal(err)
	}
	if got := countLive(t, a); got != 0 {
		t.Fatalf("after second collect: %d live objects, want 0", got)
	}
}

func TestAllocCodeRoundTrip(t *testing.T) {
	a := newTestArena(t)
	client, err := a.AllocCode(32, 2)
	if err != nil {
		t.Fatal(err)
	}
	if gcfmt.CodeLen(client) != 32 {
		t.Errorf("CodeLen = %d, want 32", gcfmt.CodeLen(client))
	}
	trailer := gcfmt.CodeTrailer(client)
	if trailer == nil || len(trailer.Refs) != 2 {
		t.Fatalf("CodeTrailer = %+v, want 2 refs", trailer)
	}
}

func TestMemorySummaryAccounting(t *testing.T) {
	a := newTestArena(t)
	h := &gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8}
	if _, err := a.AllocStatic(h); err != nil {
		t.Fatal(err)
	}
	if _, err := a.AllocBuffer(100); err != nil {
		t.Fatal(err)
	}
	sum := a.MemorySummary()
	if sum.PerPool["static"] == 0 {
		t.Error("expected static pool accounting to be non-zero")
	}
	if sum.PerPool["buffer"] == 0 {
		t.Error("expected buffer pool accounting to be non-zero")
	}
	if sum.Used == 0 {
		t.Error("expected nonzero Used after allocating")
	}
}

// TestWeakArraySplatOnCollect: a weak slot holding the only reference to
// an object reads nil after a flip (the referent was never evacuated),
// while a slot whose referent is also strongly rooted follows the move.
func TestWeakArraySplatOnCollect(t *testing.T) {
	a := newTestArena(t)
	h := &gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8}

	doomed, err := a.Alloc(h)
	if err != nil {
		t.Fatal(err)
	}
	kept, err := a.Alloc(h)
	if err != nil {
		t.Fatal(err)
	}
	*(*int64)(kept) = 99

	wa, err := a.AllocWeakArray(2)
	if err != nil {
		t.Fatal(err)
	}
	slots := (*[2]unsafe.Pointer)(unsafe.Pointer(uintptr(wa) + 2*gcfmt.WordSize))
	slots[0] = doomed
	slots[1] = kept

	rootSlots := [2]unsafe.Pointer{wa, kept}
	root, err := a.CreateRoot(unsafe.Pointer(&rootSlots), 2, false)
	if err != nil {
		t.Fatal(err)
	}
	defer a.DestroyRoot(root)

	if err := a.Collect(); err != nil {
		t.Fatal(err)
	}

	newWa := rootSlots[0]
	newSlots := (*[2]unsafe.Pointer)(unsafe.Pointer(uintptr(newWa) + 2*gcfmt.WordSize))
	if newSlots[0] != nil {
		t.Error("weakly referenced object should have been splatted to nil")
	}
	if newSlots[1] != rootSlots[1] {
		t.Error("strong referent's weak slot should follow the evacuated object")
	}
	if got := *(*int64)(newSlots[1]); got != 99 {
		t.Errorf("surviving referent's contents = %d, want 99", got)
	}
	if got := gcfmt.WeakSplatted(newWa); got < 1 {
		t.Errorf("WeakSplatted = %d, want >= 1", got)
	}
}

// TestAllocStaticIsStableAcrossCollect: static allocations never move,
// and their pointer fields still keep heap objects alive.
func TestAllocStaticIsStableAcrossCollect(t *testing.T) {
	a := newTestArena(t)
	ptrH := &gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8, Ptrs: []uintptr{0}}

	static, err := a.AllocStatic(ptrH)
	if err != nil {
		t.Fatal(err)
	}
	heapObj, err := a.Alloc(&gcfmt.Header{Kind: gcfmt.KindFixed, Stride: 8})
	if err != nil {
		t.Fatal(err)
	}
	*(*int64)(heapObj) = 7
	*(*unsafe.Pointer)(static) = heapObj

	if err := a.Collect(); err != nil {
		t.Fatal(err)
	}

	moved := *(*unsafe.Pointer)(static)
	if moved == heapObj {
		t.Error("heap referent should have been evacuated to a new address")
	}
	if got := *(*int64)(moved); got != 7 {
		t.Errorf("referent contents after move = %d, want 7", got)
	}
}
