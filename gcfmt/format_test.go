// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcfmt

import (
	"testing"
	"unsafe"
)

// arena is a plain Go-backed memory region used only to exercise the
// format's pointer arithmetic in tests; the real allocators in package gc
// back client memory with OS pages (see gc/platform).
type arena struct {
	buf []byte
}

func newArena(n int) *arena {
	return &arena{buf: make([]byte, n)}
}

func (a *arena) base() unsafe.Pointer {
	return unsafe.Pointer(&a.buf[0])
}

func TestSizeAndSkipFixed(t *testing.T) {
	a := newArena(256)
	h := &Header{Kind: KindFixed, Stride: 24, Ptrs: []uintptr{0, 8}}
	client := InitObj(a.base(), h)

	if got, want := Size(client), WordSize+24; got != want {
		t.Errorf("Size = %d, want %d", got, want)
	}
	next := Skip(client)
	if uintptr(next) != uintptr(client)+Size(client) {
		t.Errorf("Skip mismatch")
	}
}

func TestForwarderPreservesWalkability(t *testing.T) {
	a := newArena(256)
	h := &Header{Kind: KindFixed, Stride: 32}
	obj1 := InitObj(a.base(), h)
	size1 := Size(obj1)

	obj2Base := unsafe.Pointer(uintptr(a.base()) + size1)
	obj2 := InitObj(obj2Base, h)

	newHome := unsafe.Pointer(uintptr(0x1000))
	if err := MakeFwd(obj1, newHome); err != nil {
		t.Fatal(err)
	}

	if got, ok := IsFwd(obj1); !ok || got != newHome {
		t.Fatalf("IsFwd = %v, %v; want %v, true", got, ok, newHome)
	}
	// Property 3: Skip must still land exactly on the next real object.
	if next := Skip(obj1); next != obj2 {
		t.Errorf("Skip(forwarded) = %p, want %p", next, obj2)
	}
	if ObjKind(obj2) != KindFixed {
		t.Errorf("obj2 corrupted by forwarder installation")
	}
}

func TestMakePadRoundTrip(t *testing.T) {
	a := newArena(256)
	h := &Header{Kind: KindFixed, Stride: 40}
	obj := InitObj(a.base(), h)
	size := Size(obj)

	if err := MakePad(obj, size); err != nil {
		t.Fatal(err)
	}
	if got := Size(obj); got != size {
		t.Errorf("padded size = %d, want %d", got, size)
	}
	if ObjKind(obj) != kindPad {
		t.Errorf("expected Pad kind")
	}
}

func TestWeakArraySplat(t *testing.T) {
	a := newArena(256)
	h := &Header{Kind: KindWeakArray, Stride: WordSize, Ptrs: []uintptr{0}}
	client := InitWeakArray(a.base(), h, 3)

	if got := WeakCount(client); got != 3 {
		t.Fatalf("WeakCount = %d, want 3", got)
	}

	target := unsafe.Pointer(uintptr(0xdead))
	slot := 0
	Traverse(client, func(s *unsafe.Pointer) {
		if slot == 0 {
			*s = target
		}
		slot++
	})

	// Simulate a collector that kills the referent: Fix1 says "in range",
	// Fix2 nulls the slot.
	sc := deadScanner{target: target}
	if err := Objects(sc, nil, 0, client, Skip(client)); err != nil {
		t.Fatal(err)
	}
	if got := WeakSplatted(client); got != 1 {
		t.Errorf("WeakSplatted = %d, want 1", got)
	}
	var first unsafe.Pointer
	slot = 0
	Traverse(client, func(s *unsafe.Pointer) {
		if slot == 0 {
			first = *s
		}
		slot++
	})
	if first != nil {
		t.Errorf("weak slot should read nil after splat, got %p", first)
	}
}

type deadScanner struct{ target unsafe.Pointer }

func (d deadScanner) Fix1(p unsafe.Pointer) bool { return p == d.target }
func (d deadScanner) Fix2(slot *unsafe.Pointer) error {
	*slot = nil
	return nil
}

func TestFinalizedRoundTrip(t *testing.T) {
	a := newArena(256)
	h := &Header{Kind: KindFixed, Stride: 8}
	client := InitObj(a.base(), h)

	if IsFinalized(client) {
		t.Fatal("fresh object should not be finalized")
	}
	SetFinalized(client)
	if !IsFinalized(client) {
		t.Fatal("SetFinalized did not take effect")
	}
	if ObjKind(client) != KindFixed {
		t.Fatal("finalized flag corrupted the kind")
	}
	ClearFinalized(client)
	if IsFinalized(client) {
		t.Fatal("ClearFinalized did not take effect (property 6: may be re-invoked)")
	}
}

func TestCodeAllocationSizeAndTrailer(t *testing.T) {
	a := newArena(256)
	trailer := &GcCode{Refs: []CodeRef{{Kind: RefRawPtr, Offset: 4}}}
	client := InitCode(a.base(), 10, trailer)

	if CodeLen(client) != 10 {
		t.Errorf("CodeLen = %d, want 10", CodeLen(client))
	}
	got := CodeTrailer(client)
	if got != trailer {
		t.Fatalf("CodeTrailer mismatch")
	}
	if got.Reserved != client {
		t.Errorf("trailer.Reserved = %p, want %p", got.Reserved, client)
	}
	wantSize := WordSize + wordAlign(10) + WordSize
	if Size(client) != wantSize {
		t.Errorf("code Size = %d, want %d", Size(client), wantSize)
	}
}
