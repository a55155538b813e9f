// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcfmt

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// KindCode is reported by ObjKind for code allocations, which have no
// Header (their classification lives entirely in the info word's tag bit).
const KindCode Kind = 0xff

const arrayHeaderSize = 2 * WordSize

func wordAlign(n uintptr) uintptr {
	return (n + WordSize - 1) &^ (WordSize - 1)
}

func headerWordAddr(client unsafe.Pointer) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(client) - WordSize))
}

func readInfo(client unsafe.Pointer) info {
	return info(atomic.LoadUintptr(headerWordAddr(client)))
}

func storeInfo(client unsafe.Pointer, v info) {
	atomic.StoreUintptr(headerWordAddr(client), uintptr(v))
}

func casInfo(client unsafe.Pointer, old, new info) bool {
	return atomic.CompareAndSwapUintptr(headerWordAddr(client), uintptr(old), uintptr(new))
}

func wordAt(client unsafe.Pointer, offset uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(uintptr(client) + offset))
}

func zero(base unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(base), n)
	for i := range b {
		b[i] = 0
	}
}

// ObjKind reports the classification of the object at client, including
// the pseudo-kind KindCode for code allocations.
func ObjKind(client unsafe.Pointer) Kind {
	i := readInfo(client)
	if i.isCode() {
		return KindCode
	}
	return i.header().Kind
}

// HeaderOf returns the Header describing client, or nil for a code
// allocation.
func HeaderOf(client unsafe.Pointer) *Header {
	i := readInfo(client)
	if i.isCode() {
		return nil
	}
	return i.header()
}

// Size returns, in constant time, the total size of the allocation at
// client, including its one-word header.
func Size(client unsafe.Pointer) uintptr {
	i := readInfo(client)
	if i.isCode() {
		// code bytes + word alignment + one word holding the GcCode
		// trailer's indirection pointer (see code.go).
		return WordSize + wordAlign(i.codeLength()) + WordSize
	}
	h := i.header()
	switch h.Kind {
	case kindPad0:
		return WordSize
	case kindPad:
		return *wordAt(client, 0)
	case kindFwd1:
		return 2 * WordSize
	case kindFwd:
		return *wordAt(client, WordSize)
	case KindArray:
		count := *wordAt(client, 0)
		return WordSize + arrayHeaderSize + count*h.Stride
	case KindWeakArray:
		count := *wordAt(client, 0) >> 1
		return WordSize + arrayHeaderSize + count*h.Stride
	default:
		// Fixed, FixedObj, Type, and the reserved gcType/gcTypeFwd kinds
		// (see DESIGN.md) are all one fixed-size stride.
		return WordSize + wordAlign(h.Stride)
	}
}

// Skip returns client's successor: the client pointer of whatever
// immediately follows this allocation in a contiguous region.
func Skip(client unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(client) + Size(client))
}

// IsFwd reports whether client has been overwritten with a forwarder, and
// if so, the client pointer it now refers to.
func IsFwd(client unsafe.Pointer) (unsafe.Pointer, bool) {
	i := readInfo(client)
	if i.isCode() {
		return nil, false
	}
	switch i.header().Kind {
	case kindFwd1, kindFwd:
		return unsafe.Pointer(*wordAt(client, 0)), true
	default:
		return nil, false
	}
}

// MakeFwd overwrites the object at client in place with a forwarder to
// newClient, preserving enough of the original size that Skip can still
// walk past it. The caller must already hold whatever exclusion the GC
// implementation requires: plain stores inside a stop-the-world window,
// CAS otherwise.
func MakeFwd(client, newClient unsafe.Pointer) error {
	size := Size(client)
	switch {
	case size < 2*WordSize:
		return fmt.Errorf("gcfmt: object at %p too small (%d bytes) to forward", client, size)
	case size == 2*WordSize:
		storeInfo(client, makeHeaderInfo(headerFwd1, false))
		*wordAt(client, 0) = uintptr(newClient)
	default:
		storeInfo(client, makeHeaderInfo(headerFwd, false))
		*wordAt(client, 0) = uintptr(newClient)
		*wordAt(client, WordSize) = size
	}
	return nil
}

// MakePad overwrites the object at client in place with padding occupying
// exactly totalBytes (header included). Required at any gap produced
// during compaction.
func MakePad(client unsafe.Pointer, totalBytes uintptr) error {
	switch {
	case totalBytes == WordSize:
		storeInfo(client, makeHeaderInfo(headerPad0, false))
	case totalBytes >= 2*WordSize:
		storeInfo(client, makeHeaderInfo(headerPad, false))
		*wordAt(client, 0) = totalBytes
	default:
		return fmt.Errorf("gcfmt: %d bytes too small for any padding object", totalBytes)
	}
	return nil
}

// InitObj zeroes the allocation at base and initializes it as a Fixed,
// FixedObj or Type object described by h, returning the client pointer.
func InitObj(base unsafe.Pointer, h *Header) unsafe.Pointer {
	total := WordSize + wordAlign(h.Stride)
	zero(base, total)
	client := unsafe.Pointer(uintptr(base) + WordSize)
	storeInfo(client, makeHeaderInfo(h, false))
	return client
}

// InitArray zeroes the allocation at base and initializes it as an Array
// of count elements of h.Stride bytes each.
func InitArray(base unsafe.Pointer, h *Header, count uintptr) unsafe.Pointer {
	total := WordSize + arrayHeaderSize + count*h.Stride
	zero(base, total)
	client := unsafe.Pointer(uintptr(base) + WordSize)
	storeInfo(client, makeHeaderInfo(h, false))
	*wordAt(client, 0) = count
	return client
}

// InitWeakArray is like InitArray, but tags the count in its low bit so a
// scanner can tell a weak header's count field apart from a splat in
// progress.
func InitWeakArray(base unsafe.Pointer, h *Header, count uintptr) unsafe.Pointer {
	total := WordSize + arrayHeaderSize + count*h.Stride
	zero(base, total)
	client := unsafe.Pointer(uintptr(base) + WordSize)
	storeInfo(client, makeHeaderInfo(h, false))
	*wordAt(client, 0) = count<<1 | 1
	return client
}

// WeakCount returns the element count of a weak array.
func WeakCount(client unsafe.Pointer) uintptr {
	return *wordAt(client, 0) >> 1
}

// WeakSplatted returns how many slots have been splatted (nulled because
// their referent died) since the array was created.
func WeakSplatted(client unsafe.Pointer) uintptr {
	return *wordAt(client, WordSize) >> 1
}

// WeakSplat records that one more slot of a weak array was nulled.
func WeakSplat(client unsafe.Pointer) {
	for {
		old := *wordAt(client, WordSize)
		next := (old&^1 + 2) | 1
		if atomic.CompareAndSwapUintptr(wordAt(client, WordSize), old, next) {
			return
		}
	}
}

// InitGcType initializes a client object whose body holds a type
// descriptor, tagged with the internal gcType kind so a future moving
// type pool could scan it. The bundled gc.Arena implementations keep
// type descriptors in a non-moving Go-native pool and do not exercise
// this path directly.
func InitGcType(base unsafe.Pointer, descriptorSize uintptr) unsafe.Pointer {
	total := WordSize + wordAlign(descriptorSize)
	zero(base, total)
	client := unsafe.Pointer(uintptr(base) + WordSize)
	storeInfo(client, makeHeaderInfo(headerGcType, false))
	return client
}

// SetFinalized marks client as having run its finalizer; weak-array
// scanning treats such objects as dead even while they remain transiently
// alive.
func SetFinalized(client unsafe.Pointer) {
	for {
		old := readInfo(client)
		if old.isCode() {
			return
		}
		if old.isFinalized() {
			return
		}
		if casInfo(client, old, old|infoFinalizedFlag) {
			return
		}
	}
}

// ClearFinalized clears the finalized mark, used when a finalizer
// resurrects its object.
func ClearFinalized(client unsafe.Pointer) {
	for {
		old := readInfo(client)
		if old.isCode() || !old.isFinalized() {
			return
		}
		if casInfo(client, old, old&^infoFinalizedFlag) {
			return
		}
	}
}

// IsFinalized reports whether client's finalized mark is set.
func IsFinalized(client unsafe.Pointer) bool {
	return readInfo(client).isFinalized()
}

// SetHeader installs newHeader on client, preserving whatever finalized
// bit is already set. It is the mechanism behind the GC backends'
// switchType: the caller is responsible for verifying newHeader's Kind and
// Stride are compatible with the allocation's existing size, since a
// header switch may only change identity, never size or kind.
func SetHeader(client unsafe.Pointer, newHeader *Header) error {
	old := readInfo(client)
	if old.isCode() {
		return fmt.Errorf("gcfmt: cannot switch the type of a code allocation")
	}
	finalized := old.isFinalized()
	storeInfo(client, makeHeaderInfo(newHeader, finalized))
	return nil
}

// Traverse calls fn once for every pointer-sized slot inside the object at
// client. fn may rewrite the slot in place.
func Traverse(client unsafe.Pointer, fn func(slot *unsafe.Pointer)) {
	i := readInfo(client)
	if i.isCode() {
		return // code allocations are walked by package gccode, not here.
	}
	h := i.header()
	switch h.Kind {
	case KindFixed, KindFixedObj, KindType:
		for _, off := range h.Ptrs {
			fn((*unsafe.Pointer)(unsafe.Pointer(uintptr(client) + off)))
		}
	case KindArray:
		count := *wordAt(client, 0)
		base := uintptr(client) + arrayHeaderSize
		for e := uintptr(0); e < count; e++ {
			for _, off := range h.Ptrs {
				fn((*unsafe.Pointer)(unsafe.Pointer(base + e*h.Stride + off)))
			}
		}
	case KindWeakArray:
		count := *wordAt(client, 0) >> 1
		base := uintptr(client) + arrayHeaderSize
		for e := uintptr(0); e < count; e++ {
			for _, off := range h.Ptrs {
				fn((*unsafe.Pointer)(unsafe.Pointer(base + e*h.Stride + off)))
			}
		}
	default:
		// pad/fwd/gcType kinds carry no client pointers.
	}
}
