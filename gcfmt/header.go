// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcfmt implements the object format shared by every GC backend in
// package gc: the one-word header placed immediately before each client
// pointer, the classification of objects it encodes, and the scanning
// dispatch that walks pointers inside an object.
//
// Every Header is a distinct heap allocation that the runtime already
// aligns to at least the pointer size, so the low two bits of the info
// word (code-allocation, finalized) are free for tagging.
package gcfmt

import (
	"fmt"
	"unsafe"
)

// WordSize is the size of one machine word: the size of the info header
// itself, and the unit objects are aligned to.
const WordSize = unsafe.Sizeof(uintptr(0))

// Kind classifies a Header. Fixed/FixedObj/Type/Array/WeakArray are the
// client-visible kinds; Pad0/Pad/Fwd1/Fwd/GcType/GcTypeFwd are
// internal bookkeeping kinds the scanner never reports to client code.
type Kind uint8

const (
	KindFixed Kind = iota
	KindFixedObj
	KindType
	KindArray
	KindWeakArray

	kindPad0
	kindPad
	kindFwd1
	kindFwd
	kindGcType
	kindGcTypeFwd
)

func (k Kind) String() string {
	switch k {
	case KindFixed:
		return "Fixed"
	case KindFixedObj:
		return "FixedObj"
	case KindType:
		return "Type"
	case KindArray:
		return "Array"
	case KindWeakArray:
		return "WeakArray"
	case kindPad0:
		return "Pad0"
	case kindPad:
		return "Pad"
	case kindFwd1:
		return "Fwd1"
	case kindFwd:
		return "Fwd"
	case kindGcType:
		return "GcType"
	case kindGcTypeFwd:
		return "GcTypeFwd"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Header is the immutable descriptor that classifies every non-code
// allocation. A pointer to one is stored in the info word in front of the
// client pointer. Header instances are never moved or scanned themselves;
// they are owned by the semi-managed type pool in package gc.
type Header struct {
	Kind Kind

	// Stride is the size in bytes of one element: the whole object for
	// Fixed/FixedObj/Type, one element for Array/WeakArray.
	Stride uintptr

	// Ptrs lists the byte offsets, within one Stride, of pointer-sized
	// fields the scanner must fix.
	Ptrs []uintptr

	// HasVTable marks the offset-0 vtable/itable pointer slot used by
	// FixedObj and Type; false for Fixed/Array/WeakArray.
	HasVTable bool

	// Finalizer, if non-nil, is invoked by the backend's finalization
	// drain when an object of this type becomes unreachable.
	Finalizer func(client unsafe.Pointer)

	// UserType is an opaque back-reference to the front-end's own Type
	// object; the format never inspects it.
	UserType interface{}
}

// Pre-allocated internal headers. There is exactly one of each: they carry
// no per-instance data. A pad's size or a forwarder's target lives in the
// object's own body, immediately after the header word.
var (
	headerPad0      = &Header{Kind: kindPad0}
	headerPad       = &Header{Kind: kindPad}
	headerFwd1      = &Header{Kind: kindFwd1}
	headerFwd       = &Header{Kind: kindFwd}
	headerGcType    = &Header{Kind: kindGcType}
	headerGcTypeFwd = &Header{Kind: kindGcTypeFwd}
)

// info is the raw header word stored immediately before a client pointer.
//
//	bit 0 = 1 -> code allocation; bits [1:] hold the code length.
//	bit 0 = 0 -> bits [2:] (bit 1 masked off) are a *Header pointer;
//	             bit 1 is the "finalized" mark.
type info uintptr

const (
	infoCodeFlag      info = 1 << 0
	infoFinalizedFlag info = 1 << 1
	infoPtrMask       info = ^info(0b11)
)

func makeCodeInfo(length uintptr) info {
	return info(length<<1) | infoCodeFlag
}

func (i info) isCode() bool     { return i&infoCodeFlag != 0 }
func (i info) codeLength() uintptr { return uintptr(i >> 1) }

func (i info) header() *Header {
	return (*Header)(unsafe.Pointer(uintptr(i & infoPtrMask)))
}

func (i info) isFinalized() bool {
	return !i.isCode() && i&infoFinalizedFlag != 0
}

func makeHeaderInfo(h *Header, finalized bool) info {
	v := info(uintptr(unsafe.Pointer(h)))
	if finalized {
		v |= infoFinalizedFlag
	}
	return v
}
