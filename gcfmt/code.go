// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcfmt

import "unsafe"

// RefKind classifies one entry in a code allocation's trailer. Package
// gccode's per-architecture updatePtrs interprets these.
type RefKind uint8

const (
	RefDisabled RefKind = iota
	RefRawPtr
	RefRelative
	RefRelativePtr
	RefInside
	RefRelativeHere
	// RefUnwindInfo is the x86/Windows-specific kind backing SEH frame
	// registration.
	RefUnwindInfo
)

// CodeRef is one typed reference inside a code allocation's trailer.
type CodeRef struct {
	Kind   RefKind
	Offset int32 // byte offset inside the code, where Kind is applied
	Target unsafe.Pointer
}

// GcCode is the trailer that follows every code allocation's bytes. The GC
// stores a copy of the client pointer in Reserved, fixed first during any
// scan, so that the trailer can find its code block again after a move.
type GcCode struct {
	Reserved unsafe.Pointer
	Refs     []CodeRef
}

// InitCode zeroes the code region of the allocation at base, tags it as a
// code allocation of codeLen bytes, and installs trailer as its GcCode
// (stored as one indirection word immediately after the aligned code
// bytes; see DESIGN.md for why the trailer is a real Go allocation rather
// than an inline flexible array).
func InitCode(base unsafe.Pointer, codeLen uintptr, trailer *GcCode) unsafe.Pointer {
	aligned := wordAlign(codeLen)
	zero(base, WordSize+aligned)
	client := unsafe.Pointer(uintptr(base) + WordSize)
	storeInfo(client, makeCodeInfo(codeLen))
	trailer.Reserved = client
	*wordAt(client, aligned) = uintptr(unsafe.Pointer(trailer))
	return client
}

// CodeLen returns the byte length of the machine code at client.
func CodeLen(client unsafe.Pointer) uintptr {
	return readInfo(client).codeLength()
}

// CodeTrailer returns the GcCode trailer for the code allocation at
// client, or nil if client is not a code allocation.
func CodeTrailer(client unsafe.Pointer) *GcCode {
	i := readInfo(client)
	if !i.isCode() {
		return nil
	}
	p := *wordAt(client, wordAlign(i.codeLength()))
	return (*GcCode)(unsafe.Pointer(p))
}

// SetCodeTrailer rewrites the trailer pointer for the code allocation at
// client, used after the allocation moves and a fresh GcCode describing
// the same references is installed at the new address.
func SetCodeTrailer(client unsafe.Pointer, trailer *GcCode) {
	i := readInfo(client)
	trailer.Reserved = client
	*wordAt(client, wordAlign(i.codeLength())) = uintptr(unsafe.Pointer(trailer))
}

// CodeBytes returns the raw machine code bytes of the allocation at
// client, as a slice aliasing the underlying memory.
func CodeBytes(client unsafe.Pointer) []byte {
	return unsafe.Slice((*byte)(client), CodeLen(client))
}
