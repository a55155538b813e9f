// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gccode implements the code-allocation bridge: the
// per-architecture updatePtrs that rewrites on-code-slot references after
// linking and after any motion of a code block, and the unwind side
// table that backs SEH registration on Windows/x86.
package gccode

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

// Updater is implemented once per architecture (package backend/amd64,
// backend/x86) and registered with UpdatePtrs. It knows how wide a
// pointer-sized write is and how to encode a PC-relative displacement.
type Updater interface {
	// WriteAbsolute stores an absolute pointer value at code[offset:].
	WriteAbsolute(code []byte, offset int32, value uintptr)
	// WriteRelative stores target-(offset+width) at code[offset:], where
	// width is the size of the relative displacement this architecture
	// encodes (4 bytes on both x86 and amd64 for call/jmp rel32).
	WriteRelative(code []byte, offset int32, target uintptr)
	// WriteRelativePtr is WriteRelative with a pointer-sized field: the
	// displacement is measured past PointerWidth bytes and stored in a
	// PointerWidth-wide slot.
	WriteRelativePtr(code []byte, offset int32, target uintptr)
	// PointerWidth is the byte width absolute/relative-pointer writes use.
	PointerWidth() int32
}

// UpdatePtrs rewrites every trailer entry in client's GcCode.
// binary.Build invokes it once after linking; none of the gc arenas moves
// code allocations or calls it. table, if non-nil, receives a
// registration for each RefUnwindInfo entry; Finalize removes it.
func UpdatePtrs(u Updater, client unsafe.Pointer, table *UnwindTable) error {
	trailer := gcfmt.CodeTrailer(client)
	if trailer == nil {
		return fmt.Errorf("gccode: UpdatePtrs called on a non-code allocation")
	}
	code := gcfmt.CodeBytes(client)

	for i := range trailer.Refs {
		ref := &trailer.Refs[i]
		switch ref.Kind {
		case gcfmt.RefDisabled:
			// no-op
		case gcfmt.RefRawPtr:
			u.WriteAbsolute(code, ref.Offset, uintptr(ref.Target))
		case gcfmt.RefRelative:
			u.WriteRelative(code, ref.Offset, uintptr(ref.Target))
		case gcfmt.RefRelativePtr:
			u.WriteRelativePtr(code, ref.Offset, uintptr(ref.Target))
		case gcfmt.RefInside:
			base := uintptr(client)
			u.WriteAbsolute(code, ref.Offset, base+uintptr(ref.Target))
		case gcfmt.RefRelativeHere:
			here := uintptr(unsafe.Pointer(&trailer.Refs[i]))
			u.WriteRelativePtr(code, ref.Offset, here)
		case gcfmt.RefUnwindInfo:
			if table != nil {
				table.Register(client, ref.Target)
			}
		default:
			return fmt.Errorf("gccode: unknown ref kind %d", ref.Kind)
		}
	}
	return nil
}

// Finalize releases any side-table entries this code block holds.
// Code allocations carry no Header and so no Finalizer; binary.Binary's
// Close calls this explicitly.
func Finalize(table *UnwindTable, client unsafe.Pointer) {
	if table != nil {
		table.Unregister(client)
	}
}

// WriteLE32 is the shared little-endian helper both architectures' Updater
// implementations use for rel32/abs32-style fields.
func WriteLE32(b []byte, off int32, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

// WriteLE64 is the 64-bit counterpart, used by amd64's absolute writes.
func WriteLE64(b []byte, off int32, v uint64) {
	binary.LittleEndian.PutUint64(b[off:], v)
}
