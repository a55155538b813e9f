// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gccode"
)

// Updater implements gccode.Updater for amd64: absolute references are a
// plain 8-byte pointer write (amd64 has a flat 64-bit address space, no
// segment fixups needed); relative references are the rel32 displacement
// call/jmp/lea-rip-relative forms all use, measured from the byte
// immediately after the 4-byte field itself.
type Updater struct{}

func (Updater) WriteAbsolute(code []byte, offset int32, value uintptr) {
	gccode.WriteLE64(code, offset, uint64(value))
}

func (Updater) WriteRelative(code []byte, offset int32, target uintptr) {
	base := uintptr(unsafe.Pointer(&code[0]))
	here := base + uintptr(offset) + 4
	gccode.WriteLE32(code, offset, uint32(int32(int64(target)-int64(here))))
}

func (Updater) WriteRelativePtr(code []byte, offset int32, target uintptr) {
	base := uintptr(unsafe.Pointer(&code[0]))
	here := base + uintptr(offset) + 8
	gccode.WriteLE64(code, offset, uint64(int64(target)-int64(here)))
}

func (Updater) PointerWidth() int32 { return 8 }
