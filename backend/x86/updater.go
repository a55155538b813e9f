// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gccode"
)

// Updater implements gccode.Updater for x86-32: pointers are 4 bytes, so
// both absolute and relative writes patch a 32-bit field (the same field
// width relative displacements already use on amd64).
type Updater struct{}

func (Updater) WriteAbsolute(code []byte, offset int32, value uintptr) {
	gccode.WriteLE32(code, offset, uint32(value))
}

func (Updater) WriteRelative(code []byte, offset int32, target uintptr) {
	base := uintptr(unsafe.Pointer(&code[0]))
	here := base + uintptr(offset) + 4
	gccode.WriteLE32(code, offset, uint32(int32(int64(target)-int64(here))))
}

// WriteRelativePtr is identical to WriteRelative on x86: pointers are
// already 4 bytes wide.
func (Updater) WriteRelativePtr(code []byte, offset int32, target uintptr) {
	Updater{}.WriteRelative(code, offset, target)
}

func (Updater) PointerWidth() int32 { return 4 }
