// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Disassemble decodes every instruction in code using arch's x86asm mode,
// returning one x86asm.Inst per decoded instruction in order. It is pure
// decoding (no bytes are ever executed), used as a diagnostic (dumping a
// Binary for a log or a failing test) and as a self-check that an
// encoder's declared instruction lengths actually match what a real x86
// decoder agrees are well-formed instructions covering every byte with
// nothing left over.
func Disassemble(code []byte, arch *Arch) ([]x86asm.Inst, error) {
	var insts []x86asm.Inst
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], arch.DisasmMode)
		if err != nil {
			return insts, fmt.Errorf("obj: disassembling at offset %d: %w", off, err)
		}
		insts = append(insts, inst)
		off += inst.Len
	}
	return insts, nil
}
