// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transform implements the fixed-order rewrite pipeline that turns
// a machine-independent asm.Listing into one that a package backend
// encoder can emit directly: 64-bit lowering, addressing-mode
// legalization, calling-convention materialization, and the used-register
// analysis that feeds the prolog's callee-save spill set.
//
// A Target is a bag of per-architecture knobs and register files that the
// fixed pipeline consults rather than branches on by name; each backend
// supplies its own.
package transform

import "github.com/vonfalk/storm-javavis-sub004/asm"

// Target describes everything the pipeline needs to know about the
// destination machine: word size, calling convention register
// assignment, and the handful of fixed registers the passes may borrow.
type Target struct {
	// WordSize is 4 on x86, 8 on amd64. Split64 is a no-op when this is 8.
	WordSize int

	FramePointer asm.Register
	StackPointer asm.Register

	// IntParamRegs lists integer/pointer argument registers in calling
	// order; parameters beyond len(IntParamRegs) are passed on the stack.
	IntParamRegs []asm.Register
	ReturnReg    asm.Register
	ReturnRegHi  asm.Register // second register of a split 64-bit return on a 32-bit target

	CallerSaved []asm.Register
	CalleeSaved []asm.Register

	// Scratch is the fixed register Legalize routes every mem,mem split
	// through, pushing and popping it around the split when it is live.
	Scratch asm.Register

	// CompilerRTCall resolves the call target for a mul/div/mod fallback
	// that Split64 materializes on 32-bit targets, already bound to a
	// concrete address (see backend/x86's ntdll-backed resolver), the
	// same operand shape obj.Encode's non-label call lowering expects.
	// Nil on targets wide enough to never need it.
	CompilerRTCall func(op asm.Op) (target asm.Operand, ok bool)
}

// slotSize rounds n up to a whole number of machine words.
func (t Target) slotSize(n int64) int64 {
	w := int64(t.WordSize)
	if n <= 0 {
		return w
	}
	return (n + w - 1) &^ (w - 1)
}

func (t Target) is32Bit() bool { return t.WordSize == 4 }
