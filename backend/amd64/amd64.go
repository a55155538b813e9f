// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amd64 is the System V x86-64 backend: it wires a
// transform.Target and an obj.Arch.Encode table built from this
// package's own ModRM/REX encoders, and registers itself with package
// obj from its init.
package amd64

import (
	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/gccode"
	"github.com/vonfalk/storm-javavis-sub004/obj"
	"github.com/vonfalk/storm-javavis-sub004/transform"
)

// Register ids follow the x86 ModRM/REX.B register-file numbering
// directly (0-7 encode in three bits, 8-15 need a REX extension bit),
// so encoders never need a lookup table to go from asm.Register to the
// bits an instruction needs.
const (
	RAX asm.Register = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

// Target is the System V AMD64 calling convention: integer args in rdi,
// rsi, rdx, rcx, r8, r9, the rest on the stack.
var Target = transform.Target{
	WordSize:     8,
	FramePointer: RBP,
	StackPointer: RSP,
	IntParamRegs: []asm.Register{RDI, RSI, RDX, RCX, R8, R9},
	ReturnReg:    RAX,
	ReturnRegHi:  RDX,
	CallerSaved:  []asm.Register{RAX, RCX, RDX, RSI, RDI, R8, R9, R10, R11},
	CalleeSaved:  []asm.Register{RBX, R12, R13, R14, R15},
	Scratch:      R11,
	// 64-bit targets never split a 64-bit op, so Split64 never needs this;
	// it is set anyway so a future 128-bit intrinsic has somewhere to hook.
	CompilerRTCall: func(op asm.Op) (asm.Operand, bool) { return asm.Operand{}, false },
}

var codeUpdater = Updater{}

func init() {
	obj.Register(&obj.Arch{
		Name:       "amd64",
		Target:     Target,
		Updater:    codeUpdater,
		Encode:     encoders,
		DisasmMode: 64,
	})
}

var _ gccode.Updater = Updater{}
