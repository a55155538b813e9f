// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package x86 is the cdecl x86-32 backend: no register parameters, no
// REX prefixes, and 64-bit arithmetic lowered by
// transform.Split64 into helper calls against the classic MSVC compiler-rt
// names (_allmul, _alldiv, ...) real 32-bit Windows binaries still carry.
package x86

import (
	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/gccode"
	"github.com/vonfalk/storm-javavis-sub004/obj"
	"github.com/vonfalk/storm-javavis-sub004/transform"
)

const (
	EAX asm.Register = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
)

// compilerRT names the 64-bit arithmetic helpers a 32-bit Windows target
// links against.
var compilerRT = map[asm.Op]string{
	asm.AMul:  "_allmul",
	asm.AIdiv: "_alldiv",
	asm.AImod: "_allrem",
	asm.AUdiv: "_aulldiv",
	asm.AUmod: "_aullrem",
}

// Target is the cdecl calling convention: all arguments on the stack, no
// register parameter passing, caller cleans the stack.
var Target = transform.Target{
	WordSize:     4,
	FramePointer: EBP,
	StackPointer: ESP,
	IntParamRegs: nil,
	ReturnReg:    EAX,
	ReturnRegHi:  EDX,
	CallerSaved:  []asm.Register{EAX, ECX, EDX},
	CalleeSaved:  []asm.Register{EBX, ESI, EDI, EBP},
	Scratch:      ECX,
	CompilerRTCall: func(op asm.Op) (asm.Operand, bool) {
		name, ok := compilerRT[op]
		if !ok {
			return asm.Operand{}, false
		}
		return resolveCompilerRT(name)
	},
}

func init() {
	obj.Register(&obj.Arch{
		Name:       "386",
		Target:     Target,
		Updater:    Updater{},
		Encode:     encoders,
		DisasmMode: 32,
	})
}

var _ gccode.Updater = Updater{}
