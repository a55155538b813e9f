// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"fmt"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

// pairedHi is the convention a 32-bit Target's virtual register allocator
// uses for a 64-bit value split across two registers: the high half lives
// in the register immediately following the low half's id. A real
// register allocator would assign these independently; this pipeline
// keeps the allocator out of scope and instead asks the caller to reserve
// register ids in adjacent pairs for any 64-bit virtual it introduces.
func pairedHi(r asm.Register) asm.Register { return r + 1 }

// compilerRTOps is the set of ops whose 64-bit form has no legal
// instruction-level split and must instead call into a compiler-rt-style
// helper.
var compilerRTOps = map[asm.Op]bool{
	asm.AMul:  true,
	asm.AIdiv: true,
	asm.AImod: true,
	asm.AUdiv: true,
	asm.AUmod: true,
}

// Split64 lowers every 8-byte arithmetic instruction into a pair of 4-byte
// instructions on a 32-bit Target. On a 64-bit Target it is the identity
// transform.
func Split64(entries []asm.Entry, t Target) ([]asm.Entry, error) {
	if !t.is32Bit() {
		return entries, nil
	}

	out := make([]asm.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Instr.Dst.Size != asm.SizeLong && e.Instr.Src.Size != asm.SizeLong {
			out = append(out, e)
			continue
		}
		lowered, err := split64One(e, t)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}
	return out, nil
}

func split64One(e asm.Entry, t Target) ([]asm.Entry, error) {
	i := e.Instr
	if compilerRTOps[i.Op] {
		return splitCompilerRT(e, t)
	}

	lo32 := func(o asm.Operand) asm.Operand { return halve(o, 0) }
	hi32 := func(o asm.Operand) asm.Operand { return halve(o, 4) }

	var loOp, hiOp asm.Op
	switch i.Op {
	case asm.AAdd:
		loOp, hiOp = asm.AAdd, asm.AAdc
	case asm.ASub:
		loOp, hiOp = asm.ASub, asm.ASbb
	case asm.ACmp:
		loOp, hiOp = asm.ACmp, asm.ASbb // sbb-compare-hi is the usual idiom; caller interprets flags accordingly
	case asm.ABor:
		loOp, hiOp = asm.ABor, asm.ABor
	case asm.ABand:
		loOp, hiOp = asm.ABand, asm.ABand
	case asm.ABxor:
		loOp, hiOp = asm.ABxor, asm.ABxor
	case asm.AMov:
		loOp, hiOp = asm.AMov, asm.AMov
	default:
		return nil, fmt.Errorf("transform: Split64 has no lowering for %v on an 8-byte operand", i.Op)
	}

	lo := asm.Entry{Instr: asm.Instr{Op: loOp, Dst: lo32(i.Dst), Src: lo32(i.Src), Arg0: i.Arg0, Arg1: i.Arg1}, Labels: e.Labels}
	hi := asm.Entry{Instr: asm.Instr{Op: hiOp, Dst: hi32(i.Dst), Src: hi32(i.Src)}}
	return []asm.Entry{lo, hi}, nil
}

// halve narrows a 64-bit register/memory operand to its low or high
// 32-bit half: for a register operand, the paired virtual register
// (byteOffset==0 keeps the base id, byteOffset==4 moves to pairedHi); for
// a memory operand, the displacement simply advances by byteOffset.
func halve(o asm.Operand, byteOffset int64) asm.Operand {
	switch o.Kind {
	case asm.OpReg:
		r := o.Reg
		if byteOffset != 0 {
			r = pairedHi(r)
		}
		return asm.Reg(r, asm.SizeInt)
	case asm.OpMem:
		return asm.Mem(o.Reg, o.Offset+byteOffset, asm.SizeInt)
	case asm.OpImmLong, asm.OpImmPtr:
		if byteOffset == 0 {
			return asm.ImmInt(int32(o.ImmLong))
		}
		return asm.ImmInt(int32(o.ImmLong >> 32))
	default:
		return o
	}
}

// splitCompilerRT materializes a call to a runtime helper for a 64-bit
// mul/div/mod, spilling caller-saved registers around it. It emits an
// fnParam per 32-bit half of the two
// 64-bit operands followed by an fnCall naming the resolved helper
// address; MaterializeParams finishes lowering that group into the
// target's concrete call sequence the same way it would for any other
// call.
//
// Split64 runs before UsedRegisters, so there is no liveness information
// yet to narrow the spill set against: every register in t.CallerSaved is
// pushed and popped unconditionally, except the one(s) backing the
// instruction's own Dst: that register is about to be overwritten with
// the call's result, so restoring it after the call would clobber the
// result.
func splitCompilerRT(e asm.Entry, t Target) ([]asm.Entry, error) {
	if t.CompilerRTCall == nil {
		return nil, fmt.Errorf("transform: Target has no CompilerRTCall hook for %v", e.Instr.Op)
	}
	target, ok := t.CompilerRTCall(e.Instr.Op)
	if !ok {
		return nil, fmt.Errorf("transform: no compiler-rt helper registered for %v", e.Instr.Op)
	}

	dividend, divisor := e.Instr.Dst, e.Instr.Src
	result := map[asm.Register]bool{}
	if dividend.Kind == asm.OpReg {
		result[dividend.Reg] = true
		result[pairedHi(dividend.Reg)] = true
	}
	var spill []asm.Register
	for _, r := range t.CallerSaved {
		if !result[r] {
			spill = append(spill, r)
		}
	}

	var out []asm.Entry
	for _, r := range spill {
		out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: asm.Reg(r, asm.SizePtr)}})
	}

	// cdecl pushes right-to-left, so materializeCall's reverse-order push
	// loop leaves the dividend's low half closest to the call, the
	// layout the classic _alldiv/_allmul/_allrem family expects.
	for _, half := range []asm.Operand{halve(dividend, 0), halve(dividend, 4), halve(divisor, 0), halve(divisor, 4)} {
		out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AFnParam, Dst: half}})
	}
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AFnCall, Dst: target}, Labels: e.Labels})

	// The helper returns its 64-bit result in ReturnReg:ReturnRegHi, the
	// same pair a split fnRet uses; copy it into Dst like the native
	// idiv/imod instruction's own read-modify-write result would have.
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AMov, Dst: halve(dividend, 0), Src: asm.Reg(t.ReturnReg, asm.SizeInt)}})
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AMov, Dst: halve(dividend, 4), Src: asm.Reg(t.ReturnRegHi, asm.SizeInt)}})

	for i := len(spill) - 1; i >= 0; i-- {
		out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APop, Dst: asm.Reg(spill[i], asm.SizePtr)}})
	}
	return out, nil
}
