// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"golang.org/x/tools/container/intsets"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

// UsedRegSet aliases intsets.Sparse so callers outside this file don't
// need to import golang.org/x/tools/container/intsets directly.
type UsedRegSet = intsets.Sparse

// UsedRegisters computes, for every instruction in entries, the set of
// registers whose values must survive across it. It is
// a backward iteration: writes kill a register from the live set, reads
// add it; a handful of terminator-like instructions clear the live set
// outright, since without a full control-flow graph nothing can safely be
// assumed live across a jump or a scope boundary.
//
// result[i] is the live-out set immediately after entries[i] executes.
// The union over the whole slice is the function's callee-save spill set.
func UsedRegisters(entries []asm.Entry) []*intsets.Sparse {
	n := len(entries)
	result := make([]*intsets.Sparse, n)
	live := new(intsets.Sparse)

	for i := n - 1; i >= 0; i-- {
		instr := entries[i].Instr
		if isTerminator(instr.Op) {
			live.Clear()
		}

		out := new(intsets.Sparse)
		out.Copy(live)
		result[i] = out

		writes, reads := regRefs(instr)
		for _, r := range writes {
			live.Remove(int(r))
		}
		for _, r := range reads {
			live.Insert(int(r))
		}
	}
	return result
}

// Union returns the set of every register live at any point in sets,
// which is the prolog's callee-save spill set.
func Union(sets []*intsets.Sparse) *intsets.Sparse {
	u := new(intsets.Sparse)
	for _, s := range sets {
		u.UnionWith(s)
	}
	return u
}

func isTerminator(op asm.Op) bool {
	switch op {
	case asm.AJmp, asm.AJmpCond, asm.ABegin, asm.AEnd, asm.AProlog:
		return true
	default:
		return false
	}
}

// readModifyWrite reports whether op reads its Dst operand in addition to
// writing it (arithmetic, bitwise, shift and cast instructions all do;
// mov/lea/pop/setCond only write it).
func readModifyWrite(op asm.Op) bool {
	switch op {
	case asm.AAdd, asm.AAdc, asm.ASub, asm.ASbb, asm.ABor, asm.ABand, asm.ABxor, asm.ABnot,
		asm.AMul, asm.AIdiv, asm.AImod, asm.AUdiv, asm.AUmod,
		asm.AShl, asm.AShr, asm.ASar, asm.AIcast, asm.AUcast:
		return true
	default:
		return false
	}
}

// regRefs extracts the register reads and writes an instruction makes,
// including the base register of any memory operand (always a read).
func regRefs(instr Instr) (writes, reads []asm.Register) {
	add := func(o asm.Operand, isWrite bool) {
		switch o.Kind {
		case asm.OpReg:
			if isWrite {
				writes = append(writes, o.Reg)
			} else {
				reads = append(reads, o.Reg)
			}
		case asm.OpMem:
			reads = append(reads, o.Reg)
		}
	}

	switch instr.Op {
	case asm.AMov, asm.ALea, asm.APop, asm.ASetCond:
		add(instr.Dst, true)
		add(instr.Src, false)
	case asm.ASwap:
		add(instr.Dst, true)
		add(instr.Dst, false)
		add(instr.Src, true)
		add(instr.Src, false)
	case asm.APush:
		add(instr.Src, false)
	default:
		add(instr.Dst, true)
		if readModifyWrite(instr.Op) {
			add(instr.Dst, false)
		}
		add(instr.Src, false)
		add(instr.Arg0, false)
		add(instr.Arg1, false)
	}
	return writes, reads
}

// Instr aliases asm.Instr so call sites in this package read naturally
// alongside the Target/Op vocabulary.
type Instr = asm.Instr
