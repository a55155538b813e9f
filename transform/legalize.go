// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import "github.com/vonfalk/storm-javavis-sub004/asm"

// memMemOps is the legality table, restricted to
// the shape this pipeline actually needs to legalize: two-operand
// instructions where a mem,mem combination is never encodable. Every Op
// not listed here is assumed to tolerate mem,mem (directives, calling
// convention markers, scope markers have no such combination to begin
// with).
var memMemOps = map[asm.Op]bool{
	asm.AMov: true, asm.AAdd: true, asm.AAdc: true, asm.ASub: true, asm.ASbb: true,
	asm.ACmp: true, asm.ABor: true, asm.ABand: true, asm.ABxor: true,
	asm.AIcast: true, asm.AUcast: true,
}

// Legalize rewrites every instruction whose operand combination the
// target ISA cannot address directly, inserting a scratch register and a
// split. It uses the backward liveness already
// computed by UsedRegisters to skip the spill/restore around the scratch
// register when nothing is live in it at this point.
func Legalize(entries []asm.Entry, t Target) ([]asm.Entry, error) {
	live := UsedRegisters(entries)

	out := make([]asm.Entry, 0, len(entries))
	for i, e := range entries {
		instr := e.Instr
		if !memMemOps[instr.Op] || instr.Dst.Kind != asm.OpMem || instr.Src.Kind != asm.OpMem {
			out = append(out, e)
			continue
		}

		scratchLive := live[i].Has(int(t.Scratch))
		sz := instr.Src.Size

		if scratchLive {
			out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: asm.Reg(t.Scratch, asm.SizePtr)}})
		}
		out = append(out, asm.Entry{
			Instr:  asm.Instr{Op: asm.AMov, Dst: asm.Reg(t.Scratch, sz), Src: instr.Src},
			Labels: e.Labels,
		})
		out = append(out, asm.Entry{Instr: asm.Instr{Op: instr.Op, Dst: instr.Dst, Src: asm.Reg(t.Scratch, sz)}})
		if scratchLive {
			out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APop, Dst: asm.Reg(t.Scratch, asm.SizePtr)}})
		}
	}
	return out, nil
}
