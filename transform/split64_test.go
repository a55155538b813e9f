// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"testing"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

// x86Cdecl is a 32-bit cdecl Target with a fake CompilerRTCall, enough to
// exercise Split64's compiler-rt path without depending on the real
// ntdll-backed resolver in backend/x86.
func x86Cdecl() Target {
	return Target{
		WordSize:     4,
		FramePointer: regRBP,
		StackPointer: regRSP,
		IntParamRegs: nil,
		ReturnReg:    regRAX,
		ReturnRegHi:  regRDX,
		CallerSaved:  []asm.Register{regRAX, regRCX, regRDX},
		CalleeSaved:  []asm.Register{regRBX},
		Scratch:      regRCX,
		CompilerRTCall: func(op asm.Op) (asm.Operand, bool) {
			if op != asm.AIdiv {
				return asm.Operand{}, false
			}
			return asm.ImmPtr(0x12345678), true
		},
	}
}

// A signed 64-bit divide on a 32-bit target must lower to a
// call against the resolved helper address, with both 64-bit operands
// passed as four 32-bit fnParam halves in dividend-then-divisor,
// low-then-high order.
func TestSplit64LowersIdivToACompilerRTCall(t *testing.T) {
	target := x86Cdecl()
	entries := []asm.Entry{
		{Instr: asm.Instr{Op: asm.AIdiv, Dst: asm.Reg(regRSI, asm.SizeLong), Src: asm.Reg(regRDI, asm.SizeLong)}},
	}
	out, err := Split64(entries, target)
	if err != nil {
		t.Fatalf("Split64: %v", err)
	}

	var params []asm.Operand
	var call *asm.Instr
	var pushes, pops int
	for i := range out {
		instr := out[i].Instr
		switch instr.Op {
		case asm.APush:
			pushes++
		case asm.APop:
			pops++
		case asm.AFnParam:
			params = append(params, instr.Dst)
		case asm.AFnCall:
			call = &out[i].Instr
		}
	}

	if call == nil {
		t.Fatal("Split64 did not emit an AFnCall for a compiler-rt op")
	}
	if call.Dst.Kind != asm.OpImmPtr || call.Dst.ImmLong != 0x12345678 {
		t.Errorf("AFnCall.Dst = %+v, want the resolved compiler-rt address", call.Dst)
	}

	if len(params) != 4 {
		t.Fatalf("expected 4 fnParam entries (dividend lo/hi, divisor lo/hi), got %d", len(params))
	}
	wantRegs := []asm.Register{regRSI, regRSI + 1, regRDI, regRDI + 1}
	for i, want := range wantRegs {
		if params[i].Kind != asm.OpReg || params[i].Reg != want {
			t.Errorf("fnParam[%d] = %+v, want register %d", i, params[i], want)
		}
	}

	if pushes != 3 || pops != 3 {
		t.Errorf("expected 3 caller-saved push/pop pairs, got %d pushes, %d pops", pushes, pops)
	}
}

// TestSplit64CompilerRTSkipsSpillingItsOwnResultRegister covers the case
// where the divide's Dst happens to alias a CallerSaved register: that
// register must not be spilled/restored around the call, since doing so
// would overwrite the call's own result with its stale pre-call value.
func TestSplit64CompilerRTSkipsSpillingItsOwnResultRegister(t *testing.T) {
	target := x86Cdecl()
	entries := []asm.Entry{
		{Instr: asm.Instr{Op: asm.AIdiv, Dst: asm.Reg(regRDX, asm.SizeLong), Src: asm.Reg(regRDI, asm.SizeLong)}},
	}
	out, err := Split64(entries, target)
	if err != nil {
		t.Fatalf("Split64: %v", err)
	}

	for _, e := range out {
		if e.Instr.Op == asm.APush && e.Instr.Src.Reg == regRDX {
			t.Error("regRDX backs the divide's own result and must not be spilled")
		}
	}

	var sawResultMov bool
	for _, e := range out {
		if e.Instr.Op == asm.AMov && e.Instr.Dst.Kind == asm.OpReg && e.Instr.Dst.Reg == regRDX && e.Instr.Src.Reg == regRAX {
			sawResultMov = true
		}
	}
	if !sawResultMov {
		t.Error("expected a mov copying the compiler-rt call's low result word into the dividend's low half")
	}
}

// TestSplit64CompilerRTErrorsWithoutARegisteredHelper confirms Split64
// surfaces a clear error instead of silently mistargeting the call when
// the Target has no helper bound for an op (e.g. AUdiv, left unregistered
// by x86Cdecl's fake resolver above).
func TestSplit64CompilerRTErrorsWithoutARegisteredHelper(t *testing.T) {
	target := x86Cdecl()
	entries := []asm.Entry{
		{Instr: asm.Instr{Op: asm.AUdiv, Dst: asm.Reg(regRSI, asm.SizeLong), Src: asm.Reg(regRDI, asm.SizeLong)}},
	}
	if _, err := Split64(entries, target); err == nil {
		t.Error("expected an error when CompilerRTCall has no helper registered for the op")
	}
}
