// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"testing"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

type intType int64

func (t intType) Size() int64     { return int64(t) }
func (t intType) Aggregate() bool { return false }
func (t intType) Primitive() bool { return true }
func (t intType) String() string  { return "Int" }

const (
	regRAX asm.Register = iota
	regRCX
	regRDX
	regRBX
	regRSP
	regRBP
	regRSI
	regRDI
)

func amd64SysV() Target {
	return Target{
		WordSize:     8,
		FramePointer: regRBP,
		StackPointer: regRSP,
		IntParamRegs: []asm.Register{regRDI, regRSI, regRDX, regRCX},
		ReturnReg:    regRAX,
		CalleeSaved:  []asm.Register{regRBX},
		CallerSaved:  []asm.Register{regRCX, regRDX, regRSI, regRDI},
		Scratch:      regRCX,
	}
}

// buildIncrement builds a function Int(Int) that returns its argument
// plus one.
func buildIncrement(t *testing.T) *asm.Listing {
	t.Helper()
	l := asm.New(false, intType(4))
	param := l.CreateParam(intType(4), nil, asm.FreeOnNone)

	l.Emit(asm.Instr{Op: asm.AProlog})
	l.Emit(asm.Instr{Op: asm.AAdd, Dst: asm.VarOperand(param), Src: asm.ImmInt(1)})
	l.Emit(asm.Instr{Op: asm.AFnRet, Dst: asm.VarOperand(param)})
	l.Emit(asm.Instr{Op: asm.AEpilog})
	return l
}

func TestRunLowersIncrementFunction(t *testing.T) {
	l := buildIncrement(t)
	target := amd64SysV()

	entries, layout, err := Run(l, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("Run produced no instructions")
	}

	param := l.AllParams()[0]
	class, ok := layout.ParamClass[param]
	if !ok || !class.InRegister || class.Reg != regRDI {
		t.Fatalf("param classified as %+v, want register rdi", class)
	}

	var sawRet, sawCall bool
	for _, e := range entries {
		switch e.Instr.Op {
		case asm.ARet:
			sawRet = true
		case asm.ACall:
			sawCall = true
		}
	}
	if !sawRet {
		t.Error("lowered listing has no ret instruction")
	}
	if sawCall {
		t.Error("a leaf function should not contain a call")
	}
}

func TestSplit64IsIdentityOn64BitTarget(t *testing.T) {
	l := buildIncrement(t)
	entries, err := Split64(l.Entries(), amd64SysV())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != l.Len() {
		t.Errorf("Split64 changed entry count on a 64-bit target: %d vs %d", len(entries), l.Len())
	}
}

func TestUsedRegistersClearsAcrossProlog(t *testing.T) {
	entries := []asm.Entry{
		{Instr: asm.Instr{Op: asm.AMov, Dst: asm.Reg(regRAX, asm.SizeLong), Src: asm.Reg(regRBX, asm.SizeLong)}},
		{Instr: asm.Instr{Op: asm.AProlog}},
	}
	sets := UsedRegisters(entries)
	if sets[1].Len() != 0 {
		t.Errorf("live set after a terminator-like instruction should be empty, got %d entries", sets[1].Len())
	}
	if sets[0].Has(int(regRBX)) {
		t.Error("rbx should not be live after the mov that last reads it (sets[i] is the live-out set)")
	}
}

func TestLegalizeSplitsMemMem(t *testing.T) {
	entries := []asm.Entry{
		{Instr: asm.Instr{Op: asm.AMov, Dst: asm.Mem(regRBP, -8, asm.SizeLong), Src: asm.Mem(regRBP, -16, asm.SizeLong)}},
	}
	out, err := Legalize(entries, amd64SysV())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) < 2 {
		t.Fatalf("Legalize should split a mem,mem mov into at least 2 instructions, got %d", len(out))
	}
	if out[0].Instr.Dst.Kind != asm.OpReg {
		t.Errorf("first legalized instruction should target a register, got %v", out[0].Instr.Dst.Kind)
	}
}

// structType is a non-primitive test type; agg marks it a simple
// aggregate.
type structType struct {
	size int64
	agg  bool
}

func (t structType) Size() int64     { return t.size }
func (t structType) Aggregate() bool { return t.agg }
func (t structType) Primitive() bool { return false }
func (t structType) String() string  { return "Struct" }

// TestComplexParamTravelsByPointer: a 24-byte non-aggregate parameter
// arrives as an address in its argument register, and the prolog copies
// the pointee word by word into the parameter's home slot.
func TestComplexParamTravelsByPointer(t *testing.T) {
	target := amd64SysV()
	l := asm.New(false, intType(4))
	p := l.CreateParam(structType{size: 24}, nil, asm.FreeOnNone)
	l.Emit(asm.Instr{Op: asm.AProlog})
	l.Emit(asm.Instr{Op: asm.AEpilog})

	entries, layout, err := Run(l, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	class := layout.ParamClass[p]
	if !class.ByPointer || !class.InRegister || class.Reg != regRDI {
		t.Fatalf("param classified as %+v, want by-pointer in rdi", class)
	}

	var loads int
	for _, e := range entries {
		if e.Instr.Op == asm.AMov && e.Instr.Src.Kind == asm.OpMem && e.Instr.Src.Reg == regRDI {
			loads++
		}
	}
	if loads != 3 {
		t.Errorf("prolog copied %d words through the pointer register, want 3", loads)
	}
}

// TestSmallAggregateParamTravelsByValue: a simple aggregate that fits
// two machine words stays on the by-value path.
func TestSmallAggregateParamTravelsByValue(t *testing.T) {
	target := amd64SysV()
	l := asm.New(false, intType(4))
	p := l.CreateParam(structType{size: 16, agg: true}, nil, asm.FreeOnNone)
	l.Emit(asm.Instr{Op: asm.AProlog})
	l.Emit(asm.Instr{Op: asm.AEpilog})

	_, layout, err := Run(l, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if layout.ParamClass[p].ByPointer {
		t.Error("a two-word simple aggregate should travel by value")
	}
}

// TestFnParamRefPassesTheAddress: an explicit by-reference argument is
// lowered to a lea computing the operand's address into the first
// argument register, never a value load.
func TestFnParamRefPassesTheAddress(t *testing.T) {
	target := amd64SysV()
	l := asm.New(false, intType(4))
	v, err := l.CreateVarSize(l.RootPart(), 8, nil, asm.FreeOnNone)
	if err != nil {
		t.Fatal(err)
	}
	l.Emit(asm.Instr{Op: asm.AProlog})
	l.Emit(asm.Instr{Op: asm.AFnParamRef, Dst: asm.VarOperand(v)})
	l.Emit(asm.Instr{Op: asm.AFnCall, Dst: asm.ImmPtr(0x5005)})
	l.Emit(asm.Instr{Op: asm.AEpilog})

	entries, _, err := Run(l, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var sawLea bool
	for _, e := range entries {
		if e.Instr.Op == asm.ALea && e.Instr.Dst.Kind == asm.OpReg && e.Instr.Dst.Reg == regRDI {
			sawLea = true
		}
	}
	if !sawLea {
		t.Error("expected lea to pass the argument's address in rdi")
	}
}

// TestComplexFnParamIsPromotedToByReference: a plain fnParam whose
// variable carries a complex type takes the same address-passing path
// as an explicit fnParamRef.
func TestComplexFnParamIsPromotedToByReference(t *testing.T) {
	target := amd64SysV()
	l := asm.New(false, intType(4))
	v, err := l.CreateVarType(l.RootPart(), structType{size: 24}, nil, asm.FreeOnNone)
	if err != nil {
		t.Fatal(err)
	}
	l.Emit(asm.Instr{Op: asm.AProlog})
	l.Emit(asm.Instr{Op: asm.AFnParam, Dst: asm.VarOperand(v)})
	l.Emit(asm.Instr{Op: asm.AFnCall, Dst: asm.ImmPtr(0x5005)})
	l.Emit(asm.Instr{Op: asm.AEpilog})

	entries, _, err := Run(l, target)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var sawLea bool
	for _, e := range entries {
		if e.Instr.Op == asm.ALea && e.Instr.Dst.Kind == asm.OpReg && e.Instr.Dst.Reg == regRDI {
			sawLea = true
		}
	}
	if !sawLea {
		t.Error("expected the complex argument's address to be passed, not its first word")
	}
}
