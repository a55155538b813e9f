// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj_test

import (
	"testing"

	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/backend/amd64"
	"github.com/vonfalk/storm-javavis-sub004/backend/x86"
	"github.com/vonfalk/storm-javavis-sub004/obj"
)

type intType struct{ size int64 }

func (t intType) Size() int64     { return t.size }
func (t intType) Aggregate() bool { return false }
func (t intType) Primitive() bool { return true }
func (t intType) String() string  { return "Int" }

// buildIncrement constructs Int f(Int x) { return x + 1; }, with no
// destructors to run.
func buildIncrement() *asm.Listing {
	l := asm.New(false, intType{4})
	p := l.CreateParam(intType{4}, nil, asm.FreeOnNone)
	l.Emit(asm.Instr{Op: asm.AProlog})
	l.Emit(asm.Instr{Op: asm.AAdd, Dst: asm.VarOperand(p), Src: asm.ImmInt(1)})
	l.Emit(asm.Instr{Op: asm.AFnRet, Dst: asm.VarOperand(p)})
	l.Emit(asm.Instr{Op: asm.AEpilog})
	return l
}

func TestEncodeIncrementOnAMD64(t *testing.T) {
	arch, err := obj.Lookup("amd64")
	if err != nil {
		t.Fatal(err)
	}
	l := buildIncrement()
	res, err := obj.Encode(l, arch)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Code) == 0 {
		t.Fatal("expected non-empty code")
	}
	// push rbp; mov rbp,rsp must open every frame this backend builds.
	if res.Code[0] != 0x55 {
		t.Errorf("first byte = %#x, want push rbp (0x55)", res.Code[0])
	}
	// The final byte of any function built by this prolog/epilog pair is
	// ret (0xC3).
	if last := res.Code[len(res.Code)-1]; last != 0xC3 {
		t.Errorf("last byte = %#x, want ret (0xC3)", last)
	}
	if res.Layout == nil {
		t.Fatal("expected a non-nil frame layout")
	}
}

func TestEncodeUnknownArch(t *testing.T) {
	if _, err := obj.Lookup("sparc64"); err == nil {
		t.Fatal("expected an error for an unregistered architecture")
	}
}

// TestDisassembleIncrementOnAMD64 decodes the emitted bytes with a real
// x86 decoder and checks it consumes every byte with nothing left over:
// a strong check that every encoder's declared instruction length
// matches what it actually wrote.
func TestDisassembleIncrementOnAMD64(t *testing.T) {
	arch, err := obj.Lookup("amd64")
	if err != nil {
		t.Fatal(err)
	}
	res, err := obj.Encode(buildIncrement(), arch)
	if err != nil {
		t.Fatal(err)
	}
	insts, err := obj.Disassemble(res.Code, arch)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(insts) == 0 {
		t.Fatal("expected at least one decoded instruction")
	}
	total := 0
	for _, in := range insts {
		total += in.Len
	}
	if total != len(res.Code) {
		t.Errorf("decoded %d bytes, want %d (all of res.Code)", total, len(res.Code))
	}
}

func TestEncode386Increment(t *testing.T) {
	// Importing backend/x86 alongside backend/amd64 in the same test
	// binary is exactly how a linker tool would select a target at
	// runtime: both register themselves, Lookup picks one by name.
	arch, err := obj.Lookup("386")
	if err != nil {
		t.Fatal(err)
	}
	l := buildIncrement()
	res, err := obj.Encode(l, arch)
	if err != nil {
		t.Fatal(err)
	}
	if res.Code[0] != 0x55 {
		t.Errorf("first byte = %#x, want push ebp (0x55)", res.Code[0])
	}
}

var (
	_ = amd64.Target // keep the amd64 backend import live for its init-time registration
	_ = x86.Target   // same for 386
)
