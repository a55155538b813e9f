// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

import (
	"bytes"
	"testing"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

func encodeOp(t *testing.T, instr asm.Instr) []byte {
	t.Helper()
	enc, ok := encoders[instr.Op]
	if !ok {
		t.Fatalf("no encoder registered for %v", instr.Op)
	}
	var buf bytes.Buffer
	never := func(asm.Label) (int32, bool) { return 0, false }
	if _, err := enc(&buf, instr, never); err != nil {
		t.Fatalf("encoding %v: %v", instr.Op, err)
	}
	return buf.Bytes()
}

// TestEncodersCoverFullInstructionVocabulary guards against a future
// addition to asm.Op going unregistered on this target: obj.Encode hard-
// errors the moment a listing uses an op with no encoder, so every op a
// transform pass can still emit after MaterializeParams needs one here.
func TestEncodersCoverFullInstructionVocabulary(t *testing.T) {
	ops := []asm.Op{
		asm.AMov, asm.ASwap, asm.APush, asm.APop, asm.APushFlags, asm.APopFlags, asm.ALea,
		asm.AJmp, asm.AJmpCond, asm.ACall, asm.ARet, asm.ASetCond,
		asm.AAdd, asm.AAdc, asm.ASub, asm.ASbb, asm.ACmp, asm.ABor, asm.ABand, asm.ABxor, asm.ABnot,
		asm.AMul, asm.AIdiv, asm.AImod, asm.AUdiv, asm.AUmod,
		asm.AShl, asm.AShr, asm.ASar, asm.AIcast, asm.AUcast,
		asm.AFld, asm.AFild, asm.AFstp, asm.AFistp, asm.AFaddp, asm.AFsubp, asm.AFmulp, asm.AFdivp, asm.AFcompp, asm.AFwait,
		asm.ADat, asm.ALblOffset, asm.AAlign, asm.AAlignAs,
		asm.APreserve, asm.AThreadLocal,
	}
	for _, op := range ops {
		if _, ok := encoders[op]; !ok {
			t.Errorf("no encoder registered for %v", op)
		}
	}
}

// TestEncodeMulUsesTwoOperandImul covers a latent gap this target used to
// have: AMul had no registered encoder at all, so any 32-bit multiply
// (anything not wide enough to route through Split64's compiler-rt path)
// hard-errored in obj.Encode.
func TestEncodeMulUsesTwoOperandImul(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AMul, Dst: asm.Reg(ECX, asm.SizeInt), Src: asm.Reg(EAX, asm.SizeInt)})
	want := []byte{0x0F, 0xAF, 0xC8}
	if !bytes.Equal(got, want) {
		t.Errorf("mul = % X, want % X", got, want)
	}
}

// TestEncodeIcastSignExtendsAByte checks a signed narrow-to-wide cast.
func TestEncodeIcastSignExtendsAByte(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AIcast, Dst: asm.Reg(ECX, asm.SizeInt), Src: asm.Reg(EAX, asm.SizeByte)})
	want := []byte{0x0F, 0xBE, 0xC8}
	if !bytes.Equal(got, want) {
		t.Errorf("icast byte->int = % X, want % X", got, want)
	}
}

// TestEncodeUcastZeroExtendsAByte is the unsigned counterpart.
func TestEncodeUcastZeroExtendsAByte(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AUcast, Dst: asm.Reg(ECX, asm.SizeInt), Src: asm.Reg(EAX, asm.SizeByte)})
	want := []byte{0x0F, 0xB6, 0xC8}
	if !bytes.Equal(got, want) {
		t.Errorf("ucast byte->int = % X, want % X", got, want)
	}
}

// TestEncodeIdivSignExtendsThenDivides checks a native 32-bit signed
// divide.
func TestEncodeIdivSignExtendsThenDivides(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AIdiv, Dst: asm.Reg(EAX, asm.SizeInt), Src: asm.Reg(ECX, asm.SizeInt)})
	want := []byte{0x99, 0xF7, 0xF9} // cdq; idiv ecx
	if !bytes.Equal(got, want) {
		t.Errorf("idiv = % X, want % X", got, want)
	}
}

func TestEncodeUdivZeroExtendsThenDivides(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AUdiv, Dst: asm.Reg(EAX, asm.SizeInt), Src: asm.Reg(ECX, asm.SizeInt)})
	want := []byte{0x31, 0xD2, 0xF7, 0xF1} // xor edx,edx; div ecx
	if !bytes.Equal(got, want) {
		t.Errorf("udiv = % X, want % X", got, want)
	}
}

func TestEncodeImodRequiresEdxAsDst(t *testing.T) {
	enc := encoders[asm.AImod]
	var buf bytes.Buffer
	never := func(asm.Label) (int32, bool) { return 0, false }
	_, err := enc(&buf, asm.Instr{Op: asm.AImod, Dst: asm.Reg(EAX, asm.SizeInt), Src: asm.Reg(ECX, asm.SizeInt)}, never)
	if err == nil {
		t.Error("expected an error when imod's Dst isn't edx, the fixed remainder register")
	}
}

func TestEncodeSwapUsesXchg(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.ASwap, Dst: asm.Reg(EAX, asm.SizeInt), Src: asm.Reg(ECX, asm.SizeInt)})
	want := []byte{0x87, 0xC8}
	if !bytes.Equal(got, want) {
		t.Errorf("swap = % X, want % X", got, want)
	}
}

func TestEncodePushPopFlags(t *testing.T) {
	if got := encodeOp(t, asm.Instr{Op: asm.APushFlags}); !bytes.Equal(got, []byte{0x9C}) {
		t.Errorf("pushFlags = % X, want 9C", got)
	}
	if got := encodeOp(t, asm.Instr{Op: asm.APopFlags}); !bytes.Equal(got, []byte{0x9D}) {
		t.Errorf("popFlags = % X, want 9D", got)
	}
}

func TestEncodeFaddpIsAStackPop(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AFaddp})
	want := []byte{0xDE, 0xC1}
	if !bytes.Equal(got, want) {
		t.Errorf("faddp = % X, want % X", got, want)
	}
}

func TestEncodeFldPicksTheFloat64FormForAnEightByteOperand(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AFld, Dst: asm.Mem(EBP, -8, asm.SizeLong)})
	want := []byte{0xDD, 0x45, 0xF8}
	if !bytes.Equal(got, want) {
		t.Errorf("fld = % X, want % X", got, want)
	}
}

func TestEncodeFildPicksTheInt32FormByDefault(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.AFild, Dst: asm.Mem(EBP, -4, asm.SizeInt)})
	want := []byte{0xDB, 0x45, 0xFC}
	if !bytes.Equal(got, want) {
		t.Errorf("fild = % X, want % X", got, want)
	}
}

func TestEncodeDatWritesTheImmediateLiterally(t *testing.T) {
	got := encodeOp(t, asm.Instr{Op: asm.ADat, Dst: asm.ImmInt(42)})
	want := []byte{42, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("dat = % X, want % X", got, want)
	}
}

func TestEncodeAlignPadsToTheRequestedBoundary(t *testing.T) {
	enc := encoders[asm.AAlign]
	var buf bytes.Buffer
	buf.WriteByte(0xAA)
	never := func(asm.Label) (int32, bool) { return 0, false }
	if _, err := enc(&buf, asm.Instr{Op: asm.AAlign, Dst: asm.ImmInt(4)}, never); err != nil {
		t.Fatalf("align: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("buffer length after align(4) = %d, want 4", buf.Len())
	}
}

func TestEncodeLblOffsetReservesFourBytesRegardlessOfResolution(t *testing.T) {
	enc := encoders[asm.ALblOffset]
	var buf bytes.Buffer
	never := func(asm.Label) (int32, bool) { return 0, false }
	if _, err := enc(&buf, asm.Instr{Op: asm.ALblOffset, Dst: asm.LabelOperand(3)}, never); err != nil {
		t.Fatalf("lblOffset: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("lblOffset wrote %d bytes, want 4", buf.Len())
	}

	resolved := func(asm.Label) (int32, bool) { return 16, true }
	buf.Reset()
	if _, err := enc(&buf, asm.Instr{Op: asm.ALblOffset, Dst: asm.LabelOperand(3)}, resolved); err != nil {
		t.Fatalf("lblOffset: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("lblOffset wrote %d bytes when resolved, want 4", buf.Len())
	}
}
