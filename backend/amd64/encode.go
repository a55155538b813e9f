// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
	"github.com/vonfalk/storm-javavis-sub004/obj"
)

// rm is an instruction's r/m operand: either a register or a [base+off]
// memory reference. Everything below encodes against this rather than
// asm.Operand directly, since the Mem/Reg forms an opcode needs to
// distinguish are exactly what rm models.
type rm struct {
	mem    bool
	reg    asm.Register
	offset int64
}

func rmOf(o asm.Operand) rm {
	if o.Kind == asm.OpMem {
		return rm{mem: true, reg: o.Reg, offset: o.Offset}
	}
	return rm{reg: o.Reg}
}

func regLow3(r asm.Register) byte { return byte(r) & 7 }
func regHigh(r asm.Register) bool { return r >= 8 }

func rexByte(w, r, x, b bool) byte {
	if !w && !r && !x && !b {
		return 0
	}
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

// writeModRM appends the ModRM byte (and SIB/disp if m is a memory
// operand) for field (a 3-bit register or sub-opcode selector) against m.
func writeModRM(buf *bytes.Buffer, field byte, m rm) {
	field &= 7
	if !m.mem {
		buf.WriteByte(0xC0 | field<<3 | regLow3(m.reg))
		return
	}
	needsSIB := regLow3(m.reg) == 4 // RSP/R12 base requires an explicit SIB byte
	var mod byte
	var dispBytes int
	switch {
	case m.offset == 0 && regLow3(m.reg) != 5: // RBP/R13 can't encode mod=00 (that's rip-relative)
		mod, dispBytes = 0x00, 0
	case m.offset >= -128 && m.offset <= 127:
		mod, dispBytes = 0x01, 1
	default:
		mod, dispBytes = 0x02, 4
	}
	rmField := regLow3(m.reg)
	if needsSIB {
		rmField = 0x04
	}
	buf.WriteByte(mod | field<<3 | rmField)
	if needsSIB {
		buf.WriteByte(0x24) // scale=0, index=none, base already in ModRM's rm field
	}
	switch dispBytes {
	case 1:
		buf.WriteByte(byte(int8(m.offset)))
	case 4:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(int32(m.offset)))
		buf.Write(tmp[:])
	}
}

// emitReg writes REX (if needed) + opcode + ModRM for a two-register-class
// instruction where reg is a real register (contributes to REX.R).
func emitReg(buf *bytes.Buffer, w bool, reg asm.Register, m rm, opcode ...byte) {
	r := rexByte(w, regHigh(reg), false, regHigh(m.reg))
	if r != 0 {
		buf.WriteByte(r)
	}
	buf.Write(opcode)
	writeModRM(buf, regLow3(reg), m)
}

// emitField writes REX + opcode + ModRM for a sub-opcode (/digit) form,
// where field selects the operation rather than naming a register.
func emitField(buf *bytes.Buffer, w bool, field byte, m rm, opcode ...byte) {
	r := rexByte(w, false, false, regHigh(m.reg))
	if r != 0 {
		buf.WriteByte(r)
	}
	buf.Write(opcode)
	writeModRM(buf, field, m)
}

func wordWidth(sz asm.Size) bool { return sz == asm.SizeLong || sz == asm.SizePtr }

func putImm32(buf *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	buf.Write(tmp[:])
}

func immOf(o asm.Operand) int64 {
	switch o.Kind {
	case asm.OpImmByte:
		return int64(o.ImmByte)
	case asm.OpImmInt:
		return int64(o.ImmInt)
	default:
		return o.ImmLong
	}
}

// arithField maps one of the six two-operand ALU ops plus adc/sbb to the
// x86 ALU opcode-group field used by both the register/register form
// (field*8 + 1/3) and the immediate-group form (0x81 /field).
func arithField(op asm.Op) (byte, bool) {
	switch op {
	case asm.AAdd:
		return 0, true
	case asm.ABor:
		return 1, true
	case asm.AAdc:
		return 2, true
	case asm.ASbb:
		return 3, true
	case asm.ABand:
		return 4, true
	case asm.ASub:
		return 5, true
	case asm.ABxor:
		return 6, true
	case asm.ACmp:
		return 7, true
	default:
		return 0, false
	}
}

func encodeArith(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	field, ok := arithField(instr.Op)
	if !ok {
		return nil, fmt.Errorf("amd64: not an ALU op: %v", instr.Op)
	}
	w := wordWidth(instr.Dst.Size)
	switch {
	case instr.Src.Kind == asm.OpReg:
		emitReg(buf, w, instr.Src.Reg, rmOf(instr.Dst), field*8+1)
	case instr.Dst.Kind == asm.OpReg && instr.Src.Kind == asm.OpMem:
		emitReg(buf, w, instr.Dst.Reg, rmOf(instr.Src), field*8+3)
	case instr.Src.Kind == asm.OpImmByte || instr.Src.Kind == asm.OpImmInt ||
		instr.Src.Kind == asm.OpImmLong || instr.Src.Kind == asm.OpImmPtr:
		emitField(buf, w, field, rmOf(instr.Dst), 0x81)
		putImm32(buf, int32(immOf(instr.Src)))
	default:
		return nil, fmt.Errorf("amd64: unsupported operand combination for %v", instr.Op)
	}
	return nil, nil
}

func encodeMov(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	w := wordWidth(instr.Dst.Size)
	switch {
	case instr.Dst.Kind == asm.OpReg && instr.Src.Kind == asm.OpReg:
		emitReg(buf, w, instr.Src.Reg, rmOf(instr.Dst), 0x89)
	case instr.Dst.Kind == asm.OpReg && instr.Src.Kind == asm.OpMem:
		emitReg(buf, w, instr.Dst.Reg, rmOf(instr.Src), 0x8B)
	case instr.Dst.Kind == asm.OpMem && instr.Src.Kind == asm.OpReg:
		emitReg(buf, w, instr.Src.Reg, rmOf(instr.Dst), 0x89)
	case instr.Dst.Kind == asm.OpReg && isImm(instr.Src):
		v := immOf(instr.Src)
		if w && (v > 0x7fffffff || v < -0x80000000) {
			r := rexByte(true, false, false, regHigh(instr.Dst.Reg))
			if r != 0 {
				buf.WriteByte(r)
			}
			buf.WriteByte(0xB8 + regLow3(instr.Dst.Reg))
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], uint64(v))
			buf.Write(tmp[:])
			return nil, nil
		}
		emitField(buf, w, 0, rmOf(instr.Dst), 0xC7)
		putImm32(buf, int32(v))
	case instr.Dst.Kind == asm.OpMem && isImm(instr.Src):
		emitField(buf, w, 0, rmOf(instr.Dst), 0xC7)
		putImm32(buf, int32(immOf(instr.Src)))
	default:
		return nil, fmt.Errorf("amd64: unsupported mov operand combination")
	}
	return nil, nil
}

func isImm(o asm.Operand) bool {
	switch o.Kind {
	case asm.OpImmByte, asm.OpImmInt, asm.OpImmLong, asm.OpImmPtr:
		return true
	default:
		return false
	}
}

func encodeLea(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg || instr.Src.Kind != asm.OpMem {
		return nil, fmt.Errorf("amd64: lea requires reg, mem")
	}
	emitReg(buf, true, instr.Dst.Reg, rmOf(instr.Src), 0x8D)
	return nil, nil
}

func encodePush(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Src.Kind == asm.OpReg {
		if regHigh(instr.Src.Reg) {
			buf.WriteByte(rexByte(false, false, false, true))
		}
		buf.WriteByte(0x50 + regLow3(instr.Src.Reg))
		return nil, nil
	}
	if isImm(instr.Src) {
		buf.WriteByte(0x68)
		putImm32(buf, int32(immOf(instr.Src)))
		return nil, nil
	}
	return nil, fmt.Errorf("amd64: unsupported push operand")
}

func encodePop(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("amd64: pop requires a register destination")
	}
	if regHigh(instr.Dst.Reg) {
		buf.WriteByte(rexByte(false, false, false, true))
	}
	buf.WriteByte(0x58 + regLow3(instr.Dst.Reg))
	return nil, nil
}

func encodeRet(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0xC3)
	return nil, nil
}

// encodeCall and encodeJmp always reserve a 5-byte rel32 form regardless
// of how close the target turns out to be — see obj.Encode's doc comment
// on why that keeps the single-pass-length property the label pass
// depends on.
func encodeCall(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	return encodeRel32(buf, 0xE8, instr.Dst, resolve)
}

func encodeJmp(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	return encodeRel32(buf, 0xE9, instr.Dst, resolve)
}

func encodeJmpCond(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	start := buf.Len()
	buf.WriteByte(0x0F)
	buf.WriteByte(0x80 + condCC(instr.Arg0.Cond))
	return finishRel32(buf, start+2, instr.Dst, resolve)
}

func encodeRel32(buf *bytes.Buffer, opcode byte, target asm.Operand, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	start := buf.Len()
	buf.WriteByte(opcode)
	return finishRel32(buf, start+1, target, resolve)
}

// finishRel32 appends the 4-byte displacement field at fieldStart,
// relative to the instruction's end (fieldStart+4), and records a
// RefRelative fixup in the trailer when target isn't a label this
// function can resolve on its own.
func finishRel32(buf *bytes.Buffer, fieldStart int, target asm.Operand, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	if target.Kind == asm.OpLabel {
		if off, ok := resolve(target.Label); ok {
			putImm32(buf, int32(off-int32(fieldStart+4)))
			return nil, nil
		}
		putImm32(buf, 0)
		return nil, nil
	}
	// A non-label call target (a runtime helper reached through an
	// address materialized at link time) is recorded for the gccode
	// bridge to patch in once the code block has a final address.
	putImm32(buf, 0)
	addr, err := targetAddr(target)
	if err != nil {
		return nil, err
	}
	return []gcfmt.CodeRef{{Kind: gcfmt.RefRelative, Offset: int32(fieldStart), Target: addr}}, nil
}

// targetAddr extracts the runtime address a non-label call/jmp operand
// carries. MaterializeParams only ever leaves a pointer-sized immediate
// on such a target (see transform.split64's compiler-rt call lowering).
func targetAddr(o asm.Operand) (unsafe.Pointer, error) {
	switch o.Kind {
	case asm.OpImmPtr, asm.OpImmLong:
		return unsafe.Pointer(uintptr(o.ImmLong)), nil
	default:
		return nil, fmt.Errorf("amd64: call/jmp target of kind %v carries no resolvable address", o.Kind)
	}
}

func condCC(c asm.Cond) byte {
	switch c {
	case asm.CondEqual:
		return 0x4
	case asm.CondNotEqual:
		return 0x5
	case asm.CondLess:
		return 0xC
	case asm.CondLessEqual:
		return 0xE
	case asm.CondGreater:
		return 0xF
	case asm.CondGreaterEqual:
		return 0xD
	case asm.CondBelow:
		return 0x2
	case asm.CondBelowEqual:
		return 0x6
	case asm.CondAbove:
		return 0x7
	case asm.CondAboveEqual:
		return 0x3
	default:
		return 0x4
	}
}

func encodeSetCond(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("amd64: setcc requires a register destination")
	}
	r := rexByte(false, false, false, regHigh(instr.Dst.Reg))
	if r != 0 {
		buf.WriteByte(r)
	}
	buf.WriteByte(0x0F)
	buf.WriteByte(0x90 + condCC(instr.Src.Cond))
	writeModRM(buf, 0, rm{reg: instr.Dst.Reg})
	return nil, nil
}

func encodeMul(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("amd64: imul requires a register destination")
	}
	w := wordWidth(instr.Dst.Size)
	emitReg(buf, w, instr.Dst.Reg, rmOf(instr.Src), 0x0F, 0xAF)
	return nil, nil
}

func shiftField(op asm.Op) (byte, bool) {
	switch op {
	case asm.AShl:
		return 4, true
	case asm.AShr:
		return 5, true
	case asm.ASar:
		return 7, true
	default:
		return 0, false
	}
}

func encodeShift(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	field, ok := shiftField(instr.Op)
	if !ok {
		return nil, fmt.Errorf("amd64: not a shift op: %v", instr.Op)
	}
	w := wordWidth(instr.Dst.Size)
	if instr.Src.Kind == asm.OpImmByte || instr.Src.Kind == asm.OpImmInt {
		emitField(buf, w, field, rmOf(instr.Dst), 0xC1)
		buf.WriteByte(byte(immOf(instr.Src)))
		return nil, nil
	}
	// shift by CL
	emitField(buf, w, field, rmOf(instr.Dst), 0xD3)
	return nil, nil
}

func encodeBnot(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	emitField(buf, wordWidth(instr.Dst.Size), 2, rmOf(instr.Dst), 0xF7)
	return nil, nil
}

func encodeNop(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return nil, nil
}

// encodeSwap emits xchg. Only one side needs to be a register; the other
// may be memory, matching real x86 xchg's two forms (0x87 /r, r/m first).
func encodeSwap(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	switch {
	case instr.Src.Kind == asm.OpReg:
		emitReg(buf, wordWidth(instr.Src.Size), instr.Src.Reg, rmOf(instr.Dst), 0x87)
	case instr.Dst.Kind == asm.OpReg:
		emitReg(buf, wordWidth(instr.Dst.Size), instr.Dst.Reg, rmOf(instr.Src), 0x87)
	default:
		return nil, fmt.Errorf("amd64: swap requires at least one register operand")
	}
	return nil, nil
}

func encodePushFlags(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0x9C)
	return nil, nil
}

func encodePopFlags(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0x9D)
	return nil, nil
}

// encodeDivMod emits the one-operand hardware div/idiv sequence: sign- or
// zero-extend the accumulator into the paired high register (cqo/cdq, or
// an explicit xor for the unsigned case), then divide by Src. AIdiv/AUdiv
// read their quotient out of Dst, which must name the accumulator
// (RAX/EAX); AImod/AUmod read the remainder out of Dst, which must name
// the paired high register (RDX/EDX). The four ops share one hardware
// instruction — each independently re-executes it rather than fusing
// quotient and remainder into a single listing-level instruction
// (documented simplification, see DESIGN.md).
func encodeDivMod(buf *bytes.Buffer, instr asm.Instr, signed, remainder bool) ([]gcfmt.CodeRef, error) {
	w := wordWidth(instr.Dst.Size)
	want := asm.Register(RAX)
	if remainder {
		want = RDX
	}
	if instr.Dst.Kind != asm.OpReg || instr.Dst.Reg != want {
		return nil, fmt.Errorf("amd64: div/mod result must be read from the fixed accumulator register")
	}
	if signed {
		if w {
			buf.WriteByte(rexByte(true, false, false, false))
		}
		buf.WriteByte(0x99) // cqo/cdq
	} else {
		emitReg(buf, w, RDX, rm{reg: RDX}, 0x31) // xor edx, edx / xor rdx, rdx
	}
	field := byte(6)
	if signed {
		field = 7
	}
	emitField(buf, w, field, rmOf(instr.Src), 0xF7)
	return nil, nil
}

// encodeCast sign- or zero-extends Src into Dst.
// Both share the same family of encodings: a narrow byte source always
// needs an explicit movzx/movsx, a 4-byte source either needs movsxd
// (signed) or relies on x86's implicit zero-extension of any plain
// 32-bit write (unsigned), and anything else is a same-or-widening plain
// mov.
func encodeCast(buf *bytes.Buffer, instr asm.Instr, signed bool) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("amd64: cast requires a register destination")
	}
	switch {
	case instr.Src.Size == asm.SizeByte:
		op := byte(0xB6)
		if signed {
			op = 0xBE
		}
		emitReg(buf, wordWidth(instr.Dst.Size), instr.Dst.Reg, rmOf(instr.Src), 0x0F, op)
	case instr.Src.Size == asm.SizeInt && wordWidth(instr.Dst.Size):
		if signed {
			emitReg(buf, true, instr.Dst.Reg, rmOf(instr.Src), 0x63) // movsxd
		} else {
			// A plain 32-bit write already zero-extends into the upper
			// 32 bits of the 64-bit destination.
			emitReg(buf, false, instr.Dst.Reg, rmOf(instr.Src), 0x8B)
		}
	default:
		emitReg(buf, wordWidth(instr.Dst.Size), instr.Dst.Reg, rmOf(instr.Src), 0x8B)
	}
	return nil, nil
}

// encodeFloatMem emits the x87 memory-operand family (fld/fstp/fild/
// fistp): opcode and /field vary independently between the 4- and 8-byte
// forms, so each call site supplies both pairs directly rather than
// deriving one from the other. Dst's Size (4 or 8) doubles as the float
// vs. integer width selector, since the IR carries no separate float-size
// tag.
func encodeFloatMem(buf *bytes.Buffer, instr asm.Instr, field32, op32, field64, op64 byte) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpMem {
		return nil, fmt.Errorf("amd64: x87 memory op requires a memory operand")
	}
	if instr.Dst.Size == asm.SizeLong {
		buf.WriteByte(op64)
		writeModRM(buf, field64, rmOf(instr.Dst))
		return nil, nil
	}
	buf.WriteByte(op32)
	writeModRM(buf, field32, rmOf(instr.Dst))
	return nil, nil
}

func encodeFld(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFloatMem(buf, instr, 0, 0xD9, 0, 0xDD)
}
func encodeFstp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFloatMem(buf, instr, 3, 0xD9, 3, 0xDD)
}
func encodeFild(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFloatMem(buf, instr, 0, 0xDB, 5, 0xDF)
}
func encodeFistp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFloatMem(buf, instr, 3, 0xDB, 7, 0xDF)
}

// encodeFStackOp emits one of the DE-prefixed x87 stack-pop forms
// (faddp/fsubp/fmulp/fdivp/fcompp all operate implicitly on st(1)/st).
func encodeFStackOp(buf *bytes.Buffer, b byte) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0xDE)
	buf.WriteByte(b)
	return nil, nil
}

func encodeFaddp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFStackOp(buf, 0xC1)
}
func encodeFsubp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFStackOp(buf, 0xE9)
}
func encodeFmulp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFStackOp(buf, 0xC9)
}
func encodeFdivp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFStackOp(buf, 0xF9)
}
func encodeFcompp(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	return encodeFStackOp(buf, 0xD9)
}
func encodeFwait(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0x9B)
	return nil, nil
}

// encodeDat writes Dst's immediate literally as raw bytes rather than as
// part of an encoded instruction: inline constant data (e.g. a float
// literal an fld reads back, or a jump-table base).
func encodeDat(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	switch instr.Dst.Kind {
	case asm.OpImmByte:
		buf.WriteByte(instr.Dst.ImmByte)
	case asm.OpImmInt:
		putImm32(buf, instr.Dst.ImmInt)
	case asm.OpImmLong, asm.OpImmPtr:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(instr.Dst.ImmLong))
		buf.Write(tmp[:])
	case asm.OpImmFloat:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(instr.Dst.ImmFloat))
		buf.Write(tmp[:])
	default:
		return nil, fmt.Errorf("amd64: dat requires an immediate operand")
	}
	return nil, nil
}

// encodeLblOffset writes the resolved absolute offset of Dst's label, as
// a 4-byte value, at this point in the code stream: the entry a jump
// table indexes into. Its length (4 bytes) does not depend on whether
// resolve can answer yet, preserving the single-pass-length property
// obj.Encode's label pass relies on.
func encodeLblOffset(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpLabel {
		return nil, fmt.Errorf("amd64: lblOffset requires a label operand")
	}
	off, _ := resolve(instr.Dst.Label)
	putImm32(buf, off)
	return nil, nil
}

// pad appends zero bytes until buf's length is a multiple of n.
func pad(buf *bytes.Buffer, n int64) {
	if n <= 0 {
		return
	}
	if rem := int64(buf.Len()) % n; rem != 0 {
		for i := rem; i < n; i++ {
			buf.WriteByte(0)
		}
	}
}

// encodeAlign pads with zero bytes until the buffer length is a multiple
// of Dst's immediate value.
func encodeAlign(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	pad(buf, immOf(instr.Dst))
	return nil, nil
}

// encodeAlignAs pads to the alignment implied by Dst's type descriptor,
// using its size as the alignment requirement.
func encodeAlignAs(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpType || instr.Dst.Type == nil {
		return nil, fmt.Errorf("amd64: alignAs requires a type operand")
	}
	pad(buf, instr.Dst.Type.Size())
	return nil, nil
}

// encoders is this backend's obj.Arch.Encode table: one entry per asm.Op
// this package can lower.
var encoders = map[asm.Op]obj.InstrEncoder{
	asm.AMov: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeMov(buf, i)
	},
	asm.ALea: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeLea(buf, i)
	},
	asm.APush: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodePush(buf, i)
	},
	asm.APop: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodePop(buf, i)
	},
	asm.ARet: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeRet(buf, i)
	},
	asm.ACall:     encodeCall,
	asm.AJmp:      encodeJmp,
	asm.AJmpCond:  encodeJmpCond,
	asm.AAdd:      wrapArith,
	asm.AAdc:      wrapArith,
	asm.ASub:      wrapArith,
	asm.ASbb:      wrapArith,
	asm.ACmp:      wrapArith,
	asm.ABor:      wrapArith,
	asm.ABand:     wrapArith,
	asm.ABxor:     wrapArith,
	asm.ASetCond: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeSetCond(buf, i)
	},
	asm.AMul: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeMul(buf, i)
	},
	asm.AShl: wrapShift,
	asm.AShr: wrapShift,
	asm.ASar: wrapShift,
	asm.ABnot: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeBnot(buf, i)
	},
	asm.APreserve:    wrapNop,
	asm.AThreadLocal: wrapNop,
	asm.ASwap: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeSwap(buf, i)
	},
	asm.APushFlags: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodePushFlags(buf, i)
	},
	asm.APopFlags: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodePopFlags(buf, i)
	},
	asm.AIdiv: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeDivMod(buf, i, true, false)
	},
	asm.AImod: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeDivMod(buf, i, true, true)
	},
	asm.AUdiv: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeDivMod(buf, i, false, false)
	},
	asm.AUmod: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeDivMod(buf, i, false, true)
	},
	asm.AIcast: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeCast(buf, i, true)
	},
	asm.AUcast: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeCast(buf, i, false)
	},
	asm.AFld: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFld(buf, i)
	},
	asm.AFild: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFild(buf, i)
	},
	asm.AFstp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFstp(buf, i)
	},
	asm.AFistp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFistp(buf, i)
	},
	asm.AFaddp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFaddp(buf, i)
	},
	asm.AFsubp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFsubp(buf, i)
	},
	asm.AFmulp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFmulp(buf, i)
	},
	asm.AFdivp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFdivp(buf, i)
	},
	asm.AFcompp: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFcompp(buf, i)
	},
	asm.AFwait: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeFwait(buf, i)
	},
	asm.ADat: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeDat(buf, i)
	},
	asm.ALblOffset: encodeLblOffset,
	asm.AAlign: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeAlign(buf, i)
	},
	asm.AAlignAs: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeAlignAs(buf, i)
	},
}

func wrapArith(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	return encodeArith(buf, i)
}
func wrapShift(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	return encodeShift(buf, i)
}
func wrapNop(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	return encodeNop(buf, i)
}
