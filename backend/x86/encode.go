// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package x86

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

// rm mirrors backend/amd64's operand model; x86 never needs a REX byte,
// so this file stays entirely three-bit-register arithmetic.
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

func low3(r asm.Register) byte { return byte(r) & 7 }

func writeModRM(buf *bytes.Buffer, field byte, m rm) {
	field &= 7
	if !m.mem {
		buf.WriteByte(0xC0 | field<<3 | low3(m.reg))
		return
	}
	needsSIB := low3(m.reg) == 4 // ESP base requires an explicit SIB byte
	var mod byte
	var dispBytes int
	switch {
	case m.offset == 0 && low3(m.reg) != 5: // EBP can't encode mod=00 (that's disp32-only addressing)
		mod, dispBytes = 0x00, 0
	case m.offset >= -128 && m.offset <= 127:
		mod, dispBytes = 0x01, 1
	default:
		mod, dispBytes = 0x02, 4
	}
	rmField := low3(m.reg)
	if needsSIB {
		rmField = 0x04
	}
	buf.WriteByte(mod | field<<3 | rmField)
	if needsSIB {
		buf.WriteByte(0x24)
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

func putImm32(buf *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	buf.Write(tmp[:])
}

func isImm(o asm.Operand) bool {
	switch o.Kind {
	case asm.OpImmByte, asm.OpImmInt, asm.OpImmLong, asm.OpImmPtr:
		return true
	default:
		return false
	}
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
		return nil, fmt.Errorf("x86: not an ALU op: %v", instr.Op)
	}
	switch {
	case instr.Src.Kind == asm.OpReg:
		buf.WriteByte(field*8 + 1)
		writeModRM(buf, low3(instr.Src.Reg), rmOf(instr.Dst))
	case instr.Dst.Kind == asm.OpReg && instr.Src.Kind == asm.OpMem:
		buf.WriteByte(field*8 + 3)
		writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
	case isImm(instr.Src):
		buf.WriteByte(0x81)
		writeModRM(buf, field, rmOf(instr.Dst))
		putImm32(buf, int32(immOf(instr.Src)))
	default:
		return nil, fmt.Errorf("x86: unsupported operand combination for %v", instr.Op)
	}
	return nil, nil
}

func encodeMov(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	switch {
	case instr.Dst.Kind == asm.OpReg && instr.Src.Kind == asm.OpReg:
		buf.WriteByte(0x89)
		writeModRM(buf, low3(instr.Src.Reg), rmOf(instr.Dst))
	case instr.Dst.Kind == asm.OpReg && instr.Src.Kind == asm.OpMem:
		buf.WriteByte(0x8B)
		writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
	case instr.Dst.Kind == asm.OpMem && instr.Src.Kind == asm.OpReg:
		buf.WriteByte(0x89)
		writeModRM(buf, low3(instr.Src.Reg), rmOf(instr.Dst))
	case isImm(instr.Src):
		buf.WriteByte(0xC7)
		writeModRM(buf, 0, rmOf(instr.Dst))
		putImm32(buf, int32(immOf(instr.Src)))
	default:
		return nil, fmt.Errorf("x86: unsupported mov operand combination")
	}
	return nil, nil
}

func encodeLea(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg || instr.Src.Kind != asm.OpMem {
		return nil, fmt.Errorf("x86: lea requires reg, mem")
	}
	buf.WriteByte(0x8D)
	writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
	return nil, nil
}

func encodePush(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	switch {
	case instr.Src.Kind == asm.OpReg:
		buf.WriteByte(0x50 + low3(instr.Src.Reg))
	case isImm(instr.Src):
		buf.WriteByte(0x68)
		putImm32(buf, int32(immOf(instr.Src)))
	default:
		return nil, fmt.Errorf("x86: unsupported push operand")
	}
	return nil, nil
}

func encodePop(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("x86: pop requires a register destination")
	}
	buf.WriteByte(0x58 + low3(instr.Dst.Reg))
	return nil, nil
}

func encodeRet(buf *bytes.Buffer) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0xC3)
	return nil, nil
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

func finishRel32(buf *bytes.Buffer, fieldStart int, target asm.Operand, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	if target.Kind == asm.OpLabel {
		if off, ok := resolve(target.Label); ok {
			putImm32(buf, int32(off-int32(fieldStart+4)))
			return nil, nil
		}
		putImm32(buf, 0)
		return nil, nil
	}
	putImm32(buf, 0)
	addr, err := targetAddr(target)
	if err != nil {
		return nil, err
	}
	return []gcfmt.CodeRef{{Kind: gcfmt.RefRelative, Offset: int32(fieldStart), Target: addr}}, nil
}

func targetAddr(o asm.Operand) (unsafe.Pointer, error) {
	switch o.Kind {
	case asm.OpImmPtr, asm.OpImmLong, asm.OpImmInt:
		return unsafe.Pointer(uintptr(immOf(o))), nil
	default:
		return nil, fmt.Errorf("x86: call/jmp target of kind %v carries no resolvable address", o.Kind)
	}
}

func encodeCall(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	start := buf.Len()
	buf.WriteByte(0xE8)
	return finishRel32(buf, start+1, instr.Dst, resolve)
}

func encodeJmp(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	start := buf.Len()
	buf.WriteByte(0xE9)
	return finishRel32(buf, start+1, instr.Dst, resolve)
}

func encodeJmpCond(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	start := buf.Len()
	buf.WriteByte(0x0F)
	buf.WriteByte(0x80 + condCC(instr.Arg0.Cond))
	return finishRel32(buf, start+2, instr.Dst, resolve)
}

func encodeSetCond(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("x86: setcc requires a register destination")
	}
	buf.WriteByte(0x0F)
	buf.WriteByte(0x90 + condCC(instr.Src.Cond))
	writeModRM(buf, 0, rm{reg: instr.Dst.Reg})
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
		return nil, fmt.Errorf("x86: not a shift op: %v", instr.Op)
	}
	if instr.Src.Kind == asm.OpImmByte || instr.Src.Kind == asm.OpImmInt {
		buf.WriteByte(0xC1)
		writeModRM(buf, field, rmOf(instr.Dst))
		buf.WriteByte(byte(immOf(instr.Src)))
		return nil, nil
	}
	buf.WriteByte(0xD3)
	writeModRM(buf, field, rmOf(instr.Dst))
	return nil, nil
}

func encodeBnot(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	buf.WriteByte(0xF7)
	writeModRM(buf, 2, rmOf(instr.Dst))
	return nil, nil
}

// encodeMul emits imul r32, r/m32 (0F AF /r) — cdecl's int*int multiply.
func encodeMul(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("x86: imul requires a register destination")
	}
	buf.WriteByte(0x0F)
	buf.WriteByte(0xAF)
	writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
	return nil, nil
}

// encodeSwap emits xchg; either side may be the register half of the pair.
func encodeSwap(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	switch {
	case instr.Src.Kind == asm.OpReg:
		buf.WriteByte(0x87)
		writeModRM(buf, low3(instr.Src.Reg), rmOf(instr.Dst))
	case instr.Dst.Kind == asm.OpReg:
		buf.WriteByte(0x87)
		writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
	default:
		return nil, fmt.Errorf("x86: swap requires at least one register operand")
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
// zero-extend eax into edx (cdq, or an explicit xor for the unsigned
// case), then divide by Src. AIdiv/AUdiv read their quotient out of Dst,
// which must name EAX; AImod/AUmod read the remainder out of Dst, which
// must name EDX. The four ops share one hardware instruction — each
// independently re-executes it rather than fusing quotient and remainder
// into a single listing-level instruction (documented simplification, see
// DESIGN.md).
func encodeDivMod(buf *bytes.Buffer, instr asm.Instr, signed, remainder bool) ([]gcfmt.CodeRef, error) {
	want := asm.Register(EAX)
	if remainder {
		want = EDX
	}
	if instr.Dst.Kind != asm.OpReg || instr.Dst.Reg != want {
		return nil, fmt.Errorf("x86: div/mod result must be read from the fixed accumulator register")
	}
	if signed {
		buf.WriteByte(0x99) // cdq
	} else {
		buf.WriteByte(0x31) // xor edx, edx
		writeModRM(buf, low3(EDX), rm{reg: EDX})
	}
	field := byte(6)
	if signed {
		field = 7
	}
	buf.WriteByte(0xF7)
	writeModRM(buf, field, rmOf(instr.Src))
	return nil, nil
}

// encodeCast sign- or zero-extends Src into Dst.
// Every GPR on this target is already 32 bits wide, so the only real
// narrowing/widening case is a byte-sized source, which needs an explicit
// movzx/movsx; anything else is a plain same-width mov.
func encodeCast(buf *bytes.Buffer, instr asm.Instr, signed bool) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpReg {
		return nil, fmt.Errorf("x86: cast requires a register destination")
	}
	if instr.Src.Size == asm.SizeByte {
		buf.WriteByte(0x0F)
		op := byte(0xB6)
		if signed {
			op = 0xBE
		}
		buf.WriteByte(op)
		writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
		return nil, nil
	}
	buf.WriteByte(0x8B)
	writeModRM(buf, low3(instr.Dst.Reg), rmOf(instr.Src))
	return nil, nil
}

// encodeFloatMem emits the x87 memory-operand family (fld/fstp/fild/
// fistp): opcode and /field vary independently between the 4- and 8-byte
// forms, so each call site supplies both pairs directly. Dst's Size (4 or
// 8) doubles as the float vs. integer width selector, since the IR
// carries no separate float-size tag.
func encodeFloatMem(buf *bytes.Buffer, instr asm.Instr, field32, op32, field64, op64 byte) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpMem {
		return nil, fmt.Errorf("x86: x87 memory op requires a memory operand")
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
// part of an encoded instruction.
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
		return nil, fmt.Errorf("x86: dat requires an immediate operand")
	}
	return nil, nil
}

// encodeLblOffset writes the resolved absolute offset of Dst's label as a
// 4-byte value. Its length does not depend on whether resolve can answer
// yet, preserving the single-pass-length property the label pass relies
// on.
func encodeLblOffset(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpLabel {
		return nil, fmt.Errorf("x86: lblOffset requires a label operand")
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

func encodeAlign(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	pad(buf, immOf(instr.Dst))
	return nil, nil
}

func encodeAlignAs(buf *bytes.Buffer, instr asm.Instr) ([]gcfmt.CodeRef, error) {
	if instr.Dst.Kind != asm.OpType || instr.Dst.Type == nil {
		return nil, fmt.Errorf("x86: alignAs requires a type operand")
	}
	pad(buf, instr.Dst.Type.Size())
	return nil, nil
}

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
	asm.ARet: func(buf *bytes.Buffer, _ asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeRet(buf)
	},
	asm.ACall:    encodeCall,
	asm.AJmp:     encodeJmp,
	asm.AJmpCond: encodeJmpCond,
	asm.AAdd:     wrapArith,
	asm.AAdc:     wrapArith,
	asm.ASub:     wrapArith,
	asm.ASbb:     wrapArith,
	asm.ACmp:     wrapArith,
	asm.ABor:     wrapArith,
	asm.ABand:    wrapArith,
	asm.ABxor:    wrapArith,
	asm.ASetCond: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeSetCond(buf, i)
	},
	asm.AShl: wrapShift,
	asm.AShr: wrapShift,
	asm.ASar: wrapShift,
	asm.ABnot: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeBnot(buf, i)
	},
	asm.APreserve:    wrapNop,
	asm.AThreadLocal: wrapNop,
	asm.AMul: func(buf *bytes.Buffer, i asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
		return encodeMul(buf, i)
	},
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
func wrapNop(buf *bytes.Buffer, _ asm.Instr, _ func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error) {
	return nil, nil
}
