// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements the machine-independent Listing intermediate
// representation: instructions, operands, labels, and the scope tree of
// blocks, parts and variables used to drive destructor placement.
package asm

import "fmt"

// Size is the width of an operand in bytes.
type Size uint8

const (
	SizeNone Size = 0
	SizeByte Size = 1
	SizeInt  Size = 4
	SizeLong Size = 8
	SizePtr  Size = 8
)

// Cond is a condition-flag literal (equal, less-than, ...).
type Cond uint8

const (
	CondAlways Cond = iota
	CondEqual
	CondNotEqual
	CondLess
	CondLessEqual
	CondGreater
	CondGreaterEqual
	CondBelow
	CondBelowEqual
	CondAbove
	CondAboveEqual
)

// Register is an abstract machine register id; backends map it to the
// concrete ISA register file.
type Register int32

// OpKind tags the variant held by an Operand.
type OpKind uint8

const (
	OpNone OpKind = iota
	OpReg         // register, sized
	OpMem         // [reg+off], sized
	OpImmByte
	OpImmInt
	OpImmLong
	OpImmPtr
	OpImmFloat
	OpLabel
	OpVar
	OpBlock
	OpPart
	OpCond
	OpType // type-descriptor reference
)

// TypeDesc is an opaque reference to a front-end type descriptor. The core
// never inspects its internals; it only threads it through calling
// convention classification (see package transform).
type TypeDesc interface {
	// Size is the in-memory size of a value of this type, in bytes.
	Size() int64
	// Aggregate reports whether this type is a simple aggregate that may
	// be passed in registers (vs. a complex type always passed by pointer).
	Aggregate() bool
	// Primitive reports whether this is a single scalar machine value.
	Primitive() bool
	String() string
}

// Operand is a tagged value used as an instruction argument.
type Operand struct {
	Kind OpKind
	Size Size

	Reg    Register // OpReg, base of OpMem
	Offset int64    // OpMem displacement

	ImmByte  byte
	ImmInt   int32
	ImmLong  int64
	ImmFloat float64

	Label Label
	Var   VarID
	Block BlockID
	Part  PartID
	Cond  Cond
	Type  TypeDesc
}

// Reg creates a sized register operand.
func Reg(r Register, sz Size) Operand { return Operand{Kind: OpReg, Reg: r, Size: sz} }

// Mem creates a [reg+off] memory operand of the given access size.
func Mem(base Register, off int64, sz Size) Operand {
	return Operand{Kind: OpMem, Reg: base, Offset: off, Size: sz}
}

// ImmByte creates a byte immediate.
func ImmByte(v byte) Operand { return Operand{Kind: OpImmByte, Size: SizeByte, ImmByte: v} }

// ImmInt creates a 4-byte immediate.
func ImmInt(v int32) Operand { return Operand{Kind: OpImmInt, Size: SizeInt, ImmInt: v} }

// ImmLong creates an 8-byte immediate.
func ImmLong(v int64) Operand { return Operand{Kind: OpImmLong, Size: SizeLong, ImmLong: v} }

// ImmPtr creates a pointer-sized immediate.
func ImmPtr(v int64) Operand { return Operand{Kind: OpImmPtr, Size: SizePtr, ImmLong: v} }

// ImmFloat creates a floating-point immediate.
func ImmFloat(v float64) Operand { return Operand{Kind: OpImmFloat, Size: SizeLong, ImmFloat: v} }

// LabelOperand references a label.
func LabelOperand(l Label) Operand { return Operand{Kind: OpLabel, Label: l} }

// VarOperand references a variable by id.
func VarOperand(v VarID) Operand { return Operand{Kind: OpVar, Var: v} }

// BlockOperand references a block by id.
func BlockOperand(b BlockID) Operand { return Operand{Kind: OpBlock, Block: b} }

// PartOperand references a part by id.
func PartOperand(p PartID) Operand { return Operand{Kind: OpPart, Part: p} }

// CondOperand holds a condition-flag literal.
func CondOperand(c Cond) Operand { return Operand{Kind: OpCond, Cond: c} }

// TypeOperand references a type descriptor.
func TypeOperand(t TypeDesc) Operand { return Operand{Kind: OpType, Type: t} }

func (o Operand) String() string {
	switch o.Kind {
	case OpNone:
		return "<none>"
	case OpReg:
		return fmt.Sprintf("r%d", o.Reg)
	case OpMem:
		return fmt.Sprintf("[r%d%+d]", o.Reg, o.Offset)
	case OpImmByte:
		return fmt.Sprintf("$%d", o.ImmByte)
	case OpImmInt:
		return fmt.Sprintf("$%d", o.ImmInt)
	case OpImmLong, OpImmPtr:
		return fmt.Sprintf("$%d", o.ImmLong)
	case OpImmFloat:
		return fmt.Sprintf("$%g", o.ImmFloat)
	case OpLabel:
		return fmt.Sprintf("L%d", o.Label)
	case OpVar:
		return fmt.Sprintf("v%d", o.Var)
	case OpBlock:
		return fmt.Sprintf("b%d", o.Block)
	case OpPart:
		return fmt.Sprintf("p%d", o.Part)
	case OpCond:
		return fmt.Sprintf("cc%d", o.Cond)
	case OpType:
		return o.Type.String()
	default:
		return "?"
	}
}
