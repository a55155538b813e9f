// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// Op is an instruction opcode. The vocabulary is machine-independent;
// backends lower each Op into their own encoding (see package backend).
type Op uint16

const (
	ANone Op = iota

	// Data movement.
	AMov
	ASwap
	APush
	APop
	APushFlags
	APopFlags
	ALea

	// Control flow.
	AJmp
	AJmpCond
	ACall
	ARet
	ASetCond

	// Arithmetic and bitwise.
	AAdd
	AAdc
	ASub
	ASbb
	ACmp
	ABor
	ABand
	ABxor
	ABnot
	AMul
	AIdiv
	AImod
	AUdiv
	AUmod
	AShl
	AShr
	ASar
	AIcast
	AUcast

	// Floating point (x87-style stack machine, per the reference backend).
	AFld
	AFild
	AFstp
	AFistp
	AFaddp
	AFsubp
	AFmulp
	AFdivp
	AFcompp
	AFwait

	// Data directives.
	ADat
	ALblOffset
	AAlign
	AAlignAs

	// Calling convention (lowered by transform.MaterializeParams).
	AFnParam
	AFnParamRef
	AFnCall
	AFnCallRef
	AFnRet
	AFnRetRef

	// Scope markers.
	AProlog
	AEpilog
	ABegin
	AEnd
	APreserve
	AThreadLocal
)

// Instr is one instruction: an opcode plus up to two operands. Most of the
// vocabulary needs at most two; directives and scope markers use Arg0 for
// their single operand (block/part/offset) and leave Arg1 zero.
type Instr struct {
	Op   Op
	Dst  Operand
	Src  Operand
	Arg0 Operand
	Arg1 Operand
}

// Entry is one slot in a Listing: an instruction plus any labels that were
// placed immediately before it. A label with no following instruction is
// not representable; see Listing.EmitLabel.
type Entry struct {
	Instr  Instr
	Labels []Label
}
