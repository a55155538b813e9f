// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import "github.com/vonfalk/storm-javavis-sub004/asm"

// ParamClass records how MaterializeParams decided to pass one parameter:
// in a register or on the incoming-argument area of the stack, and
// whether the value itself travels by pointer. Primitives and small
// simple aggregates go by value; everything else is complex and the
// register/stack slot carries the value's address instead, with the
// prolog copying the pointee into the parameter's local home slot so
// every later reference is a uniform frame-relative access.
type ParamClass struct {
	InRegister bool
	Reg        asm.Register
	ByPointer  bool

	// IncomingOffset is the frame-relative offset of the incoming
	// argument slot for a stack-passed by-pointer parameter (the slot
	// holding the address; the value's home is VarOffset).
	IncomingOffset int64
}

// passByPointer classifies a parameter type: primitives travel by
// value, simple aggregates travel by value while they fit two machine
// words, and every other (complex) type travels by pointer.
func (t Target) passByPointer(td asm.TypeDesc) bool {
	if td == nil || td.Primitive() {
		return false
	}
	if td.Aggregate() && td.Size() <= 2*int64(t.WordSize) {
		return false
	}
	return true
}

// FrameLayout is MaterializeParams' output description of the stack frame
// it built, consumed by package binary when it writes the variable
// metadata table.
type FrameLayout struct {
	FrameSize  int64
	VarOffset  map[asm.VarID]int64 // offset from Target.FramePointer
	VarSize    map[asm.VarID]int64
	ParamClass map[asm.VarID]ParamClass

	params []asm.VarID // declaration order, so prolog spills deterministically
}

func sizeFor(n int64) asm.Size {
	switch {
	case n > 4:
		return asm.SizeLong
	case n > 1:
		return asm.SizeInt
	case n == 1:
		return asm.SizeByte
	default:
		return asm.SizePtr
	}
}

// buildLayout assigns every local variable a slot below the frame pointer
// and every parameter either a register class or a slot in the incoming
// argument area above it.
func buildLayout(l *asm.Listing, t Target) *FrameLayout {
	layout := &FrameLayout{
		VarOffset:  make(map[asm.VarID]int64),
		VarSize:    make(map[asm.VarID]int64),
		ParamClass: make(map[asm.VarID]ParamClass),
	}

	var localOffset int64
	allocLocal := func(v asm.VarID, size int64) {
		slot := t.slotSize(size)
		localOffset -= slot
		layout.VarOffset[v] = localOffset
		layout.VarSize[v] = size
	}

	for _, v := range l.AllVars() {
		allocLocal(v, l.VarSize(v))
	}

	params := l.AllParams()
	layout.params = params
	stackOffset := int64(2 * t.WordSize) // saved frame pointer + return address
	for i, v := range params {
		size := l.VarSize(v)
		byPtr := false
		if d := l.ParamDescOf(v); d != nil {
			byPtr = t.passByPointer(d.Type)
		}
		if i < len(t.IntParamRegs) {
			layout.ParamClass[v] = ParamClass{InRegister: true, Reg: t.IntParamRegs[i], ByPointer: byPtr}
			// A register parameter still gets a home slot: the prolog
			// spills it there (or, for a by-pointer parameter, copies
			// the pointee there) so every later reference can be a
			// uniform Mem operand, matching how real calling-convention
			// lowering treats register arguments as pre-spilled locals.
			allocLocal(v, size)
			continue
		}
		if byPtr {
			// The incoming stack slot holds one word: the value's
			// address. The value's home is a local slot the prolog
			// copies into.
			layout.ParamClass[v] = ParamClass{ByPointer: true, IncomingOffset: stackOffset}
			allocLocal(v, size)
			stackOffset += int64(t.WordSize)
			continue
		}
		layout.ParamClass[v] = ParamClass{}
		layout.VarOffset[v] = stackOffset
		layout.VarSize[v] = size
		stackOffset += t.slotSize(size)
	}

	layout.FrameSize = -localOffset
	return layout
}

func rewriteVar(o asm.Operand, layout *FrameLayout) asm.Operand {
	if o.Kind != asm.OpVar {
		return o
	}
	sz := o.Size
	if sz == asm.SizeNone {
		sz = sizeFor(layout.VarSize[o.Var])
	}
	return asm.Mem(0, layout.VarOffset[o.Var], sz) // base register patched in by caller (FramePointer)
}

// MaterializeParams expands prolog,
// epilog, fnParam/fnParamRef, fnCall/fnCallRef and fnRet/fnRetRef into the
// target's concrete calling-convention sequence, and replaces every
// variable operand with a frame-relative memory operand.
func MaterializeParams(entries []asm.Entry, l *asm.Listing, t Target, used []*UsedRegSet) ([]asm.Entry, *FrameLayout, error) {
	layout := buildLayout(l, t)
	fp := t.FramePointer

	fix := func(o asm.Operand) asm.Operand {
		o2 := rewriteVar(o, layout)
		if o.Kind == asm.OpVar {
			o2.Reg = fp
		}
		return o2
	}

	var calleeSpill []asm.Register
	if len(used) > 0 {
		spillSet := Union(used)
		for _, r := range t.CalleeSaved {
			if spillSet.Has(int(r)) {
				calleeSpill = append(calleeSpill, r)
			}
		}
	}

	out := make([]asm.Entry, 0, len(entries)+8)
	var pendingArgs []callArg

	for _, e := range entries {
		instr := e.Instr
		switch instr.Op {
		case asm.AProlog:
			out = append(out, prolog(t, layout, calleeSpill, l.ExceptionAware())...)
			continue
		case asm.AEpilog:
			out = append(out, epilog(t, calleeSpill)...)
			continue
		case asm.ABegin, asm.AEnd:
			continue // pure scope markers carry no code once lowered
		case asm.AFnParam, asm.AFnParamRef:
			// fnParamRef passes by reference explicitly; a plain fnParam
			// whose variable carries a complex type is promoted to the
			// same by-pointer path.
			byRef := instr.Op == asm.AFnParamRef
			if !byRef && instr.Dst.Kind == asm.OpVar {
				byRef = t.passByPointer(l.VarType(instr.Dst.Var))
			}
			pendingArgs = append(pendingArgs, callArg{op: fix(instr.Dst), byRef: byRef})
			continue
		case asm.AFnCall, asm.AFnCallRef:
			seq, err := materializeCall(t, pendingArgs, fix(instr.Dst))
			if err != nil {
				return nil, nil, err
			}
			out = append(out, seq...)
			pendingArgs = nil
			continue
		case asm.AFnRet, asm.AFnRetRef:
			src := fix(instr.Dst)
			out = append(out, asm.Entry{
				Instr:  asm.Instr{Op: asm.AMov, Dst: asm.Reg(t.ReturnReg, src.Size), Src: src},
				Labels: e.Labels,
			})
			continue
		}

		out = append(out, asm.Entry{
			Instr: asm.Instr{
				Op:   instr.Op,
				Dst:  fix(instr.Dst),
				Src:  fix(instr.Src),
				Arg0: fix(instr.Arg0),
				Arg1: fix(instr.Arg1),
			},
			Labels: e.Labels,
		})
	}
	return out, layout, nil
}

// callArg is one pending fnParam operand together with its by-reference
// classification.
type callArg struct {
	op    asm.Operand
	byRef bool
}

// materializeCall lowers one fnParam* ... fnCall* group into a concrete
// call sequence: register arguments moved directly, overflow arguments
// pushed right-to-left. A by-reference argument passes the value's
// address (lea for an addressable operand, or the register itself when
// the address is already in one); the callee's prolog performs the copy,
// so the caller never materializes a temporary.
func materializeCall(t Target, args []callArg, target asm.Operand) ([]asm.Entry, error) {
	var seq []asm.Entry
	var stackArgs []callArg
	for i, a := range args {
		if i >= len(t.IntParamRegs) {
			stackArgs = append(stackArgs, a)
			continue
		}
		if !a.byRef {
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.AMov, Dst: asm.Reg(t.IntParamRegs[i], a.op.Size), Src: a.op}})
			continue
		}
		switch a.op.Kind {
		case asm.OpMem:
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.ALea, Dst: asm.Reg(t.IntParamRegs[i], asm.SizePtr), Src: a.op}})
		case asm.OpReg:
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.AMov, Dst: asm.Reg(t.IntParamRegs[i], asm.SizePtr), Src: asm.Reg(a.op.Reg, asm.SizePtr)}})
		default:
			return nil, &asm.InvalidOperandError{Op: asm.AFnParamRef, Reason: "by-pointer argument is not addressable"}
		}
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		a := stackArgs[i]
		if !a.byRef {
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: a.op}})
			continue
		}
		switch a.op.Kind {
		case asm.OpMem:
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.ALea, Dst: asm.Reg(t.Scratch, asm.SizePtr), Src: a.op}})
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: asm.Reg(t.Scratch, asm.SizePtr)}})
		case asm.OpReg:
			seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: asm.Reg(a.op.Reg, asm.SizePtr)}})
		default:
			return nil, &asm.InvalidOperandError{Op: asm.AFnParamRef, Reason: "by-pointer argument is not addressable"}
		}
	}
	seq = append(seq, asm.Entry{Instr: asm.Instr{Op: asm.ACall, Dst: target}})
	if n := len(stackArgs); n > 0 {
		seq = append(seq, asm.Entry{Instr: asm.Instr{
			Op:  asm.AAdd,
			Dst: asm.Reg(t.StackPointer, asm.SizePtr),
			Src: asm.ImmPtr(int64(n) * int64(t.WordSize)),
		}})
	}
	return seq, nil
}

// prolog emits the platform frame setup: push/establish the frame
// pointer, allocate the local area, spill any callee-saved register the
// used-register analysis found live, spill register parameters to their
// home slots, and install the exception handler if the listing carries
// any freeOnException variable.
func prolog(t Target, layout *FrameLayout, calleeSpill []asm.Register, exceptionAware bool) []asm.Entry {
	var out []asm.Entry
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: asm.Reg(t.FramePointer, asm.SizePtr)}})
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AMov, Dst: asm.Reg(t.FramePointer, asm.SizePtr), Src: asm.Reg(t.StackPointer, asm.SizePtr)}})
	if layout.FrameSize > 0 {
		out = append(out, asm.Entry{Instr: asm.Instr{
			Op:  asm.ASub,
			Dst: asm.Reg(t.StackPointer, asm.SizePtr),
			Src: asm.ImmPtr(layout.FrameSize),
		}})
	}
	for _, r := range calleeSpill {
		out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APush, Src: asm.Reg(r, asm.SizePtr)}})
	}
	for _, v := range layout.params {
		class := layout.ParamClass[v]
		switch {
		case class.InRegister && !class.ByPointer:
			sz := sizeFor(layout.VarSize[v])
			out = append(out, asm.Entry{Instr: asm.Instr{
				Op:  asm.AMov,
				Dst: asm.Mem(t.FramePointer, layout.VarOffset[v], sz),
				Src: asm.Reg(class.Reg, sz),
			}})
		case class.InRegister && class.ByPointer:
			out = append(out, copyIn(t, layout, v, class.Reg)...)
		case !class.InRegister && class.ByPointer:
			out = append(out, asm.Entry{Instr: asm.Instr{
				Op:  asm.AMov,
				Dst: asm.Reg(t.Scratch, asm.SizePtr),
				Src: asm.Mem(t.FramePointer, class.IncomingOffset, asm.SizePtr),
			}})
			out = append(out, copyIn(t, layout, v, t.Scratch)...)
		}
	}
	if exceptionAware {
		out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AThreadLocal}})
	}
	return out
}

// copyIn emits the word-by-word copy of a by-pointer parameter's value
// into its local home slot. ptr names the register holding the value's
// address; the return register serves as the data register, since
// nothing is live in it this early in the function.
func copyIn(t Target, layout *FrameLayout, v asm.VarID, ptr asm.Register) []asm.Entry {
	var out []asm.Entry
	words := t.slotSize(layout.VarSize[v]) / int64(t.WordSize)
	for w := int64(0); w < words; w++ {
		off := w * int64(t.WordSize)
		out = append(out, asm.Entry{Instr: asm.Instr{
			Op:  asm.AMov,
			Dst: asm.Reg(t.ReturnReg, asm.SizePtr),
			Src: asm.Mem(ptr, off, asm.SizePtr),
		}})
		out = append(out, asm.Entry{Instr: asm.Instr{
			Op:  asm.AMov,
			Dst: asm.Mem(t.FramePointer, layout.VarOffset[v]+off, asm.SizePtr),
			Src: asm.Reg(t.ReturnReg, asm.SizePtr),
		}})
	}
	return out
}

// epilog reverses prolog exactly.
func epilog(t Target, calleeSpill []asm.Register) []asm.Entry {
	var out []asm.Entry
	for i := len(calleeSpill) - 1; i >= 0; i-- {
		out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APop, Dst: asm.Reg(calleeSpill[i], asm.SizePtr)}})
	}
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.AMov, Dst: asm.Reg(t.StackPointer, asm.SizePtr), Src: asm.Reg(t.FramePointer, asm.SizePtr)}})
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.APop, Dst: asm.Reg(t.FramePointer, asm.SizePtr)}})
	out = append(out, asm.Entry{Instr: asm.Instr{Op: asm.ARet}})
	return out
}
