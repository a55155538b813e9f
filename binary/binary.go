// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binary implements Binary and frame cleanup: it wraps a
// finalized GC code allocation with the per-part variable table the
// platform unwinder needs to run destructors while unwinding through a
// live frame.
package binary

import (
	"fmt"
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/gc"
	"github.com/vonfalk/storm-javavis-sub004/gccode"
	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
	"github.com/vonfalk/storm-javavis-sub004/obj"
)

// sehTable is the unwind side table shared by every Binary. Build hands
// it to gccode.UpdatePtrs whatever the target, so it gains an entry for
// each RefUnwindInfo trailer entry; no code registers unwind data with an
// OS function table (see gccode.UnwindTable's doc).
var sehTable = gccode.NewUnwindTable()

// VarRecord is one variable's entry in a part's record: (id, freeOpt,
// size), extended with the two words the variable metadata table would
// otherwise hold (FreeFn, Offset) so that Cleanup has everything in one
// place rather than chasing a second table by id. See DESIGN.md for why
// the two tables collapse into one slice per part without changing any
// observable behavior.
type VarRecord struct {
	ID      asm.VarID
	FreeOpt asm.FreeOpt
	Size    int64

	// Offset is the frame-pointer-relative stack offset transform.
	// MaterializeParams assigned this variable.
	Offset int64
	// FreeFn is the destructor's resolved code address, or 0 if this
	// variable either has no destructor or its destructor operand could
	// not be resolved to a concrete address at build time (see
	// Diagnostics).
	FreeFn uintptr
}

// PartRecord is one part's entry in the Binary's parts array; element i
// describes part i+1.
type PartRecord struct {
	// Prev is the part cleanup continues into once every variable in
	// this part has been unwound: the preceding part in the same block,
	// or (at a block's first part) the part that opened the enclosing
	// block, or asm.InvalidPart at the root.
	Prev asm.PartID
	Vars []VarRecord
}

// Frame is the platform unwinder's view of one live call frame, supplied
// at cleanup time. Binary never reads real stack memory on its own.
type Frame interface {
	// ActivePart is the part the instruction pointer was inside of when
	// unwinding reached this frame.
	ActivePart() asm.PartID
	// ToPtr maps a VarRecord's signed frame-relative Offset to the
	// address of that variable's stack slot.
	ToPtr(offset int64) unsafe.Pointer
}

// Caller performs the actual native call to a destructor. Binary cannot
// make this call itself: FreeFn is a raw address inside a GC code block,
// not a Go function value, and invoking it correctly requires the
// target's calling convention: the same register/stack, by-value/by-
// pointer classification transform.MaterializeParams already applies to
// ordinary parameters.
// byPointer tells the caller whether to pass arg itself (true) or the
// size bytes at arg by value/register (false).
type Caller interface {
	Call(fn uintptr, arg unsafe.Pointer, size int64, byPointer bool)
}

// Binary is a finished, GC-managed function together with the scope-tree
// metadata frame cleanup needs.
type Binary struct {
	arena gc.Arena
	code  unsafe.Pointer // client pointer into the arena's GcCode allocation

	metaOffset int32
	rootPart   asm.PartID
	parts      []PartRecord // index i -> part id i+1

	diagnostics []string
}

// Build constructs a Binary from l: clone the
// listing, encode the clone for arch, build the parts array from the
// clone's scope tree and the encoder's frame layout, allocate a GC code
// block, copy the code in, and run updatePtrs once.
func Build(a gc.Arena, l *asm.Listing, arch *obj.Arch) (*Binary, error) {
	clone := l.Clone()

	res, err := obj.Encode(clone, arch)
	if err != nil {
		return nil, fmt.Errorf("binary: encode: %w", err)
	}
	if res.Layout == nil {
		return nil, fmt.Errorf("binary: encoder returned no frame layout")
	}

	b := &Binary{arena: a, rootPart: clone.RootPart(), metaOffset: res.MetaOffset}

	allParts := clone.AllParts()
	b.parts = make([]PartRecord, len(allParts))
	for _, p := range allParts {
		rec := PartRecord{Prev: prevCleanupPart(clone, p)}
		for _, v := range clone.PartVars(p) {
			vr := VarRecord{
				ID:      v,
				FreeOpt: clone.VarFreeOpt(v),
				Size:    clone.VarSize(v),
				Offset:  res.Layout.VarOffset[v],
			}
			if vr.FreeOpt&asm.FreeOnException != 0 {
				fn, ok := resolveDtor(clone.FreeFn(v))
				if !ok {
					b.diagnostics = append(b.diagnostics, fmt.Sprintf(
						"binary: variable %d in part %d is freeOnException but its destructor did not resolve to a concrete address; cleanup will skip it",
						v, p))
				}
				vr.FreeFn = fn
			}
			rec.Vars = append(rec.Vars, vr)
		}
		b.parts[int(p)-1] = rec
	}

	client, err := a.AllocCode(uintptr(len(res.Code)), len(res.Refs))
	if err != nil {
		return nil, fmt.Errorf("binary: alloc code: %w", err)
	}
	copy(gcfmt.CodeBytes(client), res.Code)
	if trailer := gcfmt.CodeTrailer(client); trailer != nil {
		copy(trailer.Refs, res.Refs)
	}

	if err := gccode.UpdatePtrs(arch.Updater, client, sehTable); err != nil {
		return nil, fmt.Errorf("binary: updatePtrs: %w", err)
	}

	b.code = client
	return b, nil
}

// resolveDtor turns a variable's destructor operand into a concrete code
// address. Only OpImmPtr/OpImmLong are supported: a destructor is always
// an already-linked function address by the time a Binary is built from
// it (a front end that wants to reference another Listing's function
// resolves that reference to an address once that Listing itself has a
// Binary). A same-listing OpLabel destructor falls through to the
// unresolved case, which Cleanup treats as "nothing to free" rather than
// a crash.
func resolveDtor(o *asm.Operand) (uintptr, bool) {
	if o == nil {
		return 0, false
	}
	switch o.Kind {
	case asm.OpImmPtr, asm.OpImmLong:
		return uintptr(o.ImmLong), true
	default:
		return 0, false
	}
}

// prevCleanupPart finds the part cleanup should continue into after p,
// walking from the innermost part outward:
// the previous part in the same block's chain if there is one, otherwise
// the part that opened p's enclosing block.
func prevCleanupPart(l *asm.Listing, p asm.PartID) asm.PartID {
	if prev := l.PrevPart(p); prev != asm.InvalidPart {
		return prev
	}
	return l.ParentPart(l.ParentBlock(p))
}

// Code returns the GC-managed client pointer to the machine code.
func (b *Binary) Code() unsafe.Pointer { return b.code }

// CodeLen returns the byte length of the machine code.
func (b *Binary) CodeLen() uintptr { return gcfmt.CodeLen(b.code) }

// MetaOffset is the byte offset, within the code, that the encoder
// reserved for Listing.Meta().
func (b *Binary) MetaOffset() int32 { return b.metaOffset }

// Part returns the record for part id p.
func (b *Binary) Part(p asm.PartID) PartRecord { return b.parts[int(p)-1] }

// Diagnostics returns the non-fatal warnings recorded while this Binary
// was built, surfaced here instead of a separate diagnostic channel
// since Build is synchronous and has nowhere else to deliver them.
func (b *Binary) Diagnostics() []string { return b.diagnostics }

// Close releases this Binary's unwind-table registration. Code
// allocations carry no Header and so no automatic Finalizer hook in this
// object format (see DESIGN.md); callers that build many short-lived
// Binaries should call Close once a Binary is known to be unreachable.
func (b *Binary) Close() {
	gccode.Finalize(sehTable, b.code)
}

// Cleanup runs destructors for frame, walking from its active part
// toward the root part and, within each part, variables in reverse
// declaration order. A variable without freeOnException, or whose
// destructor never resolved to a concrete address, is skipped rather
// than treated as an error: missing metadata must never crash an unwind
// already in progress. The diagnostic itself was already recorded by
// Build, in Diagnostics.
func (b *Binary) Cleanup(frame Frame, caller Caller) {
	for part := frame.ActivePart(); part != asm.InvalidPart; {
		rec := b.parts[int(part)-1]
		for i := len(rec.Vars) - 1; i >= 0; i-- {
			v := rec.Vars[i]
			if v.FreeOpt&asm.FreeOnException == 0 || v.FreeFn == 0 {
				continue
			}

			arg := frame.ToPtr(v.Offset)
			if v.FreeOpt&asm.FreeIndirection != 0 {
				arg = *(*unsafe.Pointer)(arg)
			}
			byPointer := v.FreeOpt&asm.FreePtr != 0 || v.Size > int64(gcfmt.WordSize)
			caller.Call(v.FreeFn, arg, v.Size, byPointer)
		}
		part = rec.Prev
	}
}
