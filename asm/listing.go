// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// Listing holds a machine-independent instruction sequence together with
// its scope tree, parameter list and return type. It is the unit that
// transforms (package transform) rewrite and the encoder (package obj /
// backend) lowers to native code.
type Listing struct {
	entries []Entry
	pending []Label // labels seen since the last emitted instruction

	labelCounter Label
	metaLabel    Label

	blocks []*block
	parts  []*part
	vars   []*variable

	rootBlock BlockID
	rootPart  PartID

	params     []VarID
	returnType TypeDesc
	isMember   bool
}

// New creates an empty Listing with a root block/part already open, ready
// to accept CreateParam calls before any code is emitted.
func New(isMember bool, returnType TypeDesc) *Listing {
	l := &Listing{isMember: isMember, returnType: returnType}
	l.rootBlock = 1
	l.rootPart = 1
	l.blocks = append(l.blocks, &block{id: l.rootBlock, parentPart: InvalidPart})
	l.parts = append(l.parts, &part{id: l.rootPart, block: l.rootBlock})
	l.blocks[0].parts = []PartID{l.rootPart}
	l.metaLabel = l.Label()
	return l
}

// RootBlock is the block opened by prolog and closed by epilog.
func (l *Listing) RootBlock() BlockID { return l.rootBlock }

// RootPart is the first part of the root block.
func (l *Listing) RootPart() PartID { return l.rootPart }

// IsMember reports whether this listing describes a member function
// (affects calling-convention classification of the receiver).
func (l *Listing) IsMember() bool { return l.isMember }

// ReturnType is the listing's declared return type descriptor.
func (l *Listing) ReturnType() TypeDesc { return l.returnType }

// Label allocates a fresh, as yet unattached, label.
func (l *Listing) Label() Label {
	l.labelCounter++
	return l.labelCounter
}

// Meta returns the distinguished label at which the backend deposits the
// per-variable metadata table.
func (l *Listing) Meta() Label { return l.metaLabel }

// Emit appends an instruction, attaching any labels placed since the
// previous instruction.
func (l *Listing) Emit(i Instr) {
	e := Entry{Instr: i}
	if len(l.pending) > 0 {
		e.Labels = l.pending
		l.pending = nil
	}
	l.entries = append(l.entries, e)
}

// EmitLabel places a label immediately before the next emitted
// instruction. A label with no following instruction is not
// representable.
func (l *Listing) EmitLabel(lbl Label) {
	l.pending = append(l.pending, lbl)
}

// Len returns the number of instruction entries in the listing.
func (l *Listing) Len() int { return len(l.entries) }

// At returns the i'th entry.
func (l *Listing) At(i int) Entry { return l.entries[i] }

// Entries returns every entry, in emission order. The returned slice must
// not be mutated; callers that need to rewrite a listing should build a
// new one (see package transform).
func (l *Listing) Entries() []Entry { return l.entries }

// ExceptionAware reports whether any variable in any part has
// FreeOnException set. Recomputed on demand rather than cached, since
// variables may still be added after an earlier query.
func (l *Listing) ExceptionAware() bool {
	for _, v := range l.vars {
		if v.opts&FreeOnException != 0 {
			return true
		}
	}
	return false
}

// Params returns the parameter list in declaration order. It is exposed
// directly (in addition to AllParams) because transform.MaterializeParams
// needs the TypeDesc alongside each id.
func (l *Listing) Params() []VarID { return l.AllParams() }

// Clone returns an independent deep copy of l. Building a Binary (package
// binary) clones the listing it is given before handing it to the
// encoder, so the front end's original listing is never mutated by a
// later build and stays safe to build again or keep inspecting.
func (l *Listing) Clone() *Listing {
	c := &Listing{
		entries:      append([]Entry(nil), l.entries...),
		pending:      append([]Label(nil), l.pending...),
		labelCounter: l.labelCounter,
		metaLabel:    l.metaLabel,
		rootBlock:    l.rootBlock,
		rootPart:     l.rootPart,
		params:       append([]VarID(nil), l.params...),
		returnType:   l.returnType,
		isMember:     l.isMember,
	}

	c.blocks = make([]*block, len(l.blocks))
	for i, b := range l.blocks {
		c.blocks[i] = &block{
			id:         b.id,
			parentPart: b.parentPart,
			parts:      append([]PartID(nil), b.parts...),
		}
	}

	c.parts = make([]*part, len(l.parts))
	for i, p := range l.parts {
		c.parts[i] = &part{
			id:          p.id,
			block:       p.block,
			vars:        append([]VarID(nil), p.vars...),
			childBlocks: append([]BlockID(nil), p.childBlocks...),
		}
	}

	c.vars = make([]*variable, len(l.vars))
	for i, v := range l.vars {
		nv := &variable{id: v.id, part: v.part, size: v.size, typ: v.typ, dtor: v.dtor, opts: v.opts}
		if v.param != nil {
			pd := *v.param
			nv.param = &pd
		}
		if v.debug != nil {
			d := *v.debug
			nv.debug = &d
		}
		c.vars[i] = nv
	}

	return c
}
