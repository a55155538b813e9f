// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"bytes"
	"fmt"

	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
	"github.com/vonfalk/storm-javavis-sub004/transform"
)

// Result is everything the encoder produced: the machine code, the
// trailer refs the gccode bridge will fix up after allocation, the frame
// layout binary.Binary needs to build its variable metadata table, and
// the code offset of the meta label transform/Listing.Meta reserves.
type Result struct {
	Code       []byte
	Refs       []gcfmt.CodeRef
	Layout     *transform.FrameLayout
	MetaOffset int32
}

// Encode lowers l through the transform pipeline for arch's target, then
// runs the label-offset pass followed by the output pass.
//
// Every instruction this backend supports has a byte length independent
// of where its label operands eventually resolve (jcc/call/jmp always
// reserve a rel32 field, regardless of the displacement's ultimate
// value), so the label pass converges in one iteration: offsets are
// known the moment each instruction is placed, before any label operand
// is resolved. resolve returns false for a forward reference during that
// pass; encoders must emit the fixed-width field regardless. The output
// pass then re-encodes with every label known.
func Encode(l *asm.Listing, arch *Arch) (*Result, error) {
	entries, layout, err := transform.Run(l, arch.Target)
	if err != nil {
		return nil, err
	}

	offsets, totalLen, err := labelPass(entries, arch)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, totalLen))
	resolve := func(lbl asm.Label) (int32, bool) {
		off, ok := offsets[lbl]
		return off, ok
	}

	var refs []gcfmt.CodeRef
	for _, e := range entries {
		enc, ok := arch.Encode[e.Instr.Op]
		if !ok {
			return nil, fmt.Errorf("obj: architecture %s has no encoder for op %v", arch.Name, e.Instr.Op)
		}
		before := int32(buf.Len())
		r, err := enc(buf, e.Instr, resolve)
		if err != nil {
			return nil, fmt.Errorf("obj: encoding op %v at offset %d: %w", e.Instr.Op, before, err)
		}
		refs = append(refs, r...)
	}

	metaOffset, ok := offsets[l.Meta()]
	if !ok {
		metaOffset = int32(buf.Len())
	}

	return &Result{
		Code:       buf.Bytes(),
		Refs:       refs,
		Layout:     layout,
		MetaOffset: metaOffset,
	}, nil
}

// labelPass measures every instruction with a throwaway buffer to learn
// label offsets before the real output pass runs, and returns the total
// code length alongside them so the caller can size its buffer once.
func labelPass(entries []asm.Entry, arch *Arch) (map[asm.Label]int32, int, error) {
	offsets := make(map[asm.Label]int32)
	never := func(asm.Label) (int32, bool) { return 0, false }

	var scratch bytes.Buffer
	for _, e := range entries {
		for _, lbl := range e.Labels {
			offsets[lbl] = int32(scratch.Len())
		}
		enc, ok := arch.Encode[e.Instr.Op]
		if !ok {
			return nil, 0, fmt.Errorf("obj: architecture %s has no encoder for op %v", arch.Name, e.Instr.Op)
		}
		if _, err := enc(&scratch, e.Instr, never); err != nil {
			return nil, 0, fmt.Errorf("obj: measuring op %v: %w", e.Instr.Op, err)
		}
	}
	return offsets, scratch.Len(), nil
}
