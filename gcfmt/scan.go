// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcfmt

import "unsafe"

// ScanAction is the verdict an ObjectPredicate returns for one object
// before the scan decides how much of it to walk.
type ScanAction uint8

const (
	ScanAll ScanAction = iota
	ScanHeaderOnly
	ScanNone
)

// Scanner is the minimal interface Objects requires: a cheap filter
// (Fix1) and the potentially relocating fix (Fix2).
type Scanner interface {
	// Fix1 reports whether p needs fixing at all (e.g. "is it in the
	// region being collected").
	Fix1(p unsafe.Pointer) bool
	// Fix2 fixes *slot in place: following a forwarder, relocating the
	// referent, or nulling a dead weak reference.
	Fix2(slot *unsafe.Pointer) error
}

// ObjectPredicate is an optional Scanner extension letting the scan skip
// or shallow-scan whole objects (e.g. objects already promoted this
// cycle).
type ObjectPredicate interface {
	Object(start, limit unsafe.Pointer) ScanAction
}

// HeaderFixer is an optional Scanner extension used for the header-only
// fast path: fix just the vtable/GcType slot without walking the rest of
// the object's pointers.
type HeaderFixer interface {
	FixHeader1(p unsafe.Pointer) bool
	FixHeader2(slot *unsafe.Pointer) error
}

// CodeUpdater is the hook into package gccode's per-architecture
// updatePtrs, invoked once per code allocation scanned.
type CodeUpdater interface {
	UpdatePtrs(client unsafe.Pointer, refs []CodeRef) error
}

func fix(s Scanner, slot *unsafe.Pointer) error {
	if *slot == nil {
		return nil
	}
	if s.Fix1(*slot) {
		return s.Fix2(slot)
	}
	return nil
}

// Objects walks every object in the half-open byte range [base, limit),
// dispatching each to the scanner s, and patching embedded machine code
// through cu. allocOffset is the platform's fixed displacement from a
// FixedObj/Type's vtable slot to its allocation base.
//
// Each object's successor is computed before dispatching it, so that a
// forwarder installed mid-walk (by s.Fix2) never shortens the walk.
func Objects(s Scanner, cu CodeUpdater, allocOffset uintptr, base, limit unsafe.Pointer) error {
	cur := base
	for uintptr(cur) < uintptr(limit) {
		next := Skip(cur)

		action := ScanAll
		if pred, ok := s.(ObjectPredicate); ok {
			action = pred.Object(cur, limit)
		}
		if action != ScanNone {
			if err := scanOne(s, cu, allocOffset, cur, action); err != nil {
				return err
			}
		}
		cur = next
	}
	return nil
}

func scanOne(s Scanner, cu CodeUpdater, allocOffset uintptr, client unsafe.Pointer, action ScanAction) error {
	kind := ObjKind(client)

	if kind == KindCode {
		trailer := CodeTrailer(client)
		selfSlot := (*unsafe.Pointer)(unsafe.Pointer(&trailer.Reserved))
		if err := fix(s, selfSlot); err != nil {
			return err
		}
		for i := range trailer.Refs {
			if trailer.Refs[i].Kind&1 != 0 {
				if err := fix(s, &trailer.Refs[i].Target); err != nil {
					return err
				}
			}
		}
		if cu != nil {
			return cu.UpdatePtrs(client, trailer.Refs)
		}
		return nil
	}

	switch kind {
	case kindPad0, kindPad, kindFwd1, kindFwd:
		return nil
	}

	h := HeaderOf(client)

	if h.HasVTable {
		vtSlot := (*unsafe.Pointer)(client)
		if err := fixVTable(s, vtSlot, allocOffset); err != nil {
			return err
		}
		if kind == KindType {
			gtSlot := (*unsafe.Pointer)(unsafe.Pointer(uintptr(client) + WordSize))
			if err := fix(s, gtSlot); err != nil {
				return err
			}
		}
	}

	if action == ScanHeaderOnly {
		if hf, ok := s.(HeaderFixer); ok && h.HasVTable {
			vtSlot := (*unsafe.Pointer)(client)
			if hf.FixHeader1(*vtSlot) {
				return hf.FixHeader2(vtSlot)
			}
		}
		return nil
	}

	switch kind {
	case KindFixed, KindFixedObj, KindType:
		for _, off := range h.Ptrs {
			slot := (*unsafe.Pointer)(unsafe.Pointer(uintptr(client) + off))
			if err := fix(s, slot); err != nil {
				return err
			}
		}
	case KindArray:
		count := *wordAt(client, 0)
		base := uintptr(client) + arrayHeaderSize
		for e := uintptr(0); e < count; e++ {
			for _, off := range h.Ptrs {
				slot := (*unsafe.Pointer)(unsafe.Pointer(base + e*h.Stride + off))
				if err := fix(s, slot); err != nil {
					return err
				}
			}
		}
	case KindWeakArray:
		count := *wordAt(client, 0) >> 1
		base := uintptr(client) + arrayHeaderSize
		for e := uintptr(0); e < count; e++ {
			for _, off := range h.Ptrs {
				slot := (*unsafe.Pointer)(unsafe.Pointer(base + e*h.Stride + off))
				if *slot == nil {
					continue
				}
				if s.Fix1(*slot) {
					if err := s.Fix2(slot); err != nil {
						return err
					}
					if *slot == nil {
						WeakSplat(client)
					}
				}
			}
		}
	}
	return nil
}

func fixVTable(s Scanner, vtSlot *unsafe.Pointer, allocOffset uintptr) error {
	if *vtSlot == nil {
		return nil
	}
	if !s.Fix1(*vtSlot) {
		return nil
	}
	allocBase := unsafe.Pointer(uintptr(*vtSlot) - allocOffset)
	if err := s.Fix2(&allocBase); err != nil {
		return err
	}
	*vtSlot = unsafe.Pointer(uintptr(allocBase) + allocOffset)
	return nil
}
