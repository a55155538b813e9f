// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"io"
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

// Arena is the interface every GC backend implements. The
// three implementations — gc/bump, gc/marksweep, gc/copying — are
// interchangeable: a front-end written against Arena does not know which
// one it is using.
type Arena interface {
	Alloc(t *gcfmt.Header) (unsafe.Pointer, error)
	AllocArray(t *gcfmt.Header, count uintptr) (unsafe.Pointer, error)
	AllocWeakArray(count uintptr) (unsafe.Pointer, error)
	AllocStatic(t *gcfmt.Header) (unsafe.Pointer, error)
	AllocBuffer(n uintptr) (unsafe.Pointer, error)
	AllocCode(bytes uintptr, nRefs int) (unsafe.Pointer, error)

	AllocType(kind gcfmt.Kind, userType interface{}, stride uintptr, ptrOffsets []uintptr) *gcfmt.Header
	FreeType(t *gcfmt.Header)
	SwitchType(obj unsafe.Pointer, newType *gcfmt.Header) error

	AttachThread() error
	DetachThread() error

	CreateRoot(data unsafe.Pointer, count int, ambiguous bool) (*Root, error)
	DestroyRoot(r *Root) error

	CreateWatch() *Watch

	WalkObjects(cb func(client unsafe.Pointer) error) error

	Collect() error
	CollectBudget(timeBudgetMs int) (moreWork bool, err error)

	// Ramp hints that a burst of short-lived garbage is about to be
	// allocated; the returned func ends the hint.
	Ramp() func()

	MemorySummary() MemorySummary
	WriteHeapProfile(w io.Writer) error
}

// MemorySummary is a byte-accounting snapshot of the arena, distinct from
// the walkable-object pprof heap profile WriteHeapProfile produces.
type MemorySummary struct {
	Reserved  uintptr
	Committed uintptr
	Used      uintptr
	PerPool   map[string]uintptr
}

// Root is an array-of-pointer root registered with CreateRoot. Each
// arena tracks the roots it handed out; destroying a root it does not
// own is a RootError.
type Root struct {
	Data      unsafe.Pointer
	Count     int
	Ambiguous bool // true: scan conservatively; false: every slot is a pointer
}
