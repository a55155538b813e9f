// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bump implements the simplest of the three gc.Arena backends:
// a pure bump allocator over a reserved virtual region. It
// never collects and never moves an object once placed; Collect and
// CollectBudget are no-ops that report no work done. It exists to
// validate the object-format and listing code against something whose
// allocation behavior is impossible to get wrong.
package bump

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gc"
	"github.com/vonfalk/storm-javavis-sub004/gc/platform"
	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

const defaultChunkSize = 64 * 1024

// weakArrayHeader and bufferHeader are shared by every arena in this
// package. They must be package-level: the info word stores a Header as
// a raw uintptr the Go runtime cannot see, so anything shorter-lived
// would be collectable out from under the object it describes.
var (
	weakArrayHeader = &gcfmt.Header{Kind: gcfmt.KindWeakArray, Stride: gcfmt.WordSize, Ptrs: []uintptr{0}}
	bufferHeader    = &gcfmt.Header{Kind: gcfmt.KindArray, Stride: 1}
)

// Arena is a bump-pointer gc.Arena. The zero value is not usable; use New.
type Arena struct {
	gc.Generation

	mu        sync.Mutex
	base      uintptr
	committed uintptr // [base, base+committed) is mapped read/write
	reserved  uintptr // [base, base+reserved) is reserved address space
	next      uintptr // bump cursor, next <= base+committed

	attached atomic.Int32 // re-entrant attach count
	types    *gc.TypePool
	fin      *gc.FinalizationQueue

	roots map[*gc.Root]bool

	staticBytes uintptr
	bufferBytes uintptr
	codeBytes   uintptr

	// trailerPins keeps every GcCode trailer reachable by the Go runtime:
	// the code allocation references its trailer only through a raw word.
	trailerPins []*gcfmt.GcCode
}

// New reserves size bytes of address space and returns an empty Arena.
func New(size uintptr) (*Arena, error) {
	base, err := platform.Reserve(size)
	if err != nil {
		return nil, err
	}
	a := &Arena{
		base:     uintptr(base),
		reserved: size,
		types:    gc.NewTypePool(),
		fin:      gc.NewFinalizationQueue(),
		roots:    make(map[*gc.Root]bool),
	}
	a.next = a.base
	go a.fin.Run()
	return a, nil
}

// reserve grows the committed region if needed and bumps the cursor by
// size, under the arena lock. bump has no real per-thread fast path (every
// allocation goes through this slow path), since there is never a
// collection to make a lock-free reservation worth the complexity.
func (a *Arena) reserve(size uintptr) (unsafe.Pointer, error) {
	if a.attached.Load() <= 0 {
		return nil, &gc.ThreadNotRegisteredError{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next+size > a.base+a.committed {
		grow := size
		if grow < defaultChunkSize {
			grow = defaultChunkSize
		}
		if a.committed+grow > a.reserved {
			grow = a.reserved - a.committed
		}
		if grow < size {
			return nil, &gc.OutOfHeapError{Requested: size}
		}
		if err := platform.Commit(unsafe.Pointer(a.base+a.committed), grow); err != nil {
			return nil, &gc.OutOfHeapError{Requested: size}
		}
		a.committed += grow
	}
	addr := a.next
	a.next += size
	return unsafe.Pointer(addr), nil
}

func (a *Arena) Alloc(t *gcfmt.Header) (unsafe.Pointer, error) {
	total := gcfmt.WordSize + wordAlign(t.Stride)
	base, err := a.reserve(total)
	if err != nil {
		return nil, err
	}
	client := gcfmt.InitObj(base, t)
	return client, nil
}

func (a *Arena) AllocArray(t *gcfmt.Header, count uintptr) (unsafe.Pointer, error) {
	total := gcfmt.WordSize + 2*gcfmt.WordSize + count*t.Stride
	base, err := a.reserve(total)
	if err != nil {
		return nil, err
	}
	return gcfmt.InitArray(base, t, count), nil
}

func (a *Arena) AllocWeakArray(count uintptr) (unsafe.Pointer, error) {
	h := weakArrayHeader
	total := gcfmt.WordSize + 2*gcfmt.WordSize + count*h.Stride
	base, err := a.reserve(total)
	if err != nil {
		return nil, err
	}
	return gcfmt.InitWeakArray(base, h, count), nil
}

func (a *Arena) AllocStatic(t *gcfmt.Header) (unsafe.Pointer, error) {
	client, err := a.Alloc(t)
	if err == nil {
		a.mu.Lock()
		a.staticBytes += gcfmt.Size(client)
		a.mu.Unlock()
	}
	return client, err
}

func (a *Arena) AllocBuffer(n uintptr) (unsafe.Pointer, error) {
	h := bufferHeader
	client, err := a.AllocArray(h, n)
	if err == nil {
		a.mu.Lock()
		a.bufferBytes += gcfmt.Size(client)
		a.mu.Unlock()
	}
	return client, err
}

func (a *Arena) AllocCode(bytes uintptr, nRefs int) (unsafe.Pointer, error) {
	total := gcfmt.WordSize + wordAlign(bytes) + gcfmt.WordSize
	base, err := a.reserve(total)
	if err != nil {
		return nil, err
	}
	trailer := &gcfmt.GcCode{Refs: make([]gcfmt.CodeRef, nRefs)}
	client := gcfmt.InitCode(base, bytes, trailer)
	a.mu.Lock()
	a.codeBytes += gcfmt.Size(client)
	a.trailerPins = append(a.trailerPins, trailer)
	a.mu.Unlock()
	if err := platform.CommitExec(base, total); err != nil {
		return nil, err
	}
	return client, nil
}

func (a *Arena) AllocType(kind gcfmt.Kind, userType interface{}, stride uintptr, ptrOffsets []uintptr) *gcfmt.Header {
	return a.types.Alloc(kind, userType, stride, ptrOffsets)
}

func (a *Arena) FreeType(t *gcfmt.Header) { a.types.Free(t) }

func (a *Arena) SwitchType(obj unsafe.Pointer, newType *gcfmt.Header) error {
	old := gcfmt.HeaderOf(obj)
	if old == nil {
		return fmt.Errorf("bump: cannot switch type of a code allocation")
	}
	if old.Kind != newType.Kind || wordAlign(old.Stride) != wordAlign(newType.Stride) {
		return fmt.Errorf("bump: switchType must preserve size and kind")
	}
	return gcfmt.SetHeader(obj, newType)
}

// AttachThread is re-entrant: nested attach/detach pairs on the same
// thread are counted.
func (a *Arena) AttachThread() error {
	a.attached.Add(1)
	return nil
}

func (a *Arena) DetachThread() error {
	if a.attached.Add(-1) < 0 {
		a.attached.Store(0)
	}
	return nil
}

func (a *Arena) CreateRoot(data unsafe.Pointer, count int, ambiguous bool) (*gc.Root, error) {
	r := &gc.Root{Data: data, Count: count, Ambiguous: ambiguous}
	a.mu.Lock()
	a.roots[r] = true
	a.mu.Unlock()
	return r, nil
}

func (a *Arena) DestroyRoot(r *gc.Root) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.roots[r] {
		return &gc.RootError{Reason: "root not registered with this arena"}
	}
	delete(a.roots, r)
	return nil
}

func (a *Arena) CreateWatch() *gc.Watch { return a.Generation.Watch() }

func (a *Arena) WalkObjects(cb func(client unsafe.Pointer) error) error {
	a.mu.Lock()
	start, end := a.base+gcfmt.WordSize, a.next
	a.mu.Unlock()
	for p := start; p < end; {
		client := unsafe.Pointer(p)
		if err := cb(client); err != nil {
			return err
		}
		p = uintptr(gcfmt.Skip(client))
	}
	return nil
}

// Collect is a no-op: bump never reclaims memory.
func (a *Arena) Collect() error { return nil }

// CollectBudget is a no-op for the same reason; it always reports no more
// work pending.
func (a *Arena) CollectBudget(timeBudgetMs int) (bool, error) { return false, nil }

// Ramp is a no-op hint for bump: there is no generational promotion to
// tune, since nothing is ever collected.
func (a *Arena) Ramp() func() { return func() {} }

func (a *Arena) MemorySummary() gc.MemorySummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gc.MemorySummary{
		Reserved:  a.reserved,
		Committed: a.committed,
		Used:      a.next - a.base,
		PerPool: map[string]uintptr{
			"static": a.staticBytes,
			"buffer": a.bufferBytes,
			"code":   a.codeBytes,
			"types":  uintptr(a.types.Len()),
		},
	}
}

func (a *Arena) WriteHeapProfile(w io.Writer) error {
	return gc.WriteHeapProfile(w, a.WalkObjects)
}

func wordAlign(n uintptr) uintptr {
	w := gcfmt.WordSize
	return (n + w - 1) &^ (w - 1)
}

var _ gc.Arena = (*Arena)(nil)
