// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package copying implements the moving gc.Arena backend: a two-space
// (Cheney semispace) collector that evacuates everything reachable from
// a root into a fresh space and abandons the rest in one pass, giving
// O(live set) collection pauses instead of mark-sweep's O(heap size)
// ones, at the cost of every surviving pointer changing value across a
// Collect.
//
// The scan itself is gcfmt.Objects/gcfmt.Scanner (gcfmt/scan.go): the
// convergence loop repeatedly scans up to the current allocation point
// of the to-space until nothing new is evacuated. Weak arrays are held
// out of the strong scan and processed in a final phase, once
// reachability is settled, so a slot whose referent was never evacuated
// reads as nil afterwards and bumps the array's splat counter.
//
// Code allocations are never evacuated: their bytes are executable
// machine code that may already be mid-call on another goroutine's
// stack, so they live in a separate region this collector never moves.
// Static and buffer allocations share a second non-moving region, since
// both promise the caller a stable address.
package copying

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

type halfSpace struct {
	base, committed, next uintptr
}

// region is a non-moving bump range with its own reservation.
type region struct {
	base, committed, reserved, next uintptr
}

// Arena is a semispace gc.Arena. The zero value is not usable; use New.
type Arena struct {
	gc.Generation

	mu           sync.Mutex
	reservedHalf uintptr
	spaces       [2]halfSpace
	active       int // spaces[active] is where allocation happens between collections

	code   region // executable, never moved
	static region // AllocStatic/AllocBuffer, never moved or collected

	attached atomic.Int32
	types    *gc.TypePool
	fin      *gc.FinalizationQueue

	roots map[*gc.Root]bool

	staticBytes, bufferBytes, codeBytes uintptr
	liveBytes                           uintptr

	// trailerPins keeps every GcCode trailer reachable by the Go runtime:
	// the code allocation references its trailer only through a raw word.
	trailerPins []*gcfmt.GcCode
	gcThreshold                         uintptr
	ramping                             atomic.Int32
}

// New reserves heapSize bytes split into two evacuation semispaces, plus
// separate, equally sized, non-moving regions for code and for
// static/buffer allocations.
func New(heapSize uintptr) (*Arena, error) {
	half := heapSize / 2
	if half < defaultChunkSize {
		half = defaultChunkSize
	}
	base, err := platform.Reserve(2 * half)
	if err != nil {
		return nil, err
	}
	codeBase, err := platform.Reserve(heapSize)
	if err != nil {
		return nil, err
	}
	staticBase, err := platform.Reserve(heapSize)
	if err != nil {
		return nil, err
	}
	a := &Arena{
		reservedHalf: half,
		types:        gc.NewTypePool(),
		fin:          gc.NewFinalizationQueue(),
		roots:        make(map[*gc.Root]bool),
		gcThreshold:  defaultChunkSize,
	}
	a.spaces[0].base = uintptr(base)
	a.spaces[1].base = uintptr(base) + half
	a.spaces[0].next = a.spaces[0].base
	a.spaces[1].next = a.spaces[1].base
	a.code = region{base: uintptr(codeBase), reserved: heapSize, next: uintptr(codeBase)}
	a.static = region{base: uintptr(staticBase), reserved: heapSize, next: uintptr(staticBase)}
	go a.fin.Run()
	return a, nil
}

func wordAlign(n uintptr) uintptr {
	w := gcfmt.WordSize
	return (n + w - 1) &^ (w - 1)
}

// reserveInSpace bump-allocates size bytes from spaces[idx], committing
// more address space from the OS as needed. Both ordinary allocation (idx
// == a.active) and evacuation during Collect (idx == the collection
// target) go through this.
func (a *Arena) reserveInSpace(idx int, size uintptr) (uintptr, error) {
	sp := &a.spaces[idx]
	if sp.next+size > sp.base+sp.committed {
		grow := size
		if grow < defaultChunkSize {
			grow = defaultChunkSize
		}
		if sp.committed+grow > a.reservedHalf {
			grow = a.reservedHalf - sp.committed
		}
		if grow < size {
			return 0, &gc.OutOfHeapError{Requested: size}
		}
		if err := platform.Commit(unsafe.Pointer(sp.base+sp.committed), grow); err != nil {
			return 0, &gc.OutOfHeapError{Requested: size}
		}
		sp.committed += grow
	}
	addr := sp.next
	sp.next += size
	return addr, nil
}

func (a *Arena) reserve(size uintptr) (unsafe.Pointer, error) {
	if a.attached.Load() <= 0 {
		return nil, &gc.ThreadNotRegisteredError{}
	}

	a.mu.Lock()
	addr, err := a.reserveInSpace(a.active, size)
	a.mu.Unlock()
	if err == nil {
		a.mu.Lock()
		a.liveBytes += size
		grow := a.liveBytes > a.gcThreshold && a.ramping.Load() == 0
		a.mu.Unlock()
		if grow {
			if cErr := a.Collect(); cErr == nil {
				a.mu.Lock()
				a.gcThreshold = a.liveBytes * 2
				if a.gcThreshold < defaultChunkSize {
					a.gcThreshold = defaultChunkSize
				}
				a.mu.Unlock()
			}
		}
		return unsafe.Pointer(addr), nil
	}

	// The active space is full even after growing to its reserved half;
	// one collection may free enough of it (everything unreachable is
	// simply abandoned) to retry.
	if cErr := a.Collect(); cErr != nil {
		return nil, err
	}
	a.mu.Lock()
	addr, err = a.reserveInSpace(a.active, size)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.liveBytes += size
	a.mu.Unlock()
	return unsafe.Pointer(addr), nil
}

// reserveRegion bump-allocates from a non-moving region (code or static),
// committing more address space as needed.
func (a *Arena) reserveRegion(r *region, size uintptr) (unsafe.Pointer, error) {
	if a.attached.Load() <= 0 {
		return nil, &gc.ThreadNotRegisteredError{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if r.next+size > r.base+r.committed {
		grow := size
		if grow < defaultChunkSize {
			grow = defaultChunkSize
		}
		if r.committed+grow > r.reserved {
			grow = r.reserved - r.committed
		}
		if grow < size {
			return nil, &gc.OutOfHeapError{Requested: size}
		}
		if err := platform.Commit(unsafe.Pointer(r.base+r.committed), grow); err != nil {
			return nil, &gc.OutOfHeapError{Requested: size}
		}
		r.committed += grow
	}
	addr := r.next
	r.next += size
	return unsafe.Pointer(addr), nil
}

func (a *Arena) Alloc(t *gcfmt.Header) (unsafe.Pointer, error) {
	base, err := a.reserve(gcfmt.WordSize + wordAlign(t.Stride))
	if err != nil {
		return nil, err
	}
	client := gcfmt.InitObj(base, t)
	return client, nil
}

func (a *Arena) AllocArray(t *gcfmt.Header, count uintptr) (unsafe.Pointer, error) {
	base, err := a.reserve(gcfmt.WordSize + 2*gcfmt.WordSize + count*t.Stride)
	if err != nil {
		return nil, err
	}
	return gcfmt.InitArray(base, t, count), nil
}

func (a *Arena) AllocWeakArray(count uintptr) (unsafe.Pointer, error) {
	h := weakArrayHeader
	base, err := a.reserve(gcfmt.WordSize + 2*gcfmt.WordSize + count*h.Stride)
	if err != nil {
		return nil, err
	}
	return gcfmt.InitWeakArray(base, h, count), nil
}

// AllocStatic places the object in the non-moving static region, so its
// address stays stable across collections. Static objects are scanned
// for outgoing pointers during a Collect but are themselves immortal.
func (a *Arena) AllocStatic(t *gcfmt.Header) (unsafe.Pointer, error) {
	base, err := a.reserveRegion(&a.static, gcfmt.WordSize+wordAlign(t.Stride))
	if err != nil {
		return nil, err
	}
	client := gcfmt.InitObj(base, t)
	a.mu.Lock()
	a.staticBytes += gcfmt.Size(client)
	a.mu.Unlock()
	return client, nil
}

// AllocBuffer also lives in the static region: buffers are handed to
// foreign code that keeps raw pointers the collector cannot update.
func (a *Arena) AllocBuffer(n uintptr) (unsafe.Pointer, error) {
	h := bufferHeader
	base, err := a.reserveRegion(&a.static, gcfmt.WordSize+2*gcfmt.WordSize+n*h.Stride)
	if err != nil {
		return nil, err
	}
	client := gcfmt.InitArray(base, h, n)
	a.mu.Lock()
	a.bufferBytes += gcfmt.Size(client)
	a.mu.Unlock()
	return client, nil
}

func (a *Arena) AllocCode(codeLen uintptr, nRefs int) (unsafe.Pointer, error) {
	total := gcfmt.WordSize + wordAlign(codeLen) + gcfmt.WordSize
	base, err := a.reserveRegion(&a.code, total)
	if err != nil {
		return nil, err
	}
	trailer := &gcfmt.GcCode{Refs: make([]gcfmt.CodeRef, nRefs)}
	client := gcfmt.InitCode(base, codeLen, trailer)
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
		return fmt.Errorf("copying: cannot switch type of a code allocation")
	}
	if old.Kind != newType.Kind || wordAlign(old.Stride) != wordAlign(newType.Stride) {
		return fmt.Errorf("copying: switchType must preserve size and kind")
	}
	return gcfmt.SetHeader(obj, newType)
}

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
	defer a.mu.Unlock()
	sp := a.spaces[a.active]
	ranges := [][2]uintptr{
		{sp.base + gcfmt.WordSize, sp.next},
		{a.static.base + gcfmt.WordSize, a.static.next},
		{a.code.base + gcfmt.WordSize, a.code.next},
	}
	for _, r := range ranges {
		for p := r[0]; p < r[1]; {
			client := unsafe.Pointer(p)
			if err := cb(client); err != nil {
				return err
			}
			p = uintptr(gcfmt.Skip(client))
		}
	}
	return nil
}

// copyScanner is the gcfmt.Scanner driving the strong phase of a
// Collect: Fix1 reports whether a candidate pointer falls inside the
// space being abandoned, Fix2 evacuates it (or follows an existing
// forwarder) and rewrites the slot to the new location. Weak arrays are
// skipped via the Object predicate and handled by weakScanner once the
// strong scan has converged.
type copyScanner struct {
	a                   *Arena
	fromBase, fromLimit uintptr
	toIdx               int
}

// Object defers weak arrays to the weak phase.
func (s *copyScanner) Object(start, limit unsafe.Pointer) gcfmt.ScanAction {
	if gcfmt.ObjKind(start) == gcfmt.KindWeakArray {
		return gcfmt.ScanNone
	}
	return gcfmt.ScanAll
}

func (s *copyScanner) Fix1(p unsafe.Pointer) bool {
	addr := uintptr(p)
	return addr >= s.fromBase+gcfmt.WordSize && addr < s.fromLimit+gcfmt.WordSize
}

func (s *copyScanner) Fix2(slot *unsafe.Pointer) error {
	p := *slot
	if target, ok := gcfmt.IsFwd(p); ok {
		*slot = target
		return nil
	}
	newClient, err := s.a.evacuate(p, s.toIdx)
	if err != nil {
		return err
	}
	*slot = newClient
	return nil
}

var (
	_ gcfmt.Scanner         = (*copyScanner)(nil)
	_ gcfmt.ObjectPredicate = (*copyScanner)(nil)
)

// weakScanner runs after the strong scan has converged. A slot whose
// referent was evacuated follows the forwarder (unless the referent is
// marked finalized, which weak references observe as dead); a slot whose
// referent was never evacuated is unreachable and reads as nil. The
// gcfmt scan loop bumps the array's splat counter for every slot a Fix2
// nulls.
type weakScanner struct {
	strong *copyScanner
}

func (w *weakScanner) Fix1(p unsafe.Pointer) bool { return w.strong.Fix1(p) }

func (w *weakScanner) Fix2(slot *unsafe.Pointer) error {
	if target, ok := gcfmt.IsFwd(*slot); ok {
		if gcfmt.IsFinalized(target) {
			*slot = nil
			return nil
		}
		*slot = target
		return nil
	}
	*slot = nil
	return nil
}

// Object restricts the weak phase to weak arrays.
func (w *weakScanner) Object(start, limit unsafe.Pointer) gcfmt.ScanAction {
	if gcfmt.ObjKind(start) == gcfmt.KindWeakArray {
		return gcfmt.ScanAll
	}
	return gcfmt.ScanNone
}

var (
	_ gcfmt.Scanner         = (*weakScanner)(nil)
	_ gcfmt.ObjectPredicate = (*weakScanner)(nil)
)

// evacuate copies the object at client (header included) into space
// toIdx and overwrites client in place with a forwarder, returning the
// new client pointer. Caller holds a.mu (evacuation only happens inside
// Collect).
func (a *Arena) evacuate(client unsafe.Pointer, toIdx int) (unsafe.Pointer, error) {
	size := gcfmt.Size(client)
	srcBase := uintptr(client) - gcfmt.WordSize

	dstBase, err := a.reserveInSpace(toIdx, size)
	if err != nil {
		return nil, err
	}

	src := unsafe.Slice((*byte)(unsafe.Pointer(srcBase)), size)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(dstBase)), size)
	copy(dst, src)

	newClient := unsafe.Pointer(dstBase + gcfmt.WordSize)
	if err := gcfmt.MakeFwd(client, newClient); err != nil {
		return nil, err
	}
	return newClient, nil
}

func fixIfInFrom(s *copyScanner, slot *unsafe.Pointer) error {
	p := *slot
	if p == nil || !s.Fix1(p) {
		return nil
	}
	return s.Fix2(slot)
}

// Collect runs one semispace flip. Every object reachable from a root,
// directly or transitively, is evacuated into the currently inactive
// space; anything left behind in the active space afterwards is simply
// abandoned, since the flip makes that space the scratch area for the
// next Collect (no pad objects are needed the way gc/marksweep needs
// them, since there is nothing left to walk there until it is
// bump-allocated over again).
//
// Like gc/marksweep.Collect, "stop the world" here means holding a.mu
// for the duration rather than suspending other goroutines; every
// allocation serializes through the same lock.
func (a *Arena) Collect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fromIdx := a.active
	toIdx := 1 - a.active
	a.spaces[toIdx].next = a.spaces[toIdx].base
	from := a.spaces[fromIdx]

	scanner := &copyScanner{a: a, fromBase: from.base, fromLimit: from.next, toIdx: toIdx}

	for r := range a.roots {
		for i := 0; i < r.Count; i++ {
			slot := (*unsafe.Pointer)(unsafe.Pointer(uintptr(r.Data) + uintptr(i)*gcfmt.WordSize))
			if err := fixIfInFrom(scanner, slot); err != nil {
				return err
			}
		}
	}

	// Static objects never move, but they may hold the only reference to
	// a heap object; their pointer fields are extra roots.
	for p := a.static.base + gcfmt.WordSize; p < a.static.next; {
		client := unsafe.Pointer(p)
		next := uintptr(gcfmt.Skip(client))
		var ferr error
		gcfmt.Traverse(client, func(slot *unsafe.Pointer) {
			if ferr == nil {
				ferr = fixIfInFrom(scanner, slot)
			}
		})
		if ferr != nil {
			return ferr
		}
		p = next
	}

	// Give every unreached, not-yet-finalized finalizable object one more
	// cycle alive before the rest of the from-space is abandoned:
	// evacuate it now, as if a root pointed to it, so the scan loop below
	// also walks its outgoing pointers.
	for p := from.base + gcfmt.WordSize; p < from.next; {
		client := unsafe.Pointer(p)
		next := uintptr(gcfmt.Skip(client))
		if _, fwd := gcfmt.IsFwd(client); !fwd {
			if h := gcfmt.HeaderOf(client); h != nil && h.Finalizer != nil && !gcfmt.IsFinalized(client) {
				newClient, err := a.evacuate(client, toIdx)
				if err != nil {
					return err
				}
				gcfmt.SetFinalized(newClient)
				a.fin.Queue(h.Finalizer, newClient)
			}
		}
		p = next
	}

	// Convergence loop: each pass scans the clients evacuated so far;
	// scanning may evacuate more, growing the to-space, until a pass adds
	// nothing. scanned tracks a client pointer (one word past the next
	// unscanned allocation's header), limit an allocation boundary.
	scanned := a.spaces[toIdx].base + gcfmt.WordSize
	prevNext := a.spaces[toIdx].base
	for {
		limit := a.spaces[toIdx].next
		if limit == prevNext {
			break
		}
		if err := gcfmt.Objects(scanner, nil, 0, unsafe.Pointer(scanned), unsafe.Pointer(limit)); err != nil {
			return err
		}
		scanned = limit + gcfmt.WordSize
		prevNext = limit
	}

	// Weak phase: reachability is settled, so a weak slot's referent is
	// live iff it was forwarded out of the from-space.
	weak := &weakScanner{strong: scanner}
	to := a.spaces[toIdx]
	if err := gcfmt.Objects(weak, nil, 0, unsafe.Pointer(to.base+gcfmt.WordSize), unsafe.Pointer(to.next)); err != nil {
		return err
	}
	if err := gcfmt.Objects(weak, nil, 0, unsafe.Pointer(a.static.base+gcfmt.WordSize), unsafe.Pointer(a.static.next)); err != nil {
		return err
	}

	a.active = toIdx
	a.spaces[fromIdx].next = a.spaces[fromIdx].base
	a.liveBytes = a.spaces[toIdx].next - a.spaces[toIdx].base
	a.Generation.Bump()
	return nil
}

func (a *Arena) CollectBudget(timeBudgetMs int) (bool, error) {
	return false, a.Collect()
}

func (a *Arena) Ramp() func() {
	a.ramping.Add(1)
	return func() { a.ramping.Add(-1) }
}

func (a *Arena) MemorySummary() gc.MemorySummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gc.MemorySummary{
		Reserved:  2*a.reservedHalf + a.code.reserved + a.static.reserved,
		Committed: a.spaces[0].committed + a.spaces[1].committed + a.code.committed + a.static.committed,
		Used:      a.liveBytes + (a.static.next - a.static.base) + (a.code.next - a.code.base),
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

var _ gc.Arena = (*Arena)(nil)
