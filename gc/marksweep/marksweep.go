// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package marksweep implements the non-moving gc.Arena backend: a
// linear heap grown on demand, a mark phase that walks every registered
// root and follows gcfmt.Traverse, and a sweep phase that turns every
// unreached object into a gcfmt pad so the heap stays a single walkable
// sequence. Objects never move, so pointers into this arena are stable
// across a collection, unlike package gc/copying.
//
// The design is a single-region, single-mutex allocator; it does not
// attempt per-size-class central caches.
package marksweep

import (
	"fmt"
	"io"
	"sort"
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

// span is a free run of bytes available for reuse, identified by the
// client pointer that would be returned if it were handed back out
// (i.e. its header already lives at addr-WordSize).
type span struct {
	addr uintptr
	size uintptr
}

// Arena is a mark-sweep gc.Arena. The zero value is not usable; use New.
type Arena struct {
	gc.Generation

	mu        sync.Mutex
	base      uintptr
	committed uintptr
	reserved  uintptr
	next      uintptr // end of the heap's live+free region; grows on demand

	free []span // sorted by addr; see findFree's first-fit search below

	attached atomic.Int32
	types    *gc.TypePool
	fin      *gc.FinalizationQueue

	roots map[*gc.Root]bool

	staticBytes, bufferBytes, codeBytes uintptr
	liveBytes                           uintptr

	// trailerPins keeps every GcCode trailer reachable by the Go runtime:
	// the code allocation references its trailer only through a raw word.
	trailerPins []*gcfmt.GcCode

	// gcThreshold is the liveBytes level that triggers the next automatic
	// Collect from reserve's slow path.
	gcThreshold uintptr
	ramping     atomic.Int32
}

// New reserves size bytes of address space and returns an empty Arena.
func New(size uintptr) (*Arena, error) {
	base, err := platform.Reserve(size)
	if err != nil {
		return nil, err
	}
	a := &Arena{
		base:        uintptr(base),
		reserved:    size,
		types:       gc.NewTypePool(),
		fin:         gc.NewFinalizationQueue(),
		roots:       make(map[*gc.Root]bool),
		gcThreshold: defaultChunkSize,
	}
	a.next = a.base
	go a.fin.Run()
	return a, nil
}

func wordAlign(n uintptr) uintptr {
	w := gcfmt.WordSize
	return (n + w - 1) &^ (w - 1)
}

// findFree removes and returns a free span of at least size bytes using
// first fit, splitting off any remainder back into the free list.
func (a *Arena) findFree(size uintptr) (uintptr, bool) {
	for i, s := range a.free {
		if s.size < size {
			continue
		}
		a.free = append(a.free[:i], a.free[i+1:]...)
		if s.size > size {
			remainder := span{addr: s.addr + size, size: s.size - size}
			if remainder.size >= gcfmt.WordSize {
				gcfmt.MakePad(unsafe.Pointer(remainder.addr+gcfmt.WordSize), remainder.size)
				a.insertFree(remainder)
			}
		}
		return s.addr, true
	}
	return 0, false
}

func (a *Arena) insertFree(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].addr >= s.addr })
	// Coalesce with the immediately preceding and following spans when
	// they are adjacent, keeping fragmentation down without a separate
	// compaction pass (mark-sweep never moves objects, so this is the
	// only defragmentation this backend gets).
	if i > 0 && a.free[i-1].addr+a.free[i-1].size == s.addr {
		a.free[i-1].size += s.size
		s = a.free[i-1]
		i--
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
	if i < len(a.free) && s.addr+s.size == a.free[i].addr {
		s.size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s
}

func (a *Arena) reserve(size uintptr) (unsafe.Pointer, error) {
	size = wordAlign(size)
	if a.attached.Load() <= 0 {
		return nil, &gc.ThreadNotRegisteredError{}
	}

	// The threshold-triggered collection must run here, before a new
	// slot exists: the sweep walks the heap byte range raw, so it may
	// never overlap the window between a slot being handed out and its
	// header being written. At reserve entry every previously handed-out
	// slot already has its header in place.
	a.maybeCollect()

	a.mu.Lock()
	if addr, ok := a.findFree(size); ok {
		a.liveBytes += size
		a.mu.Unlock()
		return unsafe.Pointer(addr), nil
	}
	needGrow := a.next+size > a.base+a.committed
	a.mu.Unlock()

	if needGrow {
		if err := a.grow(size); err != nil {
			// One last-ditch collection before declaring defeat: a sweep
			// may free enough fragmented space to satisfy this request.
			if cErr := a.Collect(); cErr == nil {
				a.mu.Lock()
				if addr, ok := a.findFree(size); ok {
					a.liveBytes += size
					a.mu.Unlock()
					return unsafe.Pointer(addr), nil
				}
				a.mu.Unlock()
			}
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	addr := a.next
	a.next += size
	a.liveBytes += size
	return unsafe.Pointer(addr), nil
}

// maybeCollect runs one synchronous collection when liveBytes has grown
// past the threshold. Only called from reserve's entry, never between a
// slot being handed out and its header being written.
func (a *Arena) maybeCollect() {
	a.mu.Lock()
	trigger := a.liveBytes > a.gcThreshold && a.ramping.Load() == 0
	if trigger {
		a.gcThreshold = a.liveBytes * 2
	}
	a.mu.Unlock()
	if trigger {
		a.Collect()
	}
}

func (a *Arena) grow(size uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	grow := size
	if grow < defaultChunkSize {
		grow = defaultChunkSize
	}
	if a.committed+grow > a.reserved {
		grow = a.reserved - a.committed
	}
	if grow < size {
		return &gc.OutOfHeapError{Requested: size}
	}
	if err := platform.Commit(unsafe.Pointer(a.base+a.committed), grow); err != nil {
		return &gc.OutOfHeapError{Requested: size}
	}
	a.committed += grow
	return nil
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

func (a *Arena) AllocCode(codeLen uintptr, nRefs int) (unsafe.Pointer, error) {
	total := gcfmt.WordSize + wordAlign(codeLen) + gcfmt.WordSize
	base, err := a.reserve(total)
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
		return fmt.Errorf("marksweep: cannot switch type of a code allocation")
	}
	if old.Kind != newType.Kind || wordAlign(old.Stride) != wordAlign(newType.Stride) {
		return fmt.Errorf("marksweep: switchType must preserve size and kind")
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
	start, end := a.base+gcfmt.WordSize, a.next
	for p := start; p < end; {
		client := unsafe.Pointer(p)
		if isLiveKind(gcfmt.ObjKind(client)) {
			if err := cb(client); err != nil {
				return err
			}
		}
		p = uintptr(gcfmt.Skip(client))
	}
	return nil
}

func isLiveKind(k gcfmt.Kind) bool {
	switch k {
	case gcfmt.KindFixed, gcfmt.KindFixedObj, gcfmt.KindType, gcfmt.KindArray, gcfmt.KindWeakArray:
		return true
	default:
		return false
	}
}

func (a *Arena) inHeap(p unsafe.Pointer) bool {
	addr := uintptr(p)
	return addr >= a.base+gcfmt.WordSize && addr < a.next+gcfmt.WordSize
}

// mark walks every live root and follows gcfmt.Traverse with an explicit
// work stack; roots tagged Ambiguous get the same treatment as exact
// roots here since this package has no cooperating stack scanner of its
// own. See package gcstack for the conservative frame walk a real
// front-end plugs in as an extra root source. Caller holds a.mu.
func (a *Arena) mark() map[unsafe.Pointer]bool {
	roots := make([]*gc.Root, 0, len(a.roots))
	for r := range a.roots {
		roots = append(roots, r)
	}

	marked := make(map[unsafe.Pointer]bool)
	var stack []unsafe.Pointer
	push := func(p unsafe.Pointer) {
		if p == nil || marked[p] || !a.inHeap(p) {
			return
		}
		marked[p] = true
		stack = append(stack, p)
	}

	for _, r := range roots {
		for i := 0; i < r.Count; i++ {
			slot := *(*unsafe.Pointer)(unsafe.Pointer(uintptr(r.Data) + uintptr(i)*gcfmt.WordSize))
			push(slot)
		}
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if gcfmt.ObjKind(p) == gcfmt.KindWeakArray {
			// Weak slots do not keep their referents alive; weakSweep
			// settles them once marking is done.
			continue
		}
		gcfmt.Traverse(p, func(slot *unsafe.Pointer) { push(*slot) })
	}
	return marked
}

// weakSweep nulls every slot of a live weak array whose referent did not
// survive the cycle (either it was never marked, or it is marked
// finalized, which weak references observe as dead), bumping the array's
// splat counter per nulled slot. Runs after sweep, so dead referents are
// already pads and read as unmarked. Caller holds a.mu.
func (a *Arena) weakSweep(marked map[unsafe.Pointer]bool) {
	start, end := a.base+gcfmt.WordSize, a.next
	for p := start; p < end; {
		client := unsafe.Pointer(p)
		next := uintptr(gcfmt.Skip(client))
		if gcfmt.ObjKind(client) == gcfmt.KindWeakArray && marked[client] {
			gcfmt.Traverse(client, func(slot *unsafe.Pointer) {
				ref := *slot
				if ref == nil || !a.inHeap(ref) {
					return
				}
				if !marked[ref] || gcfmt.IsFinalized(ref) {
					*slot = nil
					gcfmt.WeakSplat(client)
				}
			})
		}
		p = next
	}
}

// sweep turns every unreached object into a pad and returns the free
// span it exposes. An unreached object carrying a live Finalizer gets
// one reprieve cycle: a finalizer must observe its object intact, so the
// object is kept alive and queued for finalization instead of padded;
// the cycle after that, gcfmt.IsFinalized will be set and it sweeps for
// real. Caller holds a.mu.
func (a *Arena) sweep(marked map[unsafe.Pointer]bool) {
	start, end := a.base+gcfmt.WordSize, a.next

	var freed uintptr
	p := start
	for p < end {
		client := unsafe.Pointer(p)
		size := gcfmt.Size(client)
		next := p + size

		if marked[client] || !isLiveKind(gcfmt.ObjKind(client)) {
			p = next
			continue
		}

		h := gcfmt.HeaderOf(client)
		if h != nil && h.Finalizer != nil && !gcfmt.IsFinalized(client) {
			gcfmt.SetFinalized(client)
			a.fin.Queue(h.Finalizer, client)
			p = next
			continue
		}

		gcfmt.MakePad(client, size)
		a.insertFree(span{addr: p - gcfmt.WordSize, size: size})
		freed += size
		p = next
	}

	if freed <= a.liveBytes {
		a.liveBytes -= freed
	} else {
		a.liveBytes = 0
	}
}

// Collect runs one full stop-the-world mark-sweep cycle. "Stop the
// world" here means holding a.mu for the duration: every allocation
// this package arbitrates goes through reserve under that same lock, so
// no mutator can observe the heap mid-sweep. It does not suspend
// goroutines that hold client pointers without allocating; a real STW
// pause needs package gcstack's cooperative checkpoints, out of scope
// for this arena alone.
func (a *Arena) Collect() error {
	a.mu.Lock()
	marked := a.mark()
	a.sweep(marked)
	a.weakSweep(marked)
	a.mu.Unlock()
	a.Generation.Bump()
	return nil
}

// CollectBudget runs one full collection (this backend has no
// incremental mode to meter) and reports no more work pending.
func (a *Arena) CollectBudget(timeBudgetMs int) (bool, error) {
	return false, a.Collect()
}

// Ramp suppresses the automatic collect-on-threshold trigger for the
// duration of a short-lived allocation burst; callers still pay for any
// Collect they request explicitly.
func (a *Arena) Ramp() func() {
	a.ramping.Add(1)
	return func() { a.ramping.Add(-1) }
}

func (a *Arena) MemorySummary() gc.MemorySummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	var freeBytes uintptr
	for _, s := range a.free {
		freeBytes += s.size
	}
	return gc.MemorySummary{
		Reserved:  a.reserved,
		Committed: a.committed,
		Used:      a.liveBytes,
		PerPool: map[string]uintptr{
			"static": a.staticBytes,
			"buffer": a.bufferBytes,
			"code":   a.codeBytes,
			"free":   freeBytes,
			"types":  uintptr(a.types.Len()),
		},
	}
}

func (a *Arena) WriteHeapProfile(w io.Writer) error {
	return gc.WriteHeapProfile(w, a.WalkObjects)
}

var _ gc.Arena = (*Arena)(nil)
