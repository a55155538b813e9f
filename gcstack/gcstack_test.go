// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcstack

import (
	"testing"
	"unsafe"
)

// fixAll records every pointer Fix1 approved and rewrites each one it's
// asked to fix by XOR-ing a tag into it, so tests can tell a scanned
// slot from an untouched one.
type fixAll struct {
	approve func(unsafe.Pointer) bool
	seen    []unsafe.Pointer
}

func (f *fixAll) Fix1(p unsafe.Pointer) bool {
	if f.approve != nil && !f.approve(p) {
		return false
	}
	f.seen = append(f.seen, p)
	return true
}

func (f *fixAll) Fix2(slot *unsafe.Pointer) error {
	*slot = unsafe.Pointer(uintptr(*slot) + 1)
	return nil
}

func stackOf(words []unsafe.Pointer) Stack {
	low := uintptr(unsafe.Pointer(&words[0]))
	high := low + uintptr(len(words))*unsafe.Sizeof(words[0])
	return Stack{Low: low, High: high}
}

func TestScanWalksEverySlotInASleepingStack(t *testing.T) {
	a, b := 1, 2
	words := make([]unsafe.Pointer, 4)
	words[0] = unsafe.Pointer(&a)
	words[1] = nil
	words[2] = unsafe.Pointer(&b)
	words[3] = nil

	f := &fixAll{}
	src := NewStaticSource([]Stack{stackOf(words)}, nil)
	if err := Scan(src, f); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(f.seen) != 2 {
		t.Fatalf("expected 2 non-nil words scanned, got %d", len(f.seen))
	}
	if words[0] != unsafe.Pointer(uintptr(unsafe.Pointer(&a))+1) {
		t.Fatalf("word 0 was not fixed in place")
	}
	if words[2] != unsafe.Pointer(uintptr(unsafe.Pointer(&b))+1) {
		t.Fatalf("word 2 was not fixed in place")
	}
}

func TestScanSkipsNilWordsWithoutCallingFix1(t *testing.T) {
	words := make([]unsafe.Pointer, 3)
	f := &fixAll{}
	src := NewStaticSource([]Stack{stackOf(words)}, nil)
	if err := Scan(src, f); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(f.seen) != 0 {
		t.Fatalf("expected no words scanned, got %d", len(f.seen))
	}
}

func TestScanSkipsRunningStackWhenNoneReported(t *testing.T) {
	calls := 0
	f := &fixAll{approve: func(unsafe.Pointer) bool { calls++; return true }}
	src := NewStaticSource(nil, nil)
	if err := Scan(src, f); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected the running-stack branch to be skipped entirely, got %d Fix1 calls", calls)
	}
}

func TestScanWalksTheRunningStackWhenReported(t *testing.T) {
	a := 1
	words := make([]unsafe.Pointer, 2)
	words[0] = unsafe.Pointer(&a)
	running := stackOf(words)

	f := &fixAll{}
	src := NewStaticSource(nil, &running)
	if err := Scan(src, f); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(f.seen) != 1 {
		t.Fatalf("expected the running stack's one live word to be scanned, got %d", len(f.seen))
	}
}

func TestScanTreatsReturnAddressWordsLikeAnyOther(t *testing.T) {
	// A return address is just a code pointer sitting in a stack slot
	// like any other word; the scanner has no notion of frame shape and
	// must not special-case it away.
	var codeByte byte
	words := make([]unsafe.Pointer, 1)
	words[0] = unsafe.Pointer(&codeByte)

	f := &fixAll{}
	src := NewStaticSource([]Stack{stackOf(words)}, nil)
	if err := Scan(src, f); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(f.seen) != 1 || f.seen[0] != unsafe.Pointer(&codeByte) {
		t.Fatalf("expected the sole word to be scanned as a candidate pointer")
	}
}

func TestScanScansBothSleepingAndRunningStacks(t *testing.T) {
	a, b := 1, 2
	sleepingWords := []unsafe.Pointer{unsafe.Pointer(&a)}
	runningWords := []unsafe.Pointer{unsafe.Pointer(&b)}
	running := stackOf(runningWords)

	f := &fixAll{}
	src := NewStaticSource([]Stack{stackOf(sleepingWords)}, &running)
	if err := Scan(src, f); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(f.seen) != 2 {
		t.Fatalf("expected both stacks scanned, got %d words", len(f.seen))
	}
}
