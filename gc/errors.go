// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gc defines the pluggable garbage-collector interface shared by
// the three implementations in gc/bump, gc/marksweep and gc/copying,
// plus the infrastructure common to all three: the type pool, roots,
// watches and the finalization queue.
package gc

import "fmt"

// OutOfHeapError is returned when an allocation cannot be satisfied even
// after a collection.
type OutOfHeapError struct {
	Requested uintptr
}

func (e *OutOfHeapError) Error() string {
	return fmt.Sprintf("gc: out of heap allocating %d bytes", e.Requested)
}

// ThreadNotRegisteredError is returned when an unattached thread attempts
// to allocate.
type ThreadNotRegisteredError struct{}

func (e *ThreadNotRegisteredError) Error() string {
	return "gc: thread not registered (call AttachThread first)"
}

// RootError reports misuse of the root API: double registration,
// destroying a root owned by a different arena, and similar.
type RootError struct {
	Reason string
}

func (e *RootError) Error() string { return "gc: root error: " + e.Reason }

// Error is the generic GC-misuse error.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "gc: " + e.Reason }
