// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

// Package platform wraps the virtual-memory primitives each GC
// implementation needs: reserve/commit/decommit/free and write-watch.
package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PageSize is the host's VM page size.
var PageSize = unix.Getpagesize()

// Reserve reserves n bytes of address space without committing physical
// storage, mirroring Windows' MEM_RESERVE.
func Reserve(n uintptr) (unsafe.Pointer, error) {
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("platform: reserve %d bytes: %w", n, err)
	}
	return unsafe.Pointer(&b[0]), nil
}

// Commit makes addr[:n] (previously Reserve'd) readable and writable.
func Commit(addr unsafe.Pointer, n uintptr) error {
	s := unsafe.Slice((*byte)(addr), n)
	if err := unix.Mprotect(s, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("platform: commit %d bytes at %p: %w", n, addr, err)
	}
	return nil
}

// CommitExec is Commit but also marks the range executable, used for
// code allocations.
func CommitExec(addr unsafe.Pointer, n uintptr) error {
	s := unsafe.Slice((*byte)(addr), n)
	if err := unix.Mprotect(s, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("platform: commit-exec %d bytes at %p: %w", n, addr, err)
	}
	return nil
}

// Decommit releases the physical storage backing addr[:n] while keeping
// the address range reserved.
func Decommit(addr unsafe.Pointer, n uintptr) error {
	s := unsafe.Slice((*byte)(addr), n)
	if err := unix.Mprotect(s, unix.PROT_NONE); err != nil {
		return fmt.Errorf("platform: decommit %d bytes at %p: %w", n, addr, err)
	}
	return unix.Madvise(s, unix.MADV_DONTNEED)
}

// Free releases address space reserved by Reserve.
func Free(addr unsafe.Pointer, n uintptr) error {
	s := unsafe.Slice((*byte)(addr), n)
	if err := unix.Munmap(s); err != nil {
		return fmt.Errorf("platform: free %d bytes at %p: %w", n, addr, err)
	}
	return nil
}

// WatchWrites arms write-tracking on addr[:n] by removing write
// permission; a SIGSEGV handler installed by the caller (not this
// package) is expected to record the faulting page and re-enable write
// access with MakeWritable. Windows uses MEM_WRITE_WATCH instead, see
// platform_windows.go.
func WatchWrites(addr unsafe.Pointer, n uintptr) error {
	s := unsafe.Slice((*byte)(addr), n)
	return unix.Mprotect(s, unix.PROT_READ)
}

// MakeWritable restores write access after a watched page faulted.
func MakeWritable(addr unsafe.Pointer, n uintptr) error {
	return Commit(addr, n)
}
