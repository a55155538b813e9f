// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// PageSize is the host's VM page size.
var PageSize = 4096

// Reserve reserves n bytes of address space via MEM_RESERVE.
func Reserve(n uintptr) (unsafe.Pointer, error) {
	addr, err := windows.VirtualAlloc(0, n, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, fmt.Errorf("platform: reserve %d bytes: %w", n, err)
	}
	return unsafe.Pointer(addr), nil
}

// Commit makes addr[:n] readable and writable.
func Commit(addr unsafe.Pointer, n uintptr) error {
	_, err := windows.VirtualAlloc(uintptr(addr), n, windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return fmt.Errorf("platform: commit %d bytes at %p: %w", n, addr, err)
	}
	return nil
}

// CommitExec is Commit but also marks the range executable.
func CommitExec(addr unsafe.Pointer, n uintptr) error {
	_, err := windows.VirtualAlloc(uintptr(addr), n, windows.MEM_COMMIT, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return fmt.Errorf("platform: commit-exec %d bytes at %p: %w", n, addr, err)
	}
	return nil
}

// Decommit releases the physical storage backing addr[:n].
func Decommit(addr unsafe.Pointer, n uintptr) error {
	return windows.VirtualFree(uintptr(addr), n, windows.MEM_DECOMMIT)
}

// Free releases address space reserved by Reserve.
func Free(addr unsafe.Pointer, n uintptr) error {
	return windows.VirtualFree(uintptr(addr), 0, windows.MEM_RELEASE)
}

// WatchWrites arms the OS's native write-watch facility
// (MEM_WRITE_WATCH).
func WatchWrites(addr unsafe.Pointer, n uintptr) error {
	_, err := windows.VirtualAlloc(uintptr(addr), n, windows.MEM_RESET, windows.PAGE_READWRITE)
	return err
}

// MakeWritable is a no-op on Windows: MEM_WRITE_WATCH tracks writes
// without removing write access.
func MakeWritable(addr unsafe.Pointer, n uintptr) error {
	return nil
}
