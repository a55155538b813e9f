// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build windows

package x86

import (
	"sync"

	"golang.org/x/sys/windows"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

// ntdll exports the classic MSVC compiler-rt helper names (_alldiv,
// _allmul, _allrem, _aulldiv, _aullrem) for kernel-mode driver use; real
// 32-bit Windows binaries still resolve them from here rather than
// linking a static compiler-rt archive.
var ntdll = windows.NewLazySystemDLL("ntdll.dll")

var compilerRTProcs sync.Map // name string -> *windows.LazyProc

// resolveCompilerRT looks up name's address in ntdll, caching the
// *windows.LazyProc across calls.
func resolveCompilerRT(name string) (asm.Operand, bool) {
	v, _ := compilerRTProcs.LoadOrStore(name, ntdll.NewProc(name))
	proc := v.(*windows.LazyProc)
	if err := proc.Find(); err != nil {
		return asm.Operand{}, false
	}
	return asm.ImmPtr(int64(proc.Addr())), true
}
