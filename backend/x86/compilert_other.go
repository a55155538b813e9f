// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package x86

import "github.com/vonfalk/storm-javavis-sub004/asm"

// resolveCompilerRT has nothing to resolve against outside a Windows
// host: a non-Windows 32-bit target links a real compiler-rt archive at
// a later build step instead, out of this package's scope.
func resolveCompilerRT(name string) (asm.Operand, bool) {
	return asm.Operand{}, false
}
