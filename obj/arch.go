// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obj is the machine encoder: given a fully lowered Listing it
// runs the label-offset pass and the output pass that emits bytes into a
// GC code buffer, producing the GcCode trailer entries the bridge in
// package gccode later fixes up.
//
// Each backend package registers an *Arch built from its own register
// file and instruction encoders, rather than this package branching on
// architecture name.
package obj

import (
	"bytes"
	"fmt"
	"os"

	"github.com/vonfalk/storm-javavis-sub004/asm"
	"github.com/vonfalk/storm-javavis-sub004/gccode"
	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
	"github.com/vonfalk/storm-javavis-sub004/internal/cpufeature"
	"github.com/vonfalk/storm-javavis-sub004/transform"
)

// InstrEncoder emits the native bytes for one instruction into buf,
// resolving label operands through resolve (which returns false if the
// label hasn't been placed yet — only possible on the label pass, where
// instEncoder implementations must still return the correct byte length
// using a placeholder displacement). Any operand referencing code-buffer
// content (a label, a ref, a var already turned into a frame Mem operand
// that still needs runtime fixup) appends a CodeRef describing the fixup
// the bridge must perform after allocation.
type InstrEncoder func(buf *bytes.Buffer, instr asm.Instr, resolve func(asm.Label) (int32, bool)) ([]gcfmt.CodeRef, error)

// Arch bundles everything one target needs: its transform.Target (for the
// lowering pipeline) and its per-opcode encoders.
type Arch struct {
	Name    string
	Target  transform.Target
	Updater gccode.Updater
	Encode  map[asm.Op]InstrEncoder

	// DisasmMode is the x86asm decode mode (32 or 64) Disassemble uses to
	// interpret this architecture's bytes.
	DisasmMode int
}

// registry is the set of backends that have registered themselves via
// Register, keyed by Arch.Name — e.g. "amd64", "386".
var registry = map[string]*Arch{}

// Register installs arch under its Name, called from each backend
// package's init().
func Register(arch *Arch) {
	registry[arch.Name] = arch
}

// Lookup returns the registered Arch for name, or an error if no backend
// package has registered one. name always comes from the caller
// (obj.Lookup never sniffs the host to pick a backend); the host's own
// identification is logged alongside a failed or cross-target lookup
// purely as a diagnostic aid.
func Lookup(name string) (*Arch, error) {
	a, ok := registry[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "obj: no backend registered for architecture %q (host: %s)\n", name, cpufeature.Name())
		return nil, fmt.Errorf("obj: no backend registered for architecture %q", name)
	}
	if host := cpufeature.Host(); host.Arch != name {
		fmt.Fprintf(os.Stderr, "obj: targeting %q while running on %s (%s)\n", name, host.Arch, cpufeature.Name())
	}
	return a, nil
}
