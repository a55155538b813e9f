// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpufeature reports host CPU identification for diagnostics: a
// single best-effort "what is this CPU" accessor, backed by
// golang.org/x/sys/cpu's feature flags rather than a per-architecture
// build-tagged implementation, since x/sys/cpu already does that
// detection work for every GOARCH this module's backends target.
package cpufeature

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Features summarizes what obj.Lookup's diagnostic logging needs to know
// about the host.
type Features struct {
	Arch string // runtime.GOARCH, matching an obj.Arch.Name ("amd64" or "386")
	SSE2 bool
	AVX  bool
	AVX2 bool
}

// Host reports the running process's architecture and the vector
// extensions x/sys/cpu detected at package init.
func Host() Features {
	return Features{
		Arch: runtime.GOARCH,
		SSE2: cpu.X86.HasSSE2,
		AVX:  cpu.X86.HasAVX,
		AVX2: cpu.X86.HasAVX2,
	}
}

// Name returns a short, best-effort CPU identification string for logs.
// It is never a decision input: obj.Lookup always selects a backend by
// the caller's explicit architecture name, never by sniffing the host.
func Name() string {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		return ""
	}
	switch {
	case cpu.X86.HasAVX2:
		return "x86 (AVX2)"
	case cpu.X86.HasAVX:
		return "x86 (AVX)"
	case cpu.X86.HasSSE2:
		return "x86 (SSE2)"
	default:
		return "x86"
	}
}
