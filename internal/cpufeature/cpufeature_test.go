// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpufeature

import (
	"runtime"
	"testing"
)

func TestHostReportsTheRunningArch(t *testing.T) {
	got := Host()
	if got.Arch != runtime.GOARCH {
		t.Errorf("Host().Arch = %q, want %q", got.Arch, runtime.GOARCH)
	}
}

func TestNameIsEmptyOffX86(t *testing.T) {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		if Name() != "" {
			t.Errorf("Name() = %q on %s, want empty", Name(), runtime.GOARCH)
		}
		return
	}
	if Name() == "" {
		t.Error("Name() returned empty on an x86 host")
	}
}
