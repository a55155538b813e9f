// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"fmt"

	"github.com/vonfalk/storm-javavis-sub004/asm"
)

// LoweringError wraps a failure from any of the four passes, naming which
// one failed.
type LoweringError struct {
	Pass string
	Err  error
}

func (e *LoweringError) Error() string { return fmt.Sprintf("transform: %s: %v", e.Pass, e.Err) }
func (e *LoweringError) Unwrap() error { return e.Err }

// Run applies the fixed-order pipeline to l and returns the
// lowered instruction stream ready for package obj/backend's encoder,
// together with the frame layout package binary needs to build the
// variable metadata table.
func Run(l *asm.Listing, t Target) ([]asm.Entry, *FrameLayout, error) {
	entries := l.Entries()

	entries, err := Split64(entries, t)
	if err != nil {
		return nil, nil, &LoweringError{Pass: "Split64", Err: err}
	}

	entries, err = Legalize(entries, t)
	if err != nil {
		return nil, nil, &LoweringError{Pass: "Legalize", Err: err}
	}

	used := UsedRegisters(entries)

	entries, layout, err := MaterializeParams(entries, l, t, used)
	if err != nil {
		return nil, nil, &LoweringError{Pass: "MaterializeParams", Err: err}
	}

	return entries, layout, nil
}
