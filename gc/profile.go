// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"io"
	"sort"
	"unsafe"

	"github.com/google/pprof/profile"

	"github.com/vonfalk/storm-javavis-sub004/gcfmt"
)

// WriteHeapProfile renders a pprof-format heap profile from one
// WalkObjects pass, grouping live objects into one pseudo-location per
// gcfmt.Kind. WalkObjects has no call stack to attribute an allocation
// to, so the object's Kind stands in for pprof's usual function/line
// location. Every Arena implementation (gc/bump, gc/marksweep,
// gc/copying) delegates its WriteHeapProfile to this shared
// walk-and-render helper.
func WriteHeapProfile(w io.Writer, walk func(cb func(unsafe.Pointer) error) error) error {
	type bucket struct {
		objects int64
		bytes   int64
	}
	counts := make(map[gcfmt.Kind]*bucket)

	err := walk(func(client unsafe.Pointer) error {
		k := gcfmt.ObjKind(client)
		b, ok := counts[k]
		if !ok {
			b = &bucket{}
			counts[k] = b
		}
		b.objects++
		b.bytes += int64(gcfmt.Size(client))
		return nil
	})
	if err != nil {
		return err
	}

	kinds := make([]gcfmt.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "objects", Unit: "count"},
			{Type: "space", Unit: "bytes"},
		},
	}

	for i, k := range kinds {
		id := uint64(i + 1)
		fn := &profile.Function{ID: id, Name: k.String()}
		loc := &profile.Location{ID: id, Line: []profile.Line{{Function: fn}}}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)

		b := counts[k]
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{b.objects, b.bytes},
		})
	}

	return p.Write(w)
}
