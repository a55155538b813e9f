// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "testing"

type intType int64

func (t intType) Size() int64     { return int64(t) }
func (t intType) Aggregate() bool { return false }
func (t intType) Primitive() bool { return true }
func (t intType) String() string  { return "Int" }

// Root block with parts p0,p1,p2; v0 in p0, v1 in p1, v2,v3 in p2.
// Walking Prev from v3 must visit each variable once, oldest last.
func TestPrevChainWithinRootBlock(t *testing.T) {
	l := New(false, intType(4))
	p0 := l.RootPart()
	v0, err := l.CreateVarSize(p0, 4, nil, FreeOnNone)
	if err != nil {
		t.Fatal(err)
	}
	p1, err := l.CreatePart(p0)
	if err != nil {
		t.Fatal(err)
	}
	v1, _ := l.CreateVarSize(p1, 4, nil, FreeOnNone)
	p2, err := l.CreatePart(p1)
	if err != nil {
		t.Fatal(err)
	}
	v2, _ := l.CreateVarSize(p2, 4, nil, FreeOnNone)
	v3, _ := l.CreateVarSize(p2, 4, nil, FreeOnNone)

	if got := l.Prev(v3); got != v2 {
		t.Errorf("Prev(v3) = %v, want v2 (%v)", got, v2)
	}
	if got := l.Prev(v2); got != v1 {
		t.Errorf("Prev(v2) = %v, want v1 (%v)", got, v1)
	}
	if got := l.Prev(v1); got != v0 {
		t.Errorf("Prev(v1) = %v, want v0 (%v)", got, v0)
	}
	if got := l.Prev(v0); got != InvalidVar {
		t.Errorf("Prev(v0) = %v, want InvalidVar", got)
	}
}

// Property 1: repeated Prev() from a variable visits every variable in
// scope there exactly once and terminates at InvalidVar. v1 and v2 live
// in a block nested under p0, so they are not in scope from p1: the walk
// from v3 goes straight back to p0. The walk from v2 sees its own block,
// then the enclosing part, then the parameters.
func TestScopeLinearizationVisitsEveryVariableOnce(t *testing.T) {
	l := New(false, intType(4))
	p0 := l.RootPart()
	param := l.CreateParam(intType(4), nil, FreeOnBoth)
	v0, _ := l.CreateVarSize(p0, 4, nil, FreeOnNone)

	nested, err := l.CreateBlock(p0)
	if err != nil {
		t.Fatal(err)
	}
	np0 := PartID(nested)
	v1, _ := l.CreateVarSize(np0, 4, nil, FreeOnNone)
	np1, err := l.CreatePart(np0)
	if err != nil {
		t.Fatal(err)
	}
	v2, _ := l.CreateVarSize(np1, 8, nil, FreeOnNone)

	p1, err := l.CreatePart(p0)
	if err != nil {
		t.Fatal(err)
	}
	v3, _ := l.CreateVarSize(p1, 4, nil, FreeOnNone)

	cases := []struct {
		start VarID
		want  []VarID
	}{
		{v3, []VarID{v3, v0, param}},
		{v2, []VarID{v2, v1, v0, param}},
	}
	for _, c := range cases {
		want := c.want
		seen := map[VarID]bool{}
		cur := c.start
		var got []VarID
		for cur != InvalidVar {
			if seen[cur] {
				t.Fatalf("variable %v visited twice", cur)
			}
			seen[cur] = true
			got = append(got, cur)
			cur = l.Prev(cur)
		}
		if len(got) != len(want) {
			t.Fatalf("walk length = %d, want %d (%v vs %v)", len(got), len(want), got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestNextPartAndAccessible(t *testing.T) {
	l := New(false, nil)
	p0 := l.RootPart()
	v0, _ := l.CreateVarSize(p0, 4, nil, FreeOnNone)
	p1, _ := l.CreatePart(p0)
	v1, _ := l.CreateVarSize(p1, 4, nil, FreeOnNone)

	if got := l.NextPart(p0); got != p1 {
		t.Errorf("NextPart(p0) = %v, want p1 (%v)", got, p1)
	}
	if got := l.NextPart(p1); got != InvalidPart {
		t.Errorf("NextPart(p1) = %v, want InvalidPart", got)
	}

	if !l.Accessible(v0, p1) {
		t.Errorf("v0 declared in p0 should be accessible from p1")
	}
	if l.Accessible(v1, p0) {
		t.Errorf("v1 declared in p1 should not be accessible from p0")
	}
}

func TestIsParentReflexiveAndTransitive(t *testing.T) {
	l := New(false, nil)
	p0 := l.RootPart()
	b1, _ := l.CreateBlock(p0)
	b2, _ := l.CreateBlock(PartID(b1))

	if !l.IsParent(l.RootBlock(), p0) {
		t.Errorf("root block should be its own part's parent")
	}
	if !l.IsParent(l.RootBlock(), PartID(b2)) {
		t.Errorf("root block should be a transitive parent of b2's first part")
	}
	if l.IsParent(b2, p0) {
		t.Errorf("b2 should not be considered parent of the root part")
	}
}

func TestMoveParamReorders(t *testing.T) {
	l := New(false, nil)
	a := l.CreateParam(intType(4), nil, FreeOnBoth)
	b := l.CreateParam(intType(8), nil, FreeOnBoth)
	c := l.CreateParam(intType(4), nil, FreeOnBoth)

	if err := l.MoveParam(c, 0); err != nil {
		t.Fatal(err)
	}
	got := l.AllParams()
	want := []VarID{c, a, b}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AllParams() = %v, want %v", got, want)
		}
	}
	if d := l.ParamDescOf(a); d.Index != 1 {
		t.Errorf("a.Index = %d, want 1", d.Index)
	}
}
