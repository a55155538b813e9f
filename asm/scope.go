// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// BlockID, PartID, VarID and Label are 1-based ids into a Listing's scope
// tables; the zero value of each means "invalid".
type BlockID int32
type PartID int32
type VarID int32
type Label int32

// InvalidBlock, InvalidPart and InvalidVar are the zero/sentinel ids
// returned by the prev/next family of queries when a walk runs off the end
// of the scope tree.
const (
	InvalidBlock BlockID = 0
	InvalidPart  PartID  = 0
	InvalidVar   VarID   = 0
	InvalidLabel Label   = 0
)

// FreeOpt are the flags controlling when and how a variable's destructor
// runs.
type FreeOpt uint8

const (
	FreeOnNone      FreeOpt = 0
	FreeOnException FreeOpt = 1 << 0
	FreeOnBlockExit FreeOpt = 1 << 1
	FreeOnBoth              = FreeOnException | FreeOnBlockExit

	FreePtr         FreeOpt = 1 << 4
	FreeIndirection FreeOpt = 1 << 5

	FreeDefault = FreeOnBoth
)

func (f FreeOpt) String() string {
	s := ""
	if f&FreeOnException != 0 {
		s += "exception,"
	}
	if f&FreeOnBlockExit != 0 {
		s += "blockExit,"
	}
	if f&FreePtr != 0 {
		s += "ptr,"
	}
	if f&FreeIndirection != 0 {
		s += "indirection,"
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}

// ParamDesc records a variable's position and type in the parameter list.
type ParamDesc struct {
	Index int
	Type  TypeDesc
}

// VarInfo is optional debug information a front-end may attach to a
// variable to improve a debugger's experience.
type VarInfo struct {
	Name string
	Type TypeDesc
}

type variable struct {
	id    VarID
	part  PartID
	size  int64
	typ   TypeDesc
	dtor  *Operand
	opts  FreeOpt
	param *ParamDesc
	debug *VarInfo
}

type block struct {
	id         BlockID
	parentPart PartID // invalid for the root block
	parts      []PartID
}

type part struct {
	id          PartID
	block       BlockID
	vars        []VarID
	childBlocks []BlockID // blocks created with this part as their parentPart, in creation order
}

func indexOfPart(ids []PartID, id PartID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

func indexOfBlock(ids []BlockID, id BlockID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

func indexOfVar(ids []VarID, id VarID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

func (l *Listing) block(id BlockID) *block {
	if id == InvalidBlock || int(id) > len(l.blocks) {
		return nil
	}
	return l.blocks[id-1]
}

func (l *Listing) part(id PartID) *part {
	if id == InvalidPart || int(id) > len(l.parts) {
		return nil
	}
	return l.parts[id-1]
}

func (l *Listing) variable(id VarID) *variable {
	if id == InvalidVar || int(id) > len(l.vars) {
		return nil
	}
	return l.vars[id-1]
}

// CreateBlock creates a new nested block anchored at parentPart: the new
// block becomes visible starting immediately after parentPart's point in
// the listing. The first part of the new block shares the block's id.
func (l *Listing) CreateBlock(parentPart PartID) (BlockID, error) {
	pp := l.part(parentPart)
	if pp == nil {
		return InvalidBlock, &BlockBeginError{Reason: "parent part does not exist"}
	}

	bid := BlockID(len(l.blocks) + 1)
	pid := PartID(bid) // id aliasing: first part of a block IS the block.

	b := &block{id: bid, parentPart: parentPart}
	l.blocks = append(l.blocks, b)

	// The part table is indexed 1-based and must stay dense; since pid ==
	// bid and blocks/parts grow in lockstep whenever a block is created,
	// this always lands at the next free slot.
	if int(pid) != len(l.parts)+1 {
		return InvalidBlock, &BlockBeginError{Reason: "block/part id allocation out of sync"}
	}
	p := &part{id: pid, block: bid}
	l.parts = append(l.parts, p)
	b.parts = append(b.parts, pid)

	pp.childBlocks = append(pp.childBlocks, bid)
	return bid, nil
}

// CreatePart creates a new part within the same block as afterPart,
// positioned immediately after it in that block's part chain.
func (l *Listing) CreatePart(afterPart PartID) (PartID, error) {
	ap := l.part(afterPart)
	if ap == nil {
		return InvalidPart, &BlockBeginError{Reason: "preceding part does not exist"}
	}
	b := l.block(ap.block)

	pid := PartID(len(l.parts) + 1)
	p := &part{id: pid, block: b.id}
	l.parts = append(l.parts, p)

	idx := indexOfPart(b.parts, afterPart)
	b.parts = append(b.parts, InvalidPart)
	copy(b.parts[idx+2:], b.parts[idx+1:])
	b.parts[idx+1] = pid
	return pid, nil
}

// CreateVarSize creates a variable of a raw byte size in the given part.
func (l *Listing) CreateVarSize(inPart PartID, size int64, dtor *Operand, opts FreeOpt) (VarID, error) {
	return l.createVar(inPart, size, nil, dtor, opts)
}

// CreateVarType creates a variable described by a front-end type in the
// given part.
func (l *Listing) CreateVarType(inPart PartID, t TypeDesc, dtor *Operand, opts FreeOpt) (VarID, error) {
	return l.createVar(inPart, t.Size(), t, dtor, opts)
}

func (l *Listing) createVar(inPart PartID, size int64, t TypeDesc, dtor *Operand, opts FreeOpt) (VarID, error) {
	p := l.part(inPart)
	if p == nil {
		return InvalidVar, &BlockBeginError{Reason: "part does not exist"}
	}
	vid := VarID(len(l.vars) + 1)
	v := &variable{id: vid, part: inPart, size: size, typ: t, dtor: dtor, opts: opts}
	l.vars = append(l.vars, v)
	p.vars = append(p.vars, vid)
	return vid, nil
}

// CreateParam appends a new parameter to the listing's parameter list.
func (l *Listing) CreateParam(t TypeDesc, dtor *Operand, opts FreeOpt) VarID {
	vid := VarID(len(l.vars) + 1)
	idx := len(l.params)
	v := &variable{
		id: vid, part: l.rootPart, size: t.Size(), typ: t, dtor: dtor, opts: opts,
		param: &ParamDesc{Index: idx, Type: t},
	}
	l.vars = append(l.vars, v)
	l.params = append(l.params, vid)
	return vid
}

// MoveParam repositions a parameter to a new index in the parameter list,
// shifting the others. Must be called before any code referencing the
// parameter's position by index has been emitted.
func (l *Listing) MoveParam(vid VarID, toIndex int) error {
	v := l.variable(vid)
	if v == nil || v.param == nil {
		return &InvalidOperandError{Reason: "not a parameter"}
	}
	from := v.param.Index
	if toIndex < 0 || toIndex >= len(l.params) {
		return &InvalidOperandError{Reason: "index out of range"}
	}
	p := l.params[from]
	l.params = append(l.params[:from], l.params[from+1:]...)
	l.params = append(l.params, InvalidVar)
	copy(l.params[toIndex+1:], l.params[toIndex:])
	l.params[toIndex] = p
	for i, id := range l.params {
		l.variable(id).param.Index = i
	}
	return nil
}

// Delay repositions a variable (parameter or regular) into newPart. Used to
// place a value's storage before the part in which its constructor runs.
func (l *Listing) Delay(vid VarID, newPart PartID) error {
	v := l.variable(vid)
	np := l.part(newPart)
	if v == nil || np == nil {
		return &InvalidOperandError{Reason: "unknown variable or part"}
	}
	if old := l.part(v.part); old != nil {
		if idx := indexOfVar(old.vars, vid); idx >= 0 {
			old.vars = append(old.vars[:idx], old.vars[idx+1:]...)
		}
	}
	v.part = newPart
	np.vars = append(np.vars, vid)
	return nil
}

// Prev returns the variable declared immediately before v: within a
// block it walks part to part;
// across a nested block boundary it returns the last variable of the
// preceding sibling block (or, lacking one, of the enclosing part); at the
// root block's first part it falls through to the last parameter; before
// the first parameter it returns InvalidVar.
func (l *Listing) Prev(v VarID) VarID {
	vv := l.variable(v)
	if vv == nil {
		return InvalidVar
	}
	if vv.param != nil {
		if vv.param.Index == 0 {
			return InvalidVar
		}
		return l.params[vv.param.Index-1]
	}
	p := l.part(vv.part)
	idx := indexOfVar(p.vars, v)
	if idx > 0 {
		return p.vars[idx-1]
	}
	return l.lastVarBeforePart(vv.part)
}

func (l *Listing) lastVarEndingAt(pid PartID) VarID {
	p := l.part(pid)
	if len(p.vars) > 0 {
		return p.vars[len(p.vars)-1]
	}
	return l.lastVarBeforePart(pid)
}

func (l *Listing) lastVarBeforePart(pid PartID) VarID {
	p := l.part(pid)
	b := l.block(p.block)
	pos := indexOfPart(b.parts, pid)
	if pos > 0 {
		return l.lastVarEndingAt(b.parts[pos-1])
	}
	// pid is the block's first part.
	if b.parentPart == InvalidPart {
		// Root block: fall through to the parameter chain.
		if len(l.params) > 0 {
			return l.params[len(l.params)-1]
		}
		return InvalidVar
	}
	siblings := l.part(b.parentPart).childBlocks
	spos := indexOfBlock(siblings, b.id)
	if spos > 0 {
		return l.lastVarInBlock(siblings[spos-1])
	}
	return l.lastVarEndingAt(b.parentPart)
}

func (l *Listing) lastVarInBlock(bid BlockID) VarID {
	b := l.block(bid)
	last := b.parts[len(b.parts)-1]
	return l.lastVarEndingAt(last)
}

// PrevPart returns the part declared immediately before p in the same
// block, or InvalidPart if p is that block's first part.
func (l *Listing) PrevPart(p PartID) PartID {
	pp := l.part(p)
	b := l.block(pp.block)
	idx := indexOfPart(b.parts, p)
	if idx <= 0 {
		return InvalidPart
	}
	return b.parts[idx-1]
}

// NextPart returns the part declared immediately after p in the same
// block, or InvalidPart at the end of the chain.
func (l *Listing) NextPart(p PartID) PartID {
	pp := l.part(p)
	b := l.block(pp.block)
	idx := indexOfPart(b.parts, p)
	if idx < 0 || idx+1 >= len(b.parts) {
		return InvalidPart
	}
	return b.parts[idx+1]
}

// FirstVar returns the first variable declared in p, or InvalidVar if p
// has none.
func (l *Listing) FirstVar(p PartID) VarID {
	pp := l.part(p)
	if pp == nil || len(pp.vars) == 0 {
		return InvalidVar
	}
	return pp.vars[0]
}

// LastVar returns the last variable declared in p, or InvalidVar if p has
// none.
func (l *Listing) LastVar(p PartID) VarID {
	pp := l.part(p)
	if pp == nil || len(pp.vars) == 0 {
		return InvalidVar
	}
	return pp.vars[len(pp.vars)-1]
}

// ParentPart returns the part within which block b was created (the part
// passed to CreateBlock), or InvalidPart for the root block. Frame
// cleanup (package binary) climbs this chain to find the part a part's
// enclosing block nests in, once PrevPart runs out within the block.
func (l *Listing) ParentPart(b BlockID) PartID {
	bb := l.block(b)
	if bb == nil {
		return InvalidPart
	}
	return bb.parentPart
}

// ParentBlock returns the block that owns part p.
func (l *Listing) ParentBlock(p PartID) BlockID {
	pp := l.part(p)
	if pp == nil {
		return InvalidBlock
	}
	return pp.block
}

// VarPart returns the part in which v was declared.
func (l *Listing) VarPart(v VarID) PartID {
	vv := l.variable(v)
	if vv == nil {
		return InvalidPart
	}
	return vv.part
}

// IsParent reports whether part is block, or nested (directly or
// transitively) inside block. Reflexive and transitive on the scope
// tree.
func (l *Listing) IsParent(blk BlockID, p PartID) bool {
	cur := l.ParentBlock(p)
	for {
		if cur == blk {
			return true
		}
		b := l.block(cur)
		if b == nil || b.parentPart == InvalidPart {
			return false
		}
		cur = l.ParentBlock(b.parentPart)
	}
}

// Accessible reports whether v is visible from part at: v's
// declaring part must be in the same block as at, or in an enclosing
// block, and must precede (or equal) at in that block's part chain.
func (l *Listing) Accessible(v VarID, at PartID) bool {
	vv := l.variable(v)
	if vv == nil {
		return false
	}
	if vv.param != nil {
		return true // parameters are visible everywhere inside the root block.
	}
	declBlock := l.ParentBlock(vv.part)
	cur := at
	for {
		curBlock := l.ParentBlock(cur)
		if curBlock == declBlock {
			b := l.block(curBlock)
			declIdx := indexOfPart(b.parts, vv.part)
			curIdx := indexOfPart(b.parts, cur)
			return declIdx >= 0 && curIdx >= 0 && declIdx <= curIdx
		}
		b := l.block(curBlock)
		if b == nil || b.parentPart == InvalidPart {
			return false
		}
		cur = b.parentPart
	}
}

// IsParam reports whether v is a parameter.
func (l *Listing) IsParam(v VarID) bool {
	vv := l.variable(v)
	return vv != nil && vv.param != nil
}

// ParamDescOf returns the parameter descriptor for v, or nil if v is not a
// parameter.
func (l *Listing) ParamDescOf(v VarID) *ParamDesc {
	vv := l.variable(v)
	if vv == nil {
		return nil
	}
	return vv.param
}

// FreeFn returns the destructor operand for v, or nil if it has none.
func (l *Listing) FreeFn(v VarID) *Operand {
	vv := l.variable(v)
	if vv == nil {
		return nil
	}
	return vv.dtor
}

// VarFreeOpt returns the free-options flags for v.
func (l *Listing) VarFreeOpt(v VarID) FreeOpt {
	vv := l.variable(v)
	if vv == nil {
		return FreeOnNone
	}
	return vv.opts
}

// VarType returns the front-end type descriptor attached to v, or nil
// for a variable created from a raw byte size.
func (l *Listing) VarType(v VarID) TypeDesc {
	vv := l.variable(v)
	if vv == nil {
		return nil
	}
	return vv.typ
}

// VarSize returns the size in bytes of v.
func (l *Listing) VarSize(v VarID) int64 {
	vv := l.variable(v)
	if vv == nil {
		return 0
	}
	return vv.size
}

// SetVarInfo attaches optional debug information to v.
func (l *Listing) SetVarInfo(v VarID, info VarInfo) {
	if vv := l.variable(v); vv != nil {
		vv.debug = &info
	}
}

// VarInfoOf returns the debug information attached to v, or nil.
func (l *Listing) VarInfoOf(v VarID) *VarInfo {
	vv := l.variable(v)
	if vv == nil {
		return nil
	}
	return vv.debug
}

// AllBlocks returns every block id in creation order.
func (l *Listing) AllBlocks() []BlockID {
	out := make([]BlockID, len(l.blocks))
	for i, b := range l.blocks {
		out[i] = b.id
	}
	return out
}

// AllParts returns every part id in creation order.
func (l *Listing) AllParts() []PartID {
	out := make([]PartID, len(l.parts))
	for i, p := range l.parts {
		out[i] = p.id
	}
	return out
}

// AllVars returns every variable id (parameters excluded) in creation
// order.
func (l *Listing) AllVars() []VarID {
	var out []VarID
	for _, v := range l.vars {
		if v.param == nil {
			out = append(out, v.id)
		}
	}
	return out
}

// AllParams returns every parameter id in parameter-list order.
func (l *Listing) AllParams() []VarID {
	out := make([]VarID, len(l.params))
	copy(out, l.params)
	return out
}

// PartVars returns the variables declared directly in part p, in
// declaration order.
func (l *Listing) PartVars(p PartID) []VarID {
	pp := l.part(p)
	if pp == nil {
		return nil
	}
	out := make([]VarID, len(pp.vars))
	copy(out, pp.vars)
	return out
}

// BlockParts returns the parts owned by block b, in chain order.
func (l *Listing) BlockParts(b BlockID) []PartID {
	bb := l.block(b)
	if bb == nil {
		return nil
	}
	out := make([]PartID, len(bb.parts))
	copy(out, bb.parts)
	return out
}
