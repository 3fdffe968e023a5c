// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"fmt"
	"strings"
)

// Linkage is the visibility of a function or global outside the module
type Linkage int

const (
	ExternalLinkage Linkage = iota
	InternalLinkage
	PrivateLinkage
)

func (l Linkage) String() string {
	switch l {
	case InternalLinkage:
		return "internal"
	case PrivateLinkage:
		return "private"
	default:
		return "external"
	}
}

// ParseLinkage returns the linkage named s. The empty string is external linkage.
func ParseLinkage(s string) (Linkage, error) {
	switch s {
	case "", "external":
		return ExternalLinkage, nil
	case "internal":
		return InternalLinkage, nil
	case "private":
		return PrivateLinkage, nil
	}
	return ExternalLinkage, fmt.Errorf("unknown linkage %q", s)
}

// Block is a basic block: a sequence of instructions ending in a terminator
type Block struct {
	Name   string
	Instrs []*Instr
	fn     *Function
}

// Parent returns the function containing the block
func (b *Block) Parent() *Function { return b.fn }

// Terminator returns the last instruction of the block if it is a terminator, nil otherwise
func (b *Block) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !last.IsTerminator() {
		return nil
	}
	return last
}

// First returns the first instruction of the block, or nil if the block is empty
func (b *Block) First() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[0]
}

// Successors returns the successors of the block, in terminator order and with duplicates
func (b *Block) Successors() []*Block {
	if t := b.Terminator(); t != nil {
		return t.Succs
	}
	return nil
}

// UniqueSuccessor returns the only distinct successor of the block, or nil
func (b *Block) UniqueSuccessor() *Block {
	var unique *Block
	for _, s := range b.Successors() {
		if unique != nil && unique != s {
			return nil
		}
		unique = s
	}
	return unique
}

// Predecessors returns the distinct blocks of the function that branch to b, in block order
func (b *Block) Predecessors() []*Block {
	var preds []*Block
	if b.fn == nil {
		return nil
	}
	for _, p := range b.fn.Blocks {
		for _, s := range p.Successors() {
			if s == b {
				preds = append(preds, p)
				break
			}
		}
	}
	return preds
}

// UniquePredecessor returns the only predecessor of the block, or nil
func (b *Block) UniquePredecessor() *Block {
	preds := b.Predecessors()
	if len(preds) != 1 {
		return nil
	}
	return preds[0]
}

// Index returns the position of instr in the block, or -1
func (b *Block) Index(instr *Instr) int {
	for k, x := range b.Instrs {
		if x == instr {
			return k
		}
	}
	return -1
}

// ReplaceSuccessor redirects every edge from b to old so that it targets new instead
func (b *Block) ReplaceSuccessor(old, new *Block) {
	t := b.Terminator()
	if t == nil {
		return
	}
	for k, s := range t.Succs {
		if s == old {
			t.Succs[k] = new
		}
	}
}

func (b *Block) String() string { return b.Name }

// Function is a function definition or declaration. A function with no blocks and no pending lazy body is a
// declaration.
type Function struct {
	Name       string
	Sig        *Type
	Params     []*Param
	Blocks     []*Block
	Linkage    Linkage
	Attrs      []string
	Subprogram *Subprogram

	// lazy is called once by Materialize to fill in the body of a lazily loaded function
	lazy   func(*Function) error
	module *Module

	// arena holds every instruction ever inserted in the function, indexed by InstrID-1. Erased instructions
	// stay in the arena so that their ID is never reused.
	arena []*Instr
}

// Instr returns the live instruction with the given id, or nil if there is none or it has been erased
func (f *Function) Instr(id InstrID) *Instr {
	if id <= 0 || int(id) > len(f.arena) {
		return nil
	}
	i := f.arena[id-1]
	if i.erased || i.block == nil || i.block.fn != f {
		return nil
	}
	return i
}

// register gives instr its stable ID in f, if it does not have one yet
func (f *Function) register(instr *Instr) {
	if instr.ID > 0 && int(instr.ID) <= len(f.arena) && f.arena[instr.ID-1] == instr {
		return
	}
	f.arena = append(f.arena, instr)
	instr.ID = InstrID(len(f.arena))
}

func (f *Function) Type() *Type   { return PointerTo(f.Sig) }
func (f *Function) Ident() string { return "@" + f.Name }

// Module returns the module containing the function
func (f *Function) Module() *Module { return f.module }

// IsDeclaration returns true if the function has no body
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 && f.lazy == nil }

// IsIntrinsic returns true for compiler intrinsics
func (f *Function) IsIntrinsic() bool { return strings.HasPrefix(f.Name, "llvm.") }

// IsMaterialized returns false while the body of a lazily loaded function has not been read
func (f *Function) IsMaterialized() bool { return f.lazy == nil }

// SetLazyBody registers a loader for the body of f. The body is read by Materialize.
func (f *Function) SetLazyBody(load func(*Function) error) { f.lazy = load }

// Materialize reads the body of a lazily loaded function. It is a no-op for other functions.
func (f *Function) Materialize() error {
	if f.lazy == nil {
		return nil
	}
	load := f.lazy
	f.lazy = nil
	if err := load(f); err != nil {
		return fmt.Errorf("materializing %s: %w", f.Name, err)
	}
	return nil
}

// ReturnType returns the return type of the function
func (f *Function) ReturnType() *Type {
	if f.Sig == nil {
		return Void
	}
	return f.Sig.Ret
}

// Entry returns the entry block, or nil for declarations
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a new empty block named name (made unique in the function) at the end of the function
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: f.uniqueBlockName(name), fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// InsertBlockBefore creates a new empty block placed just before the block at in the function layout.
// If at is nil, the block is appended.
func (f *Function) InsertBlockBefore(name string, at *Block) *Block {
	b := &Block{Name: f.uniqueBlockName(name), fn: f}
	idx := f.BlockIndex(at)
	if at == nil || idx < 0 {
		f.Blocks = append(f.Blocks, b)
		return b
	}
	f.Blocks = append(f.Blocks, nil)
	copy(f.Blocks[idx+1:], f.Blocks[idx:])
	f.Blocks[idx] = b
	return b
}

// BlockIndex returns the position of b in the function layout, or -1
func (f *Function) BlockIndex(b *Block) int {
	for k, x := range f.Blocks {
		if x == b {
			return k
		}
	}
	return -1
}

// BlockNamed returns the block called name, or nil
func (f *Function) BlockNamed(name string) *Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (f *Function) uniqueBlockName(name string) string {
	if name == "" {
		name = "bb"
	}
	if f.BlockNamed(name) == nil {
		return name
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s%d", name, k)
		if f.BlockNamed(candidate) == nil {
			return candidate
		}
	}
}

// Instructions calls visit on every instruction of the function, in layout order. Instructions may not be
// inserted or erased during the walk; collect them first.
func (f *Function) Instructions(visit func(*Instr)) {
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			visit(i)
		}
	}
}

// CollectInstrs returns the instructions of the function satisfying keep, in layout order
func (f *Function) CollectInstrs(keep func(*Instr) bool) []*Instr {
	var res []*Instr
	f.Instructions(func(i *Instr) {
		if keep(i) {
			res = append(res, i)
		}
	})
	return res
}

// Append adds instr at the end of b
func (b *Block) Append(instr *Instr) *Instr {
	instr.block = b
	instr.erased = false
	b.Instrs = append(b.Instrs, instr)
	if b.fn != nil {
		b.fn.register(instr)
		b.fn.nameValue(instr)
	}
	return instr
}

// InsertBefore inserts instr just before at, in the block of at
func InsertBefore(instr, at *Instr) *Instr {
	b := at.Block()
	if b == nil {
		panic("insertion point is not in a block")
	}
	return b.insertAt(instr, b.Index(at))
}

// InsertAfter inserts instr just after at, in the block of at
func InsertAfter(instr, at *Instr) *Instr {
	b := at.Block()
	if b == nil {
		panic("insertion point is not in a block")
	}
	return b.insertAt(instr, b.Index(at)+1)
}

// InsertFirst inserts instr as the first instruction of b
func (b *Block) InsertFirst(instr *Instr) *Instr {
	return b.insertAt(instr, 0)
}

func (b *Block) insertAt(instr *Instr, idx int) *Instr {
	instr.block = b
	instr.erased = false
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[idx+1:], b.Instrs[idx:])
	b.Instrs[idx] = instr
	if b.fn != nil {
		b.fn.register(instr)
		b.fn.nameValue(instr)
	}
	return instr
}

// Erase removes the instruction from its block. Uses of its value must have been replaced beforehand.
func Erase(instr *Instr) {
	b := instr.Block()
	if b == nil {
		return
	}
	idx := b.Index(instr)
	b.Instrs = append(b.Instrs[:idx], b.Instrs[idx+1:]...)
	instr.erased = true
}

// SplitBlock moves at and every instruction after it into a new block inserted after the block of at.
// The original block then branches unconditionally to the new block, which is returned.
func SplitBlock(at *Instr, name string) *Block {
	b := at.Block()
	f := b.fn
	idx := b.Index(at)
	next := &Block{Name: f.uniqueBlockName(name), fn: f}
	bi := f.BlockIndex(b)
	f.Blocks = append(f.Blocks, nil)
	copy(f.Blocks[bi+2:], f.Blocks[bi+1:])
	f.Blocks[bi+1] = next

	next.Instrs = append([]*Instr(nil), b.Instrs[idx:]...)
	for _, i := range next.Instrs {
		i.block = next
	}
	b.Instrs = b.Instrs[:idx]
	br := NewBr(next)
	if len(next.Instrs) > 0 {
		br.Loc = next.Instrs[0].Loc
	}
	b.Append(br)
	return next
}

// ReplaceAllUses replaces every use of old in the function by new
func (f *Function) ReplaceAllUses(old, new Value) int {
	n := 0
	f.Instructions(func(i *Instr) {
		i.uses(func(v *Value) {
			if *v == old {
				*v = new
				n++
			}
		})
	})
	return n
}

// Uses returns the instructions of the function using v as an operand or callee
func (f *Function) Uses(v Value) []*Instr {
	return f.CollectInstrs(func(i *Instr) bool {
		found := false
		i.uses(func(u *Value) {
			if *u == v {
				found = true
			}
		})
		return found
	})
}

// nameValue gives a function-unique name to value producing instructions
func (f *Function) nameValue(instr *Instr) {
	if instr.Type().IsVoid() {
		return
	}
	if instr.Name == "" {
		instr.Name = "tmp"
	}
	if !f.hasLocal(instr.Name, instr) {
		return
	}
	base := instr.Name
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s%d", base, k)
		if !f.hasLocal(candidate, instr) {
			instr.Name = candidate
			return
		}
	}
}

func (f *Function) hasLocal(name string, except *Instr) bool {
	for _, p := range f.Params {
		if p.Name == name {
			return true
		}
	}
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			if i != except && i.Name == name && !i.Type().IsVoid() {
				return true
			}
		}
	}
	return false
}

// AddParam appends a formal parameter to a function being built
func (f *Function) AddParam(name string, t *Type) *Param {
	p := &Param{Name: name, Typ: t, Index: len(f.Params), fn: f}
	f.Params = append(f.Params, p)
	return p
}

// HasAttr returns true if the function carries attribute a
func (f *Function) HasAttr(a string) bool {
	for _, x := range f.Attrs {
		if x == a {
			return true
		}
	}
	return false
}
