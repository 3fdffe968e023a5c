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

// The constructors below return instructions that are not yet part of a block. Insert them with Block.Append,
// Block.InsertFirst, InsertBefore or InsertAfter.

// NewAlloca allocates one object of type t on the stack
func NewAlloca(t *Type, name string) *Instr {
	return &Instr{Op: OpAlloca, Name: name, Typ: PointerTo(t), Alloc: t}
}

// NewArrayAlloca allocates count objects of type t on the stack
func NewArrayAlloca(t *Type, count Value, name string) *Instr {
	return &Instr{Op: OpAlloca, Name: name, Typ: PointerTo(t), Alloc: t, Operands: []Value{count}}
}

// ArraySize returns the element count operand of an alloca, or nil for single object allocations
func (i *Instr) ArraySize() Value {
	if i.Op != OpAlloca || len(i.Operands) == 0 {
		return nil
	}
	return i.Operands[0]
}

// NewLoad loads a value from ptr
func NewLoad(ptr Value, name string) *Instr {
	t := Void
	if ptr.Type().IsPointer() {
		t = ptr.Type().Elem
	}
	return &Instr{Op: OpLoad, Name: name, Typ: t, Operands: []Value{ptr}}
}

// NewStore stores val at ptr
func NewStore(val, ptr Value) *Instr {
	return &Instr{Op: OpStore, Typ: Void, Operands: []Value{val, ptr}}
}

// NewCall calls callee with args. The result type is the return type of the callee's signature.
func NewCall(callee Value, args []Value, name string) *Instr {
	ret := Void
	if ct := callee.Type(); ct.IsFuncPointer() {
		ret = ct.Elem.Ret
	}
	if ret.IsVoid() {
		name = ""
	}
	return &Instr{Op: OpCall, Name: name, Typ: ret, Callee: callee, Operands: args}
}

// NewCast converts v to type t. kind is one of bitcast, zext, sext, trunc, ptrtoint, inttoptr.
func NewCast(kind string, v Value, t *Type, name string) *Instr {
	return &Instr{Op: OpCast, Kind: kind, Name: name, Typ: t, Operands: []Value{v}}
}

// NewBinary applies the integer operator op (add, sub, mul, ...) to x and y
func NewBinary(op string, x, y Value, name string) *Instr {
	return &Instr{Op: OpBinary, Kind: op, Name: name, Typ: x.Type(), Operands: []Value{x, y}}
}

// NewICmp compares x and y with predicate pred (eq, ne, slt, ...)
func NewICmp(pred string, x, y Value, name string) *Instr {
	return &Instr{Op: OpICmp, Kind: pred, Name: name, Typ: I1, Operands: []Value{x, y}}
}

// NewBr jumps to target
func NewBr(target *Block) *Instr {
	return &Instr{Op: OpBr, Typ: Void, Succs: []*Block{target}}
}

// NewCondBr jumps to ifTrue when cond holds, to ifFalse otherwise
func NewCondBr(cond Value, ifTrue, ifFalse *Block) *Instr {
	return &Instr{Op: OpCondBr, Typ: Void, Operands: []Value{cond}, Succs: []*Block{ifTrue, ifFalse}}
}

// NewRet returns v, or nothing when v is nil
func NewRet(v Value) *Instr {
	i := &Instr{Op: OpRet, Typ: Void}
	if v != nil {
		i.Operands = []Value{v}
	}
	return i
}

// NewUnreachable marks the end of a block that control never reaches
func NewUnreachable() *Instr {
	return &Instr{Op: OpUnreachable, Typ: Void}
}

// CastTo returns a cast instruction turning v into a value of type t, or nil if v already has type t
func CastTo(v Value, t *Type, name string) *Instr {
	from := v.Type()
	switch {
	case from.Equal(t):
		return nil
	case from.IsPointer() && t.IsPointer():
		return NewCast("bitcast", v, t, name)
	case from.IsInt() && t.IsInt() && from.Bits < t.Bits:
		return NewCast("zext", v, t, name)
	case from.IsInt() && t.IsInt():
		return NewCast("trunc", v, t, name)
	case from.IsPointer() && t.IsInt():
		return NewCast("ptrtoint", v, t, name)
	case from.IsInt() && t.IsPointer():
		return NewCast("inttoptr", v, t, name)
	}
	return NewCast("bitcast", v, t, name)
}
