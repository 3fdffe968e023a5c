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

// TypeKind is the kind of an IR type
type TypeKind int

const (
	VoidKind TypeKind = iota
	IntKind
	FloatKind
	PointerKind
	ArrayKind
	StructKind
	FuncKind
	OpaqueKind
)

// Type is a structural IR type. Two types are the same type iff Equal returns true; pointer identity between
// *Type values is never relied upon.
type Type struct {
	Kind TypeKind

	// Bits is the width of integer and floating point types
	Bits int

	// Elem is the pointee of a pointer type, or the element type of an array type
	Elem *Type

	// Len is the number of elements of an array type
	Len int

	// Fields are the fields of a struct type
	Fields []*Type

	// Ret and Params form the signature of a function type
	Ret      *Type
	Params   []*Type
	Variadic bool

	// Name is the name of an opaque type
	Name string
}

var (
	Void = &Type{Kind: VoidKind}
	I1   = IntType(1)
	I8   = IntType(8)
	I16  = IntType(16)
	I32  = IntType(32)
	I64  = IntType(64)
	I8P  = PointerTo(I8)
)

// IntType returns the integer type with the given width
func IntType(bits int) *Type { return &Type{Kind: IntKind, Bits: bits} }

// FloatType returns the floating point type with the given width
func FloatType(bits int) *Type { return &Type{Kind: FloatKind, Bits: bits} }

// PointerTo returns a pointer type to elem
func PointerTo(elem *Type) *Type { return &Type{Kind: PointerKind, Elem: elem} }

// ArrayOf returns the array type [n x elem]
func ArrayOf(n int, elem *Type) *Type { return &Type{Kind: ArrayKind, Len: n, Elem: elem} }

// StructOf returns the literal struct type with the given fields
func StructOf(fields ...*Type) *Type { return &Type{Kind: StructKind, Fields: fields} }

// FuncOf returns the function type ret (params...)
func FuncOf(ret *Type, params ...*Type) *Type {
	return &Type{Kind: FuncKind, Ret: ret, Params: params}
}

// OpaqueType returns a named type without a body, e.g. %struct.FILE when only declared
func OpaqueType(name string) *Type { return &Type{Kind: OpaqueKind, Name: name} }

func (t *Type) IsVoid() bool    { return t == nil || t.Kind == VoidKind }
func (t *Type) IsInt() bool     { return t != nil && t.Kind == IntKind }
func (t *Type) IsPointer() bool { return t != nil && t.Kind == PointerKind }
func (t *Type) IsArray() bool   { return t != nil && t.Kind == ArrayKind }
func (t *Type) IsFunc() bool    { return t != nil && t.Kind == FuncKind }

// IsFuncPointer returns true if t is a pointer to a function type
func (t *Type) IsFuncPointer() bool { return t.IsPointer() && t.Elem.IsFunc() }

// IsSized returns true if values of type t occupy a statically known number of bytes
func (t *Type) IsSized() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case IntKind, FloatKind, PointerKind:
		return true
	case ArrayKind:
		return t.Elem.IsSized()
	case StructKind:
		for _, f := range t.Fields {
			if !f.IsSized() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal returns true if t and u are structurally the same type
func (t *Type) Equal(u *Type) bool {
	if t == u {
		return true
	}
	if t == nil || u == nil || t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case VoidKind:
		return true
	case IntKind, FloatKind:
		return t.Bits == u.Bits
	case PointerKind:
		return t.Elem.Equal(u.Elem)
	case ArrayKind:
		return t.Len == u.Len && t.Elem.Equal(u.Elem)
	case StructKind:
		return typesEqual(t.Fields, u.Fields)
	case FuncKind:
		return t.Variadic == u.Variadic && t.Ret.Equal(u.Ret) && typesEqual(t.Params, u.Params)
	case OpaqueKind:
		return t.Name == u.Name
	}
	return false
}

func typesEqual(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case VoidKind:
		return "void"
	case IntKind:
		return fmt.Sprintf("i%d", t.Bits)
	case FloatKind:
		switch t.Bits {
		case 16:
			return "half"
		case 32:
			return "float"
		case 64:
			return "double"
		case 80:
			return "x86_fp80"
		default:
			return "fp128"
		}
	case PointerKind:
		return t.Elem.String() + "*"
	case ArrayKind:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	case StructKind:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case FuncKind:
		parts := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			parts = append(parts, p.String())
		}
		if t.Variadic {
			parts = append(parts, "...")
		}
		return t.Ret.String() + " (" + strings.Join(parts, ", ") + ")"
	case OpaqueKind:
		return "%" + t.Name
	}
	return "?"
}

// DataLayout describes the target's pointer width. Scalar sizes follow the common C ABI of 32 and 64 bit targets.
type DataLayout struct {
	PointerBits int `yaml:"pointer-bits"`
}

// DefaultLayout is a 64 bit target
var DefaultLayout = DataLayout{PointerBits: 64}

func (dl DataLayout) pointerBytes() uint64 {
	if dl.PointerBits <= 0 {
		return 8
	}
	return uint64(dl.PointerBits) / 8
}

// SizeT returns the integer type used for byte sizes on this target
func (dl DataLayout) SizeT() *Type {
	if dl.PointerBits > 32 || dl.PointerBits <= 0 {
		return I64
	}
	return I32
}

// AllocSize returns the number of bytes allocated for a value of type t, including tail padding. The second
// result is false if t is not sized.
func (dl DataLayout) AllocSize(t *Type) (uint64, bool) {
	if !t.IsSized() {
		return 0, false
	}
	return dl.allocSize(t), true
}

func (dl DataLayout) allocSize(t *Type) uint64 {
	switch t.Kind {
	case IntKind:
		return scalarBytes(t.Bits)
	case FloatKind:
		if t.Bits > 64 {
			return 16
		}
		return scalarBytes(t.Bits)
	case PointerKind:
		return dl.pointerBytes()
	case ArrayKind:
		return uint64(t.Len) * dl.allocSize(t.Elem)
	case StructKind:
		var offset uint64
		for _, f := range t.Fields {
			offset = alignTo(offset, dl.Align(f))
			offset += dl.allocSize(f)
		}
		return alignTo(offset, dl.Align(t))
	}
	return 0
}

// Align returns the ABI alignment of t in bytes
func (dl DataLayout) Align(t *Type) uint64 {
	switch t.Kind {
	case IntKind, FloatKind:
		s := dl.allocSize(t)
		if s > 16 {
			return 16
		}
		return s
	case PointerKind:
		return dl.pointerBytes()
	case ArrayKind:
		return dl.Align(t.Elem)
	case StructKind:
		var a uint64 = 1
		for _, f := range t.Fields {
			if fa := dl.Align(f); fa > a {
				a = fa
			}
		}
		return a
	}
	return 1
}

func scalarBytes(bits int) uint64 {
	b := uint64((bits + 7) / 8)
	p := uint64(1)
	for p < b {
		p <<= 1
	}
	return p
}

func alignTo(x, a uint64) uint64 {
	if a <= 1 {
		return x
	}
	return (x + a - 1) / a * a
}
