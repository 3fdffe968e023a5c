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
	"strconv"
	"strings"
)

// Value is anything that can be used as an instruction operand
type Value interface {
	// Type returns the type of the value
	Type() *Type

	// Ident returns the textual reference to the value, without its type
	Ident() string
}

// Const is an integer constant
type Const struct {
	Typ *Type
	Int int64
}

// ConstInt returns the integer constant v of type t
func ConstInt(t *Type, v int64) *Const { return &Const{Typ: t, Int: v} }

func (c *Const) Type() *Type   { return c.Typ }
func (c *Const) Ident() string {
	if c.Typ.IsInt() && c.Typ.Bits == 1 {
		if c.Int != 0 {
			return "true"
		}
		return "false"
	}
	return strconv.FormatInt(c.Int, 10)
}

// Null is the null pointer of a pointer type
type Null struct {
	Typ *Type
}

func (n *Null) Type() *Type   { return n.Typ }
func (n *Null) Ident() string { return "null" }

// Zero is the all-zero value of any sized type
type Zero struct {
	Typ *Type
}

func (z *Zero) Type() *Type   { return z.Typ }
func (z *Zero) Ident() string { return "zeroinitializer" }

// ZeroValue returns the canonical zero value of t: an integer 0, a null pointer, or a zeroinitializer
func ZeroValue(t *Type) Value {
	switch {
	case t.IsInt():
		return ConstInt(t, 0)
	case t.IsPointer():
		return &Null{Typ: t}
	default:
		return &Zero{Typ: t}
	}
}

// Undef is an unspecified value
type Undef struct {
	Typ *Type
}

func (u *Undef) Type() *Type   { return u.Typ }
func (u *Undef) Ident() string { return "undef" }

// Str is a constant C string used as a name for symbolic objects. Its type is i8*.
type Str struct {
	Text string
}

func (s *Str) Type() *Type   { return I8P }
func (s *Str) Ident() string { return "c" + strconv.Quote(s.Text) }

// Aggregate is a constant array or struct
type Aggregate struct {
	Typ   *Type
	Elems []Value
}

func (a *Aggregate) Type() *Type { return a.Typ }
func (a *Aggregate) Ident() string {
	parts := make([]string, len(a.Elems))
	for i, e := range a.Elems {
		parts[i] = Operand(e)
	}
	if a.Typ.IsArray() {
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Param is a formal parameter of a function
type Param struct {
	Name  string
	Typ   *Type
	Index int
	fn    *Function
}

func (p *Param) Type() *Type { return p.Typ }
func (p *Param) Ident() string {
	if p.Name != "" {
		return "%" + p.Name
	}
	return fmt.Sprintf("%%arg%d", p.Index)
}

// Parent returns the function declaring the parameter
func (p *Param) Parent() *Function { return p.fn }

// Operand returns the typed textual form of v, e.g. "i32 5" or "i8* %x"
func Operand(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Type().String() + " " + v.Ident()
}

// IsConstant returns true if v does not depend on any instruction or parameter
func IsConstant(v Value) bool {
	switch x := v.(type) {
	case *Const, *Null, *Zero, *Undef, *Str, *Global, *Function:
		return true
	case *Aggregate:
		for _, e := range x.Elems {
			if !IsConstant(e) {
				return false
			}
		}
		return true
	}
	return false
}
