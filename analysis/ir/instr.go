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
)

// Opcode identifies the operation performed by an instruction
type Opcode int

const (
	OpAlloca Opcode = iota
	OpLoad
	OpStore
	OpCall
	OpCast
	OpBinary
	OpICmp
	OpBr
	OpCondBr
	OpRet
	OpUnreachable
)

var opcodeNames = [...]string{
	OpAlloca:      "alloca",
	OpLoad:        "load",
	OpStore:       "store",
	OpCall:        "call",
	OpCast:        "cast",
	OpBinary:      "binary",
	OpICmp:        "icmp",
	OpBr:          "br",
	OpCondBr:      "condbr",
	OpRet:         "ret",
	OpUnreachable: "unreachable",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// ParseOpcode returns the opcode named s
func ParseOpcode(s string) (Opcode, bool) {
	for i, name := range opcodeNames {
		if name == s {
			return Opcode(i), true
		}
	}
	return 0, false
}

// IsTerminator returns true for opcodes that must end a block
func (op Opcode) IsTerminator() bool {
	return op == OpBr || op == OpCondBr || op == OpRet || op == OpUnreachable
}

// DebugLoc is a source location attached to an instruction. Scope is the subprogram of the function that
// contains the instruction.
type DebugLoc struct {
	Line  int
	Col   int
	Scope *Subprogram
}

func (l *DebugLoc) String() string {
	if l == nil {
		return "<no loc>"
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Col)
}

// Subprogram is the debug descriptor of a function
type Subprogram struct {
	Name      string
	File      string
	Line      int
	ScopeLine int
}

// InstrID identifies an instruction within its function. IDs start at 1 and are never reused, even after the
// instruction is erased.
type InstrID int

// Instr is a single IR instruction. Instructions that produce a value are themselves Values.
//
// Operand layout per opcode:
//   - alloca: [count]? ; Alloc is the allocated type, Typ is a pointer to it
//   - load: [ptr]
//   - store: [value, ptr]
//   - call: arguments ; Callee is the called value (a *Function for direct calls)
//   - cast, binary, icmp: operands ; Kind is the cast kind, binary operator or predicate
//   - br: [] ; Succs has one block
//   - condbr: [cond] ; Succs is [true, false]
//   - ret: [value]?
type Instr struct {
	ID       InstrID
	Op       Opcode
	Name     string
	Typ      *Type
	Operands []Value
	Succs    []*Block
	Callee   Value
	Alloc    *Type
	Kind     string

	// Attrs are call site attributes, copied when a call is replaced
	Attrs []string

	// Meta is the free-form metadata attached to the instruction, other than its location
	Meta map[string]string

	Loc *DebugLoc

	block  *Block
	erased bool
}

func (i *Instr) Type() *Type {
	if i.Typ == nil {
		return Void
	}
	return i.Typ
}

func (i *Instr) Ident() string {
	if i.Name == "" {
		return fmt.Sprintf("%%<%p>", i)
	}
	return "%" + i.Name
}

// Block returns the block containing the instruction, or nil if it has not been inserted or has been erased
func (i *Instr) Block() *Block {
	if i.erased {
		return nil
	}
	return i.block
}

// Parent returns the function containing the instruction
func (i *Instr) Parent() *Function {
	if b := i.Block(); b != nil {
		return b.fn
	}
	return nil
}

// Erased returns true once the instruction has been removed from its block
func (i *Instr) Erased() bool { return i.erased }

// IsTerminator returns true if the instruction ends its block
func (i *Instr) IsTerminator() bool { return i.Op.IsTerminator() }

// CalledFunction returns the callee of a direct call, or nil for indirect calls and non-call instructions
func (i *Instr) CalledFunction() *Function {
	if i.Op != OpCall {
		return nil
	}
	f, _ := i.Callee.(*Function)
	return f
}

// Calls returns true if the instruction is a direct call to a function called name
func (i *Instr) Calls(name string) bool {
	f := i.CalledFunction()
	return f != nil && f.Name == name
}

// Prev returns the instruction preceding i in its block, or nil
func (i *Instr) Prev() *Instr {
	b := i.Block()
	if b == nil {
		return nil
	}
	idx := b.Index(i)
	if idx <= 0 {
		return nil
	}
	return b.Instrs[idx-1]
}

// Next returns the instruction following i in its block, or nil
func (i *Instr) Next() *Instr {
	b := i.Block()
	if b == nil {
		return nil
	}
	idx := b.Index(i)
	if idx < 0 || idx+1 >= len(b.Instrs) {
		return nil
	}
	return b.Instrs[idx+1]
}

// CopyMetadataFrom copies the free-form metadata and the location of src into i
func (i *Instr) CopyMetadataFrom(src *Instr) {
	if src.Meta != nil {
		i.Meta = make(map[string]string, len(src.Meta))
		for k, v := range src.Meta {
			i.Meta[k] = v
		}
	}
	if src.Loc != nil {
		loc := *src.Loc
		i.Loc = &loc
	}
}

// uses calls f on each value slot of the instruction
func (i *Instr) uses(f func(v *Value)) {
	for k := range i.Operands {
		f(&i.Operands[k])
	}
	if i.Callee != nil {
		f(&i.Callee)
	}
}

func (i *Instr) String() string {
	return formatInstr(i)
}
