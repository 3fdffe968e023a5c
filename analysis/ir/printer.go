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
	"sort"
	"strings"
)

// String prints the module in a textual form close to LLVM assembly. The output is deterministic and is used
// by tests to compare modules.
func (m *Module) String() string {
	var sb strings.Builder
	if m.Name != "" {
		fmt.Fprintf(&sb, "; module %s\n", m.Name)
	}
	for _, g := range m.Globals {
		sb.WriteString(formatGlobal(g))
		sb.WriteByte('\n')
	}
	for _, f := range m.Functions {
		sb.WriteByte('\n')
		sb.WriteString(f.String())
	}
	return sb.String()
}

func formatGlobal(g *Global) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@%s = ", g.Name)
	if g.Linkage != ExternalLinkage {
		sb.WriteString(g.Linkage.String() + " ")
	}
	if g.ExternallyInitialized {
		sb.WriteString("externally_initialized ")
	}
	if g.Constant {
		sb.WriteString("constant ")
	} else {
		sb.WriteString("global ")
	}
	if g.Init == nil {
		sb.WriteString(g.ValueType.String())
	} else {
		sb.WriteString(Operand(g.Init))
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for k, p := range f.Params {
		params[k] = Operand(p)
	}
	if f.Sig != nil && f.Sig.Variadic {
		params = append(params, "...")
	}
	kw := "define"
	if f.IsDeclaration() {
		kw = "declare"
	}
	fmt.Fprintf(&sb, "%s ", kw)
	if f.Linkage != ExternalLinkage {
		sb.WriteString(f.Linkage.String() + " ")
	}
	fmt.Fprintf(&sb, "%s @%s(%s)", f.ReturnType(), f.Name, strings.Join(params, ", "))
	if f.IsDeclaration() {
		sb.WriteByte('\n')
		return sb.String()
	}
	if !f.IsMaterialized() {
		sb.WriteString(" ; not materialized\n")
		return sb.String()
	}
	sb.WriteString(" {\n")
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Name)
		for _, i := range b.Instrs {
			fmt.Fprintf(&sb, "  %s\n", formatInstr(i))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

func formatInstr(i *Instr) string {
	var sb strings.Builder
	if !i.Type().IsVoid() {
		fmt.Fprintf(&sb, "%s = ", i.Ident())
	}
	switch i.Op {
	case OpAlloca:
		fmt.Fprintf(&sb, "alloca %s", i.Alloc)
		if n := i.ArraySize(); n != nil {
			fmt.Fprintf(&sb, ", %s", Operand(n))
		}
	case OpCall:
		fmt.Fprintf(&sb, "call %s %s(%s)", i.Type(), i.Callee.Ident(), joinOperands(i.Operands))
	case OpCast:
		fmt.Fprintf(&sb, "%s %s to %s", i.Kind, joinOperands(i.Operands), i.Type())
	case OpBinary:
		fmt.Fprintf(&sb, "%s %s", i.Kind, joinOperands(i.Operands))
	case OpICmp:
		fmt.Fprintf(&sb, "icmp %s %s", i.Kind, joinOperands(i.Operands))
	case OpBr:
		fmt.Fprintf(&sb, "br label %%%s", i.Succs[0].Name)
	case OpCondBr:
		fmt.Fprintf(&sb, "br %s, label %%%s, label %%%s", Operand(i.Operands[0]), i.Succs[0].Name, i.Succs[1].Name)
	case OpRet:
		if len(i.Operands) == 0 {
			sb.WriteString("ret void")
		} else {
			fmt.Fprintf(&sb, "ret %s", Operand(i.Operands[0]))
		}
	default:
		sb.WriteString(i.Op.String())
		if len(i.Operands) > 0 {
			sb.WriteString(" " + joinOperands(i.Operands))
		}
	}
	if len(i.Meta) > 0 {
		keys := make([]string, 0, len(i.Meta))
		for k := range i.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, ", !%s %q", k, i.Meta[k])
		}
	}
	if i.Loc != nil {
		fmt.Fprintf(&sb, ", !dbg %s", i.Loc)
	}
	return sb.String()
}

func joinOperands(vals []Value) string {
	parts := make([]string, len(vals))
	for k, v := range vals {
		parts[k] = Operand(v)
	}
	return strings.Join(parts, ", ")
}
