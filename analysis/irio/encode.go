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

package irio

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"gopkg.in/yaml.v3"
)

// WriteFile writes m to filename
func WriteFile(filename string, m *ir.Module) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("could not write module file: %w", err)
	}
	return nil
}

// Write writes m to w
func Write(w io.Writer, m *ir.Module) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Encode returns the YAML representation of m. Lazily loaded functions are materialized first.
func Encode(m *ir.Module) ([]byte, error) {
	doc := moduleDoc{Name: m.Name}
	if m.Layout.PointerBits != ir.DefaultLayout.PointerBits {
		doc.PointerBits = m.Layout.PointerBits
	}
	for _, g := range m.Globals {
		gd := globalDoc{
			Name:                  g.Name,
			Type:                  g.ValueType.String(),
			Constant:              g.Constant,
			ExternallyInitialized: g.ExternallyInitialized,
			Linkage:               linkageName(g.Linkage),
		}
		if g.Init != nil {
			node, err := encodeConst(g.Init)
			if err != nil {
				return nil, fmt.Errorf("initializer of @%s: %w", g.Name, err)
			}
			gd.Init = *node
		}
		doc.Globals = append(doc.Globals, gd)
	}
	for _, f := range m.Functions {
		fd, err := encodeFunction(f)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
		doc.Functions = append(doc.Functions, *fd)
	}
	return yaml.Marshal(&doc)
}

func linkageName(l ir.Linkage) string {
	if l == ir.ExternalLinkage {
		return ""
	}
	return l.String()
}

func paramName(p *ir.Param) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("arg%d", p.Index)
}

func encodeFunction(f *ir.Function) (*functionDoc, error) {
	if err := f.Materialize(); err != nil {
		return nil, err
	}
	fd := &functionDoc{
		Name:    f.Name,
		Type:    f.Sig.String(),
		Linkage: linkageName(f.Linkage),
		Attrs:   f.Attrs,
	}
	for _, p := range f.Params {
		fd.Params = append(fd.Params, paramName(p))
	}
	if sp := f.Subprogram; sp != nil {
		fd.Subprogram = &subprogramDoc{File: sp.File, Line: sp.Line, ScopeLine: sp.ScopeLine}
	}
	if f.IsDeclaration() {
		return fd, nil
	}
	var blocks []blockDoc
	for _, b := range f.Blocks {
		bd := blockDoc{Name: b.Name, Instrs: []instrDoc{}}
		for _, i := range b.Instrs {
			id, err := encodeInstr(i)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name, err)
			}
			bd.Instrs = append(bd.Instrs, *id)
		}
		blocks = append(blocks, bd)
	}
	if err := fd.Blocks.Encode(blocks); err != nil {
		return nil, err
	}
	return fd, nil
}

func encodeInstr(i *ir.Instr) (*instrDoc, error) {
	id := &instrDoc{Op: i.Op.String(), Attrs: i.Attrs, Meta: i.Meta}
	if !i.Type().IsVoid() {
		id.Def = i.Name
	}
	if i.Loc != nil {
		line := i.Loc.Line
		id.Line = &line
		id.Col = i.Loc.Col
	}
	for _, s := range i.Succs {
		id.Succs = append(id.Succs, s.Name)
	}
	operands := i.Operands
	switch i.Op {
	case ir.OpAlloca:
		id.Type = i.Alloc.String()
		if n := i.ArraySize(); n != nil {
			s, err := encodeOperand(n)
			if err != nil {
				return nil, err
			}
			id.Count = s
		}
		operands = nil
	case ir.OpCall:
		s, err := encodeOperand(i.Callee)
		if err != nil {
			return nil, err
		}
		id.Callee = s
	case ir.OpCast:
		id.Kind = i.Kind
		id.Type = i.Type().String()
	case ir.OpBinary, ir.OpICmp:
		id.Kind = i.Kind
	}
	for _, v := range operands {
		s, err := encodeOperand(v)
		if err != nil {
			return nil, err
		}
		id.Args = append(id.Args, s)
	}
	return id, nil
}

func encodeOperand(v ir.Value) (string, error) {
	switch x := v.(type) {
	case *ir.Instr:
		return "%" + x.Name, nil
	case *ir.Param:
		return "%" + paramName(x), nil
	case *ir.Global:
		return "@" + x.Name, nil
	case *ir.Function:
		return "@" + x.Name, nil
	case *ir.Str:
		return x.Ident(), nil
	case *ir.Const, *ir.Null, *ir.Zero, *ir.Undef:
		return ir.Operand(v), nil
	}
	return "", fmt.Errorf("cannot encode operand %s", ir.Operand(v))
}

func encodeConst(v ir.Value) (*yaml.Node, error) {
	agg, ok := v.(*ir.Aggregate)
	if !ok {
		s, err := encodeOperand(v)
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}, nil
	}
	elems := &yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range agg.Elems {
		n, err := encodeConst(e)
		if err != nil {
			return nil, err
		}
		elems.Content = append(elems.Content, n)
	}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "elems"}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{key, elems}}, nil
}
