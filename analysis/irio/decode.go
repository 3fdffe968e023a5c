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
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"gopkg.in/yaml.v3"
)

// Options controls how modules are read
type Options struct {
	// Lazy defers decoding function bodies until they are materialized
	Lazy bool
}

// ReadFile reads the module stored in filename
func ReadFile(filename string, opts Options) (*ir.Module, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read module file: %w", err)
	}
	m, err := Decode(b, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// Read reads a module from r
func Read(r io.Reader, opts Options) (*ir.Module, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("could not read module: %w", err)
	}
	return Decode(buf.Bytes(), opts)
}

// Decode builds a module from its YAML representation
func Decode(b []byte, opts Options) (*ir.Module, error) {
	var doc moduleDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("could not unmarshal module: %w", err)
	}
	layout := ir.DefaultLayout
	if doc.PointerBits > 0 {
		layout.PointerBits = doc.PointerBits
	}
	d := &decoder{m: ir.NewModule(doc.Name, layout), named: map[string]*ir.Type{}}
	if err := d.decodeTypes(&doc.Types); err != nil {
		return nil, err
	}

	inits := map[*ir.Global]*yaml.Node{}
	for k := range doc.Globals {
		gd := &doc.Globals[k]
		g, err := d.decodeGlobal(gd)
		if err != nil {
			return nil, err
		}
		if gd.Init.Kind != 0 {
			inits[g] = &gd.Init
		}
	}

	// bodies may call functions declared further down the file
	funcs := make([]*ir.Function, len(doc.Functions))
	for k := range doc.Functions {
		f, err := d.declareFunction(&doc.Functions[k])
		if err != nil {
			return nil, err
		}
		funcs[k] = f
	}
	for k, f := range funcs {
		if doc.Functions[k].Blocks.Kind == 0 {
			continue
		}
		body := doc.Functions[k].Blocks
		if opts.Lazy {
			f.SetLazyBody(func(f *ir.Function) error { return d.decodeBody(f, &body) })
		} else if err := d.decodeBody(f, &body); err != nil {
			return nil, fmt.Errorf("function %s: %w", f.Name, err)
		}
	}

	// initializers may refer to functions, e.g. constructor lists
	for _, g := range d.m.Globals {
		node, ok := inits[g]
		if !ok {
			continue
		}
		v, err := d.decodeConst(node, g.ValueType)
		if err != nil {
			return nil, fmt.Errorf("initializer of @%s: %w", g.Name, err)
		}
		g.Init = v
	}
	return d.m, nil
}

type decoder struct {
	m     *ir.Module
	named map[string]*ir.Type
}

func (d *decoder) parseType(s string) (*ir.Type, error) {
	return ir.ParseType(s, d.named)
}

func (d *decoder) decodeTypes(node *yaml.Node) error {
	switch node.Kind {
	case 0:
		return nil
	case yaml.MappingNode:
		for k := 0; k+1 < len(node.Content); k += 2 {
			t, err := d.parseType(node.Content[k+1].Value)
			if err != nil {
				return fmt.Errorf("named type %s: %w", node.Content[k].Value, err)
			}
			d.named[node.Content[k].Value] = t
		}
		return nil
	}
	return fmt.Errorf("line %d: types must be a mapping from names to types", node.Line)
}

func (d *decoder) decodeGlobal(gd *globalDoc) (*ir.Global, error) {
	t, err := d.parseType(gd.Type)
	if err != nil {
		return nil, fmt.Errorf("global %s: %w", gd.Name, err)
	}
	linkage, err := ir.ParseLinkage(gd.Linkage)
	if err != nil {
		return nil, fmt.Errorf("global %s: %w", gd.Name, err)
	}
	g := &ir.Global{
		Name:                  gd.Name,
		ValueType:             t,
		Constant:              gd.Constant,
		ExternallyInitialized: gd.ExternallyInitialized,
		Linkage:               linkage,
	}
	if err := d.m.AdoptGlobal(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (d *decoder) declareFunction(fd *functionDoc) (*ir.Function, error) {
	sig, err := d.parseType(fd.Type)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", fd.Name, err)
	}
	if !sig.IsFunc() {
		return nil, fmt.Errorf("function %s: %s is not a function type", fd.Name, sig)
	}
	f, err := d.m.AddFunction(fd.Name, sig)
	if err != nil {
		return nil, err
	}
	if len(fd.Params) > 0 && len(fd.Params) != len(sig.Params) {
		return nil, fmt.Errorf("function %s: %d parameter names for %d parameters", fd.Name, len(fd.Params),
			len(sig.Params))
	}
	for k, name := range fd.Params {
		f.Params[k].Name = name
	}
	if f.Linkage, err = ir.ParseLinkage(fd.Linkage); err != nil {
		return nil, fmt.Errorf("function %s: %w", fd.Name, err)
	}
	f.Attrs = fd.Attrs
	if fd.Subprogram != nil {
		f.Subprogram = &ir.Subprogram{
			Name:      fd.Name,
			File:      fd.Subprogram.File,
			Line:      fd.Subprogram.Line,
			ScopeLine: fd.Subprogram.ScopeLine,
		}
		if f.Subprogram.ScopeLine == 0 {
			f.Subprogram.ScopeLine = f.Subprogram.Line
		}
	}
	return f, nil
}

func (d *decoder) decodeConst(node *yaml.Node, expected *ir.Type) (ir.Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return d.operand(node.Value, expected, nil)
	case yaml.MappingNode:
		var agg aggregateDoc
		if err := node.Decode(&agg); err != nil {
			return nil, err
		}
		var elemTypes []*ir.Type
		switch {
		case expected.IsArray():
			for k := 0; k < expected.Len; k++ {
				elemTypes = append(elemTypes, expected.Elem)
			}
		case expected != nil && expected.Kind == ir.StructKind:
			elemTypes = expected.Fields
		default:
			return nil, fmt.Errorf("line %d: aggregate initializer for %s", node.Line, expected)
		}
		if len(agg.Elems) != len(elemTypes) {
			return nil, fmt.Errorf("line %d: %d elements for %s", node.Line, len(agg.Elems), expected)
		}
		res := &ir.Aggregate{Typ: expected}
		for k := range agg.Elems {
			v, err := d.decodeConst(&agg.Elems[k], elemTypes[k])
			if err != nil {
				return nil, err
			}
			res.Elems = append(res.Elems, v)
		}
		return res, nil
	}
	return nil, fmt.Errorf("line %d: invalid constant", node.Line)
}

func (d *decoder) decodeBody(f *ir.Function, node *yaml.Node) (err error) {
	var blocks []blockDoc
	if err := node.Decode(&blocks); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Blocks = nil
		}
	}()
	byName := map[string]*ir.Block{}
	for _, bd := range blocks {
		if byName[bd.Name] != nil {
			return fmt.Errorf("duplicate block %s", bd.Name)
		}
		byName[bd.Name] = f.NewBlock(bd.Name)
	}
	locals := map[string]ir.Value{}
	for _, p := range f.Params {
		if p.Name != "" {
			locals[p.Name] = p
		}
	}
	for _, bd := range blocks {
		b := byName[bd.Name]
		for k := range bd.Instrs {
			id := &bd.Instrs[k]
			instr, err := d.decodeInstr(f, locals, byName, id)
			if err != nil {
				return fmt.Errorf("%s, instruction %d (%s): %w", bd.Name, k, id.Op, err)
			}
			if id.Line != nil {
				instr.Loc = &ir.DebugLoc{Line: *id.Line, Col: id.Col, Scope: f.Subprogram}
			}
			b.Append(instr)
			if id.Def != "" && !instr.Type().IsVoid() {
				if locals[id.Def] != nil {
					return fmt.Errorf("%%%s defined twice", id.Def)
				}
				locals[id.Def] = instr
			}
		}
	}
	return nil
}

func (d *decoder) decodeInstr(f *ir.Function, locals map[string]ir.Value, blocks map[string]*ir.Block,
	id *instrDoc) (*ir.Instr, error) {
	op, ok := ir.ParseOpcode(id.Op)
	if !ok {
		return nil, fmt.Errorf("unknown opcode")
	}
	arg := func(k int, expected *ir.Type) (ir.Value, error) {
		if k >= len(id.Args) {
			return nil, fmt.Errorf("missing operand %d", k)
		}
		return d.operand(id.Args[k], expected, locals)
	}
	succ := func(k int) (*ir.Block, error) {
		if k >= len(id.Succs) {
			return nil, fmt.Errorf("missing successor %d", k)
		}
		b := blocks[id.Succs[k]]
		if b == nil {
			return nil, fmt.Errorf("unknown block %s", id.Succs[k])
		}
		return b, nil
	}
	var declared *ir.Type
	if id.Type != "" {
		t, err := d.parseType(id.Type)
		if err != nil {
			return nil, err
		}
		declared = t
	}

	var instr *ir.Instr
	switch op {
	case ir.OpAlloca:
		if declared == nil {
			return nil, fmt.Errorf("alloca needs a type")
		}
		if id.Count == "" {
			instr = ir.NewAlloca(declared, id.Def)
			break
		}
		count, err := d.operand(id.Count, ir.I64, locals)
		if err != nil {
			return nil, err
		}
		instr = ir.NewArrayAlloca(declared, count, id.Def)
	case ir.OpLoad:
		ptr, err := arg(0, nil)
		if err != nil {
			return nil, err
		}
		if !ptr.Type().IsPointer() {
			return nil, fmt.Errorf("load from non-pointer %s", ptr.Ident())
		}
		instr = ir.NewLoad(ptr, id.Def)
	case ir.OpStore:
		ptr, err := arg(1, nil)
		if err != nil {
			return nil, err
		}
		if !ptr.Type().IsPointer() {
			return nil, fmt.Errorf("store to non-pointer %s", ptr.Ident())
		}
		val, err := arg(0, ptr.Type().Elem)
		if err != nil {
			return nil, err
		}
		instr = ir.NewStore(val, ptr)
	case ir.OpCall:
		callee, err := d.operand(id.Callee, nil, locals)
		if err != nil {
			return nil, err
		}
		if !callee.Type().IsFuncPointer() {
			return nil, fmt.Errorf("callee %s is not a function", callee.Ident())
		}
		params := callee.Type().Elem.Params
		var args []ir.Value
		for k := range id.Args {
			var expected *ir.Type
			if k < len(params) {
				expected = params[k]
			}
			a, err := arg(k, expected)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		instr = ir.NewCall(callee, args, id.Def)
	case ir.OpCast:
		if declared == nil || id.Kind == "" {
			return nil, fmt.Errorf("cast needs a kind and a type")
		}
		v, err := arg(0, nil)
		if err != nil {
			return nil, err
		}
		instr = ir.NewCast(id.Kind, v, declared, id.Def)
	case ir.OpBinary, ir.OpICmp:
		if id.Kind == "" {
			return nil, fmt.Errorf("%s needs a kind", op)
		}
		x, err := arg(0, declared)
		if err != nil {
			return nil, err
		}
		y, err := arg(1, x.Type())
		if err != nil {
			return nil, err
		}
		if op == ir.OpBinary {
			instr = ir.NewBinary(id.Kind, x, y, id.Def)
		} else {
			instr = ir.NewICmp(id.Kind, x, y, id.Def)
		}
	case ir.OpBr:
		target, err := succ(0)
		if err != nil {
			return nil, err
		}
		instr = ir.NewBr(target)
	case ir.OpCondBr:
		cond, err := arg(0, ir.I1)
		if err != nil {
			return nil, err
		}
		ifTrue, err := succ(0)
		if err != nil {
			return nil, err
		}
		ifFalse, err := succ(1)
		if err != nil {
			return nil, err
		}
		instr = ir.NewCondBr(cond, ifTrue, ifFalse)
	case ir.OpRet:
		var v ir.Value
		if len(id.Args) > 0 {
			var err error
			if v, err = arg(0, f.ReturnType()); err != nil {
				return nil, err
			}
		}
		instr = ir.NewRet(v)
	case ir.OpUnreachable:
		instr = ir.NewUnreachable()
	}
	instr.Attrs = id.Attrs
	instr.Meta = id.Meta
	return instr, nil
}

// operand decodes the textual form of a value. expected is the type of untyped literals and may be nil.
func (d *decoder) operand(s string, expected *ir.Type, locals map[string]ir.Value) (ir.Value, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, fmt.Errorf("empty operand")
	case strings.HasPrefix(s, "%"):
		if v := locals[s[1:]]; v != nil {
			return v, nil
		}
		return nil, fmt.Errorf("undefined local %s", s)
	case strings.HasPrefix(s, "@"):
		if g := d.m.Global(s[1:]); g != nil {
			return g, nil
		}
		if f := d.m.Function(s[1:]); f != nil {
			return f, nil
		}
		return nil, fmt.Errorf("undefined symbol %s", s)
	case strings.HasPrefix(s, `c"`):
		text, err := strconv.Unquote(s[1:])
		if err != nil {
			return nil, fmt.Errorf("bad string %s: %w", s, err)
		}
		return &ir.Str{Text: text}, nil
	}
	if k := strings.Index(s, ` c"`); k >= 0 {
		return d.operand(s[k+1:], nil, locals)
	}

	typ, lit := expected, s
	if k := strings.LastIndex(s, " "); k > 0 {
		t, err := d.parseType(s[:k])
		if err != nil {
			return nil, err
		}
		typ, lit = t, s[k+1:]
	}
	if strings.HasPrefix(lit, "%") || strings.HasPrefix(lit, "@") {
		return d.operand(lit, nil, locals)
	}
	if typ == nil {
		return nil, fmt.Errorf("untyped literal %s", s)
	}
	switch lit {
	case "null":
		if !typ.IsPointer() {
			return nil, fmt.Errorf("null of non-pointer type %s", typ)
		}
		return &ir.Null{Typ: typ}, nil
	case "zeroinitializer":
		return &ir.Zero{Typ: typ}, nil
	case "undef":
		return &ir.Undef{Typ: typ}, nil
	case "true", "false":
		if !typ.IsInt() {
			return nil, fmt.Errorf("boolean literal of type %s", typ)
		}
		v := int64(0)
		if lit == "true" {
			v = 1
		}
		return ir.ConstInt(typ, v), nil
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad literal %s", s)
	}
	if !typ.IsInt() {
		return nil, fmt.Errorf("integer literal of type %s", typ)
	}
	return ir.ConstInt(typ, n), nil
}
