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

// Package consdes makes the module constructors and destructors explicit. The functions listed in the
// llvm.global_ctors and llvm.global_dtors globals are called directly from main, so that the analyses of the
// instrumented module see them without knowing about the lists.
package consdes

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
	"golang.org/x/exp/slices"
)

// Names of the lists
const (
	CtorsList = "llvm.global_ctors"
	DtorsList = "llvm.global_dtors"
)

// ErrIndirectExit is returned in strict mode when the address of exit is taken
var ErrIndirectExit = errors.New("exit may be called indirectly")

// Entry is one element of a constructor or destructor list
type Entry struct {
	Priority int64
	Function *ir.Function
	// Data is the data pointer of the entry. It is not passed to the function.
	Data ir.Value
}

// ReadList returns the entries of the list stored in g, in list order. The initializer of g must be an array of
// {i32, void ()*, i8*} triples; entries that do not name a function are skipped with a warning.
func ReadList(ctx *transform.Context, g *ir.Global) ([]Entry, error) {
	if g == nil || g.Init == nil {
		return nil, nil
	}
	t := g.ValueType
	if !t.IsArray() {
		return nil, fmt.Errorf("@%s: unexpected type %s of list", g.Name, t)
	}
	if e := t.Elem; e.Kind != ir.StructKind || len(e.Fields) != 3 || !e.Fields[0].IsInt() ||
		!e.Fields[1].IsFuncPointer() || !e.Fields[2].IsPointer() {
		return nil, fmt.Errorf("@%s: unexpected type %s of list element", g.Name, e)
	}
	if _, isZero := g.Init.(*ir.Zero); isZero {
		return nil, nil
	}
	init, ok := g.Init.(*ir.Aggregate)
	if !ok {
		return nil, fmt.Errorf("@%s: unexpected initializer %s", g.Name, g.Init.Ident())
	}
	var entries []Entry
	for k, v := range init.Elems {
		elem, ok := v.(*ir.Aggregate)
		if !ok || len(elem.Elems) != 3 {
			return nil, fmt.Errorf("@%s: unexpected element %d of list", g.Name, k)
		}
		priority, ok := elem.Elems[0].(*ir.Const)
		if !ok {
			return nil, fmt.Errorf("@%s: priority of element %d is not a constant", g.Name, k)
		}
		fn, ok := elem.Elems[1].(*ir.Function)
		if !ok {
			ctx.Skip(g.Name, "element %d does not name a function", k)
			continue
		}
		if len(fn.Sig.Params) > 0 {
			ctx.Skip(g.Name, "element %d names %s, which takes arguments", k, fn.Name)
			continue
		}
		entries = append(entries, Entry{Priority: priority.Int, Function: fn, Data: elem.Elems[2]})
	}
	return entries, nil
}

// ExplicitConsdes inserts the calls of the constructors at the entry of main, in increasing priority order, and
// the calls of the destructors, in decreasing priority order, before every return of main and every direct call
// to exit. When the module declares __INSTR_mark_exit, destructors go before the call to it that precedes exit.
// The lists are then renamed with an _unused suffix.
//
// Exits through a function pointer are not handled: taking the address of exit is reported, and is an error
// when strict-indirect-exit is set.
type ExplicitConsdes struct{}

func (ExplicitConsdes) Name() string { return config.PassExplicitConsdes }

func (ExplicitConsdes) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	ctorsVar, dtorsVar := m.Global(CtorsList), m.Global(DtorsList)
	if ctorsVar == nil && dtorsVar == nil {
		return false, nil
	}
	ctors, err := ReadList(ctx, ctorsVar)
	if err != nil {
		return false, err
	}
	dtors, err := ReadList(ctx, dtorsVar)
	if err != nil {
		return false, err
	}
	slices.SortStableFunc(ctors, func(a, b Entry) bool { return a.Priority < b.Priority })
	slices.SortStableFunc(dtors, func(a, b Entry) bool { return a.Priority > b.Priority })

	if len(ctors)+len(dtors) > 0 {
		main, err := transform.Main(m)
		if err != nil {
			return false, err
		}
		if err := m.MaterializeAll(); err != nil {
			return false, fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
		}
		if err := checkIndirectExit(ctx, m); err != nil {
			return false, err
		}

		if len(ctors) > 0 {
			insertCalls(ctx, ctors, main.Entry().First())
			ctx.Effect(transform.EffectConsdes, main.Name, "inserted %d constructor calls", len(ctors))
		}
		if len(dtors) > 0 {
			points := exitPoints(m, main)
			for _, at := range points {
				insertCalls(ctx, dtors, at)
			}
			ctx.Effect(transform.EffectConsdes, main.Name, "inserted %d destructor calls before %d exit points",
				len(dtors), len(points))
		}
	}

	for _, g := range []*ir.Global{ctorsVar, dtorsVar} {
		if g != nil {
			m.RenameGlobal(g, g.Name+"_unused")
		}
	}
	return true, nil
}

// insertCalls calls the functions of entries in order, just before at
func insertCalls(ctx *transform.Context, entries []Entry, at *ir.Instr) {
	for _, e := range entries {
		ctx.Attach(at, ir.InsertBefore(ir.NewCall(e.Function, nil, ""), at))
	}
}

func isExit(f *ir.Function) bool {
	return f != nil && f.Name == verifier.LibcExit && len(f.Sig.Params) == 1 && f.Sig.Params[0].IsInt()
}

func isMarkExit(f *ir.Function) bool {
	return f != nil && f.Name == verifier.MarkExit && len(f.Sig.Params) == 0
}

// exitPoints returns the instructions before which the destructors are called: the returns of main, and the
// direct calls to exit or the mark preceding them
func exitPoints(m *ir.Module, main *ir.Function) []*ir.Instr {
	var points []*ir.Instr
	for _, b := range main.Blocks {
		if t := b.Terminator(); t != nil && t.Op == ir.OpRet {
			points = append(points, t)
		}
	}
	marked := m.Function(verifier.MarkExit) != nil
	for _, f := range m.Defined() {
		f.Instructions(func(i *ir.Instr) {
			if !isExit(i.CalledFunction()) {
				return
			}
			if !marked {
				points = append(points, i)
				return
			}
			if prev := i.Prev(); prev != nil && isMarkExit(prev.CalledFunction()) {
				points = append(points, prev)
			}
		})
	}
	return points
}

// checkIndirectExit reports the instructions that use exit other than by calling it
func checkIndirectExit(ctx *transform.Context, m *ir.Module) error {
	exit := m.Function(verifier.LibcExit)
	if !isExit(exit) {
		return nil
	}
	var err error
	for _, f := range m.Defined() {
		f.Instructions(func(i *ir.Instr) {
			for _, v := range i.Operands {
				if v != exit {
					continue
				}
				if ctx.Config.StrictIndirectExit {
					if err == nil {
						err = fmt.Errorf("%w: %s takes its address", ErrIndirectExit, f.Name)
					}
					return
				}
				ctx.Log.Warnf("indirect call of exit is possible in the program (%s)", f.Name)
				ctx.Effect(transform.EffectIndirectRisky, f.Name, "address of exit taken")
				return
			}
		})
	}
	return err
}
