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

// Package transform defines the interface of the module transformations and the context they share during a
// pipeline run.
//
// A Context replaces every piece of state that would otherwise be global: the allocator of request names and
// identifiers, the cache of per-type nondeterministic globals, the logger and the report of effects. A pass owns
// the module for the whole duration of its Run.
package transform

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/metadata"
	"github.com/awslabs/ar-go-vprep/analysis/naming"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

var (
	// ErrMissingMain is returned by passes that insert code at the entry of the program when the module has no
	// main function
	ErrMissingMain = errors.New("module has no main function")

	// ErrMaterialize is returned when the bodies of lazily loaded functions cannot be read
	ErrMaterialize = errors.New("cannot load module")
)

// Pass is a transformation of a whole module. Run returns true if it changed the module. An error aborts the
// pipeline.
type Pass interface {
	Name() string
	Run(ctx *Context, m *ir.Module) (bool, error)
}

// Context is the state shared by the passes of one pipeline run
type Context struct {
	Config *config.Config
	Log    *config.LogGroup

	// Names allocates the names and identifiers of nondeterministic value requests
	Names *naming.Allocator

	// Hint recovers source variable names for the requests of make-nondet
	Hint naming.NameHint

	Report *Report

	pass          string
	nondetGlobals map[string]*ir.Global
}

// NewContext returns a context for transforming m. The name hint is NoHint; set Hint to use a source file.
func NewContext(cfg *config.Config, log *config.LogGroup, m *ir.Module) *Context {
	return &Context{
		Config:        cfg,
		Log:           log,
		Names:         naming.NewAllocator(m),
		Hint:          naming.NoHint{},
		Report:        &Report{Module: m.Name},
		nondetGlobals: map[string]*ir.Global{},
	}
}

// Run runs pass on m, recording its effects under its name
func (c *Context) Run(pass Pass, m *ir.Module) (bool, error) {
	c.pass = pass.Name()
	defer func() { c.pass = "" }()
	c.Names.Reseed(m)
	c.Log.Debugf("running %s", pass.Name())
	changed, err := pass.Run(c, m)
	if err != nil {
		return changed, fmt.Errorf("%s: %w", pass.Name(), err)
	}
	c.Report.Passes = append(c.Report.Passes, PassResult{Name: pass.Name(), Changed: changed})
	return changed, nil
}

// Attach gives locations to the inserted instructions from src, warning about those that cannot get one
func (c *Context) Attach(src *ir.Instr, inserted ...*ir.Instr) {
	for _, i := range inserted {
		if i == nil {
			continue
		}
		if !metadata.Attach(src, i) {
			c.Log.Warnf("no debug location for inserted %s in %s", i.Op, functionName(i))
		}
	}
}

func functionName(i *ir.Instr) string {
	if f := i.Parent(); f != nil {
		return f.Name
	}
	return "<detached>"
}

// Main returns the main function of m, reading its body if needed. It returns ErrMissingMain if m has no main
// function with a body.
func Main(m *ir.Module) (*ir.Function, error) {
	main := m.Function(verifier.Main)
	if main == nil || main.IsDeclaration() {
		return nil, ErrMissingMain
	}
	if err := main.Materialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMaterialize, err)
	}
	if len(main.Blocks) == 0 || len(main.Entry().Instrs) == 0 {
		return nil, ErrMissingMain
	}
	return main, nil
}

// SizeOf returns the allocation size of t as a size_t constant. The second result is false for unsized types.
func SizeOf(m *ir.Module, t *ir.Type) (ir.Value, bool) {
	size, ok := m.Layout.AllocSize(t)
	if !ok {
		return nil, false
	}
	return ir.ConstInt(m.Layout.SizeT(), int64(size)), true
}

// RequestNondet inserts before at a request making the size bytes at ptr nondeterministic. ptr is cast to i8*
// when needed and size is converted to size_t. The inserted instructions get their location from src, unless src
// is nil. It returns the call.
func (c *Context) RequestNondet(m *ir.Module, at, src *ir.Instr, ptr, size ir.Value, name string) (*ir.Instr,
	error) {
	fn, err := verifier.NondetFunction(m)
	if err != nil {
		return nil, err
	}
	var inserted []*ir.Instr
	if cast := ir.CastTo(ptr, ir.I8P, ""); cast != nil {
		ptr = ir.InsertBefore(cast, at)
		inserted = append(inserted, cast)
	}
	if cast := ir.CastTo(size, m.Layout.SizeT(), ""); cast != nil {
		size = ir.InsertBefore(cast, at)
		inserted = append(inserted, cast)
	}
	args := []ir.Value{ptr, size, &ir.Str{Text: name}, ir.ConstInt(ir.I32, c.Names.NextID())}
	call := ir.InsertBefore(ir.NewCall(fn, args, ""), at)
	if src != nil {
		c.Attach(src, append(inserted, call)...)
	}
	return call, nil
}

// NondetGlobal returns the private global of type t that is made nondeterministic at the entry of main. The
// global is created on first use; later calls with an equal type return the same global.
func (c *Context) NondetGlobal(m *ir.Module, t *ir.Type) (*ir.Global, error) {
	key := t.String()
	if g := c.nondetGlobals[key]; g != nil && m.Global(g.Name) == g {
		return g, nil
	}
	size, ok := SizeOf(m, t)
	if !ok {
		return nil, fmt.Errorf("type %s has no size", t)
	}
	main, err := Main(m)
	if err != nil {
		return nil, err
	}
	g := m.AddGlobal("nondet_gl", t)
	g.Linkage = ir.PrivateLinkage
	g.Init = ir.ZeroValue(t)
	first := main.Entry().First()
	if _, err := c.RequestNondet(m, first, first, g, size, "nondet"); err != nil {
		return nil, err
	}
	c.nondetGlobals[key] = g
	return g, nil
}

// Redirect replaces call by a call to the function called name, declared with the signature of the call site.
// The arguments, attributes, metadata and location of call are copied. It returns the new call.
func Redirect(m *ir.Module, call *ir.Instr, name string) (*ir.Instr, error) {
	f := call.Parent()
	if f == nil {
		return nil, fmt.Errorf("call to %s is not in a function", call.Callee.Ident())
	}
	params := make([]*ir.Type, len(call.Operands))
	for k, a := range call.Operands {
		params[k] = a.Type()
	}
	fn, err := verifier.Declare(m, name, ir.FuncOf(call.Type(), params...), false)
	if err != nil {
		return nil, err
	}
	replacement := ir.NewCall(fn, append([]ir.Value(nil), call.Operands...), "")
	replacement.Attrs = append([]string(nil), call.Attrs...)
	replacement.CopyMetadataFrom(call)
	ir.InsertBefore(replacement, call)
	f.ReplaceAllUses(call, replacement)
	ir.Erase(call)
	// the name is free once the original call is gone
	replacement.Name = call.Name
	return replacement, nil
}
