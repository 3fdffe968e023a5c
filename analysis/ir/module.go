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
	"errors"
	"fmt"
)

// Global is a module-level variable. Its value is a pointer to ValueType.
type Global struct {
	Name                  string
	ValueType             *Type
	Init                  Value
	Constant              bool
	ExternallyInitialized bool
	Linkage               Linkage
	module                *Module
}

func (g *Global) Type() *Type   { return PointerTo(g.ValueType) }
func (g *Global) Ident() string { return "@" + g.Name }

// HasInitializer returns true if the global is defined in this module
func (g *Global) HasInitializer() bool { return g.Init != nil }

// Module is the unit of transformation: an ordered set of globals and functions
type Module struct {
	Name      string
	Layout    DataLayout
	Functions []*Function
	Globals   []*Global

	funcs   map[string]*Function
	globals map[string]*Global
}

// NewModule returns an empty module for the given target layout
func NewModule(name string, layout DataLayout) *Module {
	return &Module{
		Name:    name,
		Layout:  layout,
		funcs:   map[string]*Function{},
		globals: map[string]*Global{},
	}
}

// Function returns the function called name, or nil
func (m *Module) Function(name string) *Function { return m.funcs[name] }

// Global returns the global called name, or nil
func (m *Module) Global(name string) *Global { return m.globals[name] }

// AddFunction adds a function with the given name and signature. It returns an error if a symbol with that
// name already exists.
func (m *Module) AddFunction(name string, sig *Type) (*Function, error) {
	if m.symbolExists(name) {
		return nil, fmt.Errorf("symbol @%s already defined", name)
	}
	f := &Function{Name: name, Sig: sig, module: m}
	for k, p := range sig.Params {
		f.Params = append(f.Params, &Param{Typ: p, Index: k, fn: f})
	}
	m.Functions = append(m.Functions, f)
	m.funcs[name] = f
	return f, nil
}

// GetOrInsertFunction returns the function called name, declaring it with signature sig when absent. The
// second result is false if a function with that name exists with a different signature.
func (m *Module) GetOrInsertFunction(name string, sig *Type) (*Function, bool) {
	if f := m.funcs[name]; f != nil {
		return f, f.Sig.Equal(sig)
	}
	f, err := m.AddFunction(name, sig)
	if err != nil {
		return nil, false
	}
	return f, true
}

// AddGlobal adds a global variable. The name is made unique in the module.
func (m *Module) AddGlobal(name string, valueType *Type) *Global {
	g := &Global{Name: m.UniqueName(name), ValueType: valueType, module: m}
	m.Globals = append(m.Globals, g)
	m.globals[g.Name] = g
	return g
}

// RenameGlobal changes the name of g, keeping it unique in the module. It returns the new name.
func (m *Module) RenameGlobal(g *Global, name string) string {
	delete(m.globals, g.Name)
	g.Name = m.UniqueName(name)
	m.globals[g.Name] = g
	return g.Name
}

// UniqueName returns name, suffixed with a number if a symbol with that name already exists
func (m *Module) UniqueName(name string) string {
	if !m.symbolExists(name) {
		return name
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s.%d", name, k)
		if !m.symbolExists(candidate) {
			return candidate
		}
	}
}

func (m *Module) symbolExists(name string) bool {
	return m.funcs[name] != nil || m.globals[name] != nil
}

// MaterializeAll reads the bodies of all lazily loaded functions. All errors are returned together.
func (m *Module) MaterializeAll() error {
	var errs []error
	for _, f := range m.Functions {
		if err := f.Materialize(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Defined returns the functions of the module that have a body
func (m *Module) Defined() []*Function {
	var res []*Function
	for _, f := range m.Functions {
		if !f.IsDeclaration() {
			res = append(res, f)
		}
	}
	return res
}

// ReplaceAllUses replaces every use of old by new in all function bodies and global initializers
func (m *Module) ReplaceAllUses(old, new Value) int {
	n := 0
	for _, f := range m.Functions {
		n += f.ReplaceAllUses(old, new)
	}
	for _, g := range m.Globals {
		if g.Init == nil {
			continue
		}
		if g.Init == old {
			g.Init = new
			n++
			continue
		}
		n += replaceInAggregate(g.Init, old, new)
	}
	return n
}

func replaceInAggregate(v Value, old, new Value) int {
	agg, ok := v.(*Aggregate)
	if !ok {
		return 0
	}
	n := 0
	for k, e := range agg.Elems {
		if e == old {
			agg.Elems[k] = new
			n++
		} else {
			n += replaceInAggregate(e, old, new)
		}
	}
	return n
}

// UsesOf returns every instruction of the module using v
func (m *Module) UsesOf(v Value) []*Instr {
	var res []*Instr
	for _, f := range m.Functions {
		res = append(res, f.Uses(v)...)
	}
	return res
}

// AdoptFunction registers a function built outside the module, e.g. by a reader
func (m *Module) AdoptFunction(f *Function) error {
	if m.symbolExists(f.Name) {
		return fmt.Errorf("symbol @%s already defined", f.Name)
	}
	f.module = m
	for _, p := range f.Params {
		p.fn = f
	}
	for _, b := range f.Blocks {
		b.fn = f
		for _, i := range b.Instrs {
			i.block = b
			f.register(i)
		}
	}
	m.Functions = append(m.Functions, f)
	m.funcs[f.Name] = f
	return nil
}

// AdoptGlobal registers a global built outside the module, keeping its name
func (m *Module) AdoptGlobal(g *Global) error {
	if m.symbolExists(g.Name) {
		return fmt.Errorf("symbol @%s already defined", g.Name)
	}
	g.module = m
	m.Globals = append(m.Globals, g)
	m.globals[g.Name] = g
	return nil
}
