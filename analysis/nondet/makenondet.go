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

package nondet

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/naming"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// MakeNondet lowers the typed generators of the verifier to requests. A call x = __VERIFIER_nondet_T() becomes
// a request on a new stack slot followed by a load of the slot. The memory returned by malloc and calloc is also
// made nondeterministic, right after the call.
//
// Requests are named <function>:<variable>:<line>. The variable is recovered from the source line of the call
// when the config gives the source file.
type MakeNondet struct{}

func (MakeNondet) Name() string { return config.PassMakeNondet }

type site struct {
	call  *ir.Instr
	alloc bool
}

func (p MakeNondet) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	var sites []site
	for _, f := range m.Defined() {
		if verifier.InNamespace(f.Name) {
			continue
		}
		if err := materialize(f); err != nil {
			return false, err
		}
		f.Instructions(func(i *ir.Instr) {
			callee := i.CalledFunction()
			switch {
			case callee == nil:
			case callee.Name == verifier.LibcMalloc || callee.Name == verifier.LibcCalloc:
				sites = append(sites, site{call: i, alloc: true})
			case strings.HasPrefix(callee.Name, verifier.NondetPrefix):
				sites = append(sites, site{call: i})
			}
		})
	}
	if len(sites) == 0 {
		return false, nil
	}
	if err := p.loadHint(ctx, sites); err != nil {
		return false, err
	}

	changed := false
	for _, s := range sites {
		var err error
		var done bool
		if s.alloc {
			done, err = p.requestAllocated(ctx, m, s.call)
		} else {
			done, err = p.replaceGenerator(ctx, m, s.call)
		}
		if err != nil {
			return changed, err
		}
		changed = changed || done
	}
	return changed, nil
}

// loadHint reads the source file named in the config, unless a hint is already set or no call has a location
func (p MakeNondet) loadHint(ctx *transform.Context, sites []site) error {
	if _, isNone := ctx.Hint.(naming.NoHint); !isNone || ctx.Config.SourceFile == "" {
		return nil
	}
	located := false
	for _, s := range sites {
		located = located || s.call.Loc != nil
	}
	if !located {
		return nil
	}
	hint, err := naming.ReadSourceLines(ctx.Config.SourceFile)
	if err != nil {
		return err
	}
	ctx.Hint = hint
	return nil
}

func line(i *ir.Instr) int {
	if i.Loc == nil {
		return 0
	}
	return i.Loc.Line
}

// replaceGenerator replaces the call to a generator by a load of a requested slot
func (p MakeNondet) replaceGenerator(ctx *transform.Context, m *ir.Module, call *ir.Instr) (bool, error) {
	f := call.Parent()
	t := call.Type()
	if t.IsVoid() || !t.IsSized() {
		ctx.Skip(call.Callee.Ident(), "cannot make a value of type %s nondeterministic in %s", t, f.Name)
		return false, nil
	}
	l := line(call)
	variable := ctx.Hint.VariableAt(l)
	name := ctx.Names.NextName(f, variable.ValueOr(naming.Placeholder), l)

	slot := ir.InsertBefore(ir.NewAlloca(t, ""), call)
	size, _ := transform.SizeOf(m, t)
	request, err := ctx.RequestNondet(m, call, call, slot, size, name)
	if err != nil {
		return false, err
	}
	load := ir.InsertAfter(ir.NewLoad(slot, variable.ValueOr("nondet")), request)
	ctx.Attach(call, slot, load)
	f.ReplaceAllUses(call, load)
	ir.Erase(call)
	return true, nil
}

// requestAllocated makes the memory returned by a call to malloc or calloc nondeterministic
func (p MakeNondet) requestAllocated(ctx *transform.Context, m *ir.Module, call *ir.Instr) (bool, error) {
	f := call.Parent()
	want := 1
	if call.Calls(verifier.LibcCalloc) {
		want = 2
	}
	if len(call.Operands) != want || !call.Type().IsPointer() {
		ctx.Skip(call.Callee.Ident(), "unexpected signature %s in %s", call.Callee.Type(), f.Name)
		return false, nil
	}
	next := call.Next()
	if next == nil {
		return false, fmt.Errorf("call to %s ends block of %s", call.Callee.Ident(), f.Name)
	}
	var inserted []*ir.Instr
	toSizeT := func(v ir.Value) ir.Value {
		if cast := ir.CastTo(v, m.Layout.SizeT(), ""); cast != nil {
			inserted = append(inserted, ir.InsertBefore(cast, next))
			return cast
		}
		return v
	}
	size := toSizeT(call.Operands[0])
	if want == 2 {
		mul := ir.InsertBefore(ir.NewBinary("mul", size, toSizeT(call.Operands[1]), ""), next)
		inserted = append(inserted, mul)
		size = mul
	}
	ctx.Attach(call, inserted...)

	l := line(call)
	role := ctx.Hint.VariableAt(l).ValueOr(naming.RoleDynAlloc)
	if _, err := ctx.RequestNondet(m, next, call, call, size, ctx.Names.NextName(f, role, l)); err != nil {
		return false, err
	}
	return true, nil
}
