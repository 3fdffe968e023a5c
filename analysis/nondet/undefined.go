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

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/naming"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// DeleteUndefined closes the module over its undefined functions. An undefined function returning a value gets
// a body returning a nondeterministic value, or zero if Nosym is set, and becomes internal. Calls to undefined
// functions returning nothing are removed. Intrinsics, runtime primitives and the functions of the leave-alone
// list are not touched, and neither are indirect calls.
type DeleteUndefined struct {
	Nosym bool
}

func (p DeleteUndefined) Name() string {
	if p.Nosym {
		return config.PassDeleteUndefinedNosym
	}
	return config.PassDeleteUndefined
}

// Run loads the whole module first and fails with ErrMaterialize, without any change, if that is not possible
func (p DeleteUndefined) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	if err := m.MaterializeAll(); err != nil {
		return false, fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
	}
	changed := false
	removed := map[*ir.Function]bool{}
	// definitions are appended to the function list, so iterate over a snapshot
	for _, f := range append([]*ir.Function(nil), m.Functions...) {
		if f.IsIntrinsic() || verifier.IsLeftAlone(f.Name, ctx.Config.LeaveAlone) {
			continue
		}
		if f.IsDeclaration() {
			if f.ReturnType().IsVoid() {
				continue
			}
			ok, err := p.define(ctx, m, f)
			if err != nil {
				return changed, err
			}
			changed = changed || ok
			continue
		}
		if p.removeCalls(ctx, f, removed) {
			changed = true
		}
	}
	return changed, nil
}

// define gives a body to the undefined function f. It returns false if f was skipped.
func (p DeleteUndefined) define(ctx *transform.Context, m *ir.Module, f *ir.Function) (bool, error) {
	t := f.ReturnType()
	if !p.Nosym && !t.IsSized() {
		ctx.Skip(f.Name, "cannot return a nondeterministic value of unsized type %s", t)
		return false, nil
	}
	entry := f.NewBlock("entry")
	returned := "nondeterministic value"
	if p.Nosym {
		returned = "zero"
		ret := entry.Append(ir.NewRet(ir.ZeroValue(t)))
		ctx.Attach(ret, ret)
	} else {
		slot := entry.Append(ir.NewAlloca(t, ""))
		load := entry.Append(ir.NewLoad(slot, "undefret"))
		ret := entry.Append(ir.NewRet(load))
		ctx.Attach(load, slot, load, ret)
		size, _ := transform.SizeOf(m, t)
		name := ctx.Names.NextName(f, naming.RoleUndefinedFun, 0)
		if _, err := ctx.RequestNondet(m, load, load, slot, size, name); err != nil {
			return false, err
		}
	}
	f.Linkage = ir.InternalLinkage
	ctx.Effect(transform.EffectDefined, f.Name, "defined function returning a %s", returned)
	return true, nil
}

// removeCalls erases the calls of f to undefined functions returning nothing. removed holds the callees whose
// calls were already reported.
func (p DeleteUndefined) removeCalls(ctx *transform.Context, f *ir.Function, removed map[*ir.Function]bool) bool {
	calls := f.CollectInstrs(func(i *ir.Instr) bool {
		callee := i.CalledFunction()
		return callee != nil &&
			callee.IsDeclaration() &&
			callee.ReturnType().IsVoid() &&
			!callee.IsIntrinsic() &&
			!verifier.IsLeftAlone(callee.Name, ctx.Config.LeaveAlone)
	})
	for _, call := range calls {
		callee := call.CalledFunction()
		if !removed[callee] {
			removed[callee] = true
			ctx.Effect(transform.EffectRemovedCalls, callee.Name, "removed calls (function is undefined)")
		}
		ir.Erase(call)
	}
	return len(calls) > 0
}
