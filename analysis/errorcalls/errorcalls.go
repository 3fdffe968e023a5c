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

// Package errorcalls rewrites the calls that report a failed property. ReplaceAsserts turns the assertion
// failures of the C library into the error primitive of the verifier; RemoveErrorCalls drops the error reports,
// ending the path silently instead.
package errorcalls

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// ReplaceAsserts replaces the calls to the assert function of the config, __assert_fail by default, with calls
// to __VERIFIER_error. Only calls to an undefined assert function are replaced.
type ReplaceAsserts struct{}

func (ReplaceAsserts) Name() string { return config.PassReplaceAsserts }

func (ReplaceAsserts) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	name := ctx.Config.AssertFunction
	if name == "" {
		name = config.DefaultAssertFunction
	}
	handler := m.Function(name)
	if handler == nil || !handler.IsDeclaration() || handler.IsIntrinsic() {
		return false, nil
	}
	return replaceCalls(ctx, m, func(f *ir.Function) bool { return f == handler },
		func() (*ir.Function, []ir.Value, error) {
			fn, err := verifier.ErrorFunction(m)
			return fn, nil, err
		})
}

// RemoveErrorCalls replaces the calls to __VERIFIER_error and __assert_fail with __VERIFIER_assume(0), or with
// __VERIFIER_exit(0) when remove-error-calls-use-exit is set
type RemoveErrorCalls struct{}

func (RemoveErrorCalls) Name() string { return config.PassRemoveErrorCalls }

func (RemoveErrorCalls) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	isError := func(f *ir.Function) bool {
		return !f.IsIntrinsic() && (f.Name == verifier.Error || f.Name == config.DefaultAssertFunction)
	}
	return replaceCalls(ctx, m, isError, func() (*ir.Function, []ir.Value, error) {
		var fn *ir.Function
		var err error
		if ctx.Config.RemoveErrorCallsUseExit {
			fn, err = verifier.ExitFunction(m, true)
		} else {
			fn, err = verifier.AssumeFunction(m)
		}
		return fn, []ir.Value{ir.ConstInt(ir.I32, 0)}, err
	})
}

// replaceCalls replaces every direct call to a function matching callee by a call to the function returned by
// replacement, with its arguments. replacement is called once, on the first matching call.
func replaceCalls(ctx *transform.Context, m *ir.Module, callee func(*ir.Function) bool,
	replacement func() (*ir.Function, []ir.Value, error)) (bool, error) {
	var fn *ir.Function
	var args []ir.Value
	changed := false
	for _, f := range m.Defined() {
		if err := f.Materialize(); err != nil {
			return changed, fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
		}
		calls := f.CollectInstrs(func(i *ir.Instr) bool {
			c := i.CalledFunction()
			return c != nil && callee(c)
		})
		replaced := 0
		for _, call := range calls {
			if len(f.Uses(call)) > 0 {
				ctx.Skip(f.Name, "the result of the call to %s is used", call.Callee.Ident())
				continue
			}
			if fn == nil {
				var err error
				if fn, args, err = replacement(); err != nil {
					return changed, err
				}
			}
			repl := ir.InsertAfter(ir.NewCall(fn, append([]ir.Value(nil), args...), ""), call)
			repl.CopyMetadataFrom(call)
			ir.Erase(call)
			replaced++
		}
		if replaced > 0 {
			changed = true
			ctx.Effect(transform.EffectErrorCall, f.Name, "replaced %d calls with calls to %s", replaced, fn.Name)
		}
	}
	return changed, nil
}
