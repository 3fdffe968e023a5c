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

// Package controlflow normalizes the control flow graphs of a module for the analyses that run on the
// instrumented program. Every pass of the package is idempotent.
//
//   - BreakInfiniteLoops gives every loop without an exit an exit edge that is never taken at runtime.
//   - BreakCritLoops splits the conditional branch of a block that is re-entered through a one-block detour.
//   - FlattenLoops merges a loop nested one level deep into its parent, guarded by a flag.
//   - FindExits makes every point where the program stops call an exit primitive.
//   - RemoveInfiniteLoops replaces the trivial cycles that do nothing by assume(0).
package controlflow

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/cfg"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
)

const (
	alwaysTrueName = "always_true"
	sinkName       = "inf.loop.exit"
)

// definedFunctions returns the functions of m with a body, reading the lazy ones
func definedFunctions(m *ir.Module) ([]*ir.Function, error) {
	funcs := m.Defined()
	for _, f := range funcs {
		if err := f.Materialize(); err != nil {
			return nil, fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
		}
	}
	return funcs, nil
}

// alwaysTrue returns the private constant global holding true, creating it on first use
func alwaysTrue(m *ir.Module) *ir.Global {
	if g := m.Global(alwaysTrueName); g != nil && g.Constant && g.ValueType.Equal(ir.I1) {
		if c, ok := g.Init.(*ir.Const); ok && c.Int == 1 {
			return g
		}
	}
	g := m.AddGlobal(alwaysTrueName, ir.I1)
	g.Linkage = ir.PrivateLinkage
	g.Constant = true
	g.Init = ir.ConstInt(ir.I1, 1)
	return g
}

// sink returns the block of f that only holds unreachable, creating it at the end of f on first use
func sink(f *ir.Function) *ir.Block {
	if b := f.BlockNamed(sinkName); b != nil && len(b.Instrs) == 1 && b.Instrs[0].Op == ir.OpUnreachable {
		return b
	}
	b := f.NewBlock(sinkName)
	b.Append(ir.NewUnreachable())
	return b
}

// firstLoop returns the first loop satisfying keep, inner loops first
func firstLoop(info *cfg.Info, keep func(*cfg.Loop) bool) *cfg.Loop {
	for _, l := range info.PostOrder() {
		if keep(l) {
			return l
		}
	}
	return nil
}
