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

package controlflow

import (
	"github.com/awslabs/ar-go-vprep/analysis/cfg"
	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// BreakInfiniteLoops turns every loop without exit edges into a loop guarded by a load of a constant true
// global. A new block placed before the header branches to the header when the load is true and to the
// unreachable sink of the function otherwise. All edges to the old header go to the new block, which becomes
// the header of the loop.
type BreakInfiniteLoops struct{}

func (BreakInfiniteLoops) Name() string { return config.PassBreakInfiniteLoops }

func (BreakInfiniteLoops) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	funcs, err := definedFunctions(m)
	if err != nil {
		return false, err
	}
	changed := false
	for _, f := range funcs {
		// each iteration gives one loop an exit and creates no loop
		for {
			l := firstLoop(cfg.Analyze(f), func(l *cfg.Loop) bool { return len(l.Exits) == 0 })
			if l == nil {
				break
			}
			breakLoop(ctx, m, l)
			changed = true
		}
	}
	return changed, nil
}

func breakLoop(ctx *transform.Context, m *ir.Module, l *cfg.Loop) {
	header := l.Header
	f := header.Parent()
	preds := header.Predecessors()
	exit := sink(f)

	guard := f.InsertBlockBefore("break.inf.loop", header)
	cond := guard.Append(ir.NewLoad(alwaysTrue(m), "always_true"))
	br := guard.Append(ir.NewCondBr(cond, header, exit))
	for _, p := range preds {
		p.ReplaceSuccessor(header, guard)
	}
	ctx.Attach(header.Terminator(), cond, br)
	ctx.Effect(transform.EffectLoopBroken, f.Name, "broke infinite loop at %s", header.Name)
}

// RemoveInfiniteLoops replaces the blocks that can only run forever doing nothing by a call to assume(0)
// followed by unreachable. Such a block starts a chain of unconditional jumps that ends in a cycle, and no block
// of the chain writes memory, calls a function or returns.
type RemoveInfiniteLoops struct{}

func (RemoveInfiniteLoops) Name() string { return config.PassRemoveInfiniteLoops }

func (RemoveInfiniteLoops) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	funcs, err := definedFunctions(m)
	if err != nil {
		return false, err
	}
	changed := false
	for _, f := range funcs {
		var trivial []*ir.Block
		for _, b := range f.Blocks {
			if isTrivialLoop(b) {
				trivial = append(trivial, b)
			}
		}
		if len(trivial) == 0 {
			continue
		}
		assume, err := verifier.AssumeFunction(m)
		if err != nil {
			return changed, err
		}
		for _, b := range trivial {
			first := b.First()
			term := b.Terminator()
			call := ir.InsertBefore(ir.NewCall(assume, []ir.Value{ir.ConstInt(ir.I32, 0)}, ""), term)
			ctx.Attach(first, call)
			unreachable := ir.InsertBefore(ir.NewUnreachable(), term)
			unreachable.Loc = term.Loc
			ir.Erase(term)
		}
		changed = true
		ctx.Effect(transform.EffectLoopRemoved, f.Name, "removed %d infinite loop blocks", len(trivial))
	}
	return changed, nil
}

func isTrivialLoop(b *ir.Block) bool {
	visited := map[*ir.Block]bool{}
	for cur := b; cur != nil; cur = cur.UniqueSuccessor() {
		if visited[cur] {
			return true
		}
		visited[cur] = true
		for _, i := range cur.Instrs {
			switch i.Op {
			case ir.OpStore, ir.OpCall, ir.OpRet:
				return false
			}
		}
	}
	return false
}
