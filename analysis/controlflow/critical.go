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
	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
)

// BreakCritLoops moves the conditional branch of a block B into a block of its own when a successor of B jumps
// straight back to B. The looping edge then enters B, while the decision happens in the split block.
type BreakCritLoops struct{}

func (BreakCritLoops) Name() string { return config.PassBreakCritLoops }

func (BreakCritLoops) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	funcs, err := definedFunctions(m)
	if err != nil {
		return false, err
	}
	changed := false
	for _, f := range funcs {
		var toSplit []*ir.Block
		for _, b := range f.Blocks {
			if reentersThroughSuccessor(b) {
				toSplit = append(toSplit, b)
			}
		}
		for _, b := range toSplit {
			ir.SplitBlock(b.Terminator(), "crit.blk.split")
			term := b.Terminator()
			ctx.Attach(term, term)
			ctx.Effect(transform.EffectSplit, f.Name, "split a basic block")
		}
		changed = changed || len(toSplit) > 0
	}
	return changed, nil
}

// reentersThroughSuccessor returns true if b has more than its terminator, ends in a conditional branch, and
// has a successor whose only successor is b
func reentersThroughSuccessor(b *ir.Block) bool {
	term := b.Terminator()
	if len(b.Instrs) <= 1 || term == nil || term.Op != ir.OpCondBr {
		return false
	}
	for _, s := range term.Succs {
		if s.UniqueSuccessor() == b {
			return true
		}
	}
	return false
}
