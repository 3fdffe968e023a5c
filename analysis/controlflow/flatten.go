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
)

// FlattenLoops merges nested loops into single loops. One application takes an innermost loop L nested in a
// loop P and gives both a common header that tests an i8 stack flag:
//
//	flatten.loop.init:   flag = 0; br flatten.loop.header
//	flatten.loop.header: if flag == 1 goto header(L) else goto header(P)
//
// Edges entering L from P set the flag to 1, the edges leaving L clear it, and every back edge of L and P goes
// to the common header. Applications are repeated until no function has nested loops, or until the
// max-flatten-iterations bound of the config is reached.
type FlattenLoops struct{}

func (FlattenLoops) Name() string { return config.PassFlattenLoops }

func (FlattenLoops) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	funcs, err := definedFunctions(m)
	if err != nil {
		return false, err
	}
	bound := ctx.Config.MaxFlattenIterations
	if bound <= 0 {
		bound = config.DefaultMaxFlattenIterations
	}
	changed := false
	for _, f := range funcs {
		for k := 0; ; k++ {
			inner := firstLoop(cfg.Analyze(f), func(l *cfg.Loop) bool { return l.Parent != nil })
			if inner == nil {
				break
			}
			if k == bound {
				ctx.Log.Warnf("%s still has nested loops after %d flattenings", f.Name, bound)
				break
			}
			flatten(ctx, f, inner)
			changed = true
		}
	}
	return changed, nil
}

func flatten(ctx *transform.Context, f *ir.Function, inner *cfg.Loop) {
	outer := inner.Parent
	innerHeader, outerHeader := inner.Header, outer.Header
	exits := inner.Exits
	innerPreds := innerHeader.Predecessors()

	start := f.InsertBlockBefore("flatten.loop.init", outerHeader)
	header := f.InsertBlockBefore("flatten.loop.header", outerHeader)
	flag := f.Entry().InsertFirst(ir.NewAlloca(ir.I8, "inner"))
	src := outerHeader.First()
	ctx.Attach(src, flag)

	setFlag := func(b *ir.Block, v int64, to *ir.Block, src *ir.Instr) {
		store := b.Append(ir.NewStore(ir.ConstInt(ir.I8, v), flag))
		br := b.Append(ir.NewBr(to))
		ctx.Attach(src, store, br)
	}
	setFlag(start, 0, header, src)
	load := header.Append(ir.NewLoad(flag, "innerval"))
	isInner := header.Append(ir.NewICmp("eq", load, ir.ConstInt(ir.I8, 1), "isinner"))
	br := header.Append(ir.NewCondBr(isInner, innerHeader, outerHeader))
	ctx.Attach(src, load, isInner, br)

	// leaving the inner loop clears the flag
	cleared := map[*ir.Block]bool{}
	done := map[cfg.Edge]bool{}
	for _, e := range exits {
		if done[e] {
			continue
		}
		done[e] = true
		b := f.InsertBlockBefore("flatten.exit", e.To)
		setFlag(b, 0, e.To, e.From.Terminator())
		e.From.ReplaceSuccessor(e.To, b)
		cleared[b] = true
	}

	// entering it sets the flag, the back edges go to the common header
	for _, p := range innerPreds {
		if inner.Contains(p) {
			p.ReplaceSuccessor(innerHeader, header)
			continue
		}
		b := f.InsertBlockBefore("flatten.enter", innerHeader)
		setFlag(b, 1, header, p.Terminator())
		p.ReplaceSuccessor(innerHeader, b)
	}

	// the outer loop is entered through the flag initialization
	for _, p := range outerHeader.Predecessors() {
		switch {
		case p == header:
		case outer.Contains(p) || cleared[p]:
			p.ReplaceSuccessor(outerHeader, header)
		default:
			p.ReplaceSuccessor(outerHeader, start)
		}
	}
	ctx.Effect(transform.EffectFlattened, f.Name, "flattened loop at %s into loop at %s", innerHeader.Name,
		outerHeader.Name)
}
