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

// Package cfg computes the dominator tree and the natural loops of a function.
package cfg

import (
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/internal/graphutil"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
	"gonum.org/v1/gonum/graph/flow"
)

// Edge is a control flow edge
type Edge struct {
	From *ir.Block
	To   *ir.Block
}

// Loop is a natural loop: the header dominates every block of the body, and the body is the set of blocks
// that reach a back edge to the header without going through the header.
type Loop struct {
	Header *ir.Block

	// Latches are the sources of the back edges to the header
	Latches []*ir.Block

	// Exits are the edges from a block of the loop to a block outside of the loop
	Exits []Edge

	Parent   *Loop
	Children []*Loop

	body intsets.Sparse
	info *Info
	node *graphutil.Tree[*Loop]
}

// Contains returns true if b is part of the loop body
func (l *Loop) Contains(b *ir.Block) bool {
	i, ok := l.info.Graph.Index[b]
	return ok && l.body.Has(i)
}

// Blocks returns the blocks of the loop in function layout order
func (l *Loop) Blocks() []*ir.Block {
	var res []*ir.Block
	for _, i := range l.body.AppendTo(nil) {
		res = append(res, l.info.Graph.Blocks[i])
	}
	return res
}

// Size returns the number of blocks of the loop
func (l *Loop) Size() int { return l.body.Len() }

// Depth returns 1 for outermost loops, 2 for loops nested in an outermost loop, and so on
func (l *Loop) Depth() int { return l.node.Depth() }

// ExitingBlocks returns the blocks of the loop with a successor outside of the loop
func (l *Loop) ExitingBlocks() []*ir.Block {
	var res []*ir.Block
	for _, e := range l.Exits {
		if !slices.Contains(res, e.From) {
			res = append(res, e.From)
		}
	}
	return res
}

// ExitBlocks returns the blocks outside of the loop with a predecessor in the loop
func (l *Loop) ExitBlocks() []*ir.Block {
	var res []*ir.Block
	for _, e := range l.Exits {
		if !slices.Contains(res, e.To) {
			res = append(res, e.To)
		}
	}
	return res
}

// Info holds the dominator tree and the loop forest of a function. It is a snapshot: it must be recomputed after
// the control flow graph of the function changes.
type Info struct {
	Func  *ir.Function
	Graph *graphutil.BlockGraph

	// Loops contains every loop of the function, outer loops before the loops they contain
	Loops []*Loop

	reachable intsets.Sparse
	dom       flow.DominatorTree
	forest    *graphutil.Tree[*Loop]
}

// Analyze computes the loops of f. Blocks that are not reachable from the entry are ignored.
func Analyze(f *ir.Function) *Info {
	info := &Info{Func: f, Graph: graphutil.NewBlockGraph(f), forest: graphutil.NewTree[*Loop](nil)}
	if len(f.Blocks) == 0 {
		return info
	}
	for _, i := range info.Graph.Reachable(0) {
		info.reachable.Insert(int(i))
	}
	info.dom = flow.Dominators(info.Graph.Node(0), info.Graph)
	info.findLoops()
	return info
}

// IsReachable returns true if b can be reached from the entry block
func (info *Info) IsReachable(b *ir.Block) bool {
	i, ok := info.Graph.Index[b]
	return ok && info.reachable.Has(i)
}

// Dominates returns true if every path from the entry to b goes through a. Every block dominates itself.
func (info *Info) Dominates(a, b *ir.Block) bool {
	if !info.IsReachable(a) || !info.IsReachable(b) {
		return false
	}
	return info.dominates(int64(info.Graph.Index[a]), int64(info.Graph.Index[b]))
}

func (info *Info) dominates(a, b int64) bool {
	for cur := b; ; {
		if cur == a {
			return true
		}
		idom := info.dom.DominatorOf(cur)
		if idom == nil {
			return false
		}
		cur = idom.ID()
	}
}

// TopLevel returns the outermost loops
func (info *Info) TopLevel() []*Loop {
	return graphLabels(info.forest.Children)
}

// LoopFor returns the innermost loop containing b, or nil
func (info *Info) LoopFor(b *ir.Block) *Loop {
	var best *Loop
	for _, l := range info.Loops {
		if l.Contains(b) && (best == nil || l.Depth() > best.Depth()) {
			best = l
		}
	}
	return best
}

// PostOrder returns the loops with inner loops before the loops that contain them
func (info *Info) PostOrder() []*Loop {
	var res []*Loop
	info.forest.PostOrder(func(t *graphutil.Tree[*Loop]) {
		if t.Label != nil {
			res = append(res, t.Label)
		}
	})
	return res
}

func graphLabels(nodes []*graphutil.Tree[*Loop]) []*Loop {
	res := make([]*Loop, 0, len(nodes))
	for _, n := range nodes {
		res = append(res, n.Label)
	}
	return res
}

func (info *Info) findLoops() {
	g := info.Graph
	byHeader := map[int64]*Loop{}
	var headers []int64
	for _, u := range info.reachable.AppendTo(nil) {
		for _, h := range g.Succs(int64(u)) {
			if !info.dominates(h, int64(u)) {
				continue
			}
			l := byHeader[h]
			if l == nil {
				l = &Loop{Header: g.Blocks[h], info: info}
				l.body.Insert(int(h))
				byHeader[h] = l
				headers = append(headers, h)
			}
			l.Latches = append(l.Latches, g.Blocks[u])
			info.collectBody(l, int64(u))
		}
	}

	loops := make([]*Loop, 0, len(headers))
	for _, h := range headers {
		loops = append(loops, byHeader[h])
	}
	// larger bodies first so that parents are placed in the forest before their children
	slices.SortStableFunc(loops, func(a, b *Loop) bool {
		if a.body.Len() != b.body.Len() {
			return a.body.Len() > b.body.Len()
		}
		return g.Index[a.Header] < g.Index[b.Header]
	})
	for _, l := range loops {
		for k := len(info.Loops) - 1; k >= 0; k-- {
			candidate := info.Loops[k]
			if candidate.body.Has(g.Index[l.Header]) && l.body.SubsetOf(&candidate.body) {
				if l.Parent == nil || candidate.body.Len() < l.Parent.body.Len() {
					l.Parent = candidate
				}
			}
		}
		if l.Parent == nil {
			l.node = info.forest.AddChild(l)
		} else {
			l.node = l.Parent.node.AddChild(l)
			l.Parent.Children = append(l.Parent.Children, l)
		}
		info.Loops = append(info.Loops, l)
	}
	for _, l := range info.Loops {
		for _, b := range l.body.AppendTo(nil) {
			for _, s := range g.Succs(int64(b)) {
				if !l.body.Has(int(s)) {
					l.Exits = append(l.Exits, Edge{From: g.Blocks[b], To: g.Blocks[s]})
				}
			}
		}
	}
}

// collectBody adds to the loop every block that reaches the latch without going through the header
func (info *Info) collectBody(l *Loop, latch int64) {
	stack := []int64{latch}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !l.body.Insert(int(u)) {
			continue
		}
		for _, p := range info.Graph.Preds(u) {
			if info.reachable.Has(int(p)) {
				stack = append(stack, p)
			}
		}
	}
}
