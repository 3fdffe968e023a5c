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

package cfg

import (
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/internal/graphutil"
	"github.com/yourbasic/graph"
)

// Classification summarizes the loop structure of a function
type Classification struct {
	Function string `yaml:"function"`

	// Loops is the number of natural loops
	Loops int `yaml:"loops"`

	// MaxDepth is the deepest loop nesting, 0 when the function has no loop
	MaxDepth int `yaml:"max-depth"`

	// NonTerminating is the number of loops without exit edges
	NonTerminating int `yaml:"non-terminating"`

	// SelfLoops is the number of blocks branching to themselves
	SelfLoops int `yaml:"self-loops"`

	// Regions is the number of strongly connected regions containing a cycle. A region holds a loop nest, or an
	// irreducible cycle.
	Regions int `yaml:"regions"`

	// Irreducible is true when some cycle is not a natural loop, i.e. it can be entered at several blocks
	Irreducible bool `yaml:"irreducible"`

	// Cycles is the number of elementary cycles, only computed on request
	Cycles int `yaml:"cycles,omitempty"`
}

// Nested returns true if some loop contains another loop
func (c Classification) Nested() bool { return c.MaxDepth > 1 }

// Classify computes the loop classification of the function analyzed by info. Counting elementary cycles may
// take time exponential in the size of the function and is only done when countCycles is set.
func Classify(info *Info, countCycles bool) Classification {
	c := Classification{Function: info.Func.Name, Loops: len(info.Loops)}
	for _, l := range info.Loops {
		if d := l.Depth(); d > c.MaxDepth {
			c.MaxDepth = d
		}
		if len(l.Exits) == 0 {
			c.NonTerminating++
		}
	}
	if len(info.Func.Blocks) == 0 {
		return c
	}
	reachable := graphutil.Subgraph(info.Graph, info.Graph.Reachable(0))
	c.SelfLoops = graph.Check(reachable).Loops
	for _, comp := range reachable.Components() {
		if reachable.IsCyclic(comp) {
			c.Regions++
		}
	}

	// a graph is reducible iff it becomes acyclic once the back edges of its natural loops are removed
	forward := graphutil.Filter(reachable, func(from, to int64) bool {
		return !info.dominates(to, from)
	})
	c.Irreducible = !graph.Acyclic(forward)

	if countCycles {
		noSelf := graphutil.Filter(reachable, func(from, to int64) bool { return from != to })
		c.Cycles = len(graphutil.FindAllElementaryCycles(noSelf)) + c.SelfLoops
	}
	return c
}

// ModuleClassification aggregates the loop classification of every defined function of a module
type ModuleClassification struct {
	HasLoops       bool             `yaml:"has-loops"`
	HasNested      bool             `yaml:"has-nested-loops"`
	HasNonTerm     bool             `yaml:"has-nonterminating-loops"`
	HasIrreducible bool             `yaml:"has-irreducible-loops"`
	Functions      []Classification `yaml:"functions"`
}

// ClassifyModule classifies the loops of every defined function of m
func ClassifyModule(m *ir.Module, countCycles bool) ModuleClassification {
	var res ModuleClassification
	for _, f := range m.Defined() {
		c := Classify(Analyze(f), countCycles)
		res.HasLoops = res.HasLoops || c.Loops > 0
		res.HasNested = res.HasNested || c.Nested()
		res.HasNonTerm = res.HasNonTerm || c.NonTerminating > 0
		res.HasIrreducible = res.HasIrreducible || c.Irreducible
		res.Functions = append(res.Functions, c)
	}
	return res
}
