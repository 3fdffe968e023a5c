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

package graphutil_test

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/internal/funcutil"
	"github.com/awslabs/ar-go-vprep/internal/graphutil"
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// buildFunction returns a function whose blocks b0..bn-1 branch according to succs. Blocks have at most two
// successors.
func buildFunction(t *testing.T, succs [][]int) *ir.Function {
	m := ir.NewModule("cycles", ir.DefaultLayout)
	f, err := m.AddFunction("f", ir.FuncOf(ir.Void, ir.I1))
	if err != nil {
		t.Fatalf("failed to create function: %v", err)
	}
	blocks := make([]*ir.Block, len(succs))
	for i := range succs {
		blocks[i] = f.NewBlock(fmt.Sprintf("b%d", i))
	}
	for i, out := range succs {
		switch len(out) {
		case 0:
			blocks[i].Append(ir.NewRet(nil))
		case 1:
			blocks[i].Append(ir.NewBr(blocks[out[0]]))
		case 2:
			blocks[i].Append(ir.NewCondBr(f.Params[0], blocks[out[0]], blocks[out[1]]))
		default:
			t.Fatalf("block %d has too many successors", i)
		}
	}
	return f
}

func TestFindAllElementaryCycles(t *testing.T) {
	f := buildFunction(t, [][]int{{1}, {2}, {1, 3}, {0, 4}, {}})
	g := graphutil.NewBlockGraph(f)
	stats := graph.Check(g)
	t.Logf("Stats:\n\tsize: %d\n\tmulti: %d\n\tloops: %d\n\tisolated: %d",
		stats.Size, stats.Multi, stats.Loops, stats.Isolated)
	if stats.Size != 6 {
		t.Fatalf("Expected 6 edges, found %d", stats.Size)
	}

	cycles := graphutil.FindAllElementaryCycles(g)
	expected := []string{"01230", "121"}
	results := funcutil.Map(cycles, func(cycle []int64) string {
		return strings.Join(funcutil.Map(cycle, func(x int64) string { return strconv.Itoa(int(x)) }), "")
	})
	sort.Strings(results)
	if !slices.Equal(results, expected) {
		for i, s := range results {
			t.Logf("Cycle %d: %s", i, s)
		}
		t.Fatalf("Cycles not as expected")
	}
}

func TestBlockGraphImplementsGonum(t *testing.T) {
	f := buildFunction(t, [][]int{{1, 2}, {3}, {3}, {}})
	g := graphutil.NewBlockGraph(f)
	if g.Nodes().Len() != 4 {
		t.Errorf("Expected 4 nodes")
	}
	if !g.HasEdgeFromTo(0, 2) || g.HasEdgeFromTo(2, 0) {
		t.Errorf("Unexpected edge direction")
	}
	if !g.HasEdgeBetween(2, 0) {
		t.Errorf("Expected an edge between 0 and 2")
	}
	if g.To(3).Len() != 2 {
		t.Errorf("Expected two predecessors of the join block")
	}
	if e := g.Edge(1, 3); e == nil || e.From().ID() != 1 || e.To().ID() != 3 {
		t.Errorf("Unexpected edge %v", e)
	}
	if g.Edge(3, 1) != nil {
		t.Errorf("Unexpected reversed edge")
	}
	if n := g.BlockNode(f.Blocks[2]); n.ID() != 2 || n.String() != "b2" {
		t.Errorf("Unexpected node %v", n)
	}
}

func TestSubgraphKeepsInternalEdges(t *testing.T) {
	f := buildFunction(t, [][]int{{1}, {2}, {1, 3}, {0, 4}, {}})
	sub := graphutil.Subgraph(graphutil.NewBlockGraph(f), []int64{1, 2, 3})
	if !slices.Equal(sub.Succs(2), []int64{1, 3}) {
		t.Errorf("Unexpected successors %v", sub.Succs(2))
	}
	if len(sub.Succs(3)) != 0 {
		t.Errorf("Edges leaving the subgraph must be dropped")
	}
	if !slices.Equal(sub.Preds(1), []int64{2}) {
		t.Errorf("Unexpected predecessors %v", sub.Preds(1))
	}
}
