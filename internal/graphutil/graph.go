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

package graphutil

import (
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
)

// BlockGraph is an abstraction over the control flow graph of a function to work with existing graph libraries.
// It implements the methods to satisfy graph.Iterator and Gonum's graph.Directed.
// Node ids are the positions of the blocks in the function at the time the graph was built.
type BlockGraph struct {
	// Blocks are the nodes of the graph, indexed by node id
	Blocks []*ir.Block

	// Index maps blocks to node ids
	Index map[*ir.Block]int

	// Keys are the node ids present in the graph, in increasing order. A subgraph may have fewer keys than
	// blocks.
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between Blocks[x] and Blocks[y]
	Edges map[int64]map[int64]bool

	// preds is the transpose of Edges
	preds map[int64]map[int64]bool
}

// NewBlockGraph returns the control flow graph of f
func NewBlockGraph(f *ir.Function) *BlockGraph {
	n := len(f.Blocks)
	g := &BlockGraph{
		Blocks: append([]*ir.Block(nil), f.Blocks...),
		Index:  make(map[*ir.Block]int, n),
		Keys:   make([]int64, n),
		Edges:  make(map[int64]map[int64]bool, n),
		preds:  make(map[int64]map[int64]bool, n),
	}
	for i, b := range f.Blocks {
		g.Index[b] = i
		g.Keys[i] = int64(i)
		g.Edges[int64(i)] = map[int64]bool{}
		g.preds[int64(i)] = map[int64]bool{}
	}
	for i, b := range f.Blocks {
		for _, s := range b.Successors() {
			j, ok := g.Index[s]
			if !ok {
				continue
			}
			g.Edges[int64(i)][int64(j)] = true
			g.preds[int64(j)][int64(i)] = true
		}
	}
	return g
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// Node ids stay consistent across subgraphs.
func Subgraph(original *BlockGraph, include []int64) *BlockGraph {
	in := make(map[int64]bool, len(include))
	for _, i := range include {
		in[i] = true
	}
	keys := append([]int64(nil), include...)
	slices.Sort(keys)
	sub := &BlockGraph{
		Blocks: original.Blocks,
		Index:  original.Index,
		Keys:   keys,
		Edges:  make(map[int64]map[int64]bool, len(include)),
		preds:  make(map[int64]map[int64]bool, len(include)),
	}
	for _, i := range keys {
		sub.Edges[i] = map[int64]bool{}
		sub.preds[i] = map[int64]bool{}
	}
	for _, i := range keys {
		for e := range original.Edges[i] {
			if in[e] {
				sub.Edges[i][e] = true
				sub.preds[e][i] = true
			}
		}
	}
	return sub
}

// Filter returns a new graph with the same nodes as the original graph and only the edges for which keep returns
// true.
func Filter(original *BlockGraph, keep func(from, to int64) bool) *BlockGraph {
	res := Subgraph(original, original.Keys)
	for u, out := range res.Edges {
		for v := range out {
			if !keep(u, v) {
				delete(out, v)
				delete(res.preds[v], u)
			}
		}
	}
	return res
}

// Reachable returns the ids of the nodes reachable from root, in increasing order
func (c *BlockGraph) Reachable(root int64) []int64 {
	if _, ok := c.Edges[root]; !ok {
		return nil
	}
	seen := map[int64]bool{root: true}
	queue := []int64{root}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for v := range c.Edges[u] {
			if !seen[v] {
				seen[v] = true
				queue = append(queue, v)
			}
		}
	}
	return sortedKeys(seen)
}

// BlockNode returns the node of block b
func (c *BlockGraph) BlockNode(b *ir.Block) BNode {
	i, ok := c.Index[b]
	if !ok {
		return BNode{id: -1}
	}
	return BNode{id: int64(i), Block: b}
}

// Succs returns the successor ids of v in increasing order
func (c *BlockGraph) Succs(v int64) []int64 {
	return sortedKeys(c.Edges[v])
}

// Preds returns the predecessor ids of v in increasing order
func (c *BlockGraph) Preds(v int64) []int64 {
	return sortedKeys(c.preds[v])
}

// Order implements the order of the graph.Iterator interface for the BlockGraph
func (c *BlockGraph) Order() int {
	return len(c.Blocks)
}

// Visit implements the graph.Iterator interface for the BlockGraph
func (c *BlockGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range c.Succs(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c *BlockGraph) Node(id int64) graph.Node {
	if _, ok := c.Edges[id]; !ok {
		return nil
	}
	return BNode{id: id, Block: c.Blocks[id]}
}

// Nodes returns the set of nodes in the graph
func (c *BlockGraph) Nodes() graph.Nodes {
	return c.nodes(c.Keys)
}

// From returns the set of nodes reachable from the id in one step
func (c *BlockGraph) From(id int64) graph.Nodes {
	return c.nodes(c.Succs(id))
}

// To returns the set of nodes that reach the id in one step
func (c *BlockGraph) To(id int64) graph.Nodes {
	return c.nodes(c.Preds(id))
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c *BlockGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns whether there is an edge from uid to vid
func (c *BlockGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c *BlockGraph) Edge(uid, vid int64) graph.Edge {
	if !c.Edges[uid][vid] {
		return nil
	}
	return BEdge{from: BNode{uid, c.Blocks[uid]}, to: BNode{vid, c.Blocks[vid]}}
}

func (c *BlockGraph) nodes(ids []int64) graph.Nodes {
	nodes := make([]graph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = BNode{id: id, Block: c.Blocks[id]}
	}
	return iterator.NewOrderedNodes(nodes)
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k, in := range m {
		if in {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// *************** Nodes implementation **********************

// BNode is a wrapper around an *ir.Block that implements the graph.Node interface
type BNode struct {
	id    int64
	Block *ir.Block
}

// ID returns the id of the node
func (n BNode) ID() int64 {
	return n.id
}

func (n BNode) String() string {
	if n.Block == nil {
		return ""
	}
	return n.Block.Name
}

// *************** Edge implementation **********************

// BEdge implements the graph.Edge interface
type BEdge struct {
	from BNode
	to   BNode
}

// From returns the origin of the edge
func (e BEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e BEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e BEdge) ReversedEdge() graph.Edge {
	return BEdge{from: e.to, to: e.from}
}
