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

import "golang.org/x/exp/slices"

// Components returns the strongly connected components of c, with Tarjan's algorithm. A component is listed
// before every component that reaches it, so a function body comes out from its exits back to its entry. Node
// ids are increasing within a component.
func (c *BlockGraph) Components() [][]int64 {
	var (
		stack   []int64
		onStack = map[int64]bool{}
		index   = map[int64]int{}
		low     = map[int64]int{}
		comps   [][]int64
	)
	var visit func(v int64)
	visit = func(v int64) {
		index[v] = len(index)
		low[v] = index[v]
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range c.Succs(v) {
			if _, seen := index[w]; !seen {
				visit(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}
		if low[v] != index[v] {
			return
		}
		k := len(stack) - 1
		for stack[k] != v {
			k--
		}
		comp := append([]int64(nil), stack[k:]...)
		for _, w := range comp {
			onStack[w] = false
		}
		stack = stack[:k]
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	for _, v := range c.Keys {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	return comps
}

// IsCyclic returns true if the component comp of c contains a cycle, i.e. has several nodes or a self edge
func (c *BlockGraph) IsCyclic(comp []int64) bool {
	return len(comp) > 1 || (len(comp) == 1 && c.Edges[comp[0]][comp[0]])
}
