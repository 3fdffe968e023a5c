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

// Package metadata gives source locations to the instructions inserted by the transformations.
package metadata

import (
	"github.com/awslabs/ar-go-vprep/analysis/ir"
)

// Attach sets the location of dst from src. If src has no location, the location of the closest located
// instruction of the block of src is used, preferring the first one after src over the last one before it. If
// the block has no located instruction, the search continues from the terminator of its unique predecessor.
// When everything else fails, dst gets the first line of the body of its function, at column 0.
//
// Attach returns false if dst ends up without a location, which only happens when the function has no debug
// information. A location never refers to a function other than the one containing dst.
func Attach(src, dst *ir.Instr) bool {
	fn := dst.Parent()
	if fn == nil {
		fn = src.Parent()
	}
	var sp *ir.Subprogram
	if fn != nil {
		sp = fn.Subprogram
	}

	loc := find(src, map[*ir.Block]bool{})
	if loc == nil || loc.Scope != sp {
		loc = entryLoc(sp)
	}
	if loc == nil {
		dst.Loc = nil
		return false
	}
	copied := *loc
	dst.Loc = &copied
	return true
}

// AttachAll attaches the location found from src to every instruction of dsts
func AttachAll(src *ir.Instr, dsts ...*ir.Instr) bool {
	ok := true
	for _, dst := range dsts {
		if dst != nil {
			ok = Attach(src, dst) && ok
		}
	}
	return ok
}

func find(src *ir.Instr, visited map[*ir.Block]bool) *ir.DebugLoc {
	if src.Loc != nil {
		return src.Loc
	}
	b := src.Block()
	if b == nil || visited[b] {
		return nil
	}
	visited[b] = true

	var before *ir.DebugLoc
	after := false
	for _, i := range b.Instrs {
		if i == src {
			after = true
			continue
		}
		if i.Loc == nil {
			continue
		}
		if after {
			return i.Loc
		}
		before = i.Loc
	}
	if before != nil {
		return before
	}
	if pred := b.UniquePredecessor(); pred != nil && pred.Terminator() != nil {
		return find(pred.Terminator(), visited)
	}
	return nil
}

func entryLoc(sp *ir.Subprogram) *ir.DebugLoc {
	if sp == nil {
		return nil
	}
	return &ir.DebugLoc{Line: sp.ScopeLine, Col: 0, Scope: sp}
}
