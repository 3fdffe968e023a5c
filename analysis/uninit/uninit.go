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

// Package uninit finds the stack allocations that may be read before they are written.
//
// The analysis only looks at the block of the allocation: an allocation is initialized if the block writes the
// whole object before reading it. Anything else, including an allocation whose block ends without reading or
// writing it, may be uninitialized. The analysis over-approximates: flagging an initialized allocation only
// costs an extra request that later slicing can remove.
package uninit

import (
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// MayBeUninitialized returns true if the allocation a may be read before being written. Allocations of types
// without a size are always flagged. A nondeterministic value request over the allocation counts as a write.
func MayBeUninitialized(a *ir.Instr) bool {
	if a.Op != ir.OpAlloca {
		return false
	}
	if !a.Alloc.IsSized() {
		return true
	}
	b := a.Block()
	if b == nil {
		return true
	}
	// aliases are the casts of the allocation seen so far
	aliases := map[ir.Value]bool{a: true}
	for _, i := range b.Instrs[b.Index(a)+1:] {
		switch i.Op {
		case ir.OpLoad:
			if i.Operands[0] == a {
				return true
			}
		case ir.OpStore:
			if i.Operands[1] == a && i.Operands[0].Type().Equal(a.Alloc) {
				return false
			}
		case ir.OpCast:
			if aliases[i.Operands[0]] {
				aliases[i] = true
			}
		case ir.OpCall:
			if i.Calls(verifier.MakeNondet) && len(i.Operands) > 0 && aliases[i.Operands[0]] {
				return false
			}
		}
	}
	return true
}

// Find returns the allocations of f that may be uninitialized, in layout order
func Find(f *ir.Function) []*ir.Instr {
	return f.CollectInstrs(func(i *ir.Instr) bool {
		return i.Op == ir.OpAlloca && MayBeUninitialized(i)
	})
}
