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

// Package naming allocates the names and the identifiers of nondeterministic value requests.
//
// A name has the form <function>:<role>:<line>, where the role is one of the constants below or the name of the
// source variable receiving the value. Identifiers increase by one with every request and start after the
// largest identifier already used in the module, so that running the transformations again does not produce
// collisions.
package naming

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// Roles of the nondeterministic values that do not come from a named source variable
const (
	RoleUninitialized = "uninitialized"
	RoleUndefinedFun  = "undeffun"
	RoleDynAlloc      = "dynalloc"

	// Placeholder is the role used when the variable name cannot be recovered
	Placeholder = "--"
)

// Allocator hands out request names and identifiers. The zero value starts identifiers at 1.
type Allocator struct {
	last int64
}

// NewAllocator returns an allocator whose identifiers start after the largest one used in m
func NewAllocator(m *ir.Module) *Allocator {
	a := &Allocator{}
	a.Reseed(m)
	return a
}

// Reseed makes sure the next identifier is larger than every identifier used in m
func (a *Allocator) Reseed(m *ir.Module) {
	if max := verifier.MaxNondetID(m); max > a.last {
		a.last = max
	}
}

// NextID returns a fresh identifier
func (a *Allocator) NextID() int64 {
	a.last++
	return a.last
}

// Last returns the last identifier returned by NextID, or the seed
func (a *Allocator) Last() int64 { return a.last }

// NextName returns the name of a request made in fn for role at source line
func (a *Allocator) NextName(fn *ir.Function, role string, line int) string {
	if role == "" {
		role = Placeholder
	}
	return fmt.Sprintf("%s:%s:%d", fn.Name, role, line)
}
