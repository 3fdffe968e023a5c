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

// Package alloc redirects the calls to the C allocation functions to the allocation primitives of the verifier.
//
// Two policies exist. With MayFail, malloc and calloc become __VERIFIER_malloc and __VERIFIER_calloc, which may
// return null. With NeverFails they become __VERIFIER_malloc0 and __VERIFIER_calloc0, which never do. The
// arguments, attributes and metadata of the original call are kept.
package alloc

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// Policy selects the allocation primitives
type Policy int

const (
	// MayFail primitives may return null before touching memory
	MayFail Policy = iota
	// NeverFails primitives return non-null memory with nondeterministic content
	NeverFails
)

func (p Policy) String() string {
	if p == NeverFails {
		return "never-fails"
	}
	return "may-fail"
}

// targets maps the name of a redirected function to its replacement under each policy
var targets = map[string][2]string{
	verifier.LibcMalloc: {verifier.Malloc, verifier.Malloc0},
	verifier.LibcCalloc: {verifier.Calloc, verifier.Calloc0},
}

// Target returns the primitive replacing calls to the function called name under policy p, or "" if such calls
// are not redirected
func Target(name string, p Policy) string {
	if t, ok := targets[name]; ok {
		return t[p]
	}
	return ""
}

// Instrument is the instrument-alloc pass
type Instrument struct {
	Policy Policy
}

func (p Instrument) Name() string {
	if p.Policy == NeverFails {
		return config.PassInstrumentAllocNF
	}
	return config.PassInstrumentAlloc
}

// Run redirects the direct calls to malloc and calloc of every function outside the runtime namespaces
func (p Instrument) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	return retarget(ctx, m, func(name string) string { return Target(name, p.Policy) })
}

// AssumeNeverFails turns the may-fail primitives inserted by Instrument into their never failing counterparts.
// Running it after Instrument with MayFail gives the same calls as Instrument with NeverFails.
type AssumeNeverFails struct{}

func (AssumeNeverFails) Name() string { return "assume-alloc-never-fails" }

func (AssumeNeverFails) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	return retarget(ctx, m, func(name string) string {
		switch name {
		case verifier.Malloc:
			return verifier.Malloc0
		case verifier.Calloc:
			return verifier.Calloc0
		}
		return ""
	})
}

func retarget(ctx *transform.Context, m *ir.Module, target func(string) string) (bool, error) {
	changed := false
	for _, f := range m.Defined() {
		if verifier.InNamespace(f.Name) {
			continue
		}
		if err := f.Materialize(); err != nil {
			return changed, fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
		}
		calls := f.CollectInstrs(func(i *ir.Instr) bool {
			callee := i.CalledFunction()
			return callee != nil && !callee.IsIntrinsic() && target(callee.Name) != ""
		})
		for _, call := range calls {
			if _, err := transform.Redirect(m, call, target(call.CalledFunction().Name)); err != nil {
				return changed, err
			}
		}
		if len(calls) > 0 {
			changed = true
			ctx.Effect(transform.EffectRedirected, f.Name, "redirected %d allocation calls", len(calls))
		}
	}
	return changed, nil
}
