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

// Package pipeline builds the ordered list of transformations named in a config and runs it on a module.
package pipeline

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/alloc"
	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/consdes"
	"github.com/awslabs/ar-go-vprep/analysis/controlflow"
	"github.com/awslabs/ar-go-vprep/analysis/errorcalls"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/nondet"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
)

// Descriptions gives a one line summary of each pass
var Descriptions = map[string]string{
	config.PassExplicitConsdes:      "call the module constructors and destructors explicitly from main",
	config.PassMakeNondet:           "lower __VERIFIER_nondet_* calls and allocated memory to named requests",
	config.PassInjectNondet:         "internalize-globals, initialize-uninitialized and delete-undefined in this order",
	config.PassInitializeUninit:     "make possibly uninitialized allocations nondeterministic",
	config.PassDeleteUndefined:      "define undefined functions returning a nondeterministic value",
	config.PassDeleteUndefinedNosym: "define undefined functions returning zero",
	config.PassInternalizeGlobals:   "define external globals and make them nondeterministic at the entry of main",
	config.PassInstrumentAlloc:      "redirect malloc and calloc to allocation primitives that may fail",
	config.PassInstrumentAllocNF:    "redirect malloc and calloc to allocation primitives that never fail",
	config.PassRemoveInfiniteLoops:  "replace trivial infinite loops by assume(0)",
	config.PassBreakInfiniteLoops:   "give every loop without exit an exit that is never taken",
	config.PassBreakCritLoops:       "split conditional branches re-entered through a one block detour",
	config.PassFlattenLoops:         "merge nested loops into flag guarded single loops",
	config.PassFindExits:            "call the exit primitive wherever the program stops",
	config.PassReplaceAsserts:       "replace assertion failures by __VERIFIER_error",
	config.PassRemoveErrorCalls:     "replace error reports by assume(0) or exit(0)",
}

// New returns the pass called name
func New(name string) (transform.Pass, error) {
	switch name {
	case config.PassExplicitConsdes:
		return consdes.ExplicitConsdes{}, nil
	case config.PassMakeNondet:
		return nondet.MakeNondet{}, nil
	case config.PassInjectNondet:
		return nondet.Injector{}, nil
	case config.PassInitializeUninit:
		return nondet.InitializeUninitialized{}, nil
	case config.PassDeleteUndefined:
		return nondet.DeleteUndefined{}, nil
	case config.PassDeleteUndefinedNosym:
		return nondet.DeleteUndefined{Nosym: true}, nil
	case config.PassInternalizeGlobals:
		return nondet.InternalizeGlobals{}, nil
	case config.PassInstrumentAlloc:
		return alloc.Instrument{Policy: alloc.MayFail}, nil
	case config.PassInstrumentAllocNF:
		return alloc.Instrument{Policy: alloc.NeverFails}, nil
	case config.PassRemoveInfiniteLoops:
		return controlflow.RemoveInfiniteLoops{}, nil
	case config.PassBreakInfiniteLoops:
		return controlflow.BreakInfiniteLoops{}, nil
	case config.PassBreakCritLoops:
		return controlflow.BreakCritLoops{}, nil
	case config.PassFlattenLoops:
		return controlflow.FlattenLoops{}, nil
	case config.PassFindExits:
		return controlflow.FindExits{}, nil
	case config.PassReplaceAsserts:
		return errorcalls.ReplaceAsserts{}, nil
	case config.PassRemoveErrorCalls:
		return errorcalls.RemoveErrorCalls{}, nil
	}
	return nil, fmt.Errorf("unknown pass %q", name)
}

// Build returns the passes of the pipeline of cfg, in order
func Build(cfg *config.Config) ([]transform.Pass, error) {
	var passes []transform.Pass
	for _, name := range cfg.Passes() {
		p, err := New(name)
		if err != nil {
			return nil, err
		}
		if inj, ok := p.(nondet.Injector); ok {
			inj.Nosym = cfg.UndefinedRetvalNosym
			p = inj
		}
		passes = append(passes, p)
	}
	return passes, nil
}

// Run runs the passes in order on m and checks that the result is well formed. The first error aborts the run;
// m may then be partially transformed and must be discarded.
func Run(ctx *transform.Context, m *ir.Module, passes []transform.Pass) error {
	for _, p := range passes {
		changed, err := ctx.Run(p, m)
		if err != nil {
			return err
		}
		if ctx.Log.Level() >= config.TraceLevel {
			ctx.Log.Tracef("module after %s (changed: %t)\n%s", p.Name(), changed, m.String())
		}
	}
	if err := m.Verify(); err != nil {
		return fmt.Errorf("transformed module is not well formed: %w", err)
	}
	return nil
}
