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

package config

const (
	// DefaultMaxFlattenIterations bounds the fixpoint of flatten-loops
	DefaultMaxFlattenIterations = 64

	// DefaultAssertFunction is the assertion failure handler of the C library
	DefaultAssertFunction = "__assert_fail"

	// ShadowAlloca requests nondeterminism on a shadow stack slot per uninitialized scalar
	ShadowAlloca = "alloca"

	// ShadowGlobal copies nondeterminism from one global per type, requested at the entry of main
	ShadowGlobal = "global"
)

// Names of the passes that can appear in a pipeline
const (
	PassExplicitConsdes      = "explicit-consdes"
	PassMakeNondet           = "make-nondet"
	PassInjectNondet         = "inject-nondet"
	PassInitializeUninit     = "initialize-uninitialized"
	PassDeleteUndefined      = "delete-undefined"
	PassDeleteUndefinedNosym = "delete-undefined-nosym"
	PassInternalizeGlobals   = "internalize-globals"
	PassInstrumentAlloc      = "instrument-alloc"
	PassInstrumentAllocNF    = "instrument-alloc-nf"
	PassRemoveInfiniteLoops  = "remove-infinite-loops"
	PassBreakInfiniteLoops   = "break-infinite-loops"
	PassBreakCritLoops       = "break-crit-loops"
	PassFlattenLoops         = "flatten-loops"
	PassFindExits            = "find-exits"
	PassReplaceAsserts       = "replace-asserts"
	PassRemoveErrorCalls     = "remove-error-calls"
)

// KnownPasses lists every pass name accepted in a pipeline
var KnownPasses = []string{
	PassExplicitConsdes,
	PassMakeNondet,
	PassInjectNondet,
	PassInitializeUninit,
	PassDeleteUndefined,
	PassDeleteUndefinedNosym,
	PassInternalizeGlobals,
	PassInstrumentAlloc,
	PassInstrumentAllocNF,
	PassRemoveInfiniteLoops,
	PassBreakInfiniteLoops,
	PassBreakCritLoops,
	PassFlattenLoops,
	PassFindExits,
	PassReplaceAsserts,
	PassRemoveErrorCalls,
}

// DefaultPipeline is the order in which passes run when the config does not specify a pipeline. Injection runs
// before allocation instrumentation, and control flow normalization comes last so that it sees the final CFG.
var DefaultPipeline = []string{
	PassExplicitConsdes,
	PassMakeNondet,
	PassInternalizeGlobals,
	PassInitializeUninit,
	PassDeleteUndefined,
	PassInstrumentAlloc,
	PassBreakInfiniteLoops,
	PassBreakCritLoops,
	PassFlattenLoops,
	PassFindExits,
}
