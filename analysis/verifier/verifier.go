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

// Package verifier lists the primitives of the verification runtime that the transformations insert calls to.
// The runtime itself is linked with the transformed module; this package only knows the names and the
// signatures of its entry points.
package verifier

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/internal/funcutil"
)

// Names of the runtime primitives
const (
	// MakeNondet is request_nondet(ptr, size, name, id): the size bytes at ptr hold an unconstrained value
	MakeNondet = "__VERIFIER_make_nondet"

	// Malloc may return null, Malloc0 never does. Same for Calloc and Calloc0.
	Malloc  = "__VERIFIER_malloc"
	Malloc0 = "__VERIFIER_malloc0"
	Calloc  = "__VERIFIER_calloc"
	Calloc0 = "__VERIFIER_calloc0"

	SilentExit = "__VERIFIER_silent_exit"
	Exit       = "__VERIFIER_exit"
	Assume     = "__VERIFIER_assume"
	Error      = "__VERIFIER_error"

	CheckAssume = "__INSTR_check_assume"
	MarkExit    = "__INSTR_mark_exit"

	// NondetPrefix starts the names of the typed nondeterministic value generators, e.g. __VERIFIER_nondet_int
	NondetPrefix = "__VERIFIER_nondet_"
)

// Prefixes of the runtime namespaces. Functions in these namespaces are never instrumented.
const (
	Prefix      = "__VERIFIER_"
	InstrPrefix = "__INSTR_"
)

// Names of the C library functions the transformations recognize
const (
	LibcMalloc = "malloc"
	LibcCalloc = "calloc"
	LibcExit   = "exit"
	Main       = "main"
)

// InNamespace returns true if name belongs to the runtime, i.e. starts with __VERIFIER_ or __INSTR_
func InNamespace(name string) bool {
	return strings.HasPrefix(name, Prefix) || strings.HasPrefix(name, InstrPrefix)
}

// MakeNondetSig returns the signature void (i8*, size_t, i8*, i32) of MakeNondet for layout dl
func MakeNondetSig(dl ir.DataLayout) *ir.Type {
	return ir.FuncOf(ir.Void, ir.I8P, dl.SizeT(), ir.I8P, ir.I32)
}

// StatusSig is the signature void (i32) shared by the exit and assume primitives
func StatusSig() *ir.Type {
	return ir.FuncOf(ir.Void, ir.I32)
}

// Declare returns the function called name in m, declaring it with signature sig if needed. noreturn marks a
// new declaration as never returning. It is an error if m already has a function called name with another
// signature.
func Declare(m *ir.Module, name string, sig *ir.Type, noreturn bool) (*ir.Function, error) {
	f, same := m.GetOrInsertFunction(name, sig)
	if f == nil {
		return nil, fmt.Errorf("cannot declare @%s: the name is used by a global", name)
	}
	if !same {
		return nil, fmt.Errorf("@%s has type %s, expected %s", name, f.Sig, sig)
	}
	if noreturn && f.IsDeclaration() && !f.HasAttr("noreturn") {
		f.Attrs = append(f.Attrs, "noreturn")
	}
	return f, nil
}

// NondetFunction returns the declaration of MakeNondet
func NondetFunction(m *ir.Module) (*ir.Function, error) {
	return Declare(m, MakeNondet, MakeNondetSig(m.Layout), false)
}

// ExitFunction returns the declaration of the loud or silent exit primitive
func ExitFunction(m *ir.Module, loud bool) (*ir.Function, error) {
	if loud {
		return Declare(m, Exit, StatusSig(), true)
	}
	return Declare(m, SilentExit, StatusSig(), true)
}

// AssumeFunction returns the declaration of the assume primitive
func AssumeFunction(m *ir.Module) (*ir.Function, error) {
	return Declare(m, Assume, StatusSig(), false)
}

// ErrorFunction returns the declaration of the error primitive
func ErrorFunction(m *ir.Module) (*ir.Function, error) {
	return Declare(m, Error, ir.FuncOf(ir.Void), true)
}

// MaxNondetID returns the largest id passed to MakeNondet in m, or 0. Ids that are not constants are ignored.
func MaxNondetID(m *ir.Module) int64 {
	f := m.Function(MakeNondet)
	if f == nil {
		return 0
	}
	var max int64
	for _, call := range m.UsesOf(f) {
		if call.CalledFunction() != f || len(call.Operands) < 4 {
			continue
		}
		if c, ok := call.Operands[3].(*ir.Const); ok && c.Int > max {
			max = c.Int
		}
	}
	return max
}

// leaveAlone are the runtime primitives whose declarations stay undefined: their behavior comes from the
// runtime the module is linked with
var leaveAlone = map[string]bool{}

func init() {
	for _, group := range [][]string{
		// symbolic executor primitives
		{"klee_make_symbolic", "klee_assume", "klee_abort", "klee_silent_exit", "klee_report_error",
			"klee_warning_once", "klee_int"},
		// C library
		{"__assert_fail", "abort", "exit", "_exit", "malloc", "calloc", "realloc", "free", "memset", "memcmp",
			"memcpy", "memmove", "__errno_location", "__ctype_b_loc"},
		// rounding
		{"rint", "rintf", "rintl", "lrint", "lrintf", "lrintl", "llrint", "llrintf", "llrintl", "nearbyint",
			"nearbyintf", "nearbyintl", "remainder", "remainderf", "remainderl", "drem", "dremf", "dreml", "trunc",
			"truncf", "truncl", "round", "roundf", "roundl", "fesetround"},
		// floating point
		{"nan", "nanf", "nanl", "fmax", "fmaxf", "fmaxl", "frexp", "ldexp", "fabsf", "fdim", "fmin", "fminf",
			"fminl", "modf", "modff", "modfl", "copysign", "copysignf", "copysignl", "__isnan", "__isnanf",
			"__isnanl", "__isinf", "__isinff", "__isinfl", "__fpclassify", "__fpclassifyf", "__fpclassifyl",
			"__signbit", "__signbitf", "__signbitl", "__finite", "__finite1", "__finitef", "fmod", "fmodf",
			"fmodl"},
		// C++ allocation
		{"_ZdaPv", "_ZdlPv", "_Znaj", "_Znwj", "_Znam", "_Znwm"},
		// threads
		{"pthread_mutex_lock", "pthread_mutex_unlock", "pthread_mutex_init", "pthread_create", "pthread_exit",
			"pthread_join", "pthread_cond_init", "pthread_cond_wait", "pthread_cond_signal",
			"pthread_cond_broadcast"},
		{"kzalloc"},
	} {
		for _, name := range group {
			leaveAlone[name] = true
		}
	}
}

// IsLeftAlone returns true if an undefined function called name must be kept as is: a runtime primitive, a
// function of the verifier namespace, or one of the extra names given
func IsLeftAlone(name string, extra []string) bool {
	return leaveAlone[name] || strings.HasPrefix(name, Prefix) || funcutil.Contains(extra, name)
}
