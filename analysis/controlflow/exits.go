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

package controlflow

import (
	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// FindExits inserts a call to the exit primitive before the terminator of every block where the program stops:
// blocks without successors that do not return, and the returning blocks of main. The loud exit is used when
// use-exit is set in the config, the silent one otherwise.
//
// Unless change-assumes is false, calls to __VERIFIER_assume are also redirected to __INSTR_check_assume, since
// an assume that fails would otherwise be seen as a program that never terminates.
type FindExits struct{}

func (FindExits) Name() string { return config.PassFindExits }

func (FindExits) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	funcs, err := definedFunctions(m)
	if err != nil {
		return false, err
	}
	var exit *ir.Function
	changed := false
	for _, f := range funcs {
		if verifier.InNamespace(f.Name) {
			continue
		}
		var stops []*ir.Instr
		for _, b := range f.Blocks {
			if term := b.Terminator(); term != nil && stopsProgram(f, term) && !callsExit(term.Prev()) {
				stops = append(stops, term)
			}
		}
		if len(stops) > 0 && exit == nil {
			if exit, err = verifier.ExitFunction(m, ctx.Config.UseExit); err != nil {
				return changed, err
			}
		}
		for _, term := range stops {
			call := ir.InsertBefore(ir.NewCall(exit, []ir.Value{ir.ConstInt(ir.I32, 0)}, ""), term)
			ctx.Attach(term, call)
		}
		if len(stops) > 0 {
			changed = true
			ctx.Effect(transform.EffectExit, f.Name, "inserted %d calls to %s", len(stops), exit.Name)
		}

		if ctx.Config.ChangeAssumes {
			done, err := checkAssumes(ctx, m, f)
			if err != nil {
				return changed, err
			}
			changed = changed || done
		}
	}
	return changed, nil
}

// stopsProgram returns true if the program ends at term: a return from main, or a terminator without successors
// that is not a return
func stopsProgram(f *ir.Function, term *ir.Instr) bool {
	if len(term.Succs) > 0 {
		return false
	}
	return term.Op != ir.OpRet || f.Name == verifier.Main
}

func callsExit(i *ir.Instr) bool {
	return i != nil && (i.Calls(verifier.Exit) || i.Calls(verifier.SilentExit))
}

func checkAssumes(ctx *transform.Context, m *ir.Module, f *ir.Function) (bool, error) {
	assumes := f.CollectInstrs(func(i *ir.Instr) bool { return i.Calls(verifier.Assume) })
	for _, call := range assumes {
		if _, err := transform.Redirect(m, call, verifier.CheckAssume); err != nil {
			return false, err
		}
	}
	if len(assumes) == 0 {
		return false, nil
	}
	ctx.Effect(transform.EffectRedirected, f.Name, "redirected %d assumptions to %s", len(assumes),
		verifier.CheckAssume)
	return true, nil
}
