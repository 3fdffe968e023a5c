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

package ir

import (
	"errors"
	"fmt"
)

// Verify checks the structural well-formedness of the module: every materialized block ends with exactly
// one terminator, branch targets belong to the same function, operands defined by instructions are not erased
// and live in the same function, and debug locations are scoped to the function that contains them.
func (m *Module) Verify() error {
	var errs []error
	for _, f := range m.Functions {
		if !f.IsMaterialized() {
			continue
		}
		errs = append(errs, verifyFunction(f)...)
	}
	return errors.Join(errs...)
}

func verifyFunction(f *Function) []error {
	var errs []error
	report := func(b *Block, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s/%s: %s", f.Name, b.Name, fmt.Sprintf(format, args...)))
	}
	names := map[string]bool{}
	for _, b := range f.Blocks {
		if names[b.Name] {
			report(b, "duplicate block name")
		}
		names[b.Name] = true
		if b.fn != f {
			report(b, "block does not point to its function")
		}
		if b.Terminator() == nil {
			report(b, "block does not end with a terminator")
		}
		for k, i := range b.Instrs {
			if i.IsTerminator() && k != len(b.Instrs)-1 {
				report(b, "terminator %s in the middle of the block", i.Op)
			}
			if i.block != b || i.erased {
				report(b, "instruction %s has a stale block link", i.Op)
			}
			for _, s := range i.Succs {
				if s == nil || s.fn != f || f.BlockIndex(s) < 0 {
					report(b, "branch to a block outside of the function")
				}
			}
			i.uses(func(v *Value) {
				switch d := (*v).(type) {
				case *Instr:
					if d.erased {
						report(b, "%s uses erased instruction %s", i.Op, d.Ident())
					} else if d.Parent() != f {
						report(b, "%s uses %s from another function", i.Op, d.Ident())
					}
				case *Param:
					if d.fn != f {
						report(b, "%s uses parameter %s of another function", i.Op, d.Ident())
					}
				case nil:
					report(b, "%s has a nil operand", i.Op)
				}
			})
			if i.Loc != nil && i.Loc.Scope != nil && f.Subprogram != nil && i.Loc.Scope != f.Subprogram {
				report(b, "%s has a location scoped to %s", i.Op, i.Loc.Scope.Name)
			}
		}
	}
	return errs
}
