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

// Package nondet replaces the state that the module leaves undefined with nondeterministic values.
//
// Four passes insert requests to the make-nondet primitive of the verifier:
//   - InternalizeGlobals gives an initializer to the globals declared without one and makes them
//     nondeterministic at the entry of main,
//   - InitializeUninitialized handles the stack allocations that may be read before being written,
//   - DeleteUndefined synthesizes bodies for the undefined functions that return a value and removes the calls
//     to the other ones,
//   - MakeNondet lowers the calls to the typed generators such as __VERIFIER_nondet_int.
//
// Injector runs the first three in that order over a fully loaded module.
package nondet

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
)

// Injector closes the module: after it runs, every global has an initializer, every flagged local is written
// before it is read, and the only undefined functions left are the runtime primitives.
type Injector struct {
	// Nosym makes synthesized functions return zero instead of a nondeterministic value
	Nosym bool
}

func (Injector) Name() string { return config.PassInjectNondet }

// Run materializes the whole module before changing anything. A module that cannot be loaded is left untouched.
func (p Injector) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	if err := m.MaterializeAll(); err != nil {
		return false, fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
	}
	changed := false
	// globals first: their requests at the entry of main must precede the ones for the locals of main
	passes := []transform.Pass{InternalizeGlobals{}, InitializeUninitialized{}, DeleteUndefined{Nosym: p.Nosym}}
	for _, pass := range passes {
		c, err := pass.Run(ctx, m)
		if err != nil {
			return changed, fmt.Errorf("%s: %w", pass.Name(), err)
		}
		changed = changed || c
	}
	return changed, nil
}

// materialize reads the body of f, turning failures into ErrMaterialize
func materialize(f *ir.Function) error {
	if err := f.Materialize(); err != nil {
		return fmt.Errorf("%w: %v", transform.ErrMaterialize, err)
	}
	return nil
}
