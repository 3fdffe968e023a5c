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

package nondet

import (
	"fmt"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/naming"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/uninit"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
)

// InitializeUninitialized makes nondeterministic every stack allocation that may be read before being written.
// The requests are inserted right after the allocation:
//   - an allocation of an array type is requested in place,
//   - an allocation of a variable number of objects is requested in place, for count * size bytes,
//   - a scalar receives the value of a shadow object made nondeterministic, or of the nondeterministic global
//     of its type when the shadow mode is "global".
//
// Going through a shadow lets slicing remove the whole initialization when the program writes the scalar later.
type InitializeUninitialized struct{}

func (InitializeUninitialized) Name() string { return config.PassInitializeUninit }

func (p InitializeUninitialized) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	changed := false
	for _, f := range m.Defined() {
		if verifier.InNamespace(f.Name) {
			continue
		}
		if err := materialize(f); err != nil {
			return changed, err
		}
		n, err := p.runOnFunction(ctx, m, f)
		if n > 0 {
			changed = true
			ctx.Effect(transform.EffectNondet, f.Name, "initialized %d allocations with nondeterministic values", n)
		}
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// runOnFunction returns the number of allocations of f that were initialized
func (p InitializeUninitialized) runOnFunction(ctx *transform.Context, m *ir.Module, f *ir.Function) (int, error) {
	n := 0
	for _, a := range uninit.Find(f) {
		if !a.Alloc.IsSized() {
			ctx.Skip(fmt.Sprintf("%s/%s", f.Name, a.Ident()), "cannot initialize allocation of unsized type %s",
				a.Alloc)
			continue
		}
		name := ctx.Names.NextName(f, naming.RoleUninitialized, 0)
		// an alloca never ends a block
		next := a.Next()
		var err error
		switch {
		case a.ArraySize() != nil:
			err = requestCounted(ctx, m, a, next, name)
		case a.Alloc.IsArray():
			size, _ := transform.SizeOf(m, a.Alloc)
			_, err = ctx.RequestNondet(m, next, a, a, size, name)
		case ctx.Config.ShadowMode == config.ShadowGlobal:
			err = copyNondetGlobal(ctx, m, a, next)
		default:
			err = requestShadow(ctx, m, a, next, name)
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// requestCounted requests the count * sizeof(T) bytes of an alloca of count objects of type T
func requestCounted(ctx *transform.Context, m *ir.Module, a, next *ir.Instr, name string) error {
	count := a.ArraySize()
	var inserted []*ir.Instr
	if cast := ir.CastTo(count, m.Layout.SizeT(), ""); cast != nil {
		count = ir.InsertBefore(cast, next)
		inserted = append(inserted, cast)
	}
	elemSize, _ := transform.SizeOf(m, a.Alloc)
	size := ir.InsertBefore(ir.NewBinary("mul", count, elemSize, "val_size"), next)
	ctx.Attach(a, append(inserted, size)...)
	_, err := ctx.RequestNondet(m, next, a, a, size, name)
	return err
}

// requestShadow allocates a shadow of a, requests it, and stores its value into a
func requestShadow(ctx *transform.Context, m *ir.Module, a, next *ir.Instr, name string) error {
	shadow := ir.InsertBefore(ir.NewAlloca(a.Alloc, ""), next)
	size, _ := transform.SizeOf(m, a.Alloc)
	if _, err := ctx.RequestNondet(m, next, a, shadow, size, name); err != nil {
		return err
	}
	load := ir.InsertBefore(ir.NewLoad(shadow, ""), next)
	store := ir.InsertBefore(ir.NewStore(load, a), next)
	ctx.Attach(a, shadow, load, store)
	return nil
}

// copyNondetGlobal stores into a the value of the nondeterministic global of its type
func copyNondetGlobal(ctx *transform.Context, m *ir.Module, a, next *ir.Instr) error {
	g, err := ctx.NondetGlobal(m, a.Alloc)
	if err != nil {
		return err
	}
	load := ir.InsertBefore(ir.NewLoad(g, ""), next)
	store := ir.InsertBefore(ir.NewStore(load, a), next)
	ctx.Attach(a, load, store)
	return nil
}
