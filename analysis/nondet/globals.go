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
	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
)

// the standard streams are defined by the C library
var standardStreams = map[string]bool{"stdin": true, "stdout": true, "stderr": true}

// getopt state keeps its initial values
const (
	optind = "optind"
	optarg = "optarg"
)

// InternalizeGlobals defines the globals that have no initializer. Each gets a zero initializer and, at the
// entry of main, a request making it nondeterministic. A global of pointer type instead points to a new object
// of the pointee type, and the request targets that object.
type InternalizeGlobals struct{}

func (InternalizeGlobals) Name() string { return config.PassInternalizeGlobals }

func (InternalizeGlobals) Run(ctx *transform.Context, m *ir.Module) (bool, error) {
	var candidates []*ir.Global
	for _, g := range m.Globals {
		if g.HasInitializer() || standardStreams[g.Name] {
			continue
		}
		if !g.ValueType.IsSized() {
			ctx.Skip(g.Name, "failed making global variable nondeterministic (type %s is unsized)", g.ValueType)
			continue
		}
		if g.ValueType.IsPointer() && !g.ValueType.Elem.IsSized() {
			ctx.Skip(g.Name, "failed making global variable nondeterministic (referenced type %s is unsized)",
				g.ValueType.Elem)
			continue
		}
		candidates = append(candidates, g)
	}
	if len(candidates) == 0 {
		return false, nil
	}

	// all requests go before the first instruction main had when the pass started
	var first *ir.Instr
	for _, g := range candidates {
		if needsRequest(g) {
			main, err := transform.Main(m)
			if err != nil {
				return false, err
			}
			first = main.Entry().First()
			break
		}
	}

	for _, g := range candidates {
		target := g
		switch {
		case g.Name == optind && g.ValueType.IsInt():
			g.Init = ir.ConstInt(g.ValueType, 1)
		case g.Name == optarg || !g.ValueType.IsPointer():
			g.Init = ir.ZeroValue(g.ValueType)
		default:
			target = m.AddGlobal(g.Name+".pointee", g.ValueType.Elem)
			target.Linkage = ir.PrivateLinkage
			target.Init = ir.ZeroValue(target.ValueType)
			g.Init = target
		}
		g.ExternallyInitialized = false
		g.Constant = false

		if needsRequest(g) {
			size, _ := transform.SizeOf(m, target.ValueType)
			if _, err := ctx.RequestNondet(m, first, first, target, size, g.Name); err != nil {
				return true, err
			}
		}
		ctx.Effect(transform.EffectInternalized, g.Name, "made global variable non-extern")
	}
	return true, nil
}

// needsRequest returns true if g gets a nondeterministic value at the entry of main once it is defined
func needsRequest(g *ir.Global) bool {
	return g.Name != optind && g.Name != optarg
}
