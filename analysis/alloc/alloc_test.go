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

package alloc

import (
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/analysis/verifier"
	"github.com/awslabs/ar-go-vprep/internal/irtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allocs = `
functions:
  - {name: malloc, type: "i8* (i32)"}
  - {name: calloc, type: "i8* (i64, i64)"}
  - {name: use, type: "void (i8*)"}
  - name: main
    type: "i32 (i32)"
    params: [n]
    subprogram: {file: m.c, line: 1}
    blocks:
      - name: entry
        instrs:
          - {def: p, op: call, callee: "@malloc", args: ["%n"], attrs: [noalias], meta: {tbaa: int}, line: 2}
          - {def: q, op: call, callee: "@calloc", args: ["2", "16"], line: 3}
          - {op: call, callee: "@use", args: ["%p"], line: 4}
          - {op: call, callee: "@use", args: ["%q"], line: 4}
          - {op: ret, args: ["0"], line: 5}
  - name: __VERIFIER_malloc
    type: "i8* (i32)"
    blocks:
      - name: entry
        instrs:
          - {def: r, op: call, callee: "@malloc", args: ["4"]}
          - {op: ret, args: ["%r"]}
`

func run(t *testing.T, m *ir.Module, passes ...transform.Pass) *transform.Context {
	cfg := config.NewDefault()
	log, _ := irtest.NewLogGroup(cfg)
	ctx := transform.NewContext(cfg, log, m)
	for _, p := range passes {
		_, err := ctx.Run(p, m)
		require.NoError(t, err)
	}
	require.NoError(t, m.Verify())
	return ctx
}

func TestInstrumentMayFail(t *testing.T) {
	m := irtest.Parse(t, allocs)
	ctx := run(t, m, Instrument{Policy: MayFail})
	main := m.Function("main")

	p := main.Entry().Instrs[0]
	assert.True(t, p.Calls(verifier.Malloc))
	assert.Equal(t, "p", p.Name)
	assert.Same(t, main.Params[0], p.Operands[0])
	assert.Equal(t, []string{"noalias"}, p.Attrs)
	assert.Equal(t, "int", p.Meta["tbaa"])
	assert.Equal(t, 2, p.Loc.Line)
	// the declaration follows the call site
	assert.True(t, m.Function(verifier.Malloc).Sig.Equal(ir.FuncOf(ir.I8P, ir.I32)))

	q := main.Entry().Instrs[1]
	assert.True(t, q.Calls(verifier.Calloc))
	assert.Same(t, q, main.Entry().Instrs[3].Operands[0])

	// the runtime itself is not instrumented
	assert.True(t, m.Function(verifier.Malloc).Entry().First().Calls(verifier.LibcMalloc))
	assert.Equal(t, 1, ctx.Report.Count(transform.EffectRedirected))
}

func TestInstrumentNeverFails(t *testing.T) {
	m := irtest.Parse(t, allocs)
	pass := Instrument{Policy: NeverFails}
	assert.Equal(t, config.PassInstrumentAllocNF, pass.Name())
	run(t, m, pass)
	main := m.Function("main")
	assert.True(t, main.Entry().Instrs[0].Calls(verifier.Malloc0))
	assert.True(t, main.Entry().Instrs[1].Calls(verifier.Calloc0))
	assert.Nil(t, m.Function(verifier.Calloc))
}

func TestMayFailThenAssumeIsNeverFails(t *testing.T) {
	direct := irtest.Parse(t, allocs)
	run(t, direct, Instrument{Policy: NeverFails})

	assumed := irtest.Parse(t, allocs)
	run(t, assumed, Instrument{Policy: MayFail}, AssumeNeverFails{})

	assert.Equal(t, direct.Function("main").String(), assumed.Function("main").String())
}

func TestTarget(t *testing.T) {
	assert.Equal(t, verifier.Calloc0, Target("calloc", NeverFails))
	assert.Equal(t, verifier.Malloc, Target("malloc", MayFail))
	assert.Equal(t, "", Target("realloc", MayFail))
}
