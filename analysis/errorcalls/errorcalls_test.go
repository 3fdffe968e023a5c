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

package errorcalls

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

const asserts = `
functions:
  - {name: __assert_fail, type: "void (i8*, i8*, i32, i8*)", attrs: [noreturn]}
  - {name: my_assert, type: "void ()"}
  - name: main
    type: "i32 (i1)"
    params: [c]
    subprogram: {file: a.c, line: 1}
    blocks:
      - name: entry
        instrs:
          - {op: condbr, args: ["%c"], succs: [fail, ok], line: 2}
      - name: fail
        instrs:
          - {op: call, callee: "@__assert_fail", args: ['c"c"', 'c"a.c"', "2", 'c"main"'], line: 2, col: 5}
          - {op: unreachable, line: 2}
      - name: ok
        instrs:
          - {op: call, callee: "@my_assert", line: 3}
          - {op: ret, args: ["0"], line: 4}
`

func run(t *testing.T, m *ir.Module, cfg *config.Config, pass transform.Pass) (*transform.Context, bool) {
	t.Helper()
	log, _ := irtest.NewLogGroup(cfg)
	ctx := transform.NewContext(cfg, log, m)
	changed, err := ctx.Run(pass, m)
	require.NoError(t, err)
	require.NoError(t, m.Verify())
	return ctx, changed
}

func TestReplaceAsserts(t *testing.T) {
	m := irtest.Parse(t, asserts)
	ctx, changed := run(t, m, config.NewDefault(), ReplaceAsserts{})
	assert.True(t, changed)

	fail := m.Function("main").BlockNamed("fail")
	require.Len(t, fail.Instrs, 2)
	call := fail.First()
	assert.True(t, call.Calls(verifier.Error))
	assert.Empty(t, call.Operands)
	assert.Equal(t, 2, call.Loc.Line)
	assert.Equal(t, 5, call.Loc.Col)
	assert.True(t, m.Function(verifier.Error).HasAttr("noreturn"))
	assert.True(t, m.Function("main").BlockNamed("ok").First().Calls("my_assert"))
	assert.Equal(t, 1, ctx.Report.Count(transform.EffectErrorCall))

	_, changed = run(t, m, config.NewDefault(), ReplaceAsserts{})
	assert.False(t, changed)
}

func TestReplaceAssertsCustomFunction(t *testing.T) {
	m := irtest.Parse(t, asserts)
	cfg := config.NewDefault()
	cfg.AssertFunction = "my_assert"
	run(t, m, cfg, ReplaceAsserts{})

	main := m.Function("main")
	assert.True(t, main.BlockNamed("ok").First().Calls(verifier.Error))
	assert.True(t, main.BlockNamed("fail").First().Calls("__assert_fail"))
}

func TestRemoveErrorCalls(t *testing.T) {
	m := irtest.Parse(t, asserts)
	run(t, m, config.NewDefault(), ReplaceAsserts{})
	_, changed := run(t, m, config.NewDefault(), RemoveErrorCalls{})
	assert.True(t, changed)

	call := m.Function("main").BlockNamed("fail").First()
	assert.True(t, call.Calls(verifier.Assume))
	assert.Equal(t, int64(0), call.Operands[0].(*ir.Const).Int)
	assert.Equal(t, 2, call.Loc.Line)
	assert.Equal(t, ir.OpUnreachable, call.Next().Op)
}

func TestRemoveErrorCallsUseExit(t *testing.T) {
	m := irtest.Parse(t, asserts)
	cfg := config.NewDefault()
	cfg.RemoveErrorCallsUseExit = true
	run(t, m, cfg, RemoveErrorCalls{})

	call := m.Function("main").BlockNamed("fail").First()
	assert.True(t, call.Calls(verifier.Exit))
	assert.Nil(t, m.Function(verifier.Assume))
}
