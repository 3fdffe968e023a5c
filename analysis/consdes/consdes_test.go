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

package consdes

import (
	"strings"
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/config"
	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/analysis/transform"
	"github.com/awslabs/ar-go-vprep/internal/irtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

const lists = `
globals:
  - name: llvm.global_ctors
    type: "[2 x {i32, void ()*, i8*}]"
    linkage: private
    init:
      elems:
        - elems: ["i32 5", "@late", "null"]
        - elems: ["i32 1", "@early", "null"]
  - name: llvm.global_dtors
    type: "[2 x {i32, void ()*, i8*}]"
    linkage: private
    init:
      elems:
        - elems: ["i32 1", "@fin1", "null"]
        - elems: ["i32 5", "@fin5", "null"]
functions:
  - {name: exit, type: "void (i32)"}
  - name: early
    type: "void ()"
    blocks:
      - {name: entry, instrs: [{op: ret}]}
  - name: late
    type: "void ()"
    blocks:
      - {name: entry, instrs: [{op: ret}]}
  - name: fin1
    type: "void ()"
    blocks:
      - {name: entry, instrs: [{op: ret}]}
  - name: fin5
    type: "void ()"
    blocks:
      - {name: entry, instrs: [{op: ret}]}
  - name: main
    type: "i32 (i1)"
    params: [c]
    subprogram: {file: k.c, line: 1}
    blocks:
      - name: entry
        instrs:
          - {def: x, op: alloca, type: i32, line: 2}
          - {op: condbr, args: ["%c"], succs: [quit, done], line: 3}
      - name: quit
        instrs:
          - {op: call, callee: "@exit", args: ["1"], line: 4}
          - {op: unreachable, line: 4}
      - name: done
        instrs:
          - {op: ret, args: ["0"], line: 5}
`

// calls returns the names of the functions called by b, and "-" for other instructions
func calls(b *ir.Block) []string {
	var res []string
	for _, i := range b.Instrs {
		if f := i.CalledFunction(); f != nil {
			res = append(res, f.Name)
		} else {
			res = append(res, "-")
		}
	}
	return res
}

func newContext(m *ir.Module, cfg *config.Config) *transform.Context {
	log, _ := irtest.NewLogGroup(cfg)
	return transform.NewContext(cfg, log, m)
}

func TestExplicitConsdes(t *testing.T) {
	m := irtest.Parse(t, lists)
	ctx := newContext(m, config.NewDefault())
	changed, err := ctx.Run(ExplicitConsdes{}, m)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, m.Verify())

	main := m.Function("main")
	// lower priorities construct first and destruct last
	assert.Equal(t, []string{"early", "late", "-", "-"}, calls(main.Entry()))
	assert.Equal(t, []string{"fin5", "fin1", "exit", "-"}, calls(main.BlockNamed("quit")))
	assert.Equal(t, []string{"fin5", "fin1", "-"}, calls(main.BlockNamed("done")))
	assert.Equal(t, 2, main.Entry().First().Loc.Line)
	assert.Equal(t, 4, main.BlockNamed("quit").First().Loc.Line)

	assert.Nil(t, m.Global(CtorsList))
	assert.Nil(t, m.Global(DtorsList))
	assert.NotNil(t, m.Global(CtorsList+"_unused"))
	assert.NotNil(t, m.Global(DtorsList+"_unused"))
	assert.Equal(t, 2, ctx.Report.Count(transform.EffectConsdes))

	once := m.String()
	changed, err = ctx.Run(ExplicitConsdes{}, m)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, once, m.String())
}

func TestExplicitConsdesMarkExit(t *testing.T) {
	src := strings.Replace(lists, `          - {op: call, callee: "@exit", args: ["1"], line: 4}`,
		`          - {op: call, callee: "@__INSTR_mark_exit", line: 4}
          - {op: call, callee: "@exit", args: ["1"], line: 4}`, 1)
	src = strings.Replace(src, `  - {name: exit, type: "void (i32)"}`, `  - {name: exit, type: "void (i32)"}
  - {name: __INSTR_mark_exit, type: "void ()"}`, 1)
	m := irtest.Parse(t, src)
	ctx := newContext(m, config.NewDefault())
	_, err := ctx.Run(ExplicitConsdes{}, m)
	require.NoError(t, err)
	require.NoError(t, m.Verify())

	assert.Equal(t, []string{"fin5", "fin1", "__INSTR_mark_exit", "exit", "-"},
		calls(m.Function("main").BlockNamed("quit")))
}

// appended to the functions of lists
const indirect = `
  - name: h
    type: "void ()"
    blocks:
      - name: entry
        instrs:
          - {def: slot, op: alloca, type: "void (i32)*"}
          - {op: store, args: ["@exit", "%slot"]}
          - {op: ret}
`

func TestExplicitConsdesIndirectExit(t *testing.T) {
	m := irtest.Parse(t, lists+indirect)
	c := config.NewDefault()
	log, logs := irtest.NewLogGroup(c)
	ctx := transform.NewContext(c, log, m)
	_, err := ctx.Run(ExplicitConsdes{}, m)
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.Report.Count(transform.EffectIndirectRisky))
	assert.Contains(t, irtest.Messages(logs, zapcore.WarnLevel), "indirect call of exit is possible in the program (h)")

	strict := irtest.Parse(t, lists+indirect)
	c = config.NewDefault()
	c.StrictIndirectExit = true
	ctx = newContext(strict, c)
	_, err = ctx.Run(ExplicitConsdes{}, strict)
	assert.ErrorIs(t, err, ErrIndirectExit)
	// nothing was changed
	assert.NotNil(t, strict.Global(CtorsList))
	assert.Equal(t, []string{"-", "-"}, calls(strict.Function("main").Entry()))
}

func TestExplicitConsdesNeedsMain(t *testing.T) {
	src := lists[:strings.Index(lists, "  - name: main")]
	m := irtest.Parse(t, src)
	ctx := newContext(m, config.NewDefault())
	_, err := ctx.Run(ExplicitConsdes{}, m)
	assert.ErrorIs(t, err, transform.ErrMissingMain)
}

func TestReadList(t *testing.T) {
	m := irtest.Parse(t, lists)
	ctx := newContext(m, config.NewDefault())
	entries, err := ReadList(ctx, m.Global(CtorsList))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].Priority)
	assert.Same(t, m.Function("late"), entries[0].Function)
	_, isNull := entries[0].Data.(*ir.Null)
	assert.True(t, isNull)

	entries, err = ReadList(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
