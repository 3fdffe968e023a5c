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

package metadata

import (
	"testing"

	"github.com/awslabs/ar-go-vprep/analysis/ir"
	"github.com/awslabs/ar-go-vprep/internal/irtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `
functions:
  - name: f
    type: "void (i1)"
    params: [c]
    subprogram: {file: f.c, line: 10, scope-line: 11}
    blocks:
      - name: entry
        instrs:
          - {def: a, op: alloca, type: i32}
          - {def: b, op: alloca, type: i32, line: 12, col: 3}
          - {def: d, op: alloca, type: i32}
          - {op: store, args: ["0", "%a"], line: 13, col: 5}
          - {op: store, args: ["0", "%b"], line: 14, col: 5}
          - {op: br, succs: [next]}
      - name: next
        instrs:
          - {op: condbr, args: ["%c"], succs: [done, done]}
      - name: done
        instrs:
          - {def: v, op: load, args: ["%d"]}
          - {op: ret}
      - name: orphan
        instrs:
          - {op: ret}
      - name: spin
        instrs:
          - {op: br, succs: [spin2]}
      - name: spin2
        instrs:
          - {op: br, succs: [spin]}
  - name: g
    type: "void ()"
    subprogram: {file: g.c, line: 40}
    blocks:
      - name: entry
        instrs:
          - {def: x, op: alloca, type: i32, line: 41, col: 2}
          - {op: ret, line: 42}
  - name: nodebug
    type: "void ()"
    blocks:
      - name: entry
        instrs:
          - {op: ret}
`

func locOf(t *testing.T, i *ir.Instr) (int, int) {
	t.Helper()
	require.NotNil(t, i.Loc)
	return i.Loc.Line, i.Loc.Col
}

func TestAttachCopiesLocation(t *testing.T) {
	m := irtest.Parse(t, src)
	entry := m.Function("f").Entry()
	b := entry.Instrs[1]
	pad := ir.InsertAfter(ir.NewAlloca(ir.I8, "pad"), b)
	assert.True(t, Attach(b, pad))
	line, col := locOf(t, pad)
	assert.Equal(t, 12, line)
	assert.Equal(t, 3, col)
	assert.NotSame(t, b.Loc, pad.Loc)
}

func TestAttachPrefersNextLocatedInstruction(t *testing.T) {
	m := irtest.Parse(t, src)
	entry := m.Function("f").Entry()
	d := entry.Instrs[2]
	pad := ir.InsertAfter(ir.NewAlloca(ir.I8, "pad"), d)
	assert.True(t, Attach(d, pad))
	line, _ := locOf(t, pad)
	assert.Equal(t, 13, line)
}

func TestAttachFallsBackToPreviousLocatedInstruction(t *testing.T) {
	m := irtest.Parse(t, src)
	entry := m.Function("f").Entry()
	br := entry.Terminator()
	pad := ir.InsertBefore(ir.NewAlloca(ir.I8, "pad"), br)
	assert.True(t, Attach(br, pad))
	line, _ := locOf(t, pad)
	assert.Equal(t, 14, line)
}

func TestAttachWalksUniquePredecessors(t *testing.T) {
	m := irtest.Parse(t, src)
	done := m.Function("f").BlockNamed("done")
	pad := done.InsertFirst(ir.NewAlloca(ir.I8, "pad"))
	assert.True(t, Attach(done.Terminator(), pad))
	line, _ := locOf(t, pad)
	assert.Equal(t, 14, line)
}

func TestAttachUsesScopeLineWithoutPredecessor(t *testing.T) {
	m := irtest.Parse(t, src)
	f := m.Function("f")
	orphan := f.BlockNamed("orphan")
	pad := orphan.InsertFirst(ir.NewAlloca(ir.I8, "pad"))
	assert.True(t, Attach(orphan.Terminator(), pad))
	line, col := locOf(t, pad)
	assert.Equal(t, 11, line)
	assert.Equal(t, 0, col)
	assert.Same(t, f.Subprogram, pad.Loc.Scope)
}

func TestAttachStopsOnPredecessorCycles(t *testing.T) {
	m := irtest.Parse(t, src)
	spin2 := m.Function("f").BlockNamed("spin2")
	pad := spin2.InsertFirst(ir.NewAlloca(ir.I8, "pad"))
	assert.True(t, Attach(spin2.Terminator(), pad))
	line, _ := locOf(t, pad)
	assert.Equal(t, 11, line)
}

func TestAttachWithoutDebugInfo(t *testing.T) {
	m := irtest.Parse(t, src)
	entry := m.Function("nodebug").Entry()
	pad := entry.InsertFirst(ir.NewAlloca(ir.I8, "pad"))
	assert.False(t, Attach(entry.Terminator(), pad))
	assert.Nil(t, pad.Loc)
}

func TestAttachNeverUsesAnotherFunctionLocation(t *testing.T) {
	m := irtest.Parse(t, src)
	f, g := m.Function("f"), m.Function("g")
	foreign := g.Entry().First()
	done := f.BlockNamed("done")
	pad := done.InsertFirst(ir.NewAlloca(ir.I8, "pad"))
	assert.True(t, Attach(foreign, pad))
	assert.Same(t, f.Subprogram, pad.Loc.Scope)
	require.NoError(t, m.Verify())

	// every instruction of every function only refers to its own subprogram
	for _, fn := range m.Functions {
		fn.Instructions(func(i *ir.Instr) {
			if i.Loc != nil {
				assert.Same(t, fn.Subprogram, i.Loc.Scope)
			}
		})
	}
}

func TestAttachAll(t *testing.T) {
	m := irtest.Parse(t, src)
	entry := m.Function("g").Entry()
	x := entry.First()
	p := ir.InsertAfter(ir.NewCast("bitcast", x, ir.I8P, "p"), x)
	q := ir.InsertAfter(ir.NewAlloca(ir.I8, "q"), p)
	assert.True(t, AttachAll(x, p, nil, q))
	assert.Equal(t, 41, p.Loc.Line)
	assert.Equal(t, 41, q.Loc.Line)
}
